package restir

import "github.com/df07/go-restir-di/pkg/reservoir"

// FrameBuffers holds the double-buffered per-pixel state. Surfaces and
// reservoirs each have a current and a previous slot; swapping flips index
// flags and never copies.
type FrameBuffers struct {
	surfaces   [2][]SurfaceData
	reservoirs [2][]reservoir.Reservoir

	surfaceIndex   int // slot holding the current surfaces
	reservoirIndex int // slot holding the current reservoirs
	pixels         int
}

// BufferCapacities reports the allocated element count of every buffer
type BufferCapacities struct {
	CurrentSurfaces, PrevSurfaces     int
	CurrentReservoirs, PrevReservoirs int
}

// EnsureCapacity makes all four buffers hold at least pixels elements. The
// buffers only ever grow; it reports whether an allocation happened, in
// which case all history is gone.
func (b *FrameBuffers) EnsureCapacity(pixels int) bool {
	b.pixels = pixels
	grew := false
	for i := range 2 {
		if cap(b.surfaces[i]) < pixels {
			b.surfaces[i] = make([]SurfaceData, pixels)
			grew = true
		}
		if cap(b.reservoirs[i]) < pixels {
			b.reservoirs[i] = make([]reservoir.Reservoir, pixels)
			grew = true
		}
		b.surfaces[i] = b.surfaces[i][:pixels]
		b.reservoirs[i] = b.reservoirs[i][:pixels]
	}
	return grew
}

// Capacities returns the allocated sizes of the buffers
func (b *FrameBuffers) Capacities() BufferCapacities {
	return BufferCapacities{
		CurrentSurfaces:   cap(b.surfaces[b.surfaceIndex]),
		PrevSurfaces:      cap(b.surfaces[1-b.surfaceIndex]),
		CurrentReservoirs: cap(b.reservoirs[b.reservoirIndex]),
		PrevReservoirs:    cap(b.reservoirs[1-b.reservoirIndex]),
	}
}

// Pixels is the element count in use for the current frame
func (b *FrameBuffers) Pixels() int { return b.pixels }

// Swap makes the current frame's buffers the previous ones
func (b *FrameBuffers) Swap() {
	b.surfaceIndex = 1 - b.surfaceIndex
	b.reservoirIndex = 1 - b.reservoirIndex
}

// SwapReservoirs flips only the reservoir slots, for ping-pong passes
func (b *FrameBuffers) SwapReservoirs() {
	b.reservoirIndex = 1 - b.reservoirIndex
}

func (b *FrameBuffers) CurrentSurfaces() []SurfaceData { return b.surfaces[b.surfaceIndex] }
func (b *FrameBuffers) PrevSurfaces() []SurfaceData    { return b.surfaces[1-b.surfaceIndex] }

func (b *FrameBuffers) CurrentReservoirs() []reservoir.Reservoir {
	return b.reservoirs[b.reservoirIndex]
}

func (b *FrameBuffers) PrevReservoirs() []reservoir.Reservoir {
	return b.reservoirs[1-b.reservoirIndex]
}

// ClearHistory invalidates the previous surfaces and reservoirs
func (b *FrameBuffers) ClearHistory() {
	clear(b.PrevSurfaces())
	clear(b.PrevReservoirs())
}
