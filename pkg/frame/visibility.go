package frame

import "math"

// Visibility packs a primary hit into 64 bits: the shape index plus one in
// the high word (0 means miss) and the float32 hit distance in the low word.
type Visibility uint64

// Miss is the visibility of a pixel that saw no geometry
const Miss Visibility = 0

// PackVisibility encodes a hit on shapeID at distance t
func PackVisibility(shapeID int, t float32) Visibility {
	if shapeID < 0 || uint64(shapeID) >= math.MaxUint32 {
		return Miss
	}
	return Visibility(uint64(shapeID+1)<<32 | uint64(math.Float32bits(t)))
}

// Unpack returns the shape index and hit distance. ok is false for misses
// and for corrupt records with a non-positive or non-finite distance.
func (v Visibility) Unpack() (shapeID int, t float32, ok bool) {
	id := int(uint64(v) >> 32)
	if id == 0 {
		return -1, 0, false
	}
	t = math.Float32frombits(uint32(v))
	if !(t > 0) || math.IsInf(float64(t), 0) {
		return -1, 0, false
	}
	return id - 1, t, true
}
