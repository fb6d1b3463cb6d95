// Package compute provides the CPU device that executes per-pixel kernels
// over a tile grid, one dispatch at a time.
package compute

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/df07/go-restir-di/pkg/core"
)

// DefaultTileSize is the edge length of dispatch tiles
const DefaultTileSize = 64

// Feature is a device capability bit
type Feature uint32

const (
	FeatureRayQuery       Feature = 1 << iota // Scene ray queries from inside kernels
	FeatureFloat32Storage                     // 32-bit float texture writes
	FeatureInt64                              // 64-bit integer texture reads
)

// AllFeatures is every capability the CPU device can provide
const AllFeatures = FeatureRayQuery | FeatureFloat32Storage | FeatureInt64

var featureNames = []struct {
	f    Feature
	name string
}{
	{FeatureRayQuery, "rayQuery"},
	{FeatureFloat32Storage, "float32Storage"},
	{FeatureInt64, "int64"},
}

func (f Feature) String() string {
	var names []string
	for _, fn := range featureNames {
		if f&fn.f != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// DeviceOptions configures a device
type DeviceOptions struct {
	Name     string
	Workers  int     // 0 uses the CPU count
	TileSize int     // 0 uses DefaultTileSize
	Features Feature // 0 enables AllFeatures
}

// Device executes kernels on a persistent worker pool
type Device struct {
	name     string
	features Feature
	tileSize int
	pool     *WorkerPool

	mu     sync.Mutex
	tiles  map[[2]int][]Tile
	counts map[string]int
	stats  DispatchStats
}

// DispatchStats accumulates dispatch work since the device was created
type DispatchStats struct {
	Dispatches int
	Pixels     int
	Duration   time.Duration
}

// NewDevice creates a device and starts its workers
func NewDevice(opts DeviceOptions) *Device {
	if opts.TileSize <= 0 {
		opts.TileSize = DefaultTileSize
	}
	if opts.Features == 0 {
		opts.Features = AllFeatures
	}
	if opts.Name == "" {
		opts.Name = "cpu"
	}
	d := &Device{
		name:     opts.Name,
		features: opts.Features,
		tileSize: opts.TileSize,
		pool:     NewWorkerPool(opts.Workers),
		tiles:    make(map[[2]int][]Tile),
		counts:   make(map[string]int),
	}
	core.Logger().Debug("compute device created",
		"device", d.name,
		"workers", d.pool.NumWorkers(),
		"tileSize", d.tileSize,
		"features", d.features.String())
	return d
}

func (d *Device) Name() string { return d.name }

// Features returns the capabilities of the device
func (d *Device) Features() Feature { return d.features }

// Supports reports whether every feature in f is available
func (d *Device) Supports(f Feature) bool {
	return d.features&f == f
}

func (d *Device) tileGrid(width, height int) []Tile {
	key := [2]int{width, height}
	if tiles, ok := d.tiles[key]; ok {
		return tiles
	}
	tiles := NewTileGrid(width, height, d.tileSize)
	d.tiles[key] = tiles
	return tiles
}

// Dispatch runs kernel for every pixel of a width x height grid and waits for
// completion. Passes issued one after another therefore never overlap.
func (d *Device) Dispatch(ctx context.Context, name string, width, height int, kernel Kernel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := core.StartSpan(ctx, "dispatch "+name,
		attribute.String("pass", name),
		attribute.Int("width", width),
		attribute.Int("height", height))
	defer span.End()

	d.mu.Lock()
	tiles := d.tileGrid(width, height)
	d.mu.Unlock()

	start := time.Now()
	pixels, err := d.pool.Run(tiles, kernel)
	elapsed := time.Since(start)

	d.mu.Lock()
	d.counts[name]++
	d.stats.Dispatches++
	d.stats.Pixels += pixels
	d.stats.Duration += elapsed
	d.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("dispatch %s: %w", name, err)
		core.FailSpan(span, err, "kernel failed")
		return err
	}
	return nil
}

// DispatchCounts returns how many times each named kernel was dispatched
func (d *Device) DispatchCounts() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	counts := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		counts[k] = v
	}
	return counts
}

// ResetCounts clears the per-kernel dispatch counters
func (d *Device) ResetCounts() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.counts)
}

// Stats returns the accumulated dispatch statistics
func (d *Device) Stats() DispatchStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Close stops the workers. The device cannot dispatch afterwards.
func (d *Device) Close() {
	d.pool.Stop()
}
