package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/restir"
	"github.com/df07/go-restir-di/pkg/scene"
)

func newTestRenderer(t *testing.T, configure func(*Config)) (*Renderer, *scene.Scene) {
	t.Helper()
	sc, err := scene.NewByID("default")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	config := DefaultConfig()
	config.Width = 32
	config.Height = 18
	config.Frames = 3
	config.NumWorkers = 2
	config.Properties = restir.Properties{"candidateCount": 4}
	if configure != nil {
		configure(&config)
	}
	r, err := New(sc, config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(r.Close)
	return r, sc
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.TileSize != compute.DefaultTileSize {
		t.Errorf("Expected default tile size %d, got %d", compute.DefaultTileSize, config.TileSize)
	}
	if config.Frames != 8 {
		t.Errorf("Expected 8 frames, got %d", config.Frames)
	}
	if !config.Accumulate {
		t.Error("Expected accumulation to be enabled by default")
	}
}

func TestNew_DerivesSize(t *testing.T) {
	r, sc := newTestRenderer(t, func(c *Config) {
		c.Width = 64
		c.Height = 0
	})

	camera := sc.CameraConfig
	camera.Width = 64
	if w, h := r.Size(); w != 64 || h != camera.Height() {
		t.Errorf("Expected 64x%d, got %dx%d", camera.Height(), w, h)
	}
}

func TestNew_NoScene(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); !errors.Is(err, restir.ErrNoScene) {
		t.Errorf("Expected ErrNoScene, got %v", err)
	}
}

func TestRenderFrame_Accumulates(t *testing.T) {
	r, _ := newTestRenderer(t, nil)

	for i := range 3 {
		result, err := r.RenderFrame(context.Background())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Frame != i {
			t.Errorf("Expected frame %d, got %d", i, result.Frame)
		}
		if result.Stats.AccumulatedFrames != i+1 {
			t.Errorf("Expected %d accumulated frames, got %d", i+1, result.Stats.AccumulatedFrames)
		}
		if result.IsLast != (i == 2) {
			t.Errorf("Frame %d: expected IsLast %v, got %v", i, i == 2, result.IsLast)
		}
		if result.Stats.AverageLuminance <= 0 {
			t.Errorf("Expected positive average luminance, got %f", result.Stats.AverageLuminance)
		}
		if result.Stats.LitPixels == 0 {
			t.Error("Expected some lit pixels")
		}
	}
}

func TestRenderFrame_ResultIsACopy(t *testing.T) {
	r, _ := newTestRenderer(t, nil)

	first, err := r.RenderFrame(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	before := first.Color.Clone()
	if _, err := r.RenderFrame(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := range before.Data {
		if before.Data[i] != first.Color.Data[i] {
			t.Fatalf("Texel %d changed after the next frame", i)
		}
	}
}

func TestRenderFrame_OrbitResetsAccumulation(t *testing.T) {
	r, sc := newTestRenderer(t, func(c *Config) { c.OrbitDegrees = 5 })
	start := sc.CameraConfig

	for range 3 {
		result, err := r.RenderFrame(context.Background())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Stats.AccumulatedFrames != 1 {
			t.Errorf("Expected no accumulation while moving, got %d", result.Stats.AccumulatedFrames)
		}
	}
	if sc.CameraConfig.Center == start.Center {
		t.Error("Expected the camera to have moved")
	}

	r.Close()
	if sc.CameraConfig != start {
		t.Error("Expected Close to restore the camera")
	}
}

func TestRenderFrame_LightingChangeResetsAccumulation(t *testing.T) {
	r, sc := newTestRenderer(t, nil)

	for range 2 {
		if _, err := r.RenderFrame(context.Background()); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	settings := sc.Settings()
	settings.UseEnvLight = false
	sc.SetRenderSettings(settings)

	result, err := r.RenderFrame(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Stats.AccumulatedFrames != 1 {
		t.Errorf("Expected accumulation to restart, got %d", result.Stats.AccumulatedFrames)
	}
}

func TestRenderFrame_BackgroundOnMiss(t *testing.T) {
	r, sc := newTestRenderer(t, nil)

	result, err := r.RenderFrame(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	w, h := r.Size()
	camera := geometry.NewCameraForSize(sc.CameraConfig, w, h)
	misses := 0
	for y := range h {
		for x := range w {
			if _, _, ok := r.data.VBuffer.At(x, y).Unpack(); ok {
				continue
			}
			misses++
			want := sc.Background(camera.GetRay((float64(x)+0.5)/float64(w), (float64(y)+0.5)/float64(h)))
			got := result.Color.At(x, y)
			if got.R != float32(want.X) || got.G != float32(want.Y) || got.B != float32(want.Z) {
				t.Fatalf("Pixel (%d,%d): expected background %v, got %v", x, y, want, got)
			}
		}
	}
	if misses == 0 {
		t.Fatal("Expected sky pixels in the default scene")
	}
}

func TestRenderSequence(t *testing.T) {
	r, _ := newTestRenderer(t, func(c *Config) { c.OrbitDegrees = 2 })

	frames, errs := r.RenderSequence(context.Background())
	var results []FrameResult
	for result := range frames {
		results = append(results, result)
	}
	for err := range errs {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(results))
	}
	for i, result := range results {
		if result.Frame != i {
			t.Errorf("Expected frame %d, got %d", i, result.Frame)
		}
	}
	if !results[2].IsLast {
		t.Error("Expected the last frame to be marked")
	}
}

func TestRenderSequence_Cancelled(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frames, errs := r.RenderSequence(ctx)
	count := 0
	for range frames {
		count++
	}
	err := <-errs
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no frames, got %d", count)
	}
}
