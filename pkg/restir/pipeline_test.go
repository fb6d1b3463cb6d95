package restir

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/reservoir"
)

func TestNew_UnsupportedFeature(t *testing.T) {
	device := compute.NewDevice(compute.DeviceOptions{Workers: 1, Features: compute.FeatureFloat32Storage})
	defer device.Close()

	_, err := New(Options{Device: device})
	if !errors.Is(err, ErrUnsupportedFeature) {
		t.Fatalf("Expected ErrUnsupportedFeature, got %v", err)
	}
	if !strings.Contains(err.Error(), "rayQuery") {
		t.Errorf("Expected error to name the missing feature, got %q", err.Error())
	}
}

func TestNew_NoDevice(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("Expected error for missing device")
	}
}

func TestPipeline_ExecuteRequiresSceneAndChannels(t *testing.T) {
	device := newTestDevice(t, 2)
	p := newTestPipeline(t, device, nil)

	data := frame.NewRenderData(8, 8)
	if err := p.Execute(context.Background(), data); !errors.Is(err, ErrNoScene) {
		t.Errorf("Expected ErrNoScene, got %v", err)
	}

	p.SetScene(testScene(t))
	data.VBuffer = nil
	if err := p.Execute(context.Background(), data); !errors.Is(err, ErrMissingChannel) {
		t.Errorf("Expected ErrMissingChannel, got %v", err)
	}
}

func TestPipeline_DispatchCounts(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		iterations int
		temporal   int
		spatial    int
	}{
		{"no resampling", "NoResampling", 3, 0, 0},
		{"spatial", "SpatialResampling", 2, 0, 2},
		{"temporal", "TemporalResampling", 3, 1, 0},
		{"spatiotemporal", "SpatiotemporalResampling", 3, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := newTestDevice(t, 2)
			s := testScene(t)
			p := newTestPipeline(t, device, Properties{
				KeyMode:              tt.mode,
				KeySpatialIterations: tt.iterations,
				KeyCandidateCount:    4,
			})
			p.SetScene(s)
			data := renderInputs(t, device, s, 24, 18)
			device.ResetCounts()

			execute(t, p, data)

			counts := device.DispatchCounts()
			if counts["loadSurfaceData"] != 1 {
				t.Errorf("Expected 1 loadSurfaceData dispatch, got %d", counts["loadSurfaceData"])
			}
			if counts["temporalReuse"] != tt.temporal {
				t.Errorf("Expected %d temporalReuse dispatches, got %d", tt.temporal, counts["temporalReuse"])
			}
			if counts["spatialReuse"] != tt.spatial {
				t.Errorf("Expected %d spatialReuse dispatches, got %d", tt.spatial, counts["spatialReuse"])
			}
			if counts["directLighting"] != 1 {
				t.Errorf("Expected 1 directLighting dispatch, got %d", counts["directLighting"])
			}
			if p.FrameCount() != 1 {
				t.Errorf("Expected frame count 1, got %d", p.FrameCount())
			}
		})
	}
}

func TestPipeline_NoResamplingKeepsInitialReservoirs(t *testing.T) {
	device := newTestDevice(t, 3)
	s := testScene(t)
	p := newTestPipeline(t, device, Properties{KeyMode: "NoResampling", KeyCandidateCount: 8})
	p.SetScene(s)
	data := renderInputs(t, device, s, 24, 18)

	execute(t, p, data)

	fc := *p.bindings
	fc.config = p.programs[PassLoadSurface].Config
	fc.frame = 0

	got := p.Reservoirs()
	for y := range 18 {
		for x := range 24 {
			want := fc.initialReservoir(x, y, fc.loadSurface(x, y, data))
			if got[fc.index(x, y)] != want {
				t.Fatalf("Pixel (%d,%d): expected %v, got %v", x, y, want, got[fc.index(x, y)])
			}
		}
	}
}

func TestPipeline_LightsTheScene(t *testing.T) {
	modes := []string{"NoResampling", "SpatialResampling", "TemporalResampling", "SpatiotemporalResampling"}
	biases := []string{"Biased", "UnbiasedNaive", "UnbiasedMIS"}

	for _, mode := range modes {
		for _, bias := range biases {
			t.Run(mode+"/"+bias, func(t *testing.T) {
				device := newTestDevice(t, 2)
				s := testScene(t)
				p := newTestPipeline(t, device, Properties{
					KeyMode:           mode,
					KeyBiasMode:       bias,
					KeyCandidateCount: 4,
				})
				p.SetScene(s)
				data := renderInputs(t, device, s, 24, 18)

				for range 3 {
					execute(t, p, data)
				}

				stats := p.Stats()
				if stats.ValidPixels == 0 {
					t.Fatal("Expected some valid pixels")
				}
				if stats.LitPixels == 0 {
					t.Error("Expected some lit pixels")
				}
				for y := range 18 {
					for x := range 24 {
						c := data.Color.At(x, y)
						for _, v := range []float32{c.R, c.G, c.B} {
							f := float64(v)
							if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
								t.Fatalf("Pixel (%d,%d): expected finite non-negative color, got %v", x, y, c)
							}
						}
						if c.A != 1 {
							t.Fatalf("Pixel (%d,%d): expected alpha 1, got %v", x, y, c.A)
						}
					}
				}
				for i, r := range p.Reservoirs()[:24*18] {
					if r.W < 0 || !core.IsFinite(r.W) {
						t.Fatalf("Reservoir %d: expected finite non-negative W, got %v", i, r)
					}
				}
			})
		}
	}
}

// averageRadiance renders frames and returns the mean pixel luminance over
// all of them together with the largest contribution weight seen
func averageRadiance(t *testing.T, props Properties, frames int) (float64, float64) {
	t.Helper()
	device := newTestDevice(t, 2)
	s := testScene(t)
	p := newTestPipeline(t, device, props)
	p.SetScene(s)
	data := renderInputs(t, device, s, 24, 18)

	var sum, maxW float64
	for range frames {
		execute(t, p, data)
		for y := range 18 {
			for x := range 24 {
				c := data.Color.At(x, y)
				sum += core.NewVec3(float64(c.R), float64(c.G), float64(c.B)).Luminance()
			}
		}
		for _, r := range p.Reservoirs()[:24*18] {
			maxW = max(maxW, r.W)
		}
	}
	return sum / float64(frames*24*18), maxW
}

func TestPipeline_SpatiotemporalConverges(t *testing.T) {
	const frames = 64
	reference, _ := averageRadiance(t, Properties{KeyMode: "NoResampling", KeyCandidateCount: 4}, frames)
	if reference <= 0 {
		t.Fatalf("Expected a lit reference, got %v", reference)
	}

	tests := []struct {
		bias      string
		tolerance float64
	}{
		{"Biased", 0.5},
		{"UnbiasedNaive", 0.15},
		{"UnbiasedMIS", 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.bias, func(t *testing.T) {
			mean, maxW := averageRadiance(t, Properties{
				KeyMode:           "SpatiotemporalResampling",
				KeyBiasMode:       tt.bias,
				KeyCandidateCount: 4,
			}, frames)
			if !core.IsFinite(maxW) || maxW > 1e4 {
				t.Errorf("Expected bounded contribution weights, got max W %v", maxW)
			}
			if ratio := mean / reference; math.Abs(ratio-1) > tt.tolerance {
				t.Errorf("Expected mean radiance within %v of %v, got %v (ratio %v)", tt.tolerance, reference, mean, ratio)
			}
		})
	}
}

func TestPipeline_WarningsUseInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	device := newTestDevice(t, 1)
	p, err := New(Options{
		Device:     device,
		Logger:     logger,
		Properties: Properties{KeyCandidateCount: 1000, "shadowBias": 0.1},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(p.Close)

	out := buf.String()
	for _, want := range []string{"param=candidateCount", "key=shadowBias", "session=" + p.Session().String()} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in the injected log, got %q", want, out)
		}
	}

	buf.Reset()
	p.SetParams(StaticParams{})
	if !strings.Contains(buf.String(), "param=spatialRadius") {
		t.Errorf("Expected staged params to warn through the injected logger, got %q", buf.String())
	}
}

func TestPipeline_TemporalHistoryIsCapped(t *testing.T) {
	device := newTestDevice(t, 2)
	s := testScene(t)
	p := newTestPipeline(t, device, Properties{
		KeyMode:                 "TemporalResampling",
		KeyCandidateCount:       2,
		KeyTemporalHistoryLimit: 3,
	})
	p.SetScene(s)
	data := renderInputs(t, device, s, 16, 12)

	for range 8 {
		execute(t, p, data)
	}

	// Capped history plus this frame's light and BRDF candidates
	limit := 3*2 + 2 + DefaultStaticParams().brdfCandidates()
	stats := p.Stats()
	if stats.MaxM > limit {
		t.Errorf("Expected M at most %d, got %d", limit, stats.MaxM)
	}
	if stats.MaxM <= 2 {
		t.Errorf("Expected temporal reuse to grow M beyond 2, got %d", stats.MaxM)
	}
}

func TestPipeline_ResolutionMismatch(t *testing.T) {
	device := newTestDevice(t, 2)
	s := testScene(t)
	p := newTestPipeline(t, device, nil)
	p.SetScene(s)

	data := &frame.RenderData{
		VBuffer: frame.NewTexture[frame.Visibility](1280, 720),
		Color:   frame.NewTexture[frame.RGBA](1920, 1080),
	}
	data.Color.Fill(frame.RGBA{R: 1, G: 1, B: 1, A: 1})
	device.ResetCounts()

	if err := p.Execute(context.Background(), data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Enabled() {
		t.Error("Expected pipeline to be disabled")
	}
	for y := range 1080 {
		for x := range 1920 {
			if c := data.Color.At(x, y); c != (frame.RGBA{}) {
				t.Fatalf("Pixel (%d,%d): expected zero color, got %v", x, y, c)
			}
		}
	}
	if n := device.Stats().Dispatches; n != 0 {
		t.Errorf("Expected no dispatches, got %d", n)
	}
	if p.FrameCount() != 0 {
		t.Errorf("Expected frame count 0, got %d", p.FrameCount())
	}

	fixed := renderInputs(t, device, s, 32, 24)
	execute(t, p, fixed)
	if !p.Enabled() {
		t.Error("Expected pipeline to re-enable once sizes match")
	}
	if p.Stats().LitPixels == 0 {
		t.Error("Expected lit pixels after re-enabling")
	}
}

func TestPipeline_BufferGrowth(t *testing.T) {
	device := newTestDevice(t, 0)
	p := newTestPipeline(t, device, Properties{KeyMode: "NoResampling"})
	p.SetScene(testScene(t))

	// All-miss visibility buffers keep the frames cheap; growth is what matters here
	execute(t, p, frame.NewRenderData(640, 480))
	small := p.BufferCapacities()
	if small.CurrentSurfaces < 640*480 {
		t.Errorf("Expected capacity at least %d, got %d", 640*480, small.CurrentSurfaces)
	}

	data := frame.NewRenderData(1920, 1080)
	data.Color.Fill(frame.RGBA{R: 5})
	execute(t, p, data)

	want := 1920 * 1080
	caps := p.BufferCapacities()
	for name, got := range map[string]int{
		"current surfaces":   caps.CurrentSurfaces,
		"prev surfaces":      caps.PrevSurfaces,
		"current reservoirs": caps.CurrentReservoirs,
		"prev reservoirs":    caps.PrevReservoirs,
	} {
		if got < want {
			t.Errorf("Expected %s capacity at least %d, got %d", name, want, got)
		}
	}
	if c := data.Color.At(1919, 1079); c != (frame.RGBA{A: 1}) {
		t.Errorf("Expected last pixel to be resolved, got %v", c)
	}

	// Shrinking keeps the allocation
	execute(t, p, frame.NewRenderData(320, 240))
	if got := p.BufferCapacities().CurrentReservoirs; got < want {
		t.Errorf("Expected capacity to stay at least %d, got %d", want, got)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	render := func(workers int) (*frame.RenderData, []reservoir.Reservoir) {
		device := newTestDevice(t, workers)
		s := testScene(t)
		p := newTestPipeline(t, device, Properties{
			KeyBiasMode:       "UnbiasedMIS",
			KeyCandidateCount: 4,
		})
		p.SetScene(s)
		data := renderInputs(t, device, s, 24, 18)
		for range 3 {
			execute(t, p, data)
		}
		return data, p.Reservoirs()
	}

	dataA, resA := render(1)
	dataB, resB := render(4)

	for y := range 18 {
		for x := range 24 {
			a, b := dataA.Color.At(x, y), dataB.Color.At(x, y)
			if math.Float32bits(a.R) != math.Float32bits(b.R) ||
				math.Float32bits(a.G) != math.Float32bits(b.G) ||
				math.Float32bits(a.B) != math.Float32bits(b.B) {
				t.Fatalf("Pixel (%d,%d): expected identical colors, got %v and %v", x, y, a, b)
			}
		}
	}
	for i := range resA {
		if resA[i] != resB[i] {
			t.Fatalf("Reservoir %d: expected %v, got %v", i, resA[i], resB[i])
		}
	}
}

func TestPipeline_StagedPropertiesApplyAtFrameBoundary(t *testing.T) {
	device := newTestDevice(t, 2)
	s := testScene(t)
	p := newTestPipeline(t, device, nil)
	p.SetScene(s)
	data := renderInputs(t, device, s, 16, 12)
	execute(t, p, data)
	data.Refresh = 0

	err := p.SetProperties(Properties{"notAProperty": 1, KeyCandidateCount: 8})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := p.Properties()[KeyCandidateCount]; got != 8 {
		t.Errorf("Expected staged candidate count 8, got %v", got)
	}
	if got := p.Params().CandidateCount; got != 16 {
		t.Errorf("Expected active candidate count 16 before the next frame, got %d", got)
	}

	execute(t, p, data)
	if got := p.Params().CandidateCount; got != 8 {
		t.Errorf("Expected candidate count 8, got %d", got)
	}
	if !data.Refresh.Has(frame.RenderOptionsChanged) {
		t.Error("Expected RenderOptionsChanged to be set")
	}
	if got := p.programs[PassLoadSurface].Config.CandidateCount; got != 8 {
		t.Errorf("Expected respecialized candidate count 8, got %d", got)
	}

	// Re-staging identical values is not a change
	data.Refresh = 0
	if err := p.SetProperties(Properties{KeyCandidateCount: 8}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	execute(t, p, data)
	if data.Refresh.Has(frame.RenderOptionsChanged) {
		t.Error("Expected no RenderOptionsChanged for identical values")
	}
}

func TestPipeline_LightingChangeSetsRefresh(t *testing.T) {
	device := newTestDevice(t, 2)
	s := testScene(t)
	p := newTestPipeline(t, device, nil)
	p.SetScene(s)
	data := renderInputs(t, device, s, 16, 12)
	execute(t, p, data)
	data.Refresh = 0

	settings := s.Settings()
	settings.UseAnalyticLights = false
	s.SetRenderSettings(settings)
	execute(t, p, data)

	if !data.Refresh.Has(frame.LightingChanged) {
		t.Error("Expected LightingChanged to be set")
	}
	if got := p.programs[PassLoadSurface].Config.UseAnalyticLights; got {
		t.Error("Expected analytic lights to be disabled in the specialized config")
	}
}

func TestPipeline_SetSceneResetsFrameCount(t *testing.T) {
	device := newTestDevice(t, 2)
	s := testScene(t)
	p := newTestPipeline(t, device, nil)
	p.SetScene(s)
	data := renderInputs(t, device, s, 16, 12)
	execute(t, p, data)
	execute(t, p, data)
	if p.FrameCount() != 2 {
		t.Fatalf("Expected frame count 2, got %d", p.FrameCount())
	}

	p.SetScene(testScene(t))
	if p.FrameCount() != 0 {
		t.Errorf("Expected frame count 0 after SetScene, got %d", p.FrameCount())
	}
}

type failingCompiler struct {
	inner *DefineCompiler
	fail  Pass
}

func (c *failingCompiler) Compile(ctx context.Context, pass Pass, defines compute.DefineList) (*Program, error) {
	if pass == c.fail {
		return nil, errors.New("unresolved macro")
	}
	return c.inner.Compile(ctx, pass, defines)
}

func TestPipeline_KernelSpecializationFailure(t *testing.T) {
	t.Run("spatial pass", func(t *testing.T) {
		device := newTestDevice(t, 2)
		s := testScene(t)
		p, err := New(Options{Device: device, Compiler: &failingCompiler{inner: NewDefineCompiler(), fail: PassSpatial}})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		p.SetScene(s)
		data := renderInputs(t, device, s, 16, 12)
		device.ResetCounts()

		err = p.Execute(context.Background(), data)
		if !errors.Is(err, ErrKernelSpecialization) {
			t.Fatalf("Expected ErrKernelSpecialization, got %v", err)
		}
		if !strings.Contains(err.Error(), "spatialReuse") {
			t.Errorf("Expected error to name the pass, got %q", err.Error())
		}

		counts := device.DispatchCounts()
		if counts["spatialReuse"] != 0 {
			t.Errorf("Expected no spatialReuse dispatch, got %d", counts["spatialReuse"])
		}
		if counts["temporalReuse"] != 1 || counts["directLighting"] != 1 {
			t.Errorf("Expected the other passes to run, got %v", counts)
		}
		if p.Stats().LitPixels == 0 {
			t.Error("Expected lit pixels without spatial reuse")
		}
	})

	t.Run("surface pass", func(t *testing.T) {
		device := newTestDevice(t, 2)
		s := testScene(t)
		p, err := New(Options{Device: device, Compiler: &failingCompiler{inner: NewDefineCompiler(), fail: PassLoadSurface}})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		p.SetScene(s)
		data := renderInputs(t, device, s, 16, 12)
		data.Color.Fill(frame.RGBA{R: 1, G: 1, B: 1, A: 1})

		err = p.Execute(context.Background(), data)
		if !errors.Is(err, ErrKernelSpecialization) {
			t.Fatalf("Expected ErrKernelSpecialization, got %v", err)
		}
		for y := range 12 {
			for x := range 16 {
				if c := data.Color.At(x, y); c != (frame.RGBA{}) {
					t.Fatalf("Pixel (%d,%d): expected cleared output, got %v", x, y, c)
				}
			}
		}
	})
}

// samplerOverride specializes every pass for a different light sampler than
// the pipeline binds
type samplerOverride struct {
	inner   *DefineCompiler
	sampler string
}

func (c *samplerOverride) Compile(ctx context.Context, pass Pass, defines compute.DefineList) (*Program, error) {
	return c.inner.Compile(ctx, pass, defines.Clone().Add("EMISSIVE_SAMPLER", c.sampler))
}

func TestPipeline_SamplerMismatch(t *testing.T) {
	device := newTestDevice(t, 2)
	s := testScene(t)
	p, err := New(Options{Device: device, Compiler: &samplerOverride{inner: NewDefineCompiler(), sampler: "POWER"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(p.Close)
	p.SetScene(s)
	data := renderInputs(t, device, s, 16, 12)

	err = p.Execute(context.Background(), data)
	if !errors.Is(err, ErrKernelSpecialization) {
		t.Fatalf("Expected ErrKernelSpecialization, got %v", err)
	}
	if !strings.Contains(err.Error(), "power") {
		t.Errorf("Expected error to name the specialized sampler, got %q", err.Error())
	}
}

func TestPipeline_DebugOutput(t *testing.T) {
	device := newTestDevice(t, 2)
	s := testScene(t)
	p := newTestPipeline(t, device, Properties{KeyDebugView: "normal"})
	p.SetScene(s)
	data := renderInputs(t, device, s, 16, 12)

	execute(t, p, data)
	if !p.programs[PassDirectLighting].Config.UseDebugOutput {
		t.Fatal("Expected debug output to be enabled")
	}
	// Ground plane normal (0,1,0) maps to (0.5,1,0.5)
	c := data.Debug.At(8, 11)
	if math.Abs(float64(c.G)-1) > 1e-3 || math.Abs(float64(c.R)-0.5) > 1e-3 {
		t.Errorf("Expected ground normal color, got %v", c)
	}

	data.Debug = nil
	execute(t, p, data)
	if p.programs[PassDirectLighting].Config.UseDebugOutput {
		t.Error("Expected debug output to be disabled without a debug texture")
	}
}

func TestPipeline_Close(t *testing.T) {
	device := newTestDevice(t, 1)
	s := testScene(t)
	p := newTestPipeline(t, device, nil)
	p.SetScene(s)
	execute(t, p, renderInputs(t, device, s, 8, 8))

	p.Close()
	if got := p.BufferCapacities(); got != (BufferCapacities{}) {
		t.Errorf("Expected released buffers, got %+v", got)
	}
}
