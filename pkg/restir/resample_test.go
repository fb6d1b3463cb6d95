package restir

import (
	"math"
	"testing"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/lights"
	"github.com/df07/go-restir-di/pkg/reservoir"
)

const (
	testWidth  = 16
	testHeight = 12
)

// testFrameContext binds the test scene the way the pipeline does, with the
// kernel configuration of the default params
func testFrameContext(t *testing.T) (*frameContext, *frame.RenderData) {
	t.Helper()
	s := testScene(t)
	device := newTestDevice(t, 2)
	data := renderInputs(t, device, s, testWidth, testHeight)

	active := s.ActiveLights()
	defines := DefaultStaticParams().Defines().AddAll(s.Defines())
	sampler := lights.NewUniformSampler(active)
	defines.AddAll(sampler.Defines())
	config, err := parseKernelConfig(defines)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return &frameContext{
		scene:   s,
		lights:  active,
		sampler: sampler,
		camera:  geometry.NewCameraForSize(s.CameraConfig, testWidth, testHeight),
		config:  config,
		width:   testWidth,
		height:  testHeight,
	}, data
}

// groundX, groundY is a pixel on the floor in front of the sphere
const groundX, groundY = testWidth / 2, testHeight - 1

func TestDomainCorrection(t *testing.T) {
	tests := []struct {
		name   string
		pHere  float64
		pThere float64
		want   float64
	}{
		{"ratio", 2, 4, 0.5},
		{"zero source", 1, 0, 0},
		{"negative source", 1, -2, 0},
		{"nan source", 1, math.NaN(), 0},
		{"zero destination", 0, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DomainCorrection(tt.pHere, tt.pThere); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDomainCorrection_IdenticalSurfaces(t *testing.T) {
	fc, data := testFrameContext(t)
	a := fc.loadSurface(groundX, groundY, data)
	b := fc.loadSurface(groundX, groundY, data)
	if !a.Valid {
		t.Fatal("Expected a valid ground surface")
	}

	var rng core.PixelSampler
	rng.Reset(core.StreamID{Pixel: 1})
	checked := 0
	for i := range 64 {
		light := i % len(fc.lights)
		uv, _ := fc.lights[light].Sample(rng.Get2D())
		y := reservoir.Sample{Light: int32(light), UV: uv}
		pHat := fc.targetPDF(a, y)
		if pHat <= 0 {
			continue
		}
		checked++
		if got := DomainCorrection(fc.targetPDF(b, y), pHat); got != 1.0 {
			t.Fatalf("Sample %v: expected correction exactly 1, got %v", y, got)
		}
	}
	if checked == 0 {
		t.Fatal("Expected some samples with positive target density")
	}
}

func TestSurfaceData_Similar(t *testing.T) {
	up := core.NewVec3(0, 1, 0)
	base := SurfaceData{Normal: up, Depth: 10, Valid: true}

	tests := []struct {
		name  string
		other SurfaceData
		want  bool
	}{
		{"identical", base, true},
		{"depth within threshold", SurfaceData{Normal: up, Depth: 10.9, Valid: true}, true},
		{"depth beyond threshold", SurfaceData{Normal: up, Depth: 11.5, Valid: true}, false},
		{"bent normal", SurfaceData{Normal: core.NewVec3(1, 0, 0), Depth: 10, Valid: true}, false},
		{"invalid", SurfaceData{Normal: up, Depth: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.similar(tt.other, 0.9, 0.1); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// neighborsOf builds candidates that share the center surface but were
// generated from other random streams
func neighborsOf(fc *frameContext, s SurfaceData, n int) []candidate {
	candidates := make([]candidate, n)
	for i := range candidates {
		other := *fc
		other.frame = uint32(i + 1)
		candidates[i] = candidate{surface: s, reservoir: other.initialReservoir(groundX, groundY, s)}
	}
	return candidates
}

func TestResample_BiasedSumsM(t *testing.T) {
	fc, data := testFrameContext(t)
	s := fc.loadSurface(groundX, groundY, data)
	own := fc.initialReservoir(groundX, groundY, s)
	candidates := neighborsOf(fc, s, 3)

	rng := fc.rng(PassSpatial, 0, groundX, groundY)
	out := fc.resampleBiased(s, own, candidates, &rng)

	want := own.M
	for _, c := range candidates {
		want += c.reservoir.M
	}
	if out.M != want {
		t.Errorf("Expected M %d, got %d", want, out.M)
	}
	if out.HasSample() && math.Abs(out.TargetPDF-fc.targetPDF(s, out.Sample)) > 1e-12 {
		t.Errorf("Expected target retargeted to the center, got %v", out.TargetPDF)
	}
}

func TestResample_MISMatchesNaiveOnIdenticalSurfaces(t *testing.T) {
	fc, data := testFrameContext(t)
	s := fc.loadSurface(groundX, groundY, data)

	compared := 0
	for n := range uint32(8) {
		fc.frame = n
		own := fc.initialReservoir(groundX, groundY, s)
		candidates := neighborsOf(fc, s, 4)

		naive, mis := *fc, *fc
		naive.config.BiasMode = UnbiasedNaive
		mis.config.BiasMode = UnbiasedMIS
		rngA := fc.rng(PassSpatial, 0, groundX, groundY)
		rngB := fc.rng(PassSpatial, 0, groundX, groundY)
		a := naive.resample(s, own, candidates, &rngA)
		b := mis.resample(s, own, candidates, &rngB)

		if a.Sample != b.Sample || a.M != b.M {
			t.Fatalf("Frame %d: expected the same survivor, got %v and %v", n, a, b)
		}
		if !a.HasSample() {
			continue
		}
		compared++
		if math.Abs(a.W-b.W) > 1e-9*a.W {
			t.Errorf("Frame %d: expected W %v, got %v", n, a.W, b.W)
		}
		// Stored reservoirs keep W = WSum / (M p̂)
		if w := b.WSum / (float64(b.M) * b.TargetPDF); math.Abs(w-b.W) > 1e-9*b.W {
			t.Errorf("Frame %d: expected normalized WSum, got W %v and WSum/(M p̂) %v", n, b.W, w)
		}
	}
	if compared == 0 {
		t.Fatal("Expected at least one lit reservoir")
	}
}

func TestResample_NaiveDropsOccludedDomains(t *testing.T) {
	fc, data := testFrameContext(t)
	fc.config.BiasMode = UnbiasedNaive
	s := fc.loadSurface(groundX, groundY, data)
	// Below the ground plane every light is blocked but p̂ stays positive
	buried := s
	buried.Position = s.Position.Add(core.NewVec3(0, -1, 0))

	checked := 0
	for n := range uint32(8) {
		fc.frame = n
		own := fc.initialReservoir(groundX, groundY, s)
		candidates := neighborsOf(fc, s, 4)
		candidates[0].surface = buried
		candidates[1].surface = buried

		streamed := own.WSum
		for _, c := range candidates {
			if c.reservoir.HasSample() {
				streamed += c.reservoir.WSum * DomainCorrection(fc.targetPDF(s, c.reservoir.Sample), c.reservoir.TargetPDF)
			}
		}
		seen := own.M + candidates[2].reservoir.M + candidates[3].reservoir.M

		rng := fc.rng(PassSpatial, 0, groundX, groundY)
		out := fc.resample(s, own, candidates, &rng)
		if !out.HasSample() {
			continue
		}
		checked++
		if out.M != seen {
			t.Errorf("Frame %d: expected M %d, got %d", n, seen, out.M)
		}
		if math.Abs(out.WSum-streamed) > 1e-9*streamed {
			t.Errorf("Frame %d: expected WSum %v, got %v", n, streamed, out.WSum)
		}
		if w := out.WSum / (float64(out.M) * out.TargetPDF); math.Abs(w-out.W) > 1e-9*out.W {
			t.Errorf("Frame %d: expected W %v, got %v", n, w, out.W)
		}
	}
	if checked == 0 {
		t.Fatal("Expected at least one lit reservoir")
	}
}

func TestResample_EmptyCandidatesKeepOwn(t *testing.T) {
	fc, data := testFrameContext(t)
	s := fc.loadSurface(groundX, groundY, data)
	own := fc.initialReservoir(groundX, groundY, s)
	if !own.HasSample() {
		t.Skip("ground pixel drew no visible sample")
	}

	for _, mode := range []BiasMode{Biased, UnbiasedNaive, UnbiasedMIS} {
		local := *fc
		local.config.BiasMode = mode
		rng := local.rng(PassSpatial, 0, groundX, groundY)
		out := local.resample(s, own, nil, &rng)
		if out.Sample != own.Sample || out.M != own.M {
			t.Errorf("%v: expected own reservoir, got %v", mode, out)
		}
		if math.Abs(out.W-own.W) > 1e-9*max(1, own.W) {
			t.Errorf("%v: expected W %v, got %v", mode, own.W, out.W)
		}
	}
}

func TestReproject(t *testing.T) {
	fc := &frameContext{width: testWidth, height: testHeight}
	motion := frame.NewTexture[frame.MotionVector](testWidth, testHeight)

	if x, y, ok := fc.reproject(3, 4, motion); !ok || x != 3 || y != 4 {
		t.Errorf("Expected (3,4), got (%d,%d) ok=%v", x, y, ok)
	}

	motion.Set(3, 4, frame.MotionVector{X: 0.25})
	if x, y, ok := fc.reproject(3, 4, motion); !ok || x != 7 || y != 4 {
		t.Errorf("Expected (7,4), got (%d,%d) ok=%v", x, y, ok)
	}

	motion.Set(3, 4, frame.MotionVector{X: -0.5})
	if _, _, ok := fc.reproject(3, 4, motion); ok {
		t.Error("Expected reprojection off screen to fail")
	}

	if x, y, ok := fc.reproject(5, 6, nil); !ok || x != 5 || y != 6 {
		t.Errorf("Expected (5,6) without motion vectors, got (%d,%d) ok=%v", x, y, ok)
	}
}

func TestFiniteColor(t *testing.T) {
	tests := []struct {
		name string
		in   core.Vec3
		want frame.RGBA
	}{
		{"finite", core.NewVec3(0.5, 1, 2), frame.RGBA{R: 0.5, G: 1, B: 2, A: 1}},
		{"nan", core.NewVec3(math.NaN(), 1, 1), frame.RGBA{A: 1}},
		{"inf", core.NewVec3(1, math.Inf(1), 1), frame.RGBA{A: 1}},
		{"negative clamped", core.NewVec3(-1, 0.5, 0), frame.RGBA{G: 0.5, A: 1}},
		{"float32 overflow", core.NewVec3(1e300, 0, 0), frame.RGBA{A: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := finiteColor(tt.in); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDirectLighting_RejectsBadWeights(t *testing.T) {
	fc, data := testFrameContext(t)
	s := fc.loadSurface(groundX, groundY, data)
	r := fc.initialReservoir(groundX, groundY, s)
	if !r.HasSample() {
		t.Skip("ground pixel drew no visible sample")
	}

	if c := fc.directLighting(s, r); c.R <= 0 && c.G <= 0 && c.B <= 0 {
		t.Errorf("Expected a lit pixel, got %v", c)
	}

	r.W = math.Inf(1)
	if c := fc.directLighting(s, r); c != (frame.RGBA{A: 1}) {
		t.Errorf("Expected black for an infinite weight, got %v", c)
	}
	r.W = math.NaN()
	if c := fc.directLighting(s, r); c != (frame.RGBA{A: 1}) {
		t.Errorf("Expected black for a NaN weight, got %v", c)
	}
	if c := fc.directLighting(SurfaceData{}, r); c != (frame.RGBA{A: 1}) {
		t.Errorf("Expected black for a miss, got %v", c)
	}
}

func TestHashColor(t *testing.T) {
	if hashColor(3) != hashColor(3) {
		t.Error("Expected a stable color")
	}
	if hashColor(3) == hashColor(4) {
		t.Error("Expected distinct colors for distinct lights")
	}
}

func TestLightGates(t *testing.T) {
	fc, data := testFrameContext(t)
	s := fc.loadSurface(groundX, groundY, data)
	env := fc.scene.EnvironmentIndex()
	if env < 0 {
		t.Fatal("Expected an environment light")
	}

	var rng core.PixelSampler
	rng.Reset(core.StreamID{Pixel: 7})
	var sample reservoir.Sample
	for range 64 {
		uv, _ := fc.lights[env].Sample(rng.Get2D())
		sample = reservoir.Sample{Light: int32(env), UV: uv}
		if fc.targetPDF(s, sample) > 0 {
			break
		}
	}
	if fc.targetPDF(s, sample) <= 0 {
		t.Fatal("Expected a sky sample above the ground")
	}

	// Away from the quad light, an upward ray escapes to the sky
	up := core.NewVec3(0, 1, 0.3).Normalize()
	if _, ok := fc.traceLight(s, up); !ok {
		t.Fatal("Expected the upward ray to reach the sky")
	}

	noEnv := *fc
	noEnv.config.UseEnvLight = false
	if p := noEnv.targetPDF(s, sample); p != 0 {
		t.Errorf("Expected no sky contribution without USE_ENV_LIGHT, got %v", p)
	}
	if _, ok := noEnv.traceLight(s, up); ok {
		t.Error("Expected the sky to be unreachable without USE_ENV_LIGHT")
	}

	truncated := *fc
	truncated.config.LightCount = env
	if p := truncated.targetPDF(s, sample); p != 0 {
		t.Errorf("Expected lights past LIGHT_COUNT to be ignored, got %v", p)
	}
}
