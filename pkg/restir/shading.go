package restir

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/lights"
	"github.com/df07/go-restir-di/pkg/material"
	"github.com/df07/go-restir-di/pkg/reservoir"
	"github.com/df07/go-restir-di/pkg/scene"
)

// shadowEpsilon keeps shadow rays from hitting the light they aim at
const shadowEpsilon = 1e-4

// frameContext is the read-only state every kernel of one frame shares
type frameContext struct {
	scene   *scene.Scene
	lights  []lights.Light
	sampler lights.LightSampler
	camera  *geometry.Camera
	config  KernelConfig
	width   int
	height  int
	frame   uint32
}

func (fc *frameContext) index(x, y int) int {
	return y*fc.width + x
}

// rng seeds the random stream of one pixel in one pass
func (fc *frameContext) rng(pass Pass, iteration, x, y int) core.PixelSampler {
	var s core.PixelSampler
	s.Reset(core.StreamID{
		Frame:     fc.frame,
		Pass:      uint32(pass),
		Iteration: uint32(iteration),
		Pixel:     uint32(fc.index(x, y)),
	})
	return s
}

// loadSurface rebuilds the shading point of a pixel from the visibility
// buffer. Misses and corrupt records give an invalid surface.
func (fc *frameContext) loadSurface(x, y int, data *frame.RenderData) SurfaceData {
	shapeID, _, ok := data.VBuffer.At(x, y).Unpack()
	shapes := fc.scene.BVH.Shapes()
	if !ok || shapeID >= len(shapes) {
		return SurfaceData{}
	}

	var ray core.Ray
	if data.ViewDir != nil {
		view := data.ViewDir.At(x, y)
		if view.IsZero() {
			return SurfaceData{}
		}
		ray = core.NewRay(fc.camera.Origin(), view.Negate().Normalize())
	} else {
		s := (float64(x) + 0.5) / float64(fc.width)
		t := (float64(y) + 0.5) / float64(fc.height)
		ray = fc.camera.GetRay(s, t)
	}

	var hit material.HitRecord
	if !shapes[shapeID].Hit(ray, 1e-4, math.Inf(1), &hit) || hit.Material == nil {
		return SurfaceData{}
	}
	return SurfaceData{
		Position: hit.Point,
		Normal:   hit.Normal,
		ViewDir:  ray.Direction.Negate(),
		Lobe:     hit.Material.Lobe(hit.UV, hit.Point),
		Depth:    hit.T,
		Valid:    true,
	}
}

// shade connects a surface with a light sample and returns the reflected
// radiance before the contribution weight and visibility are applied
func (fc *frameContext) shade(s SurfaceData, sample reservoir.Sample) (lights.LightSample, core.Vec3) {
	if !s.Valid || !fc.lightEnabled(int(sample.Light)) {
		return lights.LightSample{}, core.Vec3{}
	}
	ls := fc.lights[sample.Light].Evaluate(s.Position, sample.UV)
	if ls.IsZero() {
		return ls, core.Vec3{}
	}
	cos := s.Normal.Dot(ls.Direction)
	if cos <= 0 {
		return ls, core.Vec3{}
	}
	f := s.Lobe.Evaluate(s.ViewDir, ls.Direction, s.Normal)
	return ls, f.MultiplyVec(ls.Emission).Multiply(cos * ls.Geometry)
}

// lightEnabled reports whether the kernel was specialized for a light:
// indices past LIGHT_COUNT and compiled-out categories never contribute
func (fc *frameContext) lightEnabled(index int) bool {
	if index < 0 || index >= min(fc.config.LightCount, len(fc.lights)) {
		return false
	}
	switch fc.lights[index].Type() {
	case lights.LightTypeInfinite:
		return fc.config.UseEnvLight
	case lights.LightTypePoint:
		return fc.config.UseAnalyticLights
	default:
		return fc.config.UseEmissiveLights
	}
}

// targetPDF is p̂: the luminance of the unshadowed contribution
func (fc *frameContext) targetPDF(s SurfaceData, sample reservoir.Sample) float64 {
	_, c := fc.shade(s, sample)
	if l := c.Luminance(); l > 0 && core.IsFinite(l) {
		return l
	}
	return 0
}

// visible traces a shadow ray toward a light sample
func (fc *frameContext) visible(s SurfaceData, ls lights.LightSample) bool {
	origin := core.OffsetRayOrigin(s.Position, s.Normal, ls.Direction)
	ray := core.NewRay(origin, ls.Direction)
	return !fc.scene.BVH.Occluded(ray, shadowEpsilon, ls.Distance*(1-shadowEpsilon))
}

// visibleFrom reports whether sample lights s
func (fc *frameContext) visibleFrom(s SurfaceData, sample reservoir.Sample) bool {
	ls, c := fc.shade(s, sample)
	return !c.IsZero() && fc.visible(s, ls)
}

// DomainCorrection is the factor that moves a resampling weight computed at
// one surface to another: p̂ at the destination over p̂ at the source
func DomainCorrection(pHere, pThere float64) float64 {
	if !(pThere > 0) {
		return 0
	}
	return pHere / pThere
}

// sampleBRDF draws a direction from the lobe, or uniformly over the
// hemisphere when importance sampling is disabled
func (fc *frameContext) sampleBRDF(s SurfaceData, u core.Vec2, uLobe float64) (core.Vec3, float64, bool) {
	if fc.config.UseImportanceSampling {
		return s.Lobe.Sample(s.ViewDir, s.Normal, u, uLobe)
	}
	return core.SampleUniformHemisphere(s.Normal, u), core.UniformHemispherePDF(), true
}

// brdfDirectionPDF is the solid-angle density sampleBRDF gives wi
func (fc *frameContext) brdfDirectionPDF(s SurfaceData, wi core.Vec3) float64 {
	if fc.config.UseImportanceSampling {
		return s.Lobe.PDF(s.ViewDir, wi, s.Normal)
	}
	if wi.Dot(s.Normal) <= 0 {
		return 0
	}
	return core.UniformHemispherePDF()
}

// brdfPDF is the density of reaching sample by BRDF sampling, in the light's
// own measure. Delta lights cannot be hit.
func (fc *frameContext) brdfPDF(s SurfaceData, sample reservoir.Sample) float64 {
	light := fc.lights[sample.Light]
	if light.Type() == lights.LightTypePoint {
		return 0
	}
	ls := light.Evaluate(s.Position, sample.UV)
	if ls.IsZero() {
		return 0
	}
	return fc.brdfDirectionPDF(s, ls.Direction) * ls.Geometry
}

// lightPDF is the density of reaching sample through the light sampler
func (fc *frameContext) lightPDF(s SurfaceData, sample reservoir.Sample) float64 {
	sel := fc.sampler.Probability(int(sample.Light), s.Position, s.Normal)
	if sel <= 0 {
		return 0
	}
	return sel * fc.lights[sample.Light].PDF(sample.UV)
}

// traceLight follows a BRDF-sampled direction and returns the light sample
// it lands on: an emissive shape, or the environment when the ray escapes
func (fc *frameContext) traceLight(s SurfaceData, wi core.Vec3) (reservoir.Sample, bool) {
	ray := core.NewRay(core.OffsetRayOrigin(s.Position, s.Normal, wi), wi)

	var hit material.HitRecord
	index, tMax := -1, math.Inf(1)
	if fc.scene.BVH.Hit(ray, shadowEpsilon, math.Inf(1), &hit) {
		lightIndex, ok := fc.scene.LightForShape(hit.ShapeID)
		if !ok || !fc.config.UseEmissiveLights {
			return reservoir.Sample{}, false
		}
		index, tMax = lightIndex, hit.T*(1+shadowEpsilon)
	} else {
		if !fc.config.UseEnvLight {
			return reservoir.Sample{}, false
		}
		index = fc.scene.EnvironmentIndex()
	}
	if !fc.lightEnabled(index) {
		return reservoir.Sample{}, false
	}

	uv, _, ok := fc.lights[index].Intersect(ray, tMax)
	if !ok {
		return reservoir.Sample{}, false
	}
	return reservoir.Sample{Light: int32(index), UV: uv}, true
}
