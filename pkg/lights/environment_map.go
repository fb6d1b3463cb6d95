package lights

import (
	"fmt"
	"math"

	"github.com/df07/go-restir-di/pkg/core"
)

// EnvironmentMap is a lat-long image light importance sampled by luminance
type EnvironmentMap struct {
	infiniteBase
	width, height int
	texels        []core.Vec3
	scale         float64
	distribution  *Distribution2D
	average       float64
}

// NewEnvironmentMap creates an environment light from row-major lat-long
// texels (row 0 is straight up). scale multiplies every texel.
func NewEnvironmentMap(width, height int, texels []core.Vec3, scale float64) (*EnvironmentMap, error) {
	if width <= 0 || height <= 0 || len(texels) != width*height {
		return nil, fmt.Errorf("environment map: %d texels do not match %dx%d", len(texels), width, height)
	}

	em := &EnvironmentMap{
		width:  width,
		height: height,
		texels: texels,
		scale:  scale,
	}

	// Weight by sin θ so rows near the poles, which cover less solid angle, are sampled less
	weights := make([]float64, width*height)
	sum := 0.0
	for y := 0; y < height; y++ {
		sinTheta := math.Sin(math.Pi * (float64(y) + 0.5) / float64(height))
		for x := 0; x < width; x++ {
			lum := texels[y*width+x].Luminance() * scale
			weights[y*width+x] = max(0, lum) * sinTheta
			sum += max(0, lum) * sinTheta
		}
	}
	em.distribution = NewDistribution2D(weights, width, height)
	em.average = sum / float64(width*height)
	return em, nil
}

// NewSkyEnvironmentMap renders a simple procedural sky with a sun into an
// environment map
func NewSkyEnvironmentMap(width, height int, zenith, horizon, ground, sunDirection, sunColor core.Vec3, sunAngleDegrees float64) (*EnvironmentMap, error) {
	texels := make([]core.Vec3, width*height)
	sun := sunDirection.Normalize()
	cosSun := math.Cos(sunAngleDegrees * math.Pi / 180)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dir := UVToDirection(core.NewVec2((float64(x)+0.5)/float64(width), (float64(y)+0.5)/float64(height)))
			var c core.Vec3
			if dir.Y >= 0 {
				c = horizon.Lerp(zenith, math.Sqrt(dir.Y))
			} else {
				c = horizon.Lerp(ground, math.Min(1, -dir.Y*4))
			}
			if dir.Dot(sun) >= cosSun {
				c = c.Add(sunColor)
			}
			texels[y*width+x] = c
		}
	}
	return NewEnvironmentMap(width, height, texels, 1)
}

func (em *EnvironmentMap) Type() LightType {
	return LightTypeInfinite
}

// lookup returns the scaled texel under uv
func (em *EnvironmentMap) lookup(uv core.Vec2) core.Vec3 {
	x := max(0, min(em.width-1, int(uv.X*float64(em.width))))
	y := max(0, min(em.height-1, int(uv.Y*float64(em.height))))
	return em.texels[y*em.width+x].Multiply(em.scale)
}

// Sample draws lat-long coordinates from the luminance distribution and
// converts the density to solid angle: dω = 2π² sin θ du dv
func (em *EnvironmentMap) Sample(u core.Vec2) (core.Vec2, float64) {
	p, pdf := em.distribution.Sample(u.X, u.Y)
	uv := core.NewVec2(p[0], p[1])
	return uv, em.toSolidAngle(uv, pdf)
}

func (em *EnvironmentMap) PDF(uv core.Vec2) float64 {
	return em.toSolidAngle(uv, em.distribution.PDF(uv.X, uv.Y))
}

func (em *EnvironmentMap) toSolidAngle(uv core.Vec2, pdf float64) float64 {
	sinTheta := math.Sin(uv.Y * math.Pi)
	if sinTheta <= 0 {
		return 0
	}
	return pdf / (2 * math.Pi * math.Pi * sinTheta)
}

func (em *EnvironmentMap) Evaluate(point core.Vec3, uv core.Vec2) LightSample {
	return em.sample(point, uv, em.lookup(uv))
}

func (em *EnvironmentMap) Intersect(ray core.Ray, tMax float64) (core.Vec2, float64, bool) {
	return em.intersect(ray, tMax)
}

// Emit returns the radiance seen along ray
func (em *EnvironmentMap) Emit(ray core.Ray) core.Vec3 {
	return em.lookup(DirectionToUV(ray.Direction.Normalize()))
}

func (em *EnvironmentMap) Power() float64 {
	return em.power(em.average)
}

func (em *EnvironmentMap) Bounds() (core.AABB, bool) {
	return core.AABB{}, false
}
