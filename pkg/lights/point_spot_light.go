package lights

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
)

// PointSpotLight is an analytic point light with a cone and smooth falloff.
// It has a single point, so uv is ignored.
type PointSpotLight struct {
	position        core.Vec3 // Light position in world space
	direction       core.Vec3 // Normalized direction vector (from -> to)
	emission        core.Vec3 // Intensity
	cosTotalWidth   float64   // Cosine of total cone angle (outer edge)
	cosFalloffStart float64   // Cosine of falloff start angle (inner cone)
}

// NewPointSpotLight creates a new point spot light
// from: light position
// to: point the light is aimed at
// emission: light intensity/color
// coneAngleDegrees: total cone angle in degrees (180 for an omnidirectional light)
// coneDeltaAngleDegrees: falloff transition angle in degrees
func NewPointSpotLight(from, to, emission core.Vec3, coneAngleDegrees, coneDeltaAngleDegrees float64) *PointSpotLight {
	totalWidthRadians := coneAngleDegrees * math.Pi / 180.0
	falloffStartRadians := (coneAngleDegrees - coneDeltaAngleDegrees) * math.Pi / 180.0

	return &PointSpotLight{
		position:        from,
		direction:       to.Subtract(from).Normalize(),
		emission:        emission,
		cosTotalWidth:   math.Cos(totalWidthRadians),
		cosFalloffStart: math.Cos(falloffStartRadians),
	}
}

func (sl *PointSpotLight) Type() LightType {
	return LightTypePoint
}

// Position returns the light position
func (sl *PointSpotLight) Position() core.Vec3 {
	return sl.position
}

// Sample always returns the single light point with unit (discrete) density
func (sl *PointSpotLight) Sample(u core.Vec2) (core.Vec2, float64) {
	return core.Vec2{}, 1
}

func (sl *PointSpotLight) PDF(uv core.Vec2) float64 {
	return 1
}

func (sl *PointSpotLight) Evaluate(point core.Vec3, uv core.Vec2) LightSample {
	toLight := sl.position.Subtract(point)
	distance := toLight.Length()
	if distance <= 1e-9 {
		return LightSample{Point: sl.position}
	}
	direction := toLight.Multiply(1 / distance)

	spot := sl.falloff(sl.direction.Dot(direction.Negate()))
	return LightSample{
		Point:     sl.position,
		Normal:    direction.Negate(),
		Direction: direction,
		Distance:  distance,
		Emission:  sl.emission.Multiply(spot),
		Geometry:  1 / (distance * distance),
	}
}

// Intersect never succeeds for a point light
func (sl *PointSpotLight) Intersect(ray core.Ray, tMax float64) (core.Vec2, float64, bool) {
	return core.Vec2{}, 0, false
}

// Power integrates the intensity over the cone, using the midpoint of the falloff band
func (sl *PointSpotLight) Power() float64 {
	return sl.emission.Luminance() * 2 * math.Pi * (1 - 0.5*(sl.cosFalloffStart+sl.cosTotalWidth))
}

func (sl *PointSpotLight) Bounds() (core.AABB, bool) {
	return core.NewAABB(sl.position, sl.position), true
}

// falloff calculates the spot light attenuation for the cosine between the
// spot axis and the direction to the shading point
func (sl *PointSpotLight) falloff(cosAngle float64) float64 {
	if cosAngle < sl.cosTotalWidth {
		return 0.0
	}
	if cosAngle >= sl.cosFalloffStart {
		return 1.0
	}
	delta := (cosAngle - sl.cosTotalWidth) / (sl.cosFalloffStart - sl.cosTotalWidth)
	return delta * delta * delta * delta
}
