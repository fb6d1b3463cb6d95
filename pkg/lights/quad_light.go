package lights

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/material"
)

// QuadLight represents a one-sided rectangular area light. uv are the quad's
// edge coordinates.
type QuadLight struct {
	*geometry.Quad
	Emission core.Vec3
}

// NewQuadLight creates a new quad light. The embedded quad carries an
// emissive material so it can be placed in the scene geometry as well.
func NewQuadLight(corner, u, v, emission core.Vec3) *QuadLight {
	return &QuadLight{
		Quad:     geometry.NewQuad(corner, u, v, material.NewEmissive(emission)),
		Emission: emission,
	}
}

func (ql *QuadLight) Type() LightType {
	return LightTypeArea
}

// Sample picks a point uniformly by area
func (ql *QuadLight) Sample(u core.Vec2) (core.Vec2, float64) {
	return u, ql.PDF(u)
}

// PDF is 1/area everywhere on the quad
func (ql *QuadLight) PDF(uv core.Vec2) float64 {
	if ql.Area() <= 0 {
		return 0
	}
	return 1.0 / ql.Area()
}

// Evaluate emits only from the front face (the side U×V points to)
func (ql *QuadLight) Evaluate(point core.Vec3, uv core.Vec2) LightSample {
	return evaluateArea(point, ql.PointAt(uv), ql.Normal, ql.Emission)
}

// Intersect maps a ray hit back to edge coordinates
func (ql *QuadLight) Intersect(ray core.Ray, tMax float64) (core.Vec2, float64, bool) {
	t, uv, ok := ql.Quad.Intersect(ray)
	if !ok || t <= 1e-6 || t > tMax {
		return core.Vec2{}, 0, false
	}
	return uv, t, true
}

// Power is π · L · area for a Lambertian emitter
func (ql *QuadLight) Power() float64 {
	return math.Pi * ql.Emission.Luminance() * ql.Area()
}

func (ql *QuadLight) Bounds() (core.AABB, bool) {
	return ql.BoundingBox(), true
}

// evaluateArea builds the light sample for a one-sided area emitter
func evaluateArea(point, lightPoint, lightNormal, emission core.Vec3) LightSample {
	toLight := lightPoint.Subtract(point)
	distance := toLight.Length()
	if distance <= 1e-9 {
		return LightSample{Point: lightPoint, Normal: lightNormal}
	}
	direction := toLight.Multiply(1 / distance)

	sample := LightSample{
		Point:     lightPoint,
		Normal:    lightNormal,
		Direction: direction,
		Distance:  distance,
	}

	// Front face when the direction toward the light opposes its normal
	cosLight := -direction.Dot(lightNormal)
	if cosLight <= 1e-8 {
		return sample
	}
	sample.Emission = emission
	sample.Geometry = cosLight / (distance * distance)
	return sample
}
