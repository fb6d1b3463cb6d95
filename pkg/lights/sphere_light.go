package lights

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/material"
)

// SphereLight is a spherical area light. uv maps (cos θ, φ) uniformly over the
// sphere: cos θ = 1 - 2u, φ = 2πv, with θ measured from +Z.
type SphereLight struct {
	*geometry.Sphere
	Emission core.Vec3
}

// NewSphereLight creates a new sphere light
func NewSphereLight(center core.Vec3, radius float64, emission core.Vec3) *SphereLight {
	return &SphereLight{
		Sphere:   geometry.NewSphere(center, radius, material.NewEmissive(emission)),
		Emission: emission,
	}
}

func (sl *SphereLight) Type() LightType {
	return LightTypeArea
}

func (sl *SphereLight) area() float64 {
	return 4 * math.Pi * sl.Radius * sl.Radius
}

// Sample picks a point uniformly over the whole sphere surface. Points on the
// far side evaluate to zero.
func (sl *SphereLight) Sample(u core.Vec2) (core.Vec2, float64) {
	return u, sl.PDF(u)
}

func (sl *SphereLight) PDF(uv core.Vec2) float64 {
	return 1.0 / sl.area()
}

func (sl *SphereLight) normalAt(uv core.Vec2) core.Vec3 {
	z := 1 - 2*uv.X
	r := math.Sqrt(max(0, 1-z*z))
	phi := 2 * math.Pi * uv.Y
	return core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}

func (sl *SphereLight) Evaluate(point core.Vec3, uv core.Vec2) LightSample {
	n := sl.normalAt(uv)
	return evaluateArea(point, sl.Center.Add(n.Multiply(sl.Radius)), n, sl.Emission)
}

// Intersect returns the sphere coordinates of the nearest hit
func (sl *SphereLight) Intersect(ray core.Ray, tMax float64) (core.Vec2, float64, bool) {
	var hit material.HitRecord
	if !sl.Sphere.Hit(ray, 1e-6, tMax, &hit) {
		return core.Vec2{}, 0, false
	}
	n := hit.Point.Subtract(sl.Center).Normalize()
	phi := math.Atan2(n.Y, n.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return core.NewVec2((1-n.Z)/2, phi/(2*math.Pi)), hit.T, true
}

func (sl *SphereLight) Power() float64 {
	return math.Pi * sl.Emission.Luminance() * sl.area()
}

func (sl *SphereLight) Bounds() (core.AABB, bool) {
	return sl.BoundingBox(), true
}
