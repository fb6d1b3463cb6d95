package lights

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/material"
)

// DiscLight represents a one-sided circular area light
type DiscLight struct {
	*geometry.Disc
	Emission core.Vec3
}

// NewDiscLight creates a new disc light emitting along normal
func NewDiscLight(center, normal core.Vec3, radius float64, emission core.Vec3) *DiscLight {
	return &DiscLight{
		Disc:     geometry.NewDisc(center, normal, radius, material.NewEmissive(emission)),
		Emission: emission,
	}
}

func (dl *DiscLight) Type() LightType {
	return LightTypeArea
}

func (dl *DiscLight) Sample(u core.Vec2) (core.Vec2, float64) {
	return u, dl.PDF(u)
}

func (dl *DiscLight) PDF(uv core.Vec2) float64 {
	return 1.0 / dl.Area()
}

func (dl *DiscLight) Evaluate(point core.Vec3, uv core.Vec2) LightSample {
	return evaluateArea(point, dl.PointAt(uv), dl.Normal, dl.Emission)
}

func (dl *DiscLight) Intersect(ray core.Ray, tMax float64) (core.Vec2, float64, bool) {
	t, uv, ok := dl.Disc.Intersect(ray)
	if !ok || t <= 1e-6 || t > tMax {
		return core.Vec2{}, 0, false
	}
	return uv, t, true
}

func (dl *DiscLight) Power() float64 {
	return math.Pi * dl.Emission.Luminance() * dl.Area()
}

func (dl *DiscLight) Bounds() (core.AABB, bool) {
	return dl.BoundingBox(), true
}
