package lights

import "github.com/df07/go-restir-di/pkg/core"

type LightType string

const (
	LightTypeArea     LightType = "area"
	LightTypePoint    LightType = "point"
	LightTypeInfinite LightType = "infinite"
)

// Light is a light source with a stable 2D parameterization of its surface.
// A (light index, uv) pair names one point on one light for as long as the
// scene is unchanged, so resampled choices can be carried between pixels and
// frames and re-evaluated anywhere.
type Light interface {
	Type() LightType

	// Sample maps a uniform 2D sample to surface coordinates and returns the
	// density of that choice in the light's own measure: per unit area for
	// area lights, per steradian for infinite lights, 1 for delta lights.
	Sample(u core.Vec2) (uv core.Vec2, pdf float64)

	// PDF returns the density Sample assigns to uv
	PDF(uv core.Vec2) float64

	// Evaluate connects a shading point with the light point at uv
	Evaluate(point core.Vec3, uv core.Vec2) LightSample

	// Intersect returns the coordinates where the ray meets the light within
	// tMax. Delta lights never intersect. Infinite lights intersect only
	// when tMax is infinite.
	Intersect(ray core.Ray, tMax float64) (uv core.Vec2, t float64, ok bool)

	// Power approximates the emitted flux, used for power-proportional selection
	Power() float64

	// Bounds returns the spatial extent of the light; ok is false for infinite lights
	Bounds() (box core.AABB, ok bool)
}

// LightSample is a light point as seen from a shading point
type LightSample struct {
	Point     core.Vec3 // Point on the light (far away for infinite lights)
	Normal    core.Vec3 // Light normal at Point, facing the shading point for delta lights
	Direction core.Vec3 // Unit direction from shading point to light
	Distance  float64   // Distance to light, +Inf for infinite lights
	Emission  core.Vec3 // Radiance toward the shading point (intensity for delta lights)
	// Geometry converts the light's measure into solid angle at the shading
	// point: |cos θ_light| / d² for area lights, 1/d² for point lights, 1 for
	// infinite lights.
	Geometry float64
}

// IsZero reports whether the sample cannot contribute
func (s LightSample) IsZero() bool {
	return s.Geometry <= 0 || s.Emission.IsZero()
}

// Preprocessor is implemented by lights that depend on the scene extent
type Preprocessor interface {
	Preprocess(worldCenter core.Vec3, worldRadius float64) error
}
