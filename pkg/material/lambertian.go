package material

import (
	"github.com/df07/go-restir-di/pkg/core"
)

// Lambertian represents a perfectly diffuse material
type Lambertian struct {
	Albedo ColorSource // Base color/reflectance (can be solid or textured)
}

// NewLambertian creates a new lambertian material with solid color
func NewLambertian(albedo core.Vec3) *Lambertian {
	return &Lambertian{Albedo: NewSolidColor(albedo)}
}

// NewTexturedLambertian creates a new lambertian material with texture
func NewTexturedLambertian(albedoTexture ColorSource) *Lambertian {
	return &Lambertian{Albedo: albedoTexture}
}

// Lobe returns a purely diffuse lobe: albedo / π
func (l *Lambertian) Lobe(uv core.Vec2, point core.Vec3) Lobe {
	return Lobe{Diffuse: l.Albedo.Evaluate(uv, point)}
}
