package material

import (
	"github.com/df07/go-restir-di/pkg/core"
)

// Material describes how a surface reflects light. Direct lighting only needs
// the local reflectance lobe, so that is all a material exposes.
type Material interface {
	Lobe(uv core.Vec2, point core.Vec3) Lobe
}

// Emitter interface for materials that emit light
type Emitter interface {
	Emit(rayIn core.Ray) core.Vec3
}

// HitRecord contains information about a ray-object intersection
type HitRecord struct {
	Point     core.Vec3 // Point of intersection
	Normal    core.Vec3 // Surface normal at intersection, facing the ray origin
	T         float64   // Parameter t along the ray
	UV        core.Vec2 // Surface parameterization of the hit shape
	FrontFace bool      // Whether ray hit the front face
	Material  Material  // Material of the hit object
	ShapeID   int       // Index of the hit shape in the scene's shape list
}

// SetFaceNormal sets the normal vector and determines front/back face
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}
