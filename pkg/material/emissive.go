package material

import (
	"github.com/df07/go-restir-di/pkg/core"
)

// Emissive represents a light-emitting material
type Emissive struct {
	Emission core.Vec3 // Emitted light color/intensity
}

// NewEmissive creates a new emissive material
func NewEmissive(emission core.Vec3) *Emissive {
	return &Emissive{Emission: emission}
}

// Emit returns the emitted radiance for rays that hit the front face
func (e *Emissive) Emit(rayIn core.Ray) core.Vec3 {
	return e.Emission
}

// Lobe is black: lights do not reflect
func (e *Emissive) Lobe(uv core.Vec2, point core.Vec3) Lobe {
	return Lobe{}
}
