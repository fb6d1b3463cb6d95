package material

import (
	"github.com/df07/go-restir-di/pkg/core"
)

// Metal represents a glossy metallic material
type Metal struct {
	Albedo   core.Vec3 // Metal color
	Fuzzness float64   // 0.0 = near mirror, 1.0 = very rough
}

// NewMetal creates a new metal material
func NewMetal(albedo core.Vec3, fuzzness float64) *Metal {
	fuzzness = max(0, min(1, fuzzness))
	return &Metal{Albedo: albedo, Fuzzness: fuzzness}
}

// Lobe returns a specular-only lobe whose sharpness follows the fuzzness
func (m *Metal) Lobe(uv core.Vec2, point core.Vec3) Lobe {
	return Lobe{Specular: m.Albedo, Exponent: ExponentFromRoughness(m.Fuzzness)}
}
