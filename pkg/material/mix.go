package material

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
)

// Mix blends two materials by a fixed ratio
type Mix struct {
	Material1 Material
	Material2 Material
	Ratio     float64 // 0.0 = all material1, 1.0 = all material2
}

// NewMix creates a new mix material
func NewMix(material1, material2 Material, ratio float64) *Mix {
	ratio = math.Max(0.0, math.Min(ratio, 1.0))
	return &Mix{
		Material1: material1,
		Material2: material2,
		Ratio:     ratio,
	}
}

// Lobe blends both lobes linearly. The exponent comes from whichever side has
// the stronger specular term.
func (m *Mix) Lobe(uv core.Vec2, point core.Vec3) Lobe {
	a := m.Material1.Lobe(uv, point)
	b := m.Material2.Lobe(uv, point)

	exponent := a.Exponent
	if b.Specular.Luminance()*m.Ratio > a.Specular.Luminance()*(1-m.Ratio) {
		exponent = b.Exponent
	}
	return Lobe{
		Diffuse:  a.Diffuse.Lerp(b.Diffuse, m.Ratio),
		Specular: a.Specular.Lerp(b.Specular, m.Ratio),
		Exponent: exponent,
	}
}
