package material

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
)

// MaxExponent bounds the Blinn-Phong exponent so near-mirrors stay finite
const MaxExponent = 10000.0

// Lobe is a diffuse + normalized Blinn-Phong reflectance at one surface point.
// All directions point away from the surface.
type Lobe struct {
	Diffuse  core.Vec3
	Specular core.Vec3
	Exponent float64
}

// IsBlack reports whether the lobe reflects nothing
func (l Lobe) IsBlack() bool {
	return l.Diffuse.IsZero() && l.Specular.IsZero()
}

// Albedo approximates the total reflectance, used by debug views
func (l Lobe) Albedo() core.Vec3 {
	return l.Diffuse.Add(l.Specular)
}

// specularProbability is the chance Sample picks the specular lobe
func (l Lobe) specularProbability() float64 {
	ld := max(0, l.Diffuse.Luminance())
	ls := max(0, l.Specular.Luminance())
	if ld+ls == 0 {
		return 0
	}
	return ls / (ld + ls)
}

// Evaluate returns the BRDF value for the pair of directions
func (l Lobe) Evaluate(wo, wi, normal core.Vec3) core.Vec3 {
	cosO := wo.Dot(normal)
	cosI := wi.Dot(normal)
	if cosO <= 0 || cosI <= 0 {
		return core.Vec3{}
	}

	f := l.Diffuse.Multiply(1 / math.Pi)
	if !l.Specular.IsZero() {
		h := wo.Add(wi).Normalize()
		cosH := max(0, h.Dot(normal))
		norm := (l.Exponent + 8) / (8 * math.Pi)
		f = f.Add(l.Specular.Multiply(norm * math.Pow(cosH, l.Exponent)))
	}
	return f
}

// PDF returns the solid-angle density with which Sample produces wi
func (l Lobe) PDF(wo, wi, normal core.Vec3) float64 {
	cosO := wo.Dot(normal)
	cosI := wi.Dot(normal)
	if cosO <= 0 || cosI <= 0 {
		return 0
	}

	ps := l.specularProbability()
	pdf := (1 - ps) * core.CosineHemispherePDF(cosI)
	if ps > 0 {
		h := wo.Add(wi).Normalize()
		cosH := max(0, h.Dot(normal))
		woDotH := wo.Dot(h)
		if woDotH > 0 {
			pdfH := (l.Exponent + 1) / (2 * math.Pi) * math.Pow(cosH, l.Exponent)
			pdf += ps * pdfH / (4 * woDotH)
		}
	}
	return pdf
}

// Sample draws an incident direction from the lobe. uLobe picks diffuse or
// specular; u drives the direction. ok is false when the direction falls below
// the surface.
func (l Lobe) Sample(wo, normal core.Vec3, u core.Vec2, uLobe float64) (wi core.Vec3, pdf float64, ok bool) {
	if l.IsBlack() || wo.Dot(normal) <= 0 {
		return core.Vec3{}, 0, false
	}

	if uLobe < l.specularProbability() {
		cosH := math.Pow(u.X, 1/(l.Exponent+1))
		sinH := math.Sqrt(max(0, 1-cosH*cosH))
		phi := 2 * math.Pi * u.Y
		h := core.ToWorld(core.NewVec3(sinH*math.Cos(phi), sinH*math.Sin(phi), cosH), normal)
		wi = h.Multiply(2 * wo.Dot(h)).Subtract(wo)
	} else {
		wi = core.SampleCosineHemisphere(normal, u)
	}

	if wi.Dot(normal) <= 0 {
		return core.Vec3{}, 0, false
	}
	pdf = l.PDF(wo, wi, normal)
	return wi, pdf, pdf > 0
}

// ExponentFromRoughness maps a [0,1] roughness to a Blinn-Phong exponent
func ExponentFromRoughness(roughness float64) float64 {
	a := max(roughness*roughness, 1e-4)
	return math.Min(MaxExponent, math.Max(1, 2/(a*a)-2))
}
