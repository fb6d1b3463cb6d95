package core

import (
	"math"
	"math/rand/v2"
)

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
}

// StreamID identifies one random stream: which frame, which pass, which
// iteration of that pass, and which pixel. Equal ids produce equal streams.
type StreamID struct {
	Frame     uint32
	Pass      uint32
	Iteration uint32
	Pixel     uint32
}

// PixelSampler is a PCG-backed sampler owned by a single pixel invocation.
// It is a value type so kernels can keep it on the stack.
type PixelSampler struct {
	pcg rand.PCG
}

// NewPixelSampler creates a sampler seeded for the given stream
func NewPixelSampler(id StreamID) *PixelSampler {
	s := &PixelSampler{}
	s.Reset(id)
	return s
}

// Reset reseeds the sampler for the given stream
func (s *PixelSampler) Reset(id StreamID) {
	hi := uint64(id.Frame)<<32 | uint64(id.Pass)<<16 | uint64(id.Iteration)
	lo := uint64(id.Pixel)
	s.pcg.Seed(mix64(hi^0x9e3779b97f4a7c15), mix64(lo+0x632be59bd9b4e019))
}

// Get1D returns a float64 in [0, 1)
func (s *PixelSampler) Get1D() float64 {
	return float64(s.pcg.Uint64()>>11) * 0x1p-53
}

// Get2D returns two float64 values in [0, 1)
func (s *PixelSampler) Get2D() Vec2 {
	return Vec2{s.Get1D(), s.Get1D()}
}

// mix64 is the splitmix64 finalizer
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// OrthonormalBasis returns two unit tangents perpendicular to n
func OrthonormalBasis(n Vec3) (Vec3, Vec3) {
	var nt Vec3
	if math.Abs(n.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}
	tangent := nt.Cross(n).Normalize()
	bitangent := n.Cross(tangent)
	return tangent, bitangent
}

// ToWorld maps a local direction (z along n) into world space
func ToWorld(local Vec3, n Vec3) Vec3 {
	t, b := OrthonormalBasis(n)
	return t.Multiply(local.X).Add(b.Multiply(local.Y)).Add(n.Multiply(local.Z))
}

// SampleCosineHemisphere generates a cosine-weighted direction in the hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	a := 2.0 * math.Pi * sample.X
	r := math.Sqrt(sample.Y)
	local := NewVec3(r*math.Cos(a), r*math.Sin(a), math.Sqrt(max(0, 1.0-sample.Y)))
	return ToWorld(local, normal)
}

// CosineHemispherePDF is the solid-angle density of SampleCosineHemisphere
func CosineHemispherePDF(cosTheta float64) float64 {
	if cosTheta <= 0 {
		return 0
	}
	return cosTheta / math.Pi
}

// SampleUniformHemisphere generates a uniformly distributed direction in the hemisphere around normal
func SampleUniformHemisphere(normal Vec3, sample Vec2) Vec3 {
	z := sample.X
	r := math.Sqrt(max(0, 1-z*z))
	phi := 2.0 * math.Pi * sample.Y
	return ToWorld(NewVec3(r*math.Cos(phi), r*math.Sin(phi), z), normal)
}

// UniformHemispherePDF is the solid-angle density of SampleUniformHemisphere
func UniformHemispherePDF() float64 {
	return 1.0 / (2.0 * math.Pi)
}

// SampleOnUnitSphere generates a uniform random direction on the unit sphere
func SampleOnUnitSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}

// SamplePointInUnitDisk maps a square sample onto the unit disk with the concentric mapping
func SamplePointInUnitDisk(sample Vec2) Vec2 {
	offset := NewVec2(2*sample.X-1, 2*sample.Y-1)
	if offset.X == 0 && offset.Y == 0 {
		return Vec2{}
	}

	var theta, r float64
	if math.Abs(offset.X) > math.Abs(offset.Y) {
		r = offset.X
		theta = math.Pi / 4 * (offset.Y / offset.X)
	} else {
		r = offset.Y
		theta = math.Pi/2 - math.Pi/4*(offset.X/offset.Y)
	}
	return NewVec2(r*math.Cos(theta), r*math.Sin(theta))
}

// PowerHeuristic is the beta=2 power heuristic for two strategies
func PowerHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if f == 0 && g == 0 {
		return 0
	}
	return (f * f) / (f*f + g*g)
}

// BalanceHeuristic weights strategy f against g by their sample counts and densities
func BalanceHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if f+g == 0 {
		return 0
	}
	return f / (f + g)
}
