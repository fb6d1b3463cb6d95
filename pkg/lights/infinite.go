package lights

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
)

// Infinite lights share the lat-long parameterization: u = φ/2π around +Y
// starting at +X, v = θ/π from +Y (v = 0 straight up).

// DirectionToUV maps a unit direction to lat-long coordinates
func DirectionToUV(dir core.Vec3) core.Vec2 {
	theta := math.Acos(max(-1, min(1, dir.Y)))
	phi := math.Atan2(dir.Z, dir.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return core.NewVec2(phi/(2*math.Pi), theta/math.Pi)
}

// UVToDirection maps lat-long coordinates to a unit direction
func UVToDirection(uv core.Vec2) core.Vec3 {
	sinTheta, cosTheta := math.Sincos(uv.Y * math.Pi)
	sinPhi, cosPhi := math.Sincos(uv.X * 2 * math.Pi)
	return core.NewVec3(sinTheta*cosPhi, cosTheta, sinTheta*sinPhi)
}

// infiniteBase carries the scene extent every infinite light needs
type infiniteBase struct {
	worldCenter core.Vec3
	worldRadius float64
}

// Preprocess records the scene bounds
func (b *infiniteBase) Preprocess(worldCenter core.Vec3, worldRadius float64) error {
	b.worldCenter = worldCenter
	b.worldRadius = worldRadius
	return nil
}

func (b *infiniteBase) radius() float64 {
	if b.worldRadius <= 0 {
		return 1
	}
	return b.worldRadius
}

func (b *infiniteBase) sample(point core.Vec3, uv core.Vec2, emission core.Vec3) LightSample {
	dir := UVToDirection(uv)
	return LightSample{
		Point:     point.Add(dir.Multiply(2 * b.radius())),
		Normal:    dir.Negate(),
		Direction: dir,
		Distance:  math.Inf(1),
		Emission:  emission,
		Geometry:  1,
	}
}

// intersect succeeds only for rays that escaped the scene
func (b *infiniteBase) intersect(ray core.Ray, tMax float64) (core.Vec2, float64, bool) {
	if !math.IsInf(tMax, 1) {
		return core.Vec2{}, 0, false
	}
	return DirectionToUV(ray.Direction.Normalize()), math.Inf(1), true
}

// power is π r² times the flux through a disc of the scene's size
func (b *infiniteBase) power(averageRadiance float64) float64 {
	r := b.radius()
	return math.Pi * r * r * 4 * math.Pi * averageRadiance
}

// uniformSphereUV samples a uniform sphere direction in lat-long coordinates
func uniformSphereUV(u core.Vec2) core.Vec2 {
	return DirectionToUV(core.SampleOnUnitSphere(u))
}

// UniformInfiniteLight emits the same radiance from every direction
type UniformInfiniteLight struct {
	infiniteBase
	emission core.Vec3
}

// NewUniformInfiniteLight creates a new uniform infinite light
func NewUniformInfiniteLight(emission core.Vec3) *UniformInfiniteLight {
	return &UniformInfiniteLight{emission: emission}
}

func (uil *UniformInfiniteLight) Type() LightType {
	return LightTypeInfinite
}

func (uil *UniformInfiniteLight) Sample(u core.Vec2) (core.Vec2, float64) {
	return uniformSphereUV(u), 1 / (4 * math.Pi)
}

func (uil *UniformInfiniteLight) PDF(uv core.Vec2) float64 {
	return 1 / (4 * math.Pi)
}

func (uil *UniformInfiniteLight) Evaluate(point core.Vec3, uv core.Vec2) LightSample {
	return uil.sample(point, uv, uil.emission)
}

func (uil *UniformInfiniteLight) Intersect(ray core.Ray, tMax float64) (core.Vec2, float64, bool) {
	return uil.intersect(ray, tMax)
}

// Emit returns the radiance seen along ray
func (uil *UniformInfiniteLight) Emit(ray core.Ray) core.Vec3 {
	return uil.emission
}

func (uil *UniformInfiniteLight) Power() float64 {
	return uil.power(uil.emission.Luminance())
}

func (uil *UniformInfiniteLight) Bounds() (core.AABB, bool) {
	return core.AABB{}, false
}

// GradientInfiniteLight blends two colors from the bottom to the top of the sky
type GradientInfiniteLight struct {
	infiniteBase
	topColor    core.Vec3
	bottomColor core.Vec3
}

// NewGradientInfiniteLight creates a new gradient infinite light
func NewGradientInfiniteLight(topColor, bottomColor core.Vec3) *GradientInfiniteLight {
	return &GradientInfiniteLight{topColor: topColor, bottomColor: bottomColor}
}

func (gil *GradientInfiniteLight) Type() LightType {
	return LightTypeInfinite
}

func (gil *GradientInfiniteLight) emissionForDirection(direction core.Vec3) core.Vec3 {
	t := 0.5 * (direction.Y + 1.0) // Map Y from [-1,1] to [0,1]
	return gil.bottomColor.Lerp(gil.topColor, t)
}

func (gil *GradientInfiniteLight) Sample(u core.Vec2) (core.Vec2, float64) {
	return uniformSphereUV(u), 1 / (4 * math.Pi)
}

func (gil *GradientInfiniteLight) PDF(uv core.Vec2) float64 {
	return 1 / (4 * math.Pi)
}

func (gil *GradientInfiniteLight) Evaluate(point core.Vec3, uv core.Vec2) LightSample {
	return gil.sample(point, uv, gil.emissionForDirection(UVToDirection(uv)))
}

func (gil *GradientInfiniteLight) Intersect(ray core.Ray, tMax float64) (core.Vec2, float64, bool) {
	return gil.intersect(ray, tMax)
}

// Emit returns the radiance seen along ray
func (gil *GradientInfiniteLight) Emit(ray core.Ray) core.Vec3 {
	return gil.emissionForDirection(ray.Direction.Normalize())
}

func (gil *GradientInfiniteLight) Power() float64 {
	return gil.power(gil.topColor.Add(gil.bottomColor).Multiply(0.5).Luminance())
}

func (gil *GradientInfiniteLight) Bounds() (core.AABB, bool) {
	return core.AABB{}, false
}
