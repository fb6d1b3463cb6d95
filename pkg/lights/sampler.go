package lights

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/df07/go-restir-di/pkg/core"
)

// SamplerType selects the light selection strategy
type SamplerType int

const (
	SamplerUniform SamplerType = iota
	SamplerPower
	SamplerLightBVH
)

func (t SamplerType) String() string {
	switch t {
	case SamplerUniform:
		return "uniform"
	case SamplerPower:
		return "power"
	case SamplerLightBVH:
		return "lightBVH"
	default:
		return fmt.Sprintf("SamplerType(%d)", int(t))
	}
}

// ParseSamplerType accepts the names printed by String, case-insensitively
func ParseSamplerType(s string) (SamplerType, error) {
	switch strings.ToLower(s) {
	case "uniform":
		return SamplerUniform, nil
	case "power":
		return SamplerPower, nil
	case "lightbvh", "bvh":
		return SamplerLightBVH, nil
	}
	return SamplerUniform, fmt.Errorf("unknown light sampler %q", s)
}

// LightSampler chooses one light for a shading point
type LightSampler interface {
	Type() SamplerType

	// SampleLight selects a light and returns its index and selection
	// probability. index is -1 when no light can be selected.
	SampleLight(point core.Vec3, normal core.Vec3, u float64) (index int, probability float64)

	// Probability returns the chance SampleLight picks index at this point
	Probability(index int, point core.Vec3, normal core.Vec3) float64

	LightCount() int

	// Defines describes the sampler configuration for kernel specialization
	Defines() map[string]string
}

// NewLightSampler creates a sampler of the given type over lights
func NewLightSampler(t SamplerType, lights []Light, options BVHOptions) LightSampler {
	switch t {
	case SamplerPower:
		return NewPowerSampler(lights)
	case SamplerLightBVH:
		return NewBVHSampler(lights, options)
	default:
		return NewUniformSampler(lights)
	}
}

// UniformSampler selects every light with equal probability
type UniformSampler struct {
	count int
}

func NewUniformSampler(lights []Light) *UniformSampler {
	return &UniformSampler{count: len(lights)}
}

func (s *UniformSampler) Type() SamplerType { return SamplerUniform }
func (s *UniformSampler) LightCount() int   { return s.count }

func (s *UniformSampler) SampleLight(point, normal core.Vec3, u float64) (int, float64) {
	if s.count == 0 {
		return -1, 0
	}
	index := min(s.count-1, int(u*float64(s.count)))
	return index, 1 / float64(s.count)
}

func (s *UniformSampler) Probability(index int, point, normal core.Vec3) float64 {
	if index < 0 || index >= s.count {
		return 0
	}
	return 1 / float64(s.count)
}

func (s *UniformSampler) Defines() map[string]string {
	return map[string]string{
		"EMISSIVE_SAMPLER": "UNIFORM",
		"LIGHT_COUNT":      strconv.Itoa(s.count),
	}
}

// PowerSampler selects lights proportionally to their emitted power,
// independent of the shading point
type PowerSampler struct {
	distribution *Distribution1D
}

func NewPowerSampler(lights []Light) *PowerSampler {
	weights := make([]float64, len(lights))
	for i, l := range lights {
		weights[i] = l.Power()
	}
	return &PowerSampler{distribution: NewDistribution1D(weights)}
}

func (s *PowerSampler) Type() SamplerType { return SamplerPower }
func (s *PowerSampler) LightCount() int   { return s.distribution.Count() }

func (s *PowerSampler) SampleLight(point, normal core.Vec3, u float64) (int, float64) {
	if s.distribution.Count() == 0 {
		return -1, 0
	}
	return s.distribution.SampleDiscrete(u)
}

func (s *PowerSampler) Probability(index int, point, normal core.Vec3) float64 {
	return s.distribution.DiscreteProbability(index)
}

func (s *PowerSampler) Defines() map[string]string {
	return map[string]string{
		"EMISSIVE_SAMPLER": "POWER",
		"LIGHT_COUNT":      strconv.Itoa(s.distribution.Count()),
	}
}
