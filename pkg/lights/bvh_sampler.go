package lights

import (
	"strconv"

	"github.com/df07/go-restir-di/pkg/core"
)

// BVHOptions configures the light BVH
type BVHOptions struct {
	// MaxLightsPerLeaf bounds leaf size; lights inside a leaf are picked by power
	MaxLightsPerLeaf int
	// UseOrientation culls nodes lying entirely behind the shading surface
	UseOrientation bool
	// InfiniteProbability is the chance of picking an infinite light when
	// both infinite and bounded lights exist
	InfiniteProbability float64
}

// DefaultBVHOptions returns the standard light BVH configuration
func DefaultBVHOptions() BVHOptions {
	return BVHOptions{
		MaxLightsPerLeaf:    1,
		UseOrientation:      true,
		InfiniteProbability: 0.25,
	}
}

type lightNode struct {
	bounds      core.AABB
	power       float64
	left, right *lightNode
	lights      []int // leaf only
}

// BVHSampler selects bounded lights by descending a bounding volume
// hierarchy, weighting each child by power over squared distance. Infinite
// lights are chosen separately, by power.
type BVHSampler struct {
	options  BVHOptions
	lights   []Light
	root     *lightNode
	paths    map[int][]bool // light index -> child choices from the root (true = right)
	leafOf   map[int]*lightNode
	infinite []int
	infDist  *Distribution1D
	count    int
}

// NewBVHSampler builds the hierarchy over lights
func NewBVHSampler(lights []Light, options BVHOptions) *BVHSampler {
	if options.MaxLightsPerLeaf <= 0 {
		options.MaxLightsPerLeaf = 1
	}
	s := &BVHSampler{
		options: options,
		lights:  lights,
		paths:   make(map[int][]bool),
		leafOf:  make(map[int]*lightNode),
		count:   len(lights),
	}

	var bounded []int
	var infinitePower []float64
	for i, l := range lights {
		if _, ok := l.Bounds(); ok {
			bounded = append(bounded, i)
		} else {
			s.infinite = append(s.infinite, i)
			infinitePower = append(infinitePower, l.Power())
		}
	}
	s.infDist = NewDistribution1D(infinitePower)
	if len(bounded) > 0 {
		s.root = s.build(bounded, nil)
	}
	return s
}

func (s *BVHSampler) build(indices []int, path []bool) *lightNode {
	node := &lightNode{bounds: core.EmptyAABB()}
	centroids := core.EmptyAABB()
	for _, i := range indices {
		box, _ := s.lights[i].Bounds()
		node.bounds = node.bounds.Union(box)
		c := box.Center()
		centroids = centroids.Union(core.NewAABB(c, c))
		node.power += s.lights[i].Power()
	}

	makeLeaf := func() *lightNode {
		node.lights = indices
		for _, i := range indices {
			s.paths[i] = append([]bool(nil), path...)
			s.leafOf[i] = node
		}
		return node
	}

	if len(indices) <= s.options.MaxLightsPerLeaf {
		return makeLeaf()
	}

	axis := centroids.LongestAxis()
	split := centroids.Center().Component(axis)
	var left, right []int
	for _, i := range indices {
		box, _ := s.lights[i].Bounds()
		if box.Center().Component(axis) < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		// Coincident centroids: split by count
		mid := len(indices) / 2
		left, right = indices[:mid], indices[mid:]
	}

	node.left = s.build(left, append(path, false))
	node.right = s.build(right, append(path, true))
	return node
}

// importance estimates how much a node can contribute at the shading point
func (s *BVHSampler) importance(node *lightNode, point, normal core.Vec3) float64 {
	if node.power <= 0 {
		return 0
	}
	if s.options.UseOrientation && !normal.IsZero() {
		facing := false
		for _, c := range node.bounds.Corners() {
			if c.Subtract(point).Dot(normal) > 0 {
				facing = true
				break
			}
		}
		if !facing {
			return 0
		}
	}
	extent := node.bounds.Size().LengthSquared() * 0.25
	d2 := max(node.bounds.Center().Subtract(point).LengthSquared(), extent, 1e-6)
	return node.power / d2
}

// childProbability returns the chance of descending right at node
func (s *BVHSampler) childProbability(node *lightNode, point, normal core.Vec3) (pRight float64, ok bool) {
	il := s.importance(node.left, point, normal)
	ir := s.importance(node.right, point, normal)
	if il+ir <= 0 {
		return 0, false
	}
	return ir / (il + ir), true
}

// boundedProbability is the chance of choosing the bounded subtree at all
func (s *BVHSampler) boundedProbability() float64 {
	switch {
	case s.root == nil:
		return 0
	case len(s.infinite) == 0:
		return 1
	default:
		return 1 - s.options.InfiniteProbability
	}
}

func (s *BVHSampler) Type() SamplerType { return SamplerLightBVH }
func (s *BVHSampler) LightCount() int   { return s.count }

func (s *BVHSampler) SampleLight(point, normal core.Vec3, u float64) (int, float64) {
	pBounded := s.boundedProbability()
	if u >= pBounded {
		if len(s.infinite) == 0 {
			return -1, 0
		}
		u = (u - pBounded) / (1 - pBounded)
		i, p := s.infDist.SampleDiscrete(u)
		return s.infinite[i], p * (1 - pBounded)
	}
	u /= pBounded

	prob := pBounded
	node := s.root
	for node.lights == nil {
		pRight, ok := s.childProbability(node, point, normal)
		if !ok {
			return -1, 0
		}
		if u < 1-pRight {
			u /= 1 - pRight
			prob *= 1 - pRight
			node = node.left
		} else {
			u = (u - (1 - pRight)) / pRight
			prob *= pRight
			node = node.right
		}
		u = min(u, 1-1e-12)
	}

	i, p := s.pickInLeaf(node, u)
	return i, prob * p
}

func (s *BVHSampler) pickInLeaf(node *lightNode, u float64) (int, float64) {
	if len(node.lights) == 1 {
		return node.lights[0], 1
	}
	cumulative := 0.0
	for _, i := range node.lights {
		p := s.leafProbability(node, i)
		cumulative += p
		if u < cumulative {
			return i, p
		}
	}
	last := node.lights[len(node.lights)-1]
	return last, s.leafProbability(node, last)
}

func (s *BVHSampler) leafProbability(node *lightNode, index int) float64 {
	if node.power <= 0 {
		return 1 / float64(len(node.lights))
	}
	return s.lights[index].Power() / node.power
}

func (s *BVHSampler) Probability(index int, point, normal core.Vec3) float64 {
	if index < 0 || index >= s.count {
		return 0
	}
	pBounded := s.boundedProbability()

	path, bounded := s.paths[index]
	if !bounded {
		for k, i := range s.infinite {
			if i == index {
				return (1 - pBounded) * s.infDist.DiscreteProbability(k)
			}
		}
		return 0
	}

	prob := pBounded
	node := s.root
	for _, right := range path {
		pRight, ok := s.childProbability(node, point, normal)
		if !ok {
			return 0
		}
		if right {
			prob *= pRight
			node = node.right
		} else {
			prob *= 1 - pRight
			node = node.left
		}
	}
	return prob * s.leafProbability(s.leafOf[index], index)
}

func (s *BVHSampler) Defines() map[string]string {
	return map[string]string{
		"EMISSIVE_SAMPLER":             "LIGHT_BVH",
		"LIGHT_COUNT":                  strconv.Itoa(s.count),
		"LIGHT_BVH_MAX_LIGHTS_PER_LEAF": strconv.Itoa(s.options.MaxLightsPerLeaf),
		"LIGHT_BVH_USE_ORIENTATION":     strconv.FormatBool(s.options.UseOrientation),
	}
}
