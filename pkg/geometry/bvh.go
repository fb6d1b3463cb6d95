package geometry

import (
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/material"
)

// BVHNode is a node of the bounding volume hierarchy. Leaves hold indices
// into the shape list the BVH was built from.
type BVHNode struct {
	BoundingBox core.AABB
	Left        *BVHNode
	Right       *BVHNode
	Shapes      []int // nil for internal nodes
}

// BVH accelerates closest-hit and any-hit queries over a fixed shape list.
// A hit reports the index of the shape in that list as HitRecord.ShapeID.
type BVH struct {
	Root   *BVHNode
	Center core.Vec3 // Finite scene center, used by infinite lights
	Radius float64   // World radius, used by infinite lights
	shapes []Shape
}

// Leaf threshold: if we have this many or fewer shapes, store them in a leaf node
const leafThreshold = 4

// NewBVH constructs a BVH from a slice of shapes. The slice is retained, so
// callers must not reorder it afterwards.
func NewBVH(shapes []Shape) *BVH {
	if len(shapes) == 0 {
		return &BVH{Radius: 100.0}
	}

	indices := make([]int, len(shapes))
	for i := range indices {
		indices[i] = i
	}

	bvh := &BVH{shapes: shapes}
	bvh.Root = bvh.build(indices)
	bvh.Center = bvh.Root.BoundingBox.Center()
	bvh.Radius = bvh.Root.BoundingBox.Max.Subtract(bvh.Center).Length()
	return bvh
}

// build splits at the midpoint of the longest axis of the node bounds
func (bvh *BVH) build(indices []int) *BVHNode {
	box := core.EmptyAABB()
	for _, i := range indices {
		box = box.Union(bvh.shapes[i].BoundingBox())
	}

	if len(indices) <= leafThreshold {
		return &BVHNode{BoundingBox: box, Shapes: indices}
	}

	axis := box.LongestAxis()
	lo, hi := box.Min.Component(axis), box.Max.Component(axis)
	if hi <= lo {
		return &BVHNode{BoundingBox: box, Shapes: indices}
	}
	split := (lo + hi) * 0.5

	var left, right []int
	for _, i := range indices {
		if bvh.shapes[i].BoundingBox().Center().Component(axis) < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &BVHNode{BoundingBox: box, Shapes: indices}
	}

	return &BVHNode{
		BoundingBox: box,
		Left:        bvh.build(left),
		Right:       bvh.build(right),
	}
}

// Shapes returns the shape list the BVH indexes into
func (bvh *BVH) Shapes() []Shape {
	return bvh.shapes
}

// Hit finds the closest intersection
func (bvh *BVH) Hit(ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool {
	if bvh.Root == nil {
		return false
	}
	return bvh.hitNode(bvh.Root, ray, tMin, tMax, hit)
}

func (bvh *BVH) hitNode(node *BVHNode, ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return false
	}

	hitAnything := false
	closestSoFar := tMax

	if node.Shapes != nil {
		for _, i := range node.Shapes {
			if bvh.shapes[i].Hit(ray, tMin, closestSoFar, hit) {
				hitAnything = true
				closestSoFar = hit.T
				hit.ShapeID = i
			}
		}
		return hitAnything
	}

	if node.Left != nil && bvh.hitNode(node.Left, ray, tMin, closestSoFar, hit) {
		hitAnything = true
		closestSoFar = hit.T
	}
	if node.Right != nil && bvh.hitNode(node.Right, ray, tMin, closestSoFar, hit) {
		hitAnything = true
	}
	return hitAnything
}

// Occluded reports whether anything blocks the ray in (tMin, tMax). It stops
// at the first hit found.
func (bvh *BVH) Occluded(ray core.Ray, tMin, tMax float64) bool {
	if bvh.Root == nil {
		return false
	}
	var scratch material.HitRecord
	return bvh.anyHit(bvh.Root, ray, tMin, tMax, &scratch)
}

func (bvh *BVH) anyHit(node *BVHNode, ray core.Ray, tMin, tMax float64, scratch *material.HitRecord) bool {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return false
	}
	if node.Shapes != nil {
		for _, i := range node.Shapes {
			if bvh.shapes[i].Hit(ray, tMin, tMax, scratch) {
				return true
			}
		}
		return false
	}
	return (node.Left != nil && bvh.anyHit(node.Left, ray, tMin, tMax, scratch)) ||
		(node.Right != nil && bvh.anyHit(node.Right, ray, tMin, tMax, scratch))
}

// BoundingBox returns the overall bounding box of the BVH
func (bvh *BVH) BoundingBox() core.AABB {
	if bvh.Root == nil {
		return core.AABB{}
	}
	return bvh.Root.BoundingBox
}
