package geometry

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/material"
)

// Box is a rectangular box made of six quads, optionally rotated about Y
type Box struct {
	Center   core.Vec3         // Center point of the box
	Size     core.Vec3         // Half-extents along each axis
	Rotation float64           // Rotation about the Y axis in radians
	Material material.Material // Material for all faces
	faces    [6]*Quad
	bbox     core.AABB
}

// NewBox creates a box with the given half-extents and Y rotation
func NewBox(center, size core.Vec3, rotationY float64, mat material.Material) *Box {
	b := &Box{
		Center:   center,
		Size:     size,
		Rotation: rotationY,
		Material: mat,
	}
	b.generateFaces()
	return b
}

// NewAxisAlignedBox creates a new axis-aligned box
func NewAxisAlignedBox(center, size core.Vec3, mat material.Material) *Box {
	return NewBox(center, size, 0, mat)
}

func (b *Box) generateFaces() {
	sin, cos := math.Sincos(b.Rotation)
	var corners [8]core.Vec3
	for i := range corners {
		x := b.Size.X * sign(i&1 != 0)
		y := b.Size.Y * sign(i&2 != 0)
		z := b.Size.Z * sign(i&4 != 0)
		rotated := core.NewVec3(cos*x+sin*z, y, -sin*x+cos*z)
		corners[i] = rotated.Add(b.Center)
	}

	// Corner bits: 1 = +X, 2 = +Y, 4 = +Z. Edges are ordered so U×V points outward.
	face := func(c, u, v int) *Quad {
		return NewQuad(corners[c], corners[u].Subtract(corners[c]), corners[v].Subtract(corners[c]), b.Material)
	}
	b.faces[0] = face(4, 5, 6) // +Z
	b.faces[1] = face(1, 0, 3) // -Z
	b.faces[2] = face(5, 1, 7) // +X
	b.faces[3] = face(0, 4, 2) // -X
	b.faces[4] = face(2, 6, 3) // +Y
	b.faces[5] = face(0, 1, 4) // -Y

	b.bbox = core.NewAABBFromPoints(corners[:]...)
}

func sign(positive bool) float64 {
	if positive {
		return 1
	}
	return -1
}

// Hit returns the closest face hit
func (b *Box) Hit(ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool {
	hitAnything := false
	closest := tMax
	for _, face := range b.faces {
		if face.Hit(ray, tMin, closest, hit) {
			hitAnything = true
			closest = hit.T
		}
	}
	return hitAnything
}

// BoundingBox returns the axis-aligned bounding box for this box
func (b *Box) BoundingBox() core.AABB {
	return b.bbox
}
