package geometry

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/material"
)

// Quad represents a parallelogram defined by a corner and two edge vectors
type Quad struct {
	Corner   core.Vec3         // One corner of the quad
	U        core.Vec3         // First edge vector
	V        core.Vec3         // Second edge vector
	Normal   core.Vec3         // Unit normal (U × V)
	Material material.Material // Material of the quad
	D        float64           // Plane equation constant: n·p = d
	W        core.Vec3         // n / (n·(U×V)), used to project onto (U, V)
	area     float64
}

// NewQuad creates a new quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3, mat material.Material) *Quad {
	cross := u.Cross(v)
	normal := cross.Normalize()
	return &Quad{
		Corner:   corner,
		U:        u,
		V:        v,
		Normal:   normal,
		Material: mat,
		D:        normal.Dot(corner),
		W:        normal.Multiply(1.0 / normal.Dot(cross)),
		area:     cross.Length(),
	}
}

// Area returns the surface area of the quad
func (q *Quad) Area() float64 {
	return q.area
}

// PointAt maps edge coordinates (alpha, beta) in [0,1]² to a world point
func (q *Quad) PointAt(uv core.Vec2) core.Vec3 {
	return q.Corner.Add(q.U.Multiply(uv.X)).Add(q.V.Multiply(uv.Y))
}

// Intersect returns the ray parameter and edge coordinates of the hit, ignoring tMin/tMax
func (q *Quad) Intersect(ray core.Ray) (float64, core.Vec2, bool) {
	denominator := ray.Direction.Dot(q.Normal)
	if math.Abs(denominator) < 1e-12 {
		return 0, core.Vec2{}, false
	}

	t := (q.D - ray.Origin.Dot(q.Normal)) / denominator
	hitVector := ray.At(t).Subtract(q.Corner)
	alpha := q.W.Dot(hitVector.Cross(q.V))
	beta := q.W.Dot(q.U.Cross(hitVector))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return 0, core.Vec2{}, false
	}
	return t, core.NewVec2(alpha, beta), true
}

// Hit tests if a ray intersects with the quad
func (q *Quad) Hit(ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool {
	t, uv, ok := q.Intersect(ray)
	if !ok || t < tMin || t > tMax {
		return false
	}

	hit.T = t
	hit.Point = ray.At(t)
	hit.UV = uv
	hit.Material = q.Material
	hit.SetFaceNormal(ray, q.Normal)
	return true
}

// BoundingBox returns a slightly padded box so axis-aligned quads are not flat
func (q *Quad) BoundingBox() core.AABB {
	box := core.NewAABBFromPoints(
		q.Corner,
		q.Corner.Add(q.U),
		q.Corner.Add(q.V),
		q.Corner.Add(q.U).Add(q.V),
	)
	const pad = 1e-4
	padding := core.NewVec3(pad, pad, pad)
	return core.NewAABB(box.Min.Subtract(padding), box.Max.Add(padding))
}
