package geometry

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/material"
)

// Disc represents a circular disc in 3D space
type Disc struct {
	Center   core.Vec3         // Center of the disc
	Normal   core.Vec3         // Normal vector (pointing "up" from the disc)
	Radius   float64           // Radius of the disc
	Material material.Material // Material of the disc
	Right    core.Vec3         // Tangent perpendicular to normal
	Up       core.Vec3         // Tangent perpendicular to normal and right
}

// NewDisc creates a new disc
func NewDisc(center, normal core.Vec3, radius float64, mat material.Material) *Disc {
	n := normal.Normalize()
	right, up := core.OrthonormalBasis(n)
	return &Disc{
		Center:   center,
		Normal:   n,
		Radius:   radius,
		Material: mat,
		Right:    right,
		Up:       up,
	}
}

// Area returns the surface area of the disc
func (d *Disc) Area() float64 {
	return math.Pi * d.Radius * d.Radius
}

// PointAt maps (r², θ) coordinates in [0,1]² to a world point. The square-root
// radius makes uniform coordinates uniform in area.
func (d *Disc) PointAt(uv core.Vec2) core.Vec3 {
	r := math.Sqrt(uv.X) * d.Radius
	theta := 2.0 * math.Pi * uv.Y
	return d.Center.Add(d.Right.Multiply(r * math.Cos(theta))).Add(d.Up.Multiply(r * math.Sin(theta)))
}

// Intersect returns the ray parameter and the (r², θ) coordinates of the hit
func (d *Disc) Intersect(ray core.Ray) (float64, core.Vec2, bool) {
	denom := d.Normal.Dot(ray.Direction)
	if math.Abs(denom) < 1e-12 {
		return 0, core.Vec2{}, false
	}

	t := d.Normal.Dot(d.Center.Subtract(ray.Origin)) / denom
	local := ray.At(t).Subtract(d.Center)
	r2 := local.LengthSquared() / (d.Radius * d.Radius)
	if r2 > 1 {
		return 0, core.Vec2{}, false
	}

	theta := math.Atan2(local.Dot(d.Up), local.Dot(d.Right))
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return t, core.NewVec2(r2, theta/(2*math.Pi)), true
}

// Hit implements the Shape interface
func (d *Disc) Hit(ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool {
	t, uv, ok := d.Intersect(ray)
	if !ok || t < tMin || t > tMax {
		return false
	}

	hit.T = t
	hit.Point = ray.At(t)
	hit.UV = uv
	hit.Material = d.Material
	hit.SetFaceNormal(ray, d.Normal)
	return true
}

// BoundingBox implements the Shape interface
func (d *Disc) BoundingBox() core.AABB {
	rightExtent := d.Right.Multiply(d.Radius)
	upExtent := d.Up.Multiply(d.Radius)
	box := core.NewAABBFromPoints(
		d.Center.Add(rightExtent).Add(upExtent),
		d.Center.Add(rightExtent).Subtract(upExtent),
		d.Center.Subtract(rightExtent).Add(upExtent),
		d.Center.Subtract(rightExtent).Subtract(upExtent),
	)
	const pad = 1e-4
	padding := core.NewVec3(pad, pad, pad)
	return core.NewAABB(box.Min.Subtract(padding), box.Max.Add(padding))
}
