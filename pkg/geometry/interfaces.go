package geometry

import (
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/material"
)

// Shape interface for objects that can be hit by rays. Hit fills hit only
// when it returns true.
type Shape interface {
	Hit(ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool
	BoundingBox() core.AABB
}
