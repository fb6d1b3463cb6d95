package geometry

import (
	"math"
	"testing"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/material"
)

func sphereGrid(n int) []Shape {
	var shapes []Shape
	for x := 0; x < n; x++ {
		for z := 0; z < n; z++ {
			shapes = append(shapes, NewSphere(core.NewVec3(float64(x)*3, 0, float64(z)*3), 1, DummyMaterial{}))
		}
	}
	return shapes
}

func TestBVH_MatchesLinearSearch(t *testing.T) {
	shapes := sphereGrid(6)
	bvh := NewBVH(shapes)
	sampler := core.NewPixelSampler(core.StreamID{Pixel: 9})

	for i := 0; i < 500; i++ {
		origin := core.NewVec3(sampler.Get1D()*15, 5, sampler.Get1D()*15)
		dir := core.SampleOnUnitSphere(sampler.Get2D())
		if dir.Y > 0 {
			dir.Y = -dir.Y
		}
		ray := core.NewRay(origin, dir)

		var expected material.HitRecord
		expectedHit := false
		expectedID := -1
		closest := math.Inf(1)
		for id, s := range shapes {
			if s.Hit(ray, 1e-4, closest, &expected) {
				expectedHit = true
				closest = expected.T
				expectedID = id
			}
		}

		var got material.HitRecord
		gotHit := bvh.Hit(ray, 1e-4, math.Inf(1), &got)
		if gotHit != expectedHit {
			t.Fatalf("Ray %d: expected hit=%v, got %v", i, expectedHit, gotHit)
		}
		if gotHit {
			if math.Abs(got.T-closest) > 1e-9 {
				t.Fatalf("Ray %d: expected t=%f, got %f", i, closest, got.T)
			}
			if got.ShapeID != expectedID {
				t.Fatalf("Ray %d: expected shape %d, got %d", i, expectedID, got.ShapeID)
			}
		}
		if occluded := bvh.Occluded(ray, 1e-4, math.Inf(1)); occluded != expectedHit {
			t.Fatalf("Ray %d: expected occluded=%v, got %v", i, expectedHit, occluded)
		}
	}
}

func TestBVH_OccludedRespectsTMax(t *testing.T) {
	bvh := NewBVH([]Shape{NewSphere(core.NewVec3(0, 0, 10), 1, DummyMaterial{})})
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))
	if bvh.Occluded(ray, 1e-4, 5) {
		t.Error("Expected no occlusion before the sphere")
	}
	if !bvh.Occluded(ray, 1e-4, 20) {
		t.Error("Expected occlusion past the sphere")
	}
}

func TestBVH_Empty(t *testing.T) {
	bvh := NewBVH(nil)
	var hit material.HitRecord
	if bvh.Hit(core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1)), 0, 100, &hit) {
		t.Error("Expected no hit in an empty BVH")
	}
	if bvh.Radius <= 0 {
		t.Errorf("Expected fallback radius, got %f", bvh.Radius)
	}
}
