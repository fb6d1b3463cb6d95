// Package vbuffer traces primary rays and fills the visibility buffer, motion
// vectors and view directions a ReSTIR frame consumes.
package vbuffer

import (
	"context"
	"errors"
	"math"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/material"
	"github.com/df07/go-restir-di/pkg/scene"
)

// PassName is the dispatch name of the primary ray pass
const PassName = "vbuffer"

// ErrNoBVH is returned when the scene has not been updated yet
var ErrNoBVH = errors.New("vbuffer: scene has no BVH")

// Generator produces the per-pixel inputs of a frame. It remembers the camera
// of the previous frame so motion vectors can be derived by reprojection.
type Generator struct {
	device     *compute.Device
	prevCamera *geometry.Camera
}

// NewGenerator creates a generator dispatching on device
func NewGenerator(device *compute.Device) *Generator {
	return &Generator{device: device}
}

// Reset forgets the previous camera; the next frame reports zero motion
func (g *Generator) Reset() {
	g.prevCamera = nil
}

// Render traces one ray through the center of every pixel of data.VBuffer.
// MotionVectors and ViewDir are written when present.
func (g *Generator) Render(ctx context.Context, sc *scene.Scene, camera *geometry.Camera, data *frame.RenderData) error {
	if sc.BVH == nil {
		return ErrNoBVH
	}
	width, height := data.VBuffer.Size()
	prev := g.prevCamera
	if prev == nil {
		prev = camera
	}

	err := g.device.Dispatch(ctx, PassName, width, height, func(x, y int) {
		s := (float64(x) + 0.5) / float64(width)
		t := (float64(y) + 0.5) / float64(height)
		ray := camera.GetRay(s, t)

		if data.ViewDir != nil {
			data.ViewDir.Set(x, y, ray.Direction.Negate())
		}

		var hit material.HitRecord
		if !sc.BVH.Hit(ray, 1e-4, math.Inf(1), &hit) {
			data.VBuffer.Set(x, y, frame.Miss)
			if data.MotionVectors != nil {
				data.MotionVectors.Set(x, y, frame.MotionVector{})
			}
			return
		}
		data.VBuffer.Set(x, y, frame.PackVisibility(hit.ShapeID, float32(hit.T)))

		if data.MotionVectors != nil {
			data.MotionVectors.Set(x, y, motionVector(prev, hit.Point, s, t))
		}
	})
	if err != nil {
		return err
	}

	g.prevCamera = camera
	return nil
}

// motionVector is the screen-space offset from the current pixel to where
// point was seen by the previous camera
func motionVector(prev *geometry.Camera, point core.Vec3, s, t float64) frame.MotionVector {
	ps, pt, ok := prev.Project(point)
	if !ok {
		return frame.MotionVector{}
	}
	return frame.MotionVector{X: float32(ps - s), Y: float32(pt - t)}
}
