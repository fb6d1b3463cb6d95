package vbuffer

import (
	"context"
	"math"
	"testing"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/material"
	"github.com/df07/go-restir-di/pkg/scene"
)

func sphereScene(t *testing.T) *scene.Scene {
	t.Helper()
	config := geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 5),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       16,
		AspectRatio: 1,
		VFov:        30,
	}
	s := scene.NewScene("sphere", config)
	s.AddShape(geometry.NewSphere(core.NewVec3(0, 0, 0), 1, material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))))
	if err := s.Preprocess(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return s
}

func TestGenerator_HitsAndMisses(t *testing.T) {
	s := sphereScene(t)
	device := compute.NewDevice(compute.DeviceOptions{Workers: 2})
	defer device.Close()

	data := frame.NewRenderData(16, 16)
	g := NewGenerator(device)
	camera := geometry.NewCameraForSize(s.CameraConfig, 16, 16)
	if err := g.Render(context.Background(), s, camera, data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	id, depth, ok := data.VBuffer.At(8, 8).Unpack()
	if !ok || id != 0 {
		t.Fatalf("Expected center pixel to hit shape 0, got id=%d ok=%v", id, ok)
	}
	if math.Abs(float64(depth)-4) > 0.05 {
		t.Errorf("Expected depth near 4, got %v", depth)
	}
	if _, _, ok := data.VBuffer.At(0, 0).Unpack(); ok {
		t.Errorf("Expected corner pixel to miss")
	}

	// View direction points back toward the camera
	view := data.ViewDir.At(8, 8)
	if view.Z <= 0.9 {
		t.Errorf("Expected view direction toward +Z, got %v", view)
	}

	// First frame has no history, so there is no motion
	if mv := data.MotionVectors.At(8, 8); mv != (frame.MotionVector{}) {
		t.Errorf("Expected zero motion on the first frame, got %v", mv)
	}
}

func TestGenerator_MotionVectorsFollowCamera(t *testing.T) {
	s := sphereScene(t)
	device := compute.NewDevice(compute.DeviceOptions{Workers: 2})
	defer device.Close()

	data := frame.NewRenderData(16, 16)
	g := NewGenerator(device)

	first := geometry.NewCameraForSize(s.CameraConfig, 16, 16)
	if err := g.Render(context.Background(), s, first, data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Static camera: reprojection lands on the same pixel
	if err := g.Render(context.Background(), s, first, data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mv := data.MotionVectors.At(8, 8); math.Abs(float64(mv.X)) > 1e-5 || math.Abs(float64(mv.Y)) > 1e-5 {
		t.Errorf("Expected zero motion for a static camera, got %v", mv)
	}

	moved := geometry.NewCameraForSize(s.CameraConfig.Orbit(10), 16, 16)
	if err := g.Render(context.Background(), s, moved, data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mv := data.MotionVectors.At(8, 8); math.Abs(float64(mv.X)) < 1e-4 {
		t.Errorf("Expected horizontal motion after orbiting, got %v", mv)
	}

	g.Reset()
	if err := g.Render(context.Background(), s, moved, data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mv := data.MotionVectors.At(8, 8); mv != (frame.MotionVector{}) {
		t.Errorf("Expected zero motion after reset, got %v", mv)
	}
}

func TestGenerator_RequiresBVH(t *testing.T) {
	s := scene.NewScene("empty", geometry.CameraConfig{Width: 4, AspectRatio: 1, VFov: 40, Up: core.NewVec3(0, 1, 0), Center: core.NewVec3(0, 0, 1)})
	device := compute.NewDevice(compute.DeviceOptions{Workers: 1})
	defer device.Close()

	g := NewGenerator(device)
	err := g.Render(context.Background(), s, geometry.NewCamera(s.CameraConfig), frame.NewRenderData(4, 4))
	if err != ErrNoBVH {
		t.Errorf("Expected ErrNoBVH, got %v", err)
	}
}
