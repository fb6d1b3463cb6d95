package restir

import (
	"context"
	"testing"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/lights"
	"github.com/df07/go-restir-di/pkg/material"
	"github.com/df07/go-restir-di/pkg/scene"
	"github.com/df07/go-restir-di/pkg/vbuffer"
)

// testScene is a sphere on a ground plane lit by a small quad light and a
// dim sky
func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	config := geometry.CameraConfig{
		Center:      core.NewVec3(0, 2, 5),
		LookAt:      core.NewVec3(0, 0.3, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       32,
		AspectRatio: 4.0 / 3.0,
		VFov:        45,
	}
	s := scene.NewScene("restir-test", config)
	gray := material.NewLambertian(core.NewVec3(0.7, 0.7, 0.7))
	s.AddShape(scene.NewGroundQuad(core.NewVec3(0, 0, 0), 20, gray))
	s.AddShape(geometry.NewSphere(core.NewVec3(0, 0.5, 0), 0.5, material.NewMetal(core.NewVec3(0.8, 0.6, 0.4), 0.3)))
	// (1,0,0) × (0,0,1) points down
	s.AddQuadLight(core.NewVec3(-0.5, 3, -0.5), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1), core.NewVec3(15, 15, 15))
	s.AddPointSpotLight(core.NewVec3(2, 3, 2), core.NewVec3(0, 0, 0), core.NewVec3(20, 18, 15), 30, 5)
	s.SetEnvironment(lights.NewUniformInfiniteLight(core.NewVec3(0.05, 0.05, 0.08)))
	if err := s.Preprocess(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return s
}

func newTestDevice(t *testing.T, workers int) *compute.Device {
	t.Helper()
	device := compute.NewDevice(compute.DeviceOptions{Workers: workers, TileSize: 16})
	t.Cleanup(device.Close)
	return device
}

func newTestPipeline(t *testing.T, device *compute.Device, props Properties) *Pipeline {
	t.Helper()
	p, err := New(Options{Device: device, Properties: props})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

// renderInputs fills the visibility buffer, motion vectors and view
// directions for the scene camera
func renderInputs(t *testing.T, device *compute.Device, s *scene.Scene, width, height int) *frame.RenderData {
	t.Helper()
	data := frame.NewRenderData(width, height)
	camera := geometry.NewCameraForSize(s.CameraConfig, width, height)
	if err := vbuffer.NewGenerator(device).Render(context.Background(), s, camera, data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return data
}

func execute(t *testing.T, p *Pipeline, data *frame.RenderData) {
	t.Helper()
	if err := p.Execute(context.Background(), data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
