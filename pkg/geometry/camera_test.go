package geometry

import (
	"math"
	"testing"

	"github.com/df07/go-restir-di/pkg/core"
)

func testCameraConfig() CameraConfig {
	return CameraConfig{
		Center:      core.NewVec3(0, 1, -5),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       160,
		AspectRatio: 16.0 / 9.0,
		VFov:        45,
	}
}

func TestCamera_ProjectInvertsGetRay(t *testing.T) {
	camera := NewCamera(testCameraConfig())

	tests := []struct {
		s, t float64
	}{
		{0.5, 0.5},
		{0.1, 0.2},
		{0.9, 0.75},
		{0.0, 1.0},
	}
	for _, tt := range tests {
		ray := camera.GetRay(tt.s, tt.t)
		if math.Abs(ray.Direction.Length()-1) > 1e-12 {
			t.Fatalf("Expected unit direction, got %f", ray.Direction.Length())
		}
		s, tt2, ok := camera.Project(ray.At(7.5))
		if !ok {
			t.Fatalf("Expected point in front of the camera")
		}
		if math.Abs(s-tt.s) > 1e-9 || math.Abs(tt2-tt.t) > 1e-9 {
			t.Errorf("Expected (%f, %f), got (%f, %f)", tt.s, tt.t, s, tt2)
		}
	}
}

func TestCamera_ScreenOrientation(t *testing.T) {
	camera := NewCamera(testCameraConfig())

	// Top of the screen looks up; facing +Z with +Y up, the left of the screen is +X
	if camera.GetRay(0.5, 0).Direction.Y <= camera.GetRay(0.5, 1).Direction.Y {
		t.Error("Expected t=0 to be the top of the image")
	}
	if camera.GetRay(0, 0.5).Direction.X <= camera.GetRay(1, 0.5).Direction.X {
		t.Error("Expected s=0 to look toward +X")
	}
}

func TestCamera_ProjectBehind(t *testing.T) {
	camera := NewCamera(testCameraConfig())
	if _, _, ok := camera.Project(core.NewVec3(0, 1, -10)); ok {
		t.Error("Expected point behind the camera to be rejected")
	}
}

func TestCameraConfig_Orbit(t *testing.T) {
	config := testCameraConfig()
	orbited := config.Orbit(90)

	before := config.Center.Subtract(config.LookAt).Length()
	after := orbited.Center.Subtract(orbited.LookAt).Length()
	if math.Abs(before-after) > 1e-9 {
		t.Errorf("Expected orbit to keep distance %f, got %f", before, after)
	}
	if math.Abs(orbited.Center.Y-config.Center.Y) > 1e-12 {
		t.Errorf("Expected orbit to keep height, got %f", orbited.Center.Y)
	}
	if full := config.Orbit(360); full.Center.Subtract(config.Center).Length() > 1e-9 {
		t.Errorf("Expected full orbit to return to start, got %v", full.Center)
	}
	if h := config.Height(); h != 90 {
		t.Errorf("Expected height 90, got %d", h)
	}
}
