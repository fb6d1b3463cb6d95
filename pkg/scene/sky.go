package scene

import (
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/lights"
	"github.com/df07/go-restir-di/pkg/material"
)

// NewSkyScene creates an outdoor scene lit by an importance-sampled sky with
// a sun, plus a warm spot light aimed at the central sphere
func NewSkyScene() (*Scene, error) {
	cameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(0, 1.2, 4),
		LookAt:      core.NewVec3(0, 0.6, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       640,
		AspectRatio: 16.0 / 9.0,
		VFov:        45.0,
	}

	s := NewScene("sky", cameraConfig)

	sky, err := lights.NewSkyEnvironmentMap(256, 128,
		core.NewVec3(0.15, 0.3, 0.8),  // zenith
		core.NewVec3(0.7, 0.8, 0.95),  // horizon
		core.NewVec3(0.25, 0.22, 0.2), // ground
		core.NewVec3(0.5, 0.6, -0.4),  // sun direction
		core.NewVec3(400, 380, 340),   // sun color
		2.0,
	)
	if err != nil {
		return nil, err
	}
	s.SetEnvironment(sky)

	checker := material.NewTexturedLambertian(material.NewChecker(0.5,
		core.NewVec3(0.8, 0.8, 0.8), core.NewVec3(0.2, 0.2, 0.25)))
	s.AddShape(
		NewGroundQuad(core.NewVec3(0, 0, 0), 100, checker),
		geometry.NewSphere(core.NewVec3(0, 0.6, 0), 0.6, material.NewMix(
			material.NewLambertian(core.NewVec3(0.7, 0.3, 0.2)),
			material.NewMetal(core.NewVec3(0.95, 0.95, 0.95), 0.1), 0.4)),
		geometry.NewSphere(core.NewVec3(-1.5, 0.4, -0.5), 0.4, material.NewMetal(core.NewVec3(0.9, 0.7, 0.3), 0.25)),
		geometry.NewBox(core.NewVec3(1.5, 0.4, -0.3), core.NewVec3(0.4, 0.4, 0.4), 0.5, material.NewLambertian(core.NewVec3(0.2, 0.5, 0.3))),
		geometry.NewTriangle(core.NewVec3(-2.5, 0, -2), core.NewVec3(-0.5, 0, -2.5), core.NewVec3(-1.5, 1.8, -2.2),
			material.NewLambertian(core.NewVec3(0.6, 0.6, 0.7))),
	)

	s.AddPointSpotLight(core.NewVec3(2, 3, 2), core.NewVec3(0, 0.6, 0), core.NewVec3(30, 24, 16), 25, 8)

	return s, nil
}
