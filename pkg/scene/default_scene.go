package scene

import (
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/lights"
	"github.com/df07/go-restir-di/pkg/material"
)

// NewDefaultScene creates a default scene with spheres, ground, a sun-like
// sphere light and a gradient sky
func NewDefaultScene() *Scene {
	cameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(0, 0.75, 2), // Position camera higher and farther back
		LookAt:      core.NewVec3(0, 0.5, -1), // Look at the sphere center
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
	}

	s := NewScene("default", cameraConfig)

	lambertianGreen := material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0).Multiply(0.6))
	lambertianBlue := material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))
	lambertianRed := material.NewLambertian(core.NewVec3(0.65, 0.25, 0.2))
	metalSilver := material.NewMetal(core.NewVec3(0.8, 0.8, 0.8), 0.0)
	metalGold := material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.3)

	// Glossy coat over red: half diffuse, half polished
	coatedRed := material.NewMix(lambertianRed, material.NewMetal(core.NewVec3(0.9, 0.9, 0.9), 0.05), 0.3)

	s.AddSphereLight(
		core.NewVec3(30, 30.5, 15),     // position
		10,                             // radius
		core.NewVec3(15.0, 14.0, 13.0), // emission
	)
	s.AddShape(
		geometry.NewSphere(core.NewVec3(0, 0.5, -1), 0.5, coatedRed),
		geometry.NewSphere(core.NewVec3(-1, 0.5, -1), 0.5, metalSilver),
		geometry.NewSphere(core.NewVec3(1, 0.5, -1), 0.5, metalGold),
		geometry.NewSphere(core.NewVec3(-0.5, 0.2, -0.5), 0.2, lambertianBlue),
		NewGroundQuad(core.NewVec3(0, 0, 0), 10000.0, lambertianGreen),
	)

	s.SetEnvironment(lights.NewGradientInfiniteLight(
		core.NewVec3(0.5, 0.7, 1.0), // topColor (blue sky)
		core.NewVec3(1.0, 1.0, 1.0), // bottomColor (white ground)
	))

	return s
}
