package scene

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/material"
)

// oklchToRGB converts OKLCH color values to RGB
// L: lightness (0-1), C: chroma (0-0.4+), H: hue (0-360 degrees)
func oklchToRGB(l, c, h float64) core.Vec3 {
	// Convert hue from degrees to radians
	hRad := h * math.Pi / 180.0

	// Convert from OKLCH to OKLAB
	a := c * math.Cos(hRad)
	b := c * math.Sin(hRad)

	// Convert from OKLAB to linear RGB
	// Using simplified approximation for OKLAB to RGB conversion
	// This is not perfectly accurate but good enough for our purposes

	// First convert to LMS
	l_ := l + 0.3963377774*a + 0.2158037573*b
	m_ := l - 0.1055613458*a - 0.0638541728*b
	s_ := l - 0.0894841775*a - 1.2914855480*b

	// Cube the values
	l_ = l_ * l_ * l_
	m_ = m_ * m_ * m_
	s_ = s_ * s_ * s_

	// Convert LMS to linear RGB
	r := +4.0767416621*l_ - 3.3077115913*m_ + 0.2309699292*s_
	g := -1.2684380046*l_ + 2.6097574011*m_ - 0.3413193965*s_
	blue := -0.0041960863*l_ - 0.7034186147*m_ + 1.7076147010*s_

	// Clamp to [0, 1] range
	r = math.Max(0, math.Min(1, r))
	g = math.Max(0, math.Min(1, g))
	blue = math.Max(0, math.Min(1, blue))

	return core.NewVec3(r, g, blue)
}

// NewManyLightsScene creates a grid of glossy spheres lit by a grid of small
// colored lights hovering above them. With hundreds of lights most pixels see
// only a few that matter, which is where resampling pays off.
func NewManyLightsScene(gridSize, lightGridSize int) *Scene {
	cameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(4.5, 6, 18),    // Position camera farther back and slightly lower
		LookAt:      core.NewVec3(4.5, 0.8, 4.5), // Look at center of grid, slightly lower
		Up:          core.NewVec3(0, 1, 0),
		Width:       800,
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
	}

	s := NewScene("many-lights", cameraConfig)

	s.AddShape(NewGroundQuad(core.NewVec3(4.5, 0, 4.5), 200, material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))))

	// Spheres fill a 9x9 area regardless of the grid size
	targetArea := 9.0
	spacing := targetArea / float64(max(1, gridSize-1))

	sphereRadius := spacing * 0.35
	sphereRadius = math.Max(0.02, math.Min(0.35, sphereRadius))

	// OKLCH parameters for color variation
	baseLightness := 0.65
	minChroma := 0.05
	maxChroma := 0.25

	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			x := float64(i)*spacing - targetArea/2.0 + 4.5
			z := float64(j)*spacing - targetArea/2.0 + 4.5
			position := core.NewVec3(x, sphereRadius, z)

			// Hue across X, chroma across Z
			hue := (float64(i) / float64(max(1, gridSize-1))) * 360.0
			chroma := minChroma + (float64(j)/float64(max(1, gridSize-1)))*(maxChroma-minChroma)
			lightness := baseLightness + 0.1*math.Sin(float64(i+j)*0.5)
			color := oklchToRGB(lightness, chroma, hue)

			// Alternate diffuse and glossy spheres
			var mat material.Material
			if (i+j)%2 == 0 {
				mat = material.NewLambertian(color)
			} else {
				mat = material.NewMetal(color, 0.05+0.1*float64((i+j)%3)/2.0)
			}
			s.AddShape(geometry.NewSphere(position, sphereRadius, mat))
		}
	}

	// Small downward-facing quad lights with saturated colors
	lightSpacing := (targetArea + 2) / float64(max(1, lightGridSize-1))
	lightSize := 0.15
	for i := 0; i < lightGridSize; i++ {
		for j := 0; j < lightGridSize; j++ {
			x := float64(i)*lightSpacing - (targetArea+2)/2 + 4.5
			z := float64(j)*lightSpacing - (targetArea+2)/2 + 4.5
			hue := math.Mod(float64(i*lightGridSize+j)*137.5, 360)
			color := oklchToRGB(0.75, 0.2, hue).Multiply(40)
			s.AddQuadLight(
				core.NewVec3(x-lightSize/2, 2.5, z-lightSize/2),
				core.NewVec3(lightSize, 0, 0),
				core.NewVec3(0, 0, lightSize),
				color,
			)
		}
	}

	return s
}
