package geometry

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
)

// CameraConfig describes a pinhole camera
type CameraConfig struct {
	Center      core.Vec3 // Camera position
	LookAt      core.Vec3 // Point the camera looks at
	Up          core.Vec3 // Up direction
	Width       int       // Default image width in pixels
	AspectRatio float64   // Width / height
	VFov        float64   // Vertical field of view in degrees
}

// Height returns the image height implied by Width and AspectRatio
func (c CameraConfig) Height() int {
	if c.AspectRatio <= 0 {
		return c.Width
	}
	return max(1, int(float64(c.Width)/c.AspectRatio))
}

// Orbit returns a copy of the config with the camera rotated about the Y axis
// through LookAt by the given angle in degrees
func (c CameraConfig) Orbit(degrees float64) CameraConfig {
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	offset := c.Center.Subtract(c.LookAt)
	rotated := core.NewVec3(cos*offset.X+sin*offset.Z, offset.Y, -sin*offset.X+cos*offset.Z)
	c.Center = c.LookAt.Add(rotated)
	return c
}

// Camera generates primary rays and projects world points back to the screen.
// Screen coordinates (s, t) run left to right and top to bottom in [0,1].
type Camera struct {
	origin         core.Vec3
	u, v, w        core.Vec3 // right, up, backward
	viewportWidth  float64
	viewportHeight float64
}

// NewCamera creates a camera from a config
func NewCamera(config CameraConfig) *Camera {
	aspect := config.AspectRatio
	if aspect <= 0 {
		aspect = 1
	}
	h := math.Tan(config.VFov * math.Pi / 360)
	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	return &Camera{
		origin:         config.Center,
		u:              u,
		v:              v,
		w:              w,
		viewportHeight: 2 * h,
		viewportWidth:  2 * h * aspect,
	}
}

// NewCameraForSize creates a camera whose aspect ratio matches the image size
func NewCameraForSize(config CameraConfig, width, height int) *Camera {
	config.AspectRatio = float64(width) / float64(height)
	return NewCamera(config)
}

// Origin returns the camera position
func (c *Camera) Origin() core.Vec3 {
	return c.origin
}

// GetRay generates a ray through screen coordinates (s, t). The direction is
// unit length so hit distances are world distances.
func (c *Camera) GetRay(s, t float64) core.Ray {
	dir := c.w.Negate().
		Add(c.u.Multiply((s - 0.5) * c.viewportWidth)).
		Add(c.v.Multiply((0.5 - t) * c.viewportHeight))
	return core.NewRay(c.origin, dir.Normalize())
}

// Project maps a world point to screen coordinates. ok is false for points
// behind the camera.
func (c *Camera) Project(point core.Vec3) (s, t float64, ok bool) {
	d := point.Subtract(c.origin)
	z := -d.Dot(c.w)
	if z <= 1e-9 {
		return 0, 0, false
	}
	x := d.Dot(c.u) / z
	y := d.Dot(c.v) / z
	return x/c.viewportWidth + 0.5, 0.5 - y/c.viewportHeight, true
}
