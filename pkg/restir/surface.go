package restir

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/material"
)

// SurfaceData is the shading point seen through one pixel
type SurfaceData struct {
	Position core.Vec3
	Normal   core.Vec3 // Shading normal, facing the viewer
	ViewDir  core.Vec3 // Unit direction toward the viewer
	Lobe     material.Lobe
	Depth    float64 // Distance from the camera
	Valid    bool
}

// similar reports whether samples can be shared between two surfaces
func (s SurfaceData) similar(other SurfaceData, normalThreshold, depthThreshold float64) bool {
	if !s.Valid || !other.Valid {
		return false
	}
	if s.Normal.Dot(other.Normal) < normalThreshold {
		return false
	}
	return math.Abs(s.Depth-other.Depth) <= depthThreshold*s.Depth
}
