package scene

import (
	"fmt"
	"strconv"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/lights"
	"github.com/df07/go-restir-di/pkg/material"
)

// RenderSettings switches whole light categories on or off
type RenderSettings struct {
	UseEnvLight       bool // Infinite lights (environment map, sky)
	UseEmissiveLights bool // Area lights bound to scene geometry
	UseAnalyticLights bool // Point and spot lights
}

// DefaultRenderSettings enables every light category
func DefaultRenderSettings() RenderSettings {
	return RenderSettings{UseEnvLight: true, UseEmissiveLights: true, UseAnalyticLights: true}
}

// UpdateFlags report what changed in the scene since the last Update
type UpdateFlags uint32

const UpdateNone UpdateFlags = 0

const (
	UpdateGeometryChanged    UpdateFlags = 1 << iota // Shapes added or moved
	UpdateLightsChanged                              // Lights added or removed
	UpdateEnvironmentChanged                         // Environment light replaced
	UpdateRenderSettings                             // Light category switches changed
)

// Has reports whether any of the given flags are set
func (f UpdateFlags) Has(flags UpdateFlags) bool {
	return f&flags != 0
}

// Environment is an infinite light that can also be looked up along escaping rays
type Environment interface {
	lights.Light
	Emit(ray core.Ray) core.Vec3
}

// Scene contains all the elements needed for rendering
type Scene struct {
	Name         string
	CameraConfig geometry.CameraConfig
	Shapes       []geometry.Shape // Objects in the scene
	Lights       []lights.Light   // Area and analytic lights; the environment is held separately
	BVH          *geometry.BVH    // Acceleration structure for ray-object intersection

	settings    RenderSettings
	environment Environment
	shapeLights map[int]int // shape index -> index in Lights

	active       []lights.Light // lights enabled by the render settings
	activeIndex  map[int]int    // index in Lights -> index in active
	environIndex int            // index of the environment in active, -1 if none

	updates UpdateFlags
}

// NewScene creates an empty scene with every light category enabled
func NewScene(name string, camera geometry.CameraConfig) *Scene {
	return &Scene{
		Name:         name,
		CameraConfig: camera,
		settings:     DefaultRenderSettings(),
		shapeLights:  make(map[int]int),
		environIndex: -1,
		updates:      UpdateGeometryChanged | UpdateLightsChanged,
	}
}

// NewGroundQuad creates a large horizontal quad with its normal pointing up
func NewGroundQuad(center core.Vec3, size float64, mat material.Material) *geometry.Quad {
	corner := core.NewVec3(center.X-size/2, center.Y, center.Z-size/2)
	// (0,0,size) × (size,0,0) points along +Y
	u := core.NewVec3(0, 0, size)
	v := core.NewVec3(size, 0, 0)
	return geometry.NewQuad(corner, u, v, mat)
}

// AddShape adds non-emissive geometry
func (s *Scene) AddShape(shapes ...geometry.Shape) {
	s.Shapes = append(s.Shapes, shapes...)
	s.updates |= UpdateGeometryChanged
}

func (s *Scene) addAreaLight(light lights.Light, shape geometry.Shape) {
	s.shapeLights[len(s.Shapes)] = len(s.Lights)
	s.Shapes = append(s.Shapes, shape)
	s.Lights = append(s.Lights, light)
	s.updates |= UpdateGeometryChanged | UpdateLightsChanged
}

// AddQuadLight adds a rectangular area light to the scene
func (s *Scene) AddQuadLight(corner, u, v core.Vec3, emission core.Vec3) *lights.QuadLight {
	light := lights.NewQuadLight(corner, u, v, emission)
	s.addAreaLight(light, light.Quad)
	return light
}

// AddSphereLight adds a spherical light to the scene
func (s *Scene) AddSphereLight(center core.Vec3, radius float64, emission core.Vec3) *lights.SphereLight {
	light := lights.NewSphereLight(center, radius, emission)
	s.addAreaLight(light, light.Sphere)
	return light
}

// AddDiscLight adds a one-sided disc light to the scene
func (s *Scene) AddDiscLight(center, normal core.Vec3, radius float64, emission core.Vec3) *lights.DiscLight {
	light := lights.NewDiscLight(center, normal, radius, emission)
	s.addAreaLight(light, light.Disc)
	return light
}

// AddPointSpotLight adds an analytic spot light. It has no geometry.
func (s *Scene) AddPointSpotLight(from, to, emission core.Vec3, coneAngleDegrees, coneDeltaAngleDegrees float64) *lights.PointSpotLight {
	light := lights.NewPointSpotLight(from, to, emission, coneAngleDegrees, coneDeltaAngleDegrees)
	s.Lights = append(s.Lights, light)
	s.updates |= UpdateLightsChanged
	return light
}

// SetEnvironment replaces the environment light; nil removes it
func (s *Scene) SetEnvironment(env Environment) {
	s.environment = env
	s.updates |= UpdateEnvironmentChanged | UpdateLightsChanged
}

// Environment returns the environment light, or nil
func (s *Scene) Environment() Environment {
	return s.environment
}

// Settings returns the current render settings
func (s *Scene) Settings() RenderSettings {
	return s.settings
}

// SetRenderSettings changes which light categories are used
func (s *Scene) SetRenderSettings(settings RenderSettings) {
	if settings == s.settings {
		return
	}
	s.settings = settings
	s.updates |= UpdateRenderSettings
}

// Pending returns the changes not yet applied by Update
func (s *Scene) Pending() UpdateFlags {
	return s.updates
}

// Update applies pending changes: it rebuilds the BVH after geometry changes,
// preprocesses lights against the scene bounds and refreshes the active light
// list. It returns the flags that were pending.
func (s *Scene) Update() (UpdateFlags, error) {
	flags := s.updates
	if flags == UpdateNone && s.BVH != nil {
		return UpdateNone, nil
	}

	if flags.Has(UpdateGeometryChanged) || s.BVH == nil {
		s.BVH = geometry.NewBVH(s.Shapes)
	}

	all := s.Lights
	if s.environment != nil {
		all = append(all[:len(all):len(all)], s.environment)
	}
	for _, light := range all {
		if preprocessor, ok := light.(lights.Preprocessor); ok {
			if err := preprocessor.Preprocess(s.BVH.Center, s.BVH.Radius); err != nil {
				return flags, fmt.Errorf("preprocess %s light: %w", light.Type(), err)
			}
		}
	}

	s.refreshActiveLights()
	s.updates = UpdateNone

	core.Logger().Debug("scene updated",
		"scene", s.Name,
		"shapes", len(s.Shapes),
		"lights", len(s.Lights),
		"activeLights", len(s.active),
		"flags", uint32(flags))
	return flags, nil
}

// Preprocess prepares the scene for rendering
func (s *Scene) Preprocess() error {
	_, err := s.Update()
	return err
}

func (s *Scene) enabled(l lights.Light) bool {
	switch l.Type() {
	case lights.LightTypeInfinite:
		return s.settings.UseEnvLight
	case lights.LightTypePoint:
		return s.settings.UseAnalyticLights
	default:
		return s.settings.UseEmissiveLights
	}
}

func (s *Scene) refreshActiveLights() {
	s.active = make([]lights.Light, 0, len(s.Lights)+1)
	s.activeIndex = make(map[int]int, len(s.Lights))
	s.environIndex = -1
	for i, l := range s.Lights {
		if !s.enabled(l) {
			continue
		}
		s.activeIndex[i] = len(s.active)
		s.active = append(s.active, l)
	}
	if s.environment != nil && s.settings.UseEnvLight {
		s.environIndex = len(s.active)
		s.active = append(s.active, s.environment)
	}
}

// ActiveLights returns the lights enabled by the render settings, in a
// stable order. Reservoir samples index into this list.
func (s *Scene) ActiveLights() []lights.Light {
	return s.active
}

// LightForShape returns the active light index bound to a shape, if any
func (s *Scene) LightForShape(shapeID int) (int, bool) {
	lightIdx, ok := s.shapeLights[shapeID]
	if !ok {
		return -1, false
	}
	active, ok := s.activeIndex[lightIdx]
	return active, ok
}

// EnvironmentIndex returns the active index of the environment light, or -1
func (s *Scene) EnvironmentIndex() int {
	return s.environIndex
}

// Background returns the radiance seen along a ray that leaves the scene
func (s *Scene) Background(ray core.Ray) core.Vec3 {
	if s.environment == nil || !s.settings.UseEnvLight {
		return core.Vec3{}
	}
	return s.environment.Emit(ray)
}

// Defines describes which light categories are present and enabled
func (s *Scene) Defines() map[string]string {
	var env, emissive, analytic bool
	for _, l := range s.active {
		switch l.Type() {
		case lights.LightTypeInfinite:
			env = true
		case lights.LightTypePoint:
			analytic = true
		default:
			emissive = true
		}
	}
	return map[string]string{
		"USE_ENV_LIGHT":       boolDefine(env),
		"USE_EMISSIVE_LIGHTS": boolDefine(emissive),
		"USE_ANALYTIC_LIGHTS": boolDefine(analytic),
		"SCENE_LIGHT_COUNT":   strconv.Itoa(len(s.active)),
	}
}

func boolDefine(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
