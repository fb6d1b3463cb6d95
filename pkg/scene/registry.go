package scene

import (
	"fmt"
	"sort"
)

// SceneInfo describes a built-in scene
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	DisplayName string `json:"displayName"` // Human readable name
	Description string `json:"description"` // Optional description
}

type builder func() (*Scene, error)

var builtins = map[string]struct {
	info  SceneInfo
	build builder
}{
	"cornell-box": {
		info:  SceneInfo{ID: "cornell-box", DisplayName: "Cornell Box", Description: "Cornell box with two boxes and a ceiling quad light"},
		build: func() (*Scene, error) { return NewCornellScene(), nil },
	},
	"default": {
		info:  SceneInfo{ID: "default", DisplayName: "Default Scene", Description: "Spheres on a ground plane under a sphere light and gradient sky"},
		build: func() (*Scene, error) { return NewDefaultScene(), nil },
	},
	"many-lights": {
		info:  SceneInfo{ID: "many-lights", DisplayName: "Many Lights", Description: "Grid of spheres under 256 small colored quad lights"},
		build: func() (*Scene, error) { return NewManyLightsScene(10, 16), nil },
	},
	"sky": {
		info:  SceneInfo{ID: "sky", DisplayName: "Sky", Description: "Outdoor scene lit by an importance-sampled sky and a spot light"},
		build: NewSkyScene,
	},
}

// ListScenes returns the built-in scenes sorted by display name
func ListScenes() []SceneInfo {
	scenes := make([]SceneInfo, 0, len(builtins))
	for _, b := range builtins {
		scenes = append(scenes, b.info)
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})
	return scenes
}

// NewByID builds the built-in scene with the given id and applies its
// pending updates so it is ready to render
func NewByID(id string) (*Scene, error) {
	b, ok := builtins[id]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q", id)
	}
	s, err := b.build()
	if err != nil {
		return nil, fmt.Errorf("build scene %s: %w", id, err)
	}
	if err := s.Preprocess(); err != nil {
		return nil, fmt.Errorf("preprocess scene %s: %w", id, err)
	}
	return s, nil
}
