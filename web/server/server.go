package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/df07/go-restir-di/pkg/restir"
	"github.com/df07/go-restir-di/pkg/scene"
)

// Server handles web requests for the ReSTIR renderer
type Server struct {
	port int
	log  *slog.Logger
	mux  *http.ServeMux
}

// NewServer creates a new web server
func NewServer(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{port: port, log: logger, mux: http.NewServeMux()}

	// API endpoints
	s.mux.HandleFunc("GET /api/render", s.handleRender)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/scenes", s.handleScenes)
	s.mux.HandleFunc("GET /api/scene-config", s.handleSceneConfig)
	s.mux.HandleFunc("GET /api/inspect", s.handleInspect)
	return s
}

// Handler returns the request router
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until the listener fails
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("starting web server", "url", "http://localhost"+addr)
	return http.ListenAndServe(addr, s.mux)
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene      string            `json:"scene"`      // Scene id (e.g., "cornell-box")
	Width      int               `json:"width"`      // Image width
	Height     int               `json:"height"`     // Image height, 0 derives it from the camera aspect ratio
	Frames     int               `json:"frames"`     // Number of frames to stream
	Orbit      float64           `json:"orbit"`      // Camera orbit per frame in degrees
	Exposure   float64           `json:"exposure"`   // Tone mapping exposure
	Properties restir.Properties `json:"properties"` // Resampling configuration
}

// Parameter limits shared by parsing and /api/scene-config
const (
	minSize, maxSize         = 16, 2000
	minFrames, maxFrames     = 1, 1000
	minOrbit, maxOrbit       = -45.0, 45.0
	minExposure, maxExposure = 0.01, 100.0
)

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenes": scene.ListScenes()})
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = "cornell-box" // Default scene
	}

	sceneObj, err := createScene(sceneName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	camera := sceneObj.CameraConfig
	response := map[string]any{
		"scene":        sceneName,
		"width":        camera.Width,
		"height":       camera.Height(),
		"lights":       len(sceneObj.Lights),
		"activeLights": len(sceneObj.ActiveLights()),
		"restir":       restir.DefaultStaticParams().Properties(),
		"limits": map[string]any{
			"width":    map[string]int{"min": minSize, "max": maxSize},
			"height":   map[string]int{"min": minSize, "max": maxSize},
			"frames":   map[string]int{"min": minFrames, "max": maxFrames},
			"orbit":    map[string]float64{"min": minOrbit, "max": maxOrbit},
			"exposure": map[string]float64{"min": minExposure, "max": maxExposure},
		},
	}
	writeJSON(w, http.StatusOK, response)
}

// parseCommonSceneParams parses the scene and image size shared by render and inspect
func parseCommonSceneParams(values url.Values, req *RenderRequest) error {
	req.Scene = values.Get("scene")
	if req.Scene == "" {
		req.Scene = "cornell-box" // Default scene
	}

	var err error
	if req.Width, err = parseIntParam(values, "width", 400, minSize, maxSize); err != nil {
		return err
	}
	if values.Get("height") == "" {
		req.Height = 0
		return nil
	}
	req.Height, err = parseIntParam(values, "height", 0, minSize, maxSize)
	return err
}

// parseRenderRequest parses request parameters
func parseRenderRequest(values url.Values) (*RenderRequest, error) {
	req := &RenderRequest{}
	if err := parseCommonSceneParams(values, req); err != nil {
		return nil, err
	}

	var err error
	if req.Frames, err = parseIntParam(values, "frames", 16, minFrames, maxFrames); err != nil {
		return nil, err
	}
	if req.Orbit, err = parseFloatParam(values, "orbit", 0, minOrbit, maxOrbit); err != nil {
		return nil, err
	}
	if req.Exposure, err = parseFloatParam(values, "exposure", 1, minExposure, maxExposure); err != nil {
		return nil, err
	}
	if req.Properties, err = parseProperties(values); err != nil {
		return nil, err
	}
	return req, nil
}

// parseProperties picks the restir property keys out of the query. Values are
// typed by what they parse as: integer, float, boolean, then string.
func parseProperties(values url.Values) (restir.Properties, error) {
	props := restir.Properties{}
	keys := slices.Sorted(maps.Keys(restir.DefaultStaticParams().Properties()))
	for _, key := range keys {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		if i, err := strconv.Atoi(raw); err == nil {
			props[key] = i
		} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
			props[key] = f
		} else if b, err := strconv.ParseBool(raw); err == nil {
			props[key] = b
		} else {
			props[key] = raw
		}
	}
	if _, err := restir.ParseProperties(props, restir.DefaultStaticParams(), slog.New(slog.DiscardHandler)); err != nil {
		return nil, err
	}
	return props, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// createScene builds a built-in scene by id
func createScene(id string) (*scene.Scene, error) {
	return scene.NewByID(id)
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
