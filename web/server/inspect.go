package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/material"
	"github.com/df07/go-restir-di/pkg/renderer"
	"github.com/df07/go-restir-di/pkg/reservoir"
	"github.com/df07/go-restir-di/pkg/scene"
)

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	Hit          bool           `json:"hit"`
	MaterialType string         `json:"materialType"`
	GeometryType string         `json:"geometryType"`
	Point        [3]float64     `json:"point"`
	Normal       [3]float64     `json:"normal"`
	Distance     float64        `json:"distance"`
	FrontFace    bool           `json:"frontFace"`
	Properties   map[string]any `json:"properties"`
	Reservoir    *ReservoirInfo `json:"reservoir,omitempty"`
}

// ReservoirInfo is the final reservoir of the inspected pixel
type ReservoirInfo struct {
	Frames    int        `json:"frames"` // Frames rendered before reading the reservoir
	Light     int        `json:"light"`  // Index into the active light list, -1 if empty
	LightType string     `json:"lightType"`
	UV        [2]float64 `json:"uv"`
	TargetPDF float64    `json:"targetPdf"`
	WSum      float64    `json:"wSum"`
	M         int        `json:"m"`
	W         float64    `json:"w"`
}

func vec3(v core.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func hexColor(c core.Vec3) string {
	clamp := func(x float64) int { return int(max(0, min(1, x)) * 255) }
	return fmt.Sprintf("#%02x%02x%02x", clamp(c.X), clamp(c.Y), clamp(c.Z))
}

// extractMaterialInfo extracts detailed material information with type assertions
func extractMaterialInfo(mat material.Material) (string, map[string]any) {
	properties := make(map[string]any)

	switch m := mat.(type) {
	case *material.Lambertian:
		switch albedo := m.Albedo.(type) {
		case *material.SolidColor:
			properties["albedo"] = vec3(albedo.Color)
			properties["color"] = hexColor(albedo.Color)
		case *material.Checker:
			properties["checkerSize"] = albedo.Size
			properties["even"] = hexColor(albedo.Even)
			properties["odd"] = hexColor(albedo.Odd)
		}
		return "lambertian", properties

	case *material.Metal:
		properties["albedo"] = vec3(m.Albedo)
		properties["color"] = hexColor(m.Albedo)
		properties["fuzzness"] = m.Fuzzness
		return "metal", properties

	case *material.Emissive:
		properties["emission"] = vec3(m.Emission)
		properties["color"] = hexColor(m.Emission)
		return "emissive", properties

	case *material.Mix:
		material1Type, material1Props := extractMaterialInfo(m.Material1)
		material2Type, material2Props := extractMaterialInfo(m.Material2)
		properties["material1"] = map[string]any{"type": material1Type, "properties": material1Props}
		properties["material2"] = map[string]any{"type": material2Type, "properties": material2Props}
		properties["ratio"] = m.Ratio
		properties["description"] = fmt.Sprintf("%.0f%% %s, %.0f%% %s",
			(1-m.Ratio)*100, material1Type, m.Ratio*100, material2Type)
		return "mixed", properties

	default:
		return "unknown", properties
	}
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(shape geometry.Shape) (string, map[string]any) {
	properties := make(map[string]any)

	switch geom := shape.(type) {
	case *geometry.Sphere:
		properties["center"] = vec3(geom.Center)
		properties["radius"] = geom.Radius
		return "sphere", properties

	case *geometry.Quad:
		properties["corner"] = vec3(geom.Corner)
		properties["u"] = vec3(geom.U)
		properties["v"] = vec3(geom.V)
		properties["normal"] = vec3(geom.Normal)
		properties["area"] = geom.Area()
		return "quad", properties

	case *geometry.Disc:
		properties["center"] = vec3(geom.Center)
		properties["normal"] = vec3(geom.Normal)
		properties["radius"] = geom.Radius
		return "disc", properties

	case *geometry.Box:
		properties["center"] = vec3(geom.Center)
		properties["size"] = vec3(geom.Size)
		properties["rotationY"] = geom.Rotation
		return "box", properties

	case *geometry.Triangle:
		properties["vertices"] = [3][3]float64{vec3(geom.V0), vec3(geom.V1), vec3(geom.V2)}
		return "triangle", properties

	default:
		return "unknown", properties
	}
}

// InspectResult contains information about the object seen through a pixel
type InspectResult struct {
	Hit       bool
	HitRecord material.HitRecord
	Shape     geometry.Shape
}

// inspectPixel casts a ray through the center of the pixel and returns the
// first object hit. The scene must be preprocessed.
func inspectPixel(sceneObj *scene.Scene, width, height, pixelX, pixelY int) InspectResult {
	if sceneObj.BVH == nil {
		return InspectResult{}
	}
	camera := geometry.NewCameraForSize(sceneObj.CameraConfig, width, height)
	ray := camera.GetRay((float64(pixelX)+0.5)/float64(width), (float64(pixelY)+0.5)/float64(height))

	var hit material.HitRecord
	if !sceneObj.BVH.Hit(ray, 1e-4, math.Inf(1), &hit) {
		return InspectResult{}
	}
	var shape geometry.Shape
	if shapes := sceneObj.BVH.Shapes(); hit.ShapeID >= 0 && hit.ShapeID < len(shapes) {
		shape = shapes[hit.ShapeID]
	}
	return InspectResult{Hit: true, HitRecord: hit, Shape: shape}
}

// reservoirInfo describes a final reservoir in terms of the scene's active lights
func reservoirInfo(sceneObj *scene.Scene, r reservoir.Reservoir, frames int) *ReservoirInfo {
	info := &ReservoirInfo{
		Frames:    frames,
		Light:     -1,
		TargetPDF: r.TargetPDF,
		WSum:      r.WSum,
		M:         r.M,
		W:         r.W,
	}
	if !r.HasSample() {
		return info
	}
	info.Light = int(r.Sample.Light)
	info.UV = [2]float64{r.Sample.UV.X, r.Sample.UV.Y}
	if active := sceneObj.ActiveLights(); info.Light < len(active) {
		info.LightType = string(active[info.Light].Type())
	}
	return info
}

// handleInspect renders a few frames and reports the surface and the final
// reservoir of one pixel
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	inspectReq := &RenderRequest{}
	if err := parseCommonSceneParams(values, inspectReq); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid scene parameters: " + err.Error()})
		return
	}
	frames, err := parseIntParam(values, "frames", 1, minFrames, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	props, err := parseProperties(values)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	pixelX, err := strconv.Atoi(values.Get("x"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid x coordinate"})
		return
	}
	pixelY, err := strconv.Atoi(values.Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid y coordinate"})
		return
	}

	sceneObj, err := createScene(inspectReq.Scene)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	config := renderer.DefaultConfig()
	config.Width = inspectReq.Width
	config.Height = inspectReq.Height
	config.Frames = frames
	config.Properties = props
	config.Logger = s.log
	rend, err := renderer.New(sceneObj, config)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer rend.Close()

	width, height := rend.Size()
	if pixelX < 0 || pixelX >= width || pixelY < 0 || pixelY >= height {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Pixel coordinates out of bounds"})
		return
	}

	result := inspectPixel(sceneObj, width, height, pixelX, pixelY)
	if !result.Hit {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false})
		return
	}

	for range frames {
		if _, err := rend.RenderFrame(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}
	final := rend.Pipeline().Reservoirs()

	materialType, materialProps := extractMaterialInfo(result.HitRecord.Material)
	geometryType, geometryProps := extractGeometryInfo(result.Shape)

	response := InspectResponse{
		Hit:          true,
		MaterialType: materialType,
		GeometryType: geometryType,
		Point:        vec3(result.HitRecord.Point),
		Normal:       vec3(result.HitRecord.Normal),
		Distance:     result.HitRecord.T,
		FrontFace:    result.HitRecord.FrontFace,
		Properties:   map[string]any{"material": materialProps, "geometry": geometryProps},
		Reservoir:    reservoirInfo(sceneObj, final[pixelY*width+pixelX], frames),
	}
	writeJSON(w, http.StatusOK, response)
}
