package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/material"
	"github.com/df07/go-restir-di/pkg/restir"
	"github.com/df07/go-restir-di/pkg/scene"
	"github.com/df07/go-restir-di/pkg/vbuffer"
)

// compositePass is the dispatch name of the accumulation kernel
const compositePass = "composite"

// Config contains configuration for rendering a frame sequence
type Config struct {
	Width        int               // Image width (0 = scene camera width)
	Height       int               // Image height (0 = derived from the scene aspect ratio)
	Frames       int               // Number of frames in the sequence
	OrbitDegrees float64           // Camera rotation about the look-at point per frame
	TileSize     int               // Size of each dispatch tile
	NumWorkers   int               // Number of parallel workers (0 = use CPU count)
	Accumulate   bool              // Average frames while camera and lighting are static
	Properties   restir.Properties // Resampling configuration
	Logger       *slog.Logger      // nil uses core.Logger
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		Frames:     8,
		TileSize:   compute.DefaultTileSize,
		NumWorkers: 0, // Auto-detect CPU count
		Accumulate: true,
	}
}

// Renderer drives the visibility pass, the resampling pipeline and the final
// composite for a sequence of frames
type Renderer struct {
	scene         *scene.Scene
	baseCamera    geometry.CameraConfig
	width, height int
	config        Config
	log           *slog.Logger

	device    *compute.Device
	generator *vbuffer.Generator
	pipeline  *restir.Pipeline
	data      *frame.RenderData
	output    *frame.Texture[frame.RGBA]

	pixelStats  []PixelStats // Accumulated radiance per pixel
	accumulated int          // Frames in pixelStats
	frame       int
}

// New creates a renderer for sc. The scene camera is the orbit's starting
// point; it is restored by Close.
func New(sc *scene.Scene, config Config) (*Renderer, error) {
	if sc == nil {
		return nil, restir.ErrNoScene
	}
	width, height := config.Width, config.Height
	if width <= 0 {
		width = sc.CameraConfig.Width
	}
	if height <= 0 {
		camera := sc.CameraConfig
		camera.Width = width
		height = camera.Height()
	}

	logger := config.Logger
	if logger == nil {
		logger = core.Logger()
	}

	device := compute.NewDevice(compute.DeviceOptions{Workers: config.NumWorkers, TileSize: config.TileSize})
	pipeline, err := restir.New(restir.Options{Device: device, Properties: config.Properties, Logger: logger})
	if err != nil {
		device.Close()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	if err := sc.Preprocess(); err != nil {
		device.Close()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	pipeline.SetScene(sc)

	return &Renderer{
		scene:      sc,
		baseCamera: sc.CameraConfig,
		width:      width,
		height:     height,
		config:     config,
		log:        logger,
		device:     device,
		generator:  vbuffer.NewGenerator(device),
		pipeline:   pipeline,
		data:       frame.NewRenderData(width, height),
		output:     frame.NewTexture[frame.RGBA](width, height),
		pixelStats: make([]PixelStats, width*height),
	}, nil
}

// Pipeline exposes the resampling pipeline, e.g. to stage new properties
func (r *Renderer) Pipeline() *restir.Pipeline { return r.pipeline }

// Size returns the image dimensions
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Close stops the workers and restores the scene camera
func (r *Renderer) Close() {
	r.scene.CameraConfig = r.baseCamera
	r.pipeline.Close()
	r.device.Close()
}

// FrameResult contains the result of a single frame
type FrameResult struct {
	Frame  int
	Color  *frame.Texture[frame.RGBA] // Composited, accumulated radiance; owned by the receiver
	Stats  RenderStats
	IsLast bool
}

// RenderFrame renders the next frame of the sequence. Kernel specialization
// errors are returned together with a valid result.
func (r *Renderer) RenderFrame(ctx context.Context) (FrameResult, error) {
	start := time.Now()
	ctx, span := core.StartSpan(ctx, "renderer.RenderFrame", attribute.Int("frame", r.frame))
	defer span.End()

	moving := r.config.OrbitDegrees != 0
	if moving {
		r.scene.CameraConfig = r.baseCamera.Orbit(float64(r.frame) * r.config.OrbitDegrees)
	}
	camera := geometry.NewCameraForSize(r.scene.CameraConfig, r.width, r.height)

	if err := r.generator.Render(ctx, r.scene, camera, r.data); err != nil {
		core.FailSpan(span, err, "visibility pass failed")
		return FrameResult{}, fmt.Errorf("renderer: frame %d: %w", r.frame, err)
	}

	r.data.Refresh = 0
	execErr := r.pipeline.Execute(ctx, r.data)
	if execErr != nil && !errors.Is(execErr, restir.ErrKernelSpecialization) {
		core.FailSpan(span, execErr, "pipeline failed")
		return FrameResult{}, fmt.Errorf("renderer: frame %d: %w", r.frame, execErr)
	}

	reset := !r.config.Accumulate || moving || r.data.Refresh != 0 || r.accumulated == 0
	if reset {
		r.accumulated = 0
	}
	if err := r.device.Dispatch(ctx, compositePass, r.width, r.height, r.composite(camera, reset)); err != nil {
		core.FailSpan(span, err, "composite failed")
		return FrameResult{}, fmt.Errorf("renderer: frame %d: %w", r.frame, err)
	}
	r.accumulated++

	stats := r.collectStats(time.Since(start))
	r.log.Debug("frame rendered",
		"frame", r.frame,
		"accumulated", r.accumulated,
		"litPixels", stats.LitPixels,
		"averageLuminance", stats.AverageLuminance,
		"duration", stats.Duration)

	result := FrameResult{
		Frame:  r.frame,
		Color:  r.output.Clone(),
		Stats:  stats,
		IsLast: r.config.Frames > 0 && r.frame+1 >= r.config.Frames,
	}
	r.frame++
	return result, execErr
}

// composite adds what the resampled direct lighting cannot show, emitters
// seen directly and the background behind misses, then accumulates
func (r *Renderer) composite(camera *geometry.Camera, reset bool) compute.Kernel {
	shapes := r.scene.BVH.Shapes()
	return func(x, y int) {
		ray := camera.GetRay((float64(x)+0.5)/float64(r.width), (float64(y)+0.5)/float64(r.height))

		c := r.data.Color.At(x, y)
		radiance := core.NewVec3(float64(c.R), float64(c.G), float64(c.B))
		if id, _, ok := r.data.VBuffer.At(x, y).Unpack(); !ok {
			radiance = radiance.Add(r.scene.Background(ray))
		} else if id < len(shapes) {
			var hit material.HitRecord
			if shapes[id].Hit(ray, 1e-4, math.Inf(1), &hit) && hit.FrontFace {
				if emitter, ok := hit.Material.(material.Emitter); ok {
					radiance = radiance.Add(emitter.Emit(ray))
				}
			}
		}

		i := y*r.width + x
		if reset {
			r.pixelStats[i] = PixelStats{}
		}
		r.pixelStats[i].AddSample(radiance)
		avg := r.pixelStats[i].GetColor()
		r.output.Set(x, y, frame.RGBA{R: float32(avg.X), G: float32(avg.Y), B: float32(avg.Z), A: 1})
	}
}

// RenderSequence renders Config.Frames frames, streaming each result. The
// caller should read from both channels; the error channel receives at most
// one value and both close when rendering stops.
func (r *Renderer) RenderSequence(ctx context.Context) (<-chan FrameResult, <-chan error) {
	frameChan := make(chan FrameResult, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(frameChan)
		defer close(errChan)

		r.log.Info("starting frame sequence",
			"scene", r.scene.Name,
			"frames", r.config.Frames,
			"width", r.width,
			"height", r.height)

		var specErr error
		for range r.config.Frames {
			// Check if the client went away before starting this frame
			select {
			case <-ctx.Done():
				r.log.Info("rendering cancelled", "frame", r.frame)
				errChan <- ctx.Err()
				return
			default:
			}

			result, err := r.RenderFrame(ctx)
			if err != nil {
				if !errors.Is(err, restir.ErrKernelSpecialization) {
					errChan <- err
					return
				}
				specErr = err
			}

			select {
			case frameChan <- result:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
		if specErr != nil {
			errChan <- specErr
		}
	}()

	return frameChan, errChan
}
