package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/loaders"
	"github.com/df07/go-restir-di/pkg/renderer"
	"github.com/df07/go-restir-di/pkg/restir"
	"github.com/df07/go-restir-di/pkg/scene"
)

// options holds the parsed command line
type options struct {
	scene      string
	width      int
	height     int
	frames     int
	orbit      float64
	workers    int
	config     string
	envMap     string
	envScale   float64
	mode       string
	bias       string
	candidates int
	iterations int
	neighbors  int
	radius     float64
	sampler    string
	debugView  string
	format     string
	output     string
	allFrames  bool
	exposure   float64
	verbose    bool
	list       bool
}

func parseFlags(args []string) (options, *flag.FlagSet, error) {
	var o options
	fs := flag.NewFlagSet("restir", flag.ContinueOnError)
	fs.StringVar(&o.scene, "scene", "default", "Built-in scene id (see -list)")
	fs.IntVar(&o.width, "width", 0, "Image width (0 = scene default)")
	fs.IntVar(&o.height, "height", 0, "Image height (0 = from scene aspect ratio)")
	fs.IntVar(&o.frames, "frames", 8, "Number of frames to render")
	fs.Float64Var(&o.orbit, "orbit", 0, "Camera orbit per frame in degrees (0 = static, frames accumulate)")
	fs.IntVar(&o.workers, "workers", 0, "Worker goroutines (0 = CPU count)")
	fs.StringVar(&o.config, "config", "", "JSON file of restir properties, applied before the flags below")
	fs.StringVar(&o.envMap, "envmap", "", "Environment map image replacing the scene environment")
	fs.Float64Var(&o.envScale, "envscale", 1, "Radiance scale of -envmap")
	fs.StringVar(&o.mode, "mode", "", "Resampling mode: NoResampling, Spatial, Temporal, Spatiotemporal")
	fs.StringVar(&o.bias, "bias", "", "Bias mode: Biased, UnbiasedNaive, UnbiasedMIS")
	fs.IntVar(&o.candidates, "candidates", 0, "Initial light candidates per pixel")
	fs.IntVar(&o.iterations, "iterations", 0, "Spatial reuse iterations")
	fs.IntVar(&o.neighbors, "neighbors", 0, "Spatial neighbors per iteration")
	fs.Float64Var(&o.radius, "radius", 0, "Spatial reuse radius in pixels")
	fs.StringVar(&o.sampler, "sampler", "", "Light sampler: uniform, power, lightBVH")
	fs.StringVar(&o.debugView, "debug", "", "Debug view: none, reservoirM, weight, lightIndex, normal")
	fs.StringVar(&o.format, "format", "png", "Output format: png or tiff (16-bit)")
	fs.StringVar(&o.output, "output", "output", "Output directory")
	fs.BoolVar(&o.allFrames, "all-frames", false, "Save every frame instead of only the last")
	fs.Float64Var(&o.exposure, "exposure", 1, "Exposure multiplier applied before gamma")
	fs.BoolVar(&o.verbose, "v", false, "Verbose (debug) logging")
	fs.BoolVar(&o.list, "list", false, "List the built-in scenes and exit")
	err := fs.Parse(args)
	return o, fs, err
}

// buildProperties merges the -config file with the individual flags; flags win
func buildProperties(o options) (restir.Properties, error) {
	props := restir.Properties{}
	if o.config != "" {
		raw, err := os.ReadFile(o.config)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(raw, &props); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", o.config, err)
		}
	}

	setString := func(key, v string) {
		if v != "" {
			props[key] = v
		}
	}
	setInt := func(key string, v int) {
		if v > 0 {
			props[key] = v
		}
	}
	setString(restir.KeyMode, o.mode)
	setString(restir.KeyBiasMode, o.bias)
	setString(restir.KeyEmissiveSampler, o.sampler)
	setString(restir.KeyDebugView, o.debugView)
	setInt(restir.KeyCandidateCount, o.candidates)
	setInt(restir.KeySpatialIterations, o.iterations)
	setInt(restir.KeySpatialNeighbors, o.neighbors)
	if o.radius > 0 {
		props[restir.KeySpatialRadius] = o.radius
	}

	// Reject bad values up front instead of logging them mid-render
	if _, err := restir.ParseProperties(props, restir.DefaultStaticParams(), slog.New(slog.DiscardHandler)); err != nil {
		return nil, err
	}
	return props, nil
}

// createScene builds a built-in scene, optionally swapping in an environment map
func createScene(id, envMap string, envScale float64) (*scene.Scene, error) {
	sc, err := scene.NewByID(id)
	if err != nil {
		return nil, err
	}
	if envMap != "" {
		env, err := loaders.LoadEnvironmentMap(envMap, envScale)
		if err != nil {
			return nil, err
		}
		sc.SetEnvironment(env)
	}
	return sc, nil
}

// outputFilename names a frame image inside the scene's output directory
func outputFilename(dir, sceneID string, frameIndex int, format string) (string, error) {
	var ext string
	switch format {
	case "png":
		ext = ".png"
	case "tiff", "tif":
		ext = ".tiff"
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
	return filepath.Join(dir, sceneID, fmt.Sprintf("frame_%04d%s", frameIndex, ext)), nil
}

// saveFrame tone maps a color texture and writes it to filename
func saveFrame(filename string, color *frame.Texture[frame.RGBA], tm frame.ToneMap) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	var img image.Image
	switch filepath.Ext(filename) {
	case ".tiff":
		img = frame.ToImage16(color, tm)
	default:
		img = frame.ToImage(color, tm)
	}
	return loaders.SaveImage(filename, img)
}

func printScenes() {
	fmt.Println("Available scenes:")
	for _, info := range scene.ListScenes() {
		fmt.Printf("  %-12s %s\n", info.ID, info.Description)
	}
}

func printHelp(fs *flag.FlagSet) {
	fmt.Println("ReSTIR direct lighting renderer")
	fmt.Println("Usage: restir [options]")
	fmt.Println()
	fmt.Println("Options:")
	fs.SetOutput(os.Stdout)
	fs.PrintDefaults()
	fmt.Println()
	printScenes()
	fmt.Println()
	fmt.Println("Output will be saved to <output>/<scene>/frame_<n>.<format>")
}

func run(ctx context.Context, o options) error {
	props, err := buildProperties(o)
	if err != nil {
		return err
	}
	sc, err := createScene(o.scene, o.envMap, o.envScale)
	if err != nil {
		return err
	}

	config := renderer.DefaultConfig()
	config.Width = o.width
	config.Height = o.height
	config.Frames = o.frames
	config.OrbitDegrees = o.orbit
	config.NumWorkers = o.workers
	config.Properties = props

	r, err := renderer.New(sc, config)
	if err != nil {
		return err
	}
	defer r.Close()

	tm := frame.DefaultToneMap()
	tm.Exposure = o.exposure
	width, height := r.Size()
	slog.Info("rendering", "scene", sc.Name, "width", width, "height", height, "frames", o.frames)

	start := time.Now()
	frames, errs := r.RenderSequence(ctx)
	var last renderer.FrameResult
	for result := range frames {
		slog.Info("frame complete",
			"frame", result.Frame,
			"litPixels", result.Stats.LitPixels,
			"averageM", result.Stats.AverageM,
			"accumulated", result.Stats.AccumulatedFrames,
			"duration", result.Stats.Duration)
		last = result
		if o.allFrames || result.IsLast {
			filename, err := outputFilename(o.output, o.scene, result.Frame, o.format)
			if err != nil {
				return err
			}
			if err := saveFrame(filename, result.Color, tm); err != nil {
				return err
			}
			slog.Info("frame saved", "file", filename)
		}
	}

	var renderErr error
	for err := range errs {
		renderErr = errors.Join(renderErr, err)
	}
	if renderErr != nil {
		return renderErr
	}
	slog.Info("render completed",
		"duration", time.Since(start),
		"frames", last.Frame+1,
		"averageLuminance", last.Stats.AverageLuminance)
	return nil
}

func main() {
	o, fs, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		printHelp(fs)
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if o.list {
		printScenes()
		return
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	core.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o); err != nil {
		slog.Error("render failed", "error", err)
		os.Exit(1)
	}
}
