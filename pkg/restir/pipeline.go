// Package restir resamples direct lighting with reservoirs reused across
// neighboring pixels and previous frames.
//
// A Pipeline runs four passes per frame on a compute device:
//
//	loadSurfaceData  rebuild surfaces from the visibility buffer and draw initial candidates
//	temporalReuse    merge with the reprojected reservoir of the previous frame
//	spatialReuse     merge with random neighbors, K sweeps, double buffered
//	directLighting   shade each pixel with its surviving sample
//
// Which reuse passes run is chosen by Mode; temporal always precedes spatial.
package restir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/geometry"
	"github.com/df07/go-restir-di/pkg/lights"
	"github.com/df07/go-restir-di/pkg/reservoir"
	"github.com/df07/go-restir-di/pkg/scene"
)

// RequiredFeatures are the device capabilities the passes rely on
const RequiredFeatures = compute.FeatureRayQuery | compute.FeatureFloat32Storage | compute.FeatureInt64

// Options configures a new pipeline
type Options struct {
	Device     *compute.Device    // Required
	Compiler   KernelCompiler     // nil uses a DefineCompiler
	Properties Properties         // Applied on top of DefaultStaticParams
	BVHOptions *lights.BVHOptions // nil uses lights.DefaultBVHOptions
	Logger     *slog.Logger       // nil uses core.Logger
}

// Pipeline orchestrates the passes of every frame. Execute must not be
// called concurrently; SetProperties may be called from any goroutine and
// takes effect at the next frame boundary.
type Pipeline struct {
	device   *compute.Device
	compiler KernelCompiler
	session  uuid.UUID
	log      *slog.Logger

	mu      sync.Mutex
	pending *StaticParams

	params     StaticParams
	bvhOptions lights.BVHOptions

	scene   *scene.Scene
	sampler lights.LightSampler

	programs       programSet
	programErr     error
	recompile      bool
	varsChanged    bool
	debugConnected bool
	bindings       *frameContext

	buffers      FrameBuffers
	width        int
	height       int
	historyValid bool

	enabled    bool
	frameCount uint32
	stats      FrameStats
}

// New creates a pipeline. It fails with ErrUnsupportedFeature when the
// device cannot run the passes.
func New(opts Options) (*Pipeline, error) {
	if opts.Device == nil {
		return nil, errors.New("restir: no compute device")
	}
	if !opts.Device.Supports(RequiredFeatures) {
		missing := RequiredFeatures &^ opts.Device.Features()
		return nil, fmt.Errorf("%w: device %s lacks %s", ErrUnsupportedFeature, opts.Device.Name(), missing)
	}

	logger := opts.Logger
	if logger == nil {
		logger = core.Logger()
	}
	session := uuid.New()
	logger = logger.With("session", session.String())

	params, err := ParseProperties(opts.Properties, DefaultStaticParams(), logger)
	if err != nil {
		return nil, fmt.Errorf("restir: %w", err)
	}

	compiler := opts.Compiler
	if compiler == nil {
		compiler = NewDefineCompiler()
	}
	bvhOptions := lights.DefaultBVHOptions()
	if opts.BVHOptions != nil {
		bvhOptions = *opts.BVHOptions
	}

	p := &Pipeline{
		device:     opts.Device,
		compiler:   compiler,
		session:    session,
		log:        logger,
		params:     params,
		bvhOptions: bvhOptions,
		recompile:  true,
		enabled:    true,
	}
	p.log.Info("restir pipeline created",
		"device", opts.Device.Name(),
		"mode", params.Mode.String(),
		"biasMode", params.BiasMode.String(),
		"candidates", params.CandidateCount)
	return p, nil
}

// Session identifies this pipeline in logs and traces
func (p *Pipeline) Session() uuid.UUID { return p.session }

// SetScene binds a scene. History, programs and the light sampler are reset
// and the frame counter restarts at zero.
func (p *Pipeline) SetScene(sc *scene.Scene) {
	p.scene = sc
	p.sampler = nil
	p.bindings = nil
	p.programs = programSet{}
	p.programErr = nil
	p.recompile = true
	p.historyValid = false
	p.frameCount = 0
	if sc != nil {
		p.log.Info("scene set", "scene", sc.Name, "shapes", len(sc.Shapes), "lights", len(sc.Lights))
	}
}

// Scene returns the bound scene, or nil
func (p *Pipeline) Scene() *scene.Scene { return p.scene }

// SetProperties stages new configuration values for the next frame. Unknown
// keys are logged and ignored; mistyped values are reported and skipped.
func (p *Pipeline) SetProperties(props Properties) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := ParseProperties(props, p.latestLocked(), p.log)
	p.pending = &next
	return err
}

// SetParams stages a complete parameter set for the next frame
func (p *Pipeline) SetParams(params StaticParams) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := params.Validated(p.log)
	p.pending = &next
}

// Properties returns the configuration, including staged changes
func (p *Pipeline) Properties() Properties {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latestLocked().Properties()
}

// Params returns the parameters of the frames being executed
func (p *Pipeline) Params() StaticParams { return p.params }

func (p *Pipeline) latestLocked() StaticParams {
	if p.pending != nil {
		return *p.pending
	}
	return p.params
}

// Reflect lists the textures the pipeline reads and writes
func (p *Pipeline) Reflect() []frame.Channel {
	return frame.Channels()
}

// FrameCount is the number of frames executed since the scene was set
func (p *Pipeline) FrameCount() uint32 { return p.frameCount }

// Enabled is false while input and output sizes disagree
func (p *Pipeline) Enabled() bool { return p.enabled }

// Stats describes the last executed frame
func (p *Pipeline) Stats() FrameStats { return p.stats }

// BufferCapacities reports the allocated size of the four frame buffers
func (p *Pipeline) BufferCapacities() BufferCapacities { return p.buffers.Capacities() }

// Reservoirs returns a copy of the final reservoirs of the last frame
func (p *Pipeline) Reservoirs() []reservoir.Reservoir {
	return slices.Clone(p.buffers.PrevReservoirs())
}

// Close releases the frame buffers. The device is owned by the caller.
func (p *Pipeline) Close() {
	p.buffers = FrameBuffers{}
	p.programs = programSet{}
	p.bindings = nil
}

// Execute renders one frame of direct lighting into data.Color. Resolution
// mismatches disable the pipeline and clear the outputs without an error.
// Kernel specialization failures are returned after the remaining passes
// have run.
func (p *Pipeline) Execute(ctx context.Context, data *frame.RenderData) error {
	if p.scene == nil {
		return ErrNoScene
	}
	if data == nil || data.VBuffer == nil || data.Color == nil {
		return ErrMissingChannel
	}

	start := time.Now()
	ctx, span := core.StartSpan(ctx, "restir.Execute",
		attribute.String("session", p.session.String()),
		attribute.Int64("frame", int64(p.frameCount)))
	defer span.End()

	if p.applyPending() {
		data.Refresh |= frame.RenderOptionsChanged
	}

	width, height := data.VBuffer.Size()
	p.stats = FrameStats{Frame: p.frameCount, Width: width, Height: height}
	if !p.validateIO(data) {
		p.stats.Duration = time.Since(start)
		return nil
	}
	p.stats.Enabled = true

	if err := p.prepareLighting(data); err != nil {
		core.FailSpan(span, err, "lighting update failed")
		return err
	}

	if debug := data.Debug != nil; debug != p.debugConnected {
		p.debugConnected = debug
		p.recompile = true
	}
	if p.recompile {
		if err := p.updatePrograms(ctx); err != nil {
			core.FailSpan(span, err, "specialization canceled")
			return err
		}
	}

	p.prepareBuffers(width, height)

	if err := p.dispatch(ctx, data, width, height); err != nil {
		p.historyValid = false
		core.FailSpan(span, err, "dispatch failed")
		return err
	}

	p.stats.collect(p.buffers.CurrentSurfaces(), p.buffers.CurrentReservoirs())
	p.buffers.Swap()
	p.frameCount++
	p.varsChanged = false
	p.stats.Duration = time.Since(start)

	p.log.Debug("restir frame",
		"frame", p.stats.Frame,
		"mode", p.params.Mode.String(),
		"litPixels", p.stats.LitPixels,
		"averageM", p.stats.AverageM,
		"duration", p.stats.Duration)

	if p.programErr != nil {
		core.FailSpan(span, p.programErr, "kernel specialization failed")
	}
	return p.programErr
}

// applyPending installs staged params and reports whether they changed
func (p *Pipeline) applyPending() bool {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	if pending == nil || *pending == p.params {
		return false
	}
	old := p.params
	p.params = *pending
	p.recompile = true
	if old.EmissiveSampler != p.params.EmissiveSampler {
		p.sampler = nil
	}
	p.log.Debug("restir params changed", "frame", p.frameCount, "mode", p.params.Mode.String(), "biasMode", p.params.BiasMode.String())
	return true
}

// validateIO disables the pipeline while the input and output textures
// disagree in size, clearing the outputs to zero
func (p *Pipeline) validateIO(data *frame.RenderData) bool {
	ok := frame.SameSize(data.VBuffer, data.Color) &&
		(data.MotionVectors == nil || frame.SameSize(data.VBuffer, data.MotionVectors)) &&
		(data.ViewDir == nil || frame.SameSize(data.VBuffer, data.ViewDir)) &&
		(data.Debug == nil || frame.SameSize(data.VBuffer, data.Debug))

	if !ok {
		if p.enabled {
			p.log.Warn("restir disabled: input and output sizes differ",
				"vbuffer", data.VBuffer.String(),
				"color", data.Color.String())
			p.enabled = false
		}
		data.Color.Fill(frame.RGBA{})
		if data.Debug != nil {
			data.Debug.Fill(frame.RGBA{})
		}
		return false
	}

	if !p.enabled {
		p.log.Info("restir re-enabled: sizes match", "size", data.VBuffer.String())
		p.enabled = true
		p.historyValid = false
		p.varsChanged = true
	}
	return true
}

// prepareLighting applies scene updates and keeps the light sampler in sync
// with the active lights
func (p *Pipeline) prepareLighting(data *frame.RenderData) error {
	flags, err := p.scene.Update()
	if err != nil {
		return fmt.Errorf("restir: update scene: %w", err)
	}
	if flags != scene.UpdateNone {
		p.recompile = true
		if flags.Has(scene.UpdateLightsChanged | scene.UpdateEnvironmentChanged | scene.UpdateRenderSettings) {
			p.sampler = nil
			p.historyValid = false
			data.Refresh |= frame.LightingChanged
		}
		if flags.Has(scene.UpdateGeometryChanged) {
			p.historyValid = false
		}
	}

	if p.sampler == nil {
		active := p.scene.ActiveLights()
		p.sampler = lights.NewLightSampler(p.params.EmissiveSampler, active, p.bvhOptions)
		p.recompile = true
		p.log.Info("light sampler created", "sampler", p.params.EmissiveSampler.String(), "lights", len(active))
	}
	return nil
}

// defines assembles the specialization macros from params, scene and sampler
func (p *Pipeline) defines() compute.DefineList {
	return p.params.Defines().
		AddAll(p.scene.Defines()).
		AddAll(p.sampler.Defines()).
		Add("USE_DEBUG_OUTPUT", p.params.DebugView != DebugNone && p.debugConnected)
}

// updatePrograms respecializes every pass. Failed passes are left absent
// and their error is kept until the next recompile.
func (p *Pipeline) updatePrograms(ctx context.Context) error {
	defines := p.defines()
	programs, err := compilePrograms(ctx, p.compiler, defines)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	p.programs = programs
	p.programErr = err
	p.recompile = false
	p.varsChanged = true
	p.log.Debug("restir programs specialized", "frame", p.frameCount, "defines", defines.Key(), "failed", err != nil)
	return nil
}

// prepareBuffers grows the frame buffers and drops history that no longer
// lines up with the current pixels
func (p *Pipeline) prepareBuffers(width, height int) {
	if p.buffers.EnsureCapacity(width * height) {
		p.log.Debug("restir frame buffers grown", "pixels", width*height)
		p.historyValid = false
		p.varsChanged = true
	}
	if width != p.width || height != p.height {
		p.width, p.height = width, height
		p.historyValid = false
		p.varsChanged = true
	}
	if !p.historyValid {
		p.buffers.ClearHistory()
		p.historyValid = true
	}
}

// dispatch issues the passes of one frame in order
func (p *Pipeline) dispatch(ctx context.Context, data *frame.RenderData, width, height int) error {
	base := p.bind(width, height)
	surfaces := p.buffers.CurrentSurfaces()

	if p.programs[PassLoadSurface] == nil {
		clearOutputs(data)
		return nil
	}
	err := p.run(ctx, base, PassLoadSurface, func(fc *frameContext) compute.Kernel {
		return fc.generateKernel(data, surfaces, p.buffers.CurrentReservoirs())
	})
	if err != nil {
		return err
	}

	mode := p.params.Mode
	if mode.UsesTemporal() {
		err := p.run(ctx, base, PassTemporal, func(fc *frameContext) compute.Kernel {
			return fc.temporalKernel(data.MotionVectors, surfaces, p.buffers.PrevSurfaces(),
				p.buffers.CurrentReservoirs(), p.buffers.PrevReservoirs())
		})
		if err != nil {
			return err
		}
	}

	if spatial := p.programs[PassSpatial]; mode.UsesSpatial() && spatial != nil {
		for iteration := range spatial.Config.SpatialIterations {
			src, dst := p.buffers.CurrentReservoirs(), p.buffers.PrevReservoirs()
			err := p.run(ctx, base, PassSpatial, func(fc *frameContext) compute.Kernel {
				return fc.spatialKernel(iteration, surfaces, src, dst)
			})
			if err != nil {
				return err
			}
			p.buffers.SwapReservoirs()
		}
	}

	if p.programs[PassDirectLighting] == nil {
		clearOutputs(data)
		return nil
	}
	return p.run(ctx, base, PassDirectLighting, func(fc *frameContext) compute.Kernel {
		return fc.resolveKernel(data, surfaces, p.buffers.CurrentReservoirs())
	})
}

// bind returns the state shared by the kernels, rebuilding it after anything
// it references changed
func (p *Pipeline) bind(width, height int) *frameContext {
	if p.varsChanged || p.bindings == nil {
		p.bindings = &frameContext{
			scene:   p.scene,
			lights:  p.scene.ActiveLights(),
			sampler: p.sampler,
			width:   width,
			height:  height,
		}
		p.log.Debug("restir bindings rebuilt", "frame", p.frameCount, "width", width, "height", height)
	}
	p.bindings.camera = geometry.NewCameraForSize(p.scene.CameraConfig, width, height)
	p.bindings.frame = p.frameCount
	return p.bindings
}

// run dispatches one pass with its specialized configuration. Absent passes
// are skipped; their specialization error is reported by Execute.
func (p *Pipeline) run(ctx context.Context, base *frameContext, pass Pass, build func(fc *frameContext) compute.Kernel) error {
	prog := p.programs[pass]
	if prog == nil {
		return nil
	}
	if prog.Config.Sampler != base.sampler.Type() {
		return fmt.Errorf("%w: %s specialized for the %v sampler, bound %v",
			ErrKernelSpecialization, pass, prog.Config.Sampler, base.sampler.Type())
	}
	fc := *base
	fc.config = prog.Config
	return p.device.Dispatch(ctx, pass.Name(), fc.width, fc.height, build(&fc))
}

func clearOutputs(data *frame.RenderData) {
	data.Color.Fill(frame.RGBA{})
	if data.Debug != nil {
		data.Debug.Fill(frame.RGBA{})
	}
}
