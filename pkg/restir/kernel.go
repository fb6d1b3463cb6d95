package restir

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/lights"
)

// Pass identifies one of the kernels of a frame
type Pass int

const (
	PassLoadSurface Pass = iota
	PassTemporal
	PassSpatial
	PassDirectLighting
	passCount
)

var passNames = [passCount]string{"loadSurfaceData", "temporalReuse", "spatialReuse", "directLighting"}

// Name is the dispatch name of the pass
func (p Pass) Name() string {
	if p >= 0 && p < passCount {
		return passNames[p]
	}
	return fmt.Sprintf("pass%d", int(p))
}

func (p Pass) String() string { return p.Name() }

// Passes lists every pass in dispatch order
func Passes() []Pass {
	return []Pass{PassLoadSurface, PassTemporal, PassSpatial, PassDirectLighting}
}

// KernelConfig is a define list validated into typed settings
type KernelConfig struct {
	CandidateCount        int
	BRDFCandidateCount    int
	SpatialIterations     int
	SpatialNeighbors      int
	SpatialRadius         float64
	TemporalHistoryLimit  int
	NormalThreshold       float64
	DepthThreshold        float64
	BiasMode              BiasMode
	UseImportanceSampling bool
	UseDebugOutput        bool
	DebugView             DebugView
	UseEnvLight           bool
	UseEmissiveLights     bool
	UseAnalyticLights     bool
	Sampler               lights.SamplerType
	LightCount            int
}

// Program is a pass specialized for one define list
type Program struct {
	Pass    Pass
	Key     string
	Defines compute.DefineList
	Config  KernelConfig
}

// KernelCompiler specializes a pass for a define list
type KernelCompiler interface {
	Compile(ctx context.Context, pass Pass, defines compute.DefineList) (*Program, error)
}

// DefineCompiler validates define lists into KernelConfigs and caches the
// results by define key
type DefineCompiler struct {
	mu    sync.Mutex
	cache map[string]*Program
	hits  int
}

// NewDefineCompiler creates an empty compiler cache
func NewDefineCompiler() *DefineCompiler {
	return &DefineCompiler{cache: make(map[string]*Program)}
}

// CacheHits returns how many compilations were served from the cache
func (c *DefineCompiler) CacheHits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func (c *DefineCompiler) Compile(ctx context.Context, pass Pass, defines compute.DefineList) (*Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := pass.Name() + "|" + defines.Key()

	c.mu.Lock()
	if prog, ok := c.cache[key]; ok {
		c.hits++
		c.mu.Unlock()
		return prog, nil
	}
	c.mu.Unlock()

	config, err := parseKernelConfig(defines)
	if err != nil {
		return nil, err
	}
	prog := &Program{Pass: pass, Key: key, Defines: defines.Clone(), Config: config}

	c.mu.Lock()
	c.cache[key] = prog
	c.mu.Unlock()
	return prog, nil
}

func parseKernelConfig(d compute.DefineList) (KernelConfig, error) {
	var cfg KernelConfig
	var errs []error
	intDefine := func(dst *int, name string) {
		v, err := d.Int(name)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = v
	}
	floatDefine := func(dst *float64, name string) {
		v, err := d.Float(name)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = v
	}
	boolDefine := func(dst *bool, name string) {
		v, err := d.Bool(name)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = v
	}

	var biasMode, debugView int
	intDefine(&cfg.CandidateCount, "CANDIDATE_COUNT")
	intDefine(&cfg.BRDFCandidateCount, "BRDF_CANDIDATE_COUNT")
	intDefine(&cfg.SpatialIterations, "SPATIAL_REUSE_ITERATION")
	intDefine(&cfg.SpatialNeighbors, "SPATIAL_REUSE_NEIGHBORS")
	intDefine(&cfg.TemporalHistoryLimit, "TEMPORAL_HISTORY_LIMIT")
	intDefine(&cfg.LightCount, "LIGHT_COUNT")
	intDefine(&biasMode, "BIASED_MODE")
	intDefine(&debugView, "DEBUG_VIEW")
	floatDefine(&cfg.SpatialRadius, "SPATIAL_RADIUS")
	floatDefine(&cfg.NormalThreshold, "NORMAL_THRESHOLD")
	floatDefine(&cfg.DepthThreshold, "DEPTH_THRESHOLD")
	boolDefine(&cfg.UseImportanceSampling, "USE_IMPORTANCE_SAMPLING")
	boolDefine(&cfg.UseDebugOutput, "USE_DEBUG_OUTPUT")
	boolDefine(&cfg.UseEnvLight, "USE_ENV_LIGHT")
	boolDefine(&cfg.UseEmissiveLights, "USE_EMISSIVE_LIGHTS")
	boolDefine(&cfg.UseAnalyticLights, "USE_ANALYTIC_LIGHTS")
	cfg.BiasMode = BiasMode(biasMode)
	cfg.DebugView = DebugView(debugView)

	if sampler, err := d.Value("EMISSIVE_SAMPLER"); err != nil {
		errs = append(errs, err)
	} else if cfg.Sampler, err = lights.ParseSamplerType(samplerName(sampler)); err != nil {
		errs = append(errs, err)
	}

	if cfg.CandidateCount < 1 {
		errs = append(errs, fmt.Errorf("CANDIDATE_COUNT=%d must be positive", cfg.CandidateCount))
	}
	if cfg.BiasMode < Biased || cfg.BiasMode > UnbiasedMIS {
		errs = append(errs, fmt.Errorf("BIASED_MODE=%d is not a bias mode", biasMode))
	}
	return cfg, errors.Join(errs...)
}

// samplerName maps the EMISSIVE_SAMPLER define back to a sampler name
func samplerName(define string) string {
	switch define {
	case "LIGHT_BVH":
		return "lightBVH"
	default:
		return define
	}
}

// programSet holds the specialized program of every pass
type programSet [passCount]*Program

// compilePrograms specializes every pass concurrently. Failing passes leave
// a nil program; their errors are joined, each wrapping
// ErrKernelSpecialization and naming the pass.
func compilePrograms(ctx context.Context, compiler KernelCompiler, defines compute.DefineList) (programSet, error) {
	var programs programSet
	var errs [passCount]error

	g, gctx := errgroup.WithContext(ctx)
	for _, pass := range Passes() {
		g.Go(func() error {
			prog, err := compiler.Compile(gctx, pass, defines)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs[pass] = fmt.Errorf("%w: %s: %w", ErrKernelSpecialization, pass.Name(), err)
				core.Logger().Warn("kernel specialization failed", "pass", pass.Name(), "error", err)
				return nil
			}
			programs[pass] = prog
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return programs, err
	}
	return programs, errors.Join(errs[:]...)
}
