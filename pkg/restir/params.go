package restir

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/df07/go-restir-di/pkg/compute"
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/lights"
)

// Mode selects which reuse passes run
type Mode int

const (
	NoResampling Mode = iota
	SpatialResampling
	TemporalResampling
	SpatiotemporalResampling
)

func (m Mode) String() string {
	switch m {
	case NoResampling:
		return "NoResampling"
	case SpatialResampling:
		return "Spatial"
	case TemporalResampling:
		return "Temporal"
	case SpatiotemporalResampling:
		return "Spatiotemporal"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// UsesTemporal reports whether the mode runs temporal reuse
func (m Mode) UsesTemporal() bool {
	return m == TemporalResampling || m == SpatiotemporalResampling
}

// UsesSpatial reports whether the mode runs spatial reuse
func (m Mode) UsesSpatial() bool {
	return m == SpatialResampling || m == SpatiotemporalResampling
}

// ParseMode accepts the names printed by String, case-insensitively
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "noresampling", "none":
		return NoResampling, nil
	case "spatial", "spatialresampling":
		return SpatialResampling, nil
	case "temporal", "temporalresampling":
		return TemporalResampling, nil
	case "spatiotemporal", "spatiotemporalresampling":
		return SpatiotemporalResampling, nil
	}
	return NoResampling, fmt.Errorf("unknown restir mode %q", s)
}

// BiasMode selects how reused samples are normalized
type BiasMode int

const (
	Biased BiasMode = iota
	UnbiasedNaive
	UnbiasedMIS
)

func (b BiasMode) String() string {
	switch b {
	case Biased:
		return "Biased"
	case UnbiasedNaive:
		return "UnbiasedNaive"
	case UnbiasedMIS:
		return "UnbiasedMIS"
	default:
		return fmt.Sprintf("BiasMode(%d)", int(b))
	}
}

// Unbiased reports whether reuse applies domain and visibility corrections
func (b BiasMode) Unbiased() bool {
	return b == UnbiasedNaive || b == UnbiasedMIS
}

// ParseBiasMode accepts the names printed by String, case-insensitively
func ParseBiasMode(s string) (BiasMode, error) {
	switch strings.ToLower(s) {
	case "biased":
		return Biased, nil
	case "unbiasednaive", "naive":
		return UnbiasedNaive, nil
	case "unbiasedmis", "mis":
		return UnbiasedMIS, nil
	}
	return Biased, fmt.Errorf("unknown bias mode %q", s)
}

// DebugView selects what the debug output shows
type DebugView int

const (
	DebugNone DebugView = iota
	DebugReservoirM
	DebugWeight
	DebugLightIndex
	DebugNormal
)

var debugViewNames = []string{"none", "reservoirM", "weight", "lightIndex", "normal"}

func (d DebugView) String() string {
	if d >= 0 && int(d) < len(debugViewNames) {
		return debugViewNames[d]
	}
	return fmt.Sprintf("DebugView(%d)", int(d))
}

// ParseDebugView accepts the names printed by String, case-insensitively
func ParseDebugView(s string) (DebugView, error) {
	for i, name := range debugViewNames {
		if strings.EqualFold(name, s) {
			return DebugView(i), nil
		}
	}
	return DebugNone, fmt.Errorf("unknown debug view %q", s)
}

// StaticParams configures the passes. They are fixed for the duration of a
// frame; changes are staged and applied at the next frame boundary.
type StaticParams struct {
	CandidateCount        int                // Light candidates per pixel (M₀)
	Mode                  Mode               // Which reuse passes run
	BiasMode              BiasMode           // Normalization of reused samples
	SpatialIterations     int                // Spatial reuse sweeps
	SpatialNeighbors      int                // Neighbors per pixel per sweep
	SpatialRadius         float64            // Neighbor search radius in pixels
	TemporalHistoryLimit  int                // Previous-frame M cap, in multiples of CandidateCount
	NormalThreshold       float64            // Minimum normal cosine for reuse
	DepthThreshold        float64            // Maximum relative depth difference for reuse
	UseMIS                bool               // Add BRDF candidates, combined by the balance heuristic
	BRDFCandidateCount    int                // BRDF candidates per pixel when UseMIS is set
	UseImportanceSampling bool               // Sample BRDF candidates from the lobe instead of the hemisphere
	MaxBounces            int                // Reserved for indirect lighting
	EmissiveSampler       lights.SamplerType // Light selection strategy
	DebugView             DebugView          // Contents of the debug output
}

// DefaultStaticParams returns the standard configuration
func DefaultStaticParams() StaticParams {
	return StaticParams{
		CandidateCount:        16,
		Mode:                  SpatiotemporalResampling,
		BiasMode:              Biased,
		SpatialIterations:     3,
		SpatialNeighbors:      1,
		SpatialRadius:         30,
		TemporalHistoryLimit:  20,
		NormalThreshold:       0.9,
		DepthThreshold:        0.1,
		UseMIS:                true,
		BRDFCandidateCount:    1,
		UseImportanceSampling: true,
		MaxBounces:            3,
		EmissiveSampler:       lights.SamplerUniform,
		DebugView:             DebugNone,
	}
}

// clamp limits v to [lo, hi], warning when the value had to change
func clamp[T constraints.Ordered](logger *slog.Logger, name string, v, lo, hi T) T {
	c := min(max(v, lo), hi)
	if c != v {
		logger.Warn("restir parameter out of range, clamped",
			"param", name, "value", v, "clamped", c)
	}
	return c
}

// Validated returns a copy with every value forced into its legal range.
// Clamped values are reported to logger; nil uses core.Logger.
func (p StaticParams) Validated(logger *slog.Logger) StaticParams {
	if logger == nil {
		logger = core.Logger()
	}
	p.CandidateCount = clamp(logger, "candidateCount", p.CandidateCount, 1, 64)
	p.SpatialIterations = clamp(logger, "spatialReuseIteration", p.SpatialIterations, 1, 16)
	p.SpatialNeighbors = clamp(logger, "spatialReuseNeighbors", p.SpatialNeighbors, 1, 64)
	p.SpatialRadius = clamp(logger, "spatialRadius", p.SpatialRadius, 1, 256)
	p.TemporalHistoryLimit = clamp(logger, "temporalHistoryLimit", p.TemporalHistoryLimit, 1, 100)
	p.NormalThreshold = clamp(logger, "normalThreshold", p.NormalThreshold, -1, 1)
	p.DepthThreshold = clamp(logger, "depthThreshold", p.DepthThreshold, 0, 10)
	p.BRDFCandidateCount = clamp(logger, "brdfCandidateCount", p.BRDFCandidateCount, 0, 16)
	p.MaxBounces = clamp(logger, "maxBounces", p.MaxBounces, 0, 16)
	p.Mode = clamp(logger, "restirMode", p.Mode, NoResampling, SpatiotemporalResampling)
	p.BiasMode = clamp(logger, "biasedMode", p.BiasMode, Biased, UnbiasedMIS)
	p.EmissiveSampler = clamp(logger, "emissiveSampler", p.EmissiveSampler, lights.SamplerUniform, lights.SamplerLightBVH)
	p.DebugView = clamp(logger, "debugView", p.DebugView, DebugNone, DebugNormal)
	return p
}

// brdfCandidates is the number of BRDF candidates actually drawn
func (p StaticParams) brdfCandidates() int {
	if !p.UseMIS {
		return 0
	}
	return p.BRDFCandidateCount
}

// Defines renders the params into the define list the passes are
// specialized with
func (p StaticParams) Defines() compute.DefineList {
	return compute.DefineList{}.
		Add("SAMPLES_PER_PIXEL", 1).
		Add("ADJUST_SHADING_NORMALS", false).
		Add("MAX_BOUNCES", p.MaxBounces).
		Add("CANDIDATE_COUNT", p.CandidateCount).
		Add("BRDF_CANDIDATE_COUNT", p.brdfCandidates()).
		Add("RESTIR_MODE", int(p.Mode)).
		Add("SPATIAL_REUSE_ITERATION", p.SpatialIterations).
		Add("SPATIAL_REUSE_NEIGHBORS", p.SpatialNeighbors).
		Add("SPATIAL_RADIUS", p.SpatialRadius).
		Add("TEMPORAL_HISTORY_LIMIT", p.TemporalHistoryLimit).
		Add("NORMAL_THRESHOLD", p.NormalThreshold).
		Add("DEPTH_THRESHOLD", p.DepthThreshold).
		Add("BIASED_MODE", int(p.BiasMode)).
		Add("USE_MIS", p.UseMIS).
		Add("USE_IMPORTANCE_SAMPLING", p.UseImportanceSampling).
		Add("USE_DEBUG_OUTPUT", p.DebugView != DebugNone).
		Add("DEBUG_VIEW", int(p.DebugView))
}
