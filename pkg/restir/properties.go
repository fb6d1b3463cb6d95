package restir

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/lights"
)

// Properties is the serializable configuration of a pipeline. Values may be
// Go types or the types produced by encoding/json.
type Properties map[string]any

// Property keys
const (
	KeyMaxBounces            = "maxBounces"
	KeyCandidateCount        = "candidateCount"
	KeyMode                  = "restirMode"
	KeySpatialIterations     = "spatialReuseIteration"
	KeySpatialNeighbors      = "spatialReuseNeighbors"
	KeyBiasMode              = "biasedMode"
	KeyUseImportanceSampling = "useImportanceSampling"
	KeyUseMIS                = "useMIS"
	KeyEmissiveSampler       = "emissiveSampler"
	KeySpatialRadius         = "spatialRadius"
	KeyTemporalHistoryLimit  = "temporalHistoryLimit"
	KeyNormalThreshold       = "normalThreshold"
	KeyDepthThreshold        = "depthThreshold"
	KeyBRDFCandidateCount    = "brdfCandidateCount"
	KeyDebugView             = "debugView"
)

// Properties returns every parameter under its property key
func (p StaticParams) Properties() Properties {
	return Properties{
		KeyMaxBounces:            p.MaxBounces,
		KeyCandidateCount:        p.CandidateCount,
		KeyMode:                  p.Mode.String(),
		KeySpatialIterations:     p.SpatialIterations,
		KeySpatialNeighbors:      p.SpatialNeighbors,
		KeyBiasMode:              p.BiasMode.String(),
		KeyUseImportanceSampling: p.UseImportanceSampling,
		KeyUseMIS:                p.UseMIS,
		KeyEmissiveSampler:       p.EmissiveSampler.String(),
		KeySpatialRadius:         p.SpatialRadius,
		KeyTemporalHistoryLimit:  p.TemporalHistoryLimit,
		KeyNormalThreshold:       p.NormalThreshold,
		KeyDepthThreshold:        p.DepthThreshold,
		KeyBRDFCandidateCount:    p.BRDFCandidateCount,
		KeyDebugView:             p.DebugView.String(),
	}
}

// ParseProperties applies props on top of base. Unknown keys are logged and
// ignored; values of the wrong type are reported as errors and leave the
// parameter unchanged. The result is validated. Warnings go to logger; nil
// uses core.Logger.
func ParseProperties(props Properties, base StaticParams, logger *slog.Logger) (StaticParams, error) {
	if logger == nil {
		logger = core.Logger()
	}
	p := base
	var errs []error

	// Sorted so warnings and errors come out in a stable order
	for _, key := range slices.Sorted(maps.Keys(props)) {
		value := props[key]
		var err error
		switch key {
		case KeyMaxBounces:
			err = setInt(&p.MaxBounces, value)
		case KeyCandidateCount:
			err = setInt(&p.CandidateCount, value)
		case KeySpatialIterations:
			err = setInt(&p.SpatialIterations, value)
		case KeySpatialNeighbors:
			err = setInt(&p.SpatialNeighbors, value)
		case KeyTemporalHistoryLimit:
			err = setInt(&p.TemporalHistoryLimit, value)
		case KeyBRDFCandidateCount:
			err = setInt(&p.BRDFCandidateCount, value)
		case KeySpatialRadius:
			err = setFloat(&p.SpatialRadius, value)
		case KeyNormalThreshold:
			err = setFloat(&p.NormalThreshold, value)
		case KeyDepthThreshold:
			err = setFloat(&p.DepthThreshold, value)
		case KeyUseImportanceSampling:
			err = setBool(&p.UseImportanceSampling, value)
		case KeyUseMIS:
			err = setBool(&p.UseMIS, value)
		case KeyMode:
			err = setEnum(&p.Mode, value, ParseMode)
		case KeyBiasMode:
			err = setEnum(&p.BiasMode, value, ParseBiasMode)
		case KeyEmissiveSampler:
			err = setEnum(&p.EmissiveSampler, value, lights.ParseSamplerType)
		case KeyDebugView:
			err = setEnum(&p.DebugView, value, ParseDebugView)
		default:
			logger.Warn("unknown restir property ignored", "key", key)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("property %s: %w", key, err))
		}
	}
	return p.Validated(logger), errors.Join(errs...)
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	}
	return 0, fmt.Errorf("expected a number, got %T", value)
}

func setInt(dst *int, value any) error {
	f, err := toFloat(value)
	if err != nil {
		return err
	}
	if f != float64(int(f)) {
		return fmt.Errorf("expected an integer, got %v", f)
	}
	*dst = int(f)
	return nil
}

func setFloat(dst *float64, value any) error {
	f, err := toFloat(value)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setBool(dst *bool, value any) error {
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected a boolean, got %T", value)
	}
	*dst = b
	return nil
}

// setEnum accepts either the enum's name or its integer value
func setEnum[T ~int](dst *T, value any, parse func(string) (T, error)) error {
	if s, ok := value.(string); ok {
		v, err := parse(s)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	if v, ok := value.(T); ok {
		*dst = v
		return nil
	}
	var n int
	if err := setInt(&n, value); err != nil {
		return err
	}
	*dst = T(n)
	return nil
}
