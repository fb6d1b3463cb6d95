package restir

import (
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/reservoir"
)

// debugColor visualizes the reservoir or surface of one pixel
func (fc *frameContext) debugColor(s SurfaceData, r reservoir.Reservoir) frame.RGBA {
	if !s.Valid {
		return frame.RGBA{A: 1}
	}
	switch fc.config.DebugView {
	case DebugReservoirM:
		limit := max(1, fc.config.CandidateCount*fc.config.TemporalHistoryLimit)
		v := float32(min(1, float64(r.M)/float64(limit)))
		return frame.RGBA{R: v, G: v, B: v, A: 1}
	case DebugWeight:
		v := float32(r.W)
		return frame.RGBA{R: v, G: v, B: v, A: 1}
	case DebugLightIndex:
		if !r.HasSample() {
			return frame.RGBA{A: 1}
		}
		return hashColor(uint32(r.Sample.Light))
	case DebugNormal:
		n := s.Normal.Multiply(0.5).Add(core.NewVec3(0.5, 0.5, 0.5))
		return frame.RGBA{R: float32(n.X), G: float32(n.Y), B: float32(n.Z), A: 1}
	default:
		return frame.RGBA{A: 1}
	}
}

// hashColor gives each light index a stable, distinct color
func hashColor(i uint32) frame.RGBA {
	h := i*0x9e3779b1 + 0x7f4a7c15
	h ^= h >> 15
	h *= 0x2c1b3c6d
	h ^= h >> 12
	return frame.RGBA{
		R: float32(h&0xff) / 255,
		G: float32(h>>8&0xff) / 255,
		B: float32(h>>16&0xff) / 255,
		A: 1,
	}
}
