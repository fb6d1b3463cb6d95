package restir

import (
	"math"

	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/reservoir"
)

// temporalKernel merges each pixel's reservoir with the reservoir found at
// its reprojected position in the previous frame. Each pixel writes only its
// own current reservoir; the previous buffers are read-only.
func (fc *frameContext) temporalKernel(motion *frame.Texture[frame.MotionVector], surfaces, prevSurfaces []SurfaceData, reservoirs, prevReservoirs []reservoir.Reservoir) func(x, y int) {
	historyLimit := fc.config.TemporalHistoryLimit * fc.config.CandidateCount
	return func(x, y int) {
		i := fc.index(x, y)
		center := surfaces[i]
		if !center.Valid {
			return
		}

		px, py, ok := fc.reproject(x, y, motion)
		if !ok {
			return
		}
		j := fc.index(px, py)
		prevSurface := prevSurfaces[j]
		if !center.similar(prevSurface, fc.config.NormalThreshold, fc.config.DepthThreshold) {
			return
		}
		prev := prevReservoirs[j]
		if prev.IsEmpty() {
			return
		}
		prev.CapM(historyLimit)

		rng := fc.rng(PassTemporal, 0, x, y)
		candidates := [1]candidate{{surface: prevSurface, reservoir: prev}}
		reservoirs[i] = fc.resample(center, reservoirs[i], candidates[:], &rng)
	}
}

// reproject finds the previous-frame pixel of (x, y): prevUV = uv + mv
func (fc *frameContext) reproject(x, y int, motion *frame.Texture[frame.MotionVector]) (int, int, bool) {
	u := (float64(x) + 0.5) / float64(fc.width)
	v := (float64(y) + 0.5) / float64(fc.height)
	if motion != nil {
		mv := motion.At(x, y)
		u += float64(mv.X)
		v += float64(mv.Y)
	}
	if !(u >= 0 && u < 1 && v >= 0 && v < 1) {
		return 0, 0, false
	}
	px := int(math.Floor(u * float64(fc.width)))
	py := int(math.Floor(v * float64(fc.height)))
	return min(px, fc.width-1), min(py, fc.height-1), true
}
