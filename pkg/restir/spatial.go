package restir

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/reservoir"
)

// spatialKernel runs one sweep of spatial reuse. It reads only src and
// writes only dst, so no pixel sees a neighbor updated in the same sweep.
func (fc *frameContext) spatialKernel(iteration int, surfaces []SurfaceData, src, dst []reservoir.Reservoir) func(x, y int) {
	radius := fc.config.SpatialRadius
	neighbors := min(fc.config.SpatialNeighbors, maxNeighbors)
	return func(x, y int) {
		i := fc.index(x, y)
		center := surfaces[i]
		if !center.Valid {
			dst[i] = src[i]
			return
		}

		rng := fc.rng(PassSpatial, iteration, x, y)
		var buf [maxNeighbors]candidate
		candidates := buf[:0]
		for range neighbors {
			offset := core.SamplePointInUnitDisk(rng.Get2D()).Multiply(radius)
			nx := x + int(math.Round(offset.X))
			ny := y + int(math.Round(offset.Y))
			if (nx == x && ny == y) || nx < 0 || ny < 0 || nx >= fc.width || ny >= fc.height {
				continue
			}
			j := fc.index(nx, ny)
			if !center.similar(surfaces[j], fc.config.NormalThreshold, fc.config.DepthThreshold) {
				continue
			}
			candidates = append(candidates, candidate{surface: surfaces[j], reservoir: src[j]})
		}

		dst[i] = fc.resample(center, src[i], candidates, &rng)
	}
}
