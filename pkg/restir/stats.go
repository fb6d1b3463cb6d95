package restir

import (
	"time"

	"github.com/df07/go-restir-di/pkg/reservoir"
)

// FrameStats describes the last executed frame
type FrameStats struct {
	Frame       uint32        // Frame index the stats belong to
	Width       int           // Frame width in pixels
	Height      int           // Frame height in pixels
	Enabled     bool          // False while input and output sizes disagree
	ValidPixels int           // Pixels with a valid surface
	LitPixels   int           // Pixels whose reservoir holds a contributing sample
	AverageM    float64       // Mean candidate count over valid pixels
	MaxM        int           // Largest candidate count of any pixel
	Duration    time.Duration // Wall time of Execute
}

// collect scans the final reservoirs of a frame
func (s *FrameStats) collect(surfaces []SurfaceData, reservoirs []reservoir.Reservoir) {
	totalM := 0
	for i, surface := range surfaces {
		if !surface.Valid {
			continue
		}
		r := reservoirs[i]
		s.ValidPixels++
		totalM += r.M
		s.MaxM = max(s.MaxM, r.M)
		if r.HasSample() && r.W > 0 {
			s.LitPixels++
		}
	}
	if s.ValidPixels > 0 {
		s.AverageM = float64(totalM) / float64(s.ValidPixels)
	}
}
