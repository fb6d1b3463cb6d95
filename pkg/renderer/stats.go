package renderer

import (
	"time"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
)

// RenderStats contains statistics about one rendered frame
type RenderStats struct {
	TotalPixels       int           // Total number of pixels rendered
	ValidPixels       int           // Pixels that saw geometry
	LitPixels         int           // Pixels whose reservoir held a contributing light sample
	AverageM          float64       // Mean candidate count behind each valid pixel
	MaxM              int           // Largest candidate count of any pixel
	AccumulatedFrames int           // Frames averaged into the output
	AverageLuminance  float64       // Mean luminance of the output
	Enabled           bool          // False when the pipeline skipped the frame
	Duration          time.Duration // Wall time of the frame
}

// PixelStats tracks accumulated radiance for a single pixel
type PixelStats struct {
	ColorAccum       core.Vec3 // RGB accumulator for final result
	LuminanceAccum   float64   // Luminance accumulator for convergence
	LuminanceSqAccum float64   // Luminance squared for variance
	SampleCount      int       // Number of frames accumulated
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Vec3) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	luminance := color.Luminance()
	ps.LuminanceAccum += luminance
	ps.LuminanceSqAccum += luminance * luminance
	ps.SampleCount++
}

// GetColor returns the current average color for this pixel
func (ps *PixelStats) GetColor() core.Vec3 {
	if ps.SampleCount == 0 {
		return core.Vec3{X: 0, Y: 0, Z: 0}
	}
	return ps.ColorAccum.Multiply(1.0 / float64(ps.SampleCount))
}

// Variance returns the sample variance of the pixel's luminance
func (ps *PixelStats) Variance() float64 {
	if ps.SampleCount < 2 {
		return 0
	}
	n := float64(ps.SampleCount)
	mean := ps.LuminanceAccum / n
	return max(0, (ps.LuminanceSqAccum-n*mean*mean)/(n-1))
}

// AverageLuminance returns the mean luminance of a color texture
func AverageLuminance(tex *frame.Texture[frame.RGBA]) float64 {
	if len(tex.Data) == 0 {
		return 0
	}
	var sum float64
	for _, c := range tex.Data {
		sum += core.NewVec3(float64(c.R), float64(c.G), float64(c.B)).Luminance()
	}
	return sum / float64(len(tex.Data))
}

func (r *Renderer) collectStats(duration time.Duration) RenderStats {
	ps := r.pipeline.Stats()
	return RenderStats{
		TotalPixels:       r.width * r.height,
		ValidPixels:       ps.ValidPixels,
		LitPixels:         ps.LitPixels,
		AverageM:          ps.AverageM,
		MaxM:              ps.MaxM,
		AccumulatedFrames: r.accumulated,
		AverageLuminance:  AverageLuminance(r.output),
		Enabled:           ps.Enabled,
		Duration:          duration,
	}
}
