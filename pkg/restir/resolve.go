package restir

import (
	"math"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/reservoir"
)

// resolveKernel shades every pixel with its final reservoir
func (fc *frameContext) resolveKernel(data *frame.RenderData, surfaces []SurfaceData, reservoirs []reservoir.Reservoir) func(x, y int) {
	writeDebug := fc.config.UseDebugOutput && data.Debug != nil
	return func(x, y int) {
		i := fc.index(x, y)
		s, r := surfaces[i], reservoirs[i]
		data.Color.Set(x, y, fc.directLighting(s, r))
		if writeDebug {
			data.Debug.Set(x, y, fc.debugColor(s, r))
		}
	}
}

// directLighting is f · Le · cos · G · W · V for the reservoir's sample
func (fc *frameContext) directLighting(s SurfaceData, r reservoir.Reservoir) frame.RGBA {
	black := frame.RGBA{A: 1}
	if !s.Valid || !r.HasSample() || !(r.W > 0) {
		return black
	}
	ls, c := fc.shade(s, r.Sample)
	if c.IsZero() || !fc.visible(s, ls) {
		return black
	}
	return finiteColor(c.Multiply(r.W))
}

// finiteColor converts radiance to a pixel, forcing NaN, infinite and
// negative values to zero
func finiteColor(c core.Vec3) frame.RGBA {
	if !c.IsFinite() {
		return frame.RGBA{A: 1}
	}
	out := frame.RGBA{
		R: float32(max(0, c.X)),
		G: float32(max(0, c.Y)),
		B: float32(max(0, c.Z)),
		A: 1,
	}
	if math.IsInf(float64(out.R+out.G+out.B), 0) {
		return frame.RGBA{A: 1}
	}
	return out
}
