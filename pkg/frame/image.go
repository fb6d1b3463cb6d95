package frame

import (
	"image"
	"image/color"
	"math"
)

// ToneMap controls conversion from linear radiance to display values
type ToneMap struct {
	Exposure float64 // Multiplier applied before clamping
	Gamma    float64 // Display gamma, typically 2.2
}

// DefaultToneMap returns unit exposure and gamma 2.2
func DefaultToneMap() ToneMap {
	return ToneMap{Exposure: 1, Gamma: 2.2}
}

func (tm ToneMap) apply(v float32) float64 {
	x := float64(v) * tm.Exposure
	if !(x > 0) {
		return 0
	}
	if tm.Gamma > 0 {
		x = math.Pow(x, 1/tm.Gamma)
	}
	return math.Min(1, x)
}

// ToImage converts a color texture to an 8-bit image
func ToImage(tex *Texture[RGBA], tm ToneMap) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, tex.Width, tex.Height))
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			c := tex.At(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(tm.apply(c.R)*255 + 0.5),
				G: uint8(tm.apply(c.G)*255 + 0.5),
				B: uint8(tm.apply(c.B)*255 + 0.5),
				A: 255,
			})
		}
	}
	return img
}

// ToImage16 converts a color texture to a 16-bit image, suitable for TIFF output
func ToImage16(tex *Texture[RGBA], tm ToneMap) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, tex.Width, tex.Height))
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			c := tex.At(x, y)
			img.SetRGBA64(x, y, color.RGBA64{
				R: uint16(tm.apply(c.R)*65535 + 0.5),
				G: uint16(tm.apply(c.G)*65535 + 0.5),
				B: uint16(tm.apply(c.B)*65535 + 0.5),
				A: 65535,
			})
		}
	}
	return img
}
