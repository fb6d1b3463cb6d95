package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/lights"
)

// ImageData contains loaded image data as Vec3 color array
type ImageData struct {
	Width  int
	Height int
	Pixels []core.Vec3
	Format string
}

// LoadImage loads a PNG, JPEG, TIFF or BMP image and converts it to a Vec3
// color array in [0,1]. When linear is true the sRGB transfer curve is removed.
func LoadImage(filename string, linear bool) (*ImageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	// Decode image (auto-detects the format from the file header)
	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filename, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]core.Vec3, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// RGBA returns uint32 in [0, 65535], convert to [0, 1]
			c := core.NewVec3(
				float64(r)/65535.0,
				float64(g)/65535.0,
				float64(b)/65535.0,
			)
			if linear {
				c = core.NewVec3(srgbToLinear(c.X), srgbToLinear(c.Y), srgbToLinear(c.Z))
			}
			pixels[y*width+x] = c
		}
	}

	core.Logger().Debug("loaded image", "file", filename, "format", format, "width", width, "height", height)

	return &ImageData{
		Width:  width,
		Height: height,
		Pixels: pixels,
		Format: format,
	}, nil
}

// LoadEnvironmentMap loads a lat-long image as an environment light
func LoadEnvironmentMap(filename string, scale float64) (*lights.EnvironmentMap, error) {
	data, err := LoadImage(filename, true)
	if err != nil {
		return nil, err
	}
	return lights.NewEnvironmentMap(data.Width, data.Height, data.Pixels, scale)
}

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
