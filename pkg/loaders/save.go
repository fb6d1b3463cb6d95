package loaders

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// SaveImage writes img to filename, choosing the encoder from the extension
func SaveImage(filename string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(filename))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}

	switch ext {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 95})
	case ".tif", ".tiff":
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case ".bmp":
		err = bmp.Encode(file, img)
	default:
		err = fmt.Errorf("unsupported image format %q", ext)
	}
	if err != nil {
		file.Close()
		os.Remove(filename)
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}
