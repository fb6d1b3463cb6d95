// Package frame holds the per-pixel textures exchanged between the
// visibility producer, the resampling pipeline and image output.
package frame

import (
	"fmt"
	"slices"
)

// Texture is a row-major 2D array of texels
type Texture[T any] struct {
	Width  int
	Height int
	Data   []T
}

// NewTexture allocates a zeroed texture
func NewTexture[T any](width, height int) *Texture[T] {
	return &Texture[T]{Width: width, Height: height, Data: make([]T, width*height)}
}

// Size returns the texture dimensions
func (t *Texture[T]) Size() (int, int) {
	return t.Width, t.Height
}

// Index returns the linear index of texel (x, y)
func (t *Texture[T]) Index(x, y int) int {
	return y*t.Width + x
}

// InBounds reports whether (x, y) lies inside the texture
func (t *Texture[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < t.Width && y < t.Height
}

func (t *Texture[T]) At(x, y int) T {
	return t.Data[y*t.Width+x]
}

func (t *Texture[T]) Set(x, y int, v T) {
	t.Data[y*t.Width+x] = v
}

// Clone returns a deep copy
func (t *Texture[T]) Clone() *Texture[T] {
	return &Texture[T]{Width: t.Width, Height: t.Height, Data: slices.Clone(t.Data)}
}

// Fill sets every texel to v
func (t *Texture[T]) Fill(v T) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// Resize changes the dimensions, reusing storage when it is large enough.
// Contents are zeroed.
func (t *Texture[T]) Resize(width, height int) {
	n := width * height
	if cap(t.Data) >= n {
		t.Data = t.Data[:n]
		clear(t.Data)
	} else {
		t.Data = make([]T, n)
	}
	t.Width, t.Height = width, height
}

func (t *Texture[T]) String() string {
	return fmt.Sprintf("%dx%d", t.Width, t.Height)
}

// Sized is anything with pixel dimensions
type Sized interface {
	Size() (int, int)
}

// SameSize reports whether a and b have identical dimensions
func SameSize(a, b Sized) bool {
	aw, ah := a.Size()
	bw, bh := b.Size()
	return aw == bw && ah == bh
}

// RGBA is a 32-bit float color texel
type RGBA struct {
	R, G, B, A float32
}

// MotionVector is the screen-space offset from a pixel's current position to
// its position in the previous frame, in [0,1] screen units
type MotionVector struct {
	X, Y float32
}
