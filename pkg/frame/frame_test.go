package frame

import (
	"math"
	"testing"
)

func TestVisibility_RoundTrip(t *testing.T) {
	tests := []struct {
		shapeID int
		t       float32
	}{
		{0, 1.5},
		{7, 1000.25},
		{123456, 0.001},
	}
	for _, tt := range tests {
		v := PackVisibility(tt.shapeID, tt.t)
		id, dist, ok := v.Unpack()
		if !ok {
			t.Errorf("Expected valid visibility for shape %d", tt.shapeID)
			continue
		}
		if id != tt.shapeID || dist != tt.t {
			t.Errorf("Expected (%d, %v), got (%d, %v)", tt.shapeID, tt.t, id, dist)
		}
	}
}

func TestVisibility_Invalid(t *testing.T) {
	tests := []struct {
		name string
		v    Visibility
	}{
		{"miss", Miss},
		{"negative shape", PackVisibility(-1, 1)},
		{"zero distance", PackVisibility(3, 0)},
		{"negative distance", PackVisibility(3, -2)},
		{"nan distance", PackVisibility(3, float32(math.NaN()))},
		{"inf distance", PackVisibility(3, float32(math.Inf(1)))},
	}
	for _, tt := range tests {
		if _, _, ok := tt.v.Unpack(); ok {
			t.Errorf("%s: expected invalid visibility", tt.name)
		}
	}
}

func TestTexture_ResizeReusesStorage(t *testing.T) {
	tex := NewTexture[RGBA](4, 4)
	tex.Fill(RGBA{1, 1, 1, 1})

	tex.Resize(2, 2)
	if len(tex.Data) != 4 || cap(tex.Data) != 16 {
		t.Errorf("Expected len 4 cap 16, got len %d cap %d", len(tex.Data), cap(tex.Data))
	}
	for i, v := range tex.Data {
		if v != (RGBA{}) {
			t.Errorf("Expected texel %d cleared, got %v", i, v)
		}
	}

	tex.Resize(8, 8)
	if len(tex.Data) != 64 || tex.Width != 8 || tex.Height != 8 {
		t.Errorf("Expected 8x8 texture, got %v with %d texels", tex, len(tex.Data))
	}
}

func TestTexture_AccessAndSize(t *testing.T) {
	a := NewTexture[float32](3, 2)
	b := NewTexture[RGBA](3, 2)
	c := NewTexture[RGBA](2, 3)

	a.Set(2, 1, 5)
	if got := a.Data[a.Index(2, 1)]; got != 5 {
		t.Errorf("Expected 5, got %v", got)
	}
	if !a.InBounds(2, 1) || a.InBounds(3, 0) || a.InBounds(0, -1) {
		t.Errorf("Unexpected bounds result")
	}
	if !SameSize(a, b) {
		t.Errorf("Expected %v and %v to match", a, b)
	}
	if SameSize(b, c) {
		t.Errorf("Expected %v and %v to differ", b, c)
	}
}

func TestToImage(t *testing.T) {
	tex := NewTexture[RGBA](2, 1)
	tex.Set(0, 0, RGBA{R: 1, G: 0.5, B: float32(math.NaN()), A: 1})
	tex.Set(1, 0, RGBA{R: float32(math.Inf(1)), G: -1, B: 4, A: 1})

	img := ToImage(tex, ToneMap{Exposure: 1, Gamma: 1})
	p := img.RGBAAt(0, 0)
	if p.R != 255 || p.G != 128 || p.B != 0 || p.A != 255 {
		t.Errorf("Expected (255,128,0,255), got %v", p)
	}
	p = img.RGBAAt(1, 0)
	if p.R != 255 || p.G != 0 || p.B != 255 {
		t.Errorf("Expected clamped (255,0,255), got %v", p)
	}

	img16 := ToImage16(tex, DefaultToneMap())
	if got := img16.RGBA64At(0, 0).R; got != 65535 {
		t.Errorf("Expected 65535, got %d", got)
	}
}

func TestChannels(t *testing.T) {
	var inputs, outputs int
	for _, c := range Channels() {
		if c.Kind == ChannelInput {
			inputs++
		} else {
			outputs++
		}
	}
	if inputs != 3 || outputs != 2 {
		t.Errorf("Expected 3 inputs and 2 outputs, got %d and %d", inputs, outputs)
	}
}
