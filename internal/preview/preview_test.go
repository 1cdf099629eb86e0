package preview

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/gerstner/internal/cpu"
)

func TestChannel(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-1, 0},
		{0, 128},
		{1, 255},
		{5, 255},
		{-5, 0},
	}
	for _, tt := range tests {
		if got := channel(tt.in); got != tt.want {
			t.Errorf("channel(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLayer(t *testing.T) {
	layer := []mgl32.Vec4{{2, 0, -2, 9}, {0, 2, 0, 9}, {}, {}}
	img := Layer(layer, 2, 2)

	if got, want := img.RGBAAt(0, 0), (color.RGBA{255, 128, 0, 255}); got != want {
		t.Errorf("pixel (0,0) = %v, want %v", got, want)
	}
	if got, want := img.RGBAAt(1, 0), (color.RGBA{128, 255, 128, 255}); got != want {
		t.Errorf("pixel (1,0) = %v, want %v", got, want)
	}

	black := Layer(nil, 2, 1)
	if got := black.RGBAAt(1, 1); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("nil layer pixel = %v, want opaque black", got)
	}
}

func TestMaxAbs(t *testing.T) {
	var f cpu.Field
	f.Layers[2] = []mgl32.Vec4{{0.5, -3, 1, 100}}
	f.Layers[7] = []mgl32.Vec4{{-2, 0, 0, 0}}
	if got := MaxAbs(&f); got != 3 {
		t.Errorf("MaxAbs() = %v, want 3", got)
	}
}

func TestSheet(t *testing.T) {
	f := cpu.Field{Resolution: 4}
	f.Layers[0] = make([]mgl32.Vec4, 16)
	sheet := Sheet(&f, 8, 32)
	if b := sheet.Bounds(); b.Dx() != 256 || b.Dy() != 64 {
		t.Errorf("Sheet() bounds = %v, want 256x64", b)
	}
	// A flat layer maps to mid-grey away from the label.
	if got := sheet.RGBAAt(30, 30); got != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("flat cell pixel = %v, want mid-grey", got)
	}
	if got := sheet.RGBAAt(62, 30); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("empty cell pixel = %v, want black", got)
	}
}
