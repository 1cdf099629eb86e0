// Package preview turns evaluated cascade layers into images.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/gerstner/internal/cpu"
)

// MaxAbs returns the largest absolute displacement component over every
// populated layer of f, ignoring the variance channel.
func MaxAbs(f *cpu.Field) float32 {
	var m float32
	for _, layer := range f.Layers {
		for _, v := range layer {
			for i := range 3 {
				m = max(m, float32(math.Abs(float64(v[i]))))
			}
		}
	}
	return m
}

// Layer renders one layer as an RGBA image: horizontal displacement in red
// and blue, vertical in green, mid-grey at rest. Values are divided by
// scale before mapping. A nil layer renders black.
func Layer(layer []mgl32.Vec4, resolution int, scale float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, resolution, resolution))
	if len(layer) < resolution*resolution {
		draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
		return img
	}
	if scale <= 0 {
		scale = 1
	}
	for y := range resolution {
		for x := range resolution {
			v := layer[y*resolution+x]
			img.SetRGBA(x, y, color.RGBA{
				R: channel(v.X() / scale),
				G: channel(v.Y() / scale),
				B: channel(v.Z() / scale),
				A: 0xff,
			})
		}
	}
	return img
}

func channel(v float32) uint8 {
	v = mgl32.Clamp(v, -1, 1)
	return uint8(math.Round(float64(v*127.5 + 127.5)))
}

// Sheet lays out every cascade layer in a grid of cols columns, each cell
// cell pixels wide, labelled with its cascade index.
func Sheet(f *cpu.Field, cols, cell int) *image.RGBA {
	n := len(f.Layers)
	rows := (n + cols - 1) / cols
	sheet := image.NewRGBA(image.Rect(0, 0, cols*cell, rows*cell))
	scale := MaxAbs(f)

	for c, layer := range f.Layers {
		src := Layer(layer, f.Resolution, scale)
		x0, y0 := (c%cols)*cell, (c/cols)*cell
		dst := image.Rect(x0, y0, x0+cell, y0+cell)
		draw.NearestNeighbor.Scale(sheet, dst, src, src.Bounds(), draw.Src, nil)
		label(sheet, x0+3, y0+13, fmt.Sprintf("%d", c))
	}
	return sheet
}

func label(dst draw.Image, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{0xff, 0xff, 0x00, 0xff}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
