// Command waveview shows the 16 cascade slices of a Gerstner wave shape
// as they evolve over time.
//
// Keys: space pauses, up and down change the resolution, left and right
// rotate the heading, R reseeds.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gogpu/gerstner"
	"github.com/gogpu/gerstner/internal/preview"
	"github.com/gogpu/gerstner/spectrum"
)

const (
	cols = 8
	rows = gerstner.CascadeCount / cols
)

var (
	specPath = flag.String("spectrum", "", "spectrum asset (JSON)")
	wind     = flag.Float64("wind", 0, "JONSWAP wind speed in m/s; 0 keeps the default spectrum")
	cellSize = flag.Int("cell", 128, "slice size in pixels")
	startRes = flag.Int("res", 32, "cascade layer resolution")
	cpo      = flag.Int("cpo", 8, "components per octave")
	verbose  = flag.Bool("v", false, "debug logging")
)

// Viewer is the ebiten game showing one shape.
type Viewer struct {
	shape *gerstner.Shape
	ocean *gerstner.StaticOcean
	spec  spectrum.Spectrum

	seed    int64
	heading float32
	paused  bool

	sheet  *ebiten.Image
	status string
}

func newViewer(spec spectrum.Spectrum) (*Viewer, error) {
	v := &Viewer{ocean: gerstner.NewStaticOcean(), spec: spec}
	if err := v.rebuild(*startRes); err != nil {
		return nil, err
	}
	return v, nil
}

// rebuild replaces the shape, keeping the clock.
func (v *Viewer) rebuild(resolution int) error {
	shape, err := gerstner.New(
		gerstner.WithSpectrum(v.spec),
		gerstner.WithResolution(resolution),
		gerstner.WithComponentsPerOctave(*cpo),
		gerstner.WithSeed(v.seed),
		gerstner.WithHeading(v.heading),
		gerstner.WithOcean(v.ocean),
	)
	if err != nil {
		return err
	}
	if err := shape.Update(nil); err != nil {
		_ = shape.Close()
		return err
	}
	if v.shape != nil {
		_ = v.shape.Close()
	}
	v.shape = shape
	return nil
}

func (v *Viewer) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		v.paused = !v.paused
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		v.resize(2)
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		v.resize(0.5)
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft):
		v.turn(-15)
	case inpututil.IsKeyJustPressed(ebiten.KeyRight):
		v.turn(15)
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		v.seed++
		v.rebuildOrLog(v.shape.Resolution())
	}
	if !v.paused {
		v.ocean.Advance(1 / float32(ebiten.TPS()))
	}
	v.ocean.ResetMaxDisplacement()
	if err := v.shape.Update(nil); err != nil {
		return err
	}

	img := preview.Sheet(v.shape.Field(), cols, *cellSize)
	if v.sheet == nil {
		v.sheet = ebiten.NewImage(img.Bounds().Dx(), img.Bounds().Dy())
	}
	v.sheet.WritePixels(img.Pix)

	c := v.shape.Cascades()
	_, vert, _ := v.ocean.MaxDisplacement()
	v.status = fmt.Sprintf("t %.1fs  res %d  heading %.0f°  seed %d  cascades %d..%d  packed %d  max |y| %.2fm",
		v.ocean.CurrentTime(), v.shape.Resolution(), v.heading, v.seed, c.First, c.Last, c.Packed, vert)
	return nil
}

func (v *Viewer) resize(factor float64) {
	n := int(float64(v.shape.Resolution()) * factor)
	if n < gerstner.MinResolution || n > gerstner.MaxResolution {
		return
	}
	if err := v.shape.SetResolution(n); err != nil {
		log.Print(err)
	}
}

func (v *Viewer) turn(deg float32) {
	v.heading += deg
	v.shape.SetHeading(v.heading)
}

func (v *Viewer) rebuildOrLog(resolution int) {
	if err := v.rebuild(resolution); err != nil {
		log.Print(err)
	}
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	if v.sheet != nil {
		screen.DrawImage(v.sheet, nil)
	}
	h := rows * *cellSize
	ebitenutil.DebugPrintAt(screen, v.status, 4, h-16)
}

// Layout reports the logical screen size used by Ebiten.
func (v *Viewer) Layout(_, _ int) (int, int) { return cols * *cellSize, rows * *cellSize }

func main() {
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	gerstner.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var spec spectrum.Spectrum = spectrum.Default()
	switch {
	case *specPath != "":
		s, err := spectrum.LoadFile(*specPath)
		if err != nil {
			log.Fatalf("spectrum: %v", err)
		}
		spec = s
	case *wind > 0:
		spec = spectrum.JONSWAP(float32(*wind), 300)
	}

	v, err := newViewer(spec)
	if err != nil {
		log.Fatalf("create shape: %v", err)
	}
	defer func() { _ = v.shape.Close() }()

	ebiten.SetWindowSize(cols * *cellSize, rows * *cellSize)
	ebiten.SetWindowTitle("Gerstner cascades")
	if err := ebiten.RunGame(v); err != nil {
		log.Fatal(err)
	}
}
