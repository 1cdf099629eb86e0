// Command wavedump generates Gerstner waves from a spectrum, prints how
// they were distributed across cascades and writes every cascade layer to
// a PNG contact sheet.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gerstner"
	"github.com/gogpu/gerstner/internal/preview"
	"github.com/gogpu/gerstner/spectrum"
)

func main() {
	var (
		specPath   = flag.String("spectrum", "", "spectrum asset (JSON); default is a 10 m/s Pierson-Moskowitz sea")
		wind       = flag.Float64("wind", 0, "build a JONSWAP spectrum for this wind speed in m/s instead")
		fetch      = flag.Float64("fetch", 300, "JONSWAP fetch in km")
		upgrade    = flag.String("upgrade", "", "write the upgraded spectrum asset to this path")
		resolution = flag.Int("res", 32, "cascade layer resolution")
		cpo        = flag.Int("cpo", 8, "components per octave")
		seed       = flag.Int64("seed", 0, "random seed")
		heading    = flag.Float64("heading", 0, "primary wave direction in degrees")
		at         = flag.Float64("time", 0, "simulation time in seconds")
		output     = flag.String("output", "cascades.png", "contact sheet path; empty to skip")
		cell       = flag.Int("cell", 128, "contact sheet cell size in pixels")
		useGPU     = flag.Bool("gpu", false, "also dispatch the compute kernel on the default device")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	gerstner.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	spec, err := loadSpectrum(*specPath, float32(*wind), float32(*fetch))
	if err != nil {
		log.Fatalf("spectrum: %v", err)
	}
	if *upgrade != "" {
		if spec.Upgrade() {
			log.Printf("per-octave tables extended to %d octaves", spectrum.NumOctaves)
		}
		if err := spec.SaveFile(*upgrade); err != nil {
			log.Fatalf("save spectrum: %v", err)
		}
		log.Printf("spectrum saved to %s", *upgrade)
	}

	ocean := gerstner.NewStaticOcean()
	ocean.SetTime(float32(*at))

	opts := []gerstner.Option{
		gerstner.WithSpectrum(spec),
		gerstner.WithResolution(*resolution),
		gerstner.WithComponentsPerOctave(*cpo),
		gerstner.WithSeed(*seed),
		gerstner.WithHeading(float32(*heading)),
		gerstner.WithOcean(ocean),
	}
	if *useGPU {
		opts = append(opts, gerstner.WithDefaultDevice())
	}
	shape, err := gerstner.New(opts...)
	if err != nil {
		log.Fatalf("create shape: %v", err)
	}
	defer func() { _ = shape.Close() }()

	if *useGPU {
		if err := dispatch(shape); err != nil {
			log.Fatalf("gpu: %v", err)
		}
	} else if err := shape.Update(nil); err != nil {
		log.Fatalf("update: %v", err)
	}

	printCascades(shape)

	if *output != "" {
		if err := writeSheet(shape, *output, *cell); err != nil {
			log.Fatalf("write %s: %v", *output, err)
		}
		log.Printf("contact sheet saved to %s", *output)
	}
}

func loadSpectrum(path string, wind, fetch float32) (*spectrum.OceanWaveSpectrum, error) {
	switch {
	case path != "":
		return spectrum.LoadFile(path)
	case wind > 0:
		return spectrum.JONSWAP(wind, fetch), nil
	default:
		return spectrum.Default(), nil
	}
}

// dispatch records one update on the shape's device and waits for it.
func dispatch(shape *gerstner.Shape) error {
	dev, queue, ok := shape.Device()
	if !ok {
		return errors.New("no device attached")
	}
	enc, err := dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "wavedump"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("wavedump"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	if err := shape.Update(enc); err != nil {
		enc.DiscardEncoding()
		return err
	}
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer dev.FreeCommandBuffer(cmd)
	if _, err := queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return dev.WaitIdle()
}

func printCascades(shape *gerstner.Shape) {
	c := shape.Cascades()
	res := shape.Resolution()
	fmt.Printf("components %d  packed %d  negligible %d  too fine %d  beyond last %d  arena full %d\n",
		shape.Components().Len(), c.Packed, c.Negligible, c.DroppedFine, c.DroppedCoarse, c.DroppedFull)
	if !c.Populated() {
		fmt.Println("no cascade populated")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "cascade\tdiameter\tmin λ\tgroups\tvariance\t")
	for i := c.First; i <= c.Last; i++ {
		groups := c.Params[i+1].StartIndex - c.Params[i].StartIndex
		fmt.Fprintf(tw, "%d\t%.2f\t%.3f\t%d\t%.4g\t\n",
			i, gerstner.CascadeDiameter(i), gerstner.CascadeMinWavelength(i, res, gerstner.DefaultMinTexelsPerWave),
			groups, c.Params[i].CumulativeVariance)
	}
	_ = tw.Flush()
}

func writeSheet(shape *gerstner.Shape, path string, cell int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, preview.Sheet(shape.Field(), 8, cell)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
