// Package gerstner synthesizes ocean waves as a sum of Gerstner waves
// sampled from a wave spectrum and renders them into a cascaded
// displacement texture array on a wgpu hal device.
//
// # Overview
//
// A Shape samples wavelengths, directions and amplitudes from a
// spectrum.Spectrum, then partitions the resulting components across 16
// cascades. Cascade c covers a square world tile of 0.5·2^c meters and
// holds the wavelengths it can resolve at the configured resolution. Each
// cascade's waves are packed four at a time and evaluated by a compute
// kernel into one layer of an RGBA16Float texture array: XYZ
// displacement plus the cumulative variance of all coarser cascades.
//
// # Quick Start
//
//	shape, err := gerstner.New(
//	    gerstner.WithSpectrum(spectrum.JONSWAP(12, 300)),
//	    gerstner.WithResolution(64),
//	    gerstner.WithDefaultDevice(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shape.Close()
//
//	// every frame
//	ocean.Advance(dt)
//	if err := shape.Update(encoder); err != nil {
//	    log.Print(err)
//	}
//
// Without a device option the Shape is headless: it still generates and
// slices waves, and SampleDisplacement and Field evaluate them on the CPU.
//
// # Compositing
//
// Shapes created WithRegistrar add one batch per populated cascade to a
// lod.Registry. A Compositor draws the batches whose wavelength an LOD can
// resolve into that LOD's target with additive blending.
//
// # Logging
//
// The package is silent by default. SetLogger installs a slog.Logger for
// this package and its internal GPU plumbing.
package gerstner
