package gerstner

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gerstner/internal/cascade"
	"github.com/gogpu/gerstner/lod"
	"github.com/gogpu/gerstner/spectrum"
)

// Resolution and components-per-octave limits.
const (
	MinResolution          = 4
	MaxResolution          = 4096
	MaxComponentsPerOctave = 128
)

// OverflowPolicy selects what happens to components that do not fit the
// cascades or the packed-group arena.
type OverflowPolicy = cascade.OverflowPolicy

// Overflow policies.
const (
	TruncateAndWarn  = cascade.TruncateAndWarn
	TruncateSilently = cascade.TruncateSilently
	FailOnOverflow   = cascade.FailOnOverflow
)

// Option configures a Shape during creation.
//
// Example:
//
//	shape, err := gerstner.New(
//	    gerstner.WithSpectrum(spectrum.JONSWAP(12, 300)),
//	    gerstner.WithResolution(64),
//	    gerstner.WithRegistrar(registry),
//	)
type Option func(*options)

type options struct {
	spec                spectrum.Spectrum
	componentsPerOctave int
	seed                int64
	resolution          int
	headingDeg          float32
	weight              float32
	fixedAtRuntime      bool
	overflow            OverflowPolicy

	mesh      *lod.Mesh
	transform mgl32.Mat4

	respectShallowWater   float32
	featherWaveStart      float32
	featherFromSplineEnds float32

	device        hal.Device
	queue         hal.Queue
	provider      gpucontext.DeviceProvider
	defaultDevice bool

	ocean     Ocean
	registrar lod.Registrar
	workers   int
}

func defaultOptions() options {
	return options{
		componentsPerOctave: 8,
		resolution:          32,
		weight:              1,
		fixedAtRuntime:      true,
		overflow:            TruncateAndWarn,
		transform:           mgl32.Ident4(),
		respectShallowWater: 1,
		featherWaveStart:    0.1,
	}
}

// WithSpectrum sets the wave spectrum. The default is spectrum.Default().
func WithSpectrum(s spectrum.Spectrum) Option {
	return func(o *options) { o.spec = s }
}

// WithComponentsPerOctave sets how many waves are sampled per octave.
// Counts above 64 can exceed the packed-group arena.
func WithComponentsPerOctave(n int) Option {
	return func(o *options) { o.componentsPerOctave = n }
}

// WithSeed sets the random seed. Equal seeds give identical waves.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithResolution sets the size of each cascade layer in texels.
func WithResolution(n int) Option {
	return func(o *options) { o.resolution = n }
}

// WithHeading sets the primary wave direction in degrees.
func WithHeading(deg float32) Option {
	return func(o *options) { o.headingDeg = deg }
}

// WithWeight scales the whole shape. Zero disables drawing.
func WithWeight(w float32) Option {
	return func(o *options) { o.weight = w }
}

// WithSpectrumFixedAtRuntime controls whether waves are generated once
// (true, the default) or regenerated on every Update, which picks up live
// spectrum edits.
func WithSpectrumFixedAtRuntime(fixed bool) Option {
	return func(o *options) { o.fixedAtRuntime = fixed }
}

// WithOverflowPolicy sets the overflow policy. The default is
// TruncateAndWarn.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(o *options) { o.overflow = p }
}

// WithMesh draws the waves through m instead of a fullscreen triangle,
// which confines them to the mesh footprint.
func WithMesh(m *lod.Mesh) Option {
	return func(o *options) { o.mesh = m }
}

// WithTransform places the mesh in the world.
func WithTransform(m mgl32.Mat4) Option {
	return func(o *options) { o.transform = m }
}

// WithShallowWaterAttenuation sets how strongly shallow water damps the
// waves, from 0 (not at all) to 1.
func WithShallowWaterAttenuation(respect float32) Option {
	return func(o *options) { o.respectShallowWater = respect }
}

// WithFeather sets the feather widths, in mesh UV units, at the mesh's
// outer edge and at its two ends.
func WithFeather(waveStart, fromSplineEnds float32) Option {
	return func(o *options) {
		o.featherWaveStart = waveStart
		o.featherFromSplineEnds = fromSplineEnds
	}
}

// WithDevice renders on an existing hal device. The Shape never destroys
// it.
func WithDevice(device hal.Device, queue hal.Queue) Option {
	return func(o *options) {
		o.device = device
		o.queue = queue
	}
}

// WithDeviceProvider renders on the device of a host application.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithDefaultDevice opens and owns a device on the best available backend.
func WithDefaultDevice() Option {
	return func(o *options) { o.defaultDevice = true }
}

// WithOcean sets the host ocean. The default is NewStaticOcean().
func WithOcean(ocean Ocean) Option {
	return func(o *options) { o.ocean = ocean }
}

// WithRegistrar registers the shape's draws with a compositor.
func WithRegistrar(r lod.Registrar) Option {
	return func(o *options) { o.registrar = r }
}

// WithWorkers sets the goroutine count of CPU evaluation. Zero or less
// means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}
