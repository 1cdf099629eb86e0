package gerstner

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gerstner/internal/cascade"
	"github.com/gogpu/gerstner/internal/cpu"
	"github.com/gogpu/gerstner/internal/gpu"
	"github.com/gogpu/gerstner/internal/synth"
	"github.com/gogpu/gerstner/lod"
	"github.com/gogpu/gerstner/spectrum"
)

// Components are the sampled waves of a shape, as parallel arrays sorted
// by wavelength.
type Components = synth.Components

// Cascades describes the last slicing pass. Groups holds the packed waves.
type Cascades = cascade.Result

// Field is a CPU evaluation of every populated cascade layer.
type Field = cpu.Field

// CascadeCount is the number of cascades, one texture layer each.
const CascadeCount = cascade.Count

// Shape turns a wave spectrum into Gerstner waves, packs them into
// cascades and records the compute work that renders them into a
// displacement texture array.
//
// Shape is safe for concurrent use.
type Shape struct {
	mu   sync.Mutex
	opts options

	ocean     Ocean
	registrar lod.Registrar

	comps  synth.Components
	slicer cascade.Slicer
	result cascade.Result
	source cpu.Source

	generated  bool
	dirty      bool
	needUpload bool
	closed     bool

	batches []lod.Input

	dev        *gpu.Device
	ownsDevice bool
	res        *gpu.Resources
	disp       *gpu.Dispatcher

	eval    *cpu.Evaluator
	field   cpu.Field
	scratch []byte
}

// New creates a Shape. Waves are generated on the first Update, or
// earlier by Regenerate.
func New(opts ...Option) (*Shape, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.spec == nil {
		o.spec = spectrum.Default()
	}
	if err := validate(&o); err != nil {
		return nil, err
	}
	if o.ocean == nil {
		o.ocean = NewStaticOcean()
	}

	s := &Shape{opts: o, ocean: o.ocean, registrar: o.registrar}
	s.slicer.Policy = o.overflow
	s.result = cascade.Result{First: -1, Last: -1}
	s.source = cpu.Source{First: -1, Last: -1}

	if err := s.attachDevice(); err != nil {
		return nil, err
	}
	return s, nil
}

func validate(o *options) error {
	if isNil(o.spec) {
		return ErrNilSpectrum
	}
	if o.resolution < MinResolution || o.resolution > MaxResolution {
		return fmt.Errorf("%w: %d", ErrInvalidResolution, o.resolution)
	}
	if o.componentsPerOctave < 1 || o.componentsPerOctave > MaxComponentsPerOctave {
		return fmt.Errorf("%w: %d", ErrInvalidComponentsPerOctave, o.componentsPerOctave)
	}
	return nil
}

func isNil(s spectrum.Spectrum) bool {
	if s == nil {
		return true
	}
	ows, ok := s.(*spectrum.OceanWaveSpectrum)
	return ok && ows == nil
}

func (s *Shape) attachDevice() error {
	switch {
	case s.opts.device != nil:
		s.dev = gpu.Wrap(s.opts.device, s.opts.queue, true)
	case s.opts.provider != nil:
		dev, err := gpu.FromProvider(s.opts.provider)
		if err != nil {
			return err
		}
		s.dev = dev
	case s.opts.defaultDevice:
		dev, err := gpu.Open()
		if err != nil {
			return fmt.Errorf("open device: %w", err)
		}
		s.dev, s.ownsDevice = dev, true
	default:
		return nil
	}
	s.res = gpu.NewResources(s.dev)
	if !s.dev.Compute {
		Logger().Warn("gerstner: adapter has no compute support, evaluating waves on the CPU",
			"adapter", s.dev.Name)
	}
	return nil
}

// Update brings the packed waves up to date and, with a device attached,
// records their dispatch into enc. The caller submits enc.
//
// Waves are generated on the first call and, unless the spectrum is fixed
// at runtime, on every call. An origin shift since the last call re-slices
// without resampling.
func (s *Shape) Update(enc hal.CommandEncoder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var err error
	switch {
	case !s.generated || !s.opts.fixedAtRuntime:
		err = s.regenerate()
	case s.dirty:
		err = s.reslice()
	}
	if err != nil {
		return err
	}
	s.reportMaxDisplacement()

	if s.dev == nil {
		return nil
	}
	return s.render(enc)
}

// Regenerate resamples the spectrum and repacks the cascades now.
func (s *Shape) Regenerate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.regenerate()
}

func (s *Shape) regenerate() error {
	spec := s.opts.spec
	if err := spectrum.Check(spec); err != nil {
		Logger().Error("gerstner: spectrum tables are out of date, octave lookups are clamped",
			"err", err, "octaves", spec.OctaveCount(), "chopScales", len(spec.ChopScales()))
	}
	s.comps.Generate(s.opts.seed, spec, s.opts.componentsPerOctave, s.opts.weight)
	s.generated = true
	return s.reslice()
}

// reslice packs the current components. A failed pass under
// FailOnOverflow leaves the previous packing and upload in place.
func (s *Shape) reslice() error {
	res, err := s.slicer.Slice(cascade.Input{
		Wavelengths:         s.comps.Wavelengths,
		Amplitudes:          s.comps.Amplitudes,
		AnglesDeg:           s.comps.AnglesDeg,
		Phases:              s.comps.Phases,
		ComponentsPerOctave: s.opts.componentsPerOctave,
		Resolution:          s.opts.resolution,
		MinTexelsPerWave:    s.ocean.MinTexelsPerWave(),
		Gravity:             s.ocean.Gravity(),
		Spectrum:            s.opts.spec,
	})
	s.dirty = false
	if err != nil {
		return fmt.Errorf("slice waves: %w", err)
	}
	if res.Dropped() > 0 && s.opts.overflow == TruncateAndWarn {
		Logger().Warn("gerstner: wave components dropped",
			"beyondLastCascade", res.DroppedCoarse, "arenaFull", res.DroppedFull, "packed", res.Packed)
	}
	Logger().Debug("gerstner: waves sliced",
		"first", res.First, "last", res.Last, "packed", res.Packed, "groups", len(res.Groups),
		"negligible", res.Negligible, "tooFine", res.DroppedFine)

	s.result = res
	s.result.Groups = slices.Clone(res.Groups)
	s.source = cpu.Source{Groups: s.result.Groups, Params: res.Params, First: res.First, Last: res.Last}
	s.needUpload = true
	s.rebuildBatches()
	return nil
}

// reportMaxDisplacement tells the ocean how far the waves can reach.
func (s *Shape) reportMaxDisplacement() {
	spec := s.opts.spec
	chops := spec.ChopScales()
	if len(chops) != spec.OctaveCount() {
		Logger().Error("gerstner: chop table length does not match octave count",
			"chopScales", len(chops), "octaves", spec.OctaveCount())
	}
	cpo := s.opts.componentsPerOctave
	var ampSum float32
	for i, a := range s.comps.Amplitudes {
		ampSum += a * cascade.TableAt(chops, i/cpo)
	}
	s.ocean.ReportMaxDisplacement(ampSum*spec.Chop(), ampSum, ampSum)
}

func (s *Shape) frame() gpu.Frame {
	return gpu.Frame{
		Time:  s.ocean.CurrentTime(),
		AxisX: s.primaryWaveDirection(),
		First: s.result.First,
		Last:  s.result.Last,
	}
}

// render uploads pending data and records the dispatch. Without compute
// support the layers are evaluated here and written through the queue.
func (s *Shape) render(enc hal.CommandEncoder) error {
	created, err := s.res.Ensure(s.opts.resolution)
	if err != nil {
		s.releaseGPU()
		return fmt.Errorf("create wave resources: %w", err)
	}
	if created || s.needUpload {
		if err := s.res.Upload(s.result.Groups, &s.result.Params); err != nil {
			return err
		}
		s.needUpload = false
	}

	f := s.frame()
	if !s.dev.Compute {
		return s.uploadEvaluated(f)
	}
	if enc == nil {
		return ErrNilEncoder
	}
	if s.disp == nil {
		disp, err := gpu.NewDispatcher(s.dev)
		if err != nil {
			s.releaseGPU()
			return fmt.Errorf("create wave dispatcher: %w", err)
		}
		s.disp = disp
	}
	return s.disp.Encode(enc, s.res, f)
}

func (s *Shape) uploadEvaluated(f gpu.Frame) error {
	if f.First < 0 {
		return nil
	}
	s.evaluate(f, &s.field)
	for c := f.First; c <= f.Last; c++ {
		s.scratch = cpu.AppendRGBA16F(s.scratch[:0], s.field.Layers[c])
		if err := s.res.UploadLayer(c, s.scratch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shape) evaluate(f gpu.Frame, dst *cpu.Field) {
	if s.eval == nil {
		s.eval = cpu.NewEvaluator(s.opts.workers)
	}
	s.eval.Evaluate(&s.source, s.opts.resolution, cpu.Frame{Time: f.Time, AxisX: f.AxisX}, dst)
}

func (s *Shape) releaseGPU() {
	if s.disp != nil {
		s.disp.Destroy()
		s.disp = nil
	}
	if s.res != nil {
		s.res.Release()
	}
}

// Device returns the hal device and queue the shape renders on, or false
// for a headless shape.
func (s *Shape) Device() (hal.Device, hal.Queue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil, nil, false
	}
	return s.dev.Device, s.dev.Queue, true
}

// SetOrigin compensates the wave phases for a world origin moved by
// offset, so the rendered surface does not jump. The cascades are
// re-packed on the next Update.
func (s *Shape) SetOrigin(offset mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.comps.HasPhases() {
		return
	}
	synth.ShiftOrigin(&s.comps, offset, s.opts.headingDeg)
	s.dirty = true
}

// SetSpectrum replaces the spectrum. Waves are regenerated on the next
// Update.
func (s *Shape) SetSpectrum(spec spectrum.Spectrum) error {
	if isNil(spec) {
		return ErrNilSpectrum
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.spec = spec
	s.generated = false
	return nil
}

// SetResolution changes the layer resolution. Cascade wavelength ranges
// depend on it, so the waves are re-packed and the device resources are
// recreated on the next Update.
func (s *Shape) SetResolution(n int) error {
	if n < MinResolution || n > MaxResolution {
		return fmt.Errorf("%w: %d", ErrInvalidResolution, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n != s.opts.resolution {
		s.opts.resolution = n
		s.dirty = true
	}
	return nil
}

// SetHeading rotates the primary wave direction. Component angles are
// relative to it, so the waves turn without being resampled.
func (s *Shape) SetHeading(deg float32) {
	s.mu.Lock()
	s.opts.headingDeg = deg
	s.mu.Unlock()
}

// SetWeight changes the shape weight. It scales drawing at once and the
// sampled amplitudes from the next regeneration.
func (s *Shape) SetWeight(w float32) {
	s.mu.Lock()
	s.opts.weight = w
	s.mu.Unlock()
}

// Resolution returns the layer resolution.
func (s *Shape) Resolution() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.resolution
}

// MinWavelength returns the shortest wavelength cascade c holds.
func (s *Shape) MinWavelength(c int) float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cascade.MinWavelength(c, s.opts.resolution, s.ocean.MinTexelsPerWave())
}

// PrimaryWaveDirection returns the unit XZ heading the wave angles are
// relative to.
func (s *Shape) PrimaryWaveDirection() mgl32.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primaryWaveDirection()
}

func (s *Shape) primaryWaveDirection() mgl32.Vec2 {
	sin, cos := math.Sincos(float64(mgl32.DegToRad(s.opts.headingDeg)))
	return mgl32.Vec2{float32(cos), float32(sin)}
}

// Components returns a copy of the sampled waves.
func (s *Shape) Components() Components {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Components{
		Wavelengths: slices.Clone(s.comps.Wavelengths),
		AnglesDeg:   slices.Clone(s.comps.AnglesDeg),
		Amplitudes:  slices.Clone(s.comps.Amplitudes),
		Powers:      slices.Clone(s.comps.Powers),
		Phases:      slices.Clone(s.comps.Phases),
	}
}

// Cascades returns a copy of the last slicing result.
func (s *Shape) Cascades() Cascades {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.result
	r.Groups = slices.Clone(r.Groups)
	return r
}

// SampleDisplacement evaluates the summed displacement of every populated
// cascade at world position (x, z) and the ocean's current time.
func (s *Shape) SampleDisplacement(x, z float32) mgl32.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.frame()
	return cpu.Sample(&s.source, f.First, f.Last, x, z, cpu.Frame{Time: f.Time, AxisX: f.AxisX})
}

// Field evaluates every populated cascade layer on the CPU, texel for
// texel what the compute kernel writes.
func (s *Shape) Field() *Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f Field
	s.evaluate(s.frame(), &f)
	return &f
}

// Close deregisters the shape's draws and releases everything it owns.
// Further calls return ErrClosed.
func (s *Shape) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.removeBatches()
	s.releaseGPU()
	if s.eval != nil {
		s.eval.Close()
		s.eval = nil
	}
	if s.ownsDevice {
		s.dev.Close()
	}
	s.dev = nil
	return nil
}
