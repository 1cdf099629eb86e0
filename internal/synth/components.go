package synth

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/gerstner/internal/cascade"
	"github.com/gogpu/gerstner/spectrum"
)

// Components holds parallel per-wave arrays, ordered by octave and then by
// in-octave index, which keeps wavelengths ascending.
type Components struct {
	Wavelengths []float32
	AnglesDeg   []float32
	Amplitudes  []float32
	Powers      []float32
	Phases      []float32
}

// Len returns the number of components.
func (c Components) Len() int { return len(c.Wavelengths) }

// HasPhases reports whether phases exist for every component.
func (c Components) HasPhases() bool {
	return len(c.Phases) > 0 && len(c.Phases) == len(c.Wavelengths)
}

// Generate re-derives every array for the given inputs. Phases are only
// re-initialised when the component count changed, using a fresh stream
// on the same seed, so spectrum edits keep waves temporally coherent.
func (c *Components) Generate(seed int64, spec spectrum.Spectrum, componentsPerOctave int, weight float32) {
	rng := NewStream(seed)
	Sample(rng, spec, componentsPerOctave, c)
	UpdateAmplitudes(rng, spec, componentsPerOctave, weight, c)

	if len(c.Phases) != len(c.Wavelengths) {
		c.Phases = InitPhases(NewStream(seed), componentsPerOctave, spec.OctaveCount())
	}
}

// Sample draws stratified wavelengths and direction angles. Within each
// octave the wavelength range and the angular range are both split into
// componentsPerOctave strata with one jittered sample per stratum.
func Sample(rng *Stream, spec spectrum.Spectrum, componentsPerOctave int, dst *Components) {
	octaves := spec.OctaveCount()
	total := octaves * componentsPerOctave
	dst.Wavelengths = resize(dst.Wavelengths, total)
	dst.AnglesDeg = resize(dst.AnglesDeg, total)

	inv := 1 / float32(componentsPerOctave)
	variance := spec.DirectionVariance()

	for o := range octaves {
		minWl := float32(math.Exp2(float64(spec.SmallestWavelengthPow2() + o)))
		for i := range componentsPerOctave {
			idx := o*componentsPerOctave + i

			lo := minWl + inv*minWl*float32(i)
			hi := min(lo+inv*minWl, 2*minWl)
			dst.Wavelengths[idx] = lo + (hi-lo)*rng.Float32()

			rnd := (float32(i) + rng.Float32()) * inv
			dst.AnglesDeg[idx] = (2*rnd - 1) * variance
		}
	}
}

// UpdateAmplitudes draws one random scale per component and multiplies it
// with the spectrum amplitude and the global weight.
func UpdateAmplitudes(rng *Stream, spec spectrum.Spectrum, componentsPerOctave int, weight float32, dst *Components) {
	n := len(dst.Wavelengths)
	dst.Amplitudes = resize(dst.Amplitudes, n)
	dst.Powers = resize(dst.Powers, n)

	cpo := float32(componentsPerOctave)
	for i, wl := range dst.Wavelengths {
		amp, power := spec.Amplitude(wl, cpo)
		dst.Amplitudes[i] = rng.Float32() * weight * amp
		dst.Powers[i] = power
	}
}

// InitPhases returns phases stratified per octave: component i of an
// octave lands in [2πi/cpo, 2π(i+1)/cpo).
func InitPhases(rng *Stream, componentsPerOctave, octaves int) []float32 {
	phases := make([]float32, componentsPerOctave*octaves)
	for o := range octaves {
		for i := range componentsPerOctave {
			rnd := (float32(i) + rng.Float32()) / float32(componentsPerOctave)
			phases[o*componentsPerOctave+i] = 2 * math.Pi * rnd
		}
	}
	return phases
}

// ShiftOrigin compensates phases for a re-centred world origin so that the
// rendered waveform does not jump. headingDeg is the primary wave heading.
// It does nothing before phases exist.
func ShiftOrigin(c *Components, offset mgl32.Vec3, headingDeg float32) {
	if !c.HasPhases() {
		return
	}
	o := mgl64.Vec3{float64(offset.X()), float64(offset.Y()), float64(offset.Z())}
	for i := range c.Phases {
		rad := mgl64.DegToRad(float64(headingDeg) + float64(c.AnglesDeg[i]))
		meters := o.Dot(mgl64.Vec3{math.Cos(rad), 0, math.Sin(rad)})
		k := 2 * math.Pi / float64(c.Wavelengths[i])
		c.Phases[i] = cascade.WrapPhase64(float64(c.Phases[i]) + meters*k)
	}
}

func resize(s []float32, n int) []float32 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]float32, n)
}
