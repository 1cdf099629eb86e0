// Package spectrum describes ocean wave spectra: per-octave power tables
// from which discrete wave components are drawn.
//
// Octave o covers wavelengths [2^(SmallestWavelengthPow2+o), 2^(SmallestWavelengthPow2+o+1)).
// The default layout spans 16 octaves starting at 1/16 m, one per cascade.
package spectrum

import (
	"errors"
	"fmt"
	"math"
)

const (
	// NumOctaves is the number of octaves described by a spectrum.
	NumOctaves = 16

	// SmallestWavelengthPow2 is log2 of the smallest wavelength, 1/16 m.
	SmallestWavelengthPow2 = -4

	// MinPowerLog and MaxPowerLog bound the log10 power of an octave.
	MinPowerLog = -8
	MaxPowerLog = 5

	// Gravity is the acceleration used to relate frequency and wavelength
	// inside the power tables.
	Gravity = 9.81
)

// ErrStaleTables reports a spectrum whose per-octave tables are shorter
// than NumOctaves. It is a configuration problem, not a fatal one: callers
// may keep generating with clamped octave indices.
var ErrStaleTables = errors.New("spectrum: per-octave tables are out of date")

// Spectrum is the read-only view of a wave spectrum consumed by the wave
// synthesizer.
type Spectrum interface {
	// Amplitude returns the amplitude of one component of the given
	// wavelength when an octave is split into componentsPerOctave
	// components, together with the interpolated spectral power.
	Amplitude(wavelength, componentsPerOctave float32) (amp, power float32)

	// OctaveIndex returns the octave a wavelength falls into. The result is
	// not clamped.
	OctaveIndex(wavelength float32) int

	OctaveCount() int
	SmallestWavelengthPow2() int

	// DirectionVariance is the half-angle in degrees over which component
	// directions are spread around the heading.
	DirectionVariance() float32

	Chop() float32
	GravityScale() float32
	ChopScales() []float32
	GravityScales() []float32
}

// OceanWaveSpectrum is a table-driven spectrum. Power is stored as log10
// per octave and interpolated linearly inside each octave.
type OceanWaveSpectrum struct {
	Name string `json:"name"`

	PowerLog      []float32 `json:"powerLog"`
	PowerDisabled []bool    `json:"powerDisabled"`

	ChopPerOctave    []float32 `json:"chopScales"`
	GravityPerOctave []float32 `json:"gravityScales"`

	Variance   float32 `json:"waveDirectionVariance"`
	ChopAmount float32 `json:"chop"`
	Gravity    float32 `json:"gravityScale"`
	Multiplier float32 `json:"multiplier"`
}

var _ Spectrum = (*OceanWaveSpectrum)(nil)

// New returns a spectrum with every octave at MinPowerLog and unit scales.
func New(name string) *OceanWaveSpectrum {
	s := &OceanWaveSpectrum{
		Name:             name,
		PowerLog:         make([]float32, NumOctaves),
		PowerDisabled:    make([]bool, NumOctaves),
		ChopPerOctave:    make([]float32, NumOctaves),
		GravityPerOctave: make([]float32, NumOctaves),
		Variance:         90,
		ChopAmount:       1.6,
		Gravity:          1,
		Multiplier:       1,
	}
	for i := range NumOctaves {
		s.PowerLog[i] = MinPowerLog
		s.ChopPerOctave[i] = 1
		s.GravityPerOctave[i] = 1
	}
	return s
}

// Default returns the spectrum used when none is configured: a fully
// developed sea for a 10 m/s wind.
func Default() *OceanWaveSpectrum {
	s := PiersonMoskowitz(10)
	s.Name = "Default Waves"
	return s
}

// SmallestWavelength returns the lower wavelength bound of octave o.
func SmallestWavelength(octave int) float32 {
	return float32(math.Exp2(float64(SmallestWavelengthPow2 + octave)))
}

// OctaveIndex returns floor(log2(wavelength)) - SmallestWavelengthPow2.
func OctaveIndex(wavelength float32) int {
	return int(math.Floor(math.Log2(float64(wavelength)))) - SmallestWavelengthPow2
}

func (s *OceanWaveSpectrum) OctaveIndex(wavelength float32) int { return OctaveIndex(wavelength) }
func (s *OceanWaveSpectrum) OctaveCount() int                     { return NumOctaves }
func (s *OceanWaveSpectrum) SmallestWavelengthPow2() int          { return SmallestWavelengthPow2 }
func (s *OceanWaveSpectrum) DirectionVariance() float32           { return s.Variance }
func (s *OceanWaveSpectrum) Chop() float32                        { return s.ChopAmount }
func (s *OceanWaveSpectrum) GravityScale() float32                { return s.Gravity }
func (s *OceanWaveSpectrum) ChopScales() []float32                { return s.ChopPerOctave }
func (s *OceanWaveSpectrum) GravityScales() []float32             { return s.GravityPerOctave }

// Amplitude integrates the spectral power over the frequency band covered by
// one component and converts it to an amplitude.
func (s *OceanWaveSpectrum) Amplitude(wavelength, componentsPerOctave float32) (amp, power float32) {
	if wavelength <= 0 || componentsPerOctave <= 0 {
		return 0, 0
	}
	if len(s.PowerLog) == 0 {
		return 0, 0
	}

	wlPow2 := math.Log2(float64(wavelength))
	wlPow2 = clamp(wlPow2, SmallestWavelengthPow2, SmallestWavelengthPow2+NumOctaves-1)

	lower := math.Exp2(math.Floor(wlPow2))
	index := int(wlPow2 - SmallestWavelengthPow2)
	next := min(index+1, NumOctaves-1)

	omegaLo := angularFrequency(lower)
	omegaHi := angularFrequency(2 * lower)
	dOmega := (omegaLo - omegaHi) / float64(componentsPerOctave)

	alpha := clamp((float64(wavelength)-lower)/lower, 0, 1)
	p := lerp(s.octavePower(index), s.octavePower(next), alpha)

	a := math.Sqrt(2 * p * dOmega)
	return float32(a) * s.Multiplier, float32(p)
}

// octavePower clamps o to the tables, so stale assets missing the
// coarsest octaves reuse the last entry they have.
func (s *OceanWaveSpectrum) octavePower(o int) float64 {
	if n := len(s.PowerDisabled); n > 0 && s.PowerDisabled[min(max(o, 0), n-1)] {
		return 0
	}
	return math.Pow(10, float64(s.PowerLog[min(max(o, 0), len(s.PowerLog)-1)]))
}

// Check reports whether the per-octave tables cover NumOctaves. The
// returned error wraps ErrStaleTables.
func Check(s Spectrum) error {
	if s == nil {
		return nil
	}
	n := s.OctaveCount()
	if len(s.ChopScales()) < n || len(s.GravityScales()) < n {
		return fmt.Errorf("%w: %d chop scales, %d gravity scales, want %d",
			ErrStaleTables, len(s.ChopScales()), len(s.GravityScales()), n)
	}
	if ows, ok := s.(*OceanWaveSpectrum); ok {
		if len(ows.PowerLog) < n || len(ows.PowerDisabled) < n {
			return fmt.Errorf("%w: %d power entries, want %d", ErrStaleTables, len(ows.PowerLog), n)
		}
	}
	return nil
}

// Upgrade extends tables that are shorter than NumOctaves. New octaves
// are disabled and get unit scales.
func (s *OceanWaveSpectrum) Upgrade() bool {
	changed := false
	for len(s.PowerLog) < NumOctaves {
		s.PowerLog = append(s.PowerLog, MinPowerLog)
		changed = true
	}
	for len(s.PowerDisabled) < NumOctaves {
		s.PowerDisabled = append(s.PowerDisabled, true)
		changed = true
	}
	for len(s.ChopPerOctave) < NumOctaves {
		s.ChopPerOctave = append(s.ChopPerOctave, 1)
		changed = true
	}
	for len(s.GravityPerOctave) < NumOctaves {
		s.GravityPerOctave = append(s.GravityPerOctave, 1)
		changed = true
	}
	return changed
}

// angularFrequency returns ω = sqrt(g·k) for deep water.
func angularFrequency(wavelength float64) float64 {
	k := 2 * math.Pi / wavelength
	return math.Sqrt(Gravity * k)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
