package spectrum

import "math"

// Model evaluates a spectral density S(ω) in m²·s.
type Model func(omega float64) float64

// PiersonMoskowitz returns a spectrum for a fully developed sea under the
// given wind speed in m/s.
func PiersonMoskowitz(windSpeed float32) *OceanWaveSpectrum {
	s := New("Pierson-Moskowitz")
	s.Populate(PiersonMoskowitzModel(windSpeed))
	return s
}

// JONSWAP returns a fetch-limited spectrum for the given wind speed in m/s
// and fetch in km.
func JONSWAP(windSpeed, fetchKm float32) *OceanWaveSpectrum {
	s := New("JONSWAP")
	s.Populate(JONSWAPModel(windSpeed, fetchKm))
	return s
}

// PiersonMoskowitzModel returns S(ω) = αg²/ω⁵ · exp(-β(ω₀/ω)⁴) with ω₀ = g/U.
func PiersonMoskowitzModel(windSpeed float32) Model {
	const (
		alpha = 0.0081
		beta  = 0.74
	)
	u := float64(windSpeed)
	return func(omega float64) float64 {
		if omega <= 0 || u <= 0 {
			return 0
		}
		omega0 := Gravity / u
		return alpha * Gravity * Gravity / math.Pow(omega, 5) * math.Exp(-beta*math.Pow(omega0/omega, 4))
	}
}

// JONSWAPModel returns the JONSWAP density with peak enhancement γ = 3.3.
func JONSWAPModel(windSpeed, fetchKm float32) Model {
	const gamma = 3.3
	u := float64(windSpeed)
	fetch := float64(fetchKm) * 1000
	return func(omega float64) float64 {
		if omega <= 0 || u <= 0 || fetch <= 0 {
			return 0
		}
		alpha := 0.076 * math.Pow(u*u/(fetch*Gravity), 0.22)
		omegaP := 22 * math.Pow(Gravity*Gravity/(u*fetch), 1.0/3.0)
		sigma := 0.07
		if omega > omegaP {
			sigma = 0.09
		}
		d := omega - omegaP
		r := math.Exp(-d * d / (2 * sigma * sigma * omegaP * omegaP))
		return alpha * Gravity * Gravity / math.Pow(omega, 5) *
			math.Exp(-1.25*math.Pow(omegaP/omega, 4)) * math.Pow(gamma, r)
	}
}

// Populate fills the power table by evaluating m in the middle of each
// octave. Octaves with no energy are disabled.
func (s *OceanWaveSpectrum) Populate(m Model) {
	s.Upgrade()
	for o := range NumOctaves {
		wl := float64(SmallestWavelength(o)) * 1.5
		p := m(angularFrequency(wl))
		if p <= 0 {
			s.PowerLog[o] = MinPowerLog
			s.PowerDisabled[o] = true
			continue
		}
		s.PowerLog[o] = float32(clamp(math.Log10(p), MinPowerLog, MaxPowerLog))
		s.PowerDisabled[o] = false
	}
}
