package cascade

import (
	"fmt"
	"math"

	"github.com/gogpu/gerstner/spectrum"
)

// Input is everything Slice needs about the sampled components. The
// component arrays are parallel and sorted by ascending wavelength.
type Input struct {
	Wavelengths []float32
	Amplitudes  []float32
	AnglesDeg   []float32
	Phases      []float32

	ComponentsPerOctave int
	Resolution          int
	MinTexelsPerWave    float32
	Gravity             float32

	Spectrum spectrum.Spectrum
}

// Result describes one slicing pass. Groups aliases the Slicer's arena and
// is only valid until the next call to Slice.
type Result struct {
	Groups []WaveGroup4
	Params [Count + 1]Params

	// First and Last are the first and last cascades that received at
	// least one component, or -1 when none did.
	First int
	Last  int

	Packed        int // components written to groups
	Negligible    int // skipped for amplitude below MinAmplitude
	DroppedFine   int // below the finest cascade
	DroppedCoarse int // beyond the coarsest cascade
	DroppedFull   int // arena exhausted
}

// Dropped returns the number of non-negligible components that could not
// be placed because of the cascade range or the arena size.
func (r Result) Dropped() int { return r.DroppedCoarse + r.DroppedFull }

// Populated reports whether any cascade received components.
func (r Result) Populated() bool { return r.First >= 0 }

// Slicer owns the fixed-size arena that packed groups are written to.
// The zero value is ready to use.
type Slicer struct {
	groups [MaxGroups]WaveGroup4
	Policy OverflowPolicy
}

// Slice partitions the input across cascades. Each retained component goes
// to the cascade c with MinWavelength(c) <= λ < 2·MinWavelength(c), its
// wave vector snapped so the wave tiles the cascade domain.
//
// Under FailOnOverflow a drop returns ErrCapacityExceeded together with the
// partial result.
func (s *Slicer) Slice(in Input) (Result, error) {
	res := Result{First: -1, Last: -1}

	n := len(in.Wavelengths)
	if len(in.Amplitudes) < n || len(in.AnglesDeg) < n || len(in.Phases) < n {
		return res, fmt.Errorf("cascade: component arrays differ in length (%d wavelengths)", n)
	}
	cpo := max(in.ComponentsPerOctave, 1)

	var (
		spec       = in.Spectrum
		chops      = spec.ChopScales()
		gravs      = spec.GravityScales()
		chop       = spec.Chop()
		gravity    = in.Gravity * spec.GravityScale()
		cascadeIdx = 0
		out        = 0
		minWl      = MinWavelength(0, in.Resolution, in.MinTexelsPerWave)
	)

	i := 0
	for i < n && in.Wavelengths[i] < minWl {
		if in.Amplitudes[i] >= MinAmplitude {
			res.DroppedFine++
		}
		i++
	}

	for ; i < n; i++ {
		if in.Amplitudes[i] < MinAmplitude {
			res.Negligible++
			continue
		}

		for cascadeIdx < Count && in.Wavelengths[i] >= 2*minWl {
			out = s.pad(out)
			cascadeIdx++
			res.Params[cascadeIdx].StartIndex = int32(out / 4) //nolint:gosec // bounded by MaxGroups
			minWl *= 2
		}
		if cascadeIdx == Count {
			res.DroppedCoarse += countAbove(in.Amplitudes[i:], MinAmplitude)
			break
		}
		if out/4 >= MaxGroups {
			res.DroppedFull += countAbove(in.Amplitudes[i:], MinAmplitude)
			break
		}

		octave := i / cpo
		w := packedWave{
			wavelength: in.Wavelengths[i],
			amplitude:  in.Amplitudes[i],
			angleDeg:   in.AnglesDeg[i],
			phase:      in.Phases[i],
			chopAmp:    -TableAt(chops, octave) * chop * in.Amplitudes[i],
			gravity:    gravity * TableAt(gravs, octave),
		}
		w.write(&s.groups[out/4], out%4, cascadeIdx)
		out++
		res.Packed++

		if res.First == -1 {
			res.First = cascadeIdx
		}
		res.Last = cascadeIdx
	}

	out = s.pad(out)
	for c := cascadeIdx + 1; c <= Count; c++ {
		res.Params[c].StartIndex = int32(out / 4) //nolint:gosec // bounded by MaxGroups
	}

	s.accumulateVariance(&res, in)
	res.Groups = s.groups[:out/4]

	if res.Dropped() > 0 && s.Policy == FailOnOverflow {
		return res, fmt.Errorf("%w: %d components beyond the last cascade, %d beyond %d groups",
			ErrCapacityExceeded, res.DroppedCoarse, res.DroppedFull, MaxGroups)
	}
	return res, nil
}

// pad fills the rest of the current group with no-op lanes and returns the
// next group-aligned output index.
func (s *Slicer) pad(out int) int {
	for out%4 != 0 {
		s.groups[out/4].clearLane(out % 4)
		out++
	}
	return out
}

// accumulateVariance computes a per-cascade energy heuristic: horizontal
// displacement is roughly amplitude times chop, normalised by wavelength
// and summed from fine to coarse.
func (s *Slicer) accumulateVariance(res *Result, in Input) {
	spec := in.Spectrum
	chops := spec.ChopScales()

	var total float32
	for c := range Count {
		wl := MinWavelength(c, in.Resolution, in.MinTexelsPerWave) * 1.5
		amp, _ := spec.Amplitude(wl, 1)
		// Negative chop scales would make the sum shrink.
		total += max(TableAt(chops, spec.OctaveIndex(wl)), 0) * max(amp, 0) / wl
		res.Params[c].CumulativeVariance = total
	}
	res.Params[Count].CumulativeVariance = res.Params[Count-1].CumulativeVariance
}

type packedWave struct {
	wavelength float32
	amplitude  float32
	angleDeg   float32
	phase      float32
	chopAmp    float32
	gravity    float32
}

func (w packedWave) write(g *WaveGroup4, e, cascadeIdx int) {
	rad := float64(w.angleDeg) * math.Pi / 180
	dx, dz := math.Cos(rad), math.Sin(rad)

	speed := math.Sqrt(float64(w.wavelength) * float64(w.gravity) / twoPi)
	k := twoPi / float64(w.wavelength)
	k, dx, dz = SnapToDomain(k, dx, dz, float64(Diameter(cascadeIdx)))

	g.K[e] = float32(k)
	g.Amp[e] = w.amplitude
	g.DirX[e] = float32(dx)
	g.DirZ[e] = float32(dz)
	g.Omega[e] = float32(k * speed)
	g.Phase[e] = WrapPhase(w.phase)
	g.ChopAmp[e] = w.chopAmp
}

// SnapToDomain constrains the wave vector k·(dx, dz) to integer multiples of
// the domain's fundamental frequency 2π/diameter, so the wave repeats
// exactly across the domain. It returns the new wavenumber and the
// renormalised direction.
func SnapToDomain(k, dx, dz, diameter float64) (float64, float64, float64) {
	f := twoPi / diameter
	kx := f * math.Round(k*dx/f)
	kz := f * math.Round(k*dz/f)

	if kx == 0 && kz == 0 {
		// Longer than the domain: keep the lowest representable frequency
		// along the dominant axis.
		if math.Abs(dx) >= math.Abs(dz) {
			kx = math.Copysign(f, dx)
		} else {
			kz = math.Copysign(f, dz)
		}
	}

	kn := math.Hypot(kx, kz)
	return kn, kx / kn, kz / kn
}

// TableAt returns t[i] with i clamped to the table, or 1 for an empty table.
func TableAt(t []float32, i int) float32 {
	if len(t) == 0 {
		return 1
	}
	return t[min(max(i, 0), len(t)-1)]
}

func countAbove(a []float32, threshold float32) int {
	n := 0
	for _, v := range a {
		if v >= threshold {
			n++
		}
	}
	return n
}
