// Package cascade partitions sampled wave components across a fixed set of
// resolution cascades and packs them into the SIMD-4 layout read by the
// wave compute kernel.
package cascade

import (
	"errors"
	"math"
)

const (
	// Count is the number of cascades (texture array layers).
	Count = 16

	// MaxComponents is the worst-case number of packed wave components.
	MaxComponents = 1024

	// MaxGroups is the capacity of the packed wave-group arena.
	MaxGroups = MaxComponents / 4

	// MinAmplitude is the threshold below which a component is skipped.
	MinAmplitude = 0.001

	twoPi = 2 * math.Pi
)

// ErrCapacityExceeded is returned under FailOnOverflow when components had
// to be dropped because the arena or the cascade range was exhausted.
var ErrCapacityExceeded = errors.New("cascade: capacity exceeded")

// OverflowPolicy selects what happens when the slicer runs out of cascades
// or packed groups.
type OverflowPolicy int

const (
	// TruncateAndWarn drops the excess and reports it to the caller,
	// which logs a warning.
	TruncateAndWarn OverflowPolicy = iota

	// TruncateSilently drops the excess without any diagnostic.
	TruncateSilently

	// FailOnOverflow makes Slice return ErrCapacityExceeded.
	FailOnOverflow
)

// String returns the policy name.
func (p OverflowPolicy) String() string {
	switch p {
	case TruncateAndWarn:
		return "truncate-and-warn"
	case TruncateSilently:
		return "truncate-silently"
	case FailOnOverflow:
		return "fail"
	default:
		return "unknown"
	}
}

// Diameter returns the world-space edge length of the square domain
// covered by cascade c.
func Diameter(c int) float32 {
	return 0.5 * float32(int(1)<<c)
}

// MinWavelength returns the smallest wavelength rendered by cascade c for
// the given buffer resolution. Doubles with every cascade.
func MinWavelength(c, resolution int, minTexelsPerWave float32) float32 {
	texel := Diameter(c) / float32(resolution)
	return texel * minTexelsPerWave
}

// Repeat wraps x into [0, length). The computation is carried out in
// float64 so that large phase offsets do not collapse onto length itself.
func Repeat(x, length float32) float32 {
	l := float64(length)
	r := float64(x) - math.Floor(float64(x)/l)*l
	if r < 0 || r >= l {
		return 0
	}
	out := float32(r)
	if out >= length {
		return 0
	}
	return out
}

// WrapPhase wraps a phase into [0, 2π).
func WrapPhase(x float32) float32 {
	return Repeat(x, twoPi)
}

// WrapPhase64 wraps a float64 phase into [0, 2π) before narrowing it, which
// keeps large accumulated offsets exact up to float32 rounding.
func WrapPhase64(x float64) float32 {
	r := x - math.Floor(x/twoPi)*twoPi
	return WrapPhase(float32(r))
}
