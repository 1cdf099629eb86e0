// Package synth turns a wave spectrum into discrete wave components:
// wavelengths, directions, amplitudes and phases.
//
// All randomness flows through an explicit Stream so that generation is
// reproducible for a given seed and leaves no global state behind.
package synth

import "math/rand/v2"

// Stream is a seeded source of uniform values in [0, 1).
type Stream struct {
	r *rand.Rand
}

// NewStream returns a stream that yields the same sequence for the same seed.
func NewStream(seed int64) *Stream {
	s := uint64(seed) //nolint:gosec // seed bits are reused as-is
	return &Stream{r: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

// Float32 returns the next value in [0, 1).
func (s *Stream) Float32() float32 {
	return s.r.Float32()
}
