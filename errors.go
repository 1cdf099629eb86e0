package gerstner

import (
	"errors"

	"github.com/gogpu/gerstner/internal/cascade"
)

var (
	// ErrInvalidResolution is returned for layer resolutions outside
	// [MinResolution, MaxResolution].
	ErrInvalidResolution = errors.New("gerstner: invalid resolution")

	// ErrInvalidComponentsPerOctave is returned for a components-per-octave
	// count outside [1, MaxComponentsPerOctave].
	ErrInvalidComponentsPerOctave = errors.New("gerstner: invalid components per octave")

	// ErrNilSpectrum is returned when the spectrum option is nil.
	ErrNilSpectrum = errors.New("gerstner: nil spectrum")

	// ErrClosed is returned by operations on a closed Shape.
	ErrClosed = errors.New("gerstner: shape closed")

	// ErrNilEncoder is returned by Update when a compute-capable device is
	// attached but no command encoder was given.
	ErrNilEncoder = errors.New("gerstner: nil command encoder")

	// ErrCapacityExceeded is wrapped by Update and Regenerate under
	// FailOnOverflow when components could not be placed.
	ErrCapacityExceeded = cascade.ErrCapacityExceeded
)
