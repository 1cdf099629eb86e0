package gerstner

import (
	"sync"

	"github.com/gogpu/gerstner/spectrum"
)

// Ocean is the host simulation a Shape belongs to.
type Ocean interface {
	Gravity() float32

	// MinTexelsPerWave is the number of texels a wavelength must span in a
	// cascade layer. Together with the resolution it fixes each cascade's
	// shortest wavelength.
	MinTexelsPerWave() float32

	// CurrentTime is the simulation time in seconds.
	CurrentTime() float32

	// ReportMaxDisplacement is called once per update with the largest
	// horizontal and vertical displacement the shape can produce.
	ReportMaxDisplacement(horizontal, vertical, verticalLong float32)
}

// DefaultMinTexelsPerWave is the texel budget of StaticOcean.
const DefaultMinTexelsPerWave = 3

// StaticOcean is an Ocean with fixed gravity and a settable clock. It sums
// reported displacements until ResetMaxDisplacement, the way a renderer
// collects them from every shape each frame. It is safe for concurrent use.
type StaticOcean struct {
	mu            sync.Mutex
	g             float32
	texelsPerWave float32
	time          float32

	horizontal, vertical, verticalLong float32
}

var _ Ocean = (*StaticOcean)(nil)

// NewStaticOcean returns an ocean with Earth gravity, three texels per wave
// and the clock at zero.
func NewStaticOcean() *StaticOcean {
	return &StaticOcean{g: spectrum.Gravity, texelsPerWave: DefaultMinTexelsPerWave}
}

func (o *StaticOcean) Gravity() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.g
}

func (o *StaticOcean) MinTexelsPerWave() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.texelsPerWave
}

func (o *StaticOcean) CurrentTime() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.time
}

// SetTime sets the clock.
func (o *StaticOcean) SetTime(t float32) {
	o.mu.Lock()
	o.time = t
	o.mu.Unlock()
}

// Advance moves the clock forward by dt seconds.
func (o *StaticOcean) Advance(dt float32) {
	o.mu.Lock()
	o.time += dt
	o.mu.Unlock()
}

// SetGravity overrides the gravitational acceleration.
func (o *StaticOcean) SetGravity(g float32) {
	o.mu.Lock()
	o.g = g
	o.mu.Unlock()
}

func (o *StaticOcean) ReportMaxDisplacement(horizontal, vertical, verticalLong float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.horizontal += horizontal
	o.vertical += vertical
	o.verticalLong += verticalLong
}

// MaxDisplacement returns the sums reported since the last reset.
func (o *StaticOcean) MaxDisplacement() (horizontal, vertical, verticalLong float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.horizontal, o.vertical, o.verticalLong
}

// ResetMaxDisplacement clears the reported sums.
func (o *StaticOcean) ResetMaxDisplacement() {
	o.mu.Lock()
	o.horizontal, o.vertical, o.verticalLong = 0, 0, 0
	o.mu.Unlock()
}
