package gerstner

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gerstner/internal/cascade"
	"github.com/gogpu/gerstner/internal/gpu"
	"github.com/gogpu/gerstner/lod"
)

// LodTarget is the LOD texture layer a Compositor draws into.
type LodTarget = gpu.LodTarget

// Compositor accumulates the cascade layers of every shape registered
// with its registry into LOD targets, additively.
//
// Shapes and the compositor must share a device.
type Compositor struct {
	mu  sync.Mutex
	reg *lod.Registry
	dev *gpu.Device
	c   *gpu.Compositor
}

// NewCompositor creates a compositor for render targets of the given
// format. Pass reg to the shapes with WithRegistrar.
func NewCompositor(device hal.Device, queue hal.Queue, format gputypes.TextureFormat, reg *lod.Registry) (*Compositor, error) {
	if reg == nil {
		reg = lod.NewRegistry()
	}
	dev := gpu.Wrap(device, queue, true)
	c, err := gpu.NewCompositor(dev, format)
	if err != nil {
		return nil, fmt.Errorf("create compositor: %w", err)
	}
	return &Compositor{reg: reg, dev: dev, c: c}, nil
}

// Registry returns the registry the compositor draws from.
func (c *Compositor) Registry() *lod.Registry { return c.reg }

// BeginFrame rewinds the per-draw uniforms. Call it once per frame, after
// the previous frame's commands were submitted.
func (c *Compositor) BeginFrame() {
	c.mu.Lock()
	c.c.Reset()
	c.mu.Unlock()
}

// DrawLod records a render pass into enc that adds every registered wave
// batch belonging to LOD lodIdx of lodCount into target. The LOD's
// shortest wavelength follows from its world size and the texel budget.
// It returns the number of batches drawn.
func (c *Compositor) DrawLod(enc hal.CommandEncoder, target LodTarget, lodIdx, lodCount int, resolution int, minTexelsPerWave float32) (int, error) {
	if enc == nil {
		return 0, ErrNilEncoder
	}
	minWl := lodMinWavelength(target.Size, resolution, minTexelsPerWave)

	c.mu.Lock()
	defer c.mu.Unlock()
	pass := c.c.Begin(enc, target)
	c.reg.DrawLod(pass, batchCategory, lodIdx, lodCount, minWl)
	return pass.Draws(), pass.End()
}

// lodMinWavelength is the shortest wavelength an LOD of the given world
// size resolves, matching the cascade rule for a cascade of that diameter.
func lodMinWavelength(size float32, resolution int, minTexelsPerWave float32) float32 {
	if resolution <= 0 {
		return 0
	}
	return size / float32(resolution) * minTexelsPerWave
}

// CascadeMinWavelength returns the shortest wavelength cascade c holds at
// the given resolution. An LOD sized like cascade c routes exactly that
// cascade's batches.
func CascadeMinWavelength(c, resolution int, minTexelsPerWave float32) float32 {
	return cascade.MinWavelength(c, resolution, minTexelsPerWave)
}

// CascadeDiameter returns the world size covered by one tile of cascade c.
func CascadeDiameter(c int) float32 { return cascade.Diameter(c) }

// Forget drops cached state for s. Call it before closing a shape that
// was drawn through this compositor.
func (c *Compositor) Forget(s *Shape) {
	s.mu.Lock()
	res := s.res
	s.mu.Unlock()
	if res == nil {
		return
	}
	c.mu.Lock()
	c.c.Forget(res)
	c.mu.Unlock()
}

// Close releases the compositor's pipelines and buffers. The device is
// left alone.
func (c *Compositor) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.c.Destroy()
}
