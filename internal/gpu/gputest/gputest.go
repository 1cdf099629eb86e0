// Package gputest provides recording hal fakes built on the noop backend.
package gputest

import (
	"slices"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Device counts resource creation and destruction.
type Device struct {
	noop.Device

	TexturesCreated   int
	TexturesDestroyed int
	BuffersCreated    int
	BuffersDestroyed  int
	BindGroups        int
	ShaderModules     []hal.ShaderModuleDescriptor
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	d.TexturesCreated++
	return d.Device.CreateTexture(desc)
}

func (d *Device) DestroyTexture(t hal.Texture) { d.TexturesDestroyed++ }

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.BuffersCreated++
	return d.Device.CreateBuffer(desc)
}

func (d *Device) DestroyBuffer(b hal.Buffer) { d.BuffersDestroyed++ }

func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.BindGroups++
	return d.Device.CreateBindGroup(desc)
}

func (d *Device) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	d.ShaderModules = append(d.ShaderModules, *desc)
	return d.Device.CreateShaderModule(desc)
}

// Live returns the number of textures currently allocated.
func (d *Device) Live() int { return d.TexturesCreated - d.TexturesDestroyed }

// BufferWrite is one recorded Queue.WriteBuffer.
type BufferWrite struct {
	Buffer hal.Buffer
	Offset uint64
	Data   []byte
}

// TextureWrite is one recorded Queue.WriteTexture.
type TextureWrite struct {
	Layer  uint32
	Data   []byte
	Layout hal.ImageDataLayout
	Size   hal.Extent3D
}

// Queue records buffer and texture writes.
type Queue struct {
	noop.Queue

	Buffers  []BufferWrite
	Textures []TextureWrite
}

func (q *Queue) WriteBuffer(b hal.Buffer, offset uint64, data []byte) error {
	q.Buffers = append(q.Buffers, BufferWrite{Buffer: b, Offset: offset, Data: slices.Clone(data)})
	return q.Queue.WriteBuffer(b, offset, data)
}

func (q *Queue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.Textures = append(q.Textures, TextureWrite{
		Layer: dst.Origin.Z, Data: slices.Clone(data), Layout: *layout, Size: *size,
	})
	return nil
}

// WritesTo returns the recorded writes into b, oldest first.
func (q *Queue) WritesTo(b hal.Buffer) []BufferWrite {
	var out []BufferWrite
	for _, w := range q.Buffers {
		if w.Buffer == b {
			out = append(out, w)
		}
	}
	return out
}

// Reset forgets everything recorded.
func (q *Queue) Reset() {
	q.Buffers = nil
	q.Textures = nil
}

// Encoder records the passes begun on it.
type Encoder struct {
	noop.CommandEncoder

	Compute []*ComputePass
	Render  []*RenderPass
}

func (e *Encoder) BeginComputePass(*hal.ComputePassDescriptor) hal.ComputePassEncoder {
	p := &ComputePass{}
	e.Compute = append(e.Compute, p)
	return p
}

func (e *Encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &RenderPass{Desc: *desc}
	e.Render = append(e.Render, p)
	return p
}

// Dispatches returns every dispatch recorded on e.
func (e *Encoder) Dispatches() [][3]uint32 {
	var out [][3]uint32
	for _, p := range e.Compute {
		out = append(out, p.Dispatches...)
	}
	return out
}

// Draws returns the number of draws recorded on e.
func (e *Encoder) Draws() int {
	n := 0
	for _, p := range e.Render {
		n += len(p.Draws) + len(p.IndexedDraws)
	}
	return n
}

// ComputePass records dispatches.
type ComputePass struct {
	noop.ComputePassEncoder

	Dispatches [][3]uint32
	Ended      bool
}

func (p *ComputePass) Dispatch(x, y, z uint32) {
	p.Dispatches = append(p.Dispatches, [3]uint32{x, y, z})
}

func (p *ComputePass) End() { p.Ended = true }

// RenderPass records draws and dynamic offsets.
type RenderPass struct {
	noop.RenderPassEncoder

	Desc         hal.RenderPassDescriptor
	Draws        []uint32 // vertex counts
	IndexedDraws []uint32 // index counts
	Offsets      [][]uint32
	Ended        bool
}

func (p *RenderPass) SetBindGroup(_ uint32, _ hal.BindGroup, offsets []uint32) {
	p.Offsets = append(p.Offsets, slices.Clone(offsets))
}

func (p *RenderPass) Draw(vertexCount, _, _, _ uint32) {
	p.Draws = append(p.Draws, vertexCount)
}

func (p *RenderPass) DrawIndexed(indexCount, _, _ uint32, _ int32, _ uint32) {
	p.IndexedDraws = append(p.IndexedDraws, indexCount)
}

func (p *RenderPass) End() { p.Ended = true }
