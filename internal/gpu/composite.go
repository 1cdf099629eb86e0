package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gerstner/lod"
)

// DrawUniformSize is the size of one per-draw uniform block in composite.wgsl.
const DrawUniformSize = 128

// MaxDrawsPerFrame bounds the draws a Compositor records between Resets.
const MaxDrawsPerFrame = 256

var (
	// ErrTooManyDraws is reported when a frame exceeds MaxDrawsPerFrame.
	ErrTooManyDraws = errors.New("gpu: composite draws exceed frame capacity")

	// ErrUnknownSource is reported for draws whose Source is not *Resources.
	ErrUnknownSource = errors.New("gpu: draw source is not a wave texture array")
)

// LodTarget is the layer of an LOD texture a CompositePass draws into.
type LodTarget struct {
	View hal.TextureView

	// Origin is the world XZ of the target's min corner and Size the world
	// extent it covers.
	Origin mgl32.Vec2
	Size   float32

	// Depth is the water depth used for shallow-water attenuation. Zero
	// disables attenuation.
	Depth float32

	// LodAlpha fades transition draws into the last LOD.
	LodAlpha float32
}

// AppendDraw appends the per-draw uniform block for p drawn into t.
func AppendDraw(dst []byte, p lod.DrawParams, t LodTarget) []byte {
	le := binary.LittleEndian
	f := func(v float32) { dst = le.AppendUint32(dst, math.Float32bits(v)) }

	for _, v := range p.Transform {
		f(v)
	}
	f(t.Origin.X())
	f(t.Origin.Y())
	f(t.Size)
	f(t.Depth)
	dst = le.AppendUint32(dst, uint32(int32(p.SliceIndex))) //nolint:gosec // cascade index
	f(p.Weight)
	f(p.AverageWavelength)
	f(p.RespectShallowWaterAttenuation)
	f(p.FeatherWaveStart)
	f(p.FeatherFromSplineEnds)
	if p.Transition {
		f(1)
	} else {
		f(0)
	}
	f(t.LodAlpha)
	axis := p.Axis
	if axis == (mgl32.Vec2{}) {
		axis = mgl32.Vec2{1, 0}
	}
	f(axis.X())
	f(axis.Y())
	f(0)
	f(0)
	return dst
}

// AppendVertices appends mesh vertices in the layout vs_mesh reads.
func AppendVertices(dst []byte, vs []lod.Vertex) []byte {
	le := binary.LittleEndian
	for _, v := range vs {
		for _, c := range v.Position {
			dst = le.AppendUint32(dst, math.Float32bits(c))
		}
		for _, c := range v.UV {
			dst = le.AppendUint32(dst, math.Float32bits(c))
		}
	}
	return dst
}

type boundGroup struct {
	group      hal.BindGroup
	generation uint64
}

type meshBuffers struct {
	vertices hal.Buffer
	indices  hal.Buffer
	count    uint32
}

// Compositor owns the render pipelines that add wave layers into LOD
// targets, and the uniform ring their draws write to. Draw uniforms are
// written through the queue, so Reset must only be called once the
// previous frame's command buffers have been submitted.
type Compositor struct {
	dev    *Device
	format gputypes.TextureFormat
	stride uint32

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	procedural hal.RenderPipeline
	mesh       hal.RenderPipeline
	sampler    hal.Sampler
	uniforms   hal.Buffer

	cursor  int
	groups  map[*Resources]boundGroup
	meshes  map[*lod.Mesh]*meshBuffers
	scratch []byte
}

// NewCompositor builds the composite pipelines for targets of the given
// format.
func NewCompositor(dev *Device, format gputypes.TextureFormat) (*Compositor, error) {
	align := max(dev.UniformAlign, 1)
	c := &Compositor{
		dev:    dev,
		format: format,
		stride: (DrawUniformSize + align - 1) / align * align,
		groups: make(map[*Resources]boundGroup),
		meshes: make(map[*lod.Mesh]*meshBuffers),
	}
	if err := c.createPipelines(); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Compositor) createPipelines() error {
	device := c.dev.Device

	shader, err := createShader(c.dev, "gerstner_composite", compositeShaderWGSL)
	if err != nil {
		return err
	}
	c.shader = shader

	c.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gerstner_composite_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStagesVertexFragment, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeUniform, HasDynamicOffset: true, MinBindingSize: DrawUniformSize,
			}},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: &gputypes.TextureBindingLayout{
				SampleType: gputypes.TextureSampleTypeFloat, ViewDimension: gputypes.TextureViewDimension2DArray,
			}},
			{Binding: 2, Visibility: gputypes.ShaderStageFragment, Sampler: &gputypes.SamplerBindingLayout{
				Type: gputypes.SamplerBindingTypeFiltering,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create composite bind group layout: %w", err)
	}

	c.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "gerstner_composite_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{c.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create composite pipeline layout: %w", err)
	}

	additive := gputypes.BlendState{
		Color: gputypes.BlendComponent{SrcFactor: gputypes.BlendFactorOne, DstFactor: gputypes.BlendFactorOne, Operation: gputypes.BlendOperationAdd},
		Alpha: gputypes.BlendComponent{SrcFactor: gputypes.BlendFactorOne, DstFactor: gputypes.BlendFactorOne, Operation: gputypes.BlendOperationAdd},
	}
	pipeline := func(label, entry string, buffers []gputypes.VertexBufferLayout) (hal.RenderPipeline, error) {
		return device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  label,
			Layout: c.pipeLayout,
			Vertex: hal.VertexState{Module: c.shader, EntryPoint: entry, Buffers: buffers},
			Primitive: gputypes.PrimitiveState{
				Topology: gputypes.PrimitiveTopologyTriangleList,
				CullMode: gputypes.CullModeNone,
			},
			Multisample: gputypes.DefaultMultisampleState(),
			Fragment: &hal.FragmentState{
				Module:     c.shader,
				EntryPoint: "fs_main",
				Targets:    []gputypes.ColorTargetState{{Format: c.format, Blend: &additive, WriteMask: gputypes.ColorWriteMaskAll}},
			},
		})
	}

	if c.procedural, err = pipeline("gerstner_composite_procedural", "vs_procedural", nil); err != nil {
		return fmt.Errorf("create procedural pipeline: %w", err)
	}
	meshLayout := []gputypes.VertexBufferLayout{{
		ArrayStride: lod.VertexSize,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
		},
	}}
	if c.mesh, err = pipeline("gerstner_composite_mesh", "vs_mesh", meshLayout); err != nil {
		return fmt.Errorf("create mesh pipeline: %w", err)
	}

	c.sampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "gerstner_waves_sampler",
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return fmt.Errorf("create waves sampler: %w", err)
	}

	c.uniforms, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gerstner_composite_draws",
		Size:  uint64(c.stride) * MaxDrawsPerFrame,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create draw uniforms: %w", err)
	}
	return nil
}

// Reset rewinds the draw uniform ring. Call it once per frame after the
// previous frame was submitted.
func (c *Compositor) Reset() { c.cursor = 0 }

// Begin starts a render pass that loads and adds into target.View.
func (c *Compositor) Begin(enc hal.CommandEncoder, target LodTarget) *CompositePass {
	pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "gerstner_composite_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    target.View,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	return &CompositePass{c: c, pass: pass, target: target}
}

func (c *Compositor) bindGroup(res *Resources) (hal.BindGroup, error) {
	if !res.Ready() {
		return nil, ErrNotReady
	}
	if b, ok := c.groups[res]; ok {
		if b.generation == res.Generation() {
			return b.group, nil
		}
		c.dev.Device.DestroyBindGroup(b.group)
		delete(c.groups, res)
	}
	bg, err := c.dev.Device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "gerstner_composite_bind", Layout: c.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: c.uniforms.NativeHandle(), Size: DrawUniformSize}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: res.SampledView.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: c.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create composite bind group: %w", err)
	}
	c.groups[res] = boundGroup{group: bg, generation: res.Generation()}
	return bg, nil
}

// Forget drops the bind group built for res. Call it before releasing res
// for good.
func (c *Compositor) Forget(res *Resources) {
	if b, ok := c.groups[res]; ok {
		if c.dev.Device != nil {
			c.dev.Device.DestroyBindGroup(b.group)
		}
		delete(c.groups, res)
	}
}

func (c *Compositor) meshBuffers(m *lod.Mesh) (*meshBuffers, error) {
	if mb, ok := c.meshes[m]; ok {
		return mb, nil
	}
	device := c.dev.Device
	vertices := AppendVertices(nil, m.Vertices)
	vb, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gerstner_mesh_vertices", Size: uint64(len(vertices)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create mesh %q vertices: %w", m.Name, err)
	}
	indices := make([]byte, 0, 4*len(m.Indices))
	for _, i := range m.Indices {
		indices = binary.LittleEndian.AppendUint32(indices, i)
	}
	ib, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gerstner_mesh_indices", Size: uint64(len(indices)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		device.DestroyBuffer(vb)
		return nil, fmt.Errorf("create mesh %q indices: %w", m.Name, err)
	}
	if err := errors.Join(
		c.dev.Queue.WriteBuffer(vb, 0, vertices),
		c.dev.Queue.WriteBuffer(ib, 0, indices),
	); err != nil {
		device.DestroyBuffer(vb)
		device.DestroyBuffer(ib)
		return nil, fmt.Errorf("upload mesh %q: %w", m.Name, err)
	}
	mb := &meshBuffers{vertices: vb, indices: ib, count: uint32(len(m.Indices))} //nolint:gosec // mesh sizes fit
	c.meshes[m] = mb
	slogger().Debug("gpu: mesh uploaded", "mesh", m.Name, "vertices", len(m.Vertices), "indices", len(m.Indices))
	return mb, nil
}

// Destroy releases the pipelines, the uniform ring and every cached bind
// group and mesh.
func (c *Compositor) Destroy() {
	device := c.dev.Device
	if device == nil {
		return
	}
	for res, b := range c.groups {
		device.DestroyBindGroup(b.group)
		delete(c.groups, res)
	}
	for m, mb := range c.meshes {
		device.DestroyBuffer(mb.vertices)
		device.DestroyBuffer(mb.indices)
		delete(c.meshes, m)
	}
	if c.uniforms != nil {
		device.DestroyBuffer(c.uniforms)
		c.uniforms = nil
	}
	if c.sampler != nil {
		device.DestroySampler(c.sampler)
		c.sampler = nil
	}
	for _, p := range []*hal.RenderPipeline{&c.procedural, &c.mesh} {
		if *p != nil {
			device.DestroyRenderPipeline(*p)
			*p = nil
		}
	}
	if c.pipeLayout != nil {
		device.DestroyPipelineLayout(c.pipeLayout)
		c.pipeLayout = nil
	}
	if c.bindLayout != nil {
		device.DestroyBindGroupLayout(c.bindLayout)
		c.bindLayout = nil
	}
	if c.shader != nil {
		device.DestroyShaderModule(c.shader)
		c.shader = nil
	}
}

// CompositePass records the draws of one LOD slice. It implements
// lod.DrawTarget; failures are collected and returned by End.
type CompositePass struct {
	c      *Compositor
	pass   hal.RenderPassEncoder
	target LodTarget
	draws  int
	errs   []error
}

var _ lod.DrawTarget = (*CompositePass)(nil)

// prepare writes the draw's uniform block and binds its resources.
func (p *CompositePass) prepare(params lod.DrawParams) bool {
	res, ok := params.Source.(*Resources)
	if !ok || res == nil {
		p.errs = append(p.errs, ErrUnknownSource)
		return false
	}
	if p.c.cursor >= MaxDrawsPerFrame {
		p.errs = append(p.errs, ErrTooManyDraws)
		return false
	}
	bg, err := p.c.bindGroup(res)
	if err != nil {
		p.errs = append(p.errs, err)
		return false
	}

	offset := uint32(p.c.cursor) * p.c.stride //nolint:gosec // cursor < MaxDrawsPerFrame
	p.c.scratch = AppendDraw(p.c.scratch[:0], params, p.target)
	if err := p.c.dev.Queue.WriteBuffer(p.c.uniforms, uint64(offset), p.c.scratch); err != nil {
		p.errs = append(p.errs, fmt.Errorf("write draw uniform: %w", err))
		return false
	}
	p.c.cursor++
	p.pass.SetBindGroup(0, bg, []uint32{offset})
	return true
}

// DrawProcedural draws generated vertices covering the whole target.
func (p *CompositePass) DrawProcedural(params lod.DrawParams, vertexCount uint32) {
	p.pass.SetPipeline(p.c.procedural)
	if !p.prepare(params) {
		return
	}
	p.pass.Draw(vertexCount, 1, 0, 0)
	p.draws++
}

// DrawMesh draws m, uploading it on first use.
func (p *CompositePass) DrawMesh(params lod.DrawParams, m *lod.Mesh) {
	if m == nil || len(m.Indices) == 0 {
		return
	}
	mb, err := p.c.meshBuffers(m)
	if err != nil {
		p.errs = append(p.errs, err)
		return
	}
	p.pass.SetPipeline(p.c.mesh)
	if !p.prepare(params) {
		return
	}
	p.pass.SetVertexBuffer(0, mb.vertices, 0)
	p.pass.SetIndexBuffer(mb.indices, gputypes.IndexFormatUint32, 0)
	p.pass.DrawIndexed(mb.count, 1, 0, 0, 0)
	p.draws++
}

// Draws returns the number of draws recorded so far.
func (p *CompositePass) Draws() int { return p.draws }

// End closes the render pass and returns the errors of failed draws.
func (p *CompositePass) End() error {
	p.pass.End()
	return errors.Join(p.errs...)
}
