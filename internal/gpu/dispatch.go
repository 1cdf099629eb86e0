package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// workgroupSize matches @workgroup_size in gerstner.wgsl.
const workgroupSize = 8

// Frame is the per-dispatch state of a shape.
type Frame struct {
	Time  float32
	AxisX mgl32.Vec2

	// First and Last bound the populated cascades, -1 when none are.
	First int
	Last  int
}

// AppendFrame appends the 32-byte frame uniform for the given resolution.
func AppendFrame(dst []byte, resolution int, f Frame) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, math.Float32bits(float32(resolution)))
	dst = le.AppendUint32(dst, math.Float32bits(f.Time))
	dst = le.AppendUint32(dst, uint32(int32(f.First))) //nolint:gosec // cascade index
	dst = le.AppendUint32(dst, 0)
	dst = le.AppendUint32(dst, math.Float32bits(f.AxisX.X()))
	dst = le.AppendUint32(dst, math.Float32bits(f.AxisX.Y()))
	dst = le.AppendUint32(dst, 0)
	dst = le.AppendUint32(dst, 0)
	return dst
}

// Dispatcher records the compute pass that fills the displacement layers.
type Dispatcher struct {
	dev *Device

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	bindGroup hal.BindGroup
	bound     *Resources
	boundGen  uint64

	uniform []byte
}

// NewDispatcher builds the wave compute pipeline on dev.
func NewDispatcher(dev *Device) (*Dispatcher, error) {
	d := &Dispatcher{dev: dev}
	if err := d.createPipelines(); err != nil {
		d.Destroy()
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) createPipelines() error {
	device := d.dev.Device

	shader, err := createShader(d.dev, "gerstner_waves", gerstnerShaderWGSL)
	if err != nil {
		return err
	}
	d.shader = shader

	d.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gerstner_waves_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, StorageTexture: &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessWriteOnly,
				Format:        WaveTextureFormat,
				ViewDimension: gputypes.TextureViewDimension2DArray,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create waves bind group layout: %w", err)
	}

	d.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "gerstner_waves_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create waves pipeline layout: %w", err)
	}

	d.pipeline, err = device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "gerstner_waves_pipeline", Layout: d.pipeLayout,
		Compute: hal.ComputeState{Module: d.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create waves compute pipeline: %w", err)
	}
	return nil
}

// bind returns a bind group for res, rebuilding it after res was recreated.
func (d *Dispatcher) bind(res *Resources) (hal.BindGroup, error) {
	if d.bindGroup != nil && d.bound == res && d.boundGen == res.Generation() {
		return d.bindGroup, nil
	}
	d.releaseBindGroup()

	bg, err := d.dev.Device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "gerstner_waves_bind", Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: res.Uniform.NativeHandle(), Size: FrameUniformSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: res.Waves.NativeHandle(), Size: WaveBufferSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: res.Params.NativeHandle(), Size: ParamsBufferSize}},
			{Binding: 3, Resource: gputypes.TextureViewBinding{TextureView: res.StorageView.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create waves bind group: %w", err)
	}
	d.bindGroup, d.bound, d.boundGen = bg, res, res.Generation()
	return bg, nil
}

// Encode writes the frame uniform and records one dispatch covering every
// populated cascade. Nothing is recorded when no cascade is populated.
func (d *Dispatcher) Encode(enc hal.CommandEncoder, res *Resources, f Frame) error {
	if f.First < 0 || f.Last < f.First {
		return nil
	}
	if !res.Ready() {
		return ErrNotReady
	}
	bg, err := d.bind(res)
	if err != nil {
		return err
	}

	d.uniform = AppendFrame(d.uniform[:0], res.Resolution(), f)
	if err := d.dev.Queue.WriteBuffer(res.Uniform, 0, d.uniform); err != nil {
		return fmt.Errorf("write frame uniform: %w", err)
	}

	groups := uint32((res.Resolution() + workgroupSize - 1) / workgroupSize) //nolint:gosec // bounded resolution
	layers := uint32(f.Last - f.First + 1)                                    //nolint:gosec // at most cascade.Count

	pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "gerstner_waves_pass"})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(groups, groups, layers)
	pass.End()
	return nil
}

func (d *Dispatcher) releaseBindGroup() {
	if d.bindGroup != nil && d.dev.Device != nil {
		d.dev.Device.DestroyBindGroup(d.bindGroup)
	}
	d.bindGroup, d.bound = nil, nil
}

// Destroy releases the pipeline objects.
func (d *Dispatcher) Destroy() {
	device := d.dev.Device
	if device == nil {
		return
	}
	d.releaseBindGroup()
	if d.pipeline != nil {
		device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipeLayout != nil {
		device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	if d.shader != nil {
		device.DestroyShaderModule(d.shader)
		d.shader = nil
	}
}
