package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gerstner/internal/cascade"
)

// ErrNotReady is returned when resources are used before Ensure.
var ErrNotReady = errors.New("gpu: resources not created")

// Buffer sizes in bytes.
const (
	WaveBufferSize   = cascade.MaxGroups * cascade.GroupSize
	ParamsBufferSize = (cascade.Count + 1) * cascade.ParamsSize
	FrameUniformSize = 32
)

// WaveTextureFormat is the format of the displacement texture array.
const WaveTextureFormat = gputypes.TextureFormatRGBA16Float

// Resources is the displacement texture array of one shape and the buffers
// its compute dispatch reads. Layer c of the array holds cascade c.
type Resources struct {
	dev *Device

	resolution int
	generation uint64

	Texture     hal.Texture
	StorageView hal.TextureView
	SampledView hal.TextureView

	Waves   hal.Buffer
	Params  hal.Buffer
	Uniform hal.Buffer

	scratch []byte
}

// NewResources returns unallocated resources bound to dev.
func NewResources(dev *Device) *Resources {
	return &Resources{dev: dev}
}

// Resolution returns the layer size, or 0 when nothing is allocated.
func (r *Resources) Resolution() int { return r.resolution }

// Generation increases every time the resources are recreated. Bind groups
// built against an older generation are stale.
func (r *Resources) Generation() uint64 { return r.generation }

// Ready reports whether the resources are allocated.
func (r *Resources) Ready() bool { return r.Texture != nil }

// Ensure allocates everything for the given layer resolution. Existing
// resources of a different resolution are released first. It reports
// whether anything was created. On error nothing stays allocated.
func (r *Resources) Ensure(resolution int) (bool, error) {
	if r.Ready() && r.resolution == resolution {
		return false, nil
	}
	r.Release()
	if err := r.create(resolution); err != nil {
		r.Release()
		return false, err
	}
	r.resolution = resolution
	r.generation++
	slogger().Info("gpu: wave resources created",
		"resolution", resolution, "layers", cascade.Count, "waveBytes", WaveBufferSize)
	return true, nil
}

func (r *Resources) create(resolution int) error {
	device := r.dev.Device
	res := uint32(resolution) //nolint:gosec // validated by the caller

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "gerstner_waves",
		Size:          hal.Extent3D{Width: res, Height: res, DepthOrArrayLayers: cascade.Count},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        WaveTextureFormat,
		Usage: gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create wave texture: %w", err)
	}
	r.Texture = tex

	view := func(label string) (hal.TextureView, error) {
		return device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:           label,
			Format:          WaveTextureFormat,
			Dimension:       gputypes.TextureViewDimension2DArray,
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: cascade.Count,
		})
	}
	if r.StorageView, err = view("gerstner_waves_storage"); err != nil {
		return fmt.Errorf("create storage view: %w", err)
	}
	if r.SampledView, err = view("gerstner_waves_sampled"); err != nil {
		return fmt.Errorf("create sampled view: %w", err)
	}

	buffer := func(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
		return device.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: size, Usage: usage})
	}
	if r.Waves, err = buffer("gerstner_wave_data", WaveBufferSize,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("create wave buffer: %w", err)
	}
	if r.Params, err = buffer("gerstner_cascade_params", ParamsBufferSize,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	if r.Uniform, err = buffer("gerstner_frame", FrameUniformSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("create frame uniform: %w", err)
	}
	return nil
}

// Upload writes packed groups and cascade params. An empty group slice
// leaves the wave buffer untouched; the params alone keep every cascade
// range empty.
func (r *Resources) Upload(groups []cascade.WaveGroup4, params *[cascade.Count + 1]cascade.Params) error {
	if !r.Ready() {
		return ErrNotReady
	}
	if len(groups) > cascade.MaxGroups {
		return fmt.Errorf("gpu: %d wave groups exceed buffer of %d", len(groups), cascade.MaxGroups)
	}
	if len(groups) > 0 {
		r.scratch = cascade.AppendGroups(r.scratch[:0], groups)
		if err := r.dev.Queue.WriteBuffer(r.Waves, 0, r.scratch); err != nil {
			return fmt.Errorf("write wave buffer: %w", err)
		}
	}
	r.scratch = cascade.AppendParams(r.scratch[:0], params[:])
	if err := r.dev.Queue.WriteBuffer(r.Params, 0, r.scratch); err != nil {
		return fmt.Errorf("write params buffer: %w", err)
	}
	slogger().Debug("gpu: waves uploaded", "groups", len(groups), "bytes", len(groups)*cascade.GroupSize)
	return nil
}

// UploadLayer writes one layer of RGBA16Float texels evaluated on the CPU.
func (r *Resources) UploadLayer(layer int, texels []byte) error {
	if !r.Ready() {
		return ErrNotReady
	}
	res := uint32(r.resolution) //nolint:gosec // set by Ensure
	want := int(res*res) * 8
	if len(texels) != want {
		return fmt.Errorf("gpu: layer %d has %d bytes, want %d", layer, len(texels), want)
	}
	err := r.dev.Queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture: r.Texture,
			Origin:  hal.Origin3D{Z: uint32(layer)}, //nolint:gosec // layer < cascade.Count
			Aspect:  gputypes.TextureAspectAll,
		},
		texels,
		&hal.ImageDataLayout{BytesPerRow: res * 8, RowsPerImage: res},
		&hal.Extent3D{Width: res, Height: res, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("write layer %d: %w", layer, err)
	}
	return nil
}

// Release destroys everything that was allocated. Handles are dropped even
// when the device is already gone.
func (r *Resources) Release() {
	device := r.dev.Device
	for _, b := range []*hal.Buffer{&r.Waves, &r.Params, &r.Uniform} {
		if *b != nil && device != nil {
			device.DestroyBuffer(*b)
		}
		*b = nil
	}
	for _, v := range []*hal.TextureView{&r.StorageView, &r.SampledView} {
		if *v != nil && device != nil {
			device.DestroyTextureView(*v)
		}
		*v = nil
	}
	if r.Texture != nil && device != nil {
		device.DestroyTexture(r.Texture)
	}
	r.Texture = nil
	r.resolution = 0
}
