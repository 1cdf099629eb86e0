package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the platform backends and the software fallback.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

var (
	// ErrNoAdapter is returned by Open when no backend yields an adapter.
	ErrNoAdapter = errors.New("gpu: no adapter available")

	// ErrNotHal is returned by FromProvider when the provider does not hand
	// out hal objects.
	ErrNotHal = errors.New("gpu: provider does not expose hal device and queue")
)

// preferredBackends is the order Open tries backends in. BackendEmpty is
// the software rasterizer registered by allbackends.
var preferredBackends = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// Device is an open hal device and queue.
type Device struct {
	Device  hal.Device
	Queue   hal.Queue
	Backend gputypes.Backend
	Name    string

	// Compute reports whether compute shaders may be dispatched. Without
	// them the displacement layers are evaluated on the CPU and uploaded.
	Compute bool

	// UniformAlign is the minimum dynamic uniform offset alignment.
	UniformAlign uint32

	instance hal.Instance
	external bool
}

// Open creates an instance on the best registered backend and opens its
// preferred adapter: the first discrete or integrated GPU, otherwise the
// first adapter reported.
func Open() (*Device, error) {
	var errs []error
	for _, variant := range preferredBackends {
		backend, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		d, err := openBackend(backend)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", variant, err))
			continue
		}
		return d, nil
	}
	return nil, errors.Join(append([]error{ErrNoAdapter}, errs...)...)
}

func openBackend(backend hal.Backend) (*Device, error) {
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := pickAdapter(adapters)

	open, err := selected.Adapter.Open(gputypes.Features(0), selected.Capabilities.Limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d := &Device{
		Device:       open.Device,
		Queue:        open.Queue,
		Backend:      backend.Variant(),
		Name:         selected.Info.Name,
		Compute:      selected.Capabilities.DownlevelCapabilities.Flags&hal.DownlevelFlagsComputeShaders != 0,
		UniformAlign: uniformAlign(selected.Capabilities.Limits),
		instance:     instance,
	}
	slogger().Info("gpu: device opened",
		"adapter", d.Name, "backend", d.Backend.String(), "compute", d.Compute)
	return d, nil
}

func pickAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		switch adapters[i].Info.DeviceType {
		case gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU:
			return &adapters[i]
		}
	}
	return &adapters[0]
}

func uniformAlign(l gputypes.Limits) uint32 {
	if l.MinUniformBufferOffsetAlignment == 0 {
		return 256
	}
	return l.MinUniformBufferOffsetAlignment
}

// Wrap adopts a device and queue owned by someone else. Close on the
// result does not destroy them.
func Wrap(device hal.Device, queue hal.Queue, compute bool) *Device {
	return &Device{
		Device:       device,
		Queue:        queue,
		Name:         "external",
		Compute:      compute,
		UniformAlign: 256,
		external:     true,
	}
}

// FromProvider adopts the device of a gpucontext.DeviceProvider. Providers
// that keep their hal objects behind HalDevice and HalQueue are unwrapped
// through those; otherwise Device and Queue must be hal values already.
// Software adapters are treated as lacking compute.
func FromProvider(p gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}

	var device, queue any
	if hp, ok := p.(halProvider); ok {
		device, queue = hp.HalDevice(), hp.HalQueue()
	} else {
		device, queue = p.Device(), p.Queue()
	}
	hd, ok := device.(hal.Device)
	if !ok || hd == nil {
		return nil, ErrNotHal
	}
	hq, ok := queue.(hal.Queue)
	if !ok || hq == nil {
		return nil, ErrNotHal
	}

	info := p.AdapterInfo()
	d := Wrap(hd, hq, info.Type != gpucontext.AdapterTypeSoftware)
	if info.Name != "" {
		d.Name = info.Name
	}
	slogger().Info("gpu: using provider device", "adapter", d.Name, "type", info.Type.String())
	return d, nil
}

// Close destroys the device and its instance unless they were adopted.
func (d *Device) Close() {
	if d == nil || d.external {
		return
	}
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	d.Queue = nil
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}
