package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/gerstner.wgsl
var gerstnerShaderWGSL string

//go:embed shaders/composite.wgsl
var compositeShaderWGSL string

// compileSPIRV compiles WGSL to SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile wgsl: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// shaderSource picks the source form for the device's backend. Vulkan is
// handed SPIR-V compiled here; the other backends translate WGSL themselves.
func shaderSource(d *Device, wgsl string) (hal.ShaderSource, error) {
	if d.Backend != gputypes.BackendVulkan {
		return hal.ShaderSource{WGSL: wgsl}, nil
	}
	words, err := compileSPIRV(wgsl)
	if err != nil {
		return hal.ShaderSource{}, err
	}
	return hal.ShaderSource{SPIRV: words}, nil
}

func createShader(d *Device, label, wgsl string) (hal.ShaderModule, error) {
	src, err := shaderSource(d, wgsl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	module, err := d.Device.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: label, Source: src})
	if err != nil {
		return nil, fmt.Errorf("create %s shader: %w", label, err)
	}
	return module, nil
}
