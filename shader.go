package kompute

import (
	"os"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type ShaderModule struct {
	Device         *Device
	Description    string
	VKShaderModule vk.ShaderModule
}

// CreateShaderModule creates a shader module from raw SPIR-V bytes, as
// read from a compiled .spv file.
func (d *Device) CreateShaderModule(spirv []byte) (*ShaderModule, error) {
	if len(spirv) == 0 || len(spirv)%4 != 0 {
		return nil, errors.Newf("%d bytes is not valid SPIR-V, length must be a non-zero multiple of 4", len(spirv))
	}

	var module vk.ShaderModule
	err := vk.Error(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceUint32(spirv),
	}, nil, &module))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateShaderModule")
	}

	var ret ShaderModule
	ret.VKShaderModule = module
	ret.Device = d
	return &ret, nil
}

// LoadShaderModuleFromFile reads a compiled SPIR-V file and creates a
// shader module from it.
func (d *Device) LoadShaderModuleFromFile(file string) (*ShaderModule, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	m, err := d.CreateShaderModule(data)
	if err != nil {
		return nil, err
	}
	m.Description = file
	return m, nil
}

func (s *ShaderModule) VKPipelineShaderStageCreateInfo(stage vk.ShaderStageFlagBits, entryPoint string) vk.PipelineShaderStageCreateInfo {
	var shaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{}
	shaderStageCreateInfo.SType = vk.StructureTypePipelineShaderStageCreateInfo
	shaderStageCreateInfo.Stage = stage
	shaderStageCreateInfo.Module = s.VKShaderModule
	shaderStageCreateInfo.PName = safeString(entryPoint)
	return shaderStageCreateInfo
}

// Destroy releases the module. Safe to call more than once.
func (s *ShaderModule) Destroy() {
	if s.VKShaderModule == vk.NullShaderModule {
		return
	}
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
	s.VKShaderModule = vk.NullShaderModule
}
