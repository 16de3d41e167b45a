package kompute

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type PipelineLayout struct {
	Device           *Device
	VKPipelineLayout vk.PipelineLayout
}

// CreatePipelineLayoutWithPushConstants creates a pipeline layout over the
// given descriptor set layouts plus the given push constant ranges.
func (d *Device) CreatePipelineLayoutWithPushConstants(descriptorSetLayouts []*DescriptorSetLayout, pushConstants []vk.PushConstantRange) (*PipelineLayout, error) {
	var pipelineLayoutCreateInfo = vk.PipelineLayoutCreateInfo{}
	pipelineLayoutCreateInfo.SType = vk.StructureTypePipelineLayoutCreateInfo
	pipelineLayoutCreateInfo.SetLayoutCount = uint32(len(descriptorSetLayouts))

	l := make([]vk.DescriptorSetLayout, len(descriptorSetLayouts))
	for i, dsl := range descriptorSetLayouts {
		l[i] = dsl.VKDescriptorSetLayout
	}

	pipelineLayoutCreateInfo.PSetLayouts = l

	pipelineLayoutCreateInfo.PushConstantRangeCount = uint32(len(pushConstants))
	pipelineLayoutCreateInfo.PPushConstantRanges = pushConstants

	var pipelineLayout vk.PipelineLayout

	err := vk.Error(vk.CreatePipelineLayout(d.VKDevice, &pipelineLayoutCreateInfo, nil, &pipelineLayout))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreatePipelineLayout")
	}

	var ret PipelineLayout
	ret.VKPipelineLayout = pipelineLayout
	ret.Device = d

	return &ret, nil
}

// CreatePipelineLayout creates a pipeline layout over the given descriptor
// set layouts.
func (d *Device) CreatePipelineLayout(descriptorSetLayouts ...*DescriptorSetLayout) (*PipelineLayout, error) {
	return d.CreatePipelineLayoutWithPushConstants(descriptorSetLayouts, nil)
}

// Destroy releases the layout. Safe to call more than once.
func (p *PipelineLayout) Destroy() {
	if p.VKPipelineLayout == vk.NullPipelineLayout {
		return
	}
	vk.DestroyPipelineLayout(p.Device.VKDevice, p.VKPipelineLayout, nil)
	p.VKPipelineLayout = vk.NullPipelineLayout
}
