package kompute

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ComputePipeline describes a compute pipeline to be created: a shader
// stage, a layout and optional specialization constants.
type ComputePipeline struct {
	Device                          *Device
	VKPipeline                      vk.Pipeline
	VKPipelineShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
	VKPipelineLayout                vk.PipelineLayout

	// Specialization payload must outlive pipeline creation, so it is
	// kept on the struct rather than on the stack.
	specEntries []vk.SpecializationMapEntry
	specData    []byte
	specInfo    *vk.SpecializationInfo
}

type PipelineCache struct {
	Device          *Device
	VKPipelineCache vk.PipelineCache
}

func (d *Device) CreatePipelineCache() (*PipelineCache, error) {
	var pipelineCacheCreate = vk.PipelineCacheCreateInfo{}
	pipelineCacheCreate.SType = vk.StructureTypePipelineCacheCreateInfo

	var pipelineCache vk.PipelineCache

	err := vk.Error(vk.CreatePipelineCache(d.VKDevice, &pipelineCacheCreate, nil, &pipelineCache))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreatePipelineCache")
	}

	var ret PipelineCache
	ret.Device = d
	ret.VKPipelineCache = pipelineCache
	return &ret, nil
}

// Destroy releases the cache. Safe to call more than once.
func (p *PipelineCache) Destroy() {
	if p.VKPipelineCache == vk.NullPipelineCache {
		return
	}
	vk.DestroyPipelineCache(p.Device.VKDevice, p.VKPipelineCache, nil)
	p.VKPipelineCache = vk.NullPipelineCache
}

func (c *ComputePipeline) SetPipelineLayout(layout *PipelineLayout) {
	c.VKPipelineLayout = layout.VKPipelineLayout
}

func (c *ComputePipeline) SetShaderStage(entryPoint string, shaderModule *ShaderModule) {
	c.VKPipelineShaderStageCreateInfo = shaderModule.VKPipelineShaderStageCreateInfo(vk.ShaderStageComputeBit, entryPoint)
}

// SetSpecializationConstants attaches float32 specialization constants to
// the shader stage, with constant IDs assigned in order from zero.
func (c *ComputePipeline) SetSpecializationConstants(consts []float32) {
	if len(consts) == 0 {
		return
	}

	c.specEntries = make([]vk.SpecializationMapEntry, len(consts))
	for i := range consts {
		c.specEntries[i] = vk.SpecializationMapEntry{
			ConstantID: uint32(i),
			Offset:     uint32(i) * 4,
			Size:       4,
		}
	}
	c.specData = scalarBytes(consts)

	c.specInfo = &vk.SpecializationInfo{
		MapEntryCount: uint32(len(c.specEntries)),
		PMapEntries:   c.specEntries,
		DataSize:      uint(len(c.specData)),
		PData:         unsafe.Pointer(&c.specData[0]),
	}
	c.VKPipelineShaderStageCreateInfo.PSpecializationInfo = []vk.SpecializationInfo{*c.specInfo}
}

// CreateComputePipelines creates every described pipeline in one call,
// sharing the given cache.
func (d *Device) CreateComputePipelines(pc *PipelineCache, cp ...*ComputePipeline) error {
	pipelines := make([]vk.Pipeline, len(cp))

	ci := make([]vk.ComputePipelineCreateInfo, len(cp))

	for i, p := range cp {
		var pipelineCreateInfo = vk.ComputePipelineCreateInfo{}
		pipelineCreateInfo.SType = vk.StructureTypeComputePipelineCreateInfo
		pipelineCreateInfo.Stage = p.VKPipelineShaderStageCreateInfo
		pipelineCreateInfo.Layout = p.VKPipelineLayout
		ci[i] = pipelineCreateInfo
	}

	err := vk.Error(vk.CreateComputePipelines(
		d.VKDevice, pc.VKPipelineCache,
		uint32(len(ci)), ci,
		nil, pipelines))
	if err != nil {
		return errors.Wrap(err, "vkCreateComputePipelines")
	}

	for i := range pipelines {
		cp[i].Device = d
		cp[i].VKPipeline = pipelines[i]
	}

	return nil
}

// Destroy releases the pipeline. Safe to call more than once.
func (c *ComputePipeline) Destroy() {
	if c.VKPipeline == vk.NullPipeline {
		return
	}
	vk.DestroyPipeline(c.Device.VKDevice, c.VKPipeline, nil)
	c.VKPipeline = vk.NullPipeline
}
