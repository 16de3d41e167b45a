package kompute

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Workgroup is the number of workgroups dispatched in each dimension.
type Workgroup [3]uint32

// AlgorithmOptions configure an Algorithm beyond its resources and
// shader. The zero value dispatches one workgroup per element of the
// first resource and carries no constants.
type AlgorithmOptions struct {
	// Workgroup overrides the dispatch size. A zero value defaults to
	// {size of first resource, 1, 1}.
	Workgroup Workgroup

	// SpecConsts are float32 specialization constants baked into the
	// pipeline at creation, with IDs assigned in order from zero.
	SpecConsts []float32

	// PushConsts are float32 push constants uploaded at each dispatch.
	// They can be replaced later with SetPushConstants, but their count
	// is fixed here.
	PushConsts []float32
}

// Algorithm owns a compiled compute kernel together with the descriptor
// machinery that binds a fixed list of resources to it: descriptor set
// layout and set, shader module, pipeline layout and pipeline. Recording
// a dispatch is split into bind/push/dispatch steps so operations can
// interleave their own barriers.
type Algorithm struct {
	device *Device
	log    *slog.Logger

	memObjects []Memory

	descriptorSetLayout *DescriptorSetLayout
	descriptorPool      *DescriptorPool
	descriptorSet       *DescriptorSet
	shaderModule        *ShaderModule
	pipelineLayout      *PipelineLayout
	pipelineCache       *PipelineCache
	pipeline            *ComputePipeline

	workgroup  Workgroup
	pushConsts []float32
}

// resolveWorkgroup fills in the dispatch size: an all-zero workgroup
// defaults to one workgroup per element of the first resource, and any
// remaining zero dimension becomes 1.
func resolveWorkgroup(w Workgroup, first Memory) Workgroup {
	if w == (Workgroup{}) {
		w[0] = first.Size()
	}
	for i := range w {
		if w[i] == 0 {
			w[i] = 1
		}
	}
	return w
}

// NewAlgorithm builds the descriptor and pipeline state binding mems, in
// order, to the bindings of the compute kernel in spirv. Every resource
// must already be initialized.
func NewAlgorithm(device *Device, mems []Memory, spirv []byte, opts AlgorithmOptions) (*Algorithm, error) {
	if len(mems) == 0 {
		return nil, errors.Wrap(ErrEmptyOperands, "creating algorithm")
	}

	a := &Algorithm{
		device:     device,
		log:        device.logger(),
		memObjects: mems,
		workgroup:  resolveWorkgroup(opts.Workgroup, mems[0]),
		pushConsts: opts.PushConsts,
	}

	a.log.Debug("creating algorithm",
		"resources", len(mems), "workgroup", a.workgroup,
		"specConsts", len(opts.SpecConsts), "pushConsts", len(opts.PushConsts))

	if err := a.createDescriptorResources(); err != nil {
		a.Destroy()
		return nil, err
	}
	if err := a.createPipeline(spirv, opts.SpecConsts); err != nil {
		a.Destroy()
		return nil, err
	}

	return a, nil
}

func (a *Algorithm) createDescriptorResources() error {
	dsl := a.device.NewDescriptorSetLayout()
	for i, m := range a.memObjects {
		dsl.AddComputeBinding(uint32(i), m.DescriptorType())
	}
	if _, err := a.device.CreateDescriptorSetLayout(dsl); err != nil {
		return err
	}
	a.descriptorSetLayout = dsl

	pool := a.device.NewDescriptorPool()
	counts := make(map[vk.DescriptorType]int)
	for _, m := range a.memObjects {
		counts[m.DescriptorType()]++
	}
	for _, m := range a.memObjects {
		if n, ok := counts[m.DescriptorType()]; ok {
			pool.AddPoolSize(m.DescriptorType(), n)
			delete(counts, m.DescriptorType())
		}
	}
	if _, err := a.device.CreateDescriptorPool(pool, 1); err != nil {
		return err
	}
	a.descriptorPool = pool

	set, err := pool.Allocate(a.descriptorSetLayout)
	if err != nil {
		return err
	}
	a.descriptorSet = set

	for i, m := range a.memObjects {
		w, err := m.ConstructDescriptorSet(set.VKDescriptorSet, uint32(i))
		if err != nil {
			return err
		}
		set.AddWrite(w)
	}
	set.Write()

	return nil
}

func (a *Algorithm) createPipeline(spirv []byte, specConsts []float32) error {
	shader, err := a.device.CreateShaderModule(spirv)
	if err != nil {
		return err
	}
	a.shaderModule = shader

	var pushRanges []vk.PushConstantRange
	if len(a.pushConsts) > 0 {
		pushRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			Size:       uint32(len(a.pushConsts)) * 4,
		}}
	}

	layout, err := a.device.CreatePipelineLayoutWithPushConstants(
		[]*DescriptorSetLayout{a.descriptorSetLayout}, pushRanges)
	if err != nil {
		return err
	}
	a.pipelineLayout = layout

	cache, err := a.device.CreatePipelineCache()
	if err != nil {
		return err
	}
	a.pipelineCache = cache

	pipeline := &ComputePipeline{}
	pipeline.SetShaderStage("main", shader)
	pipeline.SetSpecializationConstants(specConsts)
	pipeline.SetPipelineLayout(layout)

	if err := a.device.CreateComputePipelines(cache, pipeline); err != nil {
		return err
	}
	a.pipeline = pipeline

	return nil
}

// Memories returns the resources bound to the kernel, in binding order.
func (a *Algorithm) Memories() []Memory { return a.memObjects }

// Workgroup returns the dispatch size.
func (a *Algorithm) Workgroup() Workgroup { return a.workgroup }

// PushConstants returns the current push constant values.
func (a *Algorithm) PushConstants() []float32 { return a.pushConsts }

// SetPushConstants replaces the push constant values. The count is fixed
// at construction because the pipeline layout bakes in the byte size.
func (a *Algorithm) SetPushConstants(consts []float32) error {
	if len(consts) != len(a.pushConsts) {
		return errors.Wrapf(ErrSizeMismatch, "algorithm has %d push constants, got %d", len(a.pushConsts), len(consts))
	}
	a.pushConsts = consts
	return nil
}

// IsInit reports whether the pipeline and its descriptor state are live.
func (a *Algorithm) IsInit() bool {
	return a.device != nil && a.pipeline != nil && a.pipeline.VKPipeline != vk.NullPipeline
}

// RecordBindCore records binding the pipeline and the descriptor set.
func (a *Algorithm) RecordBindCore(rec Recorder) {
	rec.RecordBindPipeline(a.pipeline.VKPipeline)
	rec.RecordBindDescriptorSet(a.pipelineLayout.VKPipelineLayout, a.descriptorSet.VKDescriptorSet)
}

// RecordBindPush records the push constant upload, when the algorithm
// carries push constants.
func (a *Algorithm) RecordBindPush(rec Recorder) {
	if len(a.pushConsts) == 0 {
		return
	}
	rec.RecordPushConstants(a.pipelineLayout.VKPipelineLayout, scalarBytes(a.pushConsts))
}

// RecordDispatch records the dispatch of the configured workgroup count.
func (a *Algorithm) RecordDispatch(rec Recorder) {
	rec.RecordDispatch(a.workgroup[0], a.workgroup[1], a.workgroup[2])
}

// Destroy releases every Vulkan object the algorithm owns. Safe to call
// more than once.
func (a *Algorithm) Destroy() {
	if a.device == nil {
		if a.log == nil {
			a.log = discardLogger()
		}
		a.log.Debug("algorithm destroy called with no device reference")
		return
	}

	a.log.Debug("destroying algorithm")

	if a.pipeline != nil {
		a.pipeline.Destroy()
		a.pipeline = nil
	}
	if a.pipelineCache != nil {
		a.pipelineCache.Destroy()
		a.pipelineCache = nil
	}
	if a.pipelineLayout != nil {
		a.pipelineLayout.Destroy()
		a.pipelineLayout = nil
	}
	if a.shaderModule != nil {
		a.shaderModule.Destroy()
		a.shaderModule = nil
	}
	if a.descriptorPool != nil {
		a.descriptorPool.Destroy()
		a.descriptorPool = nil
		a.descriptorSet = nil
	}
	if a.descriptorSetLayout != nil {
		a.descriptorSetLayout.Destroy()
		a.descriptorSetLayout = nil
	}

	a.device = nil
}
