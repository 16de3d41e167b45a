package kompute

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Recorder is the surface resources and operations record commands
// through. CommandBuffer implements it against a live Vulkan command
// buffer; tests substitute an observing stub so recording logic and
// layout tracking can be exercised without a device.
type Recorder interface {
	// RecordImageMemoryBarrier records a pipeline barrier transitioning
	// image from oldLayout to newLayout with the given masks.
	RecordImageMemoryBarrier(image vk.Image, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, oldLayout, newLayout vk.ImageLayout)

	// RecordBufferMemoryBarrier records a pipeline barrier covering size
	// bytes of the buffer from offset zero.
	RecordBufferMemoryBarrier(buffer vk.Buffer, size uint64, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags)

	// RecordCopyImage copies a region between two images that are already
	// in the given layouts.
	RecordCopyImage(src, dst vk.Image, srcLayout, dstLayout vk.ImageLayout, region vk.ImageCopy)

	// RecordCopyBuffer copies a region between two buffers.
	RecordCopyBuffer(src, dst vk.Buffer, region vk.BufferCopy)

	// RecordCopyBufferToImage copies buffer contents into an image that is
	// already in dstLayout.
	RecordCopyBufferToImage(src vk.Buffer, dst vk.Image, dstLayout vk.ImageLayout, region vk.BufferImageCopy)

	// RecordCopyImageToBuffer copies image contents into a buffer.
	RecordCopyImageToBuffer(src vk.Image, srcLayout vk.ImageLayout, dst vk.Buffer, region vk.BufferImageCopy)

	// RecordBindPipeline binds a compute pipeline.
	RecordBindPipeline(pipeline vk.Pipeline)

	// RecordBindDescriptorSet binds a single descriptor set at set index 0.
	RecordBindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet)

	// RecordPushConstants uploads push constant bytes for the compute stage.
	RecordPushConstants(layout vk.PipelineLayout, data []byte)

	// RecordDispatch dispatches workgroups.
	RecordDispatch(x, y, z uint32)
}

// CommandBuffer records a sequence of commands that execute once the
// buffer is submitted to a device queue.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
}

var _ Recorder = (*CommandBuffer)(nil)

// VK is a utility function for accessing the native Vulkan command buffer.
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// Reset this command buffer.
func (c *CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, 0))
}

// Begin capturing work for this command buffer.
func (c *CommandBuffer) Begin() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = 0
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// BeginOneTime begins capturing work that will be submitted exactly once.
func (c *CommandBuffer) BeginOneTime() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// End describing work for this command buffer.
func (c *CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer))
}

func (c *CommandBuffer) RecordImageMemoryBarrier(image vk.Image, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, oldLayout, newLayout vk.ImageLayout) {
	var barrier = vk.ImageMemoryBarrier{}
	barrier.SType = vk.StructureTypeImageMemoryBarrier
	barrier.SrcAccessMask = srcAccess
	barrier.DstAccessMask = dstAccess
	barrier.OldLayout = oldLayout
	barrier.NewLayout = newLayout
	barrier.SrcQueueFamilyIndex = vk.QueueFamilyIgnored
	barrier.DstQueueFamilyIndex = vk.QueueFamilyIgnored
	barrier.Image = image
	barrier.SubresourceRange.AspectMask = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	barrier.SubresourceRange.BaseMipLevel = 0
	barrier.SubresourceRange.LevelCount = 1
	barrier.SubresourceRange.BaseArrayLayer = 0
	barrier.SubresourceRange.LayerCount = 1

	vk.CmdPipelineBarrier(c.VKCommandBuffer, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (c *CommandBuffer) RecordBufferMemoryBarrier(buffer vk.Buffer, size uint64, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags) {
	var barrier = vk.BufferMemoryBarrier{}
	barrier.SType = vk.StructureTypeBufferMemoryBarrier
	barrier.SrcAccessMask = srcAccess
	barrier.DstAccessMask = dstAccess
	barrier.SrcQueueFamilyIndex = vk.QueueFamilyIgnored
	barrier.DstQueueFamilyIndex = vk.QueueFamilyIgnored
	barrier.Buffer = buffer
	barrier.Offset = 0
	barrier.Size = vk.DeviceSize(size)

	vk.CmdPipelineBarrier(c.VKCommandBuffer, srcStage, dstStage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
}

func (c *CommandBuffer) RecordCopyImage(src, dst vk.Image, srcLayout, dstLayout vk.ImageLayout, region vk.ImageCopy) {
	vk.CmdCopyImage(c.VKCommandBuffer, src, srcLayout, dst, dstLayout, 1, []vk.ImageCopy{region})
}

func (c *CommandBuffer) RecordCopyBuffer(src, dst vk.Buffer, region vk.BufferCopy) {
	vk.CmdCopyBuffer(c.VKCommandBuffer, src, dst, 1, []vk.BufferCopy{region})
}

func (c *CommandBuffer) RecordCopyBufferToImage(src vk.Buffer, dst vk.Image, dstLayout vk.ImageLayout, region vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(c.VKCommandBuffer, src, dst, dstLayout, 1, []vk.BufferImageCopy{region})
}

func (c *CommandBuffer) RecordCopyImageToBuffer(src vk.Image, srcLayout vk.ImageLayout, dst vk.Buffer, region vk.BufferImageCopy) {
	vk.CmdCopyImageToBuffer(c.VKCommandBuffer, src, srcLayout, dst, 1, []vk.BufferImageCopy{region})
}

func (c *CommandBuffer) RecordBindPipeline(pipeline vk.Pipeline) {
	vk.CmdBindPipeline(c.VKCommandBuffer, vk.PipelineBindPointCompute, pipeline)
}

func (c *CommandBuffer) RecordBindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(c.VKCommandBuffer, vk.PipelineBindPointCompute,
		layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

func (c *CommandBuffer) RecordPushConstants(layout vk.PipelineLayout, data []byte) {
	vk.CmdPushConstants(c.VKCommandBuffer, layout,
		vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (c *CommandBuffer) RecordDispatch(x, y, z uint32) {
	vk.CmdDispatch(c.VKCommandBuffer, x, y, z)
}
