package kompute

import (
	vk "github.com/vulkan-go/vulkan"
)

// recorderStub captures recorded commands in order so tests can assert
// on barrier, copy and dispatch protocols without a device.
type recorderStub struct {
	calls []string

	imageBarriers  []stubImageBarrier
	bufferBarriers []stubBufferBarrier
	imageCopies    []stubImageCopy
	bufferCopies   []stubBufferCopy
	bufferToImage  []stubBufferImageCopy
	imageToBuffer  []stubBufferImageCopy
	pushData       [][]byte
	dispatches     [][3]uint32

	begins int
	ends   int
}

type stubImageBarrier struct {
	image                vk.Image
	srcAccess, dstAccess vk.AccessFlags
	srcStage, dstStage   vk.PipelineStageFlags
	oldLayout, newLayout vk.ImageLayout
}

type stubBufferBarrier struct {
	buffer               vk.Buffer
	size                 uint64
	srcAccess, dstAccess vk.AccessFlags
	srcStage, dstStage   vk.PipelineStageFlags
}

type stubImageCopy struct {
	src, dst             vk.Image
	srcLayout, dstLayout vk.ImageLayout
	region               vk.ImageCopy
}

type stubBufferCopy struct {
	src, dst vk.Buffer
	region   vk.BufferCopy
}

type stubBufferImageCopy struct {
	layout vk.ImageLayout
	region vk.BufferImageCopy
}

var _ recordTarget = (*recorderStub)(nil)

func (r *recorderStub) Begin() error {
	r.begins++
	return nil
}

func (r *recorderStub) End() error {
	r.ends++
	return nil
}

func (r *recorderStub) RecordImageMemoryBarrier(image vk.Image, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, oldLayout, newLayout vk.ImageLayout) {
	r.calls = append(r.calls, "imageBarrier")
	r.imageBarriers = append(r.imageBarriers, stubImageBarrier{
		image: image, srcAccess: srcAccess, dstAccess: dstAccess,
		srcStage: srcStage, dstStage: dstStage,
		oldLayout: oldLayout, newLayout: newLayout,
	})
}

func (r *recorderStub) RecordBufferMemoryBarrier(buffer vk.Buffer, size uint64, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags) {
	r.calls = append(r.calls, "bufferBarrier")
	r.bufferBarriers = append(r.bufferBarriers, stubBufferBarrier{
		buffer: buffer, size: size,
		srcAccess: srcAccess, dstAccess: dstAccess,
		srcStage: srcStage, dstStage: dstStage,
	})
}

func (r *recorderStub) RecordCopyImage(src, dst vk.Image, srcLayout, dstLayout vk.ImageLayout, region vk.ImageCopy) {
	r.calls = append(r.calls, "copyImage")
	r.imageCopies = append(r.imageCopies, stubImageCopy{
		src: src, dst: dst, srcLayout: srcLayout, dstLayout: dstLayout, region: region,
	})
}

func (r *recorderStub) RecordCopyBuffer(src, dst vk.Buffer, region vk.BufferCopy) {
	r.calls = append(r.calls, "copyBuffer")
	r.bufferCopies = append(r.bufferCopies, stubBufferCopy{src: src, dst: dst, region: region})
}

func (r *recorderStub) RecordCopyBufferToImage(src vk.Buffer, dst vk.Image, dstLayout vk.ImageLayout, region vk.BufferImageCopy) {
	r.calls = append(r.calls, "copyBufferToImage")
	r.bufferToImage = append(r.bufferToImage, stubBufferImageCopy{layout: dstLayout, region: region})
}

func (r *recorderStub) RecordCopyImageToBuffer(src vk.Image, srcLayout vk.ImageLayout, dst vk.Buffer, region vk.BufferImageCopy) {
	r.calls = append(r.calls, "copyImageToBuffer")
	r.imageToBuffer = append(r.imageToBuffer, stubBufferImageCopy{layout: srcLayout, region: region})
}

func (r *recorderStub) RecordBindPipeline(pipeline vk.Pipeline) {
	r.calls = append(r.calls, "bindPipeline")
}

func (r *recorderStub) RecordBindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet) {
	r.calls = append(r.calls, "bindDescriptorSet")
}

func (r *recorderStub) RecordPushConstants(layout vk.PipelineLayout, data []byte) {
	r.calls = append(r.calls, "pushConstants")
	r.pushData = append(r.pushData, append([]byte(nil), data...))
}

func (r *recorderStub) RecordDispatch(x, y, z uint32) {
	r.calls = append(r.calls, "dispatch")
	r.dispatches = append(r.dispatches, [3]uint32{x, y, z})
}

// testStorageImage builds an unallocated storage image carrying just the
// state the record methods touch.
func testStorageImage(mt MemoryType) *ImageBase {
	return &ImageBase{
		log:           discardLogger(),
		variant:       variantStorage,
		dataType:      DataTypeUInt8,
		memoryType:    mt,
		width:         4,
		height:        4,
		channels:      4,
		primaryLayout: vk.ImageLayoutUndefined,
		stagingLayout: vk.ImageLayoutUndefined,
	}
}

// testTensor builds an unallocated tensor the same way.
func testTensor(mt MemoryType, size uint32, dt DataType) *Tensor {
	return &Tensor{
		log:        discardLogger(),
		dataType:   dt,
		memoryType: mt,
		size:       size,
	}
}
