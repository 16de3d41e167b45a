package kompute

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// TensorOptions configure residency for tensors. The zero value means
// device-local residency with a staging allocation.
type TensorOptions struct {
	MemoryType MemoryType
}

// Tensor is a flat buffer of elements, the default operand for compute
// kernels. It binds into descriptor sets as a storage buffer. Unlike
// images, tensors may hold custom (opaque) elements, which are treated
// as single bytes.
type Tensor struct {
	device *Device
	log    *slog.Logger

	dataType   DataType
	memoryType MemoryType
	size       uint32

	primaryBuffer vk.Buffer
	primaryMemory *DeviceMemory
	freePrimary   bool

	stagingBuffer vk.Buffer
	stagingMemory *DeviceMemory
	freeStaging   bool
}

var _ Memory = (*Tensor)(nil)

var tensorPrimaryUsage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit |
	vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)

var tensorStagingUsage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)

// NewTensor creates a tensor of size elements with uninitialized contents.
func NewTensor(device *Device, size uint32, dataType DataType, opts TensorOptions) (*Tensor, error) {
	t := &Tensor{
		device:     device,
		log:        device.logger(),
		dataType:   dataType,
		memoryType: opts.MemoryType,
		size:       size,
	}

	t.log.Debug("creating tensor",
		"size", size, "dataType", dataType.String(), "memoryType", opts.MemoryType.String())

	if err := t.allocate(); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// NewTensorFromData creates a tensor sized from data and fills its
// host-visible allocation with it. The byte length must be a multiple of
// the element size.
func NewTensorFromData(device *Device, data []byte, dataType DataType, opts TensorOptions) (*Tensor, error) {
	elem := dataType.SizeOf()
	if elem == 0 || uint32(len(data))%elem != 0 {
		return nil, errors.Wrapf(ErrSizeMismatch, "%d bytes is not a whole number of %s elements", len(data), dataType)
	}

	t, err := NewTensor(device, uint32(len(data))/elem, dataType, opts)
	if err != nil {
		return nil, err
	}
	if err := t.SetRawData(data); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

func (t *Tensor) allocate() error {
	buf, mem, err := t.createBoundBuffer(tensorPrimaryUsage, t.memoryType.memoryPropertyFlags())
	if err != nil {
		return err
	}
	t.primaryBuffer = buf
	t.primaryMemory = mem
	t.freePrimary = true

	if t.memoryType.HostVisible() {
		if err := mem.Map(); err != nil {
			return err
		}
	}

	if t.memoryType.NeedsStaging() {
		sbuf, smem, err := t.createBoundBuffer(tensorStagingUsage,
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
		if err != nil {
			return err
		}
		t.stagingBuffer = sbuf
		t.stagingMemory = smem
		t.freeStaging = true

		if err := smem.Map(); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tensor) createBoundBuffer(usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (vk.Buffer, *DeviceMemory, error) {
	var bufferInfo = vk.BufferCreateInfo{}
	bufferInfo.SType = vk.StructureTypeBufferCreateInfo
	bufferInfo.Size = vk.DeviceSize(t.MemorySize())
	bufferInfo.Usage = usage
	bufferInfo.SharingMode = vk.SharingModeExclusive

	var buffer vk.Buffer

	if err := vk.Error(vk.CreateBuffer(t.device.VKDevice, &bufferInfo, nil, &buffer)); err != nil {
		return vk.NullBuffer, nil, errors.Wrap(err, "vkCreateBuffer")
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(t.device.VKDevice, buffer, &memoryRequirements)
	memoryRequirements.Deref()

	mem, err := t.device.Allocate(int(memoryRequirements.Size), memoryRequirements.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(t.device.VKDevice, buffer, nil)
		return vk.NullBuffer, nil, err
	}

	if err := vk.Error(vk.BindBufferMemory(t.device.VKDevice, buffer, mem.VKDeviceMemory, 0)); err != nil {
		mem.Destroy()
		vk.DestroyBuffer(t.device.VKDevice, buffer, nil)
		return vk.NullBuffer, nil, errors.Wrap(err, "vkBindBufferMemory")
	}

	return buffer, mem, nil
}

func (t *Tensor) ResourceType() ResourceType { return ResourceTypeTensor }
func (t *Tensor) DataType() DataType         { return t.dataType }
func (t *Tensor) MemoryType() MemoryType     { return t.memoryType }

// Size returns the number of elements.
func (t *Tensor) Size() uint32 { return t.size }

func (t *Tensor) MemorySize() uint64 {
	return uint64(t.size) * uint64(t.dataType.SizeOf())
}

func (t *Tensor) DescriptorType() vk.DescriptorType {
	return vk.DescriptorTypeStorageBuffer
}

// PrimaryBuffer exposes the primary Vulkan buffer, for interop with code
// outside this package.
func (t *Tensor) PrimaryBuffer() vk.Buffer { return t.primaryBuffer }

// HasStagingBuffer reports whether a staging allocation was created.
func (t *Tensor) HasStagingBuffer() bool { return t.stagingBuffer != vk.NullBuffer }

// IsInit reports whether every allocation the residency requires is live.
func (t *Tensor) IsInit() bool {
	if t.device == nil || t.primaryBuffer == vk.NullBuffer {
		return false
	}
	if t.memoryType.NeedsStaging() && t.stagingBuffer == vk.NullBuffer {
		return false
	}
	return true
}

func (t *Tensor) hostMemory() (*DeviceMemory, error) {
	switch {
	case t.memoryType.NeedsStaging():
		if t.stagingMemory == nil {
			return nil, errors.Wrap(ErrUninitialized, "tensor has no staging memory")
		}
		return t.stagingMemory, nil
	case t.memoryType.HostVisible():
		if t.primaryMemory == nil {
			return nil, errors.Wrap(ErrUninitialized, "tensor has no primary memory")
		}
		return t.primaryMemory, nil
	}
	return nil, errors.Wrapf(ErrNoHostVisibleMemory, "%s tensor", t.memoryType)
}

func (t *Tensor) RawData() ([]byte, error) {
	mem, err := t.hostMemory()
	if err != nil {
		return nil, err
	}
	return mem.Bytes()
}

func (t *Tensor) SetRawData(data []byte) error {
	mem, err := t.hostMemory()
	if err != nil {
		return err
	}
	dst, err := mem.Bytes()
	if err != nil {
		return err
	}
	if len(data) != len(dst) {
		return errors.Wrapf(ErrSizeMismatch, "writing %d bytes into a %d byte tensor", len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

// RecordPrimaryMemoryBarrier records a buffer barrier against the primary
// allocation with explicit masks.
func (t *Tensor) RecordPrimaryMemoryBarrier(rec Recorder, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags) {
	rec.RecordBufferMemoryBarrier(t.primaryBuffer, t.MemorySize(), srcAccess, dstAccess, srcStage, dstStage)
}

// RecordStagingMemoryBarrier records a buffer barrier against the staging
// allocation, if one exists.
func (t *Tensor) RecordStagingMemoryBarrier(rec Recorder, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags) {
	if t.stagingBuffer == vk.NullBuffer {
		return
	}
	rec.RecordBufferMemoryBarrier(t.stagingBuffer, t.MemorySize(), srcAccess, dstAccess, srcStage, dstStage)
}

func (t *Tensor) wholeBufferCopy() vk.BufferCopy {
	return vk.BufferCopy{SrcOffset: 0, DstOffset: 0, Size: vk.DeviceSize(t.MemorySize())}
}

// RecordCopyFromStagingToDevice moves staged host writes into the primary
// allocation.
func (t *Tensor) RecordCopyFromStagingToDevice(rec Recorder) error {
	if !t.memoryType.NeedsStaging() {
		if t.memoryType == MemoryTypeStorage {
			return errors.Wrapf(ErrNoHostVisibleMemory, "syncing %s tensor to device", t.memoryType)
		}
		return nil
	}

	t.log.Debug("recording staging to device tensor copy")
	rec.RecordCopyBuffer(t.stagingBuffer, t.primaryBuffer, t.wholeBufferCopy())
	return nil
}

// RecordCopyFromDeviceToStaging moves primary contents back where the
// host can read them.
func (t *Tensor) RecordCopyFromDeviceToStaging(rec Recorder) error {
	if !t.memoryType.NeedsStaging() {
		if t.memoryType == MemoryTypeStorage {
			return errors.Wrapf(ErrNoHostVisibleMemory, "syncing %s tensor to host", t.memoryType)
		}
		return nil
	}

	t.log.Debug("recording device to staging tensor copy")
	rec.RecordCopyBuffer(t.primaryBuffer, t.stagingBuffer, t.wholeBufferCopy())
	return nil
}

// RecordCopyFrom copies another resource's primary contents into this
// tensor's primary allocation. Tensor sources use a buffer to buffer
// copy, image sources an image to buffer copy. Byte sizes must match.
func (t *Tensor) RecordCopyFrom(rec Recorder, src Memory) error {
	if src.MemorySize() != t.MemorySize() {
		return errors.Wrapf(ErrSizeMismatch, "copy source is %d bytes, destination %d", src.MemorySize(), t.MemorySize())
	}

	if other, ok := src.(*Tensor); ok {
		t.log.Debug("recording tensor to tensor copy")
		rec.RecordCopyBuffer(other.primaryBuffer, t.primaryBuffer, t.wholeBufferCopy())
		return nil
	}

	if img, ok := src.(imageResource); ok {
		t.log.Debug("recording image to tensor copy")
		b := img.imageBase()
		b.RecordPrimaryImageBarrier(rec,
			vk.AccessFlags(vk.AccessMemoryWriteBit), vk.AccessFlags(vk.AccessTransferReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.ImageLayoutTransferSrcOptimal)
		rec.RecordCopyImageToBuffer(b.primaryImage, b.primaryLayout, t.primaryBuffer, b.bufferImageCopy())
		return nil
	}

	return errors.Newf("cannot copy into a tensor from a %s", src.ResourceType())
}

// ConstructDescriptorSet builds the write binding this tensor at the
// given binding of set. The resource must be initialized first.
func (t *Tensor) ConstructDescriptorSet(set vk.DescriptorSet, binding uint32) (vk.WriteDescriptorSet, error) {
	if !t.IsInit() {
		return vk.WriteDescriptorSet{}, errors.Wrapf(ErrUninitialized, "constructing descriptor for binding %d", binding)
	}

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: t.primaryBuffer,
		Offset: 0,
		Range:  vk.DeviceSize(t.MemorySize()),
	}

	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}, nil
}

// Destroy releases the owned Vulkan objects, staging before primary, and
// drops the device reference so repeat calls are no-ops.
func (t *Tensor) Destroy() {
	if t.device == nil {
		if t.log == nil {
			t.log = discardLogger()
		}
		t.log.Debug("tensor destroy called with no device reference")
		return
	}

	t.log.Debug("destroying tensor")

	if t.stagingMemory != nil {
		if t.freeStaging {
			t.stagingMemory.Destroy()
		} else {
			t.stagingMemory.Unmap()
		}
		t.stagingMemory = nil
	}
	if t.freeStaging && t.stagingBuffer != vk.NullBuffer {
		vk.DestroyBuffer(t.device.VKDevice, t.stagingBuffer, nil)
	}
	t.stagingBuffer = vk.NullBuffer

	if t.primaryMemory != nil {
		if t.freePrimary {
			t.primaryMemory.Destroy()
		} else {
			t.primaryMemory.Unmap()
		}
		t.primaryMemory = nil
	}
	if t.freePrimary && t.primaryBuffer != vk.NullBuffer {
		vk.DestroyBuffer(t.device.VKDevice, t.primaryBuffer, nil)
	}
	t.primaryBuffer = vk.NullBuffer

	t.device = nil
}

// TypedTensor binds a Tensor to its element type, so host data moves as
// typed slices without per-call tag checks.
type TypedTensor[T Scalar] struct {
	*Tensor
}

// NewTypedTensor creates a tensor from typed host data.
func NewTypedTensor[T Scalar](device *Device, data []T, opts TensorOptions) (*TypedTensor[T], error) {
	t, err := NewTensorFromData(device, scalarBytes(data), DataTypeOf[T](), opts)
	if err != nil {
		return nil, err
	}
	return &TypedTensor[T]{Tensor: t}, nil
}

// Vector copies the tensor's current host-visible contents out.
func (t *TypedTensor[T]) Vector() ([]T, error) {
	return Vector[T](t.Tensor)
}

// SetVector overwrites the tensor's host-visible contents.
func (t *TypedTensor[T]) SetVector(data []T) error {
	return SetVector[T](t.Tensor, data)
}
