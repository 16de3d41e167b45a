package kompute

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ResourceType discriminates the concrete kind behind a Memory value.
type ResourceType int

const (
	ResourceTypeTensor ResourceType = iota
	ResourceTypeImage
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeTensor:
		return "tensor"
	case ResourceTypeImage:
		return "image"
	}
	return "unknown"
}

// Memory is the capability contract shared by every GPU-resident resource
// this package manages. Tensors, images and textures all satisfy it, so
// operations and algorithms handle them uniformly.
//
// The Record methods only append commands to the recorder; nothing
// executes until the command buffer is submitted. Layout and residency
// bookkeeping is updated at record time so back-to-back recordings
// compose correctly.
type Memory interface {
	// ResourceType reports whether this is a tensor or an image kind.
	ResourceType() ResourceType

	// DataType reports the element type held by the resource.
	DataType() DataType

	// MemoryType reports the residency the resource was created with.
	MemoryType() MemoryType

	// Size returns the number of elements.
	Size() uint32

	// MemorySize returns the total byte size of the primary allocation.
	MemorySize() uint64

	// IsInit reports whether all required device allocations are live.
	IsInit() bool

	// Destroy releases every owned Vulkan object. It is safe to call more
	// than once; repeat calls are no-ops.
	Destroy()

	// RawData returns the resource's host-visible bytes. For device
	// residency this is the staging allocation, otherwise the primary.
	RawData() ([]byte, error)

	// SetRawData overwrites the host-visible bytes. The input length must
	// equal MemorySize.
	SetRawData(data []byte) error

	// DescriptorType reports how the resource binds into descriptor sets.
	DescriptorType() vk.DescriptorType

	// ConstructDescriptorSet builds the write that binds this resource at
	// the given binding index of set.
	ConstructDescriptorSet(set vk.DescriptorSet, binding uint32) (vk.WriteDescriptorSet, error)

	// RecordCopyFrom records a device-side copy of src's primary contents
	// into this resource's primary allocation. Byte sizes must match.
	RecordCopyFrom(rec Recorder, src Memory) error

	// RecordCopyFromStagingToDevice records the staging to primary
	// transfer. Without a staging allocation it is a no-op for
	// host-visible residencies and an error for storage residency.
	RecordCopyFromStagingToDevice(rec Recorder) error

	// RecordCopyFromDeviceToStaging records the primary to staging
	// transfer, with the same residency behavior as above.
	RecordCopyFromDeviceToStaging(rec Recorder) error

	// RecordPrimaryMemoryBarrier records an execution barrier against the
	// primary allocation with explicit access and stage masks.
	RecordPrimaryMemoryBarrier(rec Recorder, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags)

	// RecordStagingMemoryBarrier records the same against the staging
	// allocation, if one exists.
	RecordStagingMemoryBarrier(rec Recorder, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags)
}

// Vector copies the resource's host-visible contents out as a typed
// slice. The element type must match the resource's data type.
func Vector[T Scalar](m Memory) ([]T, error) {
	if DataTypeOf[T]() != m.DataType() {
		return nil, errors.Wrapf(ErrDataTypeMismatch, "requested %s from a %s resource", DataTypeOf[T](), m.DataType())
	}
	raw, err := m.RawData()
	if err != nil {
		return nil, err
	}
	out := make([]T, m.Size())
	copy(out, scalarSlice[T](raw))
	return out, nil
}

// SetVector overwrites the resource's host-visible contents from a typed
// slice. Element type and count must match the resource.
func SetVector[T Scalar](m Memory, data []T) error {
	if DataTypeOf[T]() != m.DataType() {
		return errors.Wrapf(ErrDataTypeMismatch, "writing %s into a %s resource", DataTypeOf[T](), m.DataType())
	}
	return m.SetRawData(scalarBytes(data))
}
