package kompute

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DataType identifies the element type held by a resource.
type DataType int

const (
	DataTypeUInt8 DataType = iota
	DataTypeInt8
	DataTypeUInt16
	DataTypeInt16
	DataTypeUInt32
	DataTypeInt32
	DataTypeFloat32
	// DataTypeCustom marks an opaque blob of bytes. It is valid for
	// tensors only; image construction rejects it.
	DataTypeCustom
)

func (t DataType) String() string {
	switch t {
	case DataTypeUInt8:
		return "uint8"
	case DataTypeInt8:
		return "int8"
	case DataTypeUInt16:
		return "uint16"
	case DataTypeInt16:
		return "int16"
	case DataTypeUInt32:
		return "uint32"
	case DataTypeInt32:
		return "int32"
	case DataTypeFloat32:
		return "float32"
	case DataTypeCustom:
		return "custom"
	}
	return "unknown"
}

// SizeOf returns the number of bytes a single element occupies. Custom
// elements are byte addressed.
func (t DataType) SizeOf() uint32 {
	switch t {
	case DataTypeUInt8, DataTypeInt8, DataTypeCustom:
		return 1
	case DataTypeUInt16, DataTypeInt16:
		return 2
	case DataTypeUInt32, DataTypeInt32, DataTypeFloat32:
		return 4
	}
	return 0
}

// Scalar constrains the element types a typed resource can carry. Custom
// blobs have no scalar representation.
type Scalar interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | float32
}

// DataTypeOf maps a scalar type parameter to its DataType tag.
func DataTypeOf[T Scalar]() DataType {
	var z T
	switch any(z).(type) {
	case uint8:
		return DataTypeUInt8
	case int8:
		return DataTypeInt8
	case uint16:
		return DataTypeUInt16
	case int16:
		return DataTypeInt16
	case uint32:
		return DataTypeUInt32
	case int32:
		return DataTypeInt32
	case float32:
		return DataTypeFloat32
	}
	return DataTypeCustom
}

// MemoryType classifies where a resource's allocations live and how the
// host reaches them.
type MemoryType int

const (
	// MemoryTypeDevice places the primary allocation in device-local
	// memory and adds a host-visible staging allocation for transfers.
	MemoryTypeDevice MemoryType = iota
	// MemoryTypeHost places the primary allocation in host-visible
	// memory. No staging allocation is created.
	MemoryTypeHost
	// MemoryTypeDeviceAndHost asks for memory that is both device-local
	// and host-visible. Not every device exposes such a heap.
	MemoryTypeDeviceAndHost
	// MemoryTypeStorage is device-local memory with no host access at
	// all, for intermediates that never leave the device.
	MemoryTypeStorage
)

func (m MemoryType) String() string {
	switch m {
	case MemoryTypeDevice:
		return "device"
	case MemoryTypeHost:
		return "host"
	case MemoryTypeDeviceAndHost:
		return "deviceAndHost"
	case MemoryTypeStorage:
		return "storage"
	}
	return "unknown"
}

// HostVisible reports whether the primary allocation itself can be mapped.
func (m MemoryType) HostVisible() bool {
	return m == MemoryTypeHost || m == MemoryTypeDeviceAndHost
}

// NeedsStaging reports whether host access goes through a separate
// staging allocation.
func (m MemoryType) NeedsStaging() bool {
	return m == MemoryTypeDevice
}

func (m MemoryType) memoryPropertyFlags() vk.MemoryPropertyFlags {
	switch m {
	case MemoryTypeDevice, MemoryTypeStorage:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	case MemoryTypeHost:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	case MemoryTypeDeviceAndHost:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	return 0
}

// Tiling selects the texel arrangement of an image allocation. The zero
// value resolves from the memory type: host-visible residencies must be
// linear so mapped texels are addressable, device-local residencies get
// the implementation-optimal arrangement.
type Tiling int

const (
	TilingAuto Tiling = iota
	TilingOptimal
	TilingLinear
)

func (t Tiling) String() string {
	switch t {
	case TilingAuto:
		return "auto"
	case TilingOptimal:
		return "optimal"
	case TilingLinear:
		return "linear"
	}
	return "unknown"
}

func (t Tiling) resolve(m MemoryType) (vk.ImageTiling, error) {
	switch t {
	case TilingOptimal:
		return vk.ImageTilingOptimal, nil
	case TilingLinear:
		return vk.ImageTilingLinear, nil
	case TilingAuto:
		switch m {
		case MemoryTypeHost, MemoryTypeDeviceAndHost:
			return vk.ImageTilingLinear, nil
		case MemoryTypeDevice, MemoryTypeStorage:
			return vk.ImageTilingOptimal, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedMemoryType, "resolving tiling for memory type %s", m)
}

// Filter selects how a sampler interpolates between texels. The zero
// value is nearest.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterLinear:
		return "linear"
	}
	return "unknown"
}

func (f Filter) vk() vk.Filter {
	if f == FilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

// AddressMode selects how a sampler treats coordinates outside the image.
// The zero value clamps to the edge texel.
type AddressMode int

const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeClampToBorder
	AddressModeRepeat
	AddressModeMirroredRepeat
)

func (a AddressMode) String() string {
	switch a {
	case AddressModeClampToEdge:
		return "clampToEdge"
	case AddressModeClampToBorder:
		return "clampToBorder"
	case AddressModeRepeat:
		return "repeat"
	case AddressModeMirroredRepeat:
		return "mirroredRepeat"
	}
	return "unknown"
}

func (a AddressMode) vk() vk.SamplerAddressMode {
	switch a {
	case AddressModeClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	case AddressModeRepeat:
		return vk.SamplerAddressModeRepeat
	case AddressModeMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	}
	return vk.SamplerAddressModeClampToEdge
}
