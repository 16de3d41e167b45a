package kompute

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory is a single Vulkan memory allocation together with its
// mapped pointer when the allocation is host visible. Host-visible
// allocations stay mapped for their whole lifetime so host reads and
// writes are plain slice operations.
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	Ptr            unsafe.Pointer
}

// IsMapped returns true if the memory is currently mapped.
func (d *DeviceMemory) IsMapped() bool {
	return d.Ptr != nil
}

// Map makes the whole allocation host addressable. Mapping an already
// mapped allocation is a no-op.
func (d *DeviceMemory) Map() error {
	if d.Ptr != nil {
		return nil
	}
	var res unsafe.Pointer
	err := vk.Error(vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, 0, vk.DeviceSize(d.Size), 0, &res))
	if err != nil {
		return errors.Wrap(err, "vkMapMemory")
	}
	d.Ptr = res
	return nil
}

// Bytes returns the mapped allocation as a byte slice.
func (d *DeviceMemory) Bytes() ([]byte, error) {
	if d.Ptr == nil {
		return nil, errors.Wrap(ErrNoHostVisibleMemory, "memory is not mapped")
	}
	return ToBytes(d.Ptr, int(d.Size)), nil
}

// Unmap releases the host mapping.
func (d *DeviceMemory) Unmap() {
	if d.Ptr == nil {
		return
	}
	vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
	d.Ptr = nil
}

// Destroy unmaps and frees the allocation. Safe to call more than once.
func (d *DeviceMemory) Destroy() {
	if d.VKDeviceMemory == vk.NullDeviceMemory {
		return
	}
	d.Unmap()
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
	d.VKDeviceMemory = vk.NullDeviceMemory
}
