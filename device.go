package kompute

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Device wraps a Vulkan logical device together with the physical device
// it was created from. All resource allocation goes through it.
type Device struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device

	log *slog.Logger
}

// SetLogger replaces the logger resources created from this device will
// inherit. Passing nil restores the discarding default.
func (d *Device) SetLogger(log *slog.Logger) {
	if log == nil {
		log = discardLogger()
	}
	d.log = log
}

func (d *Device) logger() *slog.Logger {
	if d.log == nil {
		d.log = discardLogger()
	}
	return d.log
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

func (d *Device) WaitIdle() {
	vk.DeviceWaitIdle(d.VKDevice)
}

func (d *Device) Destroy() {
	if d.VKDevice == nil {
		return
	}
	vk.DestroyDevice(d.VKDevice, nil)
	d.VKDevice = nil
}

func (d *Device) GetQueue(qf *QueueFamily) *Queue {
	var vkq vk.Queue

	vk.GetDeviceQueue(d.VKDevice, uint32(qf.Index), 0, &vkq)

	var queue Queue
	queue.QueueFamily = qf
	queue.Device = d
	queue.VKQueue = vkq

	return &queue
}

// Allocate picks a matching memory type and allocates sizeInBytes from it.
func (d *Device) Allocate(sizeInBytes int, memoryTypeBits uint32, memoryProperties vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	var allocateInfo = vk.MemoryAllocateInfo{}
	allocateInfo.SType = vk.StructureTypeMemoryAllocateInfo
	allocateInfo.AllocationSize = vk.DeviceSize(sizeInBytes)

	var err error

	allocateInfo.MemoryTypeIndex, err = d.PhysicalDevice.FindMemoryType(
		memoryTypeBits,
		memoryProperties)

	if err != nil {
		return nil, err
	}

	var deviceMemory vk.DeviceMemory

	err = vk.Error(vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory))
	if err != nil {
		return nil, errors.Wrap(err, "vkAllocateMemory")
	}

	var ret DeviceMemory

	ret.Size = uint64(sizeInBytes)
	ret.Device = d
	ret.VKDeviceMemory = deviceMemory

	return &ret, nil
}
