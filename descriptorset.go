package kompute

import (
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSet is a binding of resources to descriptor slots, per a
// specific DescriptorSetLayout. Writes are accumulated with AddWrite and
// applied in one Write call.
type DescriptorSet struct {
	Device                *Device
	DescriptorPool        *DescriptorPool
	VKDescriptorSet       vk.DescriptorSet
	VKWriteDescriptorSets []vk.WriteDescriptorSet
}

// AddWrite queues a descriptor write against this set. The write's DstSet
// field is filled in when Write runs.
func (du *DescriptorSet) AddWrite(w vk.WriteDescriptorSet) {
	du.VKWriteDescriptorSets = append(du.VKWriteDescriptorSets, w)
}

// Write applies every queued write to the set.
func (du *DescriptorSet) Write() {
	for i := range du.VKWriteDescriptorSets {
		du.VKWriteDescriptorSets[i].DstSet = du.VKDescriptorSet
	}
	vk.UpdateDescriptorSets(du.Device.VKDevice, uint32(len(du.VKWriteDescriptorSets)), du.VKWriteDescriptorSets, 0, nil)
}
