package kompute

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

func (d *Device) CreateFence() (*Fence, error) {
	var fence vk.Fence
	var fenceCreateInfo = vk.FenceCreateInfo{}
	fenceCreateInfo.SType = vk.StructureTypeFenceCreateInfo

	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateFence")
	}

	var ret Fence
	ret.VKFence = fence
	ret.Device = d
	return &ret, nil
}

// WaitForFences blocks until the fences signal or the timeout expires.
func (d *Device) WaitForFences(waitForAll bool, ts time.Duration, fences ...*Fence) error {
	f := make([]vk.Fence, len(fences))
	for i := range fences {
		f[i] = fences[i].VKFence
	}

	var wait vk.Bool32
	if waitForAll {
		wait = vk.True
	} else {
		wait = vk.False
	}

	err := vk.Error(vk.WaitForFences(d.VKDevice, uint32(len(fences)), f, wait, uint64(ts.Nanoseconds())))
	if err != nil {
		return errors.Wrap(err, "vkWaitForFences")
	}

	return nil
}

// Reset returns the fence to the unsignaled state so it can gate another
// submission.
func (f *Fence) Reset() error {
	return vk.Error(vk.ResetFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}))
}

func (f *Fence) Destroy() {
	if f.VKFence == vk.NullFence {
		return
	}
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
	f.VKFence = vk.NullFence
}
