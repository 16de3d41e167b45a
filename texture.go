package kompute

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SamplerOptions configure the sampler a Texture owns. The zero value
// matches the defaults: nearest filtering and clamp-to-edge addressing.
type SamplerOptions struct {
	Filter      Filter
	AddressMode AddressMode
}

// Texture is a sampled image: everything an Image is, plus an owned
// sampler, bound into descriptor sets as a combined image sampler in the
// shader-read-only layout.
type Texture struct {
	Image

	filter      Filter
	addressMode AddressMode
}

var _ Memory = (*Texture)(nil)

// NewTexture creates a texture of the given extent and element type with
// uninitialized contents.
func NewTexture(device *Device, width, height, numChannels uint32, dataType DataType, opts ImageOptions, sampler SamplerOptions) (*Texture, error) {
	return NewTextureFromData(device, nil, width, height, numChannels, dataType, opts, sampler)
}

// NewTextureFromData creates a texture and fills its host-visible
// allocation with data. A nil data slice leaves the contents
// uninitialized.
func NewTextureFromData(device *Device, data []byte, width, height, numChannels uint32, dataType DataType, opts ImageOptions, sampler SamplerOptions) (*Texture, error) {
	t := &Texture{filter: sampler.Filter, addressMode: sampler.AddressMode}
	if err := t.init(device, variantSampled, data, width, height, numChannels, dataType, opts); err != nil {
		return nil, err
	}
	if err := t.createSampler(sampler); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// NewTextureFromVkImage wraps an image created outside this package
// without taking ownership of it. The sampler is still created and owned
// here. currentLayout tells the layout tracker where the image currently
// is.
func NewTextureFromVkImage(device *Device, primary vk.Image, currentLayout vk.ImageLayout, width, height, numChannels uint32, dataType DataType, opts ImageOptions, sampler SamplerOptions) (*Texture, error) {
	t := &Texture{filter: sampler.Filter, addressMode: sampler.AddressMode}
	if err := t.initFromVkImage(device, variantSampled, primary, currentLayout, width, height, numChannels, dataType, opts); err != nil {
		return nil, err
	}
	if err := t.createSampler(sampler); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

func (t *Texture) createSampler(opts SamplerOptions) error {
	var samplerInfo = vk.SamplerCreateInfo{}
	samplerInfo.SType = vk.StructureTypeSamplerCreateInfo
	samplerInfo.MagFilter = opts.Filter.vk()
	samplerInfo.MinFilter = opts.Filter.vk()
	samplerInfo.AddressModeU = opts.AddressMode.vk()
	samplerInfo.AddressModeV = opts.AddressMode.vk()
	samplerInfo.AddressModeW = opts.AddressMode.vk()

	var sampler vk.Sampler

	if err := vk.Error(vk.CreateSampler(t.device.VKDevice, &samplerInfo, nil, &sampler)); err != nil {
		return errors.Wrap(err, "vkCreateSampler")
	}
	t.sampler = sampler
	return nil
}

// Filter reports the interpolation the sampler was created with.
func (t *Texture) Filter() Filter { return t.filter }

// AddressMode reports the wrap behavior the sampler was created with.
func (t *Texture) AddressMode() AddressMode { return t.addressMode }

// Sampler exposes the owned Vulkan sampler.
func (t *Texture) Sampler() vk.Sampler { return t.sampler }

// Destroy releases the sampler and then the image resources. Safe to
// call more than once.
func (t *Texture) Destroy() {
	if t.device != nil && t.sampler != vk.NullSampler {
		vk.DestroySampler(t.device.VKDevice, t.sampler, nil)
	}
	t.sampler = vk.NullSampler
	t.Image.Destroy()
}

// TypedTexture binds a Texture to its element type, so host data moves
// as typed slices without per-call tag checks.
type TypedTexture[T Scalar] struct {
	*Texture
}

// NewTypedTexture creates a sampled texture from typed host data. The
// data length must be width*height*numChannels.
func NewTypedTexture[T Scalar](device *Device, data []T, width, height, numChannels uint32, opts ImageOptions, sampler SamplerOptions) (*TypedTexture[T], error) {
	t, err := NewTextureFromData(device, scalarBytes(data), width, height, numChannels, DataTypeOf[T](), opts, sampler)
	if err != nil {
		return nil, err
	}
	return &TypedTexture[T]{Texture: t}, nil
}

// Vector copies the texture's current host-visible contents out.
func (t *TypedTexture[T]) Vector() ([]T, error) {
	return Vector[T](t.Texture)
}

// SetVector overwrites the texture's host-visible contents.
func (t *TypedTexture[T]) SetVector(data []T) error {
	return SetVector[T](t.Texture, data)
}
