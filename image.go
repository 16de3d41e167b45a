package kompute

import (
	vk "github.com/vulkan-go/vulkan"
)

// ImageOptions configure residency and tiling for images and textures.
// The zero value means device-local residency with a staging allocation
// and a tiling resolved from the residency.
type ImageOptions struct {
	MemoryType MemoryType
	Tiling     Tiling
}

// Image is a two dimensional storage image compute kernels load from and
// store to. It binds into descriptor sets as a storage image in the
// general layout.
type Image struct {
	ImageBase
}

var _ Memory = (*Image)(nil)

// NewImage creates an image of the given extent and element type with
// uninitialized contents.
func NewImage(device *Device, width, height, numChannels uint32, dataType DataType, opts ImageOptions) (*Image, error) {
	return NewImageFromData(device, nil, width, height, numChannels, dataType, opts)
}

// NewImageFromData creates an image and fills its host-visible allocation
// with data, which must be exactly width*height*numChannels elements as
// bytes. A nil data slice leaves the contents uninitialized.
func NewImageFromData(device *Device, data []byte, width, height, numChannels uint32, dataType DataType, opts ImageOptions) (*Image, error) {
	img := &Image{}
	if err := img.init(device, variantStorage, data, width, height, numChannels, dataType, opts); err != nil {
		return nil, err
	}
	return img, nil
}

// NewImageFromVkImage wraps an image created outside this package without
// taking ownership of it. currentLayout tells the layout tracker where
// the image currently is. A staging allocation is still created and owned
// when the residency needs one.
func NewImageFromVkImage(device *Device, primary vk.Image, currentLayout vk.ImageLayout, width, height, numChannels uint32, dataType DataType, opts ImageOptions) (*Image, error) {
	img := &Image{}
	if err := img.initFromVkImage(device, variantStorage, primary, currentLayout, width, height, numChannels, dataType, opts); err != nil {
		return nil, err
	}
	return img, nil
}

func (b *ImageBase) initFromVkImage(device *Device, variant imageVariant, primary vk.Image, currentLayout vk.ImageLayout, width, height, numChannels uint32, dataType DataType, opts ImageOptions) error {
	tiling, err := validateImageConfig(dataType, numChannels, opts)
	if err != nil {
		return err
	}

	b.device = device
	b.log = device.logger()
	b.variant = variant
	b.dataType = dataType
	b.memoryType = opts.MemoryType
	b.width = width
	b.height = height
	b.channels = numChannels
	b.tiling = tiling

	b.primaryImage = primary
	b.freePrimary = false
	b.primaryLayout = currentLayout
	b.stagingLayout = vk.ImageLayoutUndefined

	if opts.MemoryType.NeedsStaging() {
		simg, err := b.createVkImage(stagingImageUsage, vk.ImageTilingLinear)
		if err != nil {
			return err
		}
		b.stagingImage = simg
		b.freeStaging = true

		smem, err := b.bindImageMemory(simg,
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
		if err != nil {
			b.Destroy()
			return err
		}
		b.stagingMemory = smem

		if err := smem.Map(); err != nil {
			b.Destroy()
			return err
		}
	}

	return nil
}

// TypedImage binds an Image to its element type, so host data moves as
// typed slices without per-call tag checks.
type TypedImage[T Scalar] struct {
	*Image
}

// NewTypedImage creates a storage image from typed host data. The data
// length must be width*height*numChannels.
func NewTypedImage[T Scalar](device *Device, data []T, width, height, numChannels uint32, opts ImageOptions) (*TypedImage[T], error) {
	img, err := NewImageFromData(device, scalarBytes(data), width, height, numChannels, DataTypeOf[T](), opts)
	if err != nil {
		return nil, err
	}
	return &TypedImage[T]{Image: img}, nil
}

// Vector copies the image's current host-visible contents out.
func (t *TypedImage[T]) Vector() ([]T, error) {
	return Vector[T](t.Image)
}

// SetVector overwrites the image's host-visible contents.
func (t *TypedImage[T]) SetVector(data []T) error {
	return SetVector[T](t.Image, data)
}
