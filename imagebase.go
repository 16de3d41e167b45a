package kompute

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// imageVariant selects between the storage image and sampled texture
// behaviors of ImageBase.
type imageVariant int

const (
	variantStorage imageVariant = iota
	variantSampled
)

// imageVariantConfig fixes everything that differs between the two image
// kinds: the usage flags the primary allocation is created with, the
// descriptor type it binds as, the layout advertised in its descriptor,
// and whether a sampler rides along.
type imageVariantConfig struct {
	primaryUsage     vk.ImageUsageFlags
	descriptorType   vk.DescriptorType
	descriptorLayout vk.ImageLayout
	hasSampler       bool
}

var imageVariantConfigs = [...]imageVariantConfig{
	variantStorage: {
		primaryUsage: vk.ImageUsageFlags(vk.ImageUsageStorageBit |
			vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
		descriptorType:   vk.DescriptorTypeStorageImage,
		descriptorLayout: vk.ImageLayoutGeneral,
	},
	variantSampled: {
		primaryUsage: vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageStorageBit |
			vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
		descriptorType:   vk.DescriptorTypeCombinedImageSampler,
		descriptorLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		hasSampler:       true,
	},
}

// Staging images exist only to move bytes, so they carry transfer usage
// and nothing else.
var stagingImageUsage = vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)

// formatFor maps an element type and channel count onto the Vulkan texel
// format images of that shape are created with.
func formatFor(t DataType, channels uint32) (vk.Format, error) {
	if channels < 1 || channels > 4 {
		return vk.FormatUndefined, errors.Wrapf(ErrInvalidChannels, "got %d", channels)
	}
	formats, ok := imageFormats[t]
	if !ok {
		return vk.FormatUndefined, errors.Wrapf(ErrCustomDataType, "no texel format for %s elements", t)
	}
	return formats[channels-1], nil
}

var imageFormats = map[DataType][4]vk.Format{
	DataTypeUInt8:   {vk.FormatR8Uint, vk.FormatR8g8Uint, vk.FormatR8g8b8Uint, vk.FormatR8g8b8a8Uint},
	DataTypeInt8:    {vk.FormatR8Sint, vk.FormatR8g8Sint, vk.FormatR8g8b8Sint, vk.FormatR8g8b8a8Sint},
	DataTypeUInt16:  {vk.FormatR16Uint, vk.FormatR16g16Uint, vk.FormatR16g16b16Uint, vk.FormatR16g16b16a16Uint},
	DataTypeInt16:   {vk.FormatR16Sint, vk.FormatR16g16Sint, vk.FormatR16g16b16Sint, vk.FormatR16g16b16a16Sint},
	DataTypeUInt32:  {vk.FormatR32Uint, vk.FormatR32g32Uint, vk.FormatR32g32b32Uint, vk.FormatR32g32b32a32Uint},
	DataTypeInt32:   {vk.FormatR32Sint, vk.FormatR32g32Sint, vk.FormatR32g32b32Sint, vk.FormatR32g32b32a32Sint},
	DataTypeFloat32: {vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat},
}

// ImageBase carries the state and synchronization protocol shared by
// storage images and sampled textures: the primary and optional staging
// allocations, the tracked layout of each, and the barrier, copy and
// descriptor recording built on top of them.
//
// Layouts are tracked per allocation and only ever advanced by the
// record methods. A recorded barrier always names the tracked layout as
// its old layout, even when old and new are equal, so the execution and
// memory dependency is preserved.
type ImageBase struct {
	device  *Device
	log     *slog.Logger
	variant imageVariant

	dataType   DataType
	memoryType MemoryType
	width      uint32
	height     uint32
	channels   uint32
	tiling     vk.ImageTiling

	primaryImage  vk.Image
	primaryMemory *DeviceMemory
	freePrimary   bool
	primaryLayout vk.ImageLayout

	stagingImage  vk.Image
	stagingMemory *DeviceMemory
	freeStaging   bool
	stagingLayout vk.ImageLayout

	imageView vk.ImageView
	sampler   vk.Sampler
}

// imageBase gives the copy dispatch access to the embedded state of any
// image kind.
func (b *ImageBase) imageBase() *ImageBase { return b }

type imageResource interface {
	imageBase() *ImageBase
}

func (b *ImageBase) logger() *slog.Logger {
	if b.log == nil {
		b.log = discardLogger()
	}
	return b.log
}

// validateImageConfig rejects element types and shapes no image can be
// created with and resolves the concrete tiling. It touches no device
// state, so a rejected configuration never leaves partial allocations.
func validateImageConfig(dataType DataType, numChannels uint32, opts ImageOptions) (vk.ImageTiling, error) {
	if dataType == DataTypeCustom {
		return 0, errors.Wrap(ErrCustomDataType, "creating image")
	}
	if numChannels < 1 || numChannels > 4 {
		return 0, errors.Wrapf(ErrInvalidChannels, "got %d", numChannels)
	}
	return opts.Tiling.resolve(opts.MemoryType)
}

// init creates the primary image (plus staging when the residency calls
// for one), binds memory and copies any initial data into the mapped
// host-visible allocation.
func (b *ImageBase) init(device *Device, variant imageVariant, data []byte, width, height, numChannels uint32, dataType DataType, opts ImageOptions) error {
	tiling, err := validateImageConfig(dataType, numChannels, opts)
	if err != nil {
		return err
	}

	b.device = device
	b.variant = variant
	b.dataType = dataType
	b.memoryType = opts.MemoryType
	b.width = width
	b.height = height
	b.channels = numChannels
	b.tiling = tiling
	b.primaryLayout = vk.ImageLayoutUndefined
	b.stagingLayout = vk.ImageLayoutUndefined

	if data != nil && uint64(len(data)) != b.MemorySize() {
		return errors.Wrapf(ErrSizeMismatch, "initial data is %d bytes, image needs %d", len(data), b.MemorySize())
	}

	b.log = device.logger()
	b.log.Debug("creating image",
		"width", width, "height", height, "channels", numChannels,
		"dataType", dataType.String(), "memoryType", opts.MemoryType.String())

	if err := b.allocate(); err != nil {
		b.Destroy()
		return err
	}

	if data != nil {
		if err := b.SetRawData(data); err != nil {
			b.Destroy()
			return err
		}
	}

	return nil
}

func (b *ImageBase) allocate() error {
	cfg := imageVariantConfigs[b.variant]

	img, err := b.createVkImage(cfg.primaryUsage, b.tiling)
	if err != nil {
		return err
	}
	b.primaryImage = img
	b.freePrimary = true

	mem, err := b.bindImageMemory(img, b.memoryType.memoryPropertyFlags())
	if err != nil {
		return err
	}
	b.primaryMemory = mem

	if b.memoryType.HostVisible() {
		if err := mem.Map(); err != nil {
			return err
		}
	}

	if b.memoryType.NeedsStaging() {
		simg, err := b.createVkImage(stagingImageUsage, vk.ImageTilingLinear)
		if err != nil {
			return err
		}
		b.stagingImage = simg
		b.freeStaging = true

		smem, err := b.bindImageMemory(simg,
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
		if err != nil {
			return err
		}
		b.stagingMemory = smem

		if err := smem.Map(); err != nil {
			return err
		}
	}

	return nil
}

func (b *ImageBase) createVkImage(usage vk.ImageUsageFlags, tiling vk.ImageTiling) (vk.Image, error) {
	format, err := formatFor(b.dataType, b.channels)
	if err != nil {
		return vk.NullImage, err
	}

	var imageInfo = vk.ImageCreateInfo{}
	imageInfo.SType = vk.StructureTypeImageCreateInfo
	imageInfo.ImageType = vk.ImageType2d
	imageInfo.Format = format
	imageInfo.Extent = vk.Extent3D{Width: b.width, Height: b.height, Depth: 1}
	imageInfo.MipLevels = 1
	imageInfo.ArrayLayers = 1
	imageInfo.Samples = vk.SampleCount1Bit
	imageInfo.Tiling = tiling
	imageInfo.Usage = usage
	imageInfo.SharingMode = vk.SharingModeExclusive
	imageInfo.InitialLayout = vk.ImageLayoutUndefined

	var image vk.Image

	if err := vk.Error(vk.CreateImage(b.device.VKDevice, &imageInfo, nil, &image)); err != nil {
		return vk.NullImage, errors.Wrap(err, "vkCreateImage")
	}
	return image, nil
}

func (b *ImageBase) bindImageMemory(img vk.Image, props vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(b.device.VKDevice, img, &memoryRequirements)
	memoryRequirements.Deref()

	mem, err := b.device.Allocate(int(memoryRequirements.Size), memoryRequirements.MemoryTypeBits, props)
	if err != nil {
		return nil, err
	}

	if err := vk.Error(vk.BindImageMemory(b.device.VKDevice, img, mem.VKDeviceMemory, 0)); err != nil {
		mem.Destroy()
		return nil, errors.Wrap(err, "vkBindImageMemory")
	}

	return mem, nil
}

func (b *ImageBase) ResourceType() ResourceType { return ResourceTypeImage }
func (b *ImageBase) DataType() DataType         { return b.dataType }
func (b *ImageBase) MemoryType() MemoryType     { return b.memoryType }
func (b *ImageBase) Width() uint32              { return b.width }
func (b *ImageBase) Height() uint32             { return b.height }
func (b *ImageBase) NumChannels() uint32        { return b.channels }

// Tiling reports the texel arrangement the primary image was created with.
func (b *ImageBase) Tiling() vk.ImageTiling { return b.tiling }

// Size returns the number of elements: width times height times channels.
func (b *ImageBase) Size() uint32 {
	return b.width * b.height * b.channels
}

func (b *ImageBase) MemorySize() uint64 {
	return uint64(b.Size()) * uint64(b.dataType.SizeOf())
}

func (b *ImageBase) DescriptorType() vk.DescriptorType {
	return imageVariantConfigs[b.variant].descriptorType
}

// PrimaryImage exposes the primary Vulkan image, for interop with code
// outside this package.
func (b *ImageBase) PrimaryImage() vk.Image { return b.primaryImage }

// PrimaryImageLayout returns the layout the primary allocation will be in
// once everything recorded so far has executed.
func (b *ImageBase) PrimaryImageLayout() vk.ImageLayout { return b.primaryLayout }

// StagingImageLayout returns the tracked layout of the staging
// allocation, Undefined when the residency has none.
func (b *ImageBase) StagingImageLayout() vk.ImageLayout { return b.stagingLayout }

// HasStagingImage reports whether a staging allocation was created.
func (b *ImageBase) HasStagingImage() bool { return b.stagingImage != vk.NullImage }

// IsInit reports whether every allocation the residency requires is live.
func (b *ImageBase) IsInit() bool {
	if b.device == nil || b.primaryImage == vk.NullImage {
		return false
	}
	if b.memoryType.NeedsStaging() && b.stagingImage == vk.NullImage {
		return false
	}
	return true
}

// hostMemory returns the mapped allocation host code reads and writes:
// staging for device residency, primary when it is itself host visible.
func (b *ImageBase) hostMemory() (*DeviceMemory, error) {
	switch {
	case b.memoryType.NeedsStaging():
		if b.stagingMemory == nil {
			return nil, errors.Wrap(ErrUninitialized, "image has no staging memory")
		}
		return b.stagingMemory, nil
	case b.memoryType.HostVisible():
		if b.primaryMemory == nil {
			return nil, errors.Wrap(ErrUninitialized, "image has no primary memory")
		}
		return b.primaryMemory, nil
	}
	return nil, errors.Wrapf(ErrNoHostVisibleMemory, "%s image", b.memoryType)
}

func (b *ImageBase) RawData() ([]byte, error) {
	mem, err := b.hostMemory()
	if err != nil {
		return nil, err
	}
	return mem.Bytes()
}

func (b *ImageBase) SetRawData(data []byte) error {
	mem, err := b.hostMemory()
	if err != nil {
		return err
	}
	dst, err := mem.Bytes()
	if err != nil {
		return err
	}
	if len(data) != len(dst) {
		return errors.Wrapf(ErrSizeMismatch, "writing %d bytes into a %d byte image", len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

// RecordPrimaryImageBarrier records a layout transition of the primary
// allocation from its tracked layout to dstLayout and advances the
// tracking. The barrier is recorded even when dstLayout equals the
// tracked layout so the access dependency it expresses is kept.
func (b *ImageBase) RecordPrimaryImageBarrier(rec Recorder, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, dstLayout vk.ImageLayout) {
	rec.RecordImageMemoryBarrier(b.primaryImage, srcAccess, dstAccess, srcStage, dstStage, b.primaryLayout, dstLayout)
	b.primaryLayout = dstLayout
}

// RecordStagingImageBarrier is RecordPrimaryImageBarrier for the staging
// allocation.
func (b *ImageBase) RecordStagingImageBarrier(rec Recorder, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, dstLayout vk.ImageLayout) {
	rec.RecordImageMemoryBarrier(b.stagingImage, srcAccess, dstAccess, srcStage, dstStage, b.stagingLayout, dstLayout)
	b.stagingLayout = dstLayout
}

// RecordPrimaryMemoryBarrier records a barrier that also moves the
// primary allocation to the general layout compute kernels access it in.
func (b *ImageBase) RecordPrimaryMemoryBarrier(rec Recorder, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags) {
	b.RecordPrimaryImageBarrier(rec, srcAccess, dstAccess, srcStage, dstStage, vk.ImageLayoutGeneral)
}

// RecordStagingMemoryBarrier is RecordPrimaryMemoryBarrier for the
// staging allocation.
func (b *ImageBase) RecordStagingMemoryBarrier(rec Recorder, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags) {
	b.RecordStagingImageBarrier(rec, srcAccess, dstAccess, srcStage, dstStage, vk.ImageLayoutGeneral)
}

func (b *ImageBase) subresourceLayers() vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (b *ImageBase) wholeImageCopy() vk.ImageCopy {
	return vk.ImageCopy{
		SrcSubresource: b.subresourceLayers(),
		DstSubresource: b.subresourceLayers(),
		Extent:         vk.Extent3D{Width: b.width, Height: b.height, Depth: 1},
	}
}

func (b *ImageBase) bufferImageCopy() vk.BufferImageCopy {
	return vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource:  b.subresourceLayers(),
		ImageOffset:       vk.Offset3D{},
		ImageExtent:       vk.Extent3D{Width: b.width, Height: b.height, Depth: 1},
	}
}

// RecordCopyFromStagingToDevice moves staged host writes into the primary
// allocation: staging becomes a transfer source, primary a transfer
// destination, then the whole extent is copied.
func (b *ImageBase) RecordCopyFromStagingToDevice(rec Recorder) error {
	if !b.memoryType.NeedsStaging() {
		if b.memoryType == MemoryTypeStorage {
			return errors.Wrapf(ErrNoHostVisibleMemory, "syncing %s image to device", b.memoryType)
		}
		// Host-visible primary, writes are already in place.
		return nil
	}

	b.log.Debug("recording staging to device image copy")

	b.RecordStagingImageBarrier(rec,
		vk.AccessFlags(vk.AccessHostWriteBit), vk.AccessFlags(vk.AccessTransferReadBit),
		vk.PipelineStageFlags(vk.PipelineStageHostBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageLayoutTransferSrcOptimal)
	b.RecordPrimaryImageBarrier(rec,
		vk.AccessFlags(vk.AccessMemoryReadBit), vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageLayoutTransferDstOptimal)

	rec.RecordCopyImage(b.stagingImage, b.primaryImage, b.stagingLayout, b.primaryLayout, b.wholeImageCopy())
	return nil
}

// RecordCopyFromDeviceToStaging mirrors RecordCopyFromStagingToDevice,
// moving primary contents back where the host can read them.
func (b *ImageBase) RecordCopyFromDeviceToStaging(rec Recorder) error {
	if !b.memoryType.NeedsStaging() {
		if b.memoryType == MemoryTypeStorage {
			return errors.Wrapf(ErrNoHostVisibleMemory, "syncing %s image to host", b.memoryType)
		}
		return nil
	}

	b.log.Debug("recording device to staging image copy")

	b.RecordPrimaryImageBarrier(rec,
		vk.AccessFlags(vk.AccessMemoryWriteBit), vk.AccessFlags(vk.AccessTransferReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageLayoutTransferSrcOptimal)
	b.RecordStagingImageBarrier(rec,
		vk.AccessFlags(vk.AccessMemoryReadBit), vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageLayoutTransferDstOptimal)

	rec.RecordCopyImage(b.primaryImage, b.stagingImage, b.primaryLayout, b.stagingLayout, b.wholeImageCopy())
	return nil
}

// RecordCopyFrom copies another resource's primary contents into this
// image's primary allocation. Image sources use an image to image copy,
// tensor sources a buffer to image copy. Byte sizes must match.
func (b *ImageBase) RecordCopyFrom(rec Recorder, src Memory) error {
	if src.MemorySize() != b.MemorySize() {
		return errors.Wrapf(ErrSizeMismatch, "copy source is %d bytes, destination %d", src.MemorySize(), b.MemorySize())
	}

	if img, ok := src.(imageResource); ok {
		return b.recordCopyFromImage(rec, img.imageBase())
	}
	if t, ok := src.(*Tensor); ok {
		return b.recordCopyFromTensor(rec, t)
	}
	return errors.Newf("cannot copy into an image from a %s", src.ResourceType())
}

func (b *ImageBase) recordCopyFromImage(rec Recorder, src *ImageBase) error {
	b.log.Debug("recording image to image copy")

	src.RecordPrimaryImageBarrier(rec,
		vk.AccessFlags(vk.AccessMemoryWriteBit), vk.AccessFlags(vk.AccessTransferReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageLayoutTransferSrcOptimal)
	b.RecordPrimaryImageBarrier(rec,
		vk.AccessFlags(vk.AccessMemoryReadBit), vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageLayoutTransferDstOptimal)

	rec.RecordCopyImage(src.primaryImage, b.primaryImage, src.primaryLayout, b.primaryLayout, b.wholeImageCopy())
	return nil
}

func (b *ImageBase) recordCopyFromTensor(rec Recorder, src *Tensor) error {
	b.log.Debug("recording tensor to image copy")

	b.RecordPrimaryImageBarrier(rec,
		vk.AccessFlags(vk.AccessMemoryReadBit), vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageLayoutTransferDstOptimal)

	rec.RecordCopyBufferToImage(src.primaryBuffer, b.primaryImage, b.primaryLayout, b.bufferImageCopy())
	return nil
}

// constructDescriptorImageInfo builds the descriptor payload for the
// primary image, creating and caching the image view on first use.
func (b *ImageBase) constructDescriptorImageInfo() (vk.DescriptorImageInfo, error) {
	if b.imageView == vk.NullImageView {
		view, err := b.createImageView()
		if err != nil {
			return vk.DescriptorImageInfo{}, err
		}
		b.imageView = view
	}

	cfg := imageVariantConfigs[b.variant]
	info := vk.DescriptorImageInfo{
		ImageView:   b.imageView,
		ImageLayout: cfg.descriptorLayout,
	}
	if cfg.hasSampler {
		info.Sampler = b.sampler
	}
	return info, nil
}

func (b *ImageBase) createImageView() (vk.ImageView, error) {
	format, err := formatFor(b.dataType, b.channels)
	if err != nil {
		return vk.NullImageView, err
	}

	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    b.primaryImage,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView

	if err := vk.Error(vk.CreateImageView(b.device.VKDevice, createInfo, nil, &view)); err != nil {
		return vk.NullImageView, errors.Wrap(err, "vkCreateImageView")
	}
	return view, nil
}

// ConstructDescriptorSet builds the write binding this image at the given
// binding of set. The resource must be initialized first.
func (b *ImageBase) ConstructDescriptorSet(set vk.DescriptorSet, binding uint32) (vk.WriteDescriptorSet, error) {
	if !b.IsInit() {
		return vk.WriteDescriptorSet{}, errors.Wrapf(ErrUninitialized, "constructing descriptor for binding %d", binding)
	}

	info, err := b.constructDescriptorImageInfo()
	if err != nil {
		return vk.WriteDescriptorSet{}, err
	}

	cfg := imageVariantConfigs[b.variant]
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  cfg.descriptorType,
		PImageInfo:      []vk.DescriptorImageInfo{info},
	}, nil
}

// Destroy releases the owned Vulkan objects, staging before primary, and
// drops the device reference so repeat calls are no-ops. Handles created
// outside this package are left alone.
func (b *ImageBase) Destroy() {
	if b.device == nil {
		b.logger().Debug("image destroy called with no device reference")
		return
	}

	b.logger().Debug("destroying image")

	if b.stagingMemory != nil {
		if b.freeStaging {
			b.stagingMemory.Destroy()
		} else {
			b.stagingMemory.Unmap()
		}
		b.stagingMemory = nil
	}
	if b.freeStaging && b.stagingImage != vk.NullImage {
		vk.DestroyImage(b.device.VKDevice, b.stagingImage, nil)
	}
	b.stagingImage = vk.NullImage

	if b.imageView != vk.NullImageView {
		vk.DestroyImageView(b.device.VKDevice, b.imageView, nil)
		b.imageView = vk.NullImageView
	}

	if b.primaryMemory != nil {
		if b.freePrimary {
			b.primaryMemory.Destroy()
		} else {
			b.primaryMemory.Unmap()
		}
		b.primaryMemory = nil
	}
	if b.freePrimary && b.primaryImage != vk.NullImage {
		vk.DestroyImage(b.device.VKDevice, b.primaryImage, nil)
	}
	b.primaryImage = vk.NullImage

	b.device = nil
}
