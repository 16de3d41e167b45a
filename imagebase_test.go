package kompute

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestImageConfigValidation(t *testing.T) {
	if _, err := NewImage(nil, 4, 4, 4, DataTypeCustom, ImageOptions{}); !errors.Is(err, ErrCustomDataType) {
		t.Errorf("creating a custom element image returned %v, want ErrCustomDataType", err)
	}
	if _, err := NewImage(nil, 4, 4, 0, DataTypeUInt8, ImageOptions{}); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("creating a 0 channel image returned %v, want ErrInvalidChannels", err)
	}
	if _, err := NewImage(nil, 4, 4, 5, DataTypeUInt8, ImageOptions{}); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("creating a 5 channel image returned %v, want ErrInvalidChannels", err)
	}
	if _, err := NewImageFromData(nil, make([]byte, 3), 4, 4, 4, DataTypeUInt8, ImageOptions{}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("creating an image from 3 bytes returned %v, want ErrSizeMismatch", err)
	}
	if _, err := NewTexture(nil, 4, 4, 4, DataTypeCustom, ImageOptions{}, SamplerOptions{}); !errors.Is(err, ErrCustomDataType) {
		t.Errorf("creating a custom element texture returned %v, want ErrCustomDataType", err)
	}
}

func TestImageVariantConfigs(t *testing.T) {
	storage := imageVariantConfigs[variantStorage]
	if storage.descriptorType != vk.DescriptorTypeStorageImage {
		t.Errorf("storage descriptor type = %d, want storage image", storage.descriptorType)
	}
	if storage.descriptorLayout != vk.ImageLayoutGeneral {
		t.Errorf("storage descriptor layout = %d, want general", storage.descriptorLayout)
	}
	if storage.hasSampler {
		t.Error("storage images must not carry a sampler")
	}
	if storage.primaryUsage&vk.ImageUsageFlags(vk.ImageUsageStorageBit) == 0 {
		t.Error("storage usage is missing the storage bit")
	}

	sampled := imageVariantConfigs[variantSampled]
	if sampled.descriptorType != vk.DescriptorTypeCombinedImageSampler {
		t.Errorf("sampled descriptor type = %d, want combined image sampler", sampled.descriptorType)
	}
	if sampled.descriptorLayout != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Errorf("sampled descriptor layout = %d, want shader read only optimal", sampled.descriptorLayout)
	}
	if !sampled.hasSampler {
		t.Error("sampled images must carry a sampler")
	}
	if sampled.primaryUsage&vk.ImageUsageFlags(vk.ImageUsageSampledBit) == 0 {
		t.Error("sampled usage is missing the sampled bit")
	}

	for variant, cfg := range imageVariantConfigs {
		transfer := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)
		if cfg.primaryUsage&transfer != transfer {
			t.Errorf("variant %d usage is missing transfer bits", variant)
		}
	}
}

func TestImageSizes(t *testing.T) {
	img := testStorageImage(MemoryTypeDevice)
	if have := img.Size(); have != 64 {
		t.Errorf("Size() = %d, want 64", have)
	}
	if have := img.MemorySize(); have != 64 {
		t.Errorf("MemorySize() = %d, want 64", have)
	}

	wide := &ImageBase{dataType: DataTypeFloat32, width: 8, height: 2, channels: 3}
	if have := wide.Size(); have != 48 {
		t.Errorf("float image Size() = %d, want 48", have)
	}
	if have := wide.MemorySize(); have != 192 {
		t.Errorf("float image MemorySize() = %d, want 192", have)
	}
}

func TestImageLayoutTracking(t *testing.T) {
	rec := &recorderStub{}
	img := testStorageImage(MemoryTypeDevice)

	if have := img.PrimaryImageLayout(); have != vk.ImageLayoutUndefined {
		t.Fatalf("fresh image layout = %d, want undefined", have)
	}

	img.RecordPrimaryImageBarrier(rec,
		vk.AccessFlags(vk.AccessMemoryReadBit), vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageLayoutTransferDstOptimal)

	if have := img.PrimaryImageLayout(); have != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("layout after barrier = %d, want transfer dst optimal", have)
	}
	if len(rec.imageBarriers) != 1 {
		t.Fatalf("recorded %d barriers, want 1", len(rec.imageBarriers))
	}
	b := rec.imageBarriers[0]
	if b.oldLayout != vk.ImageLayoutUndefined {
		t.Errorf("barrier old layout = %d, want undefined", b.oldLayout)
	}
	if b.newLayout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("barrier new layout = %d, want transfer dst optimal", b.newLayout)
	}
}

// A barrier into the layout the image is already in must still be
// recorded: the access dependency matters even when no transition does.
func TestImageBarrierNotElided(t *testing.T) {
	rec := &recorderStub{}
	img := testStorageImage(MemoryTypeDevice)

	img.RecordPrimaryMemoryBarrier(rec,
		vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit))
	img.RecordPrimaryMemoryBarrier(rec,
		vk.AccessFlags(vk.AccessShaderWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit))

	if len(rec.imageBarriers) != 2 {
		t.Fatalf("recorded %d barriers, want 2", len(rec.imageBarriers))
	}
	second := rec.imageBarriers[1]
	if second.oldLayout != vk.ImageLayoutGeneral || second.newLayout != vk.ImageLayoutGeneral {
		t.Errorf("repeat barrier layouts = %d -> %d, want general -> general", second.oldLayout, second.newLayout)
	}
}

func TestImageCopyStagingToDevice(t *testing.T) {
	rec := &recorderStub{}
	img := testStorageImage(MemoryTypeDevice)

	if err := img.RecordCopyFromStagingToDevice(rec); err != nil {
		t.Fatalf("RecordCopyFromStagingToDevice: %v", err)
	}

	want := []string{"imageBarrier", "imageBarrier", "copyImage"}
	if len(rec.calls) != len(want) {
		t.Fatalf("recorded calls %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("recorded calls %v, want %v", rec.calls, want)
		}
	}

	staging := rec.imageBarriers[0]
	if staging.srcAccess != vk.AccessFlags(vk.AccessHostWriteBit) || staging.dstAccess != vk.AccessFlags(vk.AccessTransferReadBit) {
		t.Errorf("staging barrier access = %d -> %d, want host write -> transfer read", staging.srcAccess, staging.dstAccess)
	}
	if staging.srcStage != vk.PipelineStageFlags(vk.PipelineStageHostBit) || staging.dstStage != vk.PipelineStageFlags(vk.PipelineStageTransferBit) {
		t.Errorf("staging barrier stages = %d -> %d, want host -> transfer", staging.srcStage, staging.dstStage)
	}
	if staging.newLayout != vk.ImageLayoutTransferSrcOptimal {
		t.Errorf("staging barrier layout = %d, want transfer src optimal", staging.newLayout)
	}

	primary := rec.imageBarriers[1]
	if primary.srcAccess != vk.AccessFlags(vk.AccessMemoryReadBit) || primary.dstAccess != vk.AccessFlags(vk.AccessTransferWriteBit) {
		t.Errorf("primary barrier access = %d -> %d, want memory read -> transfer write", primary.srcAccess, primary.dstAccess)
	}
	if primary.newLayout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("primary barrier layout = %d, want transfer dst optimal", primary.newLayout)
	}

	cp := rec.imageCopies[0]
	if cp.srcLayout != vk.ImageLayoutTransferSrcOptimal || cp.dstLayout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("copy layouts = %d -> %d, want transfer src -> transfer dst", cp.srcLayout, cp.dstLayout)
	}
	if cp.region.Extent.Width != 4 || cp.region.Extent.Height != 4 || cp.region.Extent.Depth != 1 {
		t.Errorf("copy extent = %+v, want 4x4x1", cp.region.Extent)
	}

	if img.StagingImageLayout() != vk.ImageLayoutTransferSrcOptimal {
		t.Errorf("tracked staging layout = %d, want transfer src optimal", img.StagingImageLayout())
	}
	if img.PrimaryImageLayout() != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("tracked primary layout = %d, want transfer dst optimal", img.PrimaryImageLayout())
	}
}

func TestImageCopyDeviceToStaging(t *testing.T) {
	rec := &recorderStub{}
	img := testStorageImage(MemoryTypeDevice)

	if err := img.RecordCopyFromDeviceToStaging(rec); err != nil {
		t.Fatalf("RecordCopyFromDeviceToStaging: %v", err)
	}

	if len(rec.imageBarriers) != 2 || len(rec.imageCopies) != 1 {
		t.Fatalf("recorded %d barriers and %d copies, want 2 and 1", len(rec.imageBarriers), len(rec.imageCopies))
	}

	primary := rec.imageBarriers[0]
	if primary.srcAccess != vk.AccessFlags(vk.AccessMemoryWriteBit) || primary.dstAccess != vk.AccessFlags(vk.AccessTransferReadBit) {
		t.Errorf("primary barrier access = %d -> %d, want memory write -> transfer read", primary.srcAccess, primary.dstAccess)
	}
	if primary.newLayout != vk.ImageLayoutTransferSrcOptimal {
		t.Errorf("primary barrier layout = %d, want transfer src optimal", primary.newLayout)
	}

	staging := rec.imageBarriers[1]
	if staging.newLayout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("staging barrier layout = %d, want transfer dst optimal", staging.newLayout)
	}

	cp := rec.imageCopies[0]
	if cp.srcLayout != vk.ImageLayoutTransferSrcOptimal || cp.dstLayout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("copy layouts = %d -> %d, want transfer src -> transfer dst", cp.srcLayout, cp.dstLayout)
	}
}

func TestImageSyncHostResidencyRecordsNothing(t *testing.T) {
	for _, mt := range []MemoryType{MemoryTypeHost, MemoryTypeDeviceAndHost} {
		rec := &recorderStub{}
		img := testStorageImage(mt)

		if err := img.RecordCopyFromStagingToDevice(rec); err != nil {
			t.Errorf("%s to device: %v", mt, err)
		}
		if err := img.RecordCopyFromDeviceToStaging(rec); err != nil {
			t.Errorf("%s to host: %v", mt, err)
		}
		if len(rec.calls) != 0 {
			t.Errorf("%s residency recorded %v, want nothing", mt, rec.calls)
		}
	}
}

func TestImageSyncStorageResidencyErrors(t *testing.T) {
	rec := &recorderStub{}
	img := testStorageImage(MemoryTypeStorage)

	if err := img.RecordCopyFromStagingToDevice(rec); !errors.Is(err, ErrNoHostVisibleMemory) {
		t.Errorf("storage to device = %v, want ErrNoHostVisibleMemory", err)
	}
	if err := img.RecordCopyFromDeviceToStaging(rec); !errors.Is(err, ErrNoHostVisibleMemory) {
		t.Errorf("storage to host = %v, want ErrNoHostVisibleMemory", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("storage residency recorded %v, want nothing", rec.calls)
	}
}

func TestImageRecordCopyFromImage(t *testing.T) {
	rec := &recorderStub{}
	src := testStorageImage(MemoryTypeDevice)
	dst := testStorageImage(MemoryTypeDevice)

	if err := dst.RecordCopyFrom(rec, src); err != nil {
		t.Fatalf("RecordCopyFrom: %v", err)
	}

	if len(rec.imageBarriers) != 2 || len(rec.imageCopies) != 1 {
		t.Fatalf("recorded %d barriers and %d copies, want 2 and 1", len(rec.imageBarriers), len(rec.imageCopies))
	}
	if src.PrimaryImageLayout() != vk.ImageLayoutTransferSrcOptimal {
		t.Errorf("source layout = %d, want transfer src optimal", src.PrimaryImageLayout())
	}
	if dst.PrimaryImageLayout() != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("destination layout = %d, want transfer dst optimal", dst.PrimaryImageLayout())
	}
}

func TestImageRecordCopyFromTensor(t *testing.T) {
	rec := &recorderStub{}
	src := testTensor(MemoryTypeDevice, 64, DataTypeUInt8)
	dst := testStorageImage(MemoryTypeDevice)

	if err := dst.RecordCopyFrom(rec, src); err != nil {
		t.Fatalf("RecordCopyFrom: %v", err)
	}

	want := []string{"imageBarrier", "copyBufferToImage"}
	if len(rec.calls) != len(want) || rec.calls[0] != want[0] || rec.calls[1] != want[1] {
		t.Fatalf("recorded calls %v, want %v", rec.calls, want)
	}
	cp := rec.bufferToImage[0]
	if cp.layout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("buffer to image layout = %d, want transfer dst optimal", cp.layout)
	}
	if cp.region.ImageExtent.Width != 4 || cp.region.ImageExtent.Height != 4 {
		t.Errorf("buffer to image extent = %+v, want 4x4", cp.region.ImageExtent)
	}
}

func TestImageRecordCopyFromSizeMismatch(t *testing.T) {
	rec := &recorderStub{}
	src := testStorageImage(MemoryTypeDevice)
	src.width, src.height = 2, 2
	dst := testStorageImage(MemoryTypeDevice)

	if err := dst.RecordCopyFrom(rec, src); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("copying 2x2 into 4x4 = %v, want ErrSizeMismatch", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("failed copy recorded %v, want nothing", rec.calls)
	}
}

func TestImageHostAccessWithoutAllocations(t *testing.T) {
	device := testStorageImage(MemoryTypeDevice)
	if _, err := device.RawData(); !errors.Is(err, ErrUninitialized) {
		t.Errorf("device image RawData = %v, want ErrUninitialized", err)
	}

	storage := testStorageImage(MemoryTypeStorage)
	if _, err := storage.RawData(); !errors.Is(err, ErrNoHostVisibleMemory) {
		t.Errorf("storage image RawData = %v, want ErrNoHostVisibleMemory", err)
	}
	if err := storage.SetRawData(make([]byte, 64)); !errors.Is(err, ErrNoHostVisibleMemory) {
		t.Errorf("storage image SetRawData = %v, want ErrNoHostVisibleMemory", err)
	}
}

func TestImageDescriptorBeforeInit(t *testing.T) {
	img := testStorageImage(MemoryTypeDevice)
	if _, err := img.ConstructDescriptorSet(vk.NullDescriptorSet, 0); !errors.Is(err, ErrUninitialized) {
		t.Errorf("descriptor for an uninitialized image = %v, want ErrUninitialized", err)
	}
}

func TestImageDestroyWithoutDevice(t *testing.T) {
	img := &Image{}
	img.Destroy()
	img.Destroy()

	if img.IsInit() {
		t.Error("zero image reports IsInit")
	}

	tex := &Texture{}
	tex.Destroy()
	tex.Destroy()
}
