package kompute

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestDataTypeSizeOf(t *testing.T) {
	cases := []struct {
		dataType DataType
		want     uint32
	}{
		{DataTypeUInt8, 1},
		{DataTypeInt8, 1},
		{DataTypeUInt16, 2},
		{DataTypeInt16, 2},
		{DataTypeUInt32, 4},
		{DataTypeInt32, 4},
		{DataTypeFloat32, 4},
		{DataTypeCustom, 1},
		{DataType(42), 0},
	}
	for _, c := range cases {
		if have := c.dataType.SizeOf(); have != c.want {
			t.Errorf("%s.SizeOf() = %d, want %d", c.dataType, have, c.want)
		}
	}
}

func TestDataTypeOf(t *testing.T) {
	if have := DataTypeOf[uint8](); have != DataTypeUInt8 {
		t.Errorf("DataTypeOf[uint8]() = %s, want uint8", have)
	}
	if have := DataTypeOf[int8](); have != DataTypeInt8 {
		t.Errorf("DataTypeOf[int8]() = %s, want int8", have)
	}
	if have := DataTypeOf[uint16](); have != DataTypeUInt16 {
		t.Errorf("DataTypeOf[uint16]() = %s, want uint16", have)
	}
	if have := DataTypeOf[int16](); have != DataTypeInt16 {
		t.Errorf("DataTypeOf[int16]() = %s, want int16", have)
	}
	if have := DataTypeOf[uint32](); have != DataTypeUInt32 {
		t.Errorf("DataTypeOf[uint32]() = %s, want uint32", have)
	}
	if have := DataTypeOf[int32](); have != DataTypeInt32 {
		t.Errorf("DataTypeOf[int32]() = %s, want int32", have)
	}
	if have := DataTypeOf[float32](); have != DataTypeFloat32 {
		t.Errorf("DataTypeOf[float32]() = %s, want float32", have)
	}
}

func TestMemoryTypeResidency(t *testing.T) {
	cases := []struct {
		memoryType  MemoryType
		hostVisible bool
		staging     bool
	}{
		{MemoryTypeDevice, false, true},
		{MemoryTypeHost, true, false},
		{MemoryTypeDeviceAndHost, true, false},
		{MemoryTypeStorage, false, false},
	}
	for _, c := range cases {
		if have := c.memoryType.HostVisible(); have != c.hostVisible {
			t.Errorf("%s.HostVisible() = %v, want %v", c.memoryType, have, c.hostVisible)
		}
		if have := c.memoryType.NeedsStaging(); have != c.staging {
			t.Errorf("%s.NeedsStaging() = %v, want %v", c.memoryType, have, c.staging)
		}
	}
}

func TestTilingResolve(t *testing.T) {
	cases := []struct {
		tiling     Tiling
		memoryType MemoryType
		want       vk.ImageTiling
	}{
		{TilingAuto, MemoryTypeDevice, vk.ImageTilingOptimal},
		{TilingAuto, MemoryTypeStorage, vk.ImageTilingOptimal},
		{TilingAuto, MemoryTypeHost, vk.ImageTilingLinear},
		{TilingAuto, MemoryTypeDeviceAndHost, vk.ImageTilingLinear},
		{TilingOptimal, MemoryTypeHost, vk.ImageTilingOptimal},
		{TilingLinear, MemoryTypeDevice, vk.ImageTilingLinear},
	}
	for _, c := range cases {
		have, err := c.tiling.resolve(c.memoryType)
		if err != nil {
			t.Errorf("resolve(%s, %s) returned error: %v", c.tiling, c.memoryType, err)
			continue
		}
		if have != c.want {
			t.Errorf("resolve(%s, %s) = %d, want %d", c.tiling, c.memoryType, have, c.want)
		}
	}

	if _, err := TilingAuto.resolve(MemoryType(42)); !errors.Is(err, ErrUnsupportedMemoryType) {
		t.Errorf("resolving auto tiling for an unknown memory type returned %v, want ErrUnsupportedMemoryType", err)
	}
}

func TestFormatFor(t *testing.T) {
	cases := []struct {
		dataType DataType
		channels uint32
		want     vk.Format
	}{
		{DataTypeUInt8, 1, vk.FormatR8Uint},
		{DataTypeUInt8, 4, vk.FormatR8g8b8a8Uint},
		{DataTypeInt16, 2, vk.FormatR16g16Sint},
		{DataTypeFloat32, 1, vk.FormatR32Sfloat},
		{DataTypeFloat32, 4, vk.FormatR32g32b32a32Sfloat},
	}
	for _, c := range cases {
		have, err := formatFor(c.dataType, c.channels)
		if err != nil {
			t.Errorf("formatFor(%s, %d) returned error: %v", c.dataType, c.channels, err)
			continue
		}
		if have != c.want {
			t.Errorf("formatFor(%s, %d) = %d, want %d", c.dataType, c.channels, have, c.want)
		}
	}

	if _, err := formatFor(DataTypeCustom, 4); !errors.Is(err, ErrCustomDataType) {
		t.Errorf("formatFor custom = %v, want ErrCustomDataType", err)
	}
	if _, err := formatFor(DataTypeUInt8, 0); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("formatFor with 0 channels = %v, want ErrInvalidChannels", err)
	}
	if _, err := formatFor(DataTypeUInt8, 5); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("formatFor with 5 channels = %v, want ErrInvalidChannels", err)
	}
}

func TestFilterVk(t *testing.T) {
	if have := FilterNearest.vk(); have != vk.FilterNearest {
		t.Errorf("FilterNearest.vk() = %d, want vk.FilterNearest", have)
	}
	if have := FilterLinear.vk(); have != vk.FilterLinear {
		t.Errorf("FilterLinear.vk() = %d, want vk.FilterLinear", have)
	}
}

func TestAddressModeVk(t *testing.T) {
	cases := []struct {
		mode AddressMode
		want vk.SamplerAddressMode
	}{
		{AddressModeClampToEdge, vk.SamplerAddressModeClampToEdge},
		{AddressModeClampToBorder, vk.SamplerAddressModeClampToBorder},
		{AddressModeRepeat, vk.SamplerAddressModeRepeat},
		{AddressModeMirroredRepeat, vk.SamplerAddressModeMirroredRepeat},
	}
	for _, c := range cases {
		if have := c.mode.vk(); have != c.want {
			t.Errorf("%s.vk() = %d, want %d", c.mode, have, c.want)
		}
	}
}
