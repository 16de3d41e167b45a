package kompute

import (
	"unsafe"
)

var end = "\x00"
var endChar byte = '\x00'

// ToBytes takes an unsafe.Pointer and a length in bytes and converts it
// to a byte slice backed by the same memory.
func ToBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	const m = 0x7fffffff
	return (*[m]byte)(ptr)[:lenInBytes]
}

// sliceUint32 reinterprets SPIR-V bytes as the word slice Vulkan expects.
func sliceUint32(data []byte) []uint32 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// scalarBytes views a scalar slice as its backing bytes without copying.
func scalarBytes[T Scalar](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var z T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(z)))
}

// scalarSlice views raw bytes as a scalar slice without copying. The
// length must be a multiple of the element size.
func scalarSlice[T Scalar](data []byte) []T {
	if len(data) == 0 {
		return nil
	}
	var z T
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), len(data)/int(unsafe.Sizeof(z)))
}

// Vulkan wants strings null terminated.
func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}
