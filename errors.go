package kompute

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors returned by resource construction and recording. Callers
// match them with errors.Is; the returned errors usually carry additional
// context from the call site.
var (
	// ErrCustomDataType is returned when an image or texture is asked to
	// hold custom (opaque) elements. Images need a concrete texel format.
	ErrCustomDataType = errors.New("custom data types are not supported for images")

	// ErrUnsupportedMemoryType is returned when a residency has no valid
	// realization, for example resolving a tiling for an unknown value.
	ErrUnsupportedMemoryType = errors.New("unsupported memory type")

	// ErrInvalidChannels is returned for image channel counts outside 1..4.
	ErrInvalidChannels = errors.New("image channel count must be between 1 and 4")

	// ErrSizeMismatch is returned when host data or a copy source does not
	// match the destination's byte size.
	ErrSizeMismatch = errors.New("source and destination sizes differ")

	// ErrDataTypeMismatch is returned when typed host access is attempted
	// with an element type other than the resource's.
	ErrDataTypeMismatch = errors.New("element type does not match resource data type")

	// ErrUninitialized is returned when an operation needs live device
	// allocations and the resource has none.
	ErrUninitialized = errors.New("resource is not initialized")

	// ErrDestroyed is returned when creating resources through a manager
	// that has already been destroyed.
	ErrDestroyed = errors.New("manager has been destroyed")

	// ErrNoHostVisibleMemory is returned when host data access is attempted
	// on a residency with no mapped allocation.
	ErrNoHostVisibleMemory = errors.New("memory type has no host-visible allocation")

	// ErrEmptyOperands is returned by operations and algorithms constructed
	// over an empty resource list.
	ErrEmptyOperands = errors.New("at least one memory object is required")
)
