package kompute

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	vkInitOnce sync.Once
	vkInitErr  error
)

// ensureVulkan initializes the Vulkan loader once per process.
func ensureVulkan() error {
	vkInitOnce.Do(func() {
		vkInitErr = InitializeForComputeOnly()
	})
	return vkInitErr
}

// ManagerOptions configures NewManager. The zero value selects the first
// physical device, the first compute-capable queue family, no extra
// extensions and a discarding logger.
type ManagerOptions struct {
	// DeviceIndex selects the physical device among those enumerated.
	DeviceIndex uint32

	// QueueFamilies lists explicit queue family indices, one queue is
	// obtained per entry. Empty picks the first compute-capable family.
	QueueFamilies []uint32

	// Extensions are additional device extensions to enable.
	Extensions []string

	// Logger receives lifecycle and validation messages. Nil discards.
	Logger *slog.Logger

	// Debug enables the Khronos validation layer and routes its output
	// through Logger.
	Debug bool

	// TotalTimestamps is the default timestamp capacity for sequences
	// created by this manager. Zero disables timestamp collection.
	TotalTimestamps uint32
}

// Manager owns the Vulkan instance, device and queue setup and acts as a
// factory for resources, algorithms and sequences. Everything created
// through it is tracked and released by Destroy.
type Manager struct {
	instance      *Instance
	ownInstance   bool
	debugCallback vk.DebugReportCallback

	physicalDevice *PhysicalDevice
	device         *Device
	ownDevice      bool

	queues []*Queue

	log             *slog.Logger
	totalTimestamps uint32

	sequences  []*Sequence
	algorithms []*Algorithm
	resources  []Memory

	destroyed bool
}

// NewManager initializes Vulkan, creates an instance, picks a physical
// device and builds a logical device with one queue per requested
// family.
func NewManager(opts ManagerOptions) (*Manager, error) {
	log := opts.Logger
	if log == nil {
		log = discardLogger()
	}

	if err := ensureVulkan(); err != nil {
		return nil, err
	}

	app := &App{
		Name:       "kompute",
		EngineName: "kompute",
		APIVersion: Version{Major: 1, Minor: 1},
	}

	debug := opts.Debug
	if debug {
		if err := app.EnableDebugging(); err != nil {
			log.Warn("validation layers unavailable, continuing without them", "error", err)
			debug = false
		}
	}

	instance, err := app.CreateInstance()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		instance:        instance,
		ownInstance:     true,
		ownDevice:       true,
		log:             log,
		totalTimestamps: opts.TotalTimestamps,
	}

	if debug {
		cb, err := instance.SetDebugCallback(debugReportCallbackFor(log))
		if err != nil {
			log.Warn("debug callback unavailable", "error", err)
		} else {
			m.debugCallback = cb
		}
	}

	if err := m.initDevice(opts); err != nil {
		m.Destroy()
		return nil, err
	}
	return m, nil
}

// NewManagerFromDevice builds a manager around an externally created
// device and queue. The manager tracks and destroys what it creates but
// leaves the device and its instance alone.
func NewManagerFromDevice(device *Device, queue *Queue) *Manager {
	return &Manager{
		physicalDevice: device.PhysicalDevice,
		device:         device,
		queues:         []*Queue{queue},
		log:            device.logger(),
	}
}

func (m *Manager) initDevice(opts ManagerOptions) error {
	physicalDevices, err := m.instance.PhysicalDevices()
	if err != nil {
		return err
	}
	if int(opts.DeviceIndex) >= len(physicalDevices) {
		return errors.Newf("device index %d out of range, %d devices available",
			opts.DeviceIndex, len(physicalDevices))
	}
	m.physicalDevice = physicalDevices[opts.DeviceIndex]
	m.log.Debug("using physical device",
		"index", opts.DeviceIndex, "name", m.physicalDevice.DeviceName)

	families, err := m.physicalDevice.QueueFamilies()
	if err != nil {
		return err
	}

	var selected QueueFamilySlice
	if len(opts.QueueFamilies) == 0 {
		compute := families.FilterCompute()
		if len(compute) == 0 {
			return errors.New("no compute-capable queue family found")
		}
		selected = compute[:1]
	} else {
		for _, idx := range opts.QueueFamilies {
			if int(idx) >= len(families) {
				return errors.Newf("queue family index %d out of range, %d families available",
					idx, len(families))
			}
			selected = append(selected, families[idx])
		}
	}

	var deviceOpts *CreateDeviceOptions
	if len(opts.Extensions) > 0 {
		deviceOpts = &CreateDeviceOptions{EnabledExtensions: opts.Extensions}
	}
	device, err := m.physicalDevice.CreateLogicalDeviceWithOptions(selected, deviceOpts)
	if err != nil {
		return err
	}
	device.SetLogger(m.log)
	m.device = device

	for _, qf := range selected {
		m.queues = append(m.queues, device.GetQueue(qf))
	}
	return nil
}

// Device returns the logical device resources are created on.
func (m *Manager) Device() *Device { return m.device }

// PhysicalDevice returns the selected physical device.
func (m *Manager) PhysicalDevice() *PhysicalDevice { return m.physicalDevice }

// Queue returns the first queue. Sequences created by the manager submit
// to it unless another queue index is requested.
func (m *Manager) Queue() *Queue { return m.queues[0] }

func (m *Manager) usable() error {
	if m.destroyed {
		return ErrDestroyed
	}
	return nil
}

// CreateTensor creates a zero-filled tensor and tracks it.
func (m *Manager) CreateTensor(size uint32, dataType DataType, opts TensorOptions) (*Tensor, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	t, err := NewTensor(m.device, size, dataType, opts)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, t)
	return t, nil
}

// CreateTensorFromData creates a tensor initialized from raw bytes and
// tracks it.
func (m *Manager) CreateTensorFromData(data []byte, dataType DataType, opts TensorOptions) (*Tensor, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	t, err := NewTensorFromData(m.device, data, dataType, opts)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, t)
	return t, nil
}

// CreateImage creates a zero-filled storage image and tracks it.
func (m *Manager) CreateImage(width, height, numChannels uint32, dataType DataType, opts ImageOptions) (*Image, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	img, err := NewImage(m.device, width, height, numChannels, dataType, opts)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, img)
	return img, nil
}

// CreateImageFromData creates a storage image initialized from raw bytes
// and tracks it.
func (m *Manager) CreateImageFromData(data []byte, width, height, numChannels uint32, dataType DataType, opts ImageOptions) (*Image, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	img, err := NewImageFromData(m.device, data, width, height, numChannels, dataType, opts)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, img)
	return img, nil
}

// CreateTexture creates a zero-filled sampled texture and tracks it.
func (m *Manager) CreateTexture(width, height, numChannels uint32, dataType DataType, opts ImageOptions, sampler SamplerOptions) (*Texture, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	t, err := NewTexture(m.device, width, height, numChannels, dataType, opts, sampler)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, t)
	return t, nil
}

// CreateTextureFromData creates a sampled texture initialized from raw
// bytes and tracks it.
func (m *Manager) CreateTextureFromData(data []byte, width, height, numChannels uint32, dataType DataType, opts ImageOptions, sampler SamplerOptions) (*Texture, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	t, err := NewTextureFromData(m.device, data, width, height, numChannels, dataType, opts, sampler)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, t)
	return t, nil
}

// CreateAlgorithm compiles a SPIR-V kernel against the given resources
// and tracks the result.
func (m *Manager) CreateAlgorithm(mems []Memory, spirv []byte, opts AlgorithmOptions) (*Algorithm, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	a, err := NewAlgorithm(m.device, mems, spirv, opts)
	if err != nil {
		return nil, err
	}
	m.algorithms = append(m.algorithms, a)
	return a, nil
}

// CreateSequence creates a sequence on the first queue with the
// manager's default timestamp capacity and tracks it.
func (m *Manager) CreateSequence() (*Sequence, error) {
	return m.CreateSequenceWithTimestamps(m.totalTimestamps)
}

// CreateSequenceWithTimestamps creates a sequence with an explicit
// timestamp capacity and tracks it.
func (m *Manager) CreateSequenceWithTimestamps(totalTimestamps uint32) (*Sequence, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	s, err := NewSequence(m.device, m.queues[0], totalTimestamps)
	if err != nil {
		return nil, err
	}
	m.sequences = append(m.sequences, s)
	return s, nil
}

// CreateTypedTensor creates a typed tensor through a manager and tracks
// it. A free function because methods cannot introduce type parameters.
func CreateTypedTensor[T Scalar](m *Manager, data []T, opts TensorOptions) (*TypedTensor[T], error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	t, err := NewTypedTensor(m.device, data, opts)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, t.Tensor)
	return t, nil
}

// CreateTypedImage creates a typed storage image through a manager and
// tracks it.
func CreateTypedImage[T Scalar](m *Manager, data []T, width, height, numChannels uint32, opts ImageOptions) (*TypedImage[T], error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	img, err := NewTypedImage(m.device, data, width, height, numChannels, opts)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, img.Image)
	return img, nil
}

// CreateTypedTexture creates a typed sampled texture through a manager
// and tracks it.
func CreateTypedTexture[T Scalar](m *Manager, data []T, width, height, numChannels uint32, opts ImageOptions, sampler SamplerOptions) (*TypedTexture[T], error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	t, err := NewTypedTexture(m.device, data, width, height, numChannels, opts, sampler)
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, t.Texture)
	return t, nil
}

// Destroy waits for the device to go idle and releases sequences,
// algorithms and resources in that order, then the device and instance
// when the manager owns them. Safe to call more than once.
func (m *Manager) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true

	if m.device != nil && m.device.VKDevice != nil {
		m.device.WaitIdle()
	}

	for _, s := range m.sequences {
		s.Destroy()
	}
	m.sequences = nil

	for _, a := range m.algorithms {
		a.Destroy()
	}
	m.algorithms = nil

	for _, r := range m.resources {
		r.Destroy()
	}
	m.resources = nil

	if m.ownDevice && m.device != nil {
		m.device.Destroy()
	}

	if m.instance != nil {
		m.instance.DestroyDebugCallback(m.debugCallback)
		m.debugCallback = vk.NullDebugReportCallback
		if m.ownInstance {
			m.instance.Destroy()
		}
	}

	m.log.Debug("manager destroyed")
}
