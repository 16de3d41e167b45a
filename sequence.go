package kompute

import (
	"log/slog"
	"math"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Sequence batches operations into a single command buffer submission.
// Record calls chain; the first error latches and surfaces from Eval, so
// a whole recording can be written without intermediate checks:
//
//	err := seq.Record(op1).Record(op2).Eval()
//
// A sequence records on one thread at a time; it owns its command pool
// and buffer and must not be shared between goroutines.
type Sequence struct {
	device *Device
	queue  *Queue
	log    *slog.Logger

	pool  *CommandPool
	cb    *CommandBuffer
	fence *Fence
	rec   recordTarget

	ops       []Op
	recording bool
	running   bool
	err       error

	queryPool      vk.QueryPool
	timestampCap   uint32
	timestampCount uint32
}

// recordTarget is the command buffer surface a sequence records through:
// the Recorder operations use plus the begin and end lifecycle calls the
// sequence itself drives.
type recordTarget interface {
	Recorder
	Begin() error
	End() error
}

// NewSequence creates a sequence submitting to queue. totalTimestamps
// reserves space for device timestamps: one written when recording
// begins and one after each recorded operation; zero disables them.
func NewSequence(device *Device, queue *Queue, totalTimestamps uint32) (*Sequence, error) {
	pool, err := device.CreateCommandPool(queue.QueueFamily)
	if err != nil {
		return nil, err
	}

	cb, err := pool.AllocateBuffer()
	if err != nil {
		pool.Destroy()
		return nil, err
	}

	fence, err := device.CreateFence()
	if err != nil {
		pool.Destroy()
		return nil, err
	}

	s := &Sequence{
		device: device,
		queue:  queue,
		log:    device.logger(),
		pool:   pool,
		cb:     cb,
		fence:  fence,
		rec:    cb,
	}

	if totalTimestamps > 0 {
		if err := s.createQueryPool(totalTimestamps + 1); err != nil {
			s.Destroy()
			return nil, err
		}
	}

	return s, nil
}

func (s *Sequence) createQueryPool(count uint32) error {
	createInfo := vk.QueryPoolCreateInfo{
		SType:      vk.StructureTypeQueryPoolCreateInfo,
		QueryType:  vk.QueryTypeTimestamp,
		QueryCount: count,
	}

	var pool vk.QueryPool
	if err := vk.Error(vk.CreateQueryPool(s.device.VKDevice, &createInfo, nil, &pool)); err != nil {
		return errors.Wrap(err, "vkCreateQueryPool")
	}
	s.queryPool = pool
	s.timestampCap = count
	return nil
}

func (s *Sequence) recorder() Recorder {
	return s.rec
}

func (s *Sequence) begin() error {
	if s.recording {
		return nil
	}
	if err := s.rec.Begin(); err != nil {
		return err
	}
	s.recording = true

	if s.queryPool != vk.NullQueryPool {
		vk.CmdResetQueryPool(s.cb.VKCommandBuffer, s.queryPool, 0, s.timestampCap)
		s.timestampCount = 0
		s.writeTimestamp()
	}
	return nil
}

func (s *Sequence) writeTimestamp() {
	if s.queryPool == vk.NullQueryPool || s.timestampCount >= s.timestampCap {
		return
	}
	vk.CmdWriteTimestamp(s.cb.VKCommandBuffer, vk.PipelineStageAllCommandsBit, s.queryPool, s.timestampCount)
	s.timestampCount++
}

// End closes the command buffer so it can be submitted.
func (s *Sequence) End() error {
	if !s.recording {
		return nil
	}
	if err := s.rec.End(); err != nil {
		return err
	}
	s.recording = false
	return nil
}

// Record appends op to the sequence, recording its commands immediately.
// The first error stops recording and latches until Eval or Clear.
func (s *Sequence) Record(op Op) *Sequence {
	if s.err != nil {
		return s
	}
	if s.running {
		s.err = errors.New("cannot record into a sequence that is still running")
		return s
	}
	if err := s.begin(); err != nil {
		s.err = err
		return s
	}
	if err := op.Record(s.recorder()); err != nil {
		s.err = err
		return s
	}
	s.ops = append(s.ops, op)
	s.writeTimestamp()
	return s
}

// Eval submits the recorded operations and blocks until the device has
// finished them.
func (s *Sequence) Eval() error {
	if err := s.EvalAsync(); err != nil {
		return err
	}
	return s.EvalAwait(time.Duration(math.MaxInt64))
}

// EvalAsync submits the recorded operations without waiting. EvalAwait
// picks up the results.
func (s *Sequence) EvalAsync() error {
	if s.err != nil {
		return s.err
	}
	if s.running {
		return errors.New("sequence is already running")
	}
	if err := s.End(); err != nil {
		return err
	}

	for _, op := range s.ops {
		if err := op.PreEval(); err != nil {
			return err
		}
	}

	if err := s.fence.Reset(); err != nil {
		return err
	}
	if err := s.queue.SubmitWithFence(s.fence, s.cb); err != nil {
		return err
	}

	s.running = true
	s.log.Debug("sequence submitted", "ops", len(s.ops))
	return nil
}

// EvalAwait blocks until the in-flight submission completes or the
// timeout expires, then runs every operation's post step.
func (s *Sequence) EvalAwait(timeout time.Duration) error {
	if !s.running {
		return nil
	}
	if err := s.device.WaitForFences(true, timeout, s.fence); err != nil {
		return err
	}
	s.running = false

	for _, op := range s.ops {
		if err := op.PostEval(); err != nil {
			return err
		}
	}
	return nil
}

// Rerecord replays the sequence's operations into a fresh recording,
// picking up changed resource state such as image layouts.
func (s *Sequence) Rerecord() error {
	if err := s.End(); err != nil {
		return err
	}
	ops := s.ops
	s.ops = nil
	for _, op := range ops {
		s.Record(op)
	}
	return s.err
}

// Clear drops the recorded operations and any latched error, leaving the
// sequence ready for a new recording.
func (s *Sequence) Clear() {
	if s.recording {
		if err := s.End(); err != nil {
			s.log.Warn("ending recording during clear", "error", err)
		}
	}
	s.ops = nil
	s.err = nil
}

// Timestamps reads back the device timestamps recorded around each
// operation. The sequence must have been created with timestamps enabled
// and evaluated at least once.
func (s *Sequence) Timestamps() ([]uint64, error) {
	if s.queryPool == vk.NullQueryPool {
		return nil, errors.New("sequence was created without timestamps")
	}
	if s.timestampCount == 0 {
		return nil, nil
	}

	out := make([]uint64, s.timestampCount)
	err := vk.Error(vk.GetQueryPoolResults(
		s.device.VKDevice, s.queryPool,
		0, s.timestampCount,
		uint(len(out)*8), unsafe.Pointer(&out[0]), vk.DeviceSize(8),
		vk.QueryResultFlags(vk.QueryResult64Bit|vk.QueryResultWaitBit)))
	if err != nil {
		return nil, errors.Wrap(err, "vkGetQueryPoolResults")
	}
	return out, nil
}

// IsRecording reports whether the command buffer is open for recording.
func (s *Sequence) IsRecording() bool { return s.recording }

// Running reports whether a submission is in flight.
func (s *Sequence) Running() bool { return s.running }

// IsInit reports whether the sequence's device objects are live.
func (s *Sequence) IsInit() bool {
	return s.device != nil && s.pool != nil && s.cb != nil
}

// Destroy releases the owned Vulkan objects. Safe to call more than
// once.
func (s *Sequence) Destroy() {
	if s.device == nil {
		if s.log == nil {
			s.log = discardLogger()
		}
		s.log.Debug("sequence destroy called with no device reference")
		return
	}

	s.log.Debug("destroying sequence")

	if s.queryPool != vk.NullQueryPool {
		vk.DestroyQueryPool(s.device.VKDevice, s.queryPool, nil)
		s.queryPool = vk.NullQueryPool
	}
	if s.fence != nil {
		s.fence.Destroy()
		s.fence = nil
	}
	if s.cb != nil && s.pool != nil {
		s.pool.FreeBuffer(s.cb)
		s.cb = nil
	}
	if s.pool != nil {
		s.pool.Destroy()
		s.pool = nil
	}

	s.ops = nil
	s.device = nil
}
