package kompute

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Op is a unit of work a Sequence records into its command buffer. Record
// appends the device-side commands; PreEval runs on the host just before
// submission and PostEval after the submission's fence signals.
type Op interface {
	Record(rec Recorder) error
	PreEval() error
	PostEval() error
}

// OpSyncDevice copies staged host writes into the primary allocation of
// every device-resident resource in the list. Resources whose residency
// keeps the primary allocation host visible need no device work and are
// skipped.
type OpSyncDevice struct {
	mems []Memory
}

func NewOpSyncDevice(mems []Memory) (*OpSyncDevice, error) {
	if len(mems) == 0 {
		return nil, errors.Wrap(ErrEmptyOperands, "creating sync-device operation")
	}
	return &OpSyncDevice{mems: mems}, nil
}

func (o *OpSyncDevice) Record(rec Recorder) error {
	for _, m := range o.mems {
		if m.MemoryType() != MemoryTypeDevice {
			continue
		}
		if err := m.RecordCopyFromStagingToDevice(rec); err != nil {
			return err
		}
	}
	return nil
}

func (o *OpSyncDevice) PreEval() error  { return nil }
func (o *OpSyncDevice) PostEval() error { return nil }

// OpSyncLocal copies primary contents back into the staging allocation of
// every device-resident resource in the list, so the host sees results
// once the submission completes.
type OpSyncLocal struct {
	mems []Memory
}

func NewOpSyncLocal(mems []Memory) (*OpSyncLocal, error) {
	if len(mems) == 0 {
		return nil, errors.Wrap(ErrEmptyOperands, "creating sync-local operation")
	}
	return &OpSyncLocal{mems: mems}, nil
}

func (o *OpSyncLocal) Record(rec Recorder) error {
	for _, m := range o.mems {
		if m.MemoryType() != MemoryTypeDevice {
			continue
		}
		if err := m.RecordCopyFromDeviceToStaging(rec); err != nil {
			return err
		}
	}
	return nil
}

func (o *OpSyncLocal) PreEval() error  { return nil }
func (o *OpSyncLocal) PostEval() error { return nil }

// OpCopy copies the primary contents of one source resource into one or
// more destinations. After the submission completes, the source's
// host-visible bytes are also mirrored into every host-visible
// destination, so host copies stay consistent without a sync-local pass.
type OpCopy struct {
	src  Memory
	dsts []Memory
}

func NewOpCopy(src Memory, dsts []Memory) (*OpCopy, error) {
	if src == nil || len(dsts) == 0 {
		return nil, errors.Wrap(ErrEmptyOperands, "creating copy operation")
	}
	for _, dst := range dsts {
		if dst.MemorySize() != src.MemorySize() {
			return nil, errors.Wrapf(ErrSizeMismatch, "copy source is %d bytes, destination %d", src.MemorySize(), dst.MemorySize())
		}
	}
	return &OpCopy{src: src, dsts: dsts}, nil
}

func (o *OpCopy) Record(rec Recorder) error {
	for _, dst := range o.dsts {
		if err := dst.RecordCopyFrom(rec, o.src); err != nil {
			return err
		}
	}
	return nil
}

func (o *OpCopy) PreEval() error { return nil }

func (o *OpCopy) PostEval() error {
	if o.src.MemoryType() == MemoryTypeStorage {
		return nil
	}
	data, err := o.src.RawData()
	if err != nil {
		return err
	}
	for _, dst := range o.dsts {
		if dst.MemoryType() == MemoryTypeStorage {
			continue
		}
		if err := dst.SetRawData(data); err != nil {
			return err
		}
	}
	return nil
}

// OpAlgoDispatch dispatches an algorithm: a barrier moves every bound
// resource from transfer writes to shader reads, then the pipeline,
// descriptor set and push constants are bound and the workgroups
// dispatched.
type OpAlgoDispatch struct {
	algorithm  *Algorithm
	pushConsts []float32
}

func NewOpAlgoDispatch(algorithm *Algorithm) (*OpAlgoDispatch, error) {
	if algorithm == nil {
		return nil, errors.Wrap(ErrEmptyOperands, "creating algorithm-dispatch operation")
	}
	return &OpAlgoDispatch{algorithm: algorithm}, nil
}

// NewOpAlgoDispatchWithPush overrides the algorithm's push constants for
// this dispatch. The count must match the algorithm's.
func NewOpAlgoDispatchWithPush(algorithm *Algorithm, pushConsts []float32) (*OpAlgoDispatch, error) {
	op, err := NewOpAlgoDispatch(algorithm)
	if err != nil {
		return nil, err
	}
	op.pushConsts = pushConsts
	return op, nil
}

func (o *OpAlgoDispatch) Record(rec Recorder) error {
	if o.pushConsts != nil {
		if err := o.algorithm.SetPushConstants(o.pushConsts); err != nil {
			return err
		}
	}

	for _, m := range o.algorithm.Memories() {
		m.RecordPrimaryMemoryBarrier(rec,
			vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit))
	}

	o.algorithm.RecordBindCore(rec)
	o.algorithm.RecordBindPush(rec)
	o.algorithm.RecordDispatch(rec)
	return nil
}

func (o *OpAlgoDispatch) PreEval() error  { return nil }
func (o *OpAlgoDispatch) PostEval() error { return nil }

// OpMemoryBarrier records a barrier with explicit access and stage masks
// across a set of resources, against either their primary or their
// staging allocations.
type OpMemoryBarrier struct {
	mems      []Memory
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
	primary   bool
}

func NewOpMemoryBarrier(mems []Memory, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, primary bool) (*OpMemoryBarrier, error) {
	if len(mems) == 0 {
		return nil, errors.Wrap(ErrEmptyOperands, "creating memory-barrier operation")
	}
	return &OpMemoryBarrier{
		mems:      mems,
		srcAccess: srcAccess,
		dstAccess: dstAccess,
		srcStage:  srcStage,
		dstStage:  dstStage,
		primary:   primary,
	}, nil
}

func (o *OpMemoryBarrier) Record(rec Recorder) error {
	for _, m := range o.mems {
		if o.primary {
			m.RecordPrimaryMemoryBarrier(rec, o.srcAccess, o.dstAccess, o.srcStage, o.dstStage)
		} else {
			m.RecordStagingMemoryBarrier(rec, o.srcAccess, o.dstAccess, o.srcStage, o.dstStage)
		}
	}
	return nil
}

func (o *OpMemoryBarrier) PreEval() error  { return nil }
func (o *OpMemoryBarrier) PostEval() error { return nil }

// MustOp panics when an operation constructor returned an error. It
// keeps Record chains readable when the operands are known to be valid.
func MustOp[O Op](op O, err error) O {
	if err != nil {
		panic(err)
	}
	return op
}
