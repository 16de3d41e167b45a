package kompute

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestOpConstructorsRequireOperands(t *testing.T) {
	if _, err := NewOpSyncDevice(nil); !errors.Is(err, ErrEmptyOperands) {
		t.Errorf("NewOpSyncDevice(nil) = %v, want ErrEmptyOperands", err)
	}
	if _, err := NewOpSyncLocal(nil); !errors.Is(err, ErrEmptyOperands) {
		t.Errorf("NewOpSyncLocal(nil) = %v, want ErrEmptyOperands", err)
	}
	if _, err := NewOpCopy(nil, []Memory{testTensor(MemoryTypeDevice, 4, DataTypeUInt8)}); !errors.Is(err, ErrEmptyOperands) {
		t.Errorf("NewOpCopy without source = %v, want ErrEmptyOperands", err)
	}
	if _, err := NewOpCopy(testTensor(MemoryTypeDevice, 4, DataTypeUInt8), nil); !errors.Is(err, ErrEmptyOperands) {
		t.Errorf("NewOpCopy without destinations = %v, want ErrEmptyOperands", err)
	}
	if _, err := NewOpAlgoDispatch(nil); !errors.Is(err, ErrEmptyOperands) {
		t.Errorf("NewOpAlgoDispatch(nil) = %v, want ErrEmptyOperands", err)
	}
	if _, err := NewOpMemoryBarrier(nil, 0, 0, 0, 0, true); !errors.Is(err, ErrEmptyOperands) {
		t.Errorf("NewOpMemoryBarrier(nil) = %v, want ErrEmptyOperands", err)
	}
}

func TestOpSyncDeviceSkipsNonDeviceResidency(t *testing.T) {
	rec := &recorderStub{}
	op, err := NewOpSyncDevice([]Memory{
		testTensor(MemoryTypeDevice, 16, DataTypeUInt8),
		testTensor(MemoryTypeHost, 16, DataTypeUInt8),
		testTensor(MemoryTypeStorage, 16, DataTypeUInt8),
		testStorageImage(MemoryTypeDevice),
	})
	if err != nil {
		t.Fatalf("NewOpSyncDevice: %v", err)
	}
	if err := op.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// One buffer copy for the device tensor, barriers plus an image copy
	// for the device image, nothing for host or storage residency.
	want := []string{"copyBuffer", "imageBarrier", "imageBarrier", "copyImage"}
	if len(rec.calls) != len(want) {
		t.Fatalf("recorded calls %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("recorded calls %v, want %v", rec.calls, want)
		}
	}
}

func TestOpSyncLocalSkipsNonDeviceResidency(t *testing.T) {
	rec := &recorderStub{}
	op, err := NewOpSyncLocal([]Memory{
		testTensor(MemoryTypeHost, 16, DataTypeUInt8),
		testTensor(MemoryTypeDevice, 16, DataTypeUInt8),
		testTensor(MemoryTypeStorage, 16, DataTypeUInt8),
	})
	if err != nil {
		t.Fatalf("NewOpSyncLocal: %v", err)
	}
	if err := op.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "copyBuffer" {
		t.Errorf("recorded calls %v, want a single buffer copy", rec.calls)
	}
}

func TestOpCopySizeMismatchAtConstruction(t *testing.T) {
	src := testTensor(MemoryTypeDevice, 64, DataTypeUInt8)
	dst := testTensor(MemoryTypeDevice, 32, DataTypeUInt8)

	if _, err := NewOpCopy(src, []Memory{dst}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("NewOpCopy with mismatched sizes = %v, want ErrSizeMismatch", err)
	}
}

func TestOpCopyRecordsPerDestination(t *testing.T) {
	rec := &recorderStub{}
	src := testTensor(MemoryTypeDevice, 64, DataTypeUInt8)
	dstTensor := testTensor(MemoryTypeDevice, 64, DataTypeUInt8)
	dstImage := testStorageImage(MemoryTypeDevice)

	op, err := NewOpCopy(src, []Memory{dstTensor, dstImage})
	if err != nil {
		t.Fatalf("NewOpCopy: %v", err)
	}
	if err := op.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	want := []string{"copyBuffer", "imageBarrier", "copyBufferToImage"}
	if len(rec.calls) != len(want) {
		t.Fatalf("recorded calls %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("recorded calls %v, want %v", rec.calls, want)
		}
	}
}

func testAlgorithm(mems []Memory, pushConsts []float32, workgroup Workgroup) *Algorithm {
	return &Algorithm{
		log:            discardLogger(),
		memObjects:     mems,
		pipeline:       &ComputePipeline{},
		pipelineLayout: &PipelineLayout{},
		descriptorSet:  &DescriptorSet{},
		workgroup:      workgroup,
		pushConsts:     pushConsts,
	}
}

func TestOpAlgoDispatchRecordOrder(t *testing.T) {
	rec := &recorderStub{}
	img := testStorageImage(MemoryTypeDevice)
	algo := testAlgorithm([]Memory{img}, []float32{1, 2}, Workgroup{4, 4, 1})

	op, err := NewOpAlgoDispatch(algo)
	if err != nil {
		t.Fatalf("NewOpAlgoDispatch: %v", err)
	}
	if err := op.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	want := []string{"imageBarrier", "bindPipeline", "bindDescriptorSet", "pushConstants", "dispatch"}
	if len(rec.calls) != len(want) {
		t.Fatalf("recorded calls %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("recorded calls %v, want %v", rec.calls, want)
		}
	}

	b := rec.imageBarriers[0]
	if b.srcAccess != vk.AccessFlags(vk.AccessTransferWriteBit) || b.dstAccess != vk.AccessFlags(vk.AccessShaderReadBit) {
		t.Errorf("pre-dispatch access = %d -> %d, want transfer write -> shader read", b.srcAccess, b.dstAccess)
	}
	if b.srcStage != vk.PipelineStageFlags(vk.PipelineStageTransferBit) || b.dstStage != vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit) {
		t.Errorf("pre-dispatch stages = %d -> %d, want transfer -> compute", b.srcStage, b.dstStage)
	}
	if b.newLayout != vk.ImageLayoutGeneral {
		t.Errorf("pre-dispatch layout = %d, want general", b.newLayout)
	}

	if rec.dispatches[0] != [3]uint32{4, 4, 1} {
		t.Errorf("dispatch = %v, want [4 4 1]", rec.dispatches[0])
	}
}

func TestOpAlgoDispatchWithoutPushConstants(t *testing.T) {
	rec := &recorderStub{}
	tensor := testTensor(MemoryTypeDevice, 16, DataTypeFloat32)
	algo := testAlgorithm([]Memory{tensor}, nil, Workgroup{16, 1, 1})

	op, err := NewOpAlgoDispatch(algo)
	if err != nil {
		t.Fatalf("NewOpAlgoDispatch: %v", err)
	}
	if err := op.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(rec.pushData) != 0 {
		t.Errorf("recorded %d push constant uploads, want 0", len(rec.pushData))
	}
}

func TestOpAlgoDispatchPushOverride(t *testing.T) {
	tensor := testTensor(MemoryTypeDevice, 16, DataTypeFloat32)
	algo := testAlgorithm([]Memory{tensor}, []float32{0, 0}, Workgroup{16, 1, 1})

	op, err := NewOpAlgoDispatchWithPush(algo, []float32{3})
	if err != nil {
		t.Fatalf("NewOpAlgoDispatchWithPush: %v", err)
	}
	if err := op.Record(&recorderStub{}); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("dispatching 1 push constant into a 2 constant layout = %v, want ErrSizeMismatch", err)
	}

	rec := &recorderStub{}
	op, err = NewOpAlgoDispatchWithPush(algo, []float32{3, 4})
	if err != nil {
		t.Fatalf("NewOpAlgoDispatchWithPush: %v", err)
	}
	if err := op.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(rec.pushData) != 1 {
		t.Fatalf("recorded %d push constant uploads, want 1", len(rec.pushData))
	}
	have := scalarSlice[float32](rec.pushData[0])
	if len(have) != 2 || have[0] != 3 || have[1] != 4 {
		t.Errorf("pushed constants = %v, want [3 4]", have)
	}
}

func TestOpMemoryBarrierTargetsAllocation(t *testing.T) {
	tensor := testTensor(MemoryTypeDevice, 16, DataTypeUInt8)

	rec := &recorderStub{}
	op, err := NewOpMemoryBarrier([]Memory{tensor},
		vk.AccessFlags(vk.AccessShaderWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		true)
	if err != nil {
		t.Fatalf("NewOpMemoryBarrier: %v", err)
	}
	if err := op.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(rec.bufferBarriers) != 1 {
		t.Fatalf("primary barrier recorded %d barriers, want 1", len(rec.bufferBarriers))
	}

	// The staging variant records nothing while the tensor has no staging
	// allocation.
	rec = &recorderStub{}
	op, err = NewOpMemoryBarrier([]Memory{tensor}, 0, 0, 0, 0, false)
	if err != nil {
		t.Fatalf("NewOpMemoryBarrier: %v", err)
	}
	if err := op.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(rec.bufferBarriers) != 0 {
		t.Errorf("staging barrier recorded %d barriers, want 0", len(rec.bufferBarriers))
	}
}

func TestMustOp(t *testing.T) {
	op := MustOp(NewOpSyncDevice([]Memory{testTensor(MemoryTypeDevice, 4, DataTypeUInt8)}))
	if op == nil {
		t.Fatal("MustOp returned nil for a valid operation")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustOp did not panic on a constructor error")
		}
	}()
	MustOp(NewOpSyncDevice(nil))
}
