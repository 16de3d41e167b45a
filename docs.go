/*
Package kompute is a Vulkan compute toolkit for Go built around managed
GPU resources. Vulkan is a very powerful compute framework, but it is
also very explicit: memory residency, image layouts, pipeline barriers
and synchronization are all the application's problem. This package
takes on the resource management part so that compute work can be
expressed as data plus kernels plus operation sequences, while still
exposing the native Vulkan objects for anything it does not cover.

# Resources

All GPU data implements the Memory interface and comes in three shapes:

	Tensor   a flat buffer of elements, bound to shaders as a storage buffer
	Image    a 2D image, bound to shaders as a storage image
	Texture  a 2D image with a sampler, bound as a combined image sampler

Each resource is created with a residency class which decides where its
bytes live and how they travel:

	MemoryTypeDevice         device-local primary plus a host-visible staging
	                         resource, data moves through explicit sync ops
	MemoryTypeHost           host-visible primary, no staging
	MemoryTypeDeviceAndHost  device-local and host-visible primary, no staging
	MemoryTypeStorage        device-local scratch with no host access at all

Host-visible allocations stay mapped for their whole lifetime, so
reading and writing host data is just a copy. Device-local resources
move data with OpSyncDevice and OpSyncLocal recorded into a sequence.

Images track the layout of every allocation they own and advance it as
transitions are recorded, so consecutive operations see the layout the
previous recorded operation left behind. Transitions are recorded even
when the layout does not change, which keeps the execution and memory
dependencies of the barrier.

The typed wrappers TypedTensor, TypedImage and TypedTexture fix the
element type at construction and move host data as typed slices.

# Orchestration

A Manager owns the instance, device and queue setup and acts as the
factory for everything else. An Algorithm is a compiled SPIR-V compute
kernel together with its descriptor machinery. A Sequence records
operations into a command buffer and submits them:

	mgr, err := kompute.NewManager(kompute.ManagerOptions{})
	...
	defer mgr.Destroy()

	tensor, err := kompute.CreateTypedTensor(mgr, []float32{1, 2, 3, 4}, kompute.TensorOptions{})
	...
	algo, err := mgr.CreateAlgorithm([]kompute.Memory{tensor}, spirv, kompute.AlgorithmOptions{})
	...
	seq, err := mgr.CreateSequence()
	...
	err = seq.
		Record(kompute.MustOp(kompute.NewOpSyncDevice([]kompute.Memory{tensor}))).
		Record(kompute.MustOp(kompute.NewOpAlgoDispatch(algo))).
		Record(kompute.MustOp(kompute.NewOpSyncLocal([]kompute.Memory{tensor}))).
		Eval()
	...
	result := tensor.Vector()

Record latches the first error and Eval reports it, so chains stay
readable without per-call checks.

Every wrapper exposes its native Vulkan objects through fields prefixed
with VK, so applications are not limited by what this package provides.
*/
package kompute
