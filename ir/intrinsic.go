package ir

// IntrinsicOp identifies an intrinsic operation.
type IntrinsicOp uint16

const (
	// Deref based memory access
	OpLoadDeref IntrinsicOp = iota
	OpStoreDeref
	OpLoadDerefBlock
	OpStoreDerefBlock
	OpDerefAtomic
	OpDerefAtomicSwap

	// Image access through an image deref
	OpImageDerefLoad
	OpImageDerefSparseLoad
	OpImageDerefStore
	OpImageDerefAtomic
	OpImageDerefAtomicSwap
	OpImageDerefSize
	OpImageDerefSamples
	OpImageDerefLoadRaw
	OpImageDerefStoreRaw
	OpImageDerefFragmentMaskLoad
	OpImageDerefStoreBlock

	// Image access through a descriptor heap offset
	OpImageHeapLoad
	OpImageHeapSparseLoad
	OpImageHeapStore
	OpImageHeapAtomic
	OpImageHeapAtomicSwap
	OpImageHeapSize
	OpImageHeapSamples
	OpImageHeapLoadRaw
	OpImageHeapStoreRaw
	OpImageHeapFragmentMaskLoad
	OpImageHeapStoreBlock

	// Descriptor and buffer resource indexing
	OpLoadBufferPtrDeref
	OpLoadVulkanDescriptor
	OpVulkanResourceIndex
	OpVulkanResourceReindex

	// System values
	OpLoadResourceHeapPtr
	OpLoadSamplerHeapPtr
	OpLoadShaderRecordPtr

	// Explicit memory access
	OpLoadPushConstant
	OpLoadGlobalConstant
	OpLoadGlobal
	OpStoreGlobal
	OpLoadGlobalBlock
	OpStoreGlobalBlock
	OpGlobalAtomic
	OpGlobalAtomicSwap

	// Descriptor heap access
	OpLoadHeapDescriptor
	OpGlobalAddrToDescriptor
	OpLoadResourceHeapData
	OpInternalResourceHeapOffset

	opCount
)

// IntrinsicFlags classifies intrinsics.
type IntrinsicFlags uint8

const (
	// FlagDerefAccess marks loads, stores and atomics whose first operand
	// is a deref.
	FlagDerefAccess IntrinsicFlags = 1 << iota
	// FlagImageDeref marks image intrinsics whose first operand is an
	// image deref.
	FlagImageDeref
	// FlagImageHeap marks image intrinsics whose first operand is a heap
	// offset.
	FlagImageHeap
)

// IntrinsicInfo is static metadata about an intrinsic.
type IntrinsicInfo struct {
	Name    string
	NumSrcs int
	Flags   IntrinsicFlags
}

var intrinsicInfos = [opCount]IntrinsicInfo{
	OpLoadDeref:       {"load_deref", 1, FlagDerefAccess},
	OpStoreDeref:      {"store_deref", 2, FlagDerefAccess},
	OpLoadDerefBlock:  {"load_deref_block", 1, FlagDerefAccess},
	OpStoreDerefBlock: {"store_deref_block", 2, FlagDerefAccess},
	OpDerefAtomic:     {"deref_atomic", 2, FlagDerefAccess},
	OpDerefAtomicSwap: {"deref_atomic_swap", 3, FlagDerefAccess},

	OpImageDerefLoad:             {"image_deref_load", -1, FlagImageDeref},
	OpImageDerefSparseLoad:       {"image_deref_sparse_load", -1, FlagImageDeref},
	OpImageDerefStore:            {"image_deref_store", -1, FlagImageDeref},
	OpImageDerefAtomic:           {"image_deref_atomic", -1, FlagImageDeref},
	OpImageDerefAtomicSwap:       {"image_deref_atomic_swap", -1, FlagImageDeref},
	OpImageDerefSize:             {"image_deref_size", -1, FlagImageDeref},
	OpImageDerefSamples:          {"image_deref_samples", 1, FlagImageDeref},
	OpImageDerefLoadRaw:          {"image_deref_load_raw", -1, FlagImageDeref},
	OpImageDerefStoreRaw:         {"image_deref_store_raw", -1, FlagImageDeref},
	OpImageDerefFragmentMaskLoad: {"image_deref_fragment_mask_load", -1, FlagImageDeref},
	OpImageDerefStoreBlock:       {"image_deref_store_block", -1, FlagImageDeref},

	OpImageHeapLoad:             {"image_heap_load", -1, FlagImageHeap},
	OpImageHeapSparseLoad:       {"image_heap_sparse_load", -1, FlagImageHeap},
	OpImageHeapStore:            {"image_heap_store", -1, FlagImageHeap},
	OpImageHeapAtomic:           {"image_heap_atomic", -1, FlagImageHeap},
	OpImageHeapAtomicSwap:       {"image_heap_atomic_swap", -1, FlagImageHeap},
	OpImageHeapSize:             {"image_heap_size", -1, FlagImageHeap},
	OpImageHeapSamples:          {"image_heap_samples", 1, FlagImageHeap},
	OpImageHeapLoadRaw:          {"image_heap_load_raw", -1, FlagImageHeap},
	OpImageHeapStoreRaw:         {"image_heap_store_raw", -1, FlagImageHeap},
	OpImageHeapFragmentMaskLoad: {"image_heap_fragment_mask_load", -1, FlagImageHeap},
	OpImageHeapStoreBlock:       {"image_heap_store_block", -1, FlagImageHeap},

	OpLoadBufferPtrDeref:    {"load_buffer_ptr_deref", 1, 0},
	OpLoadVulkanDescriptor:  {"load_vulkan_descriptor", 1, 0},
	OpVulkanResourceIndex:   {"vulkan_resource_index", 1, 0},
	OpVulkanResourceReindex: {"vulkan_resource_reindex", 2, 0},

	OpLoadResourceHeapPtr: {"load_resource_heap_ptr", 0, 0},
	OpLoadSamplerHeapPtr:  {"load_sampler_heap_ptr", 0, 0},
	OpLoadShaderRecordPtr: {"load_shader_record_ptr", 0, 0},

	OpLoadPushConstant:   {"load_push_constant", 1, 0},
	OpLoadGlobalConstant: {"load_global_constant", 1, 0},
	OpLoadGlobal:         {"load_global", 1, 0},
	OpStoreGlobal:        {"store_global", 2, 0},
	OpLoadGlobalBlock:    {"load_global_block", 1, 0},
	OpStoreGlobalBlock:   {"store_global_block", 2, 0},
	OpGlobalAtomic:       {"global_atomic", 2, 0},
	OpGlobalAtomicSwap:   {"global_atomic_swap", 3, 0},

	OpLoadHeapDescriptor:         {"load_heap_descriptor", 1, 0},
	OpGlobalAddrToDescriptor:     {"global_addr_to_descriptor", 1, 0},
	OpLoadResourceHeapData:       {"load_resource_heap_data", 1, 0},
	OpInternalResourceHeapOffset: {"internal_resource_heap_offset", 1, 0},
}

// Info returns the static metadata of op.
func (op IntrinsicOp) Info() IntrinsicInfo {
	if op >= opCount {
		return IntrinsicInfo{Name: "intrinsic?", NumSrcs: -1}
	}
	return intrinsicInfos[op]
}

func (op IntrinsicOp) String() string {
	return op.Info().Name
}

// Is reports whether op carries all of the given flags.
func (op IntrinsicOp) Is(flags IntrinsicFlags) bool {
	return op.Info().Flags&flags == flags
}

// IntrinsicOps returns every defined intrinsic.
func IntrinsicOps() []IntrinsicOp {
	ops := make([]IntrinsicOp, 0, opCount)
	for op := IntrinsicOp(0); op < opCount; op++ {
		ops = append(ops, op)
	}
	return ops
}
