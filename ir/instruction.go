package ir

// Instruction represents one SSA instruction in a function arena.
type Instruction struct {
	Kind InstructionKind

	// Def describes the produced value. Components is zero for
	// instructions without a result (stores).
	Def ValueType

	// Block is the index of the block the instruction was placed in.
	Block int

	// Removed is set once the instruction has been unlinked from its block.
	Removed bool
}

// ValueType is the shape of an SSA value.
type ValueType struct {
	Components uint8
	BitSize    uint8
}

// Common value shapes.
var (
	NoResult = ValueType{}
	Uint32   = ValueType{Components: 1, BitSize: 32}
	Uint64   = ValueType{Components: 1, BitSize: 64}
)

// HasResult reports whether the instruction defines a value.
func (t ValueType) HasResult() bool { return t.Components != 0 }

// InstructionKind represents the different kinds of instructions.
type InstructionKind interface {
	instructionKind()
	operands() []*ValueHandle
}

// Const is an immediate integer constant.
type Const struct {
	Value uint64
}

func (*Const) instructionKind()         {}
func (*Const) operands() []*ValueHandle { return nil }

// ALU applies an integer operation to its arguments.
type ALU struct {
	Op   ALUOp
	Args []ValueHandle
}

func (*ALU) instructionKind() {}

func (a *ALU) operands() []*ValueHandle {
	ops := make([]*ValueHandle, len(a.Args))
	for i := range a.Args {
		ops[i] = &a.Args[i]
	}
	return ops
}

// ALUOp represents integer ALU operations.
type ALUOp uint8

const (
	ALUIAdd ALUOp = iota // Wrapping addition
	ALUIMul              // Wrapping multiplication
	ALUU2U32             // Zero-extend or truncate to 32 bits
	ALUU2U64             // Zero-extend or truncate to 64 bits
	ALUI2I64             // Sign-extend to 64 bits
	ALUUBitfieldExtract  // (value, offset, bits) unsigned bitfield extract
)

var aluOpNames = [...]string{
	ALUIAdd:             "iadd",
	ALUIMul:             "imul",
	ALUU2U32:            "u2u32",
	ALUU2U64:            "u2u64",
	ALUI2I64:            "i2i64",
	ALUUBitfieldExtract: "ubitfield_extract",
}

func (op ALUOp) String() string {
	if int(op) < len(aluOpNames) {
		return aluOpNames[op]
	}
	return "alu?"
}

// Deref is one step of a dereference chain.
type Deref struct {
	DerefType DerefType
	Mode      VariableMode

	// Type is the type of the object the deref points at.
	Type TypeHandle

	// Var is the root variable for DerefVar.
	Var VariableHandle

	// Parent is the parent deref for array, ptr-as-array and struct
	// derefs, or the value being reinterpreted for casts.
	Parent ValueHandle

	// Index is the dynamic element index for array and ptr-as-array derefs.
	Index ValueHandle

	// Field is the member index for struct derefs.
	Field uint32

	// PtrStride is the element stride applied by ptr-as-array derefs
	// rooted at this cast.
	PtrStride uint32

	// AlignMul and AlignOffset describe the known alignment of a cast.
	AlignMul    uint32
	AlignOffset uint32
}

func (*Deref) instructionKind() {}

func (d *Deref) operands() []*ValueHandle {
	switch d.DerefType {
	case DerefVar:
		return nil
	case DerefArray, DerefPtrAsArray:
		return []*ValueHandle{&d.Parent, &d.Index}
	default:
		return []*ValueHandle{&d.Parent}
	}
}

// DerefType represents the kind of a deref step.
type DerefType uint8

const (
	DerefVar        DerefType = iota // Root variable
	DerefArray                       // Element of an array
	DerefPtrAsArray                  // Pointer arithmetic on a cast
	DerefStruct                      // Struct member
	DerefCast                        // Reinterpretation of an arbitrary value
)

var derefTypeNames = [...]string{
	DerefVar:        "var",
	DerefArray:      "array",
	DerefPtrAsArray: "ptr_as_array",
	DerefStruct:     "struct",
	DerefCast:       "cast",
}

func (t DerefType) String() string {
	if int(t) < len(derefTypeNames) {
		return derefTypeNames[t]
	}
	return "deref?"
}

// Intrinsic is a named operation with side effects or special semantics.
type Intrinsic struct {
	Op   IntrinsicOp
	Srcs []ValueHandle

	// Base and Range bound push constant loads in bytes.
	Base  uint32
	Range uint32

	// Set and Binding identify the resource of a resource index.
	Set     uint32
	Binding uint32

	// ResourceKind is the resource class of resource indices, buffer
	// pointer loads and descriptor loads.
	ResourceKind ResourceKind

	// Atomic is the operation of atomic intrinsics.
	Atomic AtomicOp

	// AlignMul and AlignOffset describe the known alignment of memory
	// accesses.
	AlignMul    uint32
	AlignOffset uint32

	// Image describes the accessed image for heap image intrinsics.
	Image ImageInfo
}

func (*Intrinsic) instructionKind() {}

func (in *Intrinsic) operands() []*ValueHandle {
	ops := make([]*ValueHandle, len(in.Srcs))
	for i := range in.Srcs {
		ops[i] = &in.Srcs[i]
	}
	return ops
}

// ImageInfo records the image shape once an intrinsic no longer has a
// typed deref operand.
type ImageInfo struct {
	Dim     ImageDimension
	Arrayed bool
	Format  uint32
}

// AtomicOp represents atomic operations.
type AtomicOp uint8

const (
	AtomicAdd AtomicOp = iota
	AtomicIMin
	AtomicUMin
	AtomicIMax
	AtomicUMax
	AtomicAnd
	AtomicOr
	AtomicXor
	AtomicExchange
	AtomicCompareExchange
)

// Tex is a texture sampling or query instruction.
type Tex struct {
	Op   TexOp
	Srcs []TexSrc

	// EmbeddedSampler is set when the sampler is baked into the program;
	// SamplerIndex then indexes the embedded sampler table.
	EmbeddedSampler bool
	SamplerIndex    uint32
}

func (*Tex) instructionKind() {}

func (t *Tex) operands() []*ValueHandle {
	ops := make([]*ValueHandle, len(t.Srcs))
	for i := range t.Srcs {
		ops[i] = &t.Srcs[i].Value
	}
	return ops
}

// TexSrc is a typed texture operand.
type TexSrc struct {
	Kind  TexSrcKind
	Value ValueHandle
}

// TexSrcKind is the role of a texture operand.
type TexSrcKind uint8

const (
	TexSrcCoord TexSrcKind = iota
	TexSrcTextureDeref
	TexSrcSamplerDeref
	TexSrcTextureHeapOffset
	TexSrcSamplerHeapOffset
	TexSrcLod
	TexSrcBias
	TexSrcComparator
	TexSrcOffset
	TexSrcDdx
	TexSrcDdy
	TexSrcSampleIndex
)

var texSrcNames = [...]string{
	TexSrcCoord:             "coord",
	TexSrcTextureDeref:      "texture_deref",
	TexSrcSamplerDeref:      "sampler_deref",
	TexSrcTextureHeapOffset: "texture_heap_offset",
	TexSrcSamplerHeapOffset: "sampler_heap_offset",
	TexSrcLod:               "lod",
	TexSrcBias:              "bias",
	TexSrcComparator:        "comparator",
	TexSrcOffset:            "offset",
	TexSrcDdx:               "ddx",
	TexSrcDdy:               "ddy",
	TexSrcSampleIndex:       "ms_index",
}

func (k TexSrcKind) String() string {
	if int(k) < len(texSrcNames) {
		return texSrcNames[k]
	}
	return "src?"
}

// TexOp is the texture operation.
type TexOp uint8

const (
	TexSample           TexOp = iota // Implicit LOD sample
	TexSampleBias                    // Sample with LOD bias
	TexSampleLod                     // Sample at explicit LOD
	TexSampleGrad                    // Sample with explicit gradients
	TexFetch                         // Texel fetch
	TexFetchMS                       // Multisample texel fetch
	TexSize                          // Size query
	TexQueryLod                      // LOD query
	TexGather                        // Four-texel gather
	TexQueryLevels                   // Mip level count
	TexSamples                       // Sample count
	TexSamplesIdentical              // Multisample identity query
)

var texOpNames = [...]string{
	TexSample:           "tex",
	TexSampleBias:       "txb",
	TexSampleLod:        "txl",
	TexSampleGrad:       "txd",
	TexFetch:            "txf",
	TexFetchMS:          "txf_ms",
	TexSize:             "txs",
	TexQueryLod:         "lod",
	TexGather:           "tg4",
	TexQueryLevels:      "query_levels",
	TexSamples:          "texture_samples",
	TexSamplesIdentical: "samples_identical",
}

func (op TexOp) String() string {
	if int(op) < len(texOpNames) {
		return texOpNames[op]
	}
	return "tex?"
}

// NeedsSampler reports whether the operation reads sampler state.
func (t *Tex) NeedsSampler() bool {
	switch t.Op {
	case TexFetch, TexFetchMS, TexSize, TexQueryLevels, TexSamples, TexSamplesIdentical:
		return false
	default:
		return true
	}
}

// SrcIndex returns the index of the first operand of the given kind, or -1.
func (t *Tex) SrcIndex(kind TexSrcKind) int {
	for i, src := range t.Srcs {
		if src.Kind == kind {
			return i
		}
	}
	return -1
}

// RemoveSrc deletes the operand at index i.
func (t *Tex) RemoveSrc(i int) {
	t.Srcs = append(t.Srcs[:i], t.Srcs[i+1:]...)
}

// AddSrc appends an operand.
func (t *Tex) AddSrc(kind TexSrcKind, v ValueHandle) {
	t.Srcs = append(t.Srcs, TexSrc{Kind: kind, Value: v})
}
