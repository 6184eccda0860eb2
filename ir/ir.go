package ir

// Shader represents one shader in IR form.
type Shader struct {
	Name  string
	Stage ShaderStage

	// Types holds all type definitions
	Types []Type

	// Variables holds shader-scope variables (resources, system values)
	Variables []Variable

	// Functions holds all function bodies
	Functions []Function

	// Info holds shader-wide facts recorded by passes
	Info ShaderInfo
}

// ShaderInfo holds shader-wide facts consumed by later compilation stages.
type ShaderInfo struct {
	// UsesEmbeddedSamplers is set when any texture instruction samples
	// through an embedded (compile-time) sampler.
	UsesEmbeddedSamplers bool
}

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
	StageRayGen
	StageClosestHit
	StageAnyHit
	StageMiss
	StageIntersection
	StageCallable
)

// Handle types for referencing IR objects
type (
	TypeHandle     uint32
	VariableHandle uint32
	ValueHandle    uint32
)

// NoValue marks an absent operand.
const NoValue ValueHandle = ^ValueHandle(0)

// Valid reports whether h refers to a value.
func (h ValueHandle) Valid() bool { return h != NoValue }

// Type represents a type in the IR.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarUint                    // Unsigned integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean
)

// VectorType represents vector types.
type VectorType struct {
	Size   VectorSize
	Scalar ScalarType
}

func (VectorType) typeInner() {}

// VectorSize represents vector sizes.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

// MatrixType represents column-major matrix types.
type MatrixType struct {
	Columns VectorSize
	Rows    VectorSize
	Scalar  ScalarType
	Stride  uint32 // column stride in bytes
}

func (MatrixType) typeInner() {}

// ArrayType represents array types with an explicit element stride.
type ArrayType struct {
	Base   TypeHandle
	Size   ArraySize
	Stride uint32
}

func (ArrayType) typeInner() {}

// ArraySize represents array size.
type ArraySize struct {
	Constant *uint32 // nil for runtime-sized arrays
}

// StructType represents struct types with explicit member offsets.
type StructType struct {
	Members []StructMember
	Span    uint32 // Size in bytes
}

func (StructType) typeInner() {}

// StructMember represents a struct member.
type StructMember struct {
	Name   string
	Type   TypeHandle
	Offset uint32
}

// AtomicType represents atomic types for thread-safe operations.
type AtomicType struct {
	Scalar ScalarType
}

func (AtomicType) typeInner() {}

// SamplerType represents sampler types.
type SamplerType struct {
	Comparison bool
}

func (SamplerType) typeInner() {}

// ImageType represents image/texture types.
type ImageType struct {
	Dim          ImageDimension
	Arrayed      bool
	Class        ImageClass
	Multisampled bool
	Format       uint32 // storage format, 0 when unknown
}

func (ImageType) typeInner() {}

// ImageDimension represents image dimensions.
type ImageDimension uint8

const (
	Dim1D ImageDimension = iota
	Dim2D
	Dim3D
	DimCube
	DimBuffer
)

// ImageClass represents image classification.
type ImageClass uint8

const (
	ImageClassSampled ImageClass = iota
	ImageClassDepth
	ImageClassStorage
)

// AccelerationStructureType represents a ray tracing acceleration structure.
type AccelerationStructureType struct{}

func (AccelerationStructureType) typeInner() {}

// DescriptorType is the opaque value produced by descriptor loads.
type DescriptorType struct {
	Kind ResourceKind
}

func (DescriptorType) typeInner() {}

// VariableMode is the storage class of a variable or deref.
type VariableMode uint8

const (
	ModeFunction VariableMode = iota
	ModeUniform
	ModeImage
	ModeSystemValue
	ModeUBO
	ModeSSBO
	ModePushConstant
	ModeGlobal
)

// SystemValue identifies a builtin value carried by a system value variable.
type SystemValue uint8

const (
	SystemValueNone SystemValue = iota
	SystemValueResourceHeapPtr
	SystemValueSamplerHeapPtr
	SystemValueShaderRecordPtr
)

// Variable represents a shader-scope variable.
type Variable struct {
	Name string
	Mode VariableMode
	Type TypeHandle

	// Binding is the descriptor set and binding, or nil.
	Binding *ResourceBinding

	// ResourceKind is the resource class the variable was declared as.
	// Zero for variables that never go through a descriptor mapping.
	ResourceKind ResourceKind

	SystemValue SystemValue
}

// IsHeapPointer reports whether the variable is a resource or sampler heap
// base pointer.
func (v *Variable) IsHeapPointer() bool {
	if v.Mode != ModeUniform && v.Mode != ModeSystemValue {
		return false
	}
	return v.SystemValue == SystemValueResourceHeapPtr ||
		v.SystemValue == SystemValueSamplerHeapPtr
}

// ResourceBinding represents a resource binding.
type ResourceBinding struct {
	Set     uint32
	Binding uint32
}

// ResourceKind is a set of resource classes using the bitflags pattern.
// Variables and resource index instructions carry exactly one bit;
// mapping entries carry a mask.
type ResourceKind uint32

const (
	ResourceSampler ResourceKind = 1 << iota
	ResourceSampledImage
	ResourceReadOnlyImage
	ResourceReadWriteImage
	ResourceCombinedSampledImage
	ResourceUniformBuffer
	ResourceReadOnlyStorageBuffer
	ResourceReadWriteStorageBuffer
	ResourceAccelerationStructure
)

// ResourceAll covers every resource class.
const ResourceAll = ResourceSampler | ResourceSampledImage | ResourceReadOnlyImage |
	ResourceReadWriteImage | ResourceCombinedSampledImage | ResourceUniformBuffer |
	ResourceReadOnlyStorageBuffer | ResourceReadWriteStorageBuffer | ResourceAccelerationStructure

// Has reports whether every bit of k is set in m.
func (m ResourceKind) Has(k ResourceKind) bool {
	return k != 0 && m&k == k
}

// Single reports whether exactly one resource bit is set.
func (m ResourceKind) Single() bool {
	return m != 0 && m&(m-1) == 0
}

var resourceKindNames = [...]string{
	"sampler",
	"sampled_image",
	"read_only_image",
	"read_write_image",
	"combined_sampled_image",
	"uniform_buffer",
	"read_only_storage_buffer",
	"read_write_storage_buffer",
	"acceleration_structure",
}

// String returns the resource class name, or a '|' separated list for masks.
func (m ResourceKind) String() string {
	if m == 0 {
		return "none"
	}
	s := ""
	for i, name := range resourceKindNames {
		if m&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	if s == "" {
		return "unknown"
	}
	return s
}

// ParseResourceKind maps a resource class name back to its bit.
func ParseResourceKind(name string) (ResourceKind, bool) {
	for i, n := range resourceKindNames {
		if n == name {
			return ResourceKind(1) << i, true
		}
	}
	return 0, false
}

// Function represents a function body.
type Function struct {
	Name string

	// Instructions is the arena every ValueHandle indexes into.
	Instructions []Instruction

	// Blocks holds basic blocks in layout order. A value defined in block i
	// may be used in block i or any later block.
	Blocks []Block
}

// Block is an ordered list of instructions.
type Block struct {
	Instructions []ValueHandle
}
