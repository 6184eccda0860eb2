package ir

// Builder emits instructions into a function at a cursor.
//
// The cursor is either "append to block" or "insert before an anchor".
// Consecutive emissions before the same anchor appear in emission order,
// so a sequence of builder calls produces straight-line code ending right
// before the anchor.
type Builder struct {
	Shader *Shader
	Func   *Function

	block  int
	anchor ValueHandle
}

// NewBuilder creates a builder appending to the last block of fn,
// creating a block if fn has none.
func NewBuilder(shader *Shader, fn *Function) *Builder {
	if len(fn.Blocks) == 0 {
		fn.NewBlock()
	}
	return &Builder{Shader: shader, Func: fn, block: len(fn.Blocks) - 1, anchor: NoValue}
}

// SetAppend moves the cursor to the end of block.
func (b *Builder) SetAppend(block int) {
	b.block = block
	b.anchor = NoValue
}

// SetBefore moves the cursor immediately before h.
func (b *Builder) SetBefore(h ValueHandle) {
	b.anchor = h
}

// Emit places an instruction at the cursor.
func (b *Builder) Emit(kind InstructionKind, def ValueType) ValueHandle {
	if b.anchor.Valid() {
		return b.Func.InsertBefore(b.anchor, kind, def)
	}
	return b.Func.Append(b.block, kind, def)
}

// BitSize returns the bit size of the value h.
func (b *Builder) BitSize(h ValueHandle) uint8 {
	return b.Func.Instructions[h].Def.BitSize
}

// Imm emits an integer constant of the given bit size.
func (b *Builder) Imm(value uint64, bitSize uint8) ValueHandle {
	if bitSize == 32 {
		value &= 0xffffffff
	}
	return b.Emit(&Const{Value: value}, ValueType{Components: 1, BitSize: bitSize})
}

// Imm32 emits a 32-bit constant.
func (b *Builder) Imm32(value uint32) ValueHandle {
	return b.Imm(uint64(value), 32)
}

// Imm64 emits a 64-bit constant.
func (b *Builder) Imm64(value uint64) ValueHandle {
	return b.Imm(value, 64)
}

func (b *Builder) alu(op ALUOp, bitSize uint8, args ...ValueHandle) ValueHandle {
	return b.Emit(&ALU{Op: op, Args: args}, ValueType{Components: 1, BitSize: bitSize})
}

// IAdd emits x + y.
func (b *Builder) IAdd(x, y ValueHandle) ValueHandle {
	return b.alu(ALUIAdd, b.BitSize(x), x, y)
}

// IAddImm emits x + imm. Adding zero returns x unchanged.
func (b *Builder) IAddImm(x ValueHandle, imm uint64) ValueHandle {
	if imm == 0 {
		return x
	}
	return b.IAdd(x, b.Imm(imm, b.BitSize(x)))
}

// IMul emits x * y.
func (b *Builder) IMul(x, y ValueHandle) ValueHandle {
	return b.alu(ALUIMul, b.BitSize(x), x, y)
}

// IMulImm emits x * imm, folding multiplication by zero and one.
func (b *Builder) IMulImm(x ValueHandle, imm uint64) ValueHandle {
	switch imm {
	case 0:
		return b.Imm(0, b.BitSize(x))
	case 1:
		return x
	}
	return b.IMul(x, b.Imm(imm, b.BitSize(x)))
}

// U2U64 zero-extends x to 64 bits.
func (b *Builder) U2U64(x ValueHandle) ValueHandle {
	if b.BitSize(x) == 64 {
		return x
	}
	return b.alu(ALUU2U64, 64, x)
}

// I2I64 sign-extends x to 64 bits.
func (b *Builder) I2I64(x ValueHandle) ValueHandle {
	if b.BitSize(x) == 64 {
		return x
	}
	return b.alu(ALUI2I64, 64, x)
}

// U2U32 converts x to 32 bits.
func (b *Builder) U2U32(x ValueHandle) ValueHandle {
	if b.BitSize(x) == 32 {
		return x
	}
	return b.alu(ALUU2U32, 32, x)
}

// UBitfieldExtractImm extracts bits [offset, offset+bits) of x.
func (b *Builder) UBitfieldExtractImm(x ValueHandle, offset, bits uint32) ValueHandle {
	return b.alu(ALUUBitfieldExtract, b.BitSize(x), x, b.Imm32(offset), b.Imm32(bits))
}

// Intrinsic emits an intrinsic with the given result shape.
func (b *Builder) Intrinsic(in *Intrinsic, def ValueType) ValueHandle {
	return b.Emit(in, def)
}

// LoadPushConstant loads from push constant space at base + offset.
func (b *Builder) LoadPushConstant(def ValueType, offset ValueHandle, base, rng uint32) ValueHandle {
	return b.Intrinsic(&Intrinsic{
		Op:    OpLoadPushConstant,
		Srcs:  []ValueHandle{offset},
		Base:  base,
		Range: rng,
	}, def)
}

// LoadGlobalConstant loads read-only memory at a 64-bit address.
func (b *Builder) LoadGlobalConstant(def ValueType, addr ValueHandle) ValueHandle {
	return b.Intrinsic(&Intrinsic{Op: OpLoadGlobalConstant, Srcs: []ValueHandle{addr}}, def)
}

// LoadShaderRecordPtr loads the 64-bit shader record base address.
func (b *Builder) LoadShaderRecordPtr() ValueHandle {
	return b.Intrinsic(&Intrinsic{Op: OpLoadShaderRecordPtr}, Uint64)
}

// DerefVar emits a root deref of a shader variable.
func (b *Builder) DerefVar(v VariableHandle) ValueHandle {
	variable := &b.Shader.Variables[v]
	return b.Emit(&Deref{
		DerefType: DerefVar,
		Mode:      variable.Mode,
		Type:      variable.Type,
		Var:       v,
		Parent:    NoValue,
		Index:     NoValue,
	}, Uint32)
}

// DerefArray emits an element access on an array deref.
func (b *Builder) DerefArray(parent, index ValueHandle) ValueHandle {
	p, _ := b.Func.Deref(parent)
	elem := p.Type
	if arr, ok := b.Shader.Types[p.Type].Inner.(ArrayType); ok {
		elem = arr.Base
	}
	return b.Emit(&Deref{
		DerefType: DerefArray,
		Mode:      p.Mode,
		Type:      elem,
		Parent:    parent,
		Index:     index,
	}, b.Func.Instructions[parent].Def)
}

// DerefPtrAsArray emits pointer arithmetic on a cast deref.
func (b *Builder) DerefPtrAsArray(parent, index ValueHandle) ValueHandle {
	p, _ := b.Func.Deref(parent)
	return b.Emit(&Deref{
		DerefType: DerefPtrAsArray,
		Mode:      p.Mode,
		Type:      p.Type,
		Parent:    parent,
		Index:     index,
	}, b.Func.Instructions[parent].Def)
}

// DerefStruct emits a member access on a struct deref.
func (b *Builder) DerefStruct(parent ValueHandle, field uint32) ValueHandle {
	p, _ := b.Func.Deref(parent)
	st := b.Shader.Types[p.Type].Inner.(StructType)
	return b.Emit(&Deref{
		DerefType: DerefStruct,
		Mode:      p.Mode,
		Type:      st.Members[field].Type,
		Parent:    parent,
		Index:     NoValue,
		Field:     field,
	}, b.Func.Instructions[parent].Def)
}

// DerefCast reinterprets value as a pointer to typ.
func (b *Builder) DerefCast(value ValueHandle, mode VariableMode, typ TypeHandle, ptrStride uint32) ValueHandle {
	return b.Emit(&Deref{
		DerefType: DerefCast,
		Mode:      mode,
		Type:      typ,
		Parent:    value,
		Index:     NoValue,
		PtrStride: ptrStride,
	}, b.Func.Instructions[value].Def)
}

// LoadDeref loads through a deref.
func (b *Builder) LoadDeref(def ValueType, deref ValueHandle) ValueHandle {
	return b.Intrinsic(&Intrinsic{Op: OpLoadDeref, Srcs: []ValueHandle{deref}}, def)
}

// StoreDeref stores value through a deref.
func (b *Builder) StoreDeref(deref, value ValueHandle) ValueHandle {
	return b.Intrinsic(&Intrinsic{Op: OpStoreDeref, Srcs: []ValueHandle{deref, value}}, NoResult)
}

// ResourceIndex emits a buffer resource index for (set, binding).
func (b *Builder) ResourceIndex(set, binding uint32, kind ResourceKind, index ValueHandle) ValueHandle {
	return b.Intrinsic(&Intrinsic{
		Op:           OpVulkanResourceIndex,
		Srcs:         []ValueHandle{index},
		Set:          set,
		Binding:      binding,
		ResourceKind: kind,
	}, ValueType{Components: 2, BitSize: 32})
}

// ResourceReindex offsets a buffer resource index by delta.
func (b *Builder) ResourceReindex(parent, delta ValueHandle) ValueHandle {
	in, _ := b.Func.Intrinsic(parent)
	kind := ResourceKind(0)
	if in != nil {
		kind = in.ResourceKind
	}
	return b.Intrinsic(&Intrinsic{
		Op:           OpVulkanResourceReindex,
		Srcs:         []ValueHandle{parent, delta},
		ResourceKind: kind,
	}, b.Func.Instructions[parent].Def)
}

// LoadVulkanDescriptor loads the descriptor addressed by a resource index.
func (b *Builder) LoadVulkanDescriptor(index ValueHandle, kind ResourceKind) ValueHandle {
	return b.Intrinsic(&Intrinsic{
		Op:           OpLoadVulkanDescriptor,
		Srcs:         []ValueHandle{index},
		ResourceKind: kind,
	}, ValueType{Components: 2, BitSize: 32})
}

// Tex emits a texture instruction.
func (b *Builder) Tex(op TexOp, def ValueType, srcs ...TexSrc) ValueHandle {
	return b.Emit(&Tex{Op: op, Srcs: srcs}, def)
}
