package ir

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Function    string
	Instruction *ValueHandle
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		if e.Instruction != nil {
			return fmt.Sprintf("in function %s, value %%%d: %s", e.Function, *e.Instruction, e.Message)
		}
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validator validates IR shaders.
type Validator struct {
	shader  *Shader
	errors  []ValidationError
	context validationContext
}

// validationContext holds current validation context.
type validationContext struct {
	function     *Function
	functionName string
	// order maps each placed value to its (block, position).
	order map[ValueHandle][2]int
}

// Validate checks the shader for correctness.
// Returns validation errors if any, or nil if the shader is valid.
func Validate(shader *Shader) ([]ValidationError, error) {
	if shader == nil {
		return nil, fmt.Errorf("shader is nil")
	}

	v := &Validator{
		shader: shader,
		errors: make([]ValidationError, 0),
	}

	v.ValidateShader()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateShader validates the complete shader.
func (v *Validator) ValidateShader() {
	v.validateTypes()
	v.validateVariables()
	v.validateFunctions()
}

// validateTypes checks all type definitions.
func (v *Validator) validateTypes() {
	for i, typ := range v.shader.Types {
		v.validateType(TypeHandle(i), &typ)
	}
}

// validateType validates a single type.
//
//nolint:gocognit,gocyclo,cyclop // Type validation requires checking many type variants
func (v *Validator) validateType(handle TypeHandle, typ *Type) {
	if typ.Inner == nil {
		v.addError(fmt.Sprintf("type %d has nil inner type", handle))
		return
	}

	switch inner := typ.Inner.(type) {
	case ScalarType:
		if !validWidth(inner.Width) {
			v.addError(fmt.Sprintf("type %d: scalar width must be 1, 2, 4, or 8 bytes, got %d", handle, inner.Width))
		}

	case VectorType:
		if inner.Size != Vec2 && inner.Size != Vec3 && inner.Size != Vec4 {
			v.addError(fmt.Sprintf("type %d: vector size must be 2, 3, or 4, got %d", handle, inner.Size))
		}
		if !validWidth(inner.Scalar.Width) {
			v.addError(fmt.Sprintf("type %d: vector scalar width must be 1, 2, 4, or 8 bytes, got %d", handle, inner.Scalar.Width))
		}

	case MatrixType:
		if inner.Columns != Vec2 && inner.Columns != Vec3 && inner.Columns != Vec4 {
			v.addError(fmt.Sprintf("type %d: matrix columns must be 2, 3, or 4, got %d", handle, inner.Columns))
		}
		if inner.Rows != Vec2 && inner.Rows != Vec3 && inner.Rows != Vec4 {
			v.addError(fmt.Sprintf("type %d: matrix rows must be 2, 3, or 4, got %d", handle, inner.Rows))
		}
		if inner.Scalar.Kind != ScalarFloat {
			v.addError(fmt.Sprintf("type %d: matrix scalar must be float, got %v", handle, inner.Scalar.Kind))
		}

	case ArrayType:
		if !v.isValidTypeHandle(inner.Base) {
			v.addError(fmt.Sprintf("type %d: array base type %d does not exist", handle, inner.Base))
		}
		if inner.Base == handle {
			v.addError(fmt.Sprintf("type %d: array has circular reference to itself", handle))
		}

	case StructType:
		memberNames := make(map[string]bool)
		for j, member := range inner.Members {
			if member.Name == "" {
				v.addError(fmt.Sprintf("type %d: struct member %d has empty name", handle, j))
			}
			if memberNames[member.Name] {
				v.addError(fmt.Sprintf("type %d: duplicate struct member name %q", handle, member.Name))
			}
			memberNames[member.Name] = true

			if !v.isValidTypeHandle(member.Type) {
				v.addError(fmt.Sprintf("type %d: struct member %q type %d does not exist", handle, member.Name, member.Type))
			}
			if member.Type == handle {
				v.addError(fmt.Sprintf("type %d: struct member %q has circular reference", handle, member.Name))
			}
			if inner.Span != 0 && member.Offset >= inner.Span {
				v.addError(fmt.Sprintf("type %d: struct member %q offset %d is outside span %d", handle, member.Name, member.Offset, inner.Span))
			}
		}

	case DescriptorType:
		if inner.Kind != 0 && !inner.Kind.Single() {
			v.addError(fmt.Sprintf("type %d: descriptor kind %s is not a single resource class", handle, inner.Kind))
		}
	}
}

func validWidth(w uint8) bool {
	return w == 1 || w == 2 || w == 4 || w == 8
}

// validateVariables checks all shader variables.
func (v *Validator) validateVariables() {
	type bindingKey struct {
		set, binding uint32
		kind         ResourceKind
	}
	bindings := make(map[bindingKey]bool)

	for i := range v.shader.Variables {
		sv := &v.shader.Variables[i]
		if !v.isValidTypeHandle(sv.Type) {
			v.addError(fmt.Sprintf("variable %d (%s): type %d does not exist", i, sv.Name, sv.Type))
		}
		if sv.ResourceKind != 0 && !sv.ResourceKind.Single() {
			v.addError(fmt.Sprintf("variable %q: resource kind %s is not a single resource class", sv.Name, sv.ResourceKind))
		}
		if sv.IsHeapPointer() && sv.Binding != nil {
			v.addError(fmt.Sprintf("variable %q: heap pointer must not have a binding", sv.Name))
		}
		if sv.Binding != nil {
			key := bindingKey{sv.Binding.Set, sv.Binding.Binding, sv.ResourceKind}
			if bindings[key] {
				v.addError(fmt.Sprintf("variable %q: duplicate %s binding set=%d binding=%d",
					sv.Name, sv.ResourceKind, sv.Binding.Set, sv.Binding.Binding))
			}
			bindings[key] = true
		}
	}
}

// validateFunctions checks all functions.
func (v *Validator) validateFunctions() {
	names := make(map[string]bool)

	for i := range v.shader.Functions {
		fn := &v.shader.Functions[i]
		if fn.Name != "" {
			if names[fn.Name] {
				v.addError(fmt.Sprintf("duplicate function name %q", fn.Name))
			}
			names[fn.Name] = true
		}

		v.context = validationContext{
			function:     fn,
			functionName: fn.Name,
			order:        make(map[ValueHandle][2]int),
		}

		v.validateFunction(fn)
	}
}

// validateFunction validates placement and every placed instruction.
func (v *Validator) validateFunction(fn *Function) {
	for bi, block := range fn.Blocks {
		for pos, h := range block.Instructions {
			if !fn.Contains(h) {
				v.addErrorInFunction(fmt.Sprintf("block %d position %d: value %d does not exist", bi, pos, h))
				continue
			}
			if _, dup := v.context.order[h]; dup {
				v.addErrorInInstruction(h, "instruction is placed more than once")
				continue
			}
			v.context.order[h] = [2]int{bi, pos}
			in := &fn.Instructions[h]
			if in.Removed {
				v.addErrorInInstruction(h, "removed instruction is still placed")
			}
			if in.Block != bi {
				v.addErrorInInstruction(h, fmt.Sprintf("instruction records block %d but is placed in block %d", in.Block, bi))
			}
		}
	}

	for _, h := range fn.Live() {
		if !fn.Contains(h) {
			continue
		}
		v.validateInstruction(h, &fn.Instructions[h])
	}
}

// validateInstruction validates a single instruction.
//
//nolint:gocognit,gocyclo,cyclop // Instruction validation requires checking many instruction variants
func (v *Validator) validateInstruction(handle ValueHandle, in *Instruction) {
	if in.Kind == nil {
		v.addErrorInInstruction(handle, "instruction has nil kind")
		return
	}

	for _, op := range in.Kind.operands() {
		if op.Valid() {
			v.validateOperand(handle, *op)
		}
	}

	switch kind := in.Kind.(type) {
	case *Const:
		if !in.Def.HasResult() {
			v.addErrorInInstruction(handle, "constant has no result")
		}

	case *ALU:
		want := 2
		switch kind.Op {
		case ALUU2U32, ALUU2U64, ALUI2I64:
			want = 1
		case ALUUBitfieldExtract:
			want = 3
		}
		if len(kind.Args) != want {
			v.addErrorInInstruction(handle, fmt.Sprintf("%s expects %d arguments, got %d", kind.Op, want, len(kind.Args)))
		}

	case *Deref:
		if !v.isValidTypeHandle(kind.Type) {
			v.addErrorInInstruction(handle, fmt.Sprintf("deref type %d does not exist", kind.Type))
		}
		switch kind.DerefType {
		case DerefVar:
			if int(kind.Var) >= len(v.shader.Variables) {
				v.addErrorInInstruction(handle, fmt.Sprintf("variable %d does not exist", kind.Var))
			}
		case DerefArray, DerefPtrAsArray, DerefStruct:
			if _, ok := v.context.function.Deref(kind.Parent); !ok {
				v.addErrorInInstruction(handle, fmt.Sprintf("%s deref parent %%%d is not a deref", kind.DerefType, kind.Parent))
			}
			if kind.DerefType != DerefStruct && !kind.Index.Valid() {
				v.addErrorInInstruction(handle, fmt.Sprintf("%s deref has no index", kind.DerefType))
			}
		case DerefCast:
			if !kind.Parent.Valid() {
				v.addErrorInInstruction(handle, "cast has no source value")
			}
		}

	case *Intrinsic:
		info := kind.Op.Info()
		if info.NumSrcs >= 0 && len(kind.Srcs) != info.NumSrcs {
			v.addErrorInInstruction(handle, fmt.Sprintf("%s expects %d sources, got %d", info.Name, info.NumSrcs, len(kind.Srcs)))
		}
		if kind.Op == OpVulkanResourceIndex && !kind.ResourceKind.Single() {
			v.addErrorInInstruction(handle, fmt.Sprintf("resource index kind %s is not a single resource class", kind.ResourceKind))
		}
		if kind.Op.Is(FlagImageDeref) || kind.Op.Is(FlagDerefAccess) {
			if len(kind.Srcs) == 0 {
				v.addErrorInInstruction(handle, fmt.Sprintf("%s has no deref source", info.Name))
			} else if _, ok := v.context.function.Deref(kind.Srcs[0]); !ok {
				v.addErrorInInstruction(handle, fmt.Sprintf("%s source %%%d is not a deref", info.Name, kind.Srcs[0]))
			}
		}

	case *Tex:
		seen := make(map[TexSrcKind]bool)
		for _, src := range kind.Srcs {
			if seen[src.Kind] {
				v.addErrorInInstruction(handle, fmt.Sprintf("duplicate %s source", src.Kind))
			}
			seen[src.Kind] = true
			if !src.Value.Valid() {
				v.addErrorInInstruction(handle, fmt.Sprintf("%s source has no value", src.Kind))
			}
		}
		if seen[TexSrcTextureDeref] && seen[TexSrcTextureHeapOffset] {
			v.addErrorInInstruction(handle, "texture is both a deref and a heap offset")
		}
		if kind.EmbeddedSampler && (seen[TexSrcSamplerDeref] || seen[TexSrcSamplerHeapOffset]) {
			v.addErrorInInstruction(handle, "embedded sampler instruction still has a sampler source")
		}
	}
}

// validateOperand checks that op is defined before its use in handle.
func (v *Validator) validateOperand(handle, op ValueHandle) {
	fn := v.context.function
	if !fn.Contains(op) {
		v.addErrorInInstruction(handle, fmt.Sprintf("operand %d does not exist", op))
		return
	}
	if fn.Instructions[op].Removed {
		v.addErrorInInstruction(handle, fmt.Sprintf("operand %%%d was removed", op))
		return
	}
	if !fn.Instructions[op].Def.HasResult() {
		v.addErrorInInstruction(handle, fmt.Sprintf("operand %%%d has no result", op))
		return
	}
	def, ok := v.context.order[op]
	if !ok {
		v.addErrorInInstruction(handle, fmt.Sprintf("operand %%%d is not placed", op))
		return
	}
	use := v.context.order[handle]
	if def[0] > use[0] || (def[0] == use[0] && def[1] >= use[1]) {
		v.addErrorInInstruction(handle, fmt.Sprintf("operand %%%d is used before it is defined", op))
	}
}

// Helper methods for validation

func (v *Validator) isValidTypeHandle(handle TypeHandle) bool {
	return int(handle) < len(v.shader.Types)
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message: msg,
	})
}

func (v *Validator) addErrorInFunction(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.context.functionName,
	})
}

func (v *Validator) addErrorInInstruction(handle ValueHandle, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:     msg,
		Function:    v.context.functionName,
		Instruction: &handle,
	})
}
