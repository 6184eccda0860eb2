// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"fmt"

	"github.com/gogpu/descheap/ir"
)

// ResourceReference identifies one descriptor access.
type ResourceReference struct {
	Set     uint32
	Binding uint32
	Kind    ir.ResourceKind

	// Index is the dynamic array index, or ir.NoValue for index zero.
	Index ir.ValueHandle
}

// ResolveDerefBinding recovers the binding of a deref rooted at a bound
// uniform or image variable. At most one array level directly above the
// variable is accepted; its index becomes the dynamic index.
func ResolveDerefBinding(shader *ir.Shader, fn *ir.Function, deref ir.ValueHandle) (ResourceReference, bool) {
	d, ok := fn.Deref(deref)
	if !ok {
		return ResourceReference{}, false
	}

	index := ir.NoValue
	if d.DerefType == ir.DerefArray {
		index = d.Index
		if d, ok = fn.Deref(d.Parent); !ok {
			return ResourceReference{}, false
		}
	}
	if d.DerefType != ir.DerefVar || int(d.Var) >= len(shader.Variables) {
		return ResourceReference{}, false
	}

	v := &shader.Variables[d.Var]
	if v.Mode != ir.ModeUniform && v.Mode != ir.ModeImage {
		return ResourceReference{}, false
	}
	if v.ResourceKind == 0 || v.Binding == nil {
		return ResourceReference{}, false
	}
	return ResourceReference{
		Set:     v.Binding.Set,
		Binding: v.Binding.Binding,
		Kind:    v.ResourceKind,
		Index:   index,
	}, true
}

// RootCast returns the cast at the root of a deref chain. Chains rooted at
// a variable have no cast.
func RootCast(fn *ir.Function, deref ir.ValueHandle) (ir.ValueHandle, bool) {
	h := deref
	for range len(fn.Instructions) {
		d, ok := fn.Deref(h)
		if !ok {
			return ir.NoValue, false
		}
		if d.DerefType == ir.DerefVar {
			return ir.NoValue, false
		}
		if _, ok := fn.Deref(d.Parent); !ok {
			if d.DerefType != ir.DerefCast {
				return ir.NoValue, false
			}
			return h, true
		}
		h = d.Parent
	}
	return ir.NoValue, false
}

// rootVariable returns the variable at the root of a deref chain.
func rootVariable(fn *ir.Function, deref ir.ValueHandle) (ir.VariableHandle, bool) {
	h := deref
	for range len(fn.Instructions) {
		d, ok := fn.Deref(h)
		if !ok {
			return 0, false
		}
		if d.DerefType == ir.DerefVar {
			return d.Var, true
		}
		h = d.Parent
	}
	return 0, false
}

// IsHeapPointerCast reports whether cast reinterprets a resource or
// sampler heap base pointer.
func IsHeapPointerCast(shader *ir.Shader, fn *ir.Function, cast ir.ValueHandle) bool {
	d, ok := fn.Deref(cast)
	if !ok || d.DerefType != ir.DerefCast {
		return false
	}
	in, ok := fn.Intrinsic(d.Parent)
	if !ok || len(in.Srcs) < in.Op.Info().NumSrcs {
		return false
	}

	switch in.Op {
	case ir.OpLoadResourceHeapPtr, ir.OpLoadSamplerHeapPtr:
		return true
	case ir.OpLoadDeref:
		v, ok := rootVariable(fn, in.Srcs[0])
		if !ok || int(v) >= len(shader.Variables) {
			return false
		}
		sv := &shader.Variables[v]
		return sv.Mode == ir.ModeSystemValue && sv.IsHeapPointer()
	default:
		return false
	}
}

// derefPath returns the chain from its root to deref, root first. The root
// is the first deref whose parent is not itself a deref.
func derefPath(fn *ir.Function, deref ir.ValueHandle) []ir.ValueHandle {
	var path []ir.ValueHandle
	h := deref
	for range len(fn.Instructions) {
		d, ok := fn.Deref(h)
		if !ok {
			break
		}
		path = append(path, h)
		_, parent, ok := fn.DerefParent(d)
		if !ok {
			break
		}
		h = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// BuildDerefAddress applies the array strides and member offsets of the
// deref chain to root, the address of the chain's root. Offsets use 32-bit
// arithmetic and addresses 64-bit arithmetic with sign-extended indices.
func BuildDerefAddress(b *ir.Builder, fn *ir.Function, root AddressExpr, deref ir.ValueHandle) (AddressExpr, error) {
	types := b.Shader.Types
	addr := root.Value

	path := derefPath(fn, deref)
	for i := 1; i < len(path); i++ {
		d, _ := fn.Deref(path[i])
		parent, _ := fn.Deref(path[i-1])

		switch d.DerefType {
		case ir.DerefArray, ir.DerefPtrAsArray:
			stride, err := arrayStep(fn, types, path[:i], d, parent)
			if err != nil {
				return AddressExpr{}, NewError(ErrInvalidShader, fmt.Sprintf("deref %%%d: %v", path[i], err))
			}
			addr = b.IAdd(addr, b.IMulImm(widenIndex(b, d.Index, root.Format), uint64(stride)))

		case ir.DerefStruct:
			offset, err := ir.MemberOffset(types, parent.Type, d.Field)
			if err != nil {
				return AddressExpr{}, NewError(ErrInvalidShader, fmt.Sprintf("deref %%%d: %v", path[i], err))
			}
			addr = b.IAddImm(addr, uint64(offset))

		case ir.DerefCast:
			// Reinterpretation keeps the address.
		}
	}
	return AddressExpr{Value: addr, Format: root.Format}, nil
}

// arrayStep returns the byte stride of an array or ptr-as-array step.
func arrayStep(fn *ir.Function, types []ir.Type, ancestors []ir.ValueHandle, d, parent *ir.Deref) (uint32, error) {
	if d.DerefType == ir.DerefArray {
		return ir.ElementStride(types, parent.Type)
	}
	// ptr-as-array steps use the stride of the nearest cast above them.
	for i := len(ancestors) - 1; i >= 0; i-- {
		a, _ := fn.Deref(ancestors[i])
		if a.DerefType != ir.DerefCast {
			continue
		}
		if a.PtrStride != 0 {
			return a.PtrStride, nil
		}
		return ir.ExplicitSize(types, a.Type)
	}
	return 0, fmt.Errorf("ptr_as_array without a cast")
}

func widenIndex(b *ir.Builder, index ir.ValueHandle, format AddressFormat) ir.ValueHandle {
	if format == Global64 {
		return b.I2I64(index)
	}
	return b.U2U32(index)
}

// DerefAlignment returns the known alignment of a deref rooted at a cast
// carrying an alignment. Constant steps move the offset; dynamic steps
// reduce the multiple to the largest power of two dividing their stride.
func DerefAlignment(shader *ir.Shader, fn *ir.Function, deref ir.ValueHandle) (mul, offset uint32, ok bool) {
	path := derefPath(fn, deref)
	if len(path) == 0 {
		return 0, 0, false
	}
	root, _ := fn.Deref(path[0])
	if root.DerefType != ir.DerefCast || root.AlignMul == 0 {
		return 0, 0, false
	}
	mul, offset = root.AlignMul, root.AlignOffset

	for i := 1; i < len(path); i++ {
		d, _ := fn.Deref(path[i])
		parent, _ := fn.Deref(path[i-1])
		switch d.DerefType {
		case ir.DerefArray, ir.DerefPtrAsArray:
			stride, err := arrayStep(fn, shader.Types, path[:i], d, parent)
			if err != nil {
				return 0, 0, false
			}
			if c, isConst := fn.Const(d.Index); isConst {
				offset += uint32(c.Value) * stride
			} else if stride != 0 {
				mul = min(mul, stride&-stride)
			}
		case ir.DerefStruct:
			member, err := ir.MemberOffset(shader.Types, parent.Type, d.Field)
			if err != nil {
				return 0, 0, false
			}
			offset += member
		case ir.DerefCast:
			if d.AlignMul != 0 {
				mul, offset = d.AlignMul, d.AlignOffset
			}
		}
	}
	return mul, offset % mul, true
}

// ResolveBufferBinding follows the resource index chain feeding a
// load_vulkan_descriptor back to its vulkan_resource_index. The returned
// reference has no Index; use BuildBufferIndex for it.
func ResolveBufferBinding(fn *ir.Function, descLoad ir.ValueHandle) (ResourceReference, bool) {
	root, ok := bufferIndexRoot(fn, descLoad)
	if !ok {
		return ResourceReference{}, false
	}
	return ResourceReference{
		Set:     root.Set,
		Binding: root.Binding,
		Kind:    root.ResourceKind,
		Index:   ir.NoValue,
	}, true
}

func bufferIndexRoot(fn *ir.Function, descLoad ir.ValueHandle) (*ir.Intrinsic, bool) {
	load, ok := fn.Intrinsic(descLoad)
	if !ok || load.Op != ir.OpLoadVulkanDescriptor || len(load.Srcs) != 1 {
		return nil, false
	}
	in, ok := fn.Intrinsic(load.Srcs[0])
	for range len(fn.Instructions) {
		if !ok || in.Op != ir.OpVulkanResourceReindex {
			break
		}
		in, ok = fn.Intrinsic(in.Srcs[0])
	}
	if !ok || in.Op != ir.OpVulkanResourceIndex {
		return nil, false
	}
	return in, true
}

// BufferIndexIsZero reports whether the descriptor load reads element zero
// of its binding: a direct resource index with a literal zero index.
func BufferIndexIsZero(fn *ir.Function, descLoad ir.ValueHandle) bool {
	load, ok := fn.Intrinsic(descLoad)
	if !ok || load.Op != ir.OpLoadVulkanDescriptor || len(load.Srcs) != 1 {
		return false
	}
	in, ok := fn.Intrinsic(load.Srcs[0])
	if !ok || in.Op != ir.OpVulkanResourceIndex {
		return false
	}
	c, ok := fn.Const(in.Srcs[0])
	return ok && c.Value == 0
}

// BuildBufferIndex emits the dynamic index of a descriptor load: the sum
// of every reindex delta plus the base index. ResolveBufferBinding must
// have succeeded for descLoad.
func BuildBufferIndex(b *ir.Builder, fn *ir.Function, descLoad ir.ValueHandle) ir.ValueHandle {
	load, _ := fn.Intrinsic(descLoad)
	index := b.Imm32(0)
	in, _ := fn.Intrinsic(load.Srcs[0])
	for in.Op == ir.OpVulkanResourceReindex {
		index = b.IAdd(index, in.Srcs[1])
		in, _ = fn.Intrinsic(in.Srcs[0])
	}
	return b.IAdd(index, in.Srcs[0])
}
