// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"testing"

	"github.com/gogpu/descheap/ir"
)

// Type handles of testTypes.
const (
	tyU32 ir.TypeHandle = iota
	tyImage
	tySampler
	tyImageArray
	tyStorageImage
	tyBlock
	tyU32Array4
	tyHeapImages
	tyDescriptor
	tyU64
	tyBool
)

func u32p(v uint32) *uint32 { return &v }

func testTypes() []ir.Type {
	u32 := ir.ScalarType{Kind: ir.ScalarUint, Width: 4}
	return []ir.Type{
		tyU32:          {Name: "u32", Inner: u32},
		tyImage:        {Name: "texture_2d", Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled}},
		tySampler:      {Name: "sampler", Inner: ir.SamplerType{}},
		tyImageArray:   {Name: "texture_2d_array8", Inner: ir.ArrayType{Base: tyImage, Size: ir.ArraySize{Constant: u32p(8)}}},
		tyStorageImage: {Name: "storage_2d_array", Inner: ir.ImageType{Dim: ir.Dim2D, Arrayed: true, Class: ir.ImageClassStorage, Format: 37}},
		tyBlock: {Name: "Block", Inner: ir.StructType{
			Members: []ir.StructMember{
				{Name: "a", Type: tyU32, Offset: 0},
				{Name: "b", Type: tyU32, Offset: 4},
				{Name: "arr", Type: tyU32Array4, Offset: 16},
			},
			Span: 32,
		}},
		tyU32Array4:  {Name: "u32x4", Inner: ir.ArrayType{Base: tyU32, Size: ir.ArraySize{Constant: u32p(4)}, Stride: 4}},
		tyHeapImages: {Name: "heap_images", Inner: ir.ArrayType{Base: tyImage, Stride: 64}},
		tyDescriptor: {Name: "descriptor", Inner: ir.DescriptorType{}},
		tyU64:        {Name: "u64", Inner: ir.ScalarType{Kind: ir.ScalarUint, Width: 8}},
		tyBool:       {Name: "bool", Inner: ir.ScalarType{Kind: ir.ScalarBool, Width: 1}},
	}
}

// fixture is a one-function shader with a builder appending to its only
// block.
type fixture struct {
	shader *ir.Shader
	fn     *ir.Function
	b      *ir.Builder
}

func newFixture() *fixture {
	s := &ir.Shader{
		Name:      "test",
		Stage:     ir.StageFragment,
		Types:     testTypes(),
		Functions: []ir.Function{{Name: "main"}},
	}
	fn := &s.Functions[0]
	return &fixture{shader: s, fn: fn, b: ir.NewBuilder(s, fn)}
}

func (f *fixture) addVar(v ir.Variable) ir.VariableHandle {
	f.shader.Variables = append(f.shader.Variables, v)
	return ir.VariableHandle(len(f.shader.Variables) - 1)
}

// boundVar declares a resource at (set, binding) and returns its deref.
func (f *fixture) boundVar(name string, mode ir.VariableMode, typ ir.TypeHandle, kind ir.ResourceKind, set, binding uint32) ir.ValueHandle {
	v := f.addVar(ir.Variable{
		Name:         name,
		Mode:         mode,
		Type:         typ,
		Binding:      &ir.ResourceBinding{Set: set, Binding: binding},
		ResourceKind: kind,
	})
	return f.b.DerefVar(v)
}

// heapPtrCast emits a cast of the resource heap base pointer to typ.
func (f *fixture) heapPtrCast(typ ir.TypeHandle) ir.ValueHandle {
	ptr := f.b.Intrinsic(&ir.Intrinsic{Op: ir.OpLoadResourceHeapPtr}, ir.Uint64)
	return f.b.DerefCast(ptr, ir.ModeUniform, typ, 0)
}

// descriptorLoad emits resource_index(set, binding, index) and loads its
// descriptor.
func (f *fixture) descriptorLoad(set, binding uint32, kind ir.ResourceKind, index uint32) ir.ValueHandle {
	idx := f.b.ResourceIndex(set, binding, kind, f.b.Imm32(index))
	return f.b.LoadVulkanDescriptor(idx, kind)
}

// bufferCast casts a descriptor load to a block in the given mode.
func (f *fixture) bufferCast(desc ir.ValueHandle, mode ir.VariableMode, typ ir.TypeHandle) ir.ValueHandle {
	return f.b.DerefCast(desc, mode, typ, 0)
}

// lower runs Lower and fails the test on error.
func (f *fixture) lower(t *testing.T, table MappingTable) Result {
	t.Helper()
	res, err := Lower(f.shader, table)
	if err != nil {
		t.Fatalf("Lower() error = %v", err)
	}
	return res
}

// mustValidate fails the test if the shader does not validate.
func mustValidate(t *testing.T, s *ir.Shader) {
	t.Helper()
	errs, err := ir.Validate(s)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, e := range errs {
		t.Errorf("validation: %v", e)
	}
}

func mustIntrinsic(t *testing.T, fn *ir.Function, h ir.ValueHandle) *ir.Intrinsic {
	t.Helper()
	in, ok := fn.Intrinsic(h)
	if !ok {
		t.Fatalf("%%%d is %T, want an intrinsic", h, fn.Instr(h).Kind)
	}
	return in
}

// liveIntrinsics returns the placed intrinsics with the given op.
func liveIntrinsics(fn *ir.Function, op ir.IntrinsicOp) []ir.ValueHandle {
	var out []ir.ValueHandle
	for _, h := range fn.Live() {
		if in, ok := fn.Intrinsic(h); ok && in.Op == op {
			out = append(out, h)
		}
	}
	return out
}
