// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/descheap/ir"
)

func TestBuildBufferIndex_ReindexChain(t *testing.T) {
	f := newFixture()
	idx := f.b.ResourceIndex(2, 5, ir.ResourceUniformBuffer, f.b.Imm32(3))
	idx = f.b.ResourceReindex(idx, f.b.Imm32(2))
	idx = f.b.ResourceReindex(idx, f.b.Imm32(5))
	load := f.b.LoadVulkanDescriptor(idx, ir.ResourceUniformBuffer)

	ref, ok := ResolveBufferBinding(f.fn, load)
	if !ok {
		t.Fatal("ResolveBufferBinding() = false")
	}
	want := ResourceReference{Set: 2, Binding: 5, Kind: ir.ResourceUniformBuffer, Index: ir.NoValue}
	if diff := cmp.Diff(want, ref); diff != "" {
		t.Errorf("reference mismatch (-want +got):\n%s", diff)
	}

	f.b.SetBefore(load)
	index := BuildBufferIndex(f.b, f.fn, load)
	if got := newMachine().eval(t, f.fn, index); got != 10 {
		t.Errorf("dynamic index = %d, want 10", got)
	}
	if BufferIndexIsZero(f.fn, load) {
		t.Error("BufferIndexIsZero() = true for a reindexed load")
	}
}

func TestBufferIndexIsZero(t *testing.T) {
	f := newFixture()
	zero := f.descriptorLoad(0, 0, ir.ResourceUniformBuffer, 0)
	one := f.descriptorLoad(0, 1, ir.ResourceUniformBuffer, 1)

	if !BufferIndexIsZero(f.fn, zero) {
		t.Error("BufferIndexIsZero(index 0) = false")
	}
	if BufferIndexIsZero(f.fn, one) {
		t.Error("BufferIndexIsZero(index 1) = true")
	}
	if BufferIndexIsZero(f.fn, f.b.Imm32(0)) {
		t.Error("BufferIndexIsZero of a constant = true")
	}
}

func TestResolveDerefBinding(t *testing.T) {
	f := newFixture()
	tex := f.boundVar("tex", ir.ModeUniform, tyImage, ir.ResourceSampledImage, 1, 2)
	arr := f.boundVar("arr", ir.ModeUniform, tyImageArray, ir.ResourceSampledImage, 1, 3)
	i := f.b.Imm32(4)
	elem := f.b.DerefArray(arr, i)
	local := f.b.DerefVar(f.addVar(ir.Variable{Name: "local", Mode: ir.ModeFunction, Type: tyU32}))
	unbound := f.b.DerefVar(f.addVar(ir.Variable{Name: "unbound", Mode: ir.ModeUniform, Type: tyImage, ResourceKind: ir.ResourceSampledImage}))

	tests := []struct {
		name   string
		deref  ir.ValueHandle
		want   ResourceReference
		wantOK bool
	}{
		{"variable", tex, ResourceReference{Set: 1, Binding: 2, Kind: ir.ResourceSampledImage, Index: ir.NoValue}, true},
		{"array element", elem, ResourceReference{Set: 1, Binding: 3, Kind: ir.ResourceSampledImage, Index: i}, true},
		{"function variable", local, ResourceReference{}, false},
		{"no binding", unbound, ResourceReference{}, false},
		{"not a deref", i, ResourceReference{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDerefBinding(f.shader, f.fn, tt.deref)
			if ok != tt.wantOK {
				t.Fatalf("ResolveDerefBinding() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("reference mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRootCastAndHeapPointer(t *testing.T) {
	f := newFixture()
	cast := f.heapPtrCast(tyHeapImages)
	elem := f.b.DerefArray(cast, f.b.Imm32(1))

	got, ok := RootCast(f.fn, elem)
	if !ok || got != cast {
		t.Errorf("RootCast() = %%%d, %v, want %%%d", got, ok, cast)
	}
	if !IsHeapPointerCast(f.shader, f.fn, cast) {
		t.Error("IsHeapPointerCast(resource heap cast) = false")
	}

	heapVar := f.addVar(ir.Variable{Name: "heap", Mode: ir.ModeSystemValue, Type: tyU64, SystemValue: ir.SystemValueSamplerHeapPtr})
	ptr := f.b.LoadDeref(ir.Uint64, f.b.DerefVar(heapVar))
	viaVar := f.b.DerefCast(ptr, ir.ModeUniform, tyHeapImages, 0)
	if !IsHeapPointerCast(f.shader, f.fn, viaVar) {
		t.Error("IsHeapPointerCast(system value heap pointer) = false")
	}

	plain := f.b.DerefCast(f.b.Imm64(0x1000), ir.ModeGlobal, tyBlock, 0)
	if IsHeapPointerCast(f.shader, f.fn, plain) {
		t.Error("IsHeapPointerCast(constant address) = true")
	}

	tex := f.boundVar("tex", ir.ModeUniform, tyImage, ir.ResourceSampledImage, 0, 0)
	if _, ok := RootCast(f.fn, tex); ok {
		t.Error("RootCast() of a variable deref succeeded")
	}
}

func TestBuildDerefAddress(t *testing.T) {
	tests := []struct {
		name   string
		format AddressFormat
		root   uint64
		index  uint32
		want   uint64
	}{
		{"offset", Offset32, 100, 3, 100 + 16 + 3*4},
		{"address", Global64, 0x1000, 3, 0x1000 + 16 + 3*4},
		{"negative index address", Global64, 0x1000, 0xffffffff, 0x1000 + 16 - 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			desc := f.descriptorLoad(0, 0, ir.ResourceUniformBuffer, 0)
			cast := f.bufferCast(desc, ir.ModeUBO, tyBlock)
			member := f.b.DerefStruct(cast, 2)
			elem := f.b.DerefArray(member, f.b.Imm32(tt.index))

			var root AddressExpr
			if tt.format == Global64 {
				root = AddressExpr{Value: f.b.Imm64(tt.root), Format: Global64}
			} else {
				root = AddressExpr{Value: f.b.Imm32(uint32(tt.root)), Format: Offset32}
			}
			addr, err := BuildDerefAddress(f.b, f.fn, root, elem)
			if err != nil {
				t.Fatalf("BuildDerefAddress() error = %v", err)
			}
			if addr.Format != tt.format {
				t.Errorf("format = %s, want %s", addr.Format, tt.format)
			}
			if got := newMachine().eval(t, f.fn, addr.Value); got != tt.want {
				t.Errorf("address = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestBuildDerefAddress_PtrAsArray(t *testing.T) {
	tests := []struct {
		name      string
		ptrStride uint32
		want      uint64
	}{
		{"cast stride", 48, 2 * 48},
		{"block size", 0, 2 * 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			cast := f.b.DerefCast(f.b.Imm64(0), ir.ModeGlobal, tyBlock, tt.ptrStride)
			elem := f.b.DerefPtrAsArray(cast, f.b.Imm32(2))

			addr, err := BuildDerefAddress(f.b, f.fn, AddressExpr{Value: f.b.Imm32(0), Format: Offset32}, elem)
			if err != nil {
				t.Fatalf("BuildDerefAddress() error = %v", err)
			}
			if got := newMachine().eval(t, f.fn, addr.Value); got != tt.want {
				t.Errorf("offset = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildDerefAddress_BadIndexing(t *testing.T) {
	f := newFixture()
	cast := f.b.DerefCast(f.b.Imm64(0), ir.ModeGlobal, tyU32, 0)
	// An array step over a scalar has no stride.
	bad := f.b.Emit(&ir.Deref{
		DerefType: ir.DerefArray,
		Mode:      ir.ModeGlobal,
		Type:      tyU32,
		Parent:    cast,
		Index:     f.b.Imm32(1),
	}, ir.Uint64)

	_, err := BuildDerefAddress(f.b, f.fn, AddressExpr{Value: f.b.Imm32(0), Format: Offset32}, bad)
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrInvalidShader {
		t.Errorf("BuildDerefAddress() error = %v, want an invalid shader error", err)
	}
}

func TestDerefAlignment(t *testing.T) {
	f := newFixture()
	cast := f.b.Emit(&ir.Deref{
		DerefType: ir.DerefCast,
		Mode:      ir.ModeUBO,
		Type:      tyBlock,
		Parent:    f.b.Imm64(0),
		Index:     ir.NoValue,
		AlignMul:  16,
	}, ir.Uint64)
	b := f.b.DerefStruct(cast, 1)
	arr := f.b.DerefStruct(cast, 2)
	constElem := f.b.DerefArray(arr, f.b.Imm32(1))
	dyn := f.b.LoadPushConstant(ir.Uint32, f.b.Imm32(0), 0, 4)
	dynElem := f.b.DerefArray(arr, dyn)

	tests := []struct {
		name       string
		deref      ir.ValueHandle
		mul, off   uint32
		wantExists bool
	}{
		{"cast", cast, 16, 0, true},
		{"member", b, 16, 4, true},
		{"constant element", constElem, 16, 4, true},
		{"dynamic element", dynElem, 4, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mul, off, ok := DerefAlignment(f.shader, f.fn, tt.deref)
			if ok != tt.wantExists || mul != tt.mul || off != tt.off {
				t.Errorf("DerefAlignment() = %d, %d, %v, want %d, %d, %v", mul, off, ok, tt.mul, tt.off, tt.wantExists)
			}
		})
	}

	tex := f.boundVar("tex", ir.ModeUniform, tyImage, ir.ResourceSampledImage, 0, 0)
	if _, _, ok := DerefAlignment(f.shader, f.fn, tex); ok {
		t.Error("DerefAlignment() of a variable deref succeeded")
	}
}
