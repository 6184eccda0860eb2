// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"testing"

	"github.com/gogpu/descheap/ir"
)

func TestBuildHeapOffset(t *testing.T) {
	tests := []struct {
		name      string
		source    Source
		first     uint32
		binding   uint32
		index     int64 // -1 for no dynamic index
		kind      ir.ResourceKind
		isSampler bool
		setup     func(m *machine)
		want      uint64
	}{
		{
			name:    "constant offset",
			source:  ConstantOffset{HeapOffset: 256, HeapArrayStride: 64},
			first:   2,
			binding: 3,
			index:   1,
			kind:    ir.ResourceSampledImage,
			want:    256 + 2*64,
		},
		{
			name:      "constant offset sampler half",
			source:    ConstantOffset{HeapOffset: 256, HeapArrayStride: 64, SamplerHeapOffset: 1024, SamplerHeapArrayStride: 32},
			first:     2,
			binding:   3,
			index:     -1,
			kind:      ir.ResourceCombinedSampledImage,
			isSampler: true,
			want:      1024 + 32,
		},
		{
			name:      "separate sampler uses image fields",
			source:    ConstantOffset{HeapOffset: 256, HeapArrayStride: 64, SamplerHeapOffset: 1024},
			index:     -1,
			kind:      ir.ResourceSampler,
			isSampler: true,
			want:      256,
		},
		{
			name:   "push index",
			source: PushIndex{HeapOffset: 16, PushOffset: 8, HeapIndexStride: 32, HeapArrayStride: 64},
			index:  2,
			kind:   ir.ResourceSampledImage,
			setup:  func(m *machine) { m.setPush32(8, 5) },
			want:   5*32 + 16 + 2*64,
		},
		{
			name:   "push index packed image",
			source: PushIndex{PushOffset: 4, HeapIndexStride: 1, UseCombinedImageSamplerIndex: true, SamplerHeapIndexStride: 1},
			index:  -1,
			kind:   ir.ResourceCombinedSampledImage,
			setup:  func(m *machine) { m.setPush32(4, 0x00A01234) },
			want:   0x01234,
		},
		{
			name:      "push index packed sampler",
			source:    PushIndex{PushOffset: 4, HeapIndexStride: 1, UseCombinedImageSamplerIndex: true, SamplerHeapIndexStride: 1},
			index:     -1,
			kind:      ir.ResourceCombinedSampledImage,
			isSampler: true,
			setup:     func(m *machine) { m.setPush32(4, 0x00A01234) },
			want:      0x00A,
		},
		{
			name:   "push index packed needs a combined resource",
			source: PushIndex{PushOffset: 4, HeapIndexStride: 1, UseCombinedImageSamplerIndex: true},
			index:  -1,
			kind:   ir.ResourceSampledImage,
			setup:  func(m *machine) { m.setPush32(4, 0x00A01234) },
			want:   0x00A01234,
		},
		{
			name: "push index separate sampler push offset",
			source: PushIndex{
				PushOffset: 0, HeapIndexStride: 64,
				SamplerPushOffset: 4, SamplerHeapIndexStride: 16, SamplerHeapOffset: 100,
			},
			index:     -1,
			kind:      ir.ResourceCombinedSampledImage,
			isSampler: true,
			setup: func(m *machine) {
				m.setPush32(0, 99)
				m.setPush32(4, 7)
			},
			want: 7*16 + 100,
		},
		{
			name:    "indirect index",
			source:  IndirectIndex{PushOffset: 16, AddressOffset: 8, HeapIndexStride: 64, HeapArrayStride: 64},
			first:   10,
			binding: 11,
			index:   -1,
			kind:    ir.ResourceReadOnlyImage,
			setup: func(m *machine) {
				m.setPush64(16, 0x1000)
				m.store32(0x1008, 3)
			},
			want: 3*64 + 64,
		},
		{
			name:    "indirect index array",
			source:  IndirectIndexArray{PushOffset: 0, AddressOffset: 4, HeapIndexStride: 32, HeapOffset: 8},
			first:   0,
			binding: 1,
			index:   2,
			kind:    ir.ResourceSampledImage,
			setup: func(m *machine) {
				m.setPush64(0, 0x2000)
				m.store32(0x2000+3*4+4, 9)
			},
			want: 9*32 + 8,
		},
		{
			name:   "shader record index",
			source: ShaderRecordIndex{ShaderRecordOffset: 12, HeapIndexStride: 8, HeapOffset: 4, HeapArrayStride: 16},
			index:  -1,
			kind:   ir.ResourceSampledImage,
			setup: func(m *machine) {
				m.record = 0x3000
				m.store32(0x300c, 5)
			},
			want: 5*8 + 4,
		},
		{
			name:   "resource heap data",
			source: ResourceHeapData{HeapOffset: 0x100, PushOffset: 4},
			index:  -1,
			kind:   ir.ResourceUniformBuffer,
			setup:  func(m *machine) { m.setPush32(4, 0x40) },
			want:   0x140,
		},
		{
			name:   "heap with push data",
			source: HeapWithPushData{PushDataOffset: 8},
			index:  -1,
			kind:   ir.ResourceReadWriteStorageBuffer,
			setup:  func(m *machine) { m.setPush32(8, 0x77) },
			want:   0x77 + internalHeapBase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			entry := &MappingEntry{FirstBinding: tt.first, BindingCount: 8, ResourceMask: ir.ResourceAll, Source: tt.source}
			binding := tt.binding
			if binding == 0 {
				binding = tt.first
			}
			index := ir.NoValue
			if tt.index >= 0 {
				index = f.b.Imm32(uint32(tt.index))
			}

			off, ok := BuildHeapOffset(f.b, entry, tt.kind, binding, index, tt.isSampler)
			if !ok {
				t.Fatal("BuildHeapOffset() = false, want true")
			}
			if off.Format != Offset32 {
				t.Errorf("format = %s, want %s", off.Format, Offset32)
			}
			if bits := f.fn.Instr(off.Value).Def.BitSize; bits != 32 {
				t.Errorf("offset bit size = %d, want 32", bits)
			}

			m := newMachine()
			if tt.setup != nil {
				tt.setup(m)
			}
			if got := m.eval(t, f.fn, off.Value); got != tt.want {
				t.Errorf("offset = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestBuildHeapOffset_Declines(t *testing.T) {
	tests := []struct {
		name    string
		entry   *MappingEntry
		kind    ir.ResourceKind
		binding uint32
	}{
		{"nil entry", nil, ir.ResourceSampledImage, 0},
		{"no source", &MappingEntry{BindingCount: 1}, ir.ResourceSampledImage, 0},
		{"push data", &MappingEntry{BindingCount: 1, Source: PushData{}}, ir.ResourceUniformBuffer, 0},
		{"push address", &MappingEntry{BindingCount: 1, Source: PushAddress{}}, ir.ResourceUniformBuffer, 0},
		{"indirect address", &MappingEntry{BindingCount: 1, Source: IndirectAddress{}}, ir.ResourceUniformBuffer, 0},
		{"shader record data", &MappingEntry{BindingCount: 1, Source: ShaderRecordData{}}, ir.ResourceUniformBuffer, 0},
		{"shader record address", &MappingEntry{BindingCount: 1, Source: ShaderRecordAddress{}}, ir.ResourceUniformBuffer, 0},
		{"binding outside range", &MappingEntry{FirstBinding: 4, BindingCount: 2, Source: ConstantOffset{}}, ir.ResourceSampledImage, 6},
		{"empty range", &MappingEntry{Source: ConstantOffset{}}, ir.ResourceSampledImage, 0},
		{"kind mask", &MappingEntry{BindingCount: 1, Source: ConstantOffset{}}, ir.ResourceSampledImage | ir.ResourceSampler, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			before := len(f.fn.Instructions)
			if _, ok := BuildHeapOffset(f.b, tt.entry, tt.kind, tt.binding, ir.NoValue, false); ok {
				t.Error("BuildHeapOffset() = true, want false")
			}
			if got := len(f.fn.Instructions); got != before {
				t.Errorf("emitted %d instructions on failure", got-before)
			}
		})
	}
}

func TestBuildHeapOffset_PushRange(t *testing.T) {
	f := newFixture()
	entry := &MappingEntry{BindingCount: 1, Source: PushIndex{PushOffset: 12, HeapIndexStride: 1}}
	if _, ok := BuildHeapOffset(f.b, entry, ir.ResourceSampledImage, 0, ir.NoValue, false); !ok {
		t.Fatal("BuildHeapOffset() = false")
	}

	loads := liveIntrinsics(f.fn, ir.OpLoadPushConstant)
	if len(loads) != 1 {
		t.Fatalf("got %d push constant loads, want 1", len(loads))
	}
	if in := mustIntrinsic(t, f.fn, loads[0]); in.Range != 16 {
		t.Errorf("push constant range = %d, want 16", in.Range)
	}
}

func TestAddressExpr_Expect(t *testing.T) {
	a := AddressExpr{Value: 3, Format: Offset32}
	if v, err := a.expect(Offset32); err != nil || v != 3 {
		t.Errorf("expect(Offset32) = %d, %v", v, err)
	}
	_, err := a.expect(Global64)
	e, ok := err.(*Error)
	if !ok || !e.IsAddressFormat() {
		t.Errorf("expect(Global64) error = %v, want an address format error", err)
	}
}
