// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"testing"

	"github.com/gogpu/descheap/ir"
)

// bufferPtrChain emits heap[1] -> load_buffer_ptr_deref -> cast -> .b and
// loads through it. It returns the cast and the member deref.
func bufferPtrChain(f *fixture, kind ir.ResourceKind, mode ir.VariableMode) (cast, member ir.ValueHandle) {
	heapVar := f.addVar(ir.Variable{Name: "heap", Mode: ir.ModeUniform, Type: tyHeapImages, SystemValue: ir.SystemValueResourceHeapPtr})
	elem := f.b.DerefArray(f.b.DerefVar(heapVar), f.b.Imm32(1))
	ptr := f.b.Intrinsic(&ir.Intrinsic{Op: ir.OpLoadBufferPtrDeref, Srcs: []ir.ValueHandle{elem}, ResourceKind: kind}, ir.ValueType{Components: 2, BitSize: 32})
	cast = f.b.DerefCast(ptr, mode, tyBlock, 0)
	member = f.b.DerefStruct(cast, 1)
	f.b.LoadDeref(ir.Uint32, member)
	return cast, member
}

func TestFixupUniformBufferDerefs(t *testing.T) {
	tests := []struct {
		name     string
		kind     ir.ResourceKind
		mode     ir.VariableMode
		wantMode ir.VariableMode
	}{
		{"uniform buffer", ir.ResourceUniformBuffer, ir.ModeUniform, ir.ModeUBO},
		{"storage buffer", ir.ResourceReadWriteStorageBuffer, ir.ModeUniform, ir.ModeUniform},
		{"already storage mode", ir.ResourceUniformBuffer, ir.ModeSSBO, ir.ModeSSBO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			cast, member := bufferPtrChain(f, tt.kind, tt.mode)

			changed := tt.wantMode != tt.mode
			if got := FixupUniformBufferDerefs(f.shader); got != changed {
				t.Errorf("FixupUniformBufferDerefs() = %v, want %v", got, changed)
			}
			for _, h := range []ir.ValueHandle{cast, member} {
				d, _ := f.fn.Deref(h)
				if d.Mode != tt.wantMode {
					t.Errorf("%%%d mode = %s, want %s", h, d.Mode, tt.wantMode)
				}
			}
			if FixupUniformBufferDerefs(f.shader) {
				t.Error("second run reported progress")
			}
		})
	}
}

func TestFixupUniformBufferDerefs_LeavesOtherChains(t *testing.T) {
	f := newFixture()
	tex := f.boundVar("t", ir.ModeUniform, tyImage, ir.ResourceSampledImage, 0, 0)
	f.b.Tex(ir.TexSize, vec4, ir.TexSrc{Kind: ir.TexSrcTextureDeref, Value: tex})
	desc := f.descriptorLoad(0, 1, ir.ResourceUniformBuffer, 0)
	cast := f.bufferCast(desc, ir.ModeUniform, tyBlock)
	f.b.LoadDeref(ir.Uint32, f.b.DerefStruct(cast, 0))

	if FixupUniformBufferDerefs(f.shader) {
		t.Error("FixupUniformBufferDerefs() changed chains without a buffer pointer")
	}
	if FixupUniformBufferDerefs(nil) {
		t.Error("FixupUniformBufferDerefs(nil) = true")
	}
}
