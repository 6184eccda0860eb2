// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import "github.com/gogpu/descheap/ir"

// FixupUniformBufferDerefs retags deref chains that reach a uniform buffer
// through a heap pointer. A chain that starts in uniform mode and passes
// through a cast of a load_buffer_ptr_deref of a uniform buffer descriptor
// is moved to UBO mode in full, so later stages treat it as a buffer
// access. It reports whether any deref changed.
//
// Run it before Lower when front ends emit such chains in uniform mode.
func FixupUniformBufferDerefs(shader *ir.Shader) bool {
	if shader == nil {
		return false
	}
	progress := false
	for i := range shader.Functions {
		fn := &shader.Functions[i]
		for _, h := range fn.Live() {
			in, ok := fn.Intrinsic(h)
			if !ok || !in.Op.Is(ir.FlagDerefAccess) || len(in.Srcs) == 0 {
				continue
			}
			if retagUniformPath(fn, in.Srcs[0]) {
				progress = true
			}
		}
	}
	return progress
}

func retagUniformPath(fn *ir.Function, deref ir.ValueHandle) bool {
	path := derefPath(fn, deref)
	found := false
	for _, h := range path {
		d, _ := fn.Deref(h)
		if d.Mode != ir.ModeUniform {
			break
		}
		if d.DerefType == ir.DerefCast && isUniformBufferPtr(fn, d.Parent) {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	changed := false
	for _, h := range path {
		d, _ := fn.Deref(h)
		if d.Mode != ir.ModeUBO {
			d.Mode = ir.ModeUBO
			changed = true
		}
	}
	return changed
}

func isUniformBufferPtr(fn *ir.Function, h ir.ValueHandle) bool {
	in, ok := fn.Intrinsic(h)
	return ok && in.Op == ir.OpLoadBufferPtrDeref && in.ResourceKind == ir.ResourceUniformBuffer
}
