// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import "github.com/gogpu/descheap/ir"

// BuildHeapAddress emits the 64-bit address of the buffer bound at binding
// under entry. Address sources describe a single buffer, so binding and
// index do not contribute to the result.
//
// It returns false, emitting nothing, for sources that are not
// address based.
func BuildHeapAddress(b *ir.Builder, entry *MappingEntry, binding uint32, index ir.ValueHandle) (AddressExpr, bool) {
	if entry == nil || entry.Source == nil {
		return AddressExpr{}, false
	}
	v, ok := entry.Source.heapAddress(b)
	if !ok {
		return AddressExpr{}, false
	}
	return AddressExpr{Value: v, Format: Global64}, true
}

func (s PushAddress) heapAddress(b *ir.Builder) (ir.ValueHandle, bool) {
	return loadPush(b, 64, s.PushAddressOffset), true
}

func (s IndirectAddress) heapAddress(b *ir.Builder) (ir.ValueHandle, bool) {
	return loadIndirect(b, 64, loadPush(b, 64, s.PushOffset), s.AddressOffset), true
}

func (s ShaderRecordData) heapAddress(b *ir.Builder) (ir.ValueHandle, bool) {
	return b.IAddImm(b.LoadShaderRecordPtr(), uint64(s.ShaderRecordDataOffset)), true
}

func (s ShaderRecordAddress) heapAddress(b *ir.Builder) (ir.ValueHandle, bool) {
	return loadShaderRecord(b, 64, s.ShaderRecordAddressOffset), true
}

func (ConstantOffset) heapAddress(*ir.Builder) (ir.ValueHandle, bool)     { return ir.NoValue, false }
func (PushIndex) heapAddress(*ir.Builder) (ir.ValueHandle, bool)          { return ir.NoValue, false }
func (IndirectIndex) heapAddress(*ir.Builder) (ir.ValueHandle, bool)      { return ir.NoValue, false }
func (IndirectIndexArray) heapAddress(*ir.Builder) (ir.ValueHandle, bool) { return ir.NoValue, false }
func (ShaderRecordIndex) heapAddress(*ir.Builder) (ir.ValueHandle, bool)  { return ir.NoValue, false }
func (ResourceHeapData) heapAddress(*ir.Builder) (ir.ValueHandle, bool)   { return ir.NoValue, false }
func (PushData) heapAddress(*ir.Builder) (ir.ValueHandle, bool)           { return ir.NoValue, false }
func (HeapWithPushData) heapAddress(*ir.Builder) (ir.ValueHandle, bool)   { return ir.NoValue, false }
