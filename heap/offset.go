// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"fmt"

	"github.com/gogpu/descheap/ir"
)

// AddressFormat tags what an address expression denotes.
type AddressFormat uint8

const (
	// Offset32 is a 32-bit byte offset into a descriptor heap.
	Offset32 AddressFormat = iota
	// Global64 is a 64-bit absolute address.
	Global64
)

func (f AddressFormat) String() string {
	switch f {
	case Offset32:
		return "offset32"
	case Global64:
		return "global64"
	default:
		return "format?"
	}
}

// AddressExpr is an IR value tagged with its address format.
type AddressExpr struct {
	Value  ir.ValueHandle
	Format AddressFormat
}

// expect returns the value if the expression has format f.
func (a AddressExpr) expect(f AddressFormat) (ir.ValueHandle, error) {
	if a.Format != f {
		return ir.NoValue, NewError(ErrAddressFormat, fmt.Sprintf("expected %s, got %s", f, a.Format))
	}
	return a.Value, nil
}

// Packed combined image/sampler index layout.
const (
	packedImageBits   = 20
	packedSamplerBits = 12
)

// offsetRequest carries the inputs of one heap offset computation.
// shaderIndex is built on first use so sources that never need it
// emit nothing for it.
type offsetRequest struct {
	b        *ir.Builder
	entry    *MappingEntry
	binding  uint32
	index    ir.ValueHandle
	combined bool
	sampler  bool

	shaderIdx ir.ValueHandle
}

// samplerHalf reports whether the sampler variant of the source applies.
func (r *offsetRequest) samplerHalf() bool {
	return r.combined && r.sampler
}

// shaderIndex returns index + (binding - firstBinding).
func (r *offsetRequest) shaderIndex() ir.ValueHandle {
	if r.shaderIdx.Valid() {
		return r.shaderIdx
	}
	index := r.index
	if !index.Valid() {
		index = r.b.Imm32(0)
	}
	r.shaderIdx = r.b.IAddImm(index, uint64(r.binding-r.entry.FirstBinding))
	return r.shaderIdx
}

// unpack extracts the image or sampler half of a packed index.
func (r *offsetRequest) unpack(v ir.ValueHandle, packed bool) ir.ValueHandle {
	if !packed || !r.combined {
		return v
	}
	if r.sampler {
		return r.b.UBitfieldExtractImm(v, packedImageBits, packedSamplerBits)
	}
	return r.b.UBitfieldExtractImm(v, 0, packedImageBits)
}

// scaled returns idx*indexStride + heapOffset + shaderIndex*arrayStride.
func (r *offsetRequest) scaled(idx ir.ValueHandle, indexStride, heapOffset, arrayStride uint32) ir.ValueHandle {
	offset := r.b.IAddImm(r.b.IMulImm(idx, uint64(indexStride)), uint64(heapOffset))
	if arrayStride == 0 {
		return offset
	}
	return r.b.IAdd(offset, r.b.IMulImm(r.shaderIndex(), uint64(arrayStride)))
}

func loadPush(b *ir.Builder, bits uint8, offset uint32) ir.ValueHandle {
	def := ir.ValueType{Components: 1, BitSize: bits}
	return b.LoadPushConstant(def, b.Imm32(offset), 0, offset+uint32(bits)/8)
}

func loadIndirect(b *ir.Builder, bits uint8, addr ir.ValueHandle, offset uint32) ir.ValueHandle {
	def := ir.ValueType{Components: 1, BitSize: bits}
	return b.LoadGlobalConstant(def, b.IAddImm(addr, uint64(offset)))
}

func loadShaderRecord(b *ir.Builder, bits uint8, offset uint32) ir.ValueHandle {
	def := ir.ValueType{Components: 1, BitSize: bits}
	return b.LoadGlobalConstant(def, b.IAddImm(b.LoadShaderRecordPtr(), uint64(offset)))
}

// BuildHeapOffset emits the 32-bit heap offset of element index of binding
// under entry, at the builder's cursor. isSampler selects the sampler half
// of a combined image/sampler.
//
// It returns false, emitting nothing, when the entry's source does not
// describe descriptors by heap offset, when kind is not a single resource
// class, or when binding is outside the entry's range.
func BuildHeapOffset(b *ir.Builder, entry *MappingEntry, kind ir.ResourceKind, binding uint32, index ir.ValueHandle, isSampler bool) (AddressExpr, bool) {
	if entry == nil || entry.Source == nil || !kind.Single() || !entry.Contains(binding) {
		return AddressExpr{}, false
	}
	r := &offsetRequest{
		b:         b,
		entry:     entry,
		binding:   binding,
		index:     index,
		combined:  kind == ir.ResourceCombinedSampledImage,
		sampler:   isSampler,
		shaderIdx: ir.NoValue,
	}
	v, ok := entry.Source.heapOffset(r)
	if !ok {
		return AddressExpr{}, false
	}
	return AddressExpr{Value: v, Format: Offset32}, true
}

func (s ConstantOffset) heapOffset(r *offsetRequest) (ir.ValueHandle, bool) {
	heapOffset, arrayStride := s.HeapOffset, s.HeapArrayStride
	if r.samplerHalf() {
		heapOffset, arrayStride = s.SamplerHeapOffset, s.SamplerHeapArrayStride
	}
	return r.b.IAddImm(r.b.IMulImm(r.shaderIndex(), uint64(arrayStride)), uint64(heapOffset)), true
}

func (s PushIndex) heapOffset(r *offsetRequest) (ir.ValueHandle, bool) {
	pushOffset := s.PushOffset
	if r.samplerHalf() && !s.UseCombinedImageSamplerIndex {
		pushOffset = s.SamplerPushOffset
	}
	idx := r.unpack(loadPush(r.b, 32, pushOffset), s.UseCombinedImageSamplerIndex)

	if r.samplerHalf() {
		return r.scaled(idx, s.SamplerHeapIndexStride, s.SamplerHeapOffset, s.SamplerHeapArrayStride), true
	}
	return r.scaled(idx, s.HeapIndexStride, s.HeapOffset, s.HeapArrayStride), true
}

func (s IndirectIndex) heapOffset(r *offsetRequest) (ir.ValueHandle, bool) {
	pushOffset, addressOffset := s.PushOffset, s.AddressOffset
	if r.samplerHalf() && !s.UseCombinedImageSamplerIndex {
		pushOffset, addressOffset = s.SamplerPushOffset, s.SamplerAddressOffset
	}
	addr := loadPush(r.b, 64, pushOffset)
	idx := r.unpack(loadIndirect(r.b, 32, addr, addressOffset), s.UseCombinedImageSamplerIndex)

	if r.samplerHalf() {
		return r.scaled(idx, s.SamplerHeapIndexStride, s.SamplerHeapOffset, s.SamplerHeapArrayStride), true
	}
	return r.scaled(idx, s.HeapIndexStride, s.HeapOffset, s.HeapArrayStride), true
}

func (s IndirectIndexArray) heapOffset(r *offsetRequest) (ir.ValueHandle, bool) {
	pushOffset, addressOffset := s.PushOffset, s.AddressOffset
	if r.samplerHalf() && !s.UseCombinedImageSamplerIndex {
		pushOffset, addressOffset = s.SamplerPushOffset, s.SamplerAddressOffset
	}

	// The shader index selects the array element, not a heap stride.
	addr := loadPush(r.b, 64, pushOffset)
	addr = r.b.IAdd(addr, r.b.U2U64(r.b.IMulImm(r.shaderIndex(), 4)))
	idx := r.unpack(loadIndirect(r.b, 32, addr, addressOffset), s.UseCombinedImageSamplerIndex)

	if r.samplerHalf() {
		return r.scaled(idx, s.SamplerHeapIndexStride, s.SamplerHeapOffset, 0), true
	}
	return r.scaled(idx, s.HeapIndexStride, s.HeapOffset, 0), true
}

func (s ShaderRecordIndex) heapOffset(r *offsetRequest) (ir.ValueHandle, bool) {
	recordOffset := s.ShaderRecordOffset
	if r.samplerHalf() && !s.UseCombinedImageSamplerIndex {
		recordOffset = s.SamplerShaderRecordOffset
	}
	idx := r.unpack(loadShaderRecord(r.b, 32, recordOffset), s.UseCombinedImageSamplerIndex)

	if r.samplerHalf() {
		return r.scaled(idx, s.SamplerHeapIndexStride, s.SamplerHeapOffset, s.SamplerHeapArrayStride), true
	}
	return r.scaled(idx, s.HeapIndexStride, s.HeapOffset, s.HeapArrayStride), true
}

func (s ResourceHeapData) heapOffset(r *offsetRequest) (ir.ValueHandle, bool) {
	return r.b.IAddImm(loadPush(r.b, 32, s.PushOffset), uint64(s.HeapOffset)), true
}

func (s HeapWithPushData) heapOffset(r *offsetRequest) (ir.ValueHandle, bool) {
	data := loadPush(r.b, 32, s.PushDataOffset)
	return r.b.Intrinsic(&ir.Intrinsic{
		Op:   ir.OpInternalResourceHeapOffset,
		Srcs: []ir.ValueHandle{data},
	}, ir.Uint32), true
}

func (PushData) heapOffset(*offsetRequest) (ir.ValueHandle, bool)            { return ir.NoValue, false }
func (PushAddress) heapOffset(*offsetRequest) (ir.ValueHandle, bool)         { return ir.NoValue, false }
func (IndirectAddress) heapOffset(*offsetRequest) (ir.ValueHandle, bool)     { return ir.NoValue, false }
func (ShaderRecordData) heapOffset(*offsetRequest) (ir.ValueHandle, bool)    { return ir.NoValue, false }
func (ShaderRecordAddress) heapOffset(*offsetRequest) (ir.ValueHandle, bool) { return ir.NoValue, false }
