// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"errors"
	"fmt"

	"github.com/gogpu/descheap/ir"
)

// SourceKind identifies a mapping source. The numeric values are part of
// the mapping table digest and must not be reordered.
type SourceKind uint32

const (
	SourceConstantOffset SourceKind = iota
	SourcePushIndex
	SourceIndirectIndex
	SourceIndirectIndexArray
	SourceResourceHeapData
	SourcePushData
	SourcePushAddress
	SourceIndirectAddress
	SourceShaderRecordIndex
	SourceShaderRecordData
	SourceShaderRecordAddress
	SourceHeapWithPushData
	sourceKindCount
)

var sourceKindNames = [sourceKindCount]string{
	SourceConstantOffset:      "constant_offset",
	SourcePushIndex:           "push_index",
	SourceIndirectIndex:       "indirect_index",
	SourceIndirectIndexArray:  "indirect_index_array",
	SourceResourceHeapData:    "resource_heap_data",
	SourcePushData:            "push_data",
	SourcePushAddress:         "push_address",
	SourceIndirectAddress:     "indirect_address",
	SourceShaderRecordIndex:   "shader_record_index",
	SourceShaderRecordData:    "shader_record_data",
	SourceShaderRecordAddress: "shader_record_address",
	SourceHeapWithPushData:    "heap_with_push_data",
}

func (k SourceKind) String() string {
	if k < sourceKindCount {
		return sourceKindNames[k]
	}
	return fmt.Sprintf("source(%d)", uint32(k))
}

// ParseSourceKind maps a source name back to its kind.
func ParseSourceKind(name string) (SourceKind, bool) {
	for k, n := range sourceKindNames {
		if n == name {
			return SourceKind(k), true
		}
	}
	return 0, false
}

// accessClass groups sources by how the resource they describe is reached.
type accessClass uint8

const (
	accessHeapOffset accessClass = iota // descriptor at a heap offset
	accessAddress                       // buffer at a 64-bit address
	accessPushData                      // buffer contents inline in push constants
	accessHeapData                      // buffer contents inline in the resource heap
)

// Source describes how a mapping entry locates its descriptors.
//
// The set of sources is closed: every kind implements every operation the
// pass dispatches on, so adding a kind does not compile until each of
// them is written.
type Source interface {
	Kind() SourceKind

	// EmbeddedSampler returns the sampler baked into the program for this
	// entry, or nil.
	EmbeddedSampler() *SamplerDescriptor

	access() accessClass
	heapOffset(r *offsetRequest) (ir.ValueHandle, bool)
	heapAddress(b *ir.Builder) (ir.ValueHandle, bool)
	hash(w *hashWriter)
	validate() error
}

// ConstantOffset places descriptors at a fixed heap offset.
type ConstantOffset struct {
	HeapOffset      uint32
	HeapArrayStride uint32
	Sampler         *SamplerDescriptor

	SamplerHeapOffset      uint32
	SamplerHeapArrayStride uint32
}

// PushIndex reads a heap index from push constants.
type PushIndex struct {
	HeapOffset      uint32
	PushOffset      uint32
	HeapIndexStride uint32
	HeapArrayStride uint32
	Sampler         *SamplerDescriptor

	// UseCombinedImageSamplerIndex packs the image index in bits [0,20)
	// and the sampler index in bits [20,32) of a single value.
	UseCombinedImageSamplerIndex bool

	SamplerHeapOffset      uint32
	SamplerPushOffset      uint32
	SamplerHeapIndexStride uint32
	SamplerHeapArrayStride uint32
}

// IndirectIndex reads a heap index through a pointer held in push constants.
type IndirectIndex struct {
	HeapOffset      uint32
	PushOffset      uint32
	AddressOffset   uint32
	HeapIndexStride uint32
	HeapArrayStride uint32
	Sampler         *SamplerDescriptor

	UseCombinedImageSamplerIndex bool

	SamplerHeapOffset      uint32
	SamplerPushOffset      uint32
	SamplerAddressOffset   uint32
	SamplerHeapIndexStride uint32
	SamplerHeapArrayStride uint32
}

// IndirectIndexArray reads one heap index per array element from an array
// of 32-bit indices addressed through push constants.
type IndirectIndexArray struct {
	HeapOffset      uint32
	PushOffset      uint32
	AddressOffset   uint32
	HeapIndexStride uint32
	Sampler         *SamplerDescriptor

	UseCombinedImageSamplerIndex bool

	SamplerHeapOffset      uint32
	SamplerPushOffset      uint32
	SamplerAddressOffset   uint32
	SamplerHeapIndexStride uint32
}

// ShaderRecordIndex reads a heap index from the shader record.
type ShaderRecordIndex struct {
	HeapOffset         uint32
	ShaderRecordOffset uint32
	HeapIndexStride    uint32
	HeapArrayStride    uint32
	Sampler            *SamplerDescriptor

	UseCombinedImageSamplerIndex bool

	SamplerHeapOffset         uint32
	SamplerShaderRecordOffset uint32
	SamplerHeapIndexStride    uint32
	SamplerHeapArrayStride    uint32
}

// ResourceHeapData places uniform buffer contents directly in the resource
// heap at a push constant offset plus HeapOffset.
type ResourceHeapData struct {
	HeapOffset uint32
	PushOffset uint32
}

// PushData places uniform buffer contents directly in push constants.
type PushData struct {
	PushDataOffset uint32
}

// PushAddress reads a buffer address from push constants.
type PushAddress struct {
	PushAddressOffset uint32
}

// IndirectAddress reads a buffer address through a pointer held in push
// constants.
type IndirectAddress struct {
	PushOffset    uint32
	AddressOffset uint32
}

// ShaderRecordData places buffer contents in the shader record.
type ShaderRecordData struct {
	ShaderRecordDataOffset uint32
}

// ShaderRecordAddress reads a buffer address from the shader record.
type ShaderRecordAddress struct {
	ShaderRecordAddressOffset uint32
}

// HeapWithPushData is used by driver-internal shaders: the push constant
// value is an opaque heap offset that the backend resolves.
type HeapWithPushData struct {
	PushDataOffset uint32
}

func (ConstantOffset) Kind() SourceKind      { return SourceConstantOffset }
func (PushIndex) Kind() SourceKind           { return SourcePushIndex }
func (IndirectIndex) Kind() SourceKind       { return SourceIndirectIndex }
func (IndirectIndexArray) Kind() SourceKind  { return SourceIndirectIndexArray }
func (ShaderRecordIndex) Kind() SourceKind   { return SourceShaderRecordIndex }
func (ResourceHeapData) Kind() SourceKind    { return SourceResourceHeapData }
func (PushData) Kind() SourceKind            { return SourcePushData }
func (PushAddress) Kind() SourceKind         { return SourcePushAddress }
func (IndirectAddress) Kind() SourceKind     { return SourceIndirectAddress }
func (ShaderRecordData) Kind() SourceKind    { return SourceShaderRecordData }
func (ShaderRecordAddress) Kind() SourceKind { return SourceShaderRecordAddress }
func (HeapWithPushData) Kind() SourceKind    { return SourceHeapWithPushData }

func (s ConstantOffset) EmbeddedSampler() *SamplerDescriptor     { return s.Sampler }
func (s PushIndex) EmbeddedSampler() *SamplerDescriptor          { return s.Sampler }
func (s IndirectIndex) EmbeddedSampler() *SamplerDescriptor      { return s.Sampler }
func (s IndirectIndexArray) EmbeddedSampler() *SamplerDescriptor { return s.Sampler }
func (s ShaderRecordIndex) EmbeddedSampler() *SamplerDescriptor  { return s.Sampler }
func (ResourceHeapData) EmbeddedSampler() *SamplerDescriptor     { return nil }
func (PushData) EmbeddedSampler() *SamplerDescriptor             { return nil }
func (PushAddress) EmbeddedSampler() *SamplerDescriptor          { return nil }
func (IndirectAddress) EmbeddedSampler() *SamplerDescriptor      { return nil }
func (ShaderRecordData) EmbeddedSampler() *SamplerDescriptor     { return nil }
func (ShaderRecordAddress) EmbeddedSampler() *SamplerDescriptor  { return nil }
func (HeapWithPushData) EmbeddedSampler() *SamplerDescriptor     { return nil }

func (ConstantOffset) access() accessClass      { return accessHeapOffset }
func (PushIndex) access() accessClass           { return accessHeapOffset }
func (IndirectIndex) access() accessClass       { return accessHeapOffset }
func (IndirectIndexArray) access() accessClass  { return accessHeapOffset }
func (ShaderRecordIndex) access() accessClass   { return accessHeapOffset }
func (ResourceHeapData) access() accessClass    { return accessHeapData }
func (PushData) access() accessClass            { return accessPushData }
func (PushAddress) access() accessClass         { return accessAddress }
func (IndirectAddress) access() accessClass     { return accessAddress }
func (ShaderRecordData) access() accessClass    { return accessAddress }
func (ShaderRecordAddress) access() accessClass { return accessAddress }
func (HeapWithPushData) access() accessClass    { return accessHeapOffset }

// alignment is one byte offset that is loaded with a given width.
type alignment struct {
	field  string
	offset uint32
	width  uint32
}

func checkAlignment(fields ...alignment) error {
	var errs []error
	for _, f := range fields {
		if f.offset%f.width != 0 {
			errs = append(errs, fmt.Errorf("%s %d is not a multiple of %d", f.field, f.offset, f.width))
		}
	}
	return errors.Join(errs...)
}

func (ConstantOffset) validate() error { return nil }

func (s PushIndex) validate() error {
	return checkAlignment(
		alignment{"push offset", s.PushOffset, 4},
		alignment{"sampler push offset", s.SamplerPushOffset, 4},
	)
}

func (s IndirectIndex) validate() error {
	return checkAlignment(
		alignment{"push offset", s.PushOffset, 8},
		alignment{"address offset", s.AddressOffset, 4},
		alignment{"sampler push offset", s.SamplerPushOffset, 8},
		alignment{"sampler address offset", s.SamplerAddressOffset, 4},
	)
}

func (s IndirectIndexArray) validate() error {
	return checkAlignment(
		alignment{"push offset", s.PushOffset, 8},
		alignment{"address offset", s.AddressOffset, 4},
		alignment{"sampler push offset", s.SamplerPushOffset, 8},
		alignment{"sampler address offset", s.SamplerAddressOffset, 4},
	)
}

func (s ShaderRecordIndex) validate() error {
	return checkAlignment(
		alignment{"shader record offset", s.ShaderRecordOffset, 4},
		alignment{"sampler shader record offset", s.SamplerShaderRecordOffset, 4},
	)
}

func (s ResourceHeapData) validate() error {
	return checkAlignment(alignment{"push offset", s.PushOffset, 4})
}

func (PushData) validate() error { return nil }

func (s PushAddress) validate() error {
	return checkAlignment(alignment{"push address offset", s.PushAddressOffset, 8})
}

func (s IndirectAddress) validate() error {
	return checkAlignment(
		alignment{"push offset", s.PushOffset, 8},
		alignment{"address offset", s.AddressOffset, 8},
	)
}

func (ShaderRecordData) validate() error { return nil }

func (s ShaderRecordAddress) validate() error {
	return checkAlignment(alignment{"shader record address offset", s.ShaderRecordAddressOffset, 8})
}

func (s HeapWithPushData) validate() error {
	return checkAlignment(alignment{"push data offset", s.PushDataOffset, 4})
}
