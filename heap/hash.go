// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/zeebo/blake3"
)

// Digest is a BLAKE3-256 content hash.
type Digest [32]byte

// String returns the digest in lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// noSource is written in place of the kind of an entry without a source.
const noSource = 0xffffffff

// hashWriter feeds fixed-width little-endian fields into a hash.
type hashWriter struct {
	h   hash.Hash
	buf [8]byte
}

func (w *hashWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	_, _ = w.h.Write(w.buf[:4])
}

func (w *hashWriter) flag(v bool) {
	w.buf[0] = 0
	if v {
		w.buf[0] = 1
	}
	_, _ = w.h.Write(w.buf[:1])
}

// sampler writes a presence byte followed by the canonical key.
func (w *hashWriter) sampler(d *SamplerDescriptor) {
	w.flag(d != nil)
	if d == nil {
		return
	}
	k := d.Key()
	_, _ = w.h.Write(k[:])
}

// Hash returns a digest of everything in the table that affects lowering.
// Equal tables, including equal embedded samplers, hash equally; changing
// any field changes the digest.
func (t MappingTable) Hash() Digest {
	w := &hashWriter{h: blake3.New()}
	w.u32(uint32(len(t)))
	for i := range t {
		e := &t[i]
		w.u32(e.DescriptorSet)
		w.u32(e.FirstBinding)
		w.u32(e.BindingCount)
		w.u32(uint32(e.ResourceMask))
		if e.Source == nil {
			w.u32(noSource)
			continue
		}
		w.u32(uint32(e.Source.Kind()))
		e.Source.hash(w)
	}

	var d Digest
	copy(d[:], w.h.Sum(nil))
	return d
}

// CacheKey combines a mapping table digest with a digest of the input
// shader into the key of a lowered shader.
func CacheKey(table, shader Digest) Digest {
	h := blake3.New()
	_, _ = h.Write([]byte("descheap.lowered.v1"))
	_, _ = h.Write(table[:])
	_, _ = h.Write(shader[:])

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func (s ConstantOffset) hash(w *hashWriter) {
	w.u32(s.HeapOffset)
	w.u32(s.HeapArrayStride)
	w.sampler(s.Sampler)
	w.u32(s.SamplerHeapOffset)
	w.u32(s.SamplerHeapArrayStride)
}

func (s PushIndex) hash(w *hashWriter) {
	w.u32(s.HeapOffset)
	w.u32(s.PushOffset)
	w.u32(s.HeapIndexStride)
	w.u32(s.HeapArrayStride)
	w.sampler(s.Sampler)
	w.flag(s.UseCombinedImageSamplerIndex)
	w.u32(s.SamplerHeapOffset)
	w.u32(s.SamplerPushOffset)
	w.u32(s.SamplerHeapIndexStride)
	w.u32(s.SamplerHeapArrayStride)
}

func (s IndirectIndex) hash(w *hashWriter) {
	w.u32(s.HeapOffset)
	w.u32(s.PushOffset)
	w.u32(s.AddressOffset)
	w.u32(s.HeapIndexStride)
	w.u32(s.HeapArrayStride)
	w.sampler(s.Sampler)
	w.flag(s.UseCombinedImageSamplerIndex)
	w.u32(s.SamplerHeapOffset)
	w.u32(s.SamplerPushOffset)
	w.u32(s.SamplerAddressOffset)
	w.u32(s.SamplerHeapIndexStride)
	w.u32(s.SamplerHeapArrayStride)
}

func (s IndirectIndexArray) hash(w *hashWriter) {
	w.u32(s.HeapOffset)
	w.u32(s.PushOffset)
	w.u32(s.AddressOffset)
	w.u32(s.HeapIndexStride)
	w.sampler(s.Sampler)
	w.flag(s.UseCombinedImageSamplerIndex)
	w.u32(s.SamplerHeapOffset)
	w.u32(s.SamplerPushOffset)
	w.u32(s.SamplerAddressOffset)
	w.u32(s.SamplerHeapIndexStride)
}

func (s ShaderRecordIndex) hash(w *hashWriter) {
	w.u32(s.HeapOffset)
	w.u32(s.ShaderRecordOffset)
	w.u32(s.HeapIndexStride)
	w.u32(s.HeapArrayStride)
	w.sampler(s.Sampler)
	w.flag(s.UseCombinedImageSamplerIndex)
	w.u32(s.SamplerHeapOffset)
	w.u32(s.SamplerShaderRecordOffset)
	w.u32(s.SamplerHeapIndexStride)
	w.u32(s.SamplerHeapArrayStride)
}

func (s ResourceHeapData) hash(w *hashWriter) {
	w.u32(s.HeapOffset)
	w.u32(s.PushOffset)
}

func (s PushData) hash(w *hashWriter)            { w.u32(s.PushDataOffset) }
func (s PushAddress) hash(w *hashWriter)         { w.u32(s.PushAddressOffset) }
func (s ShaderRecordData) hash(w *hashWriter)    { w.u32(s.ShaderRecordDataOffset) }
func (s ShaderRecordAddress) hash(w *hashWriter) { w.u32(s.ShaderRecordAddressOffset) }
func (s HeapWithPushData) hash(w *hashWriter)    { w.u32(s.PushDataOffset) }

func (s IndirectAddress) hash(w *hashWriter) {
	w.u32(s.PushOffset)
	w.u32(s.AddressOffset)
}
