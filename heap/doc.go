// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package heap lowers descriptor set bindings to descriptor heap accesses.
//
// Shaders written against (set, binding) descriptor slots are rewritten so
// every texture, image, buffer and descriptor access computes where its
// descriptor lives: either a 32-bit byte offset into a descriptor heap or
// a 64-bit buffer address.
//
// # Mapping Tables
//
// A MappingTable says, per range of bindings, how that location is found.
// Each MappingEntry carries a Source:
//   - ConstantOffset: a fixed heap offset plus a per-element stride
//   - PushIndex, IndirectIndex, IndirectIndexArray, ShaderRecordIndex:
//     a heap index read from push constants, through a pointer, or from
//     the shader record
//   - PushData, ResourceHeapData: uniform buffer contents stored inline
//   - PushAddress, IndirectAddress, ShaderRecordData, ShaderRecordAddress:
//     a buffer address
//   - HeapWithPushData: an opaque heap offset for driver-internal shaders
//
// Entries are searched in order and the first match wins.
//
// # Lowering
//
//	table := heap.MappingTable{{
//		DescriptorSet: 0,
//		FirstBinding:  0,
//		BindingCount:  16,
//		ResourceMask:  ir.ResourceSampledImage | ir.ResourceSampler,
//		Source:        heap.PushIndex{PushOffset: 0, HeapIndexStride: 64},
//	}}
//	res, err := heap.Lower(shader, table)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Lower visits every block back to front. Each rewrite places the code it
// emits immediately before the instruction it replaces, so instructions
// already visited keep valid operands. Result.Progress is false when nothing
// matched; the shader is then untouched.
//
// Samplers fixed at compile time are collected into an embedded sampler
// table; Result.EmbeddedSamplers lists them by index.
//
// # Caching
//
// MappingTable.Hash digests everything in a table that affects lowering.
// Combine it with a digest of the input shader through CacheKey to key a
// cache of lowered shaders.
package heap
