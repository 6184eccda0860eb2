// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// BorderColor selects the color returned for clamp-to-border addressing.
type BorderColor uint8

const (
	BorderTransparentBlack BorderColor = iota
	BorderOpaqueBlack
	BorderOpaqueWhite
	BorderCustom
)

// SamplerDescriptor holds the creation parameters of an embedded sampler.
type SamplerDescriptor struct {
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode

	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode

	MipLodBias float32

	// MaxAnisotropy below 1 disables anisotropic filtering.
	MaxAnisotropy float32

	// Compare is only meaningful when CompareEnable is set.
	CompareEnable bool
	Compare       gputypes.CompareFunction

	LodMinClamp float32
	LodMaxClamp float32

	BorderColor BorderColor

	// CustomBorderColor is only meaningful with BorderCustom.
	CustomBorderColor [4]float32

	UnnormalizedCoordinates bool
}

// SamplerKeySize is the size of the canonical sampler encoding.
const SamplerKeySize = 64

// SamplerKey is the canonical encoding of a sampler descriptor. Two
// descriptors that sample identically have equal keys.
//
// Layout, little endian:
//
//	 0  mag filter       u32
//	 4  min filter       u32
//	 8  mipmap filter    u32
//	12  address U, V, W  3 x u32
//	24  mip LOD bias     f32
//	28  max anisotropy   f32
//	32  flags            u8 (bit 0 compare, bit 1 unnormalized)
//	33  border color     u8
//	34  reserved         2 bytes
//	36  compare function u32
//	40  LOD min clamp    f32
//	44  LOD max clamp    f32
//	48  custom border    4 x f32
type SamplerKey [SamplerKeySize]byte

const (
	keyFlagCompare      = 1 << 0
	keyFlagUnnormalized = 1 << 1
)

// Canonical returns a copy of d with every field that does not affect
// sampling reset to zero.
func (d SamplerDescriptor) Canonical() SamplerDescriptor {
	c := d
	if c.MaxAnisotropy < 1 {
		c.MaxAnisotropy = 0
	}
	if !c.CompareEnable {
		c.Compare = 0
	}
	if c.BorderColor != BorderCustom {
		c.CustomBorderColor = [4]float32{}
	}
	c.MipLodBias = canonicalFloat(c.MipLodBias)
	c.MaxAnisotropy = canonicalFloat(c.MaxAnisotropy)
	c.LodMinClamp = canonicalFloat(c.LodMinClamp)
	c.LodMaxClamp = canonicalFloat(c.LodMaxClamp)
	for i := range c.CustomBorderColor {
		c.CustomBorderColor[i] = canonicalFloat(c.CustomBorderColor[i])
	}
	return c
}

// canonicalFloat folds negative zero into zero.
func canonicalFloat(f float32) float32 {
	if f == 0 {
		return 0
	}
	return f
}

// Key returns the canonical encoding of the descriptor.
func (d SamplerDescriptor) Key() SamplerKey {
	c := d.Canonical()

	var k SamplerKey
	le := binary.LittleEndian
	le.PutUint32(k[0:], uint32(c.MagFilter))
	le.PutUint32(k[4:], uint32(c.MinFilter))
	le.PutUint32(k[8:], uint32(c.MipmapFilter))
	le.PutUint32(k[12:], uint32(c.AddressModeU))
	le.PutUint32(k[16:], uint32(c.AddressModeV))
	le.PutUint32(k[20:], uint32(c.AddressModeW))
	le.PutUint32(k[24:], math.Float32bits(c.MipLodBias))
	le.PutUint32(k[28:], math.Float32bits(c.MaxAnisotropy))

	var flags byte
	if c.CompareEnable {
		flags |= keyFlagCompare
	}
	if c.UnnormalizedCoordinates {
		flags |= keyFlagUnnormalized
	}
	k[32] = flags
	k[33] = byte(c.BorderColor)

	le.PutUint32(k[36:], uint32(c.Compare))
	le.PutUint32(k[40:], math.Float32bits(c.LodMinClamp))
	le.PutUint32(k[44:], math.Float32bits(c.LodMaxClamp))
	for i, f := range c.CustomBorderColor {
		le.PutUint32(k[48+4*i:], math.Float32bits(f))
	}
	return k
}

// Descriptor decodes the key back into a canonical descriptor.
func (k SamplerKey) Descriptor() SamplerDescriptor {
	le := binary.LittleEndian
	d := SamplerDescriptor{
		MagFilter:               gputypes.FilterMode(le.Uint32(k[0:])),
		MinFilter:               gputypes.FilterMode(le.Uint32(k[4:])),
		MipmapFilter:            gputypes.FilterMode(le.Uint32(k[8:])),
		AddressModeU:            gputypes.AddressMode(le.Uint32(k[12:])),
		AddressModeV:            gputypes.AddressMode(le.Uint32(k[16:])),
		AddressModeW:            gputypes.AddressMode(le.Uint32(k[20:])),
		MipLodBias:              math.Float32frombits(le.Uint32(k[24:])),
		MaxAnisotropy:           math.Float32frombits(le.Uint32(k[28:])),
		CompareEnable:           k[32]&keyFlagCompare != 0,
		UnnormalizedCoordinates: k[32]&keyFlagUnnormalized != 0,
		BorderColor:             BorderColor(k[33]),
		Compare:                 gputypes.CompareFunction(le.Uint32(k[36:])),
		LodMinClamp:             math.Float32frombits(le.Uint32(k[40:])),
		LodMaxClamp:             math.Float32frombits(le.Uint32(k[44:])),
	}
	for i := range d.CustomBorderColor {
		d.CustomBorderColor[i] = math.Float32frombits(le.Uint32(k[48+4*i:]))
	}
	return d
}

// EmbeddedSampler is one entry of the embedded sampler table.
type EmbeddedSampler struct {
	Index      uint32
	Key        SamplerKey
	Descriptor SamplerDescriptor
}

// SamplerTable interns embedded samplers. Indices are assigned in
// first-seen order starting at zero and are only meaningful together with
// the table that produced them.
//
// A SamplerTable is not safe for concurrent use.
type SamplerTable struct {
	indices  map[SamplerKey]uint32
	samplers []EmbeddedSampler
}

// NewSamplerTable creates an empty table.
func NewSamplerTable() *SamplerTable {
	return &SamplerTable{indices: make(map[SamplerKey]uint32)}
}

// Intern returns the index of desc, adding it if it is new.
func (t *SamplerTable) Intern(desc *SamplerDescriptor) uint32 {
	return t.InternKey(desc.Key())
}

// InternKey returns the index of the sampler with the given key, adding it
// if it is new.
func (t *SamplerTable) InternKey(key SamplerKey) uint32 {
	if idx, ok := t.indices[key]; ok {
		return idx
	}
	idx := uint32(len(t.samplers))
	t.indices[key] = idx
	t.samplers = append(t.samplers, EmbeddedSampler{
		Index:      idx,
		Key:        key,
		Descriptor: key.Descriptor(),
	})
	return idx
}

// Len returns the number of distinct samplers.
func (t *SamplerTable) Len() int {
	return len(t.samplers)
}

// Samplers returns the interned samplers ordered by index.
func (t *SamplerTable) Samplers() []EmbeddedSampler {
	if len(t.samplers) == 0 {
		return nil
	}
	out := make([]EmbeddedSampler, len(t.samplers))
	copy(out, t.samplers)
	return out
}
