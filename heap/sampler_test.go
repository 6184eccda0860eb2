// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

func linearClamp() SamplerDescriptor {
	return SamplerDescriptor{
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		LodMaxClamp:  32,
	}
}

func TestSamplerTable_Intern(t *testing.T) {
	table := NewSamplerTable()
	a := linearClamp()
	b := linearClamp()
	b.CompareEnable = true
	b.Compare = gputypes.CompareFunctionNotEqual

	if got := table.Intern(&a); got != 0 {
		t.Errorf("first Intern() = %d, want 0", got)
	}
	if got := table.Intern(&a); got != 0 {
		t.Errorf("repeated Intern() = %d, want 0", got)
	}
	if got := table.Intern(&b); got != 1 {
		t.Errorf("second sampler Intern() = %d, want 1", got)
	}
	if got := table.InternKey(a.Key()); got != 0 {
		t.Errorf("InternKey(first key) = %d, want 0", got)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}

	want := []EmbeddedSampler{
		{Index: 0, Key: a.Key(), Descriptor: a.Canonical()},
		{Index: 1, Key: b.Key(), Descriptor: b.Canonical()},
	}
	if diff := cmp.Diff(want, table.Samplers()); diff != "" {
		t.Errorf("Samplers() mismatch (-want +got):\n%s", diff)
	}
}

func TestSamplerTable_Empty(t *testing.T) {
	table := NewSamplerTable()
	if table.Len() != 0 || table.Samplers() != nil {
		t.Errorf("empty table: Len() = %d, Samplers() = %v", table.Len(), table.Samplers())
	}
}

func TestSamplerDescriptor_Canonical(t *testing.T) {
	tests := []struct {
		name   string
		border BorderColor
		modify func(d *SamplerDescriptor)
	}{
		{"compare function without compare", BorderTransparentBlack, func(d *SamplerDescriptor) { d.Compare = gputypes.CompareFunctionAlways }},
		{"anisotropy below one", BorderTransparentBlack, func(d *SamplerDescriptor) { d.MaxAnisotropy = 0.5 }},
		{"negative zero bias", BorderTransparentBlack, func(d *SamplerDescriptor) { d.MipLodBias = float32(math.Copysign(0, -1)) }},
		{"negative zero clamp", BorderTransparentBlack, func(d *SamplerDescriptor) { d.LodMinClamp = float32(math.Copysign(0, -1)) }},
		{"custom color without custom border", BorderOpaqueBlack, func(d *SamplerDescriptor) { d.CustomBorderColor = [4]float32{1, 0, 0, 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := linearClamp()
			base.BorderColor = tt.border
			d := base
			tt.modify(&d)
			if d.Key() != base.Key() {
				t.Error("descriptors that sample identically have different keys")
			}
		})
	}
}

func TestSamplerDescriptor_KeyDistinguishes(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *SamplerDescriptor)
	}{
		{"mag filter", func(d *SamplerDescriptor) { d.MagFilter++ }},
		{"address w", func(d *SamplerDescriptor) { d.AddressModeW++ }},
		{"bias", func(d *SamplerDescriptor) { d.MipLodBias = 0.5 }},
		{"anisotropy", func(d *SamplerDescriptor) { d.MaxAnisotropy = 8 }},
		{"compare", func(d *SamplerDescriptor) { d.CompareEnable = true }},
		{"lod max", func(d *SamplerDescriptor) { d.LodMaxClamp = 4 }},
		{"border", func(d *SamplerDescriptor) { d.BorderColor = BorderOpaqueWhite }},
		{"custom border", func(d *SamplerDescriptor) {
			d.BorderColor = BorderCustom
			d.CustomBorderColor = [4]float32{0, 0, 0, 0.5}
		}},
		{"unnormalized", func(d *SamplerDescriptor) { d.UnnormalizedCoordinates = true }},
	}
	base := linearClamp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := linearClamp()
			tt.modify(&d)
			if d.Key() == base.Key() {
				t.Error("key did not change")
			}
		})
	}
}

func TestSamplerKey_Layout(t *testing.T) {
	d := linearClamp()
	d.CompareEnable = true
	d.Compare = gputypes.CompareFunctionNotEqual
	d.UnnormalizedCoordinates = true
	d.BorderColor = BorderCustom
	d.CustomBorderColor = [4]float32{0.25, 0.5, 0.75, 1}
	k := d.Key()

	le := binary.LittleEndian
	if got := le.Uint32(k[0:]); got != uint32(gputypes.FilterModeLinear) {
		t.Errorf("mag filter = %d", got)
	}
	if got := le.Uint32(k[12:]); got != uint32(gputypes.AddressModeClampToEdge) {
		t.Errorf("address mode u = %d", got)
	}
	if k[32] != keyFlagCompare|keyFlagUnnormalized {
		t.Errorf("flags = %#x", k[32])
	}
	if k[33] != byte(BorderCustom) {
		t.Errorf("border = %d", k[33])
	}
	if got := le.Uint32(k[36:]); got != uint32(gputypes.CompareFunctionNotEqual) {
		t.Errorf("compare = %d", got)
	}
	if got := math.Float32frombits(le.Uint32(k[44:])); got != 32 {
		t.Errorf("lod max clamp = %v", got)
	}
	if got := math.Float32frombits(le.Uint32(k[56:])); got != 0.75 {
		t.Errorf("custom border blue = %v", got)
	}

	if diff := cmp.Diff(d.Canonical(), k.Descriptor()); diff != "" {
		t.Errorf("Descriptor() mismatch (-want +got):\n%s", diff)
	}
}
