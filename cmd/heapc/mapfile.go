package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/descheap/heap"
	"github.com/gogpu/descheap/ir"
)

// mapFile is the YAML form of a mapping table:
//
//	entries:
//	  - set: 0
//	    first_binding: 0
//	    count: 16
//	    kinds: [sampled_image, combined_sampled_image]
//	    source:
//	      kind: push_index
//	      push_offset: 0
//	      index_stride: 64
//	      sampler_push_offset: 4
//	      sampler_index_stride: 32
//
// Offsets and strides are in bytes. Fields a source kind does not use are
// ignored.
type mapFile struct {
	Entries []entryFile `yaml:"entries"`
}

type entryFile struct {
	Set          uint32     `yaml:"set"`
	FirstBinding uint32     `yaml:"first_binding"`
	Count        uint32     `yaml:"count"`
	Kinds        []string   `yaml:"kinds"`
	Source       sourceFile `yaml:"source"`
}

type sourceFile struct {
	Kind string `yaml:"kind"`

	HeapOffset         uint32 `yaml:"heap_offset"`
	PushOffset         uint32 `yaml:"push_offset"`
	AddressOffset      uint32 `yaml:"address_offset"`
	ShaderRecordOffset uint32 `yaml:"shader_record_offset"`
	IndexStride        uint32 `yaml:"index_stride"`
	ArrayStride        uint32 `yaml:"array_stride"`
	CombinedIndex      bool   `yaml:"combined_index"`

	SamplerHeapOffset         uint32 `yaml:"sampler_heap_offset"`
	SamplerPushOffset         uint32 `yaml:"sampler_push_offset"`
	SamplerAddressOffset      uint32 `yaml:"sampler_address_offset"`
	SamplerShaderRecordOffset uint32 `yaml:"sampler_shader_record_offset"`
	SamplerIndexStride        uint32 `yaml:"sampler_index_stride"`
	SamplerArrayStride        uint32 `yaml:"sampler_array_stride"`

	Sampler *samplerFile `yaml:"sampler"`
}

// samplerFile describes an embedded sampler. Filter, address and compare
// values use the numeric gputypes encoding.
type samplerFile struct {
	MagFilter     gputypes.FilterMode      `yaml:"mag_filter"`
	MinFilter     gputypes.FilterMode      `yaml:"min_filter"`
	MipmapFilter  gputypes.FilterMode      `yaml:"mipmap_filter"`
	AddressModeU  gputypes.AddressMode     `yaml:"address_mode_u"`
	AddressModeV  gputypes.AddressMode     `yaml:"address_mode_v"`
	AddressModeW  gputypes.AddressMode     `yaml:"address_mode_w"`
	MipLodBias    float32                  `yaml:"mip_lod_bias"`
	MaxAnisotropy float32                  `yaml:"max_anisotropy"`
	CompareEnable bool                     `yaml:"compare_enable"`
	Compare       gputypes.CompareFunction `yaml:"compare"`
	LodMinClamp   float32                  `yaml:"lod_min_clamp"`
	LodMaxClamp   float32                  `yaml:"lod_max_clamp"`
	BorderColor   string                   `yaml:"border_color"`
	CustomBorder  []float32                `yaml:"custom_border_color"`
	Unnormalized  bool                     `yaml:"unnormalized_coordinates"`
}

var borderColors = map[string]heap.BorderColor{
	"":                  heap.BorderTransparentBlack,
	"transparent_black": heap.BorderTransparentBlack,
	"opaque_black":      heap.BorderOpaqueBlack,
	"opaque_white":      heap.BorderOpaqueWhite,
	"custom":            heap.BorderCustom,
}

// loadMapping reads and validates a mapping table from a YAML file.
func loadMapping(path string) (heap.MappingTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := decodeMapping(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func decodeMapping(r io.Reader) (heap.MappingTable, error) {
	var mf mapFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	table := make(heap.MappingTable, 0, len(mf.Entries))
	for i, e := range mf.Entries {
		entry, err := e.entry()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		table = append(table, entry)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func (e *entryFile) entry() (heap.MappingEntry, error) {
	var mask ir.ResourceKind
	for _, name := range e.Kinds {
		kind, ok := ir.ParseResourceKind(name)
		if !ok {
			return heap.MappingEntry{}, fmt.Errorf("unknown resource kind %q", name)
		}
		mask |= kind
	}
	src, err := e.Source.source()
	if err != nil {
		return heap.MappingEntry{}, err
	}
	return heap.MappingEntry{
		DescriptorSet: e.Set,
		FirstBinding:  e.FirstBinding,
		BindingCount:  e.Count,
		ResourceMask:  mask,
		Source:        src,
	}, nil
}

//nolint:gocyclo,cyclop // one case per source kind
func (s *sourceFile) source() (heap.Source, error) {
	kind, ok := heap.ParseSourceKind(s.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown source kind %q", s.Kind)
	}
	sampler, err := s.Sampler.descriptor()
	if err != nil {
		return nil, err
	}

	switch kind {
	case heap.SourceConstantOffset:
		return heap.ConstantOffset{
			HeapOffset:             s.HeapOffset,
			HeapArrayStride:        s.ArrayStride,
			Sampler:                sampler,
			SamplerHeapOffset:      s.SamplerHeapOffset,
			SamplerHeapArrayStride: s.SamplerArrayStride,
		}, nil
	case heap.SourcePushIndex:
		return heap.PushIndex{
			HeapOffset:                   s.HeapOffset,
			PushOffset:                   s.PushOffset,
			HeapIndexStride:              s.IndexStride,
			HeapArrayStride:              s.ArrayStride,
			Sampler:                      sampler,
			UseCombinedImageSamplerIndex: s.CombinedIndex,
			SamplerHeapOffset:            s.SamplerHeapOffset,
			SamplerPushOffset:            s.SamplerPushOffset,
			SamplerHeapIndexStride:       s.SamplerIndexStride,
			SamplerHeapArrayStride:       s.SamplerArrayStride,
		}, nil
	case heap.SourceIndirectIndex:
		return heap.IndirectIndex{
			HeapOffset:                   s.HeapOffset,
			PushOffset:                   s.PushOffset,
			AddressOffset:                s.AddressOffset,
			HeapIndexStride:              s.IndexStride,
			HeapArrayStride:              s.ArrayStride,
			Sampler:                      sampler,
			UseCombinedImageSamplerIndex: s.CombinedIndex,
			SamplerHeapOffset:            s.SamplerHeapOffset,
			SamplerPushOffset:            s.SamplerPushOffset,
			SamplerAddressOffset:         s.SamplerAddressOffset,
			SamplerHeapIndexStride:       s.SamplerIndexStride,
			SamplerHeapArrayStride:       s.SamplerArrayStride,
		}, nil
	case heap.SourceIndirectIndexArray:
		return heap.IndirectIndexArray{
			HeapOffset:                   s.HeapOffset,
			PushOffset:                   s.PushOffset,
			AddressOffset:                s.AddressOffset,
			HeapIndexStride:              s.IndexStride,
			Sampler:                      sampler,
			UseCombinedImageSamplerIndex: s.CombinedIndex,
			SamplerHeapOffset:            s.SamplerHeapOffset,
			SamplerPushOffset:            s.SamplerPushOffset,
			SamplerAddressOffset:         s.SamplerAddressOffset,
			SamplerHeapIndexStride:       s.SamplerIndexStride,
		}, nil
	case heap.SourceShaderRecordIndex:
		return heap.ShaderRecordIndex{
			HeapOffset:                   s.HeapOffset,
			ShaderRecordOffset:           s.ShaderRecordOffset,
			HeapIndexStride:              s.IndexStride,
			HeapArrayStride:              s.ArrayStride,
			Sampler:                      sampler,
			UseCombinedImageSamplerIndex: s.CombinedIndex,
			SamplerHeapOffset:            s.SamplerHeapOffset,
			SamplerShaderRecordOffset:    s.SamplerShaderRecordOffset,
			SamplerHeapIndexStride:       s.SamplerIndexStride,
			SamplerHeapArrayStride:       s.SamplerArrayStride,
		}, nil
	case heap.SourceResourceHeapData:
		return heap.ResourceHeapData{HeapOffset: s.HeapOffset, PushOffset: s.PushOffset}, nil
	case heap.SourcePushData:
		return heap.PushData{PushDataOffset: s.PushOffset}, nil
	case heap.SourcePushAddress:
		return heap.PushAddress{PushAddressOffset: s.PushOffset}, nil
	case heap.SourceIndirectAddress:
		return heap.IndirectAddress{PushOffset: s.PushOffset, AddressOffset: s.AddressOffset}, nil
	case heap.SourceShaderRecordData:
		return heap.ShaderRecordData{ShaderRecordDataOffset: s.ShaderRecordOffset}, nil
	case heap.SourceShaderRecordAddress:
		return heap.ShaderRecordAddress{ShaderRecordAddressOffset: s.ShaderRecordOffset}, nil
	case heap.SourceHeapWithPushData:
		return heap.HeapWithPushData{PushDataOffset: s.PushOffset}, nil
	}
	return nil, fmt.Errorf("source kind %s cannot be read from a file", kind)
}

func (s *samplerFile) descriptor() (*heap.SamplerDescriptor, error) {
	if s == nil {
		return nil, nil
	}
	border, ok := borderColors[s.BorderColor]
	if !ok {
		return nil, fmt.Errorf("unknown border color %q", s.BorderColor)
	}
	d := &heap.SamplerDescriptor{
		MagFilter:               s.MagFilter,
		MinFilter:               s.MinFilter,
		MipmapFilter:            s.MipmapFilter,
		AddressModeU:            s.AddressModeU,
		AddressModeV:            s.AddressModeV,
		AddressModeW:            s.AddressModeW,
		MipLodBias:              s.MipLodBias,
		MaxAnisotropy:           s.MaxAnisotropy,
		CompareEnable:           s.CompareEnable,
		Compare:                 s.Compare,
		LodMinClamp:             s.LodMinClamp,
		LodMaxClamp:             s.LodMaxClamp,
		BorderColor:             border,
		UnnormalizedCoordinates: s.Unnormalized,
	}
	switch len(s.CustomBorder) {
	case 0:
	case 4:
		copy(d.CustomBorderColor[:], s.CustomBorder)
	default:
		return nil, fmt.Errorf("custom border color has %d components, want 4", len(s.CustomBorder))
	}
	return d, nil
}
