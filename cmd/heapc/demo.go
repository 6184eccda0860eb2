package main

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/descheap/heap"
	"github.com/gogpu/descheap/ir"
)

// demoShader builds a fragment shader that samples a texture with a
// separate sampler, reads a uniform block, bumps a counter in a storage
// buffer and writes a storage image.
func demoShader() *ir.Shader {
	reg := ir.NewTypeRegistry()
	u32 := reg.GetOrCreate("u32", ir.ScalarType{Kind: ir.ScalarUint, Width: 4})
	f32 := ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}
	vec4f := reg.GetOrCreate("vec4<f32>", ir.VectorType{Size: ir.Vec4, Scalar: f32})
	texture := reg.GetOrCreate("texture_2d<f32>", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled})
	sampler := reg.GetOrCreate("sampler", ir.SamplerType{})
	globals := reg.GetOrCreate("Globals", ir.StructType{
		Members: []ir.StructMember{
			{Name: "tint", Type: vec4f, Offset: 0},
			{Name: "frame", Type: u32, Offset: 16},
		},
		Span: 32,
	})
	counters := reg.GetOrCreate("Counters", ir.StructType{
		Members: []ir.StructMember{
			{Name: "spawned", Type: u32, Offset: 0},
			{Name: "alive", Type: u32, Offset: 4},
		},
		Span: 8,
	})
	target := reg.GetOrCreate("texture_storage_2d", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassStorage, Format: 37})

	s := &ir.Shader{
		Name:  "demo",
		Stage: ir.StageFragment,
		Types: reg.GetTypes(),
		Variables: []ir.Variable{
			{Name: "albedo", Mode: ir.ModeUniform, Type: texture, Binding: &ir.ResourceBinding{Set: 0, Binding: 0}, ResourceKind: ir.ResourceSampledImage},
			{Name: "linear", Mode: ir.ModeUniform, Type: sampler, Binding: &ir.ResourceBinding{Set: 0, Binding: 4}, ResourceKind: ir.ResourceSampler},
			{Name: "target", Mode: ir.ModeImage, Type: target, Binding: &ir.ResourceBinding{Set: 2, Binding: 0}, ResourceKind: ir.ResourceReadWriteImage},
		},
		Functions: []ir.Function{{Name: "fs_main"}},
	}
	b := ir.NewBuilder(s, &s.Functions[0])
	vec4 := ir.ValueType{Components: 4, BitSize: 32}
	coord := b.Imm32(0)

	color := b.Tex(ir.TexSample, vec4,
		ir.TexSrc{Kind: ir.TexSrcCoord, Value: coord},
		ir.TexSrc{Kind: ir.TexSrcTextureDeref, Value: b.DerefVar(0)},
		ir.TexSrc{Kind: ir.TexSrcSamplerDeref, Value: b.DerefVar(1)})

	ubo := b.LoadVulkanDescriptor(b.ResourceIndex(1, 0, ir.ResourceUniformBuffer, b.Imm32(0)), ir.ResourceUniformBuffer)
	g := b.DerefCast(ubo, ir.ModeUBO, globals, 0)
	b.LoadDeref(vec4, b.DerefStruct(g, 0))

	ssbo := b.LoadVulkanDescriptor(b.ResourceIndex(1, 1, ir.ResourceReadWriteStorageBuffer, b.Imm32(0)), ir.ResourceReadWriteStorageBuffer)
	c := b.DerefCast(ssbo, ir.ModeSSBO, counters, 0)
	b.Intrinsic(&ir.Intrinsic{
		Op:     ir.OpDerefAtomic,
		Srcs:   []ir.ValueHandle{b.DerefStruct(c, 1), b.Imm32(1)},
		Atomic: ir.AtomicAdd,
	}, ir.Uint32)

	b.Intrinsic(&ir.Intrinsic{
		Op:   ir.OpImageDerefStore,
		Srcs: []ir.ValueHandle{b.DerefVar(2), coord, color},
	}, ir.NoResult)
	return s
}

// demoTable maps every resource of demoShader.
func demoTable() heap.MappingTable {
	linear := &heap.SamplerDescriptor{
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		LodMaxClamp:  32,
	}
	return heap.MappingTable{
		{
			DescriptorSet: 0, FirstBinding: 0, BindingCount: 4,
			ResourceMask: ir.ResourceSampledImage,
			Source:       heap.PushIndex{PushOffset: 0, HeapIndexStride: 64},
		},
		{
			DescriptorSet: 0, FirstBinding: 4, BindingCount: 1,
			ResourceMask: ir.ResourceSampler,
			Source:       heap.ConstantOffset{Sampler: linear},
		},
		{
			DescriptorSet: 1, FirstBinding: 0, BindingCount: 1,
			ResourceMask: ir.ResourceUniformBuffer,
			Source:       heap.PushData{PushDataOffset: 16},
		},
		{
			DescriptorSet: 1, FirstBinding: 1, BindingCount: 1,
			ResourceMask: ir.ResourceReadWriteStorageBuffer,
			Source:       heap.PushAddress{PushAddressOffset: 8},
		},
		{
			DescriptorSet: 2, FirstBinding: 0, BindingCount: 1,
			ResourceMask: ir.ResourceReadWriteImage,
			Source:       heap.ConstantOffset{HeapOffset: 4096},
		},
	}
}
