package ir

import (
	"fmt"
	"io"
	"strings"
)

var stageNames = [...]string{
	StageVertex:       "vertex",
	StageFragment:     "fragment",
	StageCompute:      "compute",
	StageRayGen:       "raygen",
	StageClosestHit:   "closest_hit",
	StageAnyHit:       "any_hit",
	StageMiss:         "miss",
	StageIntersection: "intersection",
	StageCallable:     "callable",
}

func (s ShaderStage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "stage?"
}

var modeNames = [...]string{
	ModeFunction:     "function",
	ModeUniform:      "uniform",
	ModeImage:        "image",
	ModeSystemValue:  "system_value",
	ModeUBO:          "ubo",
	ModeSSBO:         "ssbo",
	ModePushConstant: "push_const",
	ModeGlobal:       "global",
}

func (m VariableMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "mode?"
}

var atomicNames = [...]string{
	AtomicAdd:             "add",
	AtomicIMin:            "imin",
	AtomicUMin:            "umin",
	AtomicIMax:            "imax",
	AtomicUMax:            "umax",
	AtomicAnd:             "and",
	AtomicOr:              "or",
	AtomicXor:             "xor",
	AtomicExchange:        "xchg",
	AtomicCompareExchange: "cmpxchg",
}

func (op AtomicOp) String() string {
	if int(op) < len(atomicNames) {
		return atomicNames[op]
	}
	return "atomic?"
}

// String returns the textual form of the shader.
func (s *Shader) String() string {
	var sb strings.Builder
	_ = Fprint(&sb, s)
	return sb.String()
}

// Fprint writes a human-readable listing of the shader to w.
func Fprint(w io.Writer, s *Shader) error {
	p := &printer{w: w, shader: s}
	p.printf("shader %q (%s)\n", s.Name, s.Stage)
	if s.Info.UsesEmbeddedSamplers {
		p.printf("  uses_embedded_samplers\n")
	}
	for i := range s.Variables {
		p.variable(VariableHandle(i), &s.Variables[i])
	}
	for i := range s.Functions {
		p.function(&s.Functions[i])
	}
	return p.err
}

type printer struct {
	w      io.Writer
	shader *Shader
	err    error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) variable(h VariableHandle, v *Variable) {
	p.printf("var @%d %q %s type=%d", h, v.Name, v.Mode, v.Type)
	if v.Binding != nil {
		p.printf(" set=%d binding=%d", v.Binding.Set, v.Binding.Binding)
	}
	if v.ResourceKind != 0 {
		p.printf(" kind=%s", v.ResourceKind)
	}
	switch v.SystemValue {
	case SystemValueResourceHeapPtr:
		p.printf(" resource_heap_ptr")
	case SystemValueSamplerHeapPtr:
		p.printf(" sampler_heap_ptr")
	case SystemValueShaderRecordPtr:
		p.printf(" shader_record_ptr")
	}
	p.printf("\n")
}

func (p *printer) function(fn *Function) {
	p.printf("function %s {\n", fn.Name)
	for bi, block := range fn.Blocks {
		p.printf("block_%d:\n", bi)
		for _, h := range block.Instructions {
			p.instruction(fn, h)
		}
	}
	p.printf("}\n")
}

func (p *printer) instruction(fn *Function, h ValueHandle) {
	in := &fn.Instructions[h]
	if in.Def.HasResult() {
		p.printf("  %%%d:%dx%d = ", h, in.Def.Components, in.Def.BitSize)
	} else {
		p.printf("  ")
	}

	switch k := in.Kind.(type) {
	case *Const:
		p.printf("const 0x%x", k.Value)
	case *ALU:
		p.printf("%s %s", k.Op, values(k.Args))
	case *Deref:
		p.deref(k)
	case *Intrinsic:
		p.intrinsic(k)
	case *Tex:
		p.tex(k)
	default:
		p.printf("<%T>", k)
	}
	p.printf("\n")
}

func (p *printer) deref(d *Deref) {
	p.printf("deref_%s (%s) type=%d", d.DerefType, d.Mode, d.Type)
	switch d.DerefType {
	case DerefVar:
		p.printf(" @%d", d.Var)
	case DerefArray, DerefPtrAsArray:
		p.printf(" %%%d[%%%d]", d.Parent, d.Index)
	case DerefStruct:
		p.printf(" %%%d.%d", d.Parent, d.Field)
	case DerefCast:
		p.printf(" %%%d", d.Parent)
		if d.PtrStride != 0 {
			p.printf(" ptr_stride=%d", d.PtrStride)
		}
		if d.AlignMul != 0 {
			p.printf(" align=%d+%d", d.AlignMul, d.AlignOffset)
		}
	}
}

func (p *printer) intrinsic(in *Intrinsic) {
	p.printf("%s %s", in.Op, values(in.Srcs))
	switch in.Op {
	case OpLoadPushConstant:
		p.printf(" base=%d range=%d", in.Base, in.Range)
	case OpVulkanResourceIndex:
		p.printf(" set=%d binding=%d kind=%s", in.Set, in.Binding, in.ResourceKind)
	case OpLoadVulkanDescriptor, OpLoadBufferPtrDeref, OpLoadHeapDescriptor, OpGlobalAddrToDescriptor:
		p.printf(" kind=%s", in.ResourceKind)
	case OpDerefAtomic, OpDerefAtomicSwap, OpGlobalAtomic, OpGlobalAtomicSwap,
		OpImageDerefAtomic, OpImageDerefAtomicSwap, OpImageHeapAtomic, OpImageHeapAtomicSwap:
		p.printf(" atomic=%s", in.Atomic)
	}
	if in.Op.Is(FlagImageHeap) {
		p.printf(" dim=%d arrayed=%v format=%d", in.Image.Dim, in.Image.Arrayed, in.Image.Format)
	}
	if in.AlignMul != 0 {
		p.printf(" align=%d+%d", in.AlignMul, in.AlignOffset)
	}
}

func (p *printer) tex(t *Tex) {
	p.printf("%s", t.Op)
	for _, src := range t.Srcs {
		p.printf(" %s=%%%d", src.Kind, src.Value)
	}
	if t.EmbeddedSampler {
		p.printf(" embedded_sampler=%d", t.SamplerIndex)
	}
}

func values(hs []ValueHandle) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		if h.Valid() {
			parts[i] = fmt.Sprintf("%%%d", h)
		} else {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, ", ")
}
