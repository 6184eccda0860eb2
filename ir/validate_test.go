package ir

import (
	"strings"
	"testing"
)

func TestValidate_ValidShader(t *testing.T) {
	s, fn := newTestFunction()
	b := NewBuilder(s, fn)
	x := b.Imm32(1)
	b.IAdd(x, b.Imm32(2))

	errors, err := Validate(s)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	for _, e := range errors {
		t.Errorf("unexpected validation error: %s", e.Error())
	}
}

func TestValidate_NilShader(t *testing.T) {
	if _, err := Validate(nil); err == nil {
		t.Error("Expected error for nil shader, got nil")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(s *Shader, fn *Function)
		want  string
	}{
		{
			name: "use before definition",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				x := b.Imm32(1)
				sum := b.IAdd(x, x)
				b.SetBefore(x)
				y := b.Imm32(2)
				fn.Instructions[y].Kind = &ALU{Op: ALUIAdd, Args: []ValueHandle{sum, sum}}
			},
			want: "used before it is defined",
		},
		{
			name: "removed operand",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				x := b.Imm32(1)
				b.IAdd(x, x)
				fn.Remove(x)
			},
			want: "was removed",
		},
		{
			name: "alu arity",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				x := b.Imm32(1)
				b.Emit(&ALU{Op: ALUUBitfieldExtract, Args: []ValueHandle{x}}, Uint32)
			},
			want: "expects 3 arguments",
		},
		{
			name: "intrinsic source count",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				b.Intrinsic(&Intrinsic{Op: OpStoreGlobal, Srcs: []ValueHandle{b.Imm64(0)}}, NoResult)
			},
			want: "expects 2 sources",
		},
		{
			name: "operand without result",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				addr := b.Imm64(0)
				st := b.Intrinsic(&Intrinsic{Op: OpStoreGlobal, Srcs: []ValueHandle{b.Imm32(1), addr}}, NoResult)
				b.U2U64(st)
			},
			want: "has no result",
		},
		{
			name: "deref access without deref",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				b.LoadDeref(Uint32, b.Imm32(0))
			},
			want: "is not a deref",
		},
		{
			name: "multi-kind resource index",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				b.ResourceIndex(0, 0, ResourceUniformBuffer|ResourceSampler, b.Imm32(0))
			},
			want: "not a single resource class",
		},
		{
			name: "duplicate tex source",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				c := b.Imm32(0)
				b.Tex(TexFetch, Uint32, TexSrc{Kind: TexSrcCoord, Value: c}, TexSrc{Kind: TexSrcCoord, Value: c})
			},
			want: "duplicate coord source",
		},
		{
			name: "embedded sampler with sampler source",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				c := b.Imm32(0)
				h := b.Tex(TexSample, Uint32,
					TexSrc{Kind: TexSrcTextureHeapOffset, Value: c},
					TexSrc{Kind: TexSrcSamplerHeapOffset, Value: c})
				tex, _ := fn.Tex(h)
				tex.EmbeddedSampler = true
			},
			want: "still has a sampler source",
		},
		{
			name: "heap pointer with binding",
			build: func(s *Shader, fn *Function) {
				s.Variables = append(s.Variables, Variable{
					Name:        "heap",
					Mode:        ModeSystemValue,
					SystemValue: SystemValueResourceHeapPtr,
					Binding:     &ResourceBinding{Set: 0, Binding: 0},
				})
			},
			want: "must not have a binding",
		},
		{
			name: "block mismatch",
			build: func(s *Shader, fn *Function) {
				b := NewBuilder(s, fn)
				x := b.Imm32(0)
				fn.Instructions[x].Block = 3
			},
			want: "records block 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fn := newTestFunction()
			tt.build(s, fn)

			errors, err := Validate(s)
			if err != nil {
				t.Fatalf("Validate returned error: %v", err)
			}
			for _, e := range errors {
				if strings.Contains(e.Error(), tt.want) {
					return
				}
			}
			t.Errorf("no error containing %q, got %v", tt.want, errors)
		})
	}
}

func TestValidationError_Format(t *testing.T) {
	h := ValueHandle(4)
	e := ValidationError{Message: "bad", Function: "main", Instruction: &h}
	if got := e.Error(); got != "in function main, value %4: bad" {
		t.Errorf("Error() = %q", got)
	}
	e.Instruction = nil
	if got := e.Error(); got != "in function main: bad" {
		t.Errorf("Error() = %q", got)
	}
}
