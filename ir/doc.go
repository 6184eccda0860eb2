// Package ir defines the SSA shader representation that descriptor heap
// lowering operates on.
//
// # Structure
//
// A Shader contains:
//   - Types: type definitions with explicit layout (strides, member offsets)
//   - Variables: shader-scope resources, heap pointers and system values
//   - Functions: instruction arenas plus ordered basic blocks
//
// Instructions live in a per-function arena and are referenced by
// ValueHandle. Blocks hold an ordered list of handles; inserting or
// removing an instruction only edits that list, so handles stay valid for
// the lifetime of the function.
//
// # Building
//
// Builder emits instructions at a cursor. With SetBefore the cursor sits
// immediately before an existing instruction, which is how rewrites place
// the address arithmetic they need:
//
//	b := ir.NewBuilder(shader, fn)
//	b.SetBefore(load)
//	offset := b.IAddImm(b.IMulImm(index, 64), 256)
//
// # Instruction kinds
//
//   - Const: integer immediates
//   - ALU: wrapping integer arithmetic and width conversion
//   - Deref: variable, array, ptr-as-array, struct and cast steps
//   - Intrinsic: memory access, descriptor and resource index operations
//   - Tex: texture sampling and queries with typed operands
package ir
