// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"encoding/binary"
	"testing"

	"github.com/gogpu/descheap/ir"
)

// internalHeapBase is what the test machine adds when resolving
// internal_resource_heap_offset, so tests can tell the value went through it.
const internalHeapBase = 0x10000

// machine evaluates the straight-line address arithmetic emitted by the
// builders against fake push constants, memory and a shader record.
type machine struct {
	push   []byte
	mem    map[uint64]byte
	record uint64
}

func newMachine() *machine {
	return &machine{
		push: make([]byte, 256),
		mem:  make(map[uint64]byte),
	}
}

func (m *machine) setPush32(offset, v uint32) {
	binary.LittleEndian.PutUint32(m.push[offset:], v)
}

func (m *machine) setPush64(offset uint32, v uint64) {
	binary.LittleEndian.PutUint64(m.push[offset:], v)
}

func (m *machine) store(addr, v uint64, size int) {
	for i := range size {
		m.mem[addr+uint64(i)] = byte(v >> (8 * i))
	}
}

func (m *machine) store32(addr uint64, v uint32) { m.store(addr, uint64(v), 4) }
func (m *machine) store64(addr, v uint64)        { m.store(addr, v, 8) }

func (m *machine) load(t *testing.T, addr uint64, size int) uint64 {
	t.Helper()
	var v uint64
	for i := range size {
		b, ok := m.mem[addr+uint64(i)]
		if !ok {
			t.Fatalf("load of unmapped address %#x", addr+uint64(i))
		}
		v |= uint64(b) << (8 * i)
	}
	return v
}

func mask(v uint64, bits uint8) uint64 {
	if bits >= 64 {
		return v
	}
	return v & (1<<bits - 1)
}

// eval computes the value of h.
func (m *machine) eval(t *testing.T, fn *ir.Function, h ir.ValueHandle) uint64 {
	t.Helper()
	in := fn.Instr(h)
	bits := in.Def.BitSize
	size := int(bits) / 8

	switch k := in.Kind.(type) {
	case *ir.Const:
		return mask(k.Value, bits)

	case *ir.ALU:
		args := make([]uint64, len(k.Args))
		for i, a := range k.Args {
			args[i] = m.eval(t, fn, a)
		}
		switch k.Op {
		case ir.ALUIAdd:
			return mask(args[0]+args[1], bits)
		case ir.ALUIMul:
			return mask(args[0]*args[1], bits)
		case ir.ALUU2U32:
			return mask(args[0], 32)
		case ir.ALUU2U64:
			return args[0]
		case ir.ALUI2I64:
			shift := 64 - fn.Instr(k.Args[0]).Def.BitSize
			return uint64(int64(args[0]<<shift) >> shift)
		case ir.ALUUBitfieldExtract:
			return (args[0] >> args[1]) & (1<<args[2] - 1)
		}

	case *ir.Intrinsic:
		switch k.Op {
		case ir.OpLoadPushConstant:
			off := m.eval(t, fn, k.Srcs[0]) + uint64(k.Base)
			if k.Range != 0 && off+uint64(size) > uint64(k.Range) {
				t.Errorf("push constant load [%d, %d) exceeds range %d", off, off+uint64(size), k.Range)
			}
			var v uint64
			for i := range size {
				v |= uint64(m.push[off+uint64(i)]) << (8 * i)
			}
			return v
		case ir.OpLoadGlobalConstant:
			return m.load(t, m.eval(t, fn, k.Srcs[0]), size)
		case ir.OpLoadShaderRecordPtr:
			return m.record
		case ir.OpInternalResourceHeapOffset:
			return m.eval(t, fn, k.Srcs[0]) + internalHeapBase
		}
	}

	t.Fatalf("cannot evaluate %%%d (%T)", h, in.Kind)
	return 0
}
