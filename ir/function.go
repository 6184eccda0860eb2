package ir

import "fmt"

// Instr returns the instruction for h.
func (f *Function) Instr(h ValueHandle) *Instruction {
	return &f.Instructions[h]
}

// Contains reports whether h indexes the arena.
func (f *Function) Contains(h ValueHandle) bool {
	return h.Valid() && int(h) < len(f.Instructions)
}

// Const returns the constant defined by h, if any.
func (f *Function) Const(h ValueHandle) (*Const, bool) {
	if !f.Contains(h) {
		return nil, false
	}
	c, ok := f.Instructions[h].Kind.(*Const)
	return c, ok
}

// Deref returns the deref defined by h, if any.
func (f *Function) Deref(h ValueHandle) (*Deref, bool) {
	if !f.Contains(h) {
		return nil, false
	}
	d, ok := f.Instructions[h].Kind.(*Deref)
	return d, ok
}

// Intrinsic returns the intrinsic defined by h, if any.
func (f *Function) Intrinsic(h ValueHandle) (*Intrinsic, bool) {
	if !f.Contains(h) {
		return nil, false
	}
	in, ok := f.Instructions[h].Kind.(*Intrinsic)
	return in, ok
}

// Tex returns the texture instruction defined by h, if any.
func (f *Function) Tex(h ValueHandle) (*Tex, bool) {
	if !f.Contains(h) {
		return nil, false
	}
	t, ok := f.Instructions[h].Kind.(*Tex)
	return t, ok
}

// DerefParent returns the parent deref of a deref, if the parent is one.
func (f *Function) DerefParent(d *Deref) (*Deref, ValueHandle, bool) {
	if d.DerefType == DerefVar {
		return nil, NoValue, false
	}
	p, ok := f.Deref(d.Parent)
	if !ok {
		return nil, NoValue, false
	}
	return p, d.Parent, true
}

// NewBlock appends an empty block and returns its index.
func (f *Function) NewBlock() int {
	f.Blocks = append(f.Blocks, Block{})
	return len(f.Blocks) - 1
}

// alloc adds an instruction to the arena without placing it in a block.
func (f *Function) alloc(kind InstructionKind, def ValueType) ValueHandle {
	h := ValueHandle(len(f.Instructions))
	f.Instructions = append(f.Instructions, Instruction{Kind: kind, Def: def, Block: -1})
	return h
}

// Append places a new instruction at the end of block.
func (f *Function) Append(block int, kind InstructionKind, def ValueType) ValueHandle {
	h := f.alloc(kind, def)
	f.Instructions[h].Block = block
	f.Blocks[block].Instructions = append(f.Blocks[block].Instructions, h)
	return h
}

// InsertBefore places a new instruction immediately before anchor.
func (f *Function) InsertBefore(anchor ValueHandle, kind InstructionKind, def ValueType) ValueHandle {
	block, pos := f.position(anchor)
	h := f.alloc(kind, def)
	f.Instructions[h].Block = block

	list := f.Blocks[block].Instructions
	list = append(list, NoValue)
	copy(list[pos+1:], list[pos:])
	list[pos] = h
	f.Blocks[block].Instructions = list
	return h
}

// position finds the block and index of a placed instruction.
func (f *Function) position(h ValueHandle) (int, int) {
	in := &f.Instructions[h]
	if in.Removed || in.Block < 0 {
		panic(fmt.Sprintf("ir: value %%%d is not placed in a block", h))
	}
	for i, v := range f.Blocks[in.Block].Instructions {
		if v == h {
			return in.Block, i
		}
	}
	panic(fmt.Sprintf("ir: value %%%d missing from block %d", h, in.Block))
}

// Remove unlinks an instruction from its block. The arena slot is kept so
// handles stay stable.
func (f *Function) Remove(h ValueHandle) {
	block, pos := f.position(h)
	list := f.Blocks[block].Instructions
	f.Blocks[block].Instructions = append(list[:pos], list[pos+1:]...)
	f.Instructions[h].Removed = true
}

// ReplaceAllUses rewrites every operand referring to old so that it refers
// to repl instead.
func (f *Function) ReplaceAllUses(old, repl ValueHandle) {
	for i := range f.Instructions {
		in := &f.Instructions[i]
		if in.Removed {
			continue
		}
		for _, op := range in.Kind.operands() {
			if *op == old {
				*op = repl
			}
		}
	}
}

// Replace rewrites all uses of old to repl and removes old.
func (f *Function) Replace(old, repl ValueHandle) {
	f.ReplaceAllUses(old, repl)
	f.Remove(old)
}

// Uses returns the live instructions that read h, in arena order.
func (f *Function) Uses(h ValueHandle) []ValueHandle {
	var users []ValueHandle
	for i := range f.Instructions {
		in := &f.Instructions[i]
		if in.Removed {
			continue
		}
		for _, op := range in.Kind.operands() {
			if *op == h {
				users = append(users, ValueHandle(i))
				break
			}
		}
	}
	return users
}

// Operands returns the values read by h.
func (f *Function) Operands(h ValueHandle) []ValueHandle {
	ops := f.Instructions[h].Kind.operands()
	vals := make([]ValueHandle, 0, len(ops))
	for _, op := range ops {
		if op.Valid() {
			vals = append(vals, *op)
		}
	}
	return vals
}

// Live returns the placed instructions of the function in layout order.
func (f *Function) Live() []ValueHandle {
	var live []ValueHandle
	for _, b := range f.Blocks {
		live = append(live, b.Instructions...)
	}
	return live
}
