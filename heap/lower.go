// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"context"
	"log/slog"
	"slices"

	"github.com/gogpu/descheap/ir"
)

// Result reports what a Lower call did.
type Result struct {
	// Progress is false when the shader was left untouched.
	Progress bool

	// EmbeddedSamplers lists the samplers referenced by texture
	// instructions marked with EmbeddedSampler, ordered by SamplerIndex.
	EmbeddedSamplers []EmbeddedSampler
}

// imageHeapOps maps every image deref intrinsic to its heap counterpart.
var imageHeapOps = map[ir.IntrinsicOp]ir.IntrinsicOp{
	ir.OpImageDerefLoad:             ir.OpImageHeapLoad,
	ir.OpImageDerefSparseLoad:       ir.OpImageHeapSparseLoad,
	ir.OpImageDerefStore:            ir.OpImageHeapStore,
	ir.OpImageDerefAtomic:           ir.OpImageHeapAtomic,
	ir.OpImageDerefAtomicSwap:       ir.OpImageHeapAtomicSwap,
	ir.OpImageDerefSize:             ir.OpImageHeapSize,
	ir.OpImageDerefSamples:          ir.OpImageHeapSamples,
	ir.OpImageDerefLoadRaw:          ir.OpImageHeapLoadRaw,
	ir.OpImageDerefStoreRaw:         ir.OpImageHeapStoreRaw,
	ir.OpImageDerefFragmentMaskLoad: ir.OpImageHeapFragmentMaskLoad,
	ir.OpImageDerefStoreBlock:       ir.OpImageHeapStoreBlock,
}

// HeapImageOp returns the heap counterpart of an image deref intrinsic.
func HeapImageOp(op ir.IntrinsicOp) (ir.IntrinsicOp, bool) {
	heapOp, ok := imageHeapOps[op]
	return heapOp, ok
}

// lowerStats counts rewrites per category for the summary record.
type lowerStats struct {
	tex, image, access, bufferPtr, descriptor int
}

func (s *lowerStats) total() int {
	return s.tex + s.image + s.access + s.bufferPtr + s.descriptor
}

// lowerer holds the state of one Lower call.
type lowerer struct {
	shader   *ir.Shader
	table    MappingTable
	samplers *SamplerTable
	log      *slog.Logger
	stats    lowerStats

	// Per function.
	fn *ir.Function
	b  *ir.Builder
}

// Lower rewrites every descriptor access of shader whose binding is
// covered by table into descriptor heap form, in place.
//
// Texture, image, buffer and descriptor accesses are resolved either
// through their (set, binding) and the first matching table entry, or,
// for derefs rooted at a cast of a heap base pointer, directly from the
// deref chain. Accesses that resolve to nothing are left unchanged.
//
// Lower returns an error only for malformed input: a nil shader, a table
// that fails Validate, or IR the pass cannot rewrite consistently. On
// error the shader may be partially rewritten.
func Lower(shader *ir.Shader, table MappingTable) (Result, error) {
	if shader == nil {
		return Result{}, NewError(ErrInvalidShader, "shader is nil")
	}
	if err := table.Validate(); err != nil {
		return Result{}, &Error{Kind: ErrInvalidMapping, Message: err.Error(), Err: err}
	}

	l := &lowerer{
		shader:   shader,
		table:    table,
		samplers: NewSamplerTable(),
		log:      Logger(),
	}
	for i := range shader.Functions {
		if err := l.lowerFunction(&shader.Functions[i]); err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Progress:         l.stats.total() > 0,
		EmbeddedSamplers: l.samplers.Samplers(),
	}
	l.log.Info("heap: lowered shader",
		"shader", shader.Name,
		"entries", len(table),
		"tex", l.stats.tex,
		"image", l.stats.image,
		"access", l.stats.access,
		"buffer_ptr", l.stats.bufferPtr,
		"descriptor", l.stats.descriptor,
		"embedded_samplers", len(res.EmbeddedSamplers),
	)
	return res, nil
}

func (l *lowerer) lowerFunction(fn *ir.Function) error {
	if len(fn.Blocks) == 0 {
		return nil
	}
	l.fn = fn
	l.b = ir.NewBuilder(l.shader, fn)

	for bi := len(fn.Blocks) - 1; bi >= 0; bi-- {
		// Rewrites insert into and remove from the live block, so walk a
		// snapshot. Inserted instructions are never visited.
		snapshot := slices.Clone(fn.Blocks[bi].Instructions)
		for i := len(snapshot) - 1; i >= 0; i-- {
			h := snapshot[i]
			if fn.Instr(h).Removed {
				continue
			}
			if err := l.lowerInstruction(h); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *lowerer) lowerInstruction(h ir.ValueHandle) error {
	l.b.SetBefore(h)

	switch kind := l.fn.Instr(h).Kind.(type) {
	case *ir.Tex:
		ok, err := l.lowerTex(h, kind)
		if ok {
			l.stats.tex++
		}
		return err

	case *ir.Intrinsic:
		var ok bool
		var err error
		switch {
		case kind.Op.Is(ir.FlagImageDeref):
			if ok, err = l.lowerImage(h, kind); ok {
				l.stats.image++
			}
		case kind.Op.Is(ir.FlagDerefAccess):
			if ok, err = l.lowerDerefAccess(h, kind); ok {
				l.stats.access++
			}
		case kind.Op == ir.OpLoadBufferPtrDeref:
			if ok, err = l.lowerBufferPtr(h, kind); ok {
				l.stats.bufferPtr++
			}
		case kind.Op == ir.OpLoadVulkanDescriptor:
			if ok, err = l.lowerDescriptorLoad(h, kind); ok {
				l.stats.descriptor++
			}
		}
		return err
	}
	return nil
}

// derefHeapOffset resolves a texture, sampler or image deref to a heap
// offset, emitting the computation before the current instruction.
func (l *lowerer) derefHeapOffset(deref ir.ValueHandle, isSampler bool) (AddressExpr, bool, error) {
	if len(l.table) > 0 {
		if ref, ok := ResolveDerefBinding(l.shader, l.fn, deref); ok {
			entry, found := l.table.Find(ref.Set, ref.Binding, ref.Kind)
			if !found {
				return AddressExpr{}, false, nil
			}
			off, ok := BuildHeapOffset(l.b, entry, ref.Kind, ref.Binding, ref.Index, isSampler)
			return off, ok, nil
		}
	}

	cast, ok := RootCast(l.fn, deref)
	if !ok || !IsHeapPointerCast(l.shader, l.fn, cast) {
		return AddressExpr{}, false, nil
	}
	off, err := BuildDerefAddress(l.b, l.fn, AddressExpr{Value: l.b.Imm32(0), Format: Offset32}, deref)
	if err != nil {
		return AddressExpr{}, false, err
	}
	return off, true, nil
}

// embeddedSampler returns the embedded sampler of the entry a deref maps
// to, or nil. Heap pointer derefs never carry one.
func (l *lowerer) embeddedSampler(deref ir.ValueHandle) *SamplerDescriptor {
	if len(l.table) == 0 {
		return nil
	}
	ref, ok := ResolveDerefBinding(l.shader, l.fn, deref)
	if !ok {
		return nil
	}
	entry, ok := l.table.Find(ref.Set, ref.Binding, ref.Kind)
	if !ok {
		return nil
	}
	return entry.Source.EmbeddedSampler()
}

// lowerTex rewrites the texture and sampler operands of tex. The two are
// resolved independently; either may stay a deref.
func (l *lowerer) lowerTex(h ir.ValueHandle, tex *ir.Tex) (bool, error) {
	progress := false
	texDeref := ir.NoValue
	if texIdx := tex.SrcIndex(ir.TexSrcTextureDeref); texIdx >= 0 {
		texDeref = tex.Srcs[texIdx].Value
		off, ok, err := l.derefHeapOffset(texDeref, false)
		if err != nil {
			return false, err
		}
		if ok {
			texOff, err := off.expect(Offset32)
			if err != nil {
				return false, l.locate(err, h)
			}
			tex.Srcs[texIdx] = ir.TexSrc{Kind: ir.TexSrcTextureHeapOffset, Value: texOff}
			l.logRewrite(h, "tex", texDeref)
			progress = true
		}
	}

	if tex.NeedsSampler() && !tex.EmbeddedSampler && tex.SrcIndex(ir.TexSrcSamplerHeapOffset) < 0 {
		lowered, err := l.lowerTexSampler(h, tex, texDeref)
		if err != nil {
			return progress, err
		}
		progress = progress || lowered
	}

	if progress && !tex.NeedsSampler() {
		if i := tex.SrcIndex(ir.TexSrcSamplerDeref); i >= 0 {
			tex.RemoveSrc(i)
		}
	}
	return progress, nil
}

// lowerTexSampler rewrites the sampler operand of tex. A combined image
// without a sampler operand takes its sampler from texDeref.
func (l *lowerer) lowerTexSampler(h ir.ValueHandle, tex *ir.Tex, texDeref ir.ValueHandle) (bool, error) {
	samplerIdx := tex.SrcIndex(ir.TexSrcSamplerDeref)
	samplerDeref := texDeref
	if samplerIdx >= 0 {
		samplerDeref = tex.Srcs[samplerIdx].Value
	}
	if samplerDeref == ir.NoValue {
		return false, nil
	}

	if desc := l.embeddedSampler(samplerDeref); desc != nil {
		if samplerIdx >= 0 {
			tex.RemoveSrc(samplerIdx)
		}
		tex.EmbeddedSampler = true
		tex.SamplerIndex = l.samplers.Intern(desc)
		l.shader.Info.UsesEmbeddedSamplers = true
		l.logRewrite(h, "embedded sampler", samplerDeref)
		return true, nil
	}

	off, ok, err := l.derefHeapOffset(samplerDeref, true)
	if err != nil || !ok {
		return false, err
	}
	samplerOff, err := off.expect(Offset32)
	if err != nil {
		return false, l.locate(err, h)
	}
	if samplerIdx >= 0 {
		tex.Srcs[samplerIdx] = ir.TexSrc{Kind: ir.TexSrcSamplerHeapOffset, Value: samplerOff}
	} else {
		tex.AddSrc(ir.TexSrcSamplerHeapOffset, samplerOff)
	}
	l.logRewrite(h, "sampler", samplerDeref)
	return true, nil
}

func (l *lowerer) lowerImage(h ir.ValueHandle, in *ir.Intrinsic) (bool, error) {
	heapOp, ok := imageHeapOps[in.Op]
	if !ok {
		return false, newInstructionError(ErrUnmappedOpcode, l.fn, h, "%s has no heap counterpart", in.Op)
	}
	if len(in.Srcs) == 0 {
		return false, newInstructionError(ErrInvalidShader, l.fn, h, "%s has no image source", in.Op)
	}
	deref := in.Srcs[0]
	d, ok := l.fn.Deref(deref)
	if !ok {
		return false, newInstructionError(ErrInvalidShader, l.fn, h, "%s source %%%d is not a deref", in.Op, deref)
	}

	off, ok, err := l.derefHeapOffset(deref, false)
	if err != nil || !ok {
		return false, err
	}
	v, err := off.expect(Offset32)
	if err != nil {
		return false, l.locate(err, h)
	}

	if img, ok := ir.ImageOf(l.shader.Types, d.Type); ok {
		in.Image = ir.ImageInfo{Dim: img.Dim, Arrayed: img.Arrayed, Format: img.Format}
	}
	in.Srcs[0] = v
	in.Op = heapOp
	l.logRewrite(h, heapOp.String(), deref)
	return true, nil
}

// bufferAccess is a deref access resolved through a descriptor load.
type bufferAccess struct {
	deref    ir.ValueHandle
	cast     ir.ValueHandle
	descLoad ir.ValueHandle
	ref      ResourceReference
	entry    *MappingEntry
}

func (l *lowerer) resolveBufferAccess(in *ir.Intrinsic) (bufferAccess, bool) {
	if len(l.table) == 0 || len(in.Srcs) == 0 {
		return bufferAccess{}, false
	}
	acc := bufferAccess{deref: in.Srcs[0]}

	var ok bool
	if acc.cast, ok = RootCast(l.fn, acc.deref); !ok {
		return bufferAccess{}, false
	}
	cast, _ := l.fn.Deref(acc.cast)
	acc.descLoad = cast.Parent
	if load, ok := l.fn.Intrinsic(acc.descLoad); !ok || load.Op != ir.OpLoadVulkanDescriptor {
		return bufferAccess{}, false
	}
	if acc.ref, ok = ResolveBufferBinding(l.fn, acc.descLoad); !ok {
		return bufferAccess{}, false
	}
	if acc.entry, ok = l.table.Find(acc.ref.Set, acc.ref.Binding, acc.ref.Kind); !ok {
		return bufferAccess{}, false
	}
	return acc, true
}

func (l *lowerer) lowerDerefAccess(h ir.ValueHandle, in *ir.Intrinsic) (bool, error) {
	acc, ok := l.resolveBufferAccess(in)
	if !ok {
		return false, nil
	}

	switch acc.entry.Source.access() {
	case accessPushData:
		return l.lowerPushDataLoad(h, in, acc)
	case accessHeapData:
		return l.lowerHeapDataLoad(h, in, acc)
	case accessAddress:
		return l.lowerGlobalAccess(h, in, acc)
	default:
		return false, nil
	}
}

// inlineDataLoad reports whether an access to inline buffer data can be
// rewritten: only uniform loads of element zero can.
func (l *lowerer) inlineDataLoad(h ir.ValueHandle, in *ir.Intrinsic, acc bufferAccess) bool {
	d, _ := l.fn.Deref(acc.deref)
	switch {
	case in.Op != ir.OpLoadDeref:
		l.warnDeclined(h, acc, "only loads can read inline data")
	case d.Mode != ir.ModeUBO:
		l.warnDeclined(h, acc, "inline data must be accessed as a uniform buffer")
	case !BufferIndexIsZero(l.fn, acc.descLoad):
		l.warnDeclined(h, acc, "inline data has no array elements")
	default:
		return true
	}
	return false
}

func (l *lowerer) lowerPushDataLoad(h ir.ValueHandle, in *ir.Intrinsic, acc bufferAccess) (bool, error) {
	if !l.inlineDataLoad(h, in, acc) {
		return false, nil
	}
	pushOffset := pushDataOffset(acc.entry.Source)
	cast, _ := l.fn.Deref(acc.cast)
	size, err := ir.ExplicitSize(l.shader.Types, cast.Type)
	if err != nil {
		return false, newInstructionError(ErrInvalidShader, l.fn, h, "push data block: %v", err)
	}

	root := AddressExpr{Value: l.b.Imm32(pushOffset), Format: Offset32}
	addr, err := BuildDerefAddress(l.b, l.fn, root, acc.deref)
	if err != nil {
		return false, l.locate(err, h)
	}
	off, err := addr.expect(Offset32)
	if err != nil {
		return false, l.locate(err, h)
	}

	def := l.fn.Instr(h).Def
	val := l.b.LoadPushConstant(def, off, 0, pushOffset+size)
	l.fn.Replace(h, val)
	l.logRewrite(h, "load_push_constant", acc.deref)
	return true, nil
}

func (l *lowerer) lowerHeapDataLoad(h ir.ValueHandle, in *ir.Intrinsic, acc bufferAccess) (bool, error) {
	if !l.inlineDataLoad(h, in, acc) {
		return false, nil
	}
	base, ok := BuildHeapOffset(l.b, acc.entry, acc.ref.Kind, acc.ref.Binding, ir.NoValue, false)
	if !ok {
		return false, newInstructionError(ErrInternal, l.fn, h, "%s gave no heap offset", acc.entry.Source.Kind())
	}
	addr, err := BuildDerefAddress(l.b, l.fn, base, acc.deref)
	if err != nil {
		return false, l.locate(err, h)
	}
	off, err := addr.expect(Offset32)
	if err != nil {
		return false, l.locate(err, h)
	}

	mul, offset := l.accessAlignment(acc.deref)
	val := l.b.Intrinsic(&ir.Intrinsic{
		Op:          ir.OpLoadResourceHeapData,
		Srcs:        []ir.ValueHandle{off},
		AlignMul:    mul,
		AlignOffset: offset,
	}, l.fn.Instr(h).Def)
	l.fn.Replace(h, val)
	l.logRewrite(h, "load_resource_heap_data", acc.deref)
	return true, nil
}

func pushDataOffset(s Source) uint32 {
	switch s := s.(type) {
	case PushData:
		return s.PushDataOffset
	case *PushData:
		return s.PushDataOffset
	}
	return 0
}

// accessAlignment returns the alignment of the chain, falling back to the
// natural alignment of the accessed scalar.
func (l *lowerer) accessAlignment(deref ir.ValueHandle) (mul, offset uint32) {
	if mul, offset, ok := DerefAlignment(l.shader, l.fn, deref); ok {
		return mul, offset
	}
	d, _ := l.fn.Deref(deref)
	if s, ok := ir.ScalarOf(l.shader.Types, d.Type); ok {
		if s.Kind == ir.ScalarBool {
			return 4, 0
		}
		return uint32(s.Width), 0
	}
	return 4, 0
}

// globalOps maps deref accesses to their address based counterparts.
var globalOps = map[ir.IntrinsicOp]ir.IntrinsicOp{
	ir.OpLoadDeref:       ir.OpLoadGlobal,
	ir.OpStoreDeref:      ir.OpStoreGlobal,
	ir.OpLoadDerefBlock:  ir.OpLoadGlobalBlock,
	ir.OpStoreDerefBlock: ir.OpStoreGlobalBlock,
	ir.OpDerefAtomic:     ir.OpGlobalAtomic,
	ir.OpDerefAtomicSwap: ir.OpGlobalAtomicSwap,
}

func (l *lowerer) lowerGlobalAccess(h ir.ValueHandle, in *ir.Intrinsic, acc bufferAccess) (bool, error) {
	op, ok := globalOps[in.Op]
	if !ok {
		return false, newInstructionError(ErrInternal, l.fn, h, "%s has no global counterpart", in.Op)
	}
	if n := in.Op.Info().NumSrcs; len(in.Srcs) != n {
		return false, newInstructionError(ErrInvalidShader, l.fn, h, "%s expects %d sources, got %d", in.Op, n, len(in.Srcs))
	}

	base, ok := BuildHeapAddress(l.b, acc.entry, acc.ref.Binding, ir.NoValue)
	if !ok {
		return false, newInstructionError(ErrInternal, l.fn, h, "%s gave no address", acc.entry.Source.Kind())
	}
	addr, err := BuildDerefAddress(l.b, l.fn, base, acc.deref)
	if err != nil {
		return false, l.locate(err, h)
	}
	a, err := addr.expect(Global64)
	if err != nil {
		return false, l.locate(err, h)
	}

	// Stores keep the value after the address; atomics keep their data
	// operands in order.
	srcs := append([]ir.ValueHandle{a}, in.Srcs[1:]...)
	global := &ir.Intrinsic{Op: op, Srcs: srcs, Atomic: in.Atomic}
	if mul, offset, ok := DerefAlignment(l.shader, l.fn, acc.deref); ok {
		global.AlignMul, global.AlignOffset = mul, offset
	}
	val := l.b.Intrinsic(global, l.fn.Instr(h).Def)
	l.fn.Replace(h, val)
	l.logRewrite(h, op.String(), acc.deref)
	return true, nil
}

func (l *lowerer) lowerBufferPtr(h ir.ValueHandle, in *ir.Intrinsic) (bool, error) {
	if len(in.Srcs) != 1 {
		return false, nil
	}
	deref := in.Srcs[0]
	v, ok := rootVariable(l.fn, deref)
	if !ok || int(v) >= len(l.shader.Variables) {
		return false, nil
	}
	// System-value heap pointers are only reached through load_deref casts.
	if vr := &l.shader.Variables[v]; vr.Mode != ir.ModeUniform || !vr.IsHeapPointer() {
		return false, nil
	}

	root := AddressExpr{Value: l.b.Imm32(0), Format: Offset32}
	addr, err := BuildDerefAddress(l.b, l.fn, root, deref)
	if err != nil {
		return false, l.locate(err, h)
	}
	off, err := addr.expect(Offset32)
	if err != nil {
		return false, l.locate(err, h)
	}

	val := l.b.Intrinsic(&ir.Intrinsic{
		Op:           ir.OpLoadHeapDescriptor,
		Srcs:         []ir.ValueHandle{off},
		ResourceKind: in.ResourceKind,
	}, l.fn.Instr(h).Def)
	l.fn.Replace(h, val)
	l.logRewrite(h, "load_heap_descriptor", deref)
	return true, nil
}

func (l *lowerer) lowerDescriptorLoad(h ir.ValueHandle, in *ir.Intrinsic) (bool, error) {
	if len(l.table) == 0 {
		return false, nil
	}
	ref, ok := ResolveBufferBinding(l.fn, h)
	if !ok {
		return false, nil
	}
	entry, ok := l.table.Find(ref.Set, ref.Binding, ref.Kind)
	if !ok {
		return false, nil
	}

	var val ir.ValueHandle
	def := l.fn.Instr(h).Def
	switch entry.Source.access() {
	case accessPushData, accessHeapData:
		// Inline data is read by the accesses themselves.
		return false, nil

	case accessAddress:
		addr, ok := BuildHeapAddress(l.b, entry, ref.Binding, ir.NoValue)
		if !ok {
			return false, newInstructionError(ErrInternal, l.fn, h, "%s gave no address", entry.Source.Kind())
		}
		val = l.b.Intrinsic(&ir.Intrinsic{
			Op:           ir.OpGlobalAddrToDescriptor,
			Srcs:         []ir.ValueHandle{addr.Value},
			ResourceKind: ref.Kind,
		}, def)

	default:
		index := BuildBufferIndex(l.b, l.fn, h)
		off, ok := BuildHeapOffset(l.b, entry, ref.Kind, ref.Binding, index, false)
		if !ok {
			return false, newInstructionError(ErrInternal, l.fn, h, "%s gave no heap offset", entry.Source.Kind())
		}
		val = l.b.Intrinsic(&ir.Intrinsic{
			Op:           ir.OpLoadHeapDescriptor,
			Srcs:         []ir.ValueHandle{off.Value},
			ResourceKind: ref.Kind,
		}, def)
	}

	l.fn.Replace(h, val)
	l.log.Debug("heap: rewrote descriptor load",
		"function", l.fn.Name,
		"instruction", uint32(h),
		"set", ref.Set,
		"binding", ref.Binding,
		"source", entry.Source.Kind().String(),
	)
	return true, nil
}

// locate attaches the current instruction to a pass error.
func (l *lowerer) locate(err error, h ir.ValueHandle) error {
	if e, ok := err.(*Error); ok && e.Function == "" {
		located := *e
		located.Function = l.fn.Name
		located.Instruction = &h
		return &located
	}
	return err
}

func (l *lowerer) logRewrite(h ir.ValueHandle, to string, deref ir.ValueHandle) {
	if !l.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{"function", l.fn.Name, "instruction", uint32(h), "to", to}
	if ref, ok := ResolveDerefBinding(l.shader, l.fn, deref); ok {
		attrs = append(attrs, "set", ref.Set, "binding", ref.Binding, "kind", ref.Kind.String())
	}
	l.log.Debug("heap: rewrote instruction", attrs...)
}

func (l *lowerer) warnDeclined(h ir.ValueHandle, acc bufferAccess, reason string) {
	l.log.Warn("heap: left access untouched",
		"function", l.fn.Name,
		"instruction", uint32(h),
		"set", acc.ref.Set,
		"binding", acc.ref.Binding,
		"source", acc.entry.Source.Kind().String(),
		"reason", reason,
	)
}
