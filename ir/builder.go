package ir

// Builder inserts instructions into a function, folding arithmetic and
// comparisons over constant operands the way an LLVM TargetFolder would.
// Folding here is limited to the handful of operations the pass itself
// emits: subtraction, multiplication and signed less-than.
type Builder struct {
	mod   *Module
	block *BasicBlock
	// insertBefore, if non-nil, is the instruction new instructions are
	// spliced in front of; nil means append at the end of block.
	insertBefore *Instr
}

func NewBuilder(m *Module) *Builder { return &Builder{mod: m} }

// SetInsertPoint appends subsequent instructions to the end of bb.
func (b *Builder) SetInsertPoint(bb *BasicBlock) {
	b.block = bb
	b.insertBefore = nil
}

// SetInsertBefore splices subsequent instructions immediately before instr,
// which must belong to bb.
func (b *Builder) SetInsertBefore(bb *BasicBlock, instr *Instr) {
	b.block = bb
	b.insertBefore = instr
}

func (b *Builder) emit(in *Instr) *Instr {
	in.id = b.mod.NewID()
	in.Parent = b.block
	if b.insertBefore == nil {
		b.block.Instrs = append(b.block.Instrs, in)
		return in
	}
	idx := b.block.indexOf(b.insertBefore)
	if idx < 0 {
		b.block.Instrs = append(b.block.Instrs, in)
		return in
	}
	b.block.Instrs = append(b.block.Instrs, nil)
	copy(b.block.Instrs[idx+1:], b.block.Instrs[idx:])
	b.block.Instrs[idx] = in
	return in
}

func (b *Builder) ConstInt(ty *Type, v int64) *ConstInt {
	return &ConstInt{id: b.mod.NewID(), Ty: ty, Val: v}
}

func (b *Builder) NullPointer(pointee *Type) *ConstInt {
	return &ConstInt{id: b.mod.NewID(), Ty: PointerTo(pointee), Val: 0}
}

func (b *Builder) Alloca(allocType *Type, count Value, name string) *Instr {
	return b.emit(&Instr{Op: OpAlloca, Ty: PointerTo(allocType), Name_: name, AllocType: allocType, AllocCount: count})
}

func (b *Builder) Load(ptr Value, resultType *Type, name string) *Instr {
	return b.emit(&Instr{Op: OpLoad, Ty: resultType, Name_: name, Operands: []Value{ptr}})
}

func (b *Builder) Store(val, ptr Value) *Instr {
	return b.emit(&Instr{Op: OpStore, Ty: Void(), Operands: []Value{val, ptr}})
}

// GEP computes a pointer into srcElemType via indices; resultType is the
// pointee type of the produced pointer (the type of the addressed element).
func (b *Builder) GEP(base Value, srcElemType, resultType *Type, indices []Value, name string) *Instr {
	return b.emit(&Instr{
		Op: OpGEP, Ty: PointerTo(resultType), Name_: name,
		Operands: []Value{base}, SourceElemType: srcElemType, Indices: indices,
	})
}

func (b *Builder) Call(callee *Function, args []Value, name string) *Instr {
	return b.emit(&Instr{Op: OpCall, Ty: callee.Ty.Ret, Name_: name, Callee: callee, Args: args, Operands: args})
}

func (b *Builder) CallIndirect(target Value, sig *Type, args []Value, name string) *Instr {
	return b.emit(&Instr{Op: OpCallIndirect, Ty: sig.Ret, Name_: name, Args: args, Operands: append([]Value{target}, args...)})
}

func (b *Builder) Ret(val Value) *Instr {
	var ops []Value
	if val != nil {
		ops = []Value{val}
	}
	return b.emit(&Instr{Op: OpRet, Ty: Void(), Operands: ops})
}

func (b *Builder) BitCast(v Value, to *Type, name string) *Instr {
	return b.emit(&Instr{Op: OpBitCast, Ty: to, Name_: name, Operands: []Value{v}, SrcType: v.Type(), DstType: to})
}

// PtrToInt converts a pointer value to the platform size type, used when
// keying the runtime metadata table by a pointer's integer representation.
func (b *Builder) PtrToInt(v Value, name string) *Instr {
	return b.emit(&Instr{Op: OpPtrToInt, Ty: SizeType, Name_: name, Operands: []Value{v}, SrcType: v.Type(), DstType: SizeType})
}

// IntToPtr converts a platform-word integer back to a pointer of type to.
func (b *Builder) IntToPtr(v Value, to *Type, name string) *Instr {
	return b.emit(&Instr{Op: OpIntToPtr, Ty: to, Name_: name, Operands: []Value{v}, SrcType: v.Type(), DstType: to})
}

func (b *Builder) Br(target *BasicBlock) *Instr {
	in := b.emit(&Instr{Op: OpBr, Ty: Void(), Target: target})
	addSucc(b.block, target)
	return in
}

func (b *Builder) CondBr(cond Value, t, f *BasicBlock) *Instr {
	in := b.emit(&Instr{Op: OpCondBr, Ty: Void(), Operands: []Value{cond}, TrueBlock: t, FalseBlock: f})
	addSucc(b.block, t)
	addSucc(b.block, f)
	return in
}

func (b *Builder) Unreachable() *Instr {
	return b.emit(&Instr{Op: OpUnreachable, Ty: Void()})
}

func (b *Builder) ExtractValue(agg Value, idx int, resultType *Type, name string) *Instr {
	return b.emit(&Instr{Op: OpExtractValue, Ty: resultType, Name_: name, Operands: []Value{agg}, Index: idx})
}

func (b *Builder) InsertValue(agg, val Value, idx int, name string) *Instr {
	return b.emit(&Instr{Op: OpInsertValue, Ty: agg.Type(), Name_: name, Operands: []Value{agg, val}, Index: idx})
}

// Sub folds to a ConstInt when both operands are constant, otherwise emits a
// live subtraction. Folding here is what lets a folds-to-false bounds check
// be recognized without a separate optimization pass.
func (b *Builder) Sub(lhs, rhs Value, ty *Type, name string) Value {
	if l, ok := lhs.(*ConstInt); ok {
		if r, ok := rhs.(*ConstInt); ok {
			return b.ConstInt(ty, l.Val-r.Val)
		}
	}
	return b.emit(&Instr{Op: OpSub, Ty: ty, Name_: name, Operands: []Value{lhs, rhs}})
}

func (b *Builder) Mul(lhs, rhs Value, ty *Type, name string) Value {
	if l, ok := lhs.(*ConstInt); ok {
		if r, ok := rhs.(*ConstInt); ok {
			return b.ConstInt(ty, l.Val*r.Val)
		}
	}
	return b.emit(&Instr{Op: OpMul, Ty: ty, Name_: name, Operands: []Value{lhs, rhs}})
}

// ICmpSLT folds to a boolean ConstInt (i8, 0 or 1) when both operands are
// constant. The result type is i8 rather than a dedicated i1 to keep the
// type system in this package small; only its zero/non-zero-ness is
// inspected anywhere in the pass.
var BoolType = IntType(8)

func (b *Builder) ICmpSLT(lhs, rhs Value, name string) Value {
	if l, ok := lhs.(*ConstInt); ok {
		if r, ok := rhs.(*ConstInt); ok {
			v := int64(0)
			if l.Val < r.Val {
				v = 1
			}
			return b.ConstInt(BoolType, v)
		}
	}
	return b.emit(&Instr{Op: OpICmpSLT, Ty: BoolType, Name_: name, Operands: []Value{lhs, rhs}})
}

// FoldedBool reports whether v is a constant boolean and its value, for
// callers that need to special-case a fully-folded comparison.
func FoldedBool(v Value) (isConst bool, val bool) {
	c, ok := v.(*ConstInt)
	if !ok {
		return false, false
	}
	return true, c.Val != 0
}

// SplitBlock splits bb immediately before instr: a new block is created
// holding instr and everything after it, bb keeps everything before instr,
// and bb's terminator (if it had a real one — GEP/Load/Store sites never
// do, since they aren't terminators) is moved to the new block. Used by
// bounds-check emission to splice a conditional branch to the trap block
// in the middle of a block's instruction list.
func (b *Builder) SplitBlock(bb *BasicBlock, instr *Instr, newName string) *BasicBlock {
	idx := bb.indexOf(instr)
	if idx < 0 {
		idx = len(bb.Instrs)
	}
	tail := &BasicBlock{id: b.mod.NewID(), Name_: newName, Parent: bb.Parent}
	tail.Instrs = append(tail.Instrs, bb.Instrs[idx:]...)
	for _, in := range tail.Instrs {
		in.Parent = tail
	}
	bb.Instrs = bb.Instrs[:idx]

	// Re-home bb's successors: the tail block now owns whatever bb's
	// terminator pointed at.
	oldSuccs := append([]*BasicBlock(nil), bb.Succs...)
	for _, s := range oldSuccs {
		removeSucc(bb, s)
		addSucc(tail, s)
	}

	fn := bb.Parent
	insertAt := -1
	for i, blk := range fn.Blocks {
		if blk == bb {
			insertAt = i + 1
			break
		}
	}
	if insertAt < 0 {
		fn.Blocks = append(fn.Blocks, tail)
	} else {
		fn.Blocks = append(fn.Blocks, nil)
		copy(fn.Blocks[insertAt+1:], fn.Blocks[insertAt:])
		fn.Blocks[insertAt] = tail
	}
	return tail
}
