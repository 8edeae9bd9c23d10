package walker

import (
	"github.com/HexHive/nesCheck/internal/chainwalk"
	"github.com/HexHive/nesCheck/internal/sigxform"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/ir"
)

// after positions the builder to insert new instructions immediately after
// instr — before whatever originally followed it in program order. Every
// handler below that emits new IR "at this program point" goes through this.
func (w *Walker) after(instr *ir.Instr) {
	next, ok := w.nextInBlock[instr]
	if !ok {
		// instr was itself the last entry captured (shouldn't happen: every
		// block ends in a terminator, and terminators never reach here), but
		// fall back to appending at the end of the block.
		w.B.SetInsertPoint(instr.Parent)
		return
	}
	w.B.SetInsertBefore(instr.Parent, next)
}

// handleAlloca handles the stack-allocation case.
func (w *Walker) handleAlloca(instr *ir.Instr) {
	if instr.AllocType.IsPointer() {
		w.St.Register(instr)
		return
	}
	count := instr.AllocCount
	if count == nil {
		count = w.B.ConstInt(ir.SizeType, 1)
	}
	elemSize, ok := instr.AllocType.Sized()
	if !ok {
		elemSize = 0
	}
	w.after(instr)
	total := w.B.Mul(w.B.ConstInt(ir.SizeType, int64(elemSize)), count, ir.SizeType, "")
	w.St.SetSize(instr, total)
}

// handleCall handles the Call case: malloc/realloc/free by name and
// arity, a generic pointer-returning call otherwise, and — always,
// regardless of which branch matched — call-site rewriting when the
// callee is marked for deletion.
func (w *Walker) handleCall(fn *ir.Function, instr *ir.Instr) {
	callee := instr.Callee
	switch {
	case isRuntimeAlloc(callee, "malloc", 1):
		w.St.SetSize(instr, instr.Args[0])
	case isRuntimeAlloc(callee, "realloc", 2):
		w.St.SetSize(instr, instr.Args[1])
	case isRuntimeAlloc(callee, "free", 1):
		chainwalk.PropagateFree(w.St, instr.Args[0])
	default:
		if instr.Ty.IsPointer() {
			indirect := instr.Op == ir.OpCallIndirect
			w.after(instr)
			w.St.SetSize(instr, w.Oracle.SizeOf(instr, indirect))
		}
	}

	if callee == nil {
		return
	}
	if _, marked := w.Plan.Deleted[callee]; marked {
		w.after(instr)
		w.Stats.CallSitesRewritten++
		sigxform.RewriteCallSite(w.B, w.St, w.Oracle, w.Plan, instr, w.Diag)
	}
}

func isRuntimeAlloc(callee *ir.Function, name string, arity int) bool {
	return callee != nil && callee.Name() == name && len(callee.Ty.Params) == arity
}

// handleReturn handles the Return case: for a function whose return type
// was widened, build the {value, size} aggregate by walking back through
// load/cast chains to find the returned pointer's recorded size.
func (w *Walker) handleReturn(fn *ir.Function, instr *ir.Instr) {
	if !w.Plan.ReturnWidened[fn] || len(instr.Operands) == 0 {
		return
	}
	retVal := instr.Operands[0]
	size, ok := chainwalk.ResolveSize(w.St, w.Oracle, retVal)
	if !ok {
		if w.Diag != nil {
			w.Diag.ValueNotFound(fn.Name(), "return value size")
		}
		return
	}

	w.B.SetInsertBefore(instr.Parent, instr)
	aggTy := fn.Ty.Ret
	agg := w.B.InsertValue(zeroAggregate(w.B, aggTy), retVal, 0, "ret")
	agg = w.B.InsertValue(agg, size, 1, "ret")
	instr.Operands[0] = agg
}

// zeroAggregate returns a placeholder value of type ty, loaded from a fresh
// stack temporary, since this package's IR has no first-class aggregate
// constant. The temporary is not initialised; handleReturn overwrites both
// fields of the loaded value with InsertValue.
func zeroAggregate(b *ir.Builder, ty *ir.Type) ir.Value {
	tmp := b.Alloca(ty, nil, "ret.agg")
	return b.Load(tmp, ty, "ret.agg.zero")
}

// handleStore handles the Store case in full, including the
// cross-basic-block explicit-size-slot materialization and the metadata-
// table update for non-alloca destinations.
func (w *Walker) handleStore(instr *ir.Instr) {
	val := instr.StoredValue()
	ptr := instr.PointerOperand()
	if !val.Type().IsPointer() {
		return
	}

	if _, tracked := w.St.Get(val); !tracked {
		if c, ok := val.(*ir.ConstInt); ok {
			w.St.SetSize(c, w.Oracle.SizeOf(c, false))
		}
	}

	ptrInstr, ptrIsInstr := ptr.(*ir.Instr)
	sameBlock := !ptrIsInstr || ptrInstr.Parent == instr.Parent
	if !sameBlock {
		w.materializeExplicitSlot(ptrInstr, val, instr)
		return
	}

	valSize := w.St.SizeOf(val)
	valClass := w.St.ClassOf(val)
	w.St.Classify(ptr, valClass)
	w.St.SetSize(ptr, valSize)

	if _, isAlloca := ptr.(*ir.Instr); isAlloca && ptr.(*ir.Instr).Op == ir.OpAlloca {
		return
	}
	if w.instrOnly {
		return
	}
	w.after(instr)
	w.emitMetadataSet(ptr, valSize)
	w.St.MarkTableEntry(ptr)
}

// materializeExplicitSlot implements the "pointer operand defined in a
// different basic block" branch: create (once) a size-carrying alloca and
// its bootstrap store at the end of definingInstr's own block, then store
// val's current size into that slot at the current program point.
func (w *Walker) materializeExplicitSlot(definingInstr *ir.Instr, val ir.Value, store *ir.Instr) {
	rec, _ := w.St.Get(definingInstr)
	if rec == nil || !rec.HasExplicitSizeSlot {
		definingBlock := definingInstr.Parent
		w.B.SetInsertBefore(definingBlock, definingBlock.Terminator())
		bootstrapSize := w.St.SizeOf(definingInstr)
		slot := w.B.Alloca(ir.SizeType, nil, definingInstr.Name()+"_size")
		w.B.Store(bootstrapSize, slot)
		w.St.SetExplicitSizeSlot(definingInstr, slot)
		w.Stats.ExplicitSizeSlots++
	}
	rec, _ = w.St.Get(definingInstr)

	w.after(store)
	w.B.Store(w.St.SizeOf(val), rec.ExplicitSizeSlot)
}

// handleLoad handles the Load case.
func (w *Walker) handleLoad(instr *ir.Instr) {
	if !instr.Ty.IsPointer() {
		return
	}
	addr := instr.Operands[0]

	if _, tracked := w.St.Get(addr); !tracked {
		if c, ok := addr.(*ir.ConstInt); ok {
			w.St.SetSize(c, w.Oracle.SizeOf(c, false))
		}
	}

	rec, _ := w.St.Get(addr)
	// Only a per-block alloca needs reloading before use: its value can go
	// stale across blocks. A parameter's companion size argument is never
	// an *ir.Instr — it dominates the whole function and never changes —
	// so it is read once, directly, and never reloaded here.
	if rec != nil && rec.HasExplicitSizeSlot {
		if _, isInstr := rec.ExplicitSizeSlot.(*ir.Instr); isInstr {
			instantiatedIn := w.St.InstantiatedIn(addr)
			if !rec.ExplicitSlotInstantiated || instantiatedIn != instr.Parent {
				w.after(instr)
				slotVal := w.B.Load(rec.ExplicitSizeSlot, ir.SizeType, addr.Name()+"_size_v")
				w.St.SetSize(addr, slotVal)
				w.St.SetInstantiated(addr, true, instr.Parent)
			}
		}
	}

	w.St.Classify(instr, w.St.ClassOf(addr))
	w.St.SetSize(instr, w.St.SizeOf(addr))
}

// handleCast handles the Cast case: a type-varying cast promotes to DYN,
// and which value gets classified depends on whether the cast's operand
// is itself a Load (classify the load's own address) or a Call (classify
// both operand and result, and — for a trivially-sized bitcast result —
// recompute the size). Size is always propagated from operand to result
// last.
func (w *Walker) handleCast(instr *ir.Instr) {
	if !instr.SrcType.IsPointer() {
		return
	}
	operand := instr.Operands[0]
	changed := instr.SrcType.PointerDepth() != instr.DstType.PointerDepth() ||
		innerIsInt(instr.SrcType) != innerIsInt(instr.DstType)

	if changed {
		switch op := operand.(type) {
		case *ir.Instr:
			switch op.Op {
			case ir.OpLoad:
				w.St.Classify(op.Operands[0], state.Dyn)
			case ir.OpCall, ir.OpCallIndirect:
				if instr.Op == ir.OpBitCast && isTrivialOne(w.St.SizeOf(op)) {
					w.after(instr)
					w.St.SetSize(op, w.Oracle.SizeOf(instr, false))
				}
				w.St.Classify(op, state.Dyn)
				w.St.Classify(instr, state.Dyn)
			}
		}
	}

	if _, tracked := w.St.Get(operand); tracked {
		w.St.SetSize(instr, w.St.SizeOf(operand))
	}
}

func innerIsInt(t *ir.Type) bool {
	return t.InnerNonPointer().IsInt()
}

func isTrivialOne(v ir.Value) bool {
	c, ok := v.(*ir.ConstInt)
	return ok && c.Val == 1
}
