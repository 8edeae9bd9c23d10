package walker

import (
	"github.com/HexHive/nesCheck/internal/oracle"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/ir"
)

// handleGEP handles the address-arithmetic case: class promotion, result
// registration, size computation (via metadata lookup for a
// pointer-to-pointer result, or base.size - offset otherwise), then
// bounds-check emission.
func (w *Walker) handleGEP(fn *ir.Function, instr *ir.Instr) {
	base := instr.PointerOperand()
	allZero := allZeroIndices(instr.Indices)

	if !allZero {
		w.St.Classify(base, state.Seq)
	}
	w.St.Register(instr)

	resultElem := instr.Ty.Elem // instr.Ty is PointerTo(resultElem)
	if resultElem.IsPointer() {
		if w.instrOnly {
			w.St.SetSize(instr, w.B.ConstInt(ir.SizeType, oracle.WhitelistSizeSentinel))
		} else {
			w.after(instr)
			size := w.emitMetadataLookup(instr)
			w.St.SetSize(instr, size)
		}
	} else {
		baseSize := w.St.SizeOf(base)
		if allZero {
			w.St.SetSize(instr, baseSize)
		} else {
			w.after(instr)
			offset := w.Oracle.OffsetOf(instr)
			otherSize := w.B.Sub(baseSize, offset, ir.SizeType, "")
			w.St.SetSize(instr, otherSize)
		}
	}

	w.emitBoundsCheck(fn, instr, base)
}

func allZeroIndices(indices []ir.Value) bool {
	for _, idx := range indices {
		c, ok := idx.(*ir.ConstInt)
		if !ok || c.Val != 0 {
			return false
		}
	}
	return true
}

// emitBoundsCheck is the bounds-check emitter: for a GEP whose base has
// class SEQ or DYN, compare S-e against off and branch to the trap block
// on failure, splitting the current block to splice the branch in right
// after the GEP.
func (w *Walker) emitBoundsCheck(fn *ir.Function, gep *ir.Instr, base ir.Value) {
	// Whitelisted for instrumentation only: never counted, never emitted.
	if w.instrOnly {
		return
	}
	if len(gep.Indices) == 0 {
		w.Stats.Consider("unable")
		if w.Diag != nil {
			w.Diag.UnableToCheck(fn.Name(), gep.Line)
		}
		return
	}

	rec, tracked := w.St.Get(base)
	if !tracked {
		w.Stats.Consider("unable")
		if w.Diag != nil {
			w.Diag.UnableToCheck(fn.Name(), gep.Line)
		}
		return
	}
	if rec.Class == state.Safe {
		w.Stats.Consider("skipped_safe")
		return
	}

	S := rec.Size
	if S == nil {
		w.Stats.Consider("unable")
		if w.Diag != nil {
			w.Diag.UnableToCheck(fn.Name(), gep.Line)
		}
		return
	}
	elemSize, sizedOK := gep.Ty.Elem.Sized()
	if !sizedOK {
		w.Stats.Consider("unable")
		if w.Diag != nil {
			w.Diag.UnableToCheck(fn.Name(), gep.Line)
		}
		return
	}

	w.after(gep)
	e := w.B.ConstInt(ir.SizeType, int64(elemSize))
	off := w.Oracle.OffsetOf(gep)
	lhs := w.B.Sub(S, e, ir.SizeType, "")
	cmp := w.B.ICmpSLT(lhs, off, "")

	isConst, val := ir.FoldedBool(cmp)
	switch {
	case isConst && !val:
		w.Stats.Consider("always_false")
		if w.Opts.Naive {
			w.spliceBranch(fn, gep, cmp)
		}
	case isConst && val:
		w.Stats.Consider("always_true")
		if w.Diag != nil {
			w.Diag.AlwaysTrueCheck(fn.Name(), gep.Line)
		}
		w.spliceBranch(fn, gep, cmp)
	default:
		w.Stats.Consider("added")
		if w.Opts.Debug {
			if cmpInstr, ok := cmp.(*ir.Instr); ok {
				w.B.SetInsertBefore(cmpInstr.Parent, cmpInstr)
			}
			w.emitPrintCheck()
		}
		w.spliceBranch(fn, gep, cmp)
	}
}

func (w *Walker) emitPrintCheck() {
	if w.Runtime.PrintCheck == nil {
		return
	}
	w.B.Call(w.Runtime.PrintCheck, nil, "")
}

// spliceBranch splits gep's block right after gep, then terminates the
// predecessor half with a branch to the trap block (unconditional for a
// folded-true comparison, conditional otherwise) and lets the successor
// half fall through as the fresh continuation block.
func (w *Walker) spliceBranch(fn *ir.Function, gep *ir.Instr, cmp ir.Value) {
	bb := gep.Parent
	splitPoint, ok := w.nextInBlock[gep]
	if !ok {
		return
	}
	tail := w.B.SplitBlock(bb, splitPoint, "nescheck.cont")
	trap := w.Trap.Get(fn, gep.Line)
	w.B.SetInsertPoint(bb)

	if isConst, val := ir.FoldedBool(cmp); isConst {
		if val {
			w.B.Br(trap)
		} else {
			w.B.Br(tail)
		}
		return
	}
	w.B.CondBr(cmp, trap, tail)
}
