// Package chainwalk implements the small "walk back through load/cast
// chains" traversal: a small, explicit loop with one branch per recognised
// opcode, not recursion. It backs the Return handler, the call-site
// rewriter, and the free() propagation case in the instruction walker.
package chainwalk

import (
	"github.com/HexHive/nesCheck/internal/oracle"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/ir"
)

// ResolveSize walks back from v through Load/BitCast/IntToPtr/PtrToInt
// chains looking for the nearest value with a tracked record, returning its
// recorded size. If the chain ends unfulfilled and v itself is a constant,
// a size is synthesised via the oracle. Returns ok=false when neither
// succeeds. The Return handler then emits a diagnostic and leaves that
// return unchanged; the call-site rewriter emits a diagnostic, takes the
// oracle's size for that argument and still rewrites the call, so it does
// not abandon the site.
func ResolveSize(st *state.Store, o *oracle.Oracle, v ir.Value) (ir.Value, bool) {
	cur := v
	for {
		if r, ok := st.Get(cur); ok {
			return r.Size, true
		}
		instr, isInstr := cur.(*ir.Instr)
		if !isInstr {
			break
		}
		switch instr.Op {
		case ir.OpLoad, ir.OpBitCast, ir.OpIntToPtr, ir.OpPtrToInt:
			cur = instr.Operands[0]
			continue
		}
		break
	}
	if c, ok := v.(*ir.ConstInt); ok {
		return o.SizeOf(c, false), true
	}
	return nil, false
}

// PropagateFree resets p's recorded size to zero, then walks backwards
// through Load/BitCast chains resetting each intermediate value's size too,
// so a freed pointer's aliases don't retain a stale nonzero size.
func PropagateFree(st *state.Store, p ir.Value) {
	cur := p
	for {
		st.SetSize(cur, nil)
		instr, isInstr := cur.(*ir.Instr)
		if !isInstr {
			return
		}
		switch instr.Op {
		case ir.OpLoad, ir.OpBitCast:
			cur = instr.Operands[0]
			continue
		}
		return
	}
}
