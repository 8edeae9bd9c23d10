package sigxform

import (
	"github.com/HexHive/nesCheck/internal/chainwalk"
	"github.com/HexHive/nesCheck/internal/oracle"
	"github.com/HexHive/nesCheck/internal/passstats"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/ir"
)

// RewriteCallSite replaces a call to an old (deleted) function with a call
// to its _nesCheck twin, inserting one size argument per pointer fixed
// argument and, when the callee's return type was widened, splitting the
// resulting {value, size} aggregate back into the two pieces the rest of
// the block still expects.
//
// b must already be positioned so that new instructions land immediately
// before call.
func RewriteCallSite(b *ir.Builder, st *state.Store, o *oracle.Oracle, plan *Plan, call *ir.Instr, diag *passstats.Diagnostics) {
	oldFn := call.Callee
	newFn, ok := plan.Deleted[oldFn]
	if !ok {
		return
	}

	fixedCount := len(oldFn.Ty.Params)
	var fixed, varArgs []ir.Value
	for i, a := range call.Args {
		if i < fixedCount {
			fixed = append(fixed, a)
		} else {
			varArgs = append(varArgs, a)
		}
	}

	newArgs := append([]ir.Value{}, fixed...)
	for i, p := range oldFn.Params {
		if !p.Ty.IsPointer() {
			continue
		}
		size, resolved := chainwalk.ResolveSize(st, o, fixed[i])
		if !resolved {
			if diag != nil {
				diag.UnableToCheck(call.Parent.Parent.Name(), call.Line)
			}
			size = o.SizeOf(fixed[i], false)
		}
		newArgs = append(newArgs, size)
	}
	newArgs = append(newArgs, varArgs...)

	newCall := b.Call(newFn, newArgs, call.Name())
	newCall.Line = call.Line
	newCall.TailCall = call.TailCall

	if plan.ReturnWidened[newFn] {
		aggTy := newFn.Ty.Ret
		orig := b.ExtractValue(newCall, 0, aggTy.Fields[0], call.Name()+".val")
		size := b.ExtractValue(newCall, 1, aggTy.Fields[1], call.Name()+".size")
		ir.ReplaceUses(call.Parent.Parent, call, orig)
		st.SetSize(orig, size)
	} else {
		ir.ReplaceUses(call.Parent.Parent, call, newCall)
	}

	removeInstr(call.Parent, call)
}

// removeInstr deletes in from bb's instruction list. Call sites are rewired
// onto the replacement value before this runs, so no operand ever observes
// the removal.
func removeInstr(bb *ir.BasicBlock, in *ir.Instr) {
	for i, cur := range bb.Instrs {
		if cur == in {
			bb.Instrs = append(bb.Instrs[:i], bb.Instrs[i+1:]...)
			return
		}
	}
}
