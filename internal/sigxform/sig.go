package sigxform

import (
	"fmt"

	"github.com/HexHive/nesCheck/internal/oracle"
	"github.com/HexHive/nesCheck/internal/passstats"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/internal/whitelist"
	"github.com/HexHive/nesCheck/ir"
)

// isRuntimeSupport reports whether name is one of the four runtime symbols
// this pass locates and never rewrites.
func isRuntimeSupport(name string, runtimeNames map[string]bool) bool {
	return runtimeNames[name]
}

// Transform runs the signature transformer over every eligible function in
// mod, then returns the Plan the pass driver needs to drive the
// instruction walker and the final function-erasure pass.
func Transform(mod *ir.Module, st *state.Store, o *oracle.Oracle, wl *whitelist.List, runtimeNames map[string]bool, diag *passstats.Diagnostics, stats *passstats.Stats) *Plan {
	plan := newPlan()

	for _, fn := range mod.Functions {
		if fn.IsDeclaration || isRuntimeSupport(fn.Name_, runtimeNames) {
			continue
		}
		stats.FunctionsAnalyzed++

		// A fully whitelisted function is skipped by both signature
		// rewriting and the instruction walker: its pointer parameters are
		// registered once, with the sentinel size, and nothing else.
		if whitelist.FullyWhitelisted(fn.Name_) {
			stats.FunctionsWhitelisted++
			registerWhitelistedParams(mod, st, fn)
			continue
		}

		newFn, widened := transformOne(mod, st, fn)
		if newFn == fn {
			plan.ToWalk = append(plan.ToWalk, fn)
			continue
		}
		plan.Deleted[fn] = newFn
		if widened {
			plan.ReturnWidened[newFn] = true
		}
		stats.FunctionsRewritten++
		plan.ToWalk = append(plan.ToWalk, newFn)
	}
	_ = diag
	return plan
}

// registerWhitelistedParams handles a fully whitelisted function: its
// pointer parameters are still registered, but with the sentinel unknown
// size (WhitelistSizeSentinel), never a real computed size.
func registerWhitelistedParams(mod *ir.Module, st *state.Store, fn *ir.Function) {
	b := ir.NewBuilder(mod)
	for _, p := range fn.Params {
		if !p.Ty.IsPointer() {
			continue
		}
		st.Register(p)
		st.SetSize(p, b.ConstInt(ir.SizeType, oracle.WhitelistSizeSentinel))
	}
}

// planItem records what a single pointer parameter needs.
type planItem struct {
	param *ir.Param
}

// transformOne rewrites fn's signature when it has pointer parameters or a
// pointer return type. Returns fn itself, unchanged, if neither applies;
// otherwise the new "<fn>_nesCheck" function and whether its return type
// was widened.
func transformOne(mod *ir.Module, st *state.Store, fn *ir.Function) (*ir.Function, bool) {
	var pointerParams []*ir.Param
	for _, p := range fn.Params {
		if p.Ty.IsPointer() {
			pointerParams = append(pointerParams, p)
		}
	}
	returnWidened := fn.Ty.Ret.IsPointer()

	if len(pointerParams) == 0 && !returnWidened {
		return fn, false
	}

	newParamTypes := append([]*ir.Type{}, fn.Ty.Params...)
	for range pointerParams {
		newParamTypes = append(newParamTypes, ir.SizeType)
	}
	newRet := fn.Ty.Ret
	if returnWidened {
		newRet = ir.StructOf(fn.Ty.Ret, ir.SizeType)
	}
	newTy := ir.FuncType(newParamTypes, newRet, fn.Ty.VarArg)

	newName := fmt.Sprintf("%s_nesCheck", fn.Name_)
	newFn := mod.NewFunction(newName, newTy, true)
	newFn.CallingConv = fn.CallingConv
	newFn.Linkage = fn.Linkage
	newFn.IsDeclaration = fn.IsDeclaration

	// Take parameter names from the original; name the trailing size
	// parameters "<param>_size" in pointer-parameter order.
	for i, p := range fn.Params {
		newFn.Params[i].Name_ = p.Name_
	}
	sizeParamOf := make(map[*ir.Param]*ir.Param, len(pointerParams))
	next := len(fn.Params)
	for _, p := range pointerParams {
		sp := newFn.Params[next]
		sp.Name_ = p.Name_ + "_size"
		sizeParamOf[p] = sp
		next++
	}

	// Splice the body across and replace every use of an old parameter
	// with its new counterpart.
	newFn.Blocks = fn.Blocks
	for _, b := range newFn.Blocks {
		b.Parent = newFn
	}
	for i, p := range fn.Params {
		ir.ReplaceUses(newFn, p, newFn.Params[i])
	}
	fn.Blocks = nil

	// Register each new size parameter as the explicit, already-
	// instantiated size slot of its companion pointer parameter.
	for _, p := range pointerParams {
		newParam := newFn.Params[p.Index]
		sp := sizeParamOf[p]
		st.Register(newParam)
		st.SetSize(newParam, sp)
		st.SetExplicitSizeSlot(newParam, sp)
		st.SetInstantiated(newParam, true, nil)
	}

	return newFn, returnWidened
}
