package sigxform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HexHive/nesCheck/internal/passstats"
	"github.com/HexHive/nesCheck/internal/sigxform"
	"github.com/HexHive/nesCheck/ir"
)

// TestRewriteCallSitePreservesTailCallFlag checks that a call site marked
// as a tail call keeps that flag on the rewritten call to the _nesCheck
// twin, matching the calling convention of the call it replaces.
func TestRewriteCallSitePreservesTailCallFlag(t *testing.T) {
	mod := ir.NewModule("m")
	st, o := newFixture(mod)
	i32p := ir.PointerTo(ir.IntType(32))

	oldFn := mod.NewFunction("f", ir.FuncType([]*ir.Type{i32p}, ir.Void(), false), true)
	newFn := mod.NewFunction("f_nesCheck", ir.FuncType([]*ir.Type{i32p, ir.SizeType}, ir.Void(), false), true)

	mallocFn := mod.NewFunction("malloc", ir.FuncType([]*ir.Type{ir.SizeType}, i32p, false), true)
	caller := mod.NewFunction("g", ir.FuncType(nil, ir.Void(), false), false)
	b := ir.NewBuilder(mod)
	b.SetInsertPoint(caller.EntryBlock())
	p := b.Call(mallocFn, []ir.Value{b.ConstInt(ir.SizeType, 8)}, "p")
	st.SetSize(p, b.ConstInt(ir.SizeType, 8))
	call := b.Call(oldFn, []ir.Value{p}, "")
	call.TailCall = true
	b.Ret(nil)

	plan := &sigxform.Plan{
		Deleted:       map[*ir.Function]*ir.Function{oldFn: newFn},
		ReturnWidened: map[*ir.Function]bool{},
	}

	b.SetInsertBefore(caller.EntryBlock(), call)
	sigxform.RewriteCallSite(b, st, o, plan, call, passstats.NewDiagnostics(nil))

	require.Len(t, caller.EntryBlock().Instrs, 3, "malloc call, rewritten call, and the trailing ret; old call removed")
	newCall := caller.EntryBlock().Instrs[1]
	assert.Equal(t, newFn, newCall.Callee)
	assert.True(t, newCall.TailCall, "the rewritten call site keeps the original call's tail-call flag")
}
