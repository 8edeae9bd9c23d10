package sigxform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HexHive/nesCheck/internal/oracle"
	"github.com/HexHive/nesCheck/internal/passstats"
	"github.com/HexHive/nesCheck/internal/sigxform"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/internal/whitelist"
	"github.com/HexHive/nesCheck/ir"
)

func newFixture(mod *ir.Module) (*state.Store, *oracle.Oracle) {
	b := ir.NewBuilder(mod)
	st := state.New()
	st.SetZero(b.ConstInt(ir.SizeType, 0))
	return st, oracle.New(b)
}

func TestTransformSkipsFullyWhitelistedButRegistersParams(t *testing.T) {
	mod := ir.NewModule("m")
	st, o := newFixture(mod)
	i32p := ir.PointerTo(ir.IntType(32))
	fn := mod.NewFunction("sim_boot", ir.FuncType([]*ir.Type{i32p}, ir.Void(), false), false)

	wl, err := whitelist.Load("")
	require.NoError(t, err)
	stats := &passstats.Stats{}
	diag := passstats.NewDiagnostics(nil)

	plan := sigxform.Transform(mod, st, o, wl, map[string]bool{}, diag, stats)

	assert.NotContains(t, plan.ToWalk, fn, "fully whitelisted functions are excluded from the walk")
	assert.Equal(t, 1, stats.FunctionsWhitelisted)

	size, ok := st.Get(fn.Params[0])
	require.True(t, ok)
	assert.Equal(t, int64(oracle.WhitelistSizeSentinel), size.Size.(*ir.ConstInt).Val)
}

func TestTransformRewritesPointerParamAndReturn(t *testing.T) {
	mod := ir.NewModule("m")
	st, o := newFixture(mod)
	i32p := ir.PointerTo(ir.IntType(32))
	fn := mod.NewFunction("f", ir.FuncType([]*ir.Type{i32p}, i32p, false), false)
	b := ir.NewBuilder(mod)
	b.SetInsertPoint(fn.EntryBlock())
	b.Ret(fn.Params[0])

	wl, err := whitelist.Load("")
	require.NoError(t, err)
	stats := &passstats.Stats{}
	diag := passstats.NewDiagnostics(nil)

	plan := sigxform.Transform(mod, st, o, wl, map[string]bool{}, diag, stats)

	require.Len(t, plan.ToWalk, 1)
	newFn := plan.ToWalk[0]
	assert.Equal(t, "f_nesCheck", newFn.Name())
	assert.Len(t, newFn.Params, 2, "one size parameter appended for the pointer param")
	assert.True(t, newFn.Ty.Ret.IsStruct())
	assert.True(t, plan.ReturnWidened[newFn])
	assert.Same(t, newFn, plan.Deleted[fn])
}

func TestTransformLeavesNonPointerFunctionsAlone(t *testing.T) {
	mod := ir.NewModule("m")
	st, o := newFixture(mod)
	fn := mod.NewFunction("g", ir.FuncType([]*ir.Type{ir.IntType(32)}, ir.Void(), false), false)

	wl, err := whitelist.Load("")
	require.NoError(t, err)
	stats := &passstats.Stats{}
	diag := passstats.NewDiagnostics(nil)

	plan := sigxform.Transform(mod, st, o, wl, map[string]bool{}, diag, stats)

	require.Len(t, plan.ToWalk, 1)
	assert.Same(t, fn, plan.ToWalk[0])
	assert.Empty(t, plan.Deleted)
}
