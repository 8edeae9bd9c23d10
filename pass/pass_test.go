package pass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HexHive/nesCheck/ir"
	"github.com/HexHive/nesCheck/pass"
)

// buildIndexModule constructs `p = malloc(mallocSize); x = p[index]` with
// sizeof(int)=4.
func buildIndexModule(mallocSize, index int64) *ir.Module {
	mod := ir.NewModule("m")
	i32 := ir.IntType(32)
	mallocFn := mod.NewFunction("malloc", ir.FuncType([]*ir.Type{ir.SizeType}, ir.PointerTo(i32), false), true)

	fn := mod.NewFunction("f", ir.FuncType(nil, ir.Void(), false), false)
	b := ir.NewBuilder(mod)
	b.SetInsertPoint(fn.EntryBlock())

	size := b.ConstInt(ir.SizeType, mallocSize)
	p := b.Call(mallocFn, []ir.Value{size}, "p")
	idx := b.ConstInt(ir.SizeType, index)
	b.GEP(p, i32, i32, []ir.Value{idx}, "p_idx")
	b.Ret(nil)

	return mod
}

func TestInBoundsConstantIndex_FoldsAlwaysFalse(t *testing.T) {
	mod := buildIndexModule(12, 2) // 12 - 4 < 2*4 => 8 < 8 => false

	result, err := pass.Run(mod, pass.Options{})
	require.NoError(t, err)

	stats := result.Report.Stats
	assert.Equal(t, 1, stats["checks_always_false"])
	assert.Equal(t, 0, stats["checks_added"])
	assert.Equal(t, 1, stats["checks_considered"])
	assert.Empty(t, result.Report.Findings)
}

func TestOutOfBoundsConstantIndex_FoldsAlwaysTrue(t *testing.T) {
	mod := buildIndexModule(8, 5) // 8 - 4 < 5*4 => 4 < 20 => true

	result, err := pass.Run(mod, pass.Options{})
	require.NoError(t, err)

	stats := result.Report.Stats
	assert.Equal(t, 1, stats["checks_always_true"])
	assert.Equal(t, 1, stats["checks_added"])
	require.Len(t, result.Report.Findings, 1)
	assert.Equal(t, "f", result.Report.Findings[0].Function)
}

func TestPointerReturningFunction_SignatureWidened(t *testing.T) {
	mod := ir.NewModule("m3")
	i32 := ir.IntType(32)
	i32p := ir.PointerTo(i32)

	// int* f(int* q) { return q; }
	f := mod.NewFunction("f", ir.FuncType([]*ir.Type{i32p}, i32p, false), false)
	b := ir.NewBuilder(mod)
	b.SetInsertPoint(f.EntryBlock())
	b.Ret(f.Params[0])

	// caller: g() { int* r = f(p); }
	mallocFn := mod.NewFunction("malloc", ir.FuncType([]*ir.Type{ir.SizeType}, i32p, false), true)
	g := mod.NewFunction("g", ir.FuncType(nil, ir.Void(), false), false)
	b.SetInsertPoint(g.EntryBlock())
	p := b.Call(mallocFn, []ir.Value{b.ConstInt(ir.SizeType, 16)}, "p")
	b.Call(f, []ir.Value{p}, "r")
	b.Ret(nil)

	result, err := pass.Run(mod, pass.Options{})
	require.NoError(t, err)

	assert.Nil(t, result.Module.FuncByName("f"), "old shell should be erased once uses are rewritten")
	newF := result.Module.FuncByName("f_nesCheck")
	require.NotNil(t, newF)
	assert.True(t, newF.Ty.Ret.IsStruct(), "widened return type should be {value, size}")
	assert.Len(t, newF.Ty.Params, 2, "one size parameter appended after the pointer parameter")

	stats := result.Report.Stats
	assert.Equal(t, 1, stats["functions_rewritten"])
	assert.Equal(t, 1, stats["call_sites_rewritten"])
}

func TestFreePropagation_SizeResetToZero(t *testing.T) {
	mod := ir.NewModule("m6")
	i32 := ir.IntType(32)
	i32p := ir.PointerTo(i32)
	mallocFn := mod.NewFunction("malloc", ir.FuncType([]*ir.Type{ir.SizeType}, i32p, false), true)
	freeFn := mod.NewFunction("free", ir.FuncType([]*ir.Type{i32p}, ir.Void(), false), true)

	fn := mod.NewFunction("f", ir.FuncType(nil, ir.Void(), false), false)
	b := ir.NewBuilder(mod)
	b.SetInsertPoint(fn.EntryBlock())
	p := b.Call(mallocFn, []ir.Value{b.ConstInt(ir.SizeType, 8)}, "p")
	b.Call(freeFn, []ir.Value{p}, "")
	idx := b.ConstInt(ir.SizeType, 1)
	b.GEP(p, i32, i32, []ir.Value{idx}, "q")
	b.Ret(nil)

	result, err := pass.Run(mod, pass.Options{})
	require.NoError(t, err)

	// After free, p's recorded size is zero, so the check on p[1] folds to
	// 0 - 4 < 4, which is true: the GEP after the free is counted as
	// always_true, not always_false.
	stats := result.Report.Stats
	assert.Equal(t, 1, stats["checks_considered"])
	assert.Equal(t, 1, stats["checks_always_true"])
}
