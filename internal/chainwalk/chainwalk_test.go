package chainwalk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HexHive/nesCheck/internal/chainwalk"
	"github.com/HexHive/nesCheck/internal/oracle"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/ir"
)

func newStore(mod *ir.Module) *state.Store {
	s := state.New()
	s.SetZero(ir.NewBuilder(mod).ConstInt(ir.SizeType, 0))
	return s
}

func TestResolveSizeWalksThroughLoadAndBitCast(t *testing.T) {
	mod := ir.NewModule("m")
	b := ir.NewBuilder(mod)
	o := oracle.New(b)
	st := newStore(mod)

	i32p := ir.PointerTo(ir.IntType(32))
	fn := mod.NewFunction("f", ir.FuncType(nil, ir.Void(), false), false)
	b.SetInsertPoint(fn.EntryBlock())

	slot := b.Alloca(i32p, nil, "slot")
	st.SetSize(slot, b.ConstInt(ir.SizeType, 16))

	loaded := b.Load(slot, i32p, "p")
	cast := b.BitCast(loaded, ir.PointerTo(ir.IntType(8)), "q")

	size, ok := chainwalk.ResolveSize(st, o, cast)
	require.True(t, ok)
	assert.Equal(t, int64(16), size.(*ir.ConstInt).Val)
}

func TestResolveSizeSynthesizesForConstant(t *testing.T) {
	mod := ir.NewModule("m")
	b := ir.NewBuilder(mod)
	o := oracle.New(b)
	st := newStore(mod)

	c := b.ConstInt(ir.IntType(32), 42)
	size, ok := chainwalk.ResolveSize(st, o, c)
	require.True(t, ok)
	assert.Equal(t, int64(4), size.(*ir.ConstInt).Val)
}

func TestResolveSizeFailsWithNoRecordAndNoConstant(t *testing.T) {
	mod := ir.NewModule("m")
	b := ir.NewBuilder(mod)
	o := oracle.New(b)
	st := newStore(mod)

	fn := mod.NewFunction("f", ir.FuncType([]*ir.Type{ir.PointerTo(ir.IntType(32))}, ir.Void(), false), false)
	_, ok := chainwalk.ResolveSize(st, o, fn.Params[0])
	assert.False(t, ok)
}

func TestPropagateFreeResetsChain(t *testing.T) {
	mod := ir.NewModule("m")
	b := ir.NewBuilder(mod)
	st := newStore(mod)

	i32p := ir.PointerTo(ir.IntType(32))
	fn := mod.NewFunction("f", ir.FuncType(nil, ir.Void(), false), false)
	b.SetInsertPoint(fn.EntryBlock())

	slot := b.Alloca(i32p, nil, "slot")
	st.SetSize(slot, b.ConstInt(ir.SizeType, 8))
	loaded := b.Load(slot, i32p, "p")
	st.SetSize(loaded, b.ConstInt(ir.SizeType, 8))

	chainwalk.PropagateFree(st, loaded)

	assert.Equal(t, int64(0), st.SizeOf(loaded).(*ir.ConstInt).Val)
	assert.Equal(t, int64(0), st.SizeOf(slot).(*ir.ConstInt).Val)
}
