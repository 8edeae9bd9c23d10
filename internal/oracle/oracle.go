// Package oracle wraps the compile-time static object-size-offset
// evaluator this pass consults for every pointer. With no host compiler
// to defer to, the "known size" step is a thin, always-conservative
// stand-in (it never claims a statically known size for anything beyond a
// bare sized type), so every fallback below actually gets exercised
// rather than short-circuited by a smarter evaluator.
package oracle

import "github.com/HexHive/nesCheck/ir"

// UnknownSizeSentinel is the size recorded for a pointer whose size
// genuinely cannot be determined, such as the result of an uninstrumented
// indirect call.
const UnknownSizeSentinel = 10_000_000

// WhitelistSizeSentinel is the size assigned to a fully-whitelisted
// function's pointer parameters. Distinct from UnknownSizeSentinel so the
// two "we don't know" cases remain distinguishable in a report.
const WhitelistSizeSentinel = 10_000

// Oracle answers static size/offset questions for the walker, building any
// live IR it needs through b.
type Oracle struct {
	b *ir.Builder
}

func New(b *ir.Builder) *Oracle { return &Oracle{b: b} }

// hostKnownSize stands in for the host compiler's object-size-offset
// evaluator. It only ever succeeds for globals whose pointee type has a
// byte size — genuinely "statically known"
// information that doesn't require any of the fallbacks below. Everything
// else routes through SizeOf's fallback chain.
func hostKnownSize(v ir.Value) (uint64, bool) {
	if g, ok := v.(*ir.Global); ok {
		return g.PointeeType.Sized()
	}
	return 0, false
}

// SizeOf computes the allocation size in bytes of the object v points to
// (or, for a non-pointer, sizeof its own type). indirectCallUninstrumented
// should be true when v is the result of a call to a function the pass has
// not (and will not) rewrite a signature for.
func (o *Oracle) SizeOf(v ir.Value, indirectCallUninstrumented bool) ir.Value {
	if n, ok := hostKnownSize(v); ok {
		return o.b.ConstInt(ir.SizeType, int64(n))
	}

	t := v.Type()
	unwrapped := t
	if t.IsPointer() {
		unwrapped = t.Elem
	}

	// 1. Array type: N * sizeof(element), widened to the size type.
	if unwrapped != nil && unwrapped.IsArray() {
		elemSize, ok := unwrapped.Elem.Sized()
		if ok {
			return o.b.ConstInt(ir.SizeType, int64(elemSize)*int64(unwrapped.Len))
		}
	}

	// 2. Function type: the machine pointer width.
	if unwrapped != nil && unwrapped.IsFunc() {
		return o.b.ConstInt(ir.SizeType, ir.PointerBytes)
	}

	// 3. Result of an uninstrumented indirect call returning a pointer.
	if indirectCallUninstrumented {
		return o.b.ConstInt(ir.SizeType, UnknownSizeSentinel)
	}

	// 4. Sized type: sizeof(T) as a constant.
	if sz, ok := unwrapped.Sized(); ok {
		return o.b.ConstInt(ir.SizeType, int64(sz))
	}

	// 5. Otherwise: zero.
	return o.b.ConstInt(ir.SizeType, 0)
}

// OffsetOf computes the byte offset a GEP's index chain reaches: a
// constant if every index is constant, else live IR computing
// lastIndex * sizeof(elementType).
func (o *Oracle) OffsetOf(gep *ir.Instr) ir.Value {
	if len(gep.Indices) == 0 {
		return o.b.ConstInt(ir.SizeType, 0)
	}
	last := gep.Indices[len(gep.Indices)-1]

	allConst := true
	for _, idx := range gep.Indices {
		if _, ok := idx.(*ir.ConstInt); !ok {
			allConst = false
			break
		}
	}
	elemSize, sizedOK := gep.SourceElemType.Sized()

	if allConst && sizedOK {
		lastConst := last.(*ir.ConstInt)
		return o.b.ConstInt(ir.SizeType, lastConst.Val*int64(elemSize))
	}

	elemSizeVal := o.b.ConstInt(ir.SizeType, int64(elemSize))
	widened := widen(o.b, last)
	return o.b.Mul(widened, elemSizeVal, ir.SizeType, "")
}

// widen zero/sign-extends a narrower integer index to the platform size
// type. Since the constant folder here only tracks int64 values, a
// non-constant narrower index is treated as already the right width; an
// explicit sext/zext at the bit level would have no observable effect on
// this package's arithmetic.
func widen(b *ir.Builder, v ir.Value) ir.Value {
	if c, ok := v.(*ir.ConstInt); ok && !c.Ty.Equal(ir.SizeType) {
		return b.ConstInt(ir.SizeType, c.Val)
	}
	return v
}
