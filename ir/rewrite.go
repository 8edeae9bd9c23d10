package ir

// ReplaceUses rewrites every operand slot across fn's instructions that
// currently reads old to instead read neu. Used by the signature
// transformer after a function's body has been relocated into its
// _nesCheck twin.
func ReplaceUses(fn *Function, old, neu Value) {
	replace := func(v Value) Value {
		if v == old {
			return neu
		}
		return v
	}
	replaceSlice := func(vs []Value) {
		for i, v := range vs {
			vs[i] = replace(v)
		}
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			replaceSlice(in.Operands)
			replaceSlice(in.Args)
			replaceSlice(in.Indices)
			if in.AllocCount != nil {
				in.AllocCount = replace(in.AllocCount)
			}
		}
	}
}
