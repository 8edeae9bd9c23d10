// Package sigxform implements the function-signature transformer and
// call-site rewriter.
package sigxform

import "github.com/HexHive/nesCheck/ir"

// Plan is the result of running the transformer over a whole module: which
// functions were rewritten, which of those had their return type widened,
// and the full list of functions the instruction walker should visit next.
type Plan struct {
	// Deleted maps an old function shell (body already relocated) to its
	// _nesCheck twin. Erased once no uses remain.
	Deleted map[*ir.Function]*ir.Function
	// ReturnWidened marks a (possibly new) function whose return type was
	// widened to {original, size}; the walker's Return handler consults it.
	ReturnWidened map[*ir.Function]bool
	// ToWalk is every function — rewritten or left alone — the walker must
	// visit, in the module's function order.
	ToWalk []*ir.Function
}

func newPlan() *Plan {
	return &Plan{Deleted: map[*ir.Function]*ir.Function{}, ReturnWidened: map[*ir.Function]bool{}}
}
