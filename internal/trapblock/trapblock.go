// Package trapblock implements the lazily-created, per-function trap block
// a bounds-check failure branches to.
package trapblock

import "github.com/HexHive/nesCheck/ir"

// Builder lazily creates and reuses a single trap block per function.
type Builder struct {
	mod            *ir.Module
	b              *ir.Builder
	printErrorLine *ir.Function
	trapBlocks     map[*ir.Function]*ir.BasicBlock
}

func New(mod *ir.Module, b *ir.Builder, printErrorLine *ir.Function) *Builder {
	return &Builder{mod: mod, b: b, printErrorLine: printErrorLine, trapBlocks: map[*ir.Function]*ir.BasicBlock{}}
}

// Reset clears the recorded trap block for fn, called at the start of
// analysis for each function.
func (t *Builder) Reset(fn *ir.Function) {
	delete(t.trapBlocks, fn)
}

// Get returns fn's trap block, creating it (with the given trigger line) on
// first call for that function and reusing it on every subsequent call.
func (t *Builder) Get(fn *ir.Function, line int64) *ir.BasicBlock {
	if bb, ok := t.trapBlocks[fn]; ok {
		return bb
	}
	bb := fn.AddBlock("nescheck.trap")

	t.b.SetInsertPoint(bb)
	if t.printErrorLine != nil {
		lineArg := t.b.ConstInt(ir.SizeType, line)
		t.b.Call(t.printErrorLine, []ir.Value{lineArg}, "")
	}
	// The architecture trap intrinsic is modeled as an Unreachable
	// terminator: a call with no successor exactly matches what the trap
	// intrinsic does (never returns), and keeps the trap block terminated
	// the way every other basic block must be.
	t.b.Unreachable()

	t.trapBlocks[fn] = bb
	return bb
}
