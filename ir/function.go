package ir

// Function is a module-level function definition or declaration.
type Function struct {
	id            ValueID
	Name_         string
	Ty            *Type // KindFunc
	Params        []*Param
	Blocks        []*BasicBlock
	IsDeclaration bool
	CallingConv   string
	Linkage       string
	module        *Module
}

func (f *Function) ID() ValueID  { return f.id }
func (f *Function) Type() *Type  { return f.Ty }
func (f *Function) Name() string { return f.Name_ }

// EntryBlock returns the function's first basic block, or nil for a
// declaration.
func (f *Function) EntryBlock() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// AllInstructions returns every instruction across every block, in program
// order. The instruction walker snapshots exactly this slice before it
// starts mutating the function.
func (f *Function) AllInstructions() []*Instr {
	var out []*Instr
	for _, b := range f.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

// NumPointerParams counts pointer-typed formal parameters: the number of
// size parameters a signature rewrite appends.
func (f *Function) NumPointerParams() int {
	n := 0
	for _, p := range f.Params {
		if p.Ty.IsPointer() {
			n++
		}
	}
	return n
}

// Uses returns every Call instruction across the whole module naming f as a
// direct callee. Used by the pass driver's "leftover uses of a
// to-be-deleted function" check.
func (f *Function) Uses() []*Instr {
	var out []*Instr
	for _, other := range f.module.Functions {
		for _, b := range other.Blocks {
			for _, in := range b.Instrs {
				if in.Op == OpCall && in.Callee == f {
					out = append(out, in)
				}
			}
		}
	}
	return out
}

func (f *Function) addBlock(name string) *BasicBlock {
	bb := &BasicBlock{id: f.module.NewID(), Name_: name, Parent: f}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// AddBlock appends a fresh, unconnected basic block to f. Exported for
// callers outside package ir that need to materialize new blocks, such as
// the trap-block builder.
func (f *Function) AddBlock(name string) *BasicBlock {
	return f.addBlock(name)
}
