// Package walker implements the per-instruction dataflow walker, the
// largest single component of the pass. It visits every instruction of an
// already signature-rewritten function, in the order snapshotted at the
// start of analysis, updating the abstract state store and emitting
// whatever IR a given opcode requires (metadata-table calls, size
// arithmetic, bounds comparisons, trap branches).
package walker

import (
	"github.com/HexHive/nesCheck/internal/oracle"
	"github.com/HexHive/nesCheck/internal/passstats"
	"github.com/HexHive/nesCheck/internal/sigxform"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/internal/trapblock"
	"github.com/HexHive/nesCheck/internal/whitelist"
	"github.com/HexHive/nesCheck/ir"
)

// Options are the pass's two run-time switches, threaded here as explicit
// fields rather than package-level flags so multiple pass runs can use
// different settings concurrently.
type Options struct {
	// Naive disables elision of provably-false bounds checks.
	Naive bool
	// Debug injects a printCheck() call before every inserted comparison.
	Debug bool
}

// RuntimeFunctions are the four support-library symbols the driver
// located by name; Walker calls into whichever of them a given
// instruction needs.
type RuntimeFunctions struct {
	SetMetadataTableEntry    *ir.Function
	LookupMetadataTableEntry *ir.Function
	PrintErrorLine           *ir.Function
	PrintCheck               *ir.Function
}

// Walker holds everything shared across every function it visits during one
// pass run: the module, the constant-folding builder, the abstract state
// store, the size/offset oracle, the lazily-created trap-block builder, the
// whitelist, the signature transformer's plan (for triggering call-site
// rewriting), the statistics counters and the diagnostic sink.
type Walker struct {
	Mod     *ir.Module
	B       *ir.Builder
	St      *state.Store
	Oracle  *oracle.Oracle
	Trap    *trapblock.Builder
	Wl      *whitelist.List
	Plan    *sigxform.Plan
	Stats   *passstats.Stats
	Diag    *passstats.Diagnostics
	Runtime RuntimeFunctions
	Opts    Options

	// per-function state, reset by Walk
	nextInBlock map[*ir.Instr]*ir.Instr
	instrOnly   bool // whitelisted for instrumentation only
}

func New(mod *ir.Module, b *ir.Builder, st *state.Store, o *oracle.Oracle, trap *trapblock.Builder, wl *whitelist.List, plan *sigxform.Plan, stats *passstats.Stats, diag *passstats.Diagnostics, rt RuntimeFunctions, opts Options) *Walker {
	return &Walker{Mod: mod, B: b, St: st, Oracle: o, Trap: trap, Wl: wl, Plan: plan, Stats: stats, Diag: diag, Runtime: rt, Opts: opts}
}

// Walk analyses fn: snapshots its instructions, computes its
// instrumentation-only flag, resets its trap-block pointer, and dispatches
// each instruction in program order.
func (w *Walker) Walk(fn *ir.Function) {
	w.Trap.Reset(fn)
	w.instrOnly = w.Wl.InstrumentationOnly(fn.Name())
	w.nextInBlock = buildNextInBlock(fn)

	snapshot := fn.AllInstructions()
	for _, instr := range snapshot {
		w.dispatch(fn, instr)
	}
}

func buildNextInBlock(fn *ir.Function) map[*ir.Instr]*ir.Instr {
	m := make(map[*ir.Instr]*ir.Instr)
	for _, b := range fn.Blocks {
		for i := 0; i+1 < len(b.Instrs); i++ {
			m[b.Instrs[i]] = b.Instrs[i+1]
		}
	}
	return m
}

func (w *Walker) dispatch(fn *ir.Function, instr *ir.Instr) {
	switch instr.Op {
	case ir.OpAlloca:
		w.handleAlloca(instr)
	case ir.OpCall, ir.OpCallIndirect:
		w.handleCall(fn, instr)
	case ir.OpRet:
		w.handleReturn(fn, instr)
	case ir.OpStore:
		w.handleStore(instr)
	case ir.OpLoad:
		w.handleLoad(instr)
	case ir.OpGEP:
		w.handleGEP(fn, instr)
	case ir.OpBitCast, ir.OpIntToPtr, ir.OpPtrToInt:
		w.handleCast(instr)
	default:
		// Br, CondBr, ICmpSLT, Sub, Mul, Unreachable, ExtractValue,
		// InsertValue: no state change, nothing emitted.
	}
}
