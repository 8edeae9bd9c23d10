// Package pass implements the whole-module driver: the seven steps that
// turn a decoded ir.Module into an instrumented one plus a report. Nothing
// in here does per-instruction analysis itself — that is internal/sigxform
// and internal/walker's job — this package only wires those two together in
// the documented order and collects what they produce into a report.Result.
package pass

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HexHive/nesCheck/internal/oracle"
	"github.com/HexHive/nesCheck/internal/passstats"
	"github.com/HexHive/nesCheck/internal/report"
	"github.com/HexHive/nesCheck/internal/sigxform"
	"github.com/HexHive/nesCheck/internal/state"
	"github.com/HexHive/nesCheck/internal/trapblock"
	"github.com/HexHive/nesCheck/internal/walker"
	"github.com/HexHive/nesCheck/internal/whitelist"
	"github.com/HexHive/nesCheck/ir"
)

// RuntimeNames are the four support-library symbol names the driver looks
// the module's declarations up by. Left as fields rather than constants so
// a caller linking against a differently-named runtime shim can override
// them.
type RuntimeNames struct {
	SetMetadataTableEntry    string
	LookupMetadataTableEntry string
	PrintErrorLine           string
	PrintCheck               string
}

// DefaultRuntimeNames matches internal/runtimelib's exported operations.
func DefaultRuntimeNames() RuntimeNames {
	return RuntimeNames{
		SetMetadataTableEntry:    "setMetadataTableEntry",
		LookupMetadataTableEntry: "lookupMetadataTableEntry",
		PrintErrorLine:           "printErrorLine",
		PrintCheck:               "printCheck",
	}
}

// Options configures one pass run. Naive and Debug are the two boolean
// switches that control check elision and debug instrumentation;
// WhitelistPath and Log are this rewrite's config/logging additions.
type Options struct {
	Naive         bool
	Debug         bool
	WhitelistPath string
	Runtime       RuntimeNames
	Log           *logrus.Logger
}

// Result is one pass run's outcome: the mutated module (instrumented
// in-place) plus the report ready for a report.Writer.
type Result struct {
	Module *ir.Module
	Report *report.Result
}

// Run executes the full seven-step pass over mod, mutating it in place and
// returning a report of what happened.
func Run(mod *ir.Module, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	rtNames := opts.Runtime
	if rtNames == (RuntimeNames{}) {
		rtNames = DefaultRuntimeNames()
	}

	// Step 1: cache config, select the size type, prepare the builder and
	// the oracle. ir.SizeType is fixed at package scope, since this rewrite
	// targets a single data layout rather than looking one up per module.
	b := ir.NewBuilder(mod)
	st := state.New()
	st.SetZero(b.ConstInt(ir.SizeType, 0))
	o := oracle.New(b)

	wl, err := whitelist.Load(opts.WhitelistPath)
	if err != nil {
		return nil, fmt.Errorf("pass: loading whitelist: %w", err)
	}

	// Every folds-to-true check becomes a CWEOutOfBoundsWrite finding. The
	// hook receives only the function and line, so reads and accesses
	// through a zero-size (freed) pointer are not given their own CWE.
	var findings []report.Finding
	diag := passstats.NewDiagnostics(log)
	diag.OnAlwaysTrue = func(fn string, line int64) {
		findings = append(findings, report.Finding{
			CWE:        report.CWEOutOfBoundsWrite,
			Function:   fn,
			Line:       line,
			Message:    "bounds check on this pointer access folds to always-true",
			Confidence: "high",
		})
	}
	stats := &passstats.Stats{}

	// Step 2: locate the four runtime support symbols by name. A missing
	// symbol degrades gracefully (internal/walker and internal/trapblock
	// both tolerate a nil *ir.Function for the corresponding call) rather
	// than failing the whole run, so a module built without linking against
	// internal/runtimelib can still be signature-rewritten and inspected.
	rt := walker.RuntimeFunctions{
		SetMetadataTableEntry:    mod.FuncByName(rtNames.SetMetadataTableEntry),
		LookupMetadataTableEntry: mod.FuncByName(rtNames.LookupMetadataTableEntry),
		PrintErrorLine:           mod.FuncByName(rtNames.PrintErrorLine),
		PrintCheck:               mod.FuncByName(rtNames.PrintCheck),
	}

	// Step 3: register every global with its own size. A GEP that reaches
	// into a struct or array global still gets sized correctly through
	// Oracle.SizeOf's own struct/array handling; no separate per-member
	// registration is needed here.
	for _, g := range mod.Globals {
		st.Register(g)
		st.SetSize(g, o.SizeOf(g, false))
	}

	// Step 4: run the signature transformer over every non-runtime function.
	runtimeNames := map[string]bool{
		rtNames.SetMetadataTableEntry:    true,
		rtNames.LookupMetadataTableEntry: true,
		rtNames.PrintErrorLine:           true,
		rtNames.PrintCheck:               true,
	}
	plan := sigxform.Transform(mod, st, o, wl, runtimeNames, diag, stats)

	// Step 5: walk every function the plan selected, in module order.
	trap := trapblock.New(mod, b, rt.PrintErrorLine)
	w := walker.New(mod, b, st, o, trap, wl, plan, stats, diag, rt, walker.Options{Naive: opts.Naive, Debug: opts.Debug})
	for _, fn := range plan.ToWalk {
		w.Walk(fn)
	}

	// Step 6: erase every rewritten function's now-superseded shell, unless
	// it still has uses the call-site rewriter didn't reach.
	for oldFn := range plan.Deleted {
		if uses := oldFn.Uses(); len(uses) > 0 {
			diag.LeftoverUses(oldFn.Name(), len(uses))
			continue
		}
		mod.RemoveFunction(oldFn)
	}

	if err := stats.Verify(); err != nil {
		return nil, fmt.Errorf("pass: %w", err)
	}

	res := report.NewResult(mod.Name, stats.Report(), findings, time.Now())
	return &Result{Module: mod, Report: res}, nil
}
