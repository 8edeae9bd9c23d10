// Package passstats holds the pass's statistics counters and the
// diagnostic sink advisory pass output flows through, logging through
// logrus with structured fields rather than bare fmt.Println.
package passstats

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Stats are the module-global opaque counters this pass increments as it
// runs. The four outcome counters are disjoint by construction:
//
//	ChecksConsidered = ChecksAdded + ChecksSkippedForSafe + ChecksUnable + ChecksAlwaysFalse
//
// with ChecksAlwaysTrue counted inside ChecksAdded.
type Stats struct {
	FunctionsAnalyzed    int
	FunctionsRewritten   int
	FunctionsWhitelisted int
	CallSitesRewritten   int

	ChecksConsidered     int
	ChecksAdded          int
	ChecksSkippedForSafe int
	ChecksUnable         int
	ChecksAlwaysFalse    int
	ChecksAlwaysTrue     int

	MetadataTableUpdates  int
	MetadataTableLookups  int
	ExplicitSizeSlots     int
}

// Consider records a bounds check that was evaluated, and its outcome,
// keeping the disjoint-counters identity true by construction: every code
// path that increments one of the four outcome counters goes through here.
func (s *Stats) Consider(outcome string) {
	s.ChecksConsidered++
	switch outcome {
	case "added":
		s.ChecksAdded++
	case "always_true":
		s.ChecksAdded++
		s.ChecksAlwaysTrue++
	case "skipped_safe":
		s.ChecksSkippedForSafe++
	case "unable":
		s.ChecksUnable++
	case "always_false":
		s.ChecksAlwaysFalse++
	default:
		panic(fmt.Sprintf("passstats: unknown check outcome %q", outcome))
	}
}

// Verify checks the disjoint-counters identity holds; used by tests and by
// the driver's final report as a self-check.
func (s *Stats) Verify() error {
	sum := s.ChecksAdded + s.ChecksSkippedForSafe + s.ChecksUnable + s.ChecksAlwaysFalse
	if sum != s.ChecksConsidered {
		return fmt.Errorf("passstats: outcome counters do not sum to considered: considered=%d added=%d skipped=%d unable=%d alwaysFalse=%d",
			s.ChecksConsidered, s.ChecksAdded, s.ChecksSkippedForSafe, s.ChecksUnable, s.ChecksAlwaysFalse)
	}
	return nil
}

// Report is a snapshot of the counters, keyed the way internal/report
// expects for text/JSON rendering.
func (s *Stats) Report() map[string]int {
	return map[string]int{
		"functions_analyzed":     s.FunctionsAnalyzed,
		"functions_rewritten":    s.FunctionsRewritten,
		"functions_whitelisted":  s.FunctionsWhitelisted,
		"call_sites_rewritten":   s.CallSitesRewritten,
		"checks_considered":      s.ChecksConsidered,
		"checks_added":           s.ChecksAdded,
		"checks_skipped_safe":    s.ChecksSkippedForSafe,
		"checks_unable":          s.ChecksUnable,
		"checks_always_false":    s.ChecksAlwaysFalse,
		"checks_always_true":     s.ChecksAlwaysTrue,
		"metadata_table_updates": s.MetadataTableUpdates,
		"metadata_table_lookups": s.MetadataTableLookups,
		"explicit_size_slots":    s.ExplicitSizeSlots,
	}
}

// Diagnostics is the single sink advisory pass output flows through.
type Diagnostics struct {
	Log *logrus.Logger

	// OnAlwaysTrue, if set, is called alongside the log line below for every
	// statically-provable bug. The pass driver hooks this to turn the raw
	// fn/line pair into a reportable finding, keeping this package itself
	// free of any dependency on the report format.
	OnAlwaysTrue func(fn string, line int64)
}

func NewDiagnostics(log *logrus.Logger) *Diagnostics {
	if log == nil {
		log = logrus.New()
	}
	return &Diagnostics{Log: log}
}

// ValueNotFound reports the anomaly of a walk-back chain that ended
// without finding a tracked record.
func (d *Diagnostics) ValueNotFound(fn string, context string) {
	d.Log.WithFields(logrus.Fields{"function": fn, "context": context}).
		Warn("nescheck: unable to find a tracked size along the walk-back chain; site abandoned")
}

// LeftoverUses reports a function marked for deletion that still has uses.
func (d *Diagnostics) LeftoverUses(fn string, useCount int) {
	d.Log.WithFields(logrus.Fields{"function": fn, "uses": useCount}).
		Warn("nescheck: function marked for deletion still has uses; not erased")
}

// TypeMismatch reports a type mismatch between a recorded size and a
// computed offset.
func (d *Diagnostics) TypeMismatch(fn string, context string) {
	d.Log.WithFields(logrus.Fields{"function": fn, "context": context}).
		Warn("nescheck: type mismatch between recorded size and computed offset")
}

// AlwaysTrueCheck records a successful, statically-diagnosed bug.
func (d *Diagnostics) AlwaysTrueCheck(fn string, line int64) {
	d.Log.WithFields(logrus.Fields{"function": fn, "line": line}).
		Info("nescheck: bounds check folds to true; statically-provable out-of-bounds access")
	if d.OnAlwaysTrue != nil {
		d.OnAlwaysTrue(fn, line)
	}
}

// UnableToCheck records a GEP site where no size could be found for the
// pointer, so the bounds check was skipped.
func (d *Diagnostics) UnableToCheck(fn string, line int64) {
	d.Log.WithFields(logrus.Fields{"function": fn, "line": line}).
		Debug("nescheck: unable to find size for pointer at GEP site; check skipped")
}
