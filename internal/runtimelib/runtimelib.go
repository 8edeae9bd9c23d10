// Package runtimelib implements the tiny runtime support library linked
// into an instrumented program: a linear-scan metadata table and two
// printf-style diagnostic helpers. Giving it a real, tested Go
// implementation (rather than only a described interface) pins down the
// semantics the pass relies on — grow-on-miss, linear scan,
// overwrite-on-hit — and makes them exercisable in tests.
package runtimelib

import (
	"fmt"
	"io"
	"os"
)

// entry is one {pointer, size} record. Pointers are modeled as their
// integer representation (uintptr), matching the C signature
// setMetadataTableEntry(word p, word size, word addr).
type entry struct {
	ptr  uintptr
	size uint64
}

// MetadataTable is the process-global linear-scan associative structure
// backing setMetadataTableEntry/lookupMetadataTableEntry, appended to on
// every miss.
type MetadataTable struct {
	entries []entry
}

func NewMetadataTable() *MetadataTable {
	return &MetadataTable{}
}

// Set looks up ptr; if absent, appends {ptr, size}; otherwise overwrites
// size. This is setMetadataTableEntry(p, size, addr) — the addr parameter
// is the instruction's address for diagnostics only and has no bearing on
// table semantics, so it is not modeled here.
func (t *MetadataTable) Set(ptr uintptr, size uint64) {
	for i := range t.entries {
		if t.entries[i].ptr == ptr {
			t.entries[i].size = size
			return
		}
	}
	t.entries = append(t.entries, entry{ptr: ptr, size: size})
}

// Lookup is lookupMetadataTableEntry(p): linear scan, returning the stored
// size for ptr or zero if absent.
func (t *MetadataTable) Lookup(ptr uintptr) uint64 {
	for _, e := range t.entries {
		if e.ptr == ptr {
			return e.size
		}
	}
	return 0
}

// Len reports the number of live entries, useful for tests asserting that
// overwriting an existing pointer does not insert a duplicate.
func (t *MetadataTable) Len() int { return len(t.entries) }

// Diagnostics implements printErrorLine and printCheck, writing to an
// injectable sink instead of the process's stdout/stderr so tests can
// assert on emitted text.
type Diagnostics struct {
	Out   io.Writer
	Debug bool
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{Out: os.Stdout}
}

// PrintErrorLine is printErrorLine(ln): "Memory error near line %ld.\n". It
// prints the line it is given; the trap block passes the triggering
// instruction's Line, which is 0 when no source line was recorded.
func (d *Diagnostics) PrintErrorLine(line int64) {
	fmt.Fprintf(d.Out, "Memory error near line %d.\n", line)
}

// PrintCheck is printCheck(): a debug-only single '?' byte, emitted before
// every inserted comparison when the pass's debug switch is set.
func (d *Diagnostics) PrintCheck() {
	if !d.Debug {
		return
	}
	fmt.Fprint(d.Out, "?")
}
