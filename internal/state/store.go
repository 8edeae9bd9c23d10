package state

import "github.com/HexHive/nesCheck/ir"

// Record is the per-value abstract state the pass tracks: safety class,
// recorded size, and whatever cross-block bookkeeping a size needs.
type Record struct {
	Class Class
	Size  ir.Value // an IR value computing the allocation size in bytes

	HasTableEntry bool

	// HasExplicitSizeSlot / ExplicitSizeSlot: the address (an alloca) that
	// carries this value's size across basic blocks, or — for a rewritten
	// function's pointer parameter — the companion size parameter standing
	// in for one (no real memory needed, since a parameter already
	// dominates the whole function).
	HasExplicitSizeSlot        bool
	ExplicitSizeSlot           ir.Value
	ExplicitSlotInstantiated   bool
	explicitSlotInstantiatedIn *ir.BasicBlock // which block last loaded the slot
}

// Store is the abstract state store, exclusively owned by one pass run. It
// is keyed on ir.ValueID, an identity that stays stable over the pass's
// lifetime.
type Store struct {
	records map[ir.ValueID]*Record
	zero    ir.Value // shared zero-size constant, set by SetZero
}

func New() *Store {
	return &Store{records: make(map[ir.ValueID]*Record)}
}

// SetZero installs the IR zero constant used as the default size and as the
// value free() resets a pointer's size to.
func (s *Store) SetZero(z ir.Value) { s.zero = z }

// Register is idempotent: it creates a default {SAFE, 0} record on first
// reference to v and is a no-op thereafter.
func (s *Store) Register(v ir.Value) *Record {
	if v == nil {
		return nil
	}
	if r, ok := s.records[v.ID()]; ok {
		return r
	}
	r := &Record{Class: Safe, Size: s.zero}
	s.records[v.ID()] = r
	return r
}

// isNullConstant reports whether v is the IR null-pointer constant, which
// the store handles specially rather than recording.
func isNullConstant(v ir.Value) bool {
	c, ok := v.(*ir.ConstInt)
	return ok && c.IsNullPointer()
}

// Get returns the record for v, or a synthesized ephemeral {SAFE, 0}
// record for the null-pointer constant, without registering anything.
func (s *Store) Get(v ir.Value) (*Record, bool) {
	if v == nil {
		return nil, false
	}
	if isNullConstant(v) {
		return &Record{Class: Safe, Size: s.zero}, true
	}
	r, ok := s.records[v.ID()]
	return r, ok
}

// Classify enforces the monotonic lattice rule: a reclassification is
// accepted only if strictly greater than the current class. Registers v
// if unseen.
func (s *Store) Classify(v ir.Value, c Class) {
	if v == nil || isNullConstant(v) {
		return
	}
	r := s.Register(v)
	r.Class = max(r.Class, c)
}

// ClassOf returns v's current class, SAFE if unregistered.
func (s *Store) ClassOf(v ir.Value) Class {
	if r, ok := s.Get(v); ok {
		return r.Class
	}
	return Safe
}

// SetSize records the IR value computing v's allocation size. A nil size
// resets to the zero constant, matching what the free() handler does.
func (s *Store) SetSize(v ir.Value, size ir.Value) {
	if v == nil || isNullConstant(v) {
		return
	}
	r := s.Register(v)
	if size == nil {
		size = s.zero
	}
	r.Size = size
}

func (s *Store) SizeOf(v ir.Value) ir.Value {
	if r, ok := s.Get(v); ok {
		return r.Size
	}
	return s.zero
}

// SetExplicitSizeSlot materializes v's cross-block size carrier.
func (s *Store) SetExplicitSizeSlot(v ir.Value, slot ir.Value) {
	r := s.Register(v)
	r.HasExplicitSizeSlot = true
	r.ExplicitSizeSlot = slot
}

// SetInstantiated records that a load from v's explicit size slot is live
// in block bb, per the Load handler.
func (s *Store) SetInstantiated(v ir.Value, instantiated bool, bb *ir.BasicBlock) {
	r := s.Register(v)
	r.ExplicitSlotInstantiated = instantiated
	r.explicitSlotInstantiatedIn = bb
}

// InstantiatedIn reports the block the most recent slot load happened in,
// used by the Load handler to decide whether a fresh load is needed.
func (s *Store) InstantiatedIn(v ir.Value) *ir.BasicBlock {
	if r, ok := s.Get(v); ok {
		return r.explicitSlotInstantiatedIn
	}
	return nil
}

// MarkTableEntry records that a runtime metadata-table entry now exists
// for v.
func (s *Store) MarkTableEntry(v ir.Value) {
	r := s.Register(v)
	r.HasTableEntry = true
}

// ClassCounts returns the total number of tracked values at each class,
// for the statistics block in a report.
func (s *Store) ClassCounts() map[Class]int {
	out := map[Class]int{Safe: 0, Seq: 0, Dyn: 0}
	for _, r := range s.records {
		out[r.Class]++
	}
	return out
}

// Len reports how many values the store has ever registered.
func (s *Store) Len() int { return len(s.records) }
