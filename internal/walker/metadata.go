package walker

import "github.com/HexHive/nesCheck/ir"

// emitMetadataSet emits setMetadataTableEntry(ptrToInt(p), size, ptrToInt(p))
// at the builder's current insert point. The third argument (addr) is used
// by the runtime only for diagnostics; the same pointer is reused there
// since no separate instruction address concept exists here.
func (w *Walker) emitMetadataSet(p ir.Value, size ir.Value) {
	if w.Runtime.SetMetadataTableEntry == nil {
		return
	}
	w.Stats.MetadataTableUpdates++
	key := w.B.PtrToInt(p, "")
	w.B.Call(w.Runtime.SetMetadataTableEntry, []ir.Value{key, size, key}, "")
}

// emitMetadataLookup emits lookupMetadataTableEntry(ptrToInt(p)) and returns
// its result.
func (w *Walker) emitMetadataLookup(p ir.Value) ir.Value {
	if w.Runtime.LookupMetadataTableEntry == nil {
		return w.B.ConstInt(ir.SizeType, 0)
	}
	w.Stats.MetadataTableLookups++
	key := w.B.PtrToInt(p, "")
	return w.B.Call(w.Runtime.LookupMetadataTableEntry, []ir.Value{key}, "")
}
