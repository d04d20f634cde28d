package index

import "sync"

// DeleteResult distinguishes why a delete found nothing to remove, so the
// server can log "we went past it" separately from "list was shorter" —
// spec.md calls this out as a useful diagnostic for operators.
type DeleteResult int

const (
	// Removed indicates the entry was found and removed.
	Removed DeleteResult = iota
	// PassedWithoutMatch indicates the scan passed the sorted position
	// where ref would belong without finding it.
	PassedWithoutMatch
	// NotFound indicates the scan ran off the end of the index.
	NotFound
)

func (r DeleteResult) String() string {
	switch r {
	case Removed:
		return "Removed"
	case PassedWithoutMatch:
		return "PassedWithoutMatch"
	case NotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Index is the ordered, mutex-guarded collection of Entry records sorted
// ascending by byte-wise compare of Ref. External refs are unique; at most
// one entry per ref exists at any time; iteration is always in sorted
// order; every mutation preserves the sort.
//
// A linear slice is the reference baseline the spec names as sufficient
// for correctness; a binary search (search) keeps insert/delete/lookup at
// O(log n) comparisons (the memmove on insert/delete is still O(n), same as any
// sorted-vector implementation).
type Index struct {
	mu      sync.RWMutex
	entries []*Entry
}

// New returns an empty Index.
func New() *Index {
	return &Index{}
}

// search returns the index of the first entry whose Ref is >= ref, and
// whether that entry's Ref equals ref exactly.
func (idx *Index) search(ref string) (pos int, found bool) {
	lo, hi := 0, len(idx.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if idx.entries[mid].Ref < ref {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(idx.entries) && idx.entries[lo].Ref == ref {
		return lo, true
	}
	return lo, false
}

// Insert places entry at its sorted position. Callers must not insert a
// duplicate ref — the DAO guarantees uniqueness upstream, so a collision
// here is a programming error, not a runtime path; behavior in that case
// is unspecified (the entry is inserted before the existing one).
func (idx *Index) Insert(entry *Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pos, _ := idx.search(entry.Ref)
	idx.entries = append(idx.entries, nil)
	copy(idx.entries[pos+1:], idx.entries[pos:])
	idx.entries[pos] = entry
}

// Delete removes the entry keyed by ref, reporting which of the three
// outcomes spec.md distinguishes occurred.
func (idx *Index) Delete(ref string) DeleteResult {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pos, found := idx.search(ref)
	if found {
		idx.entries = append(idx.entries[:pos], idx.entries[pos+1:]...)
		return Removed
	}
	if pos < len(idx.entries) {
		return PassedWithoutMatch
	}
	return NotFound
}

// Lookup returns the entry for ref, or nil if absent.
func (idx *Index) Lookup(ref string) *Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pos, found := idx.search(ref)
	if !found {
		return nil
	}
	return idx.entries[pos]
}

// Len returns the number of entries currently in the Index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Snapshot returns a copy of the entry pointers in sorted order. The
// entries themselves are shared (not deep-copied); callers must not
// mutate SBD slices in place without holding their own discipline. This
// is the read-only view the comparison engine iterates during fullcompare,
// when no inserts/deletes are permitted until completion (spec.md §4.4).
func (idx *Index) Snapshot() []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Unload frees every entry and every attached SBD entry, leaving the
// Index empty. In Go this just drops all references for the GC to
// reclaim; there is no manual free step.
func (idx *Index) Unload() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = nil
}
