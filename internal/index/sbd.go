package index

// Pair is an (a, b) similar-but-different pair as delivered by the DAO,
// ordered ascending by a with the invariant a < b (the lexicographically
// smaller ref owns the exclusion entry — see spec.md §3/§4.3).
type Pair struct {
	A string
	B string
}

// AttachAll walks the Index in sorted order in a single pass alongside
// pairs (also sorted ascending by A), advancing the Index pointer to the
// entry keyed by each pair's A and prepending B to that entry's SBD set.
// Entries with no pairs are untouched; pairs whose A has no entry are
// silently skipped. Ported from the merge-walk in
// original_source/src/similar_but_different_dao.c's
// picinfo_list_refresh_similar_but_different.
func (idx *Index) AttachAll(pairs []Pair) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	i := 0
	for _, p := range pairs {
		for i < len(idx.entries) && idx.entries[i].Ref < p.A {
			i++
		}
		if i < len(idx.entries) && idx.entries[i].Ref == p.A {
			idx.entries[i].SBD = append([]string{p.B}, idx.entries[i].SBD...)
		}
		// else: pair's A has no entry; silently skipped per spec.md.
	}
}

// ClearAll empties every entry's SBD set without touching miniatures.
func (idx *Index) ClearAll() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, e := range idx.entries {
		e.SBD = nil
	}
}
