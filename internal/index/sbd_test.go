package index

import (
	"testing"

	"github.com/pixeldup/dids/internal/miniature"
)

func TestAttachAllOwnerGetsExclusionOtherDoesNot(t *testing.T) {
	idx := New()
	m, err := miniature.New(1, 1)
	if err != nil {
		t.Fatalf("miniature.New failed: %v", err)
	}
	idx.Insert(Build("a", m, nil))
	idx.Insert(Build("b", m, nil))

	idx.AttachAll([]Pair{{A: "a", B: "b"}})

	a := idx.Lookup("a")
	b := idx.Lookup("b")
	if !a.ContainsSBD("b") {
		t.Fatal("expected a's SBD set to contain b")
	}
	if b.ContainsSBD("a") {
		t.Fatal("expected b's SBD set to not contain a")
	}
}

func TestAttachAllSkipsPairsWithNoEntry(t *testing.T) {
	idx := New()
	m, _ := miniature.New(1, 1)
	idx.Insert(Build("b", m, nil))

	idx.AttachAll([]Pair{{A: "a", B: "x"}, {A: "b", B: "y"}})

	b := idx.Lookup("b")
	if !b.ContainsSBD("y") {
		t.Fatal("expected b's SBD set to contain y")
	}
	if len(b.SBD) != 1 {
		t.Fatalf("expected exactly one SBD entry for b, got %v", b.SBD)
	}
}

func TestClearAllEmptiesSBDSets(t *testing.T) {
	idx := New()
	m, _ := miniature.New(1, 1)
	idx.Insert(Build("a", m, nil))
	idx.Insert(Build("b", m, nil))
	idx.AttachAll([]Pair{{A: "a", B: "b"}})

	idx.ClearAll()

	if a := idx.Lookup("a"); len(a.SBD) != 0 {
		t.Fatalf("expected empty SBD set after ClearAll, got %v", a.SBD)
	}
}

func TestRefreshUnionMatchesDAOPairs(t *testing.T) {
	// Property from spec.md §8: after refresh, the union of all per-entry
	// SBD sets equals {b | (a,b) in DAO, entry(a) exists}.
	idx := New()
	m, _ := miniature.New(1, 1)
	for _, ref := range []string{"a", "b", "c", "e"} {
		idx.Insert(Build(ref, m, nil))
	}

	pairs := []Pair{
		{A: "a", B: "b"},
		{A: "a", B: "c"},
		{A: "b", B: "e"},
		{A: "d", B: "zzz"}, // "d" has no entry, must be skipped
	}
	idx.AttachAll(pairs)

	union := map[string]bool{}
	for _, e := range idx.Snapshot() {
		for _, s := range e.SBD {
			union[s] = true
		}
	}

	want := map[string]bool{"b": true, "c": true, "e": true}
	if len(union) != len(want) {
		t.Fatalf("expected union %v, got %v", want, union)
	}
	for k := range want {
		if !union[k] {
			t.Fatalf("expected union to contain %s, got %v", k, union)
		}
	}
}
