package index

import (
	"testing"

	"github.com/pixeldup/dids/internal/miniature"
)

func tinyMiniature(t *testing.T) *miniature.Miniature {
	t.Helper()
	m, err := miniature.New(1, 1)
	if err != nil {
		t.Fatalf("miniature.New failed: %v", err)
	}
	return m
}

func refsInOrder(idx *Index) []string {
	var out []string
	for _, e := range idx.Snapshot() {
		out = append(out, e.Ref)
	}
	return out
}

func TestInsertionOrderScenario(t *testing.T) {
	// Concrete scenario 2 from spec.md §8.
	idx := New()
	m := tinyMiniature(t)
	for _, ref := range []string{"ref_1", "ref_0", "ref_4", "ref_3", "ref_2"} {
		idx.Insert(Build(ref, m, nil))
	}

	got := refsInOrder(idx)
	want := []string{"ref_0", "ref_1", "ref_2", "ref_3", "ref_4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestDeletionFromEndsAndMiddleScenario(t *testing.T) {
	// Concrete scenario 3 from spec.md §8, continuing from scenario 2.
	idx := New()
	m := tinyMiniature(t)
	for _, ref := range []string{"ref_1", "ref_0", "ref_4", "ref_3", "ref_2"} {
		idx.Insert(Build(ref, m, nil))
	}

	for _, ref := range []string{"ref_0", "ref_2", "ref_4"} {
		if r := idx.Delete(ref); r != Removed {
			t.Fatalf("expected Removed deleting %s, got %v", ref, r)
		}
	}

	got := refsInOrder(idx)
	want := []string{"ref_1", "ref_3"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDeleteDistinguishesNotFoundCases(t *testing.T) {
	idx := New()
	m := tinyMiniature(t)
	idx.Insert(Build("m", m, nil))

	if r := idx.Delete("a"); r != PassedWithoutMatch {
		t.Fatalf("expected PassedWithoutMatch, got %v", r)
	}
	if r := idx.Delete("z"); r != NotFound {
		t.Fatalf("expected NotFound, got %v", r)
	}
	if r := idx.Delete("m"); r != Removed {
		t.Fatalf("expected Removed, got %v", r)
	}
}

func TestIterationAlwaysSortedNoDuplicates(t *testing.T) {
	idx := New()
	m := tinyMiniature(t)
	refs := []string{"d", "b", "z", "a", "c", "m"}
	for _, r := range refs {
		idx.Insert(Build(r, m, nil))
	}
	idx.Delete("z")
	idx.Insert(Build("n", m, nil))

	got := refsInOrder(idx)
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("not strictly ascending at %d: %v", i, got)
		}
	}
	seen := map[string]bool{}
	for _, r := range got {
		if seen[r] {
			t.Fatalf("duplicate ref %s in %v", r, got)
		}
		seen[r] = true
	}
}

func TestUnloadEmptiesIndex(t *testing.T) {
	idx := New()
	m := tinyMiniature(t)
	idx.Insert(Build("a", m, nil))
	idx.Insert(Build("b", m, nil))
	idx.Unload()

	if idx.Len() != 0 {
		t.Fatalf("expected empty index after Unload, got len %d", idx.Len())
	}
	if got := idx.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %v", got)
	}
}
