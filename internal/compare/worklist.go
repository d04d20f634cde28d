package compare

import "github.com/pixeldup/dids/internal/index"

// worklist is a shared cursor over the sorted Index snapshot. Pulling a
// work item returns the current entry and everything strictly after it
// (the tail each worker must compare the entry against), and advances the
// cursor. The cursor, set counters, and progress throttle state share one
// mutex, per spec.md §4.4.3's concurrency discipline; the entries
// themselves are read-only for the duration of a fullcompare and need no
// locking.
type worklist struct {
	entries []*index.Entry
	cursor  int
}

func newWorklist(entries []*index.Entry) *worklist {
	return &worklist{entries: entries}
}

// pull returns (entry, tail, ok). ok is false once the cursor is
// exhausted, signaling the worker to exit.
func (w *worklist) pull() (*index.Entry, []*index.Entry, bool) {
	if w.cursor >= len(w.entries) {
		return nil, nil, false
	}
	entry := w.entries[w.cursor]
	tail := w.entries[w.cursor+1:]
	w.cursor++
	return entry, tail, true
}

func (w *worklist) remaining() int {
	return len(w.entries) - w.cursor
}
