// Package index implements the in-memory ordered collection of image
// entries ("the Index") and the similar-but-different (SBD) exclusion
// relation attached to it.
//
// There is no direct teacher analogue for a sorted in-memory collection;
// the locking and accessor discipline is grounded on the teacher's
// internal/server/job.go JobManager (a mutex-guarded map with small,
// single-purpose accessor methods), translated from a map to a sorted
// slice because spec ordering/merge-walk invariants require it. The
// ordering and mutation semantics themselves are grounded on
// original_source/src/dids_server.c's PicInfo singly-linked list.
package index

import "github.com/pixeldup/dids/internal/miniature"

// Entry is a single Index record: an external reference, its miniature,
// and the set of other external refs this entry must never be reported as
// matching (see SBD relation).
type Entry struct {
	Ref       string
	Miniature *miniature.Miniature
	SBD       []string
}

// Build constructs an Entry. sbd may be nil, meaning no exclusions.
func Build(ref string, m *miniature.Miniature, sbd []string) *Entry {
	e := &Entry{Ref: ref, Miniature: m}
	if sbd != nil {
		e.SBD = append([]string(nil), sbd...)
	}
	return e
}

// ContainsSBD does a linear search for ref in the entry's SBD set, per
// spec.md's SBD relation contains() operation.
func (e *Entry) ContainsSBD(ref string) bool {
	for _, s := range e.SBD {
		if s == ref {
			return true
		}
	}
	return false
}
