package compare

import (
	"github.com/pixeldup/dids/internal/index"
)

// Quick runs a one-to-many quickcompare: pic is a transient entry (never
// inserted into the Index) built from a freshly decoded miniature and a
// client-supplied label, compared against every entry in the Index using
// ten times the configured base threshold — quickcompare deliberately
// widens the net (spec.md §4.4.2).
func Quick(out *Writer, pic *index.Entry, entries []*index.Entry, maxerrBase uint32) (*index.Entry, error) {
	return CompareToList(out, pic, entries, maxerrBase*QuickCompareMultiplier)
}
