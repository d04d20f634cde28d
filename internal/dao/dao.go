// Package dao defines the narrow persistence interface the core consumes
// (spec.md §6 "DAO contract") plus two concrete backends: a Postgres
// implementation grounded in the original C reference's SQL schema, and a
// filesystem-backed implementation for tests and single-node deployments
// without a database, adapted from the teacher's internal/store.FSStore
// atomic-write discipline.
package dao

import (
	"context"

	"github.com/pixeldup/dids/internal/index"
	"github.com/pixeldup/dids/internal/miniature"
)

// Record is a single persisted image: its external reference and decoded
// miniature, as returned by LoadAll.
type Record struct {
	Ref       string
	Miniature *miniature.Miniature
}

// DAO is the persistence contract the core calls for load-all / insert /
// delete / SBD-list. Implementations must return records from LoadAll and
// pairs from ListSBDPairs already sorted ascending by ref / by A, matching
// the single-pass merge-walk the Index and SBD attach operations rely on.
type DAO interface {
	// LoadAll returns every persisted image, sorted ascending by Ref.
	LoadAll(ctx context.Context) ([]Record, error)

	// Insert persists a new image under ref. Implementations should
	// reject a duplicate ref (the Index depends on DAO-enforced
	// uniqueness — see spec.md §4.2).
	Insert(ctx context.Context, ref string, m *miniature.Miniature) error

	// Delete removes the persisted image for ref.
	Delete(ctx context.Context, ref string) error

	// ListSBDPairs returns every similar-but-different pair, ordered
	// ascending by A, with the invariant A < B.
	ListSBDPairs(ctx context.Context) ([]index.Pair, error)

	// Close releases any resources (connections, file handles) held by
	// the implementation.
	Close(ctx context.Context) error
}
