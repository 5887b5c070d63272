package taengine

import (
	"context"

	"github.com/smilemakc/ta-engine/internal/snapshotstore"
)

// SnapshotStore re-exports internal/snapshotstore.Store, grounded on the
// teacher's factory.go NewMemoryStorage/NewPostgresStorage pair: a public
// constructor per backend, returning the same narrow interface regardless
// of which one was chosen.
type SnapshotStore = snapshotstore.Store

// NewMemorySnapshotStore returns an in-process snapshot store suitable for
// tests and single-process deployments.
func NewMemorySnapshotStore() SnapshotStore {
	return snapshotstore.NewMemoryStore()
}

// NewPostgresSnapshotStore returns a Postgres-backed snapshot store and
// initializes its schema, matching the teacher's NewPostgresStorage eager
// InitSchema-at-construction behavior.
func NewPostgresSnapshotStore(ctx context.Context, dsn string) (SnapshotStore, error) {
	store := snapshotstore.NewBunStore(dsn)
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
