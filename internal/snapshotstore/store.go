// Package snapshotstore persists evaluator.Snapshot envelopes beyond one
// process, grounded on the teacher's storage layer
// (internal/infrastructure/storage): the same "small interface, two
// implementations (in-memory + bun/Postgres)" shape as
// domain.Storage/MemoryStore/BunStore, here narrowed to the one thing
// section 6 of the specification says may be durably persisted -- opaque
// snapshot bytes, never Series or Plan data.
//
// This is a durability *option* for the bytes evaluator.Session.Snapshot
// already produces; it does not change what the core guarantees (section 1:
// "storage durability beyond in-memory state snapshots" stays a Non-goal --
// a store here persists the snapshot the core already computed, it does not
// make the core itself durable).
package snapshotstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/smilemakc/ta-engine/internal/evaluator"
)

// Store persists and retrieves evaluator.Snapshot envelopes keyed by an
// opaque session id chosen by the caller (evaluator.Session has no
// identity of its own; the host assigns one, typically a uuid).
type Store interface {
	Save(ctx context.Context, sessionID string, snap *evaluator.Snapshot) error
	Load(ctx context.Context, sessionID string) (*evaluator.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// ErrNotFound is returned by Load when sessionID has no stored snapshot.
var ErrNotFound = fmt.Errorf("snapshotstore: snapshot not found")

// MemoryStore is an in-process Store, grounded on
// internal/infrastructure/storage.MemoryStore's map-plus-mutex shape.
// Snapshots are stored JSON-encoded (not kept as live pointers) so that a
// caller mutating a returned *evaluator.Snapshot can never corrupt the
// stored copy -- the same immutability discipline section 3 requires of
// Series.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore, suitable for tests and
// single-process hosts that don't need cross-restart durability.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, snap *evaluator.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = payload
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*evaluator.Snapshot, error) {
	s.mu.RLock()
	payload, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var snap evaluator.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for id := range s.data {
		out = append(out, id)
	}
	return out, nil
}
