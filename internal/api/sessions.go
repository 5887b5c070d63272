package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/evaluator"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/normalize"
	"github.com/smilemakc/ta-engine/internal/planner"
	"github.com/smilemakc/ta-engine/internal/snapshotstore"
)

// sessionEntry pairs a running incremental Session with the Plan it was
// built from, since Session.Step alone doesn't carry enough to rebuild a
// Snapshot's plan-identity metadata.
type sessionEntry struct {
	sess *evaluator.Session
	plan *planner.Plan
}

// sessionManager tracks in-memory incremental sessions keyed by a
// uuid.New().String() id, grounded on the teacher's in-process execution
// registry (factory.go's NewExecution bookkeeping) generalized from
// workflow executions to evaluator sessions. Durable persistence is
// delegated to snapshotstore.Store so a session's state survives a process
// restart if the host configured a Postgres-backed store.
type sessionManager struct {
	mu    sync.Mutex
	byID  map[string]*sessionEntry
	store snapshotstore.Store
}

func newSessionManager(store snapshotstore.Store) *sessionManager {
	if store == nil {
		store = snapshotstore.NewMemoryStore()
	}
	return &sessionManager{byID: make(map[string]*sessionEntry), store: store}
}

// compilePlan runs the same normalize -> typecheck -> build prefix
// internal/preview and the root taengine.Engine use, duplicated here since
// this package cannot import the root facade without inverting the
// module's layering (the facade imports this package's siblings, not the
// other way around).
func compilePlan(root ir.Node, cat *catalog.Catalog, kernels *kernel.Registry, schema dataset.Schema) (*planner.Plan, error) {
	normalized, _, err := normalize.Normalize(root, cat)
	if err != nil {
		return nil, err
	}
	if err := normalize.Typecheck(normalized, cat); err != nil {
		return nil, err
	}
	return planner.Build(normalized, cat, kernels, schema)
}

func (m *sessionManager) create(sess *evaluator.Session, plan *planner.Plan) string {
	id := uuid.New().String()
	m.mu.Lock()
	m.byID[id] = &sessionEntry{sess: sess, plan: plan}
	m.mu.Unlock()
	return id
}

func (m *sessionManager) get(id string) (*sessionEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	return e, ok
}
