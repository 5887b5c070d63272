package snapshotstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/smilemakc/ta-engine/internal/evaluator"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// SnapshotModel is the bun row for one session's most recent snapshot,
// grounded on internal/infrastructure/storage/bun_store.go's
// bun.BaseModel-embedding model structs; Payload mirrors that file's
// jsonb-typed Spec column, here holding the full evaluator.Snapshot
// envelope rather than a workflow spec.
type SnapshotModel struct {
	bun.BaseModel `bun:"table:engine_snapshots,alias:s"`

	SessionID string         `bun:"session_id,pk"`
	Payload   map[string]any `bun:"payload,type:jsonb"`
	CreatedAt time.Time      `bun:"created_at"`
}

// BunStore is a Postgres-backed Store for hosts that want snapshot
// durability beyond process lifetime, grounded on
// internal/infrastructure/storage.BunStore's sql.OpenDB/pgdriver/pgdialect
// wiring.
type BunStore struct {
	db *bun.DB
}

// NewBunStore opens a bun.DB against dsn using the same pgdriver connector
// the teacher's BunStore uses.
func NewBunStore(dsn string) *BunStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &BunStore{db: db}
}

// InitSchema creates engine_snapshots if it does not already exist.
func (s *BunStore) InitSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*SnapshotModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *BunStore) Save(ctx context.Context, sessionID string, snap *evaluator.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	model := &SnapshotModel{SessionID: sessionID, Payload: payload, CreatedAt: time.Now()}
	_, err = s.db.NewInsert().Model(model).
		On("CONFLICT (session_id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	return err
}

func (s *BunStore) Load(ctx context.Context, sessionID string) (*evaluator.Snapshot, error) {
	model := new(SnapshotModel)
	err := s.db.NewSelect().Model(model).Where("session_id = ?", sessionID).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	raw, err := json.Marshal(model.Payload)
	if err != nil {
		return nil, err
	}
	var snap evaluator.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *BunStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.NewDelete().Model((*SnapshotModel)(nil)).Where("session_id = ?", sessionID).Exec(ctx)
	return err
}

func (s *BunStore) List(ctx context.Context) ([]string, error) {
	var models []SnapshotModel
	if err := s.db.NewSelect().Model(&models).Column("session_id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.SessionID
	}
	return out, nil
}
