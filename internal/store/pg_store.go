package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"labdesk/internal/db"
	"labdesk/internal/draft"
)

// PostgresStore is a draft.Backend over the ui_drafts table.
type PostgresStore struct {
	q *db.Queries
}

func NewPostgresStore(conn db.DBTX) *PostgresStore {
	return &PostgresStore{q: db.New(conn)}
}

// Ensure interface implementation
var _ draft.Backend = (*PostgresStore)(nil)

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.q.EnsureSchema(ctx)
}

func (s *PostgresStore) Load(ctx context.Context, clientID, name string) ([]byte, error) {
	d, err := s.q.GetDraft(ctx, clientID, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, draft.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.Payload, nil
}

// Save upserts the draft. Payloads must be JSON since the column is JSONB.
func (s *PostgresStore) Save(ctx context.Context, clientID, name string, data []byte) error {
	return s.q.UpsertDraft(ctx, clientID, name, data)
}

func (s *PostgresStore) Delete(ctx context.Context, clientID, name string) error {
	return s.q.DeleteDraft(ctx, clientID, name)
}

// Expire removes drafts not written within ttl.
func (s *PostgresStore) Expire(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.q.DeleteDraftsBefore(ctx, time.Now().Add(-ttl))
}
