package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS ui_drafts (
	client_id  TEXT        NOT NULL,
	name       TEXT        NOT NULL,
	payload    JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (client_id, name)
)`

type UIDraft struct {
	ClientID  string
	Name      string
	Payload   []byte // JSONB
	UpdatedAt time.Time
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries interface mimicking sqlc generated code
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func (q *Queries) EnsureSchema(ctx context.Context) error {
	_, err := q.db.Exec(ctx, schema)
	return err
}

func (q *Queries) GetDraft(ctx context.Context, clientID, name string) (UIDraft, error) {
	row := q.db.QueryRow(ctx,
		"SELECT client_id, name, payload, updated_at FROM ui_drafts WHERE client_id = $1 AND name = $2",
		clientID, name,
	)
	var i UIDraft
	err := row.Scan(&i.ClientID, &i.Name, &i.Payload, &i.UpdatedAt)
	return i, err
}

func (q *Queries) UpsertDraft(ctx context.Context, clientID, name string, payload []byte) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO ui_drafts (client_id, name, payload, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (client_id, name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		clientID, name, payload,
	)
	return err
}

func (q *Queries) DeleteDraft(ctx context.Context, clientID, name string) error {
	_, err := q.db.Exec(ctx, "DELETE FROM ui_drafts WHERE client_id = $1 AND name = $2", clientID, name)
	return err
}

// DeleteDraftsBefore drops drafts untouched since cutoff and returns how many.
func (q *Queries) DeleteDraftsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, "DELETE FROM ui_drafts WHERE updated_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
