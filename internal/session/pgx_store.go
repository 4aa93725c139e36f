package session

import (
	"context"

	"github.com/bwise1/bookgroups/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS ui_sessions (
		id              TEXT PRIMARY KEY,
		search_keyword  TEXT        NOT NULL DEFAULT '',
		search_page     INTEGER     NOT NULL DEFAULT 1,
		scroll_position INTEGER     NOT NULL DEFAULT 0,
		authenticated   BOOLEAN     NOT NULL DEFAULT FALSE,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// PgxStore keeps sessions in Postgres so they survive restarts and are shared
// between instances.
type PgxStore struct {
	db *db.DB
}

// NewPgxStore creates the sessions table if needed.
func NewPgxStore(ctx context.Context, database *db.DB) (*PgxStore, error) {
	err := database.RunInTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createTable)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ui_sessions")
	}
	return &PgxStore{db: database}, nil
}

func (p *PgxStore) Get(ctx context.Context, id string) (*State, error) {
	query := `
		SELECT id, search_keyword, search_page, scroll_position, authenticated, updated_at
		FROM ui_sessions
		WHERE id = $1`

	var s State
	err := p.db.Pool().QueryRow(ctx, query, id).Scan(
		&s.ID, &s.SearchKeyword, &s.SearchPage, &s.ScrollPosition, &s.Authenticated, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select session")
	}
	return &s, nil
}

func (p *PgxStore) Save(ctx context.Context, s *State) error {
	if s == nil || s.ID == "" {
		return errors.New("session without id")
	}

	return p.db.RunInTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO ui_sessions (id, search_keyword, search_page, scroll_position, authenticated, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (id) DO UPDATE SET
				search_keyword  = EXCLUDED.search_keyword,
				search_page     = EXCLUDED.search_page,
				scroll_position = EXCLUDED.scroll_position,
				authenticated   = EXCLUDED.authenticated,
				updated_at      = EXCLUDED.updated_at
			RETURNING updated_at`

		err := tx.QueryRow(ctx, query, s.ID, s.SearchKeyword, s.Page(), s.ScrollPosition, s.Authenticated).Scan(&s.UpdatedAt)
		return errors.Wrap(err, "upsert session")
	})
}

func (p *PgxStore) Delete(ctx context.Context, id string) error {
	_, err := p.db.Pool().Exec(ctx, `DELETE FROM ui_sessions WHERE id = $1`, id)
	return errors.Wrap(err, "delete session")
}
