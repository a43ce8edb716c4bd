package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minervabot/minerva/internal/nlp"
)

// PostgresContextStore persists conversation windows in postgres. Eviction
// beyond the window happens inside the same transaction as the insert.
type PostgresContextStore struct {
	pool   *pgxpool.Pool
	window int
}

func NewPostgresContextStore(ctx context.Context, databaseURL string, window int) (*PostgresContextStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initContextSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if window <= 0 {
		window = 20
	}
	return &PostgresContextStore{pool: pool, window: window}, nil
}

func initContextSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			seq BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			intent TEXT NOT NULL DEFAULT '',
			entities JSONB NOT NULL DEFAULT '[]'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_turns_user_seq ON conversation_turns (user_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init context schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresContextStore) Close() {
	s.pool.Close()
}

func (s *PostgresContextStore) Window(ctx context.Context, userID string) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT turn_id, role, text, ts, intent, entities
		 FROM (
			SELECT * FROM conversation_turns WHERE user_id = $1 ORDER BY seq DESC LIMIT $2
		 ) latest ORDER BY seq ASC`,
		userID, s.window,
	)
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var intent string
		var entities []byte
		if err := rows.Scan(&t.ID, &t.Role, &t.Text, &t.Timestamp, &intent, &entities); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Intent = nlp.Intent(intent)
		if len(entities) > 0 {
			if err := json.Unmarshal(entities, &t.Entities); err != nil {
				return nil, fmt.Errorf("decode entities: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresContextStore) Append(ctx context.Context, userID string, turns ...Turn) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, t := range turns {
		entities, err := json.Marshal(t.Entities)
		if err != nil {
			return fmt.Errorf("encode entities: %w", err)
		}
		if t.Entities == nil {
			entities = []byte(`[]`)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO conversation_turns (user_id, turn_id, role, text, ts, intent, entities)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			userID, t.ID, string(t.Role), t.Text, t.Timestamp, string(t.Intent), entities,
		)
		if err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	// FIFO eviction: drop everything older than the newest window rows.
	_, err = tx.Exec(ctx,
		`DELETE FROM conversation_turns
		 WHERE user_id = $1 AND seq NOT IN (
			SELECT seq FROM conversation_turns WHERE user_id = $1 ORDER BY seq DESC LIMIT $2
		 )`,
		userID, s.window,
	)
	if err != nil {
		return fmt.Errorf("evict turns: %w", err)
	}

	return tx.Commit(ctx)
}
