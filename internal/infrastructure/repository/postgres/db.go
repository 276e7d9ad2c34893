package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS conversations (
	organization_id TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	current_user_turn INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (organization_id, conversation_id)
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	user_turn INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_lookup ON conversation_turns(organization_id, conversation_id, user_turn);

CREATE TABLE IF NOT EXISTS conversation_summaries (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	turn_from INTEGER NOT NULL,
	turn_to INTEGER NOT NULL,
	summary TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_summaries_latest ON conversation_summaries(organization_id, conversation_id, turn_to DESC);

CREATE TABLE IF NOT EXISTS feedback (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	conversation_id TEXT,
	query TEXT NOT NULL,
	response TEXT NOT NULL,
	kind TEXT NOT NULL,
	rating INTEGER NOT NULL DEFAULT 0,
	correction TEXT,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	intent TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_feedback_org_query ON feedback(organization_id, query);

CREATE TABLE IF NOT EXISTS feedback_daily_stats (
	day DATE PRIMARY KEY,
	total INTEGER NOT NULL DEFAULT 0,
	thumbs_up INTEGER NOT NULL DEFAULT 0,
	thumbs_down INTEGER NOT NULL DEFAULT 0,
	corrections INTEGER NOT NULL DEFAULT 0,
	confidence_positive_sum DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence_negative_sum DOUBLE PRECISION NOT NULL DEFAULT 0
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
