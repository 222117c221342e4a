package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var ErrNotFound = errors.New("not found")

// Store wraps DB access.
type Store struct {
	DB *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() {
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.DB.PingContext(ctx)
}

func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// EnsureSchema creates the tables the server needs. Statements are idempotent
// so startup can run it unconditionally.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			token_hash TEXT UNIQUE NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY REFERENCES users(id),
			balance BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount BIGINT NOT NULL,
			ref_type TEXT NOT NULL,
			ref_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS match_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			room_id TEXT NOT NULL,
			game_type TEXT NOT NULL,
			opponent_id TEXT NOT NULL,
			stake BIGINT NOT NULL,
			result TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON match_history(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS tournaments (
			id TEXT PRIMARY KEY,
			game_type TEXT NOT NULL,
			status TEXT NOT NULL,
			entry_fee BIGINT NOT NULL,
			prize_pool BIGINT NOT NULL,
			max_players INT NOT NULL,
			winner_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			finished_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS tournament_templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			game_type TEXT NOT NULL,
			max_players INT NOT NULL,
			entry_fee BIGINT NOT NULL,
			kind TEXT NOT NULL,
			every_minutes INT NOT NULL DEFAULT 0,
			at_times TEXT NOT NULL DEFAULT '',
			min_active INT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT true,
			last_fired_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
