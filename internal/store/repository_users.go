package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) CreateUser(ctx context.Context, name, token string) (string, error) {
	id := NewID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, name, token_hash) VALUES ($1,$2,$3)`,
		id, name, HashToken(token))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, token_hash, status, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByToken(ctx context.Context, token string) (*User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, token_hash, status, created_at FROM users WHERE token_hash = $1`,
		HashToken(token))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.TokenHash, &u.Status, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) EnsureAccount(ctx context.Context, userID string, initial int64) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO accounts (user_id, balance) VALUES ($1,$2) ON CONFLICT (user_id) DO NOTHING`,
		userID, initial)
	return err
}

func (s *Store) GetBalance(ctx context.Context, userID string) (int64, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = $1`, userID)
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return bal, nil
}

// Debit removes amount from the account and writes a ledger entry in one
// transaction. Fails without mutation when the balance would go negative.
func (s *Store) Debit(ctx context.Context, userID string, amount int64, entryType, refType, refID string) (int64, error) {
	return s.adjustBalance(ctx, userID, -amount, entryType, refType, refID)
}

func (s *Store) Credit(ctx context.Context, userID string, amount int64, entryType, refType, refID string) (int64, error) {
	return s.adjustBalance(ctx, userID, amount, entryType, refType, refID)
}

func (s *Store) adjustBalance(ctx context.Context, userID string, delta int64, entryType, refType, refID string) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE user_id = $1 AND balance + $2 >= 0 RETURNING balance`,
		userID, delta)
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("insufficient_balance: user %s", userID)
		}
		return 0, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, user_id, type, amount, ref_type, ref_id) VALUES ($1,$2,$3,$4,$5,$6)`,
		NewID(), userID, entryType, delta, refType, refID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return bal, nil
}
