package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *Store) CreateTemplate(ctx context.Context, t TournamentTemplate) (string, error) {
	if t.ID == "" {
		t.ID = NewID()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO tournament_templates (id, name, game_type, max_players, entry_fee, kind, every_minutes, at_times, min_active, active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.Name, t.GameType, t.MaxPlayers, t.EntryFee, t.Kind, t.EveryMins, t.AtTimes, t.MinActive, t.Active)
	return t.ID, err
}

func (s *Store) UpdateTemplate(ctx context.Context, t TournamentTemplate) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE tournament_templates
		 SET name = $2, game_type = $3, max_players = $4, entry_fee = $5, kind = $6,
		     every_minutes = $7, at_times = $8, min_active = $9, active = $10
		 WHERE id = $1`,
		t.ID, t.Name, t.GameType, t.MaxPlayers, t.EntryFee, t.Kind, t.EveryMins, t.AtTimes, t.MinActive, t.Active)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tournament_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*TournamentTemplate, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, game_type, max_players, entry_fee, kind, every_minutes, at_times, min_active, active, last_fired_at, created_at
		 FROM tournament_templates WHERE id = $1`, id)
	var t TournamentTemplate
	if err := row.Scan(&t.ID, &t.Name, &t.GameType, &t.MaxPlayers, &t.EntryFee, &t.Kind, &t.EveryMins, &t.AtTimes, &t.MinActive, &t.Active, &t.LastFiredAt, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListActiveTemplates(ctx context.Context) ([]TournamentTemplate, error) {
	return s.listTemplates(ctx, true)
}

func (s *Store) ListTemplates(ctx context.Context) ([]TournamentTemplate, error) {
	return s.listTemplates(ctx, false)
}

func (s *Store) listTemplates(ctx context.Context, activeOnly bool) ([]TournamentTemplate, error) {
	query := `SELECT id, name, game_type, max_players, entry_fee, kind, every_minutes, at_times, min_active, active, last_fired_at, created_at
		 FROM tournament_templates`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []TournamentTemplate{}
	for rows.Next() {
		var t TournamentTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.GameType, &t.MaxPlayers, &t.EntryFee, &t.Kind, &t.EveryMins, &t.AtTimes, &t.MinActive, &t.Active, &t.LastFiredAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (s *Store) MarkTemplateFired(ctx context.Context, id string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE tournament_templates SET last_fired_at = $2 WHERE id = $1`, id, at)
	return err
}
