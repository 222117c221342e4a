package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *Store) InsertTournament(ctx context.Context, rec TournamentRecord) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO tournaments (id, game_type, status, entry_fee, prize_pool, max_players)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.ID, rec.GameType, rec.Status, rec.EntryFee, rec.PrizePool, rec.MaxPlayers)
	return err
}

func (s *Store) UpdateTournamentStatus(ctx context.Context, id, status string, prizePool int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE tournaments SET status = $2, prize_pool = $3 WHERE id = $1`, id, status, prizePool)
	return err
}

func (s *Store) FinishTournament(ctx context.Context, id, winnerID string) error {
	now := time.Now()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE tournaments SET status = 'FINISHED', winner_id = $2, finished_at = $3 WHERE id = $1`,
		id, winnerID, now)
	return err
}

func (s *Store) GetTournament(ctx context.Context, id string) (*TournamentRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, game_type, status, entry_fee, prize_pool, max_players, COALESCE(winner_id, ''), created_at, finished_at
		 FROM tournaments WHERE id = $1`, id)
	var r TournamentRecord
	if err := row.Scan(&r.ID, &r.GameType, &r.Status, &r.EntryFee, &r.PrizePool, &r.MaxPlayers, &r.WinnerID, &r.CreatedAt, &r.FinishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListTournaments(ctx context.Context, limit, offset int) ([]TournamentRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, game_type, status, entry_fee, prize_pool, max_players, COALESCE(winner_id, ''), created_at, finished_at
		 FROM tournaments ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []TournamentRecord{}
	for rows.Next() {
		var r TournamentRecord
		if err := rows.Scan(&r.ID, &r.GameType, &r.Status, &r.EntryFee, &r.PrizePool, &r.MaxPlayers, &r.WinnerID, &r.CreatedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
