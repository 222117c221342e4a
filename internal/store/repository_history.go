package store

import "context"

func (s *Store) RecordMatch(ctx context.Context, rec MatchRecord) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO match_history (id, user_id, room_id, game_type, opponent_id, stake, result)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.UserID, rec.RoomID, rec.GameType, rec.OpponentID, rec.Stake, rec.Result)
	return err
}

func (s *Store) ListMatchHistory(ctx context.Context, userID string, limit, offset int) ([]MatchRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, room_id, game_type, opponent_id, stake, result, created_at
		 FROM match_history WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []MatchRecord{}
	for rows.Next() {
		var r MatchRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.RoomID, &r.GameType, &r.OpponentID, &r.Stake, &r.Result, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
