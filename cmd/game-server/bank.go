package main

import (
	"context"

	"matchpoint/internal/ledger"
	"matchpoint/internal/room"
	"matchpoint/internal/store"
)

// bank backs room settlement with the wallet ledger plus the match
// history table.
type bank struct {
	*ledger.Ledger
	store *store.Store
}

func (b *bank) RecordMatch(ctx context.Context, out room.MatchOutcome) error {
	return b.store.RecordMatch(ctx, store.MatchRecord{
		UserID:     out.UserID,
		RoomID:     out.RoomID,
		GameType:   string(out.GameType),
		OpponentID: out.OpponentID,
		Stake:      out.Stake,
		Result:     out.Result,
	})
}
