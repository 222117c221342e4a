package ledger

import (
	"context"

	"matchpoint/internal/store"
)

type Ledger struct {
	Store *store.Store
}

func New(s *store.Store) *Ledger {
	return &Ledger{Store: s}
}

func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	return l.Store.GetBalance(ctx, userID)
}

func (l *Ledger) DebitStake(ctx context.Context, userID, roomID string, amount int64) (int64, error) {
	return l.Store.Debit(ctx, userID, amount, "stake_debit", "room", roomID)
}

func (l *Ledger) CreditWinnings(ctx context.Context, userID, roomID string, amount int64) (int64, error) {
	return l.Store.Credit(ctx, userID, amount, "winnings_credit", "room", roomID)
}

func (l *Ledger) DebitEntryFee(ctx context.Context, userID, tournamentID string, amount int64) (int64, error) {
	return l.Store.Debit(ctx, userID, amount, "entry_fee_debit", "tournament", tournamentID)
}

func (l *Ledger) RefundEntryFee(ctx context.Context, userID, tournamentID string, amount int64) (int64, error) {
	return l.Store.Credit(ctx, userID, amount, "entry_fee_refund", "tournament", tournamentID)
}

func (l *Ledger) CreditPrize(ctx context.Context, userID, tournamentID string, amount int64) (int64, error) {
	return l.Store.Credit(ctx, userID, amount, "prize_credit", "tournament", tournamentID)
}
