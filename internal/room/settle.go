package room

import (
	"context"

	"github.com/rs/zerolog/log"

	"matchpoint/internal/game"
)

// finished carries everything settlement needs out of the session lock.
type finished struct {
	session  *Session
	gameType game.Type
	stake    int64
	winnerID string
	draw     bool
	reason   string
	slots    []*Slot
	onFinish func(Outcome)
}

// finishLocked transitions the session to FINISHED exactly once and
// broadcasts the result. Callers hold s.mu and must pass the returned
// value to settle after unlocking.
func (r *Registry) finishLocked(s *Session, winnerID string, draw bool, reason string) *finished {
	if s.Status == StatusFinished {
		return nil
	}
	s.Status = StatusFinished
	s.clearTimers()
	s.broadcastState(s.event("gameUpdate"))
	s.broadcast(s.event("gameEnd"), map[string]any{
		"roomId":   s.ID,
		"winnerId": winnerID,
		"isDraw":   draw,
		"reason":   reason,
	})
	return &finished{
		session:  s,
		gameType: s.GameType,
		stake:    s.Stake,
		winnerID: winnerID,
		draw:     draw,
		reason:   reason,
		slots:    append([]*Slot(nil), s.Slots...),
		onFinish: s.onFinish,
	}
}

// settle runs the post-finish side effects: registry cleanup, wallet
// transfers and history rows, or the orchestrator hook for tournament
// matches. Persistence failures are logged and do not undo the result.
func (r *Registry) settle(ctx context.Context, fin *finished) {
	if fin == nil {
		return
	}
	r.remove(fin.session.ID)
	if !fin.session.Private {
		r.announce(fin.gameType)
	}

	if fin.onFinish != nil {
		fin.onFinish(Outcome{
			RoomID:   fin.session.ID,
			WinnerID: fin.winnerID,
			Draw:     fin.draw,
			Reason:   fin.reason,
		})
		return
	}
	if r.bank == nil {
		return
	}

	for _, sl := range fin.slots {
		if sl.Player.Bot {
			continue
		}
		result := "draw"
		if !fin.draw {
			if sl.Player.ID == fin.winnerID {
				result = "win"
			} else {
				result = "loss"
			}
		}

		if fin.stake > 0 && !fin.draw {
			var bal int64
			var err error
			if result == "win" {
				bal, err = r.bank.CreditWinnings(ctx, sl.Player.ID, fin.session.ID, fin.stake)
			} else {
				bal, err = r.bank.DebitStake(ctx, sl.Player.ID, fin.session.ID, fin.stake)
			}
			if err != nil {
				log.Error().Err(err).Str("room_id", fin.session.ID).Str("user_id", sl.Player.ID).Msg("settlement wallet transfer failed")
			} else if sl.Connected && sl.Conn != nil {
				sl.Conn.Send("balanceUpdate", map[string]any{"balance": bal})
			}
		}

		opponentID := ""
		if opp := opponentOf(fin.slots, sl.Player.ID); opp != nil {
			opponentID = opp.Player.ID
		}
		err := r.bank.RecordMatch(ctx, MatchOutcome{
			UserID:     sl.Player.ID,
			RoomID:     fin.session.ID,
			GameType:   fin.gameType,
			OpponentID: opponentID,
			Stake:      fin.stake,
			Result:     result,
		})
		if err != nil {
			log.Error().Err(err).Str("room_id", fin.session.ID).Str("user_id", sl.Player.ID).Msg("match history write failed")
		}
	}
}

func opponentOf(slots []*Slot, userID string) *Slot {
	for _, sl := range slots {
		if sl.Player.ID != userID {
			return sl
		}
	}
	return nil
}
