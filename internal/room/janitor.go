package room

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"matchpoint/internal/game"
	"matchpoint/internal/store"
)

// StartJanitor runs the deadline sweep until ctx is cancelled. All
// session timers (bot fill, move budget, disconnect grace, bot pacing)
// are deadline fields fired here, so a cleared field is a cancelled
// timer and a stale pass is inert.
func (r *Registry) StartJanitor(ctx context.Context, tick time.Duration) {
	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				r.Sweep(now)
			}
		}
	}()
}

// Sweep fires every due deadline once. Exported so tests and the
// tournament orchestrator can drive time by hand.
func (r *Registry) Sweep(now time.Time) {
	r.mu.Lock()
	due := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		due = append(due, s)
	}
	for tok, inv := range r.invites {
		if now.After(inv.ExpiresAt) {
			delete(r.invites, tok)
		}
	}
	r.mu.Unlock()

	for _, s := range due {
		r.sweepSession(s, now)
	}
}

func (r *Registry) sweepSession(s *Session, now time.Time) {
	s.mu.Lock()
	if s.Status == StatusFinished {
		s.mu.Unlock()
		return
	}

	// Bot fill: a lone human has waited long enough for an opponent.
	if !s.botJoinAt.IsZero() && !now.Before(s.botJoinAt) {
		s.botJoinAt = time.Time{}
		if s.Status == StatusOpen && len(s.Slots) == 1 {
			bot := game.PlayerRef{
				ID:   "bot_" + store.NewID(),
				Name: botName(),
				Bot:  true,
			}
			s.Slots = append(s.Slots, &Slot{Player: bot, Connected: false})
			if err := r.beginMatch(s, now); err != nil {
				log.Error().Err(err).Str("room_id", s.ID).Msg("bot fill failed to start match")
				s.Slots = s.Slots[:1]
			} else {
				gt := s.GameType
				s.mu.Unlock()
				r.announce(gt)
				s.mu.Lock()
			}
		}
	}

	// Turn clock warning.
	if !s.turnWarnAt.IsZero() && !now.Before(s.turnWarnAt) && !s.turnWarned {
		s.turnWarned = true
		remaining := s.turnDeadline.Sub(now).Milliseconds()
		if remaining < 0 {
			remaining = 0
		}
		s.broadcast("moveTimerWarning", map[string]any{
			"currentPlayerId": s.turnHolder,
			"timeRemaining":   remaining,
		})
	}

	// Turn clock expiry: the holder forfeits.
	if !s.turnDeadline.IsZero() && !now.Before(s.turnDeadline) {
		holder := s.turnHolder
		s.clearTurnClock()
		if s.Status == StatusActive && holder != "" && s.State.Base().Turn == holder {
			winner := s.State.Base().Opponent(holder)
			s.broadcast(s.event("gameTimeout"), map[string]any{
				"roomId":           s.ID,
				"timedOutPlayerId": holder,
				"winnerId":         winner,
				"message":          "move time limit exceeded",
			})
			fin := r.finishLocked(s, winner, false, "timeout")
			s.mu.Unlock()
			r.settle(context.Background(), fin)
			return
		}
	}

	// Disconnect grace expiry: the absent player forfeits.
	if !s.graceAt.IsZero() && !now.Before(s.graceAt) {
		gone := s.graceFor
		s.graceAt = time.Time{}
		s.graceFor = ""
		if s.Status == StatusActive && gone != "" {
			if sl := s.slot(gone); sl != nil && !sl.Connected {
				winner := s.State.Base().Opponent(gone)
				fin := r.finishLocked(s, winner, false, "abandoned")
				s.mu.Unlock()
				r.settle(context.Background(), fin)
				return
			}
		}
	}

	// Bot pacing: one bot action per due deadline.
	if !s.botMoveAt.IsZero() && !now.Before(s.botMoveAt) {
		s.botMoveAt = time.Time{}
		if s.Status == StatusActive {
			botID := s.State.Base().Turn
			if sl := s.slot(botID); sl != nil && sl.Player.Bot {
				s.mu.Unlock()
				r.driveBot(s, botID)
				return
			}
		}
	}
	s.mu.Unlock()
}

// driveBot computes and applies one bot move outside the session lock
// held by the sweep, re-entering through the normal move path.
func (r *Registry) driveBot(s *Session, botID string) {
	s.mu.Lock()
	if s.Status != StatusActive || s.State.Base().Turn != botID {
		s.mu.Unlock()
		return
	}
	payload, ok := s.logic.BotMove(s.State, botID)
	s.mu.Unlock()
	if !ok {
		log.Warn().Str("room_id", s.ID).Str("bot_id", botID).Msg("bot produced no move")
		return
	}
	if err := r.applyMove(context.Background(), s, botID, payload); err != nil {
		log.Error().Err(err).Str("room_id", s.ID).Str("bot_id", botID).Msg("bot move rejected")
	}
}

var botNames = []string{"Orion", "Vega", "Lyra", "Atlas", "Nova", "Rigel", "Mira", "Castor"}

func botName() string {
	return botNames[int(game.RandInt64(int64(len(botNames))))]
}
