package room

import (
	"sync"
	"time"

	"matchpoint/internal/game"
)

// Timing knobs. Declared as vars so tests can shrink them; production
// values follow the product defaults.
var (
	turnBudget      = 30 * time.Second
	turnWarnAfter   = 20 * time.Second
	botJoinWait     = 15 * time.Second
	disconnectGrace = 60 * time.Second
	inviteTTL       = 5 * time.Minute
	botMoveDelayMin = 400 * time.Millisecond
	botMoveDelayMax = 1500 * time.Millisecond
	botTurnCooldown = 2 * time.Second
)

// botTurnLimit bounds consecutive bot actions before the pacer yields.
// Long multi-action turns (compound captures, repeated draws) resume
// after botTurnCooldown rather than stalling the session.
const botTurnLimit = 10

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// Slot is one seat in a session.
type Slot struct {
	Player    game.PlayerRef
	Conn      Conn
	Connected bool
}

// Outcome is handed to the finish hook of orchestrated matches.
type Outcome struct {
	RoomID   string
	WinnerID string
	Draw     bool
	Reason   string
}

// Session is a single match room. All mutable fields are guarded by mu;
// deadline fields are swept by the registry janitor, and clearing a
// deadline under mu is how a pending timer is cancelled.
type Session struct {
	ID       string
	GameType game.Type
	Stake    int64
	Private  bool

	mu     sync.Mutex
	Status Status
	Slots  []*Slot
	State  game.State
	logic  game.Logic

	// Turn clock. Valid only while turnHolder is the seat on move.
	turnDeadline time.Time
	turnWarnAt   time.Time
	turnWarned   bool
	turnHolder   string

	// Lifecycle timers.
	botJoinAt time.Time
	graceAt   time.Time
	graceFor  string

	// Bot pacing.
	botMoveAt time.Time
	botMoves  int

	// onFinish, when set, replaces wallet settlement; the tournament
	// orchestrator owns fees and prizes for its matches.
	onFinish func(Outcome)
}

// event maps in-game event names to their tournament-prefixed forms
// for orchestrated matches, which are exactly the sessions carrying a
// finish hook.
func (s *Session) event(name string) string {
	if s.onFinish == nil {
		return name
	}
	switch name {
	case "gameStart":
		return "tournamentGameStart"
	case "gameUpdate":
		return "tournamentGameUpdate"
	case "gameEnd":
		return "tournamentGameEnd"
	case "gameTimeout":
		return "tournamentGameTimeout"
	}
	return name
}

func (s *Session) slot(userID string) *Slot {
	for _, sl := range s.Slots {
		if sl.Player.ID == userID {
			return sl
		}
	}
	return nil
}

func (s *Session) opponentSlot(userID string) *Slot {
	for _, sl := range s.Slots {
		if sl.Player.ID != userID {
			return sl
		}
	}
	return nil
}

// broadcast delivers an event to every connected seat. Callers hold s.mu.
func (s *Session) broadcast(event string, data any) {
	for _, sl := range s.Slots {
		if sl.Connected && sl.Conn != nil {
			sl.Conn.Send(event, data)
		}
	}
}

func (s *Session) sendTo(userID, event string, data any) {
	if sl := s.slot(userID); sl != nil && sl.Connected && sl.Conn != nil {
		sl.Conn.Send(event, data)
	}
}

// broadcastState pushes each seat its own filtered view of the state.
// Callers hold s.mu.
func (s *Session) broadcastState(event string) {
	for _, sl := range s.Slots {
		if sl.Connected && sl.Conn != nil {
			sl.Conn.Send(event, s.viewFor(sl.Player.ID))
		}
	}
}

func (s *Session) viewFor(viewerID string) map[string]any {
	v := map[string]any{
		"roomId":   s.ID,
		"gameType": s.GameType,
		"stake":    s.Stake,
		"status":   s.Status,
	}
	if s.State != nil {
		v["state"] = s.State.View(viewerID)
	}
	players := make([]map[string]any, 0, len(s.Slots))
	for _, sl := range s.Slots {
		players = append(players, map[string]any{
			"id":        sl.Player.ID,
			"name":      sl.Player.Name,
			"bot":       sl.Player.Bot,
			"connected": sl.Connected,
		})
	}
	v["players"] = players
	return v
}

// armTurnClock starts a fresh move budget for holderID, or the bot
// pacer when the holder is a bot. Callers hold s.mu.
func (s *Session) armTurnClock(now time.Time, holderID string) {
	s.clearTurnClock()
	s.botMoveAt = time.Time{}
	sl := s.slot(holderID)
	if sl == nil {
		return
	}
	if sl.Player.Bot {
		s.botMoves = 0
		s.botMoveAt = now.Add(botMoveDelay())
		return
	}
	s.turnHolder = holderID
	s.turnDeadline = now.Add(turnBudget)
	s.turnWarnAt = now.Add(turnWarnAfter)
	s.turnWarned = false
	s.broadcast("moveTimerStart", map[string]any{
		"currentPlayerId": holderID,
		"timeLimit":       turnBudget.Milliseconds(),
		"startTime":       now.UnixMilli(),
	})
}

// clearTurnClock cancels the pending move budget. Callers hold s.mu.
func (s *Session) clearTurnClock() {
	s.turnDeadline = time.Time{}
	s.turnWarnAt = time.Time{}
	s.turnWarned = false
	s.turnHolder = ""
}

// clearTimers wipes every pending deadline. Callers hold s.mu.
func (s *Session) clearTimers() {
	s.clearTurnClock()
	s.botJoinAt = time.Time{}
	s.graceAt = time.Time{}
	s.graceFor = ""
	s.botMoveAt = time.Time{}
}

func botMoveDelay() time.Duration {
	span := botMoveDelayMax - botMoveDelayMin
	if span <= 0 {
		return botMoveDelayMin
	}
	return botMoveDelayMin + time.Duration(game.RandInt64(int64(span)))
}
