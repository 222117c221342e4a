package tournament

import (
	"time"

	"matchpoint/internal/game"
)

var (
	registrationCountdown = 15 * time.Second
	botAccelerationAfter  = 10 * time.Second
)

// replayCap bounds draw replays per bracket match; one more draw past
// the cap forces a random winner.
const replayCap = 3

type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusActive    Status = "ACTIVE"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

type MatchStatus string

const (
	// MatchWaiting marks a placeholder awaiting earlier-round winners.
	MatchWaiting  MatchStatus = "WAITING"
	MatchActive   MatchStatus = "ACTIVE"
	MatchFinished MatchStatus = "FINISHED"
)

// Match is one bracket slot. Players may be nil until the feeding
// matches finish.
type Match struct {
	ID       string
	Round    int
	Index    int
	Players  [2]*game.PlayerRef
	WinnerID string
	Status   MatchStatus
	Replays  int

	roomID    string
	startedAt time.Time
}

func (m *Match) bothBots() bool {
	return m.Players[0] != nil && m.Players[1] != nil &&
		m.Players[0].Bot && m.Players[1].Bot
}

func (m *Match) winner() *game.PlayerRef {
	for _, p := range m.Players {
		if p != nil && p.ID == m.WinnerID {
			return p
		}
	}
	return nil
}

// Tournament is the in-memory bracket record. The orchestrator is the
// single writer; snapshots for listings are taken under its lock.
type Tournament struct {
	ID         string
	Name       string
	GameType   game.Type
	Status     Status
	EntryFee   int64
	PrizePool  int64
	MaxPlayers int
	Roster     []game.PlayerRef
	Rounds     [][]*Match
	WinnerID   string
	CreatedAt  time.Time

	// countdownAt is the pending registration deadline; zero when no
	// countdown is armed.
	countdownAt time.Time
}

func (t *Tournament) registered(userID string) bool {
	for _, p := range t.Roster {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func (t *Tournament) humans() []game.PlayerRef {
	out := make([]game.PlayerRef, 0, len(t.Roster))
	for _, p := range t.Roster {
		if !p.Bot {
			out = append(out, p)
		}
	}
	return out
}

func (t *Tournament) findMatch(matchID string) *Match {
	for _, round := range t.Rounds {
		for _, m := range round {
			if m.ID == matchID {
				return m
			}
		}
	}
	return nil
}

// Snapshot is the wire form of a tournament for listings and events.
type Snapshot struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	GameType   game.Type        `json:"gameType"`
	Status     Status           `json:"status"`
	EntryFee   int64            `json:"entryFee"`
	PrizePool  int64            `json:"prizePool"`
	MaxPlayers int              `json:"maxPlayers"`
	Players    []game.PlayerRef `json:"players"`
	Rounds     [][]MatchView    `json:"rounds,omitempty"`
	WinnerID   string           `json:"winnerId,omitempty"`
}

type MatchView struct {
	ID       string            `json:"id"`
	Players  []*game.PlayerRef `json:"players"`
	WinnerID string            `json:"winnerId,omitempty"`
	Status   MatchStatus       `json:"status"`
	Replays  int               `json:"replays,omitempty"`
}

func (t *Tournament) snapshot() Snapshot {
	s := Snapshot{
		ID:         t.ID,
		Name:       t.Name,
		GameType:   t.GameType,
		Status:     t.Status,
		EntryFee:   t.EntryFee,
		PrizePool:  t.PrizePool,
		MaxPlayers: t.MaxPlayers,
		Players:    append([]game.PlayerRef(nil), t.Roster...),
		WinnerID:   t.WinnerID,
	}
	for _, round := range t.Rounds {
		views := make([]MatchView, 0, len(round))
		for _, m := range round {
			views = append(views, MatchView{
				ID:       m.ID,
				Players:  []*game.PlayerRef{m.Players[0], m.Players[1]},
				WinnerID: m.WinnerID,
				Status:   m.Status,
				Replays:  m.Replays,
			})
		}
		s.Rounds = append(s.Rounds, views)
	}
	return s
}
