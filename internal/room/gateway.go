package room

import (
	"context"

	"matchpoint/internal/game"
)

// Conn is the delivery side of a seated player. The websocket layer
// implements it; tests use in-memory fakes.
type Conn interface {
	Send(event string, data any)
}

// Bank settles stakes against the wallet ledger. Implemented over the
// store/ledger pair by the server gateway; bots never touch it.
type Bank interface {
	Balance(ctx context.Context, userID string) (int64, error)
	DebitStake(ctx context.Context, userID, roomID string, amount int64) (int64, error)
	CreditWinnings(ctx context.Context, userID, roomID string, amount int64) (int64, error)
	RecordMatch(ctx context.Context, out MatchOutcome) error
}

// MatchOutcome is one player's row in the match history.
type MatchOutcome struct {
	UserID     string
	RoomID     string
	GameType   game.Type
	OpponentID string
	Stake      int64
	Result     string // win, loss, draw
}

// Announcer pushes lobby snapshots to subscribed clients whenever the
// set of joinable rooms for a game type changes.
type Announcer interface {
	AnnounceRooms(gameType game.Type, rooms []Info)
}

// Info is the lobby listing entry for one room.
type Info struct {
	ID       string    `json:"id"`
	GameType game.Type `json:"gameType"`
	Stake    int64     `json:"stake"`
	Players  []string  `json:"players"`
	Full     bool      `json:"full"`
}
