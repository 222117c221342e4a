package store

import "time"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TokenHash string    `json:"-"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type LedgerEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	RefType   string    `json:"ref_type"`
	RefID     string    `json:"ref_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MatchRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	RoomID     string    `json:"room_id"`
	GameType   string    `json:"game_type"`
	OpponentID string    `json:"opponent_id"`
	Stake      int64     `json:"stake"`
	Result     string    `json:"result"`
	CreatedAt  time.Time `json:"created_at"`
}

type TournamentRecord struct {
	ID         string     `json:"id"`
	GameType   string     `json:"game_type"`
	Status     string     `json:"status"`
	EntryFee   int64      `json:"entry_fee"`
	PrizePool  int64      `json:"prize_pool"`
	MaxPlayers int        `json:"max_players"`
	WinnerID   string     `json:"winner_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

const (
	TemplateKindInterval = "interval"
	TemplateKindFixed    = "fixed"
	TemplateKindDynamic  = "dynamic"
)

// TournamentTemplate drives the template scheduler daemon. Kind is one of
// "interval" (fire every EveryMinutes), "fixed" (fire at the wall-clock times
// in AtTimes, comma separated HH:MM), or "dynamic" (fire while fewer than
// MinActive tournaments of this template's game type are running).
type TournamentTemplate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	GameType    string     `json:"game_type"`
	MaxPlayers  int        `json:"max_players"`
	EntryFee    int64      `json:"entry_fee"`
	Kind        string     `json:"kind"`
	EveryMins   int        `json:"every_minutes"`
	AtTimes     string     `json:"at_times"`
	MinActive   int        `json:"min_active"`
	Active      bool       `json:"active"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
