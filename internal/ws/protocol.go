package ws

import "encoding/json"

// Envelope is the wire frame for both directions: a type tag plus a
// type-specific payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type AuthMessage struct {
	Token string `json:"token"`
}

type CreateRoomMessage struct {
	GameType string `json:"gameType"`
	Stake    int64  `json:"stake"`
}

type JoinRoomMessage struct {
	RoomID string `json:"roomId"`
}

type JoinPrivateMessage struct {
	Token string `json:"token"`
}

type MoveMessage struct {
	RoomID string          `json:"roomId"`
	Move   json.RawMessage `json:"move"`
}

type RoomMessage struct {
	RoomID string `json:"roomId"`
}

type ListRoomsMessage struct {
	GameType string `json:"gameType"`
}

type CreateTournamentMessage struct {
	Name       string `json:"name"`
	GameType   string `json:"gameType"`
	EntryFee   int64  `json:"entryFee"`
	MaxPlayers int    `json:"maxPlayers"`
}

type TournamentMessage struct {
	TournamentID string `json:"tournamentId"`
}

type TournamentMatchMessage struct {
	MatchID string          `json:"matchId"`
	Move    json.RawMessage `json:"move,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
