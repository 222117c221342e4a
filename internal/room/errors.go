package room

import (
	"errors"
	"net/http"

	"matchpoint/internal/game"
)

var (
	ErrRoomNotFound      = errors.New("room_not_found")
	ErrRoomFull          = errors.New("room_full")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrAlreadyInRoom     = errors.New("already_in_room")
	ErrNotInRoom         = errors.New("not_in_room")
	ErrInviteInvalid     = errors.New("invite_invalid")
	ErrInviteExpired     = errors.New("invite_expired")
	ErrInviteUsed        = errors.New("invite_used")
)

// ErrorCode flattens session errors to the wire code sent in error events.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, ErrInviteInvalid):
		return "invite_invalid"
	case errors.Is(err, ErrInviteExpired):
		return "invite_expired"
	case errors.Is(err, ErrInviteUsed):
		return "invite_used"
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrInvalidMove):
		return "invalid_move"
	case errors.Is(err, game.ErrBadPayload):
		return "bad_move_payload"
	case errors.Is(err, game.ErrGameFinished):
		return "game_finished"
	case errors.Is(err, game.ErrWrongPlayers):
		return "waiting_for_opponent"
	case errors.Is(err, game.ErrNotInGame):
		return "not_in_game"
	case errors.Is(err, game.ErrOutOfRange):
		return "position_out_of_range"
	case errors.Is(err, game.ErrFalseClaim):
		return "false_claim"
	case errors.Is(err, game.ErrRollFirst):
		return "roll_dice_first"
	case errors.Is(err, game.ErrAlreadyRolled):
		return "already_rolled"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps session errors for the admin/debug HTTP surface.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrRoomFull):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
