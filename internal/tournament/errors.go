package tournament

import "errors"

var (
	ErrNotFound            = errors.New("tournament_not_found")
	ErrBadMaxPlayers       = errors.New("max_players_must_be_power_of_two")
	ErrRegistrationClosed  = errors.New("registration_closed")
	ErrAlreadyRegistered   = errors.New("already_registered")
	ErrRegisteredElsewhere = errors.New("registered_in_another_tournament")
	ErrFull                = errors.New("tournament_full")
	ErrInsufficientFunds   = errors.New("insufficient_funds")
	ErrNotRegistered       = errors.New("not_registered")
)
