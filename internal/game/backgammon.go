package game

import "encoding/json"

// Points hold signed checker counts: positive seat 0, negative seat 1.
// Seat 0 races from point 0 toward 23, seat 1 the other way. A turn is
// roll-then-moves: the dice roll is a distinct pre-move action and the actor
// keeps acting until the dice are spent or unplayable.
type backgammonState struct {
	Core
	Points [24]int `json:"points"`
	Bar    [2]int  `json:"bar"`
	Off    [2]int  `json:"off"`
	Dice   []int   `json:"dice"`
}

func (s *backgammonState) Base() *Core     { return &s.Core }
func (s *backgammonState) View(string) any { return s }

type backgammonMove struct {
	Action string `json:"action"`         // "roll" or "move"
	From   int    `json:"from,omitempty"` // point index, -1 = enter from bar
	Die    int    `json:"die,omitempty"`
}

type backgammonLogic struct{}

func (backgammonLogic) Type() Type          { return TypeBackgammon }
func (backgammonLogic) OffTurnClaims() bool { return false }

func (backgammonLogic) NewGame(players []PlayerRef) (State, error) {
	core, err := newCore(TypeBackgammon, players)
	if err != nil {
		return nil, err
	}
	s := &backgammonState{Core: core}
	s.Points[0], s.Points[11], s.Points[16], s.Points[18] = 2, 5, 3, 5
	s.Points[23], s.Points[12], s.Points[7], s.Points[5] = -2, -5, -3, -5
	return s, nil
}

func (backgammonLogic) ApplyMove(state State, actorID string, move json.RawMessage) (Verdict, error) {
	s := state.(*backgammonState)
	if err := guardMove(&s.Core, actorID, false); err != nil {
		return Verdict{}, err
	}
	var mv backgammonMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return Verdict{}, ErrBadPayload
	}
	seat := s.seat(actorID)

	switch mv.Action {
	case "roll":
		if len(s.Dice) > 0 {
			return Verdict{}, ErrAlreadyRolled
		}
		d1, d2 := randIntn(6)+1, randIntn(6)+1
		if d1 == d2 {
			s.Dice = []int{d1, d1, d1, d1}
		} else {
			s.Dice = []int{d1, d2}
		}
		if !bgHasAnyMove(s, seat) {
			s.Dice = nil
			s.Turn = s.Opponent(actorID)
			return Verdict{Advance: HandOff}, nil
		}
		return Verdict{Advance: SameActor}, nil
	case "move":
		if len(s.Dice) == 0 {
			return Verdict{}, ErrRollFirst
		}
		die := -1
		for i, d := range s.Dice {
			if d == mv.Die {
				die = i
				break
			}
		}
		if die < 0 {
			return Verdict{}, ErrInvalidMove
		}
		if !bgLegalMove(s, seat, mv.From, mv.Die) {
			return Verdict{}, ErrInvalidMove
		}
		bgApply(s, seat, mv.From, mv.Die)
		s.Dice = append(s.Dice[:die], s.Dice[die+1:]...)

		if s.Off[seat] == 15 {
			s.finishWin(actorID)
			return Verdict{Advance: HandOff}, nil
		}
		if len(s.Dice) == 0 || !bgHasAnyMove(s, seat) {
			s.Dice = nil
			s.Turn = s.Opponent(actorID)
			return Verdict{Advance: HandOff}, nil
		}
		return Verdict{Advance: SameActor}, nil
	default:
		return Verdict{}, ErrInvalidMove
	}
}

func (backgammonLogic) Outcome(st State) Result { return outcomeFromCore(st) }

func (backgammonLogic) BotMove(state State, botID string) (json.RawMessage, bool) {
	s := state.(*backgammonState)
	if s.Finished || s.Turn != botID {
		return nil, false
	}
	if len(s.Dice) == 0 {
		raw, _ := json.Marshal(backgammonMove{Action: "roll"})
		return raw, true
	}
	seat := s.seat(botID)
	options := bgMoves(s, seat)
	if len(options) == 0 {
		return nil, false
	}
	pick := options[randIntn(len(options))]
	raw, _ := json.Marshal(pick)
	return raw, true
}

func bgDir(seat int) int {
	if seat == 0 {
		return 1
	}
	return -1
}

func bgOwnCount(s *backgammonState, seat, point int) int {
	n := s.Points[point]
	if seat == 1 {
		n = -n
	}
	if n < 0 {
		return 0
	}
	return n
}

func bgEntryPoint(seat, die int) int {
	if seat == 0 {
		return die - 1
	}
	return 24 - die
}

func bgAllHome(s *backgammonState, seat int) bool {
	if s.Bar[seat] > 0 {
		return false
	}
	for p := 0; p < 24; p++ {
		if bgOwnCount(s, seat, p) == 0 {
			continue
		}
		if seat == 0 && p < 18 {
			return false
		}
		if seat == 1 && p > 5 {
			return false
		}
	}
	return true
}

func bgLegalMove(s *backgammonState, seat, from, die int) bool {
	// Checkers on the bar must enter first.
	if s.Bar[seat] > 0 {
		if from != -1 {
			return false
		}
		return bgOpen(s, seat, bgEntryPoint(seat, die))
	}
	if from < 0 || from > 23 || bgOwnCount(s, seat, from) == 0 {
		return false
	}
	to := from + bgDir(seat)*die
	if to < 0 || to > 23 {
		return bgAllHome(s, seat)
	}
	return bgOpen(s, seat, to)
}

// bgOpen reports whether seat may land on point: empty, own, or a lone
// opposing blot.
func bgOpen(s *backgammonState, seat, point int) bool {
	if point < 0 || point > 23 {
		return false
	}
	n := s.Points[point]
	if seat == 1 {
		n = -n
	}
	return n >= -1
}

func bgApply(s *backgammonState, seat, from, die int) {
	sign := 1
	if seat == 1 {
		sign = -1
	}
	var to int
	if from == -1 {
		s.Bar[seat]--
		to = bgEntryPoint(seat, die)
	} else {
		s.Points[from] -= sign
		to = from + bgDir(seat)*die
	}
	if to < 0 || to > 23 {
		s.Off[seat]++
		return
	}
	// Hit a blot.
	if s.Points[to]*sign == -1 {
		s.Points[to] = 0
		s.Bar[1-seat]++
	}
	s.Points[to] += sign
}

func bgMoves(s *backgammonState, seat int) []backgammonMove {
	moves := []backgammonMove{}
	seen := map[[2]int]bool{}
	for _, die := range s.Dice {
		if s.Bar[seat] > 0 {
			if bgLegalMove(s, seat, -1, die) && !seen[[2]int{-1, die}] {
				seen[[2]int{-1, die}] = true
				moves = append(moves, backgammonMove{Action: "move", From: -1, Die: die})
			}
			continue
		}
		for from := 0; from < 24; from++ {
			if bgLegalMove(s, seat, from, die) && !seen[[2]int{from, die}] {
				seen[[2]int{from, die}] = true
				moves = append(moves, backgammonMove{Action: "move", From: from, Die: die})
			}
		}
	}
	return moves
}

func bgHasAnyMove(s *backgammonState, seat int) bool {
	return len(bgMoves(s, seat)) > 0
}
