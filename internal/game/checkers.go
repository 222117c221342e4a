package game

import "encoding/json"

// Board encoding: 0 empty, +1/+2 seat-0 man/king, -1/-2 seat-1 man/king.
// Seat 0 men advance toward higher rows, seat 1 men toward lower rows.
type checkersState struct {
	Core
	Board          [64]int `json:"board"`
	MustJumpFrom   int     `json:"mustJumpFrom"` // -1 unless mid multi-capture
	PliesNoCapture int     `json:"pliesNoCapture"`
}

func (s *checkersState) Base() *Core     { return &s.Core }
func (s *checkersState) View(string) any { return s }

type checkersMove struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type checkersLogic struct{}

func (checkersLogic) Type() Type          { return TypeCheckers }
func (checkersLogic) OffTurnClaims() bool { return false }

func (checkersLogic) NewGame(players []PlayerRef) (State, error) {
	core, err := newCore(TypeCheckers, players)
	if err != nil {
		return nil, err
	}
	s := &checkersState{Core: core, MustJumpFrom: -1}
	for sq := 0; sq < 64; sq++ {
		row, col := sq/8, sq%8
		if (row+col)%2 != 1 {
			continue
		}
		if row < 3 {
			s.Board[sq] = 1
		} else if row > 4 {
			s.Board[sq] = -1
		}
	}
	return s, nil
}

func (checkersLogic) ApplyMove(state State, actorID string, move json.RawMessage) (Verdict, error) {
	s := state.(*checkersState)
	if err := guardMove(&s.Core, actorID, false); err != nil {
		return Verdict{}, err
	}
	var mv checkersMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return Verdict{}, ErrBadPayload
	}
	if mv.From < 0 || mv.From > 63 || mv.To < 0 || mv.To > 63 {
		return Verdict{}, ErrOutOfRange
	}
	seat := s.seat(actorID)
	legal := checkersMoves(s, seat, s.MustJumpFrom)
	var chosen *checkersStep
	for i := range legal {
		if legal[i].from == mv.From && legal[i].to == mv.To {
			chosen = &legal[i]
			break
		}
	}
	if chosen == nil {
		return Verdict{}, ErrInvalidMove
	}

	piece := s.Board[mv.From]
	s.Board[mv.From] = 0
	s.Board[mv.To] = piece
	if chosen.captured >= 0 {
		s.Board[chosen.captured] = 0
		s.PliesNoCapture = 0
	} else {
		s.PliesNoCapture++
	}
	// Promotion on the far row.
	row := mv.To / 8
	if piece == 1 && row == 7 {
		s.Board[mv.To] = 2
	} else if piece == -1 && row == 0 {
		s.Board[mv.To] = -2
	}

	if chosen.captured >= 0 && len(checkersCaptures(s, seat, mv.To)) > 0 {
		s.MustJumpFrom = mv.To
		return Verdict{Advance: SameActor}, nil
	}
	s.MustJumpFrom = -1

	opponent := s.Opponent(actorID)
	oppSeat := 1 - seat
	if len(checkersMoves(s, oppSeat, -1)) == 0 {
		s.finishWin(actorID)
		return Verdict{Advance: HandOff}, nil
	}
	if s.PliesNoCapture >= 40 {
		s.finishDraw()
		return Verdict{Advance: HandOff}, nil
	}
	s.Turn = opponent
	return Verdict{Advance: HandOff}, nil
}

func (checkersLogic) Outcome(st State) Result { return outcomeFromCore(st) }

func (checkersLogic) BotMove(state State, botID string) (json.RawMessage, bool) {
	s := state.(*checkersState)
	if s.Finished || s.Turn != botID {
		return nil, false
	}
	seat := s.seat(botID)
	moves := checkersMoves(s, seat, s.MustJumpFrom)
	if len(moves) == 0 {
		return nil, false
	}
	// Prefer captures.
	captures := []checkersStep{}
	for _, m := range moves {
		if m.captured >= 0 {
			captures = append(captures, m)
		}
	}
	pick := moves[randIntn(len(moves))]
	if len(captures) > 0 {
		pick = captures[randIntn(len(captures))]
	}
	raw, _ := json.Marshal(checkersMove{From: pick.from, To: pick.to})
	return raw, true
}

type checkersStep struct {
	from, to, captured int
}

func checkersOwns(seat, piece int) bool {
	if seat == 0 {
		return piece > 0
	}
	return piece < 0
}

func checkersDirs(seat, piece int) [][2]int {
	king := piece == 2 || piece == -2
	if king {
		return [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	}
	if seat == 0 {
		return [][2]int{{1, 1}, {1, -1}}
	}
	return [][2]int{{-1, 1}, {-1, -1}}
}

// checkersMoves lists legal steps for seat. When onlyFrom >= 0 (mid
// multi-capture) only further captures by that piece qualify.
func checkersMoves(s *checkersState, seat, onlyFrom int) []checkersStep {
	if onlyFrom >= 0 {
		return checkersCaptures(s, seat, onlyFrom)
	}
	steps := []checkersStep{}
	for sq := 0; sq < 64; sq++ {
		piece := s.Board[sq]
		if piece == 0 || !checkersOwns(seat, piece) {
			continue
		}
		row, col := sq/8, sq%8
		for _, d := range checkersDirs(seat, piece) {
			r, c := row+d[0], col+d[1]
			if r >= 0 && r < 8 && c >= 0 && c < 8 && s.Board[r*8+c] == 0 {
				steps = append(steps, checkersStep{from: sq, to: r*8 + c, captured: -1})
			}
		}
		steps = append(steps, checkersCaptures(s, seat, sq)...)
	}
	return steps
}

func checkersCaptures(s *checkersState, seat, from int) []checkersStep {
	piece := s.Board[from]
	if piece == 0 || !checkersOwns(seat, piece) {
		return nil
	}
	steps := []checkersStep{}
	row, col := from/8, from%8
	for _, d := range checkersDirs(seat, piece) {
		mr, mc := row+d[0], col+d[1]
		lr, lc := row+2*d[0], col+2*d[1]
		if lr < 0 || lr >= 8 || lc < 0 || lc >= 8 {
			continue
		}
		mid := s.Board[mr*8+mc]
		if mid != 0 && !checkersOwns(seat, mid) && s.Board[lr*8+lc] == 0 {
			steps = append(steps, checkersStep{from: from, to: lr*8 + lc, captured: mr*8 + mc})
		}
	}
	return steps
}
