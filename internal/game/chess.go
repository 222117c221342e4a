package game

import "encoding/json"

// Piece codes: 1 pawn, 2 knight, 3 bishop, 4 rook, 5 queen, 6 king; positive
// for seat 0 (pawns advance toward higher rows), negative for seat 1. Play is
// capture-the-king: checks are not enforced, the game ends when a king is
// taken or after a long quiet stretch.
type chessState struct {
	Core
	Board      [64]int `json:"board"`
	QuietPlies int     `json:"quietPlies"`
}

func (s *chessState) Base() *Core     { return &s.Core }
func (s *chessState) View(string) any { return s }

type chessMove struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type chessLogic struct{}

func (chessLogic) Type() Type          { return TypeChess }
func (chessLogic) OffTurnClaims() bool { return false }

var chessBackRank = [8]int{4, 2, 3, 5, 6, 3, 2, 4}

func (chessLogic) NewGame(players []PlayerRef) (State, error) {
	core, err := newCore(TypeChess, players)
	if err != nil {
		return nil, err
	}
	s := &chessState{Core: core}
	for col := 0; col < 8; col++ {
		s.Board[col] = chessBackRank[col]
		s.Board[8+col] = 1
		s.Board[48+col] = -1
		s.Board[56+col] = -chessBackRank[col]
	}
	return s, nil
}

func (chessLogic) ApplyMove(state State, actorID string, move json.RawMessage) (Verdict, error) {
	s := state.(*chessState)
	if err := guardMove(&s.Core, actorID, false); err != nil {
		return Verdict{}, err
	}
	var mv chessMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return Verdict{}, ErrBadPayload
	}
	if mv.From < 0 || mv.From > 63 || mv.To < 0 || mv.To > 63 {
		return Verdict{}, ErrOutOfRange
	}
	seat := s.seat(actorID)
	if !chessLegal(s, seat, mv.From, mv.To) {
		return Verdict{}, ErrInvalidMove
	}

	piece := s.Board[mv.From]
	target := s.Board[mv.To]
	s.Board[mv.From] = 0
	s.Board[mv.To] = piece
	// Auto-queen.
	if piece == 1 && mv.To/8 == 7 {
		s.Board[mv.To] = 5
	} else if piece == -1 && mv.To/8 == 0 {
		s.Board[mv.To] = -5
	}
	if target != 0 || piece == 1 || piece == -1 {
		s.QuietPlies = 0
	} else {
		s.QuietPlies++
	}

	if target == 6 || target == -6 {
		s.finishWin(actorID)
		return Verdict{Advance: HandOff}, nil
	}
	if s.QuietPlies >= 60 {
		s.finishDraw()
		return Verdict{Advance: HandOff}, nil
	}
	opponent := s.Opponent(actorID)
	if len(chessMoves(s, 1-seat)) == 0 {
		// Stalemate under capture-the-king rules is a draw.
		s.finishDraw()
		return Verdict{Advance: HandOff}, nil
	}
	s.Turn = opponent
	return Verdict{Advance: HandOff}, nil
}

func (chessLogic) Outcome(st State) Result { return outcomeFromCore(st) }

func (chessLogic) BotMove(state State, botID string) (json.RawMessage, bool) {
	s := state.(*chessState)
	if s.Finished || s.Turn != botID {
		return nil, false
	}
	seat := s.seat(botID)
	moves := chessMoves(s, seat)
	if len(moves) == 0 {
		return nil, false
	}
	best := []chessMove{}
	bestGain := -1
	for _, m := range moves {
		gain := chessPieceValue(s.Board[m.To])
		if gain > bestGain {
			bestGain = gain
			best = best[:0]
		}
		if gain == bestGain {
			best = append(best, m)
		}
	}
	pick := best[randIntn(len(best))]
	raw, _ := json.Marshal(pick)
	return raw, true
}

func chessPieceValue(piece int) int {
	if piece < 0 {
		piece = -piece
	}
	switch piece {
	case 1:
		return 1
	case 2, 3:
		return 3
	case 4:
		return 5
	case 5:
		return 9
	case 6:
		return 100
	default:
		return 0
	}
}

func chessOwns(seat, piece int) bool {
	if seat == 0 {
		return piece > 0
	}
	return piece < 0
}

func chessMoves(s *chessState, seat int) []chessMove {
	moves := []chessMove{}
	for from := 0; from < 64; from++ {
		if s.Board[from] == 0 || !chessOwns(seat, s.Board[from]) {
			continue
		}
		for to := 0; to < 64; to++ {
			if chessLegal(s, seat, from, to) {
				moves = append(moves, chessMove{From: from, To: to})
			}
		}
	}
	return moves
}

func chessLegal(s *chessState, seat, from, to int) bool {
	piece := s.Board[from]
	if piece == 0 || !chessOwns(seat, piece) || from == to {
		return false
	}
	if s.Board[to] != 0 && chessOwns(seat, s.Board[to]) {
		return false
	}
	fr, fc := from/8, from%8
	tr, tc := to/8, to%8
	dr, dc := tr-fr, tc-fc
	abs := func(n int) int {
		if n < 0 {
			return -n
		}
		return n
	}
	kind := abs(piece)
	switch kind {
	case 1: // pawn
		fwd := 1
		startRow := 1
		if piece < 0 {
			fwd = -1
			startRow = 6
		}
		if dc == 0 && dr == fwd && s.Board[to] == 0 {
			return true
		}
		if dc == 0 && dr == 2*fwd && fr == startRow && s.Board[to] == 0 && s.Board[(fr+fwd)*8+fc] == 0 {
			return true
		}
		if abs(dc) == 1 && dr == fwd && s.Board[to] != 0 {
			return true
		}
		return false
	case 2: // knight
		return (abs(dr) == 2 && abs(dc) == 1) || (abs(dr) == 1 && abs(dc) == 2)
	case 3: // bishop
		return abs(dr) == abs(dc) && chessClearPath(s, fr, fc, tr, tc)
	case 4: // rook
		return (dr == 0 || dc == 0) && chessClearPath(s, fr, fc, tr, tc)
	case 5: // queen
		return (dr == 0 || dc == 0 || abs(dr) == abs(dc)) && chessClearPath(s, fr, fc, tr, tc)
	case 6: // king
		return abs(dr) <= 1 && abs(dc) <= 1
	default:
		return false
	}
}

func chessClearPath(s *chessState, fr, fc, tr, tc int) bool {
	stepR, stepC := sign(tr-fr), sign(tc-fc)
	r, c := fr+stepR, fc+stepC
	for r != tr || c != tc {
		if s.Board[r*8+c] != 0 {
			return false
		}
		r += stepR
		c += stepC
	}
	return true
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
