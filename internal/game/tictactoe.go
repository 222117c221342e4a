package game

import "encoding/json"

type ticTacToeState struct {
	Core
	// Board holds the occupying seat per cell, -1 when empty.
	Board [9]int `json:"board"`
}

func (s *ticTacToeState) Base() *Core { return &s.Core }

func (s *ticTacToeState) View(string) any { return s }

type ticTacToeMove struct {
	Cell int `json:"cell"`
}

type ticTacToeLogic struct{}

func (ticTacToeLogic) Type() Type          { return TypeTicTacToe }
func (ticTacToeLogic) OffTurnClaims() bool { return false }

func (ticTacToeLogic) NewGame(players []PlayerRef) (State, error) {
	core, err := newCore(TypeTicTacToe, players)
	if err != nil {
		return nil, err
	}
	st := &ticTacToeState{Core: core}
	for i := range st.Board {
		st.Board[i] = -1
	}
	return st, nil
}

func (ticTacToeLogic) ApplyMove(state State, actorID string, move json.RawMessage) (Verdict, error) {
	s := state.(*ticTacToeState)
	if err := guardMove(&s.Core, actorID, false); err != nil {
		return Verdict{}, err
	}
	var mv ticTacToeMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return Verdict{}, ErrBadPayload
	}
	if mv.Cell < 0 || mv.Cell > 8 {
		return Verdict{}, ErrOutOfRange
	}
	if s.Board[mv.Cell] != -1 {
		return Verdict{}, ErrInvalidMove
	}

	seat := s.seat(actorID)
	s.Board[mv.Cell] = seat
	if tttWins(s.Board, seat) {
		s.finishWin(actorID)
	} else if tttFull(s.Board) {
		s.finishDraw()
	} else {
		s.Turn = s.Opponent(actorID)
	}
	return Verdict{Advance: HandOff}, nil
}

func (ticTacToeLogic) Outcome(st State) Result { return outcomeFromCore(st) }

func (l ticTacToeLogic) BotMove(state State, botID string) (json.RawMessage, bool) {
	s := state.(*ticTacToeState)
	if s.Finished || s.Turn != botID {
		return nil, false
	}
	seat := s.seat(botID)
	// Winning cell first, then block, then anything.
	for _, target := range []int{seat, 1 - seat} {
		for cell := range s.Board {
			if s.Board[cell] != -1 {
				continue
			}
			s.Board[cell] = target
			wins := tttWins(s.Board, target)
			s.Board[cell] = -1
			if wins {
				raw, _ := json.Marshal(ticTacToeMove{Cell: cell})
				return raw, true
			}
		}
	}
	open := []int{}
	for cell := range s.Board {
		if s.Board[cell] == -1 {
			open = append(open, cell)
		}
	}
	if len(open) == 0 {
		return nil, false
	}
	raw, _ := json.Marshal(ticTacToeMove{Cell: open[randIntn(len(open))]})
	return raw, true
}

var tttLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func tttWins(board [9]int, seat int) bool {
	for _, line := range tttLines {
		if board[line[0]] == seat && board[line[1]] == seat && board[line[2]] == seat {
			return true
		}
	}
	return false
}

func tttFull(board [9]int) bool {
	for _, c := range board {
		if c == -1 {
			return false
		}
	}
	return true
}
