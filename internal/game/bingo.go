package game

import "encoding/json"

// bingoState: each player holds a 5x5 card of numbers from 1..75 and the
// turn holder draws from a shared shuffled pool. A win must be claimed, and a
// claim is accepted out of turn order — the one off-turn exception the
// session layer supports via OffTurnClaims.
type bingoState struct {
	Core
	Cards [2][25]int `json:"cards"`
	Drawn []int      `json:"drawn"`
	pool  []int
}

func (s *bingoState) Base() *Core { return &s.Core }

func (s *bingoState) View(string) any {
	// The undrawn pool order stays server-side.
	return s
}

type bingoMove struct {
	Action string `json:"action"` // "draw" or "claim"
}

type bingoLogic struct{}

func (bingoLogic) Type() Type          { return TypeBingo }
func (bingoLogic) OffTurnClaims() bool { return true }

func (bingoLogic) NewGame(players []PlayerRef) (State, error) {
	core, err := newCore(TypeBingo, players)
	if err != nil {
		return nil, err
	}
	s := &bingoState{Core: core}
	nums := make([]int, 75)
	for i := range nums {
		nums[i] = i + 1
	}
	randShuffle(len(nums), func(i, j int) { nums[i], nums[j] = nums[j], nums[i] })
	for seat := 0; seat < 2 && seat < len(players); seat++ {
		copy(s.Cards[seat][:], nums[seat*25:seat*25+25])
	}
	s.pool = append([]int(nil), nums...)
	return s, nil
}

func (bingoLogic) ApplyMove(state State, actorID string, move json.RawMessage) (Verdict, error) {
	s := state.(*bingoState)
	if err := guardMove(&s.Core, actorID, true); err != nil {
		return Verdict{}, err
	}
	var mv bingoMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return Verdict{}, ErrBadPayload
	}

	switch mv.Action {
	case "draw":
		if s.Turn != actorID {
			return Verdict{}, ErrNotYourTurn
		}
		if len(s.pool) == 0 {
			s.finishDraw()
			return Verdict{Advance: HandOff}, nil
		}
		s.Drawn = append(s.Drawn, s.pool[0])
		s.pool = s.pool[1:]
		s.Turn = s.Opponent(actorID)
		return Verdict{Advance: HandOff}, nil
	case "claim":
		seat := s.seat(actorID)
		if !bingoCardWins(s.Cards[seat], s.Drawn) {
			return Verdict{}, ErrFalseClaim
		}
		s.finishWin(actorID)
		return Verdict{Advance: HandOff}, nil
	default:
		return Verdict{}, ErrInvalidMove
	}
}

func (bingoLogic) Outcome(st State) Result { return outcomeFromCore(st) }

func (bingoLogic) BotMove(state State, botID string) (json.RawMessage, bool) {
	s := state.(*bingoState)
	if s.Finished {
		return nil, false
	}
	seat := s.seat(botID)
	if seat >= 0 && bingoCardWins(s.Cards[seat], s.Drawn) {
		raw, _ := json.Marshal(bingoMove{Action: "claim"})
		return raw, true
	}
	if s.Turn != botID {
		return nil, false
	}
	raw, _ := json.Marshal(bingoMove{Action: "draw"})
	return raw, true
}

func bingoCardWins(card [25]int, drawn []int) bool {
	marked := map[int]bool{}
	for _, n := range drawn {
		marked[n] = true
	}
	for i := 0; i < 5; i++ {
		row, col := true, true
		for j := 0; j < 5; j++ {
			if !marked[card[i*5+j]] {
				row = false
			}
			if !marked[card[j*5+i]] {
				col = false
			}
		}
		if row || col {
			return true
		}
	}
	return false
}
