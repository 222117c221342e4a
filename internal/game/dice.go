package game

import "encoding/json"

const diceTarget = 50

// diceState is a hold-or-bust race to diceTarget. Rolling a 1 forfeits the
// turn total; holding banks it. A player keeps acting until bust or hold,
// which exercises the multi-action-turn path.
type diceState struct {
	Core
	Scores    [2]int `json:"scores"`
	TurnTotal int    `json:"turnTotal"`
	LastRoll  int    `json:"lastRoll"`
}

func (s *diceState) Base() *Core     { return &s.Core }
func (s *diceState) View(string) any { return s }

type diceMove struct {
	Action string `json:"action"` // "roll" or "hold"
}

type diceLogic struct{}

func (diceLogic) Type() Type          { return TypeDice }
func (diceLogic) OffTurnClaims() bool { return false }

func (diceLogic) NewGame(players []PlayerRef) (State, error) {
	core, err := newCore(TypeDice, players)
	if err != nil {
		return nil, err
	}
	return &diceState{Core: core}, nil
}

func (diceLogic) ApplyMove(state State, actorID string, move json.RawMessage) (Verdict, error) {
	s := state.(*diceState)
	if err := guardMove(&s.Core, actorID, false); err != nil {
		return Verdict{}, err
	}
	var mv diceMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return Verdict{}, ErrBadPayload
	}
	seat := s.seat(actorID)

	switch mv.Action {
	case "roll":
		roll := randIntn(6) + 1
		s.LastRoll = roll
		if roll == 1 {
			s.TurnTotal = 0
			s.Turn = s.Opponent(actorID)
			return Verdict{Advance: HandOff}, nil
		}
		s.TurnTotal += roll
		if s.Scores[seat]+s.TurnTotal >= diceTarget {
			s.Scores[seat] += s.TurnTotal
			s.TurnTotal = 0
			s.finishWin(actorID)
			return Verdict{Advance: HandOff}, nil
		}
		return Verdict{Advance: SameActor}, nil
	case "hold":
		if s.TurnTotal == 0 {
			return Verdict{}, ErrInvalidMove
		}
		s.Scores[seat] += s.TurnTotal
		s.TurnTotal = 0
		s.Turn = s.Opponent(actorID)
		return Verdict{Advance: HandOff}, nil
	default:
		return Verdict{}, ErrInvalidMove
	}
}

func (diceLogic) Outcome(st State) Result { return outcomeFromCore(st) }

func (diceLogic) BotMove(state State, botID string) (json.RawMessage, bool) {
	s := state.(*diceState)
	if s.Finished || s.Turn != botID {
		return nil, false
	}
	// Bank at 20+, otherwise press on.
	action := "roll"
	if s.TurnTotal >= 20 {
		action = "hold"
	}
	raw, _ := json.Marshal(diceMove{Action: action})
	return raw, true
}
