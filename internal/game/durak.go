package game

import "encoding/json"

// durakCard is {rank, suit}; ranks run 6..14 (ace high), suits 0..3.
type durakCard [2]int

// Heads-up durak, one attack card per bout. The defender either beats the
// card (discarding the bout and taking over the attack) or takes it. First
// player to empty their hand once the deck is gone escapes; the opponent is
// left as the fool.
type durakState struct {
	Core
	Hands     [2][]durakCard `json:"-"`
	Deck      []durakCard    `json:"-"`
	Attack    *durakCard     `json:"attack,omitempty"`
	TrumpSuit int            `json:"trumpSuit"`
	Attacker  int            `json:"attacker"`
	Discarded int            `json:"discarded"`
}

func (s *durakState) Base() *Core { return &s.Core }

func (s *durakState) View(viewerID string) any {
	type view struct {
		Core
		Attack    *durakCard  `json:"attack,omitempty"`
		TrumpSuit int         `json:"trumpSuit"`
		Attacker  int         `json:"attacker"`
		Hand      []durakCard `json:"hand"`
		HandSizes [2]int      `json:"handSizes"`
		Deck      int         `json:"deck"`
	}
	v := view{Core: s.Core, Attack: s.Attack, TrumpSuit: s.TrumpSuit, Attacker: s.Attacker, Deck: len(s.Deck)}
	for seat := range s.Hands {
		v.HandSizes[seat] = len(s.Hands[seat])
	}
	if seat := s.seat(viewerID); seat >= 0 {
		v.Hand = append([]durakCard(nil), s.Hands[seat]...)
	}
	return v
}

type durakMove struct {
	Action string     `json:"action"` // "attack", "defend", "take"
	Card   *durakCard `json:"card,omitempty"`
}

type durakLogic struct{}

func (durakLogic) Type() Type          { return TypeDurak }
func (durakLogic) OffTurnClaims() bool { return false }

func (durakLogic) NewGame(players []PlayerRef) (State, error) {
	core, err := newCore(TypeDurak, players)
	if err != nil {
		return nil, err
	}
	s := &durakState{Core: core}
	deck := []durakCard{}
	for suit := 0; suit < 4; suit++ {
		for rank := 6; rank <= 14; rank++ {
			deck = append(deck, durakCard{rank, suit})
		}
	}
	randShuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	s.TrumpSuit = deck[len(deck)-1][1]
	for seat := 0; seat < 2 && seat < len(players); seat++ {
		s.Hands[seat] = append([]durakCard(nil), deck[seat*6:seat*6+6]...)
	}
	s.Deck = append([]durakCard(nil), deck[12:]...)
	return s, nil
}

func (durakLogic) ApplyMove(state State, actorID string, move json.RawMessage) (Verdict, error) {
	s := state.(*durakState)
	if err := guardMove(&s.Core, actorID, false); err != nil {
		return Verdict{}, err
	}
	var mv durakMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return Verdict{}, ErrBadPayload
	}
	seat := s.seat(actorID)
	defender := 1 - s.Attacker

	switch mv.Action {
	case "attack":
		if seat != s.Attacker || s.Attack != nil || mv.Card == nil {
			return Verdict{}, ErrInvalidMove
		}
		idx := durakHandIndex(s.Hands[seat], *mv.Card)
		if idx < 0 {
			return Verdict{}, ErrInvalidMove
		}
		card := s.Hands[seat][idx]
		s.Hands[seat] = append(s.Hands[seat][:idx], s.Hands[seat][idx+1:]...)
		s.Attack = &card
		s.Turn = s.Players[defender].ID
		return Verdict{Advance: HandOff}, nil
	case "defend":
		if seat != defender || s.Attack == nil || mv.Card == nil {
			return Verdict{}, ErrInvalidMove
		}
		idx := durakHandIndex(s.Hands[seat], *mv.Card)
		if idx < 0 || !durakBeats(*mv.Card, *s.Attack, s.TrumpSuit) {
			return Verdict{}, ErrInvalidMove
		}
		s.Hands[seat] = append(s.Hands[seat][:idx], s.Hands[seat][idx+1:]...)
		s.Attack = nil
		s.Discarded += 2
		durakRefill(s)
		if over := durakCheckEnd(s); over {
			return Verdict{Advance: HandOff}, nil
		}
		// Successful defense: the defender takes over the attack and
		// acts again.
		s.Attacker = seat
		s.Turn = actorID
		return Verdict{Advance: SameActor}, nil
	case "take":
		if seat != defender || s.Attack == nil {
			return Verdict{}, ErrInvalidMove
		}
		s.Hands[seat] = append(s.Hands[seat], *s.Attack)
		s.Attack = nil
		durakRefill(s)
		if over := durakCheckEnd(s); over {
			return Verdict{Advance: HandOff}, nil
		}
		s.Turn = s.Players[s.Attacker].ID
		return Verdict{Advance: HandOff}, nil
	default:
		return Verdict{}, ErrInvalidMove
	}
}

func (durakLogic) Outcome(st State) Result { return outcomeFromCore(st) }

func (durakLogic) BotMove(state State, botID string) (json.RawMessage, bool) {
	s := state.(*durakState)
	if s.Finished || s.Turn != botID {
		return nil, false
	}
	seat := s.seat(botID)
	if seat == s.Attacker && s.Attack == nil {
		if len(s.Hands[seat]) == 0 {
			return nil, false
		}
		card := durakLowest(s.Hands[seat], s.TrumpSuit)
		raw, _ := json.Marshal(durakMove{Action: "attack", Card: &card})
		return raw, true
	}
	if seat != s.Attacker && s.Attack != nil {
		// Cheapest card that beats the attack, otherwise take.
		var best *durakCard
		for i := range s.Hands[seat] {
			c := s.Hands[seat][i]
			if !durakBeats(c, *s.Attack, s.TrumpSuit) {
				continue
			}
			if best == nil || durakWeight(c, s.TrumpSuit) < durakWeight(*best, s.TrumpSuit) {
				card := c
				best = &card
			}
		}
		if best != nil {
			raw, _ := json.Marshal(durakMove{Action: "defend", Card: best})
			return raw, true
		}
		raw, _ := json.Marshal(durakMove{Action: "take"})
		return raw, true
	}
	return nil, false
}

func durakHandIndex(hand []durakCard, card durakCard) int {
	for i, c := range hand {
		if c == card {
			return i
		}
	}
	return -1
}

func durakBeats(card, attack durakCard, trump int) bool {
	if card[1] == attack[1] {
		return card[0] > attack[0]
	}
	return card[1] == trump
}

func durakWeight(card durakCard, trump int) int {
	w := card[0]
	if card[1] == trump {
		w += 20
	}
	return w
}

// durakLowest returns the cheapest card in a non-empty hand, trumps last.
func durakLowest(hand []durakCard, trump int) durakCard {
	best := hand[0]
	for _, c := range hand[1:] {
		if durakWeight(c, trump) < durakWeight(best, trump) {
			best = c
		}
	}
	return best
}

// durakRefill tops both hands back up to 6 while the deck lasts, attacker
// first.
func durakRefill(s *durakState) {
	order := []int{s.Attacker, 1 - s.Attacker}
	for _, seat := range order {
		for len(s.Hands[seat]) < 6 && len(s.Deck) > 0 {
			s.Hands[seat] = append(s.Hands[seat], s.Deck[0])
			s.Deck = s.Deck[1:]
		}
	}
}

func durakCheckEnd(s *durakState) bool {
	if len(s.Deck) > 0 {
		return false
	}
	empty0 := len(s.Hands[0]) == 0
	empty1 := len(s.Hands[1]) == 0
	switch {
	case empty0 && empty1:
		s.finishDraw()
	case empty0:
		s.finishWin(s.Players[0].ID)
	case empty1:
		s.finishWin(s.Players[1].ID)
	default:
		return false
	}
	return true
}
