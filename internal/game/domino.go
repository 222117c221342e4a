package game

import "encoding/json"

type dominoTile [2]int

type dominoState struct {
	Core
	Hands    [2][]dominoTile `json:"-"`
	Line     []dominoTile    `json:"line"`
	Boneyard []dominoTile    `json:"-"`
	Passes   int             `json:"passes"`
}

func (s *dominoState) Base() *Core { return &s.Core }

// View hides the opponent hand and the boneyard behind counts.
func (s *dominoState) View(viewerID string) any {
	type view struct {
		Core
		Line      []dominoTile `json:"line"`
		Hand      []dominoTile `json:"hand"`
		HandSizes [2]int       `json:"handSizes"`
		Boneyard  int          `json:"boneyard"`
	}
	v := view{Core: s.Core, Line: s.Line, Boneyard: len(s.Boneyard)}
	for seat := range s.Hands {
		v.HandSizes[seat] = len(s.Hands[seat])
	}
	if seat := s.seat(viewerID); seat >= 0 {
		v.Hand = append([]dominoTile(nil), s.Hands[seat]...)
	}
	return v
}

type dominoMove struct {
	Action string      `json:"action"` // "play", "draw", "pass"
	Tile   *dominoTile `json:"tile,omitempty"`
	End    string      `json:"end,omitempty"` // "left" or "right"
}

type dominoLogic struct{}

func (dominoLogic) Type() Type          { return TypeDomino }
func (dominoLogic) OffTurnClaims() bool { return false }

func (dominoLogic) NewGame(players []PlayerRef) (State, error) {
	core, err := newCore(TypeDomino, players)
	if err != nil {
		return nil, err
	}
	s := &dominoState{Core: core}
	tiles := []dominoTile{}
	for a := 0; a <= 6; a++ {
		for b := a; b <= 6; b++ {
			tiles = append(tiles, dominoTile{a, b})
		}
	}
	randShuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
	for seat := 0; seat < 2 && seat < len(players); seat++ {
		s.Hands[seat] = append([]dominoTile(nil), tiles[seat*7:seat*7+7]...)
	}
	s.Boneyard = append([]dominoTile(nil), tiles[14:]...)
	return s, nil
}

func (dominoLogic) ApplyMove(state State, actorID string, move json.RawMessage) (Verdict, error) {
	s := state.(*dominoState)
	if err := guardMove(&s.Core, actorID, false); err != nil {
		return Verdict{}, err
	}
	var mv dominoMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return Verdict{}, ErrBadPayload
	}
	seat := s.seat(actorID)

	switch mv.Action {
	case "play":
		if mv.Tile == nil {
			return Verdict{}, ErrBadPayload
		}
		idx := dominoHandIndex(s.Hands[seat], *mv.Tile)
		if idx < 0 {
			return Verdict{}, ErrInvalidMove
		}
		placed, ok := dominoPlace(s.Line, *mv.Tile, mv.End)
		if !ok {
			return Verdict{}, ErrInvalidMove
		}
		s.Line = placed
		s.Hands[seat] = append(s.Hands[seat][:idx], s.Hands[seat][idx+1:]...)
		s.Passes = 0
		if len(s.Hands[seat]) == 0 {
			s.finishWin(actorID)
			return Verdict{Advance: HandOff}, nil
		}
		s.Turn = s.Opponent(actorID)
		return Verdict{Advance: HandOff}, nil
	case "draw":
		if len(s.Boneyard) == 0 || dominoCanPlay(s.Hands[seat], s.Line) {
			return Verdict{}, ErrInvalidMove
		}
		s.Hands[seat] = append(s.Hands[seat], s.Boneyard[0])
		s.Boneyard = s.Boneyard[1:]
		return Verdict{Advance: SameActor}, nil
	case "pass":
		if len(s.Boneyard) > 0 || dominoCanPlay(s.Hands[seat], s.Line) {
			return Verdict{}, ErrInvalidMove
		}
		s.Passes++
		if s.Passes >= 2 {
			dominoResolveBlocked(s)
			return Verdict{Advance: HandOff}, nil
		}
		s.Turn = s.Opponent(actorID)
		return Verdict{Advance: HandOff}, nil
	default:
		return Verdict{}, ErrInvalidMove
	}
}

func (dominoLogic) Outcome(st State) Result { return outcomeFromCore(st) }

func (dominoLogic) BotMove(state State, botID string) (json.RawMessage, bool) {
	s := state.(*dominoState)
	if s.Finished || s.Turn != botID {
		return nil, false
	}
	seat := s.seat(botID)
	for _, tile := range s.Hands[seat] {
		tile := tile
		for _, end := range []string{"left", "right"} {
			if _, ok := dominoPlace(s.Line, tile, end); ok {
				raw, _ := json.Marshal(dominoMove{Action: "play", Tile: &tile, End: end})
				return raw, true
			}
		}
	}
	action := "pass"
	if len(s.Boneyard) > 0 {
		action = "draw"
	}
	raw, _ := json.Marshal(dominoMove{Action: action})
	return raw, true
}

func dominoHandIndex(hand []dominoTile, tile dominoTile) int {
	for i, t := range hand {
		if t == tile || (t[0] == tile[1] && t[1] == tile[0]) {
			return i
		}
	}
	return -1
}

// dominoPlace returns the line with tile attached at end, oriented to match
// the open pip, or ok=false when it does not fit.
func dominoPlace(line []dominoTile, tile dominoTile, end string) ([]dominoTile, bool) {
	if len(line) == 0 {
		return []dominoTile{tile}, true
	}
	switch end {
	case "left":
		open := line[0][0]
		if tile[1] == open {
			return append([]dominoTile{tile}, line...), true
		}
		if tile[0] == open {
			return append([]dominoTile{{tile[1], tile[0]}}, line...), true
		}
	case "right":
		open := line[len(line)-1][1]
		if tile[0] == open {
			return append(append([]dominoTile(nil), line...), tile), true
		}
		if tile[1] == open {
			return append(append([]dominoTile(nil), line...), dominoTile{tile[1], tile[0]}), true
		}
	}
	return nil, false
}

func dominoCanPlay(hand []dominoTile, line []dominoTile) bool {
	for _, tile := range hand {
		for _, end := range []string{"left", "right"} {
			if _, ok := dominoPlace(line, tile, end); ok {
				return true
			}
		}
	}
	return false
}

// Blocked game: lowest pip total wins, a tie is a draw.
func dominoResolveBlocked(s *dominoState) {
	pips := [2]int{}
	for seat := range s.Hands {
		for _, t := range s.Hands[seat] {
			pips[seat] += t[0] + t[1]
		}
	}
	switch {
	case pips[0] < pips[1]:
		s.finishWin(s.Players[0].ID)
	case pips[1] < pips[0]:
		s.finishWin(s.Players[1].ID)
	default:
		s.finishDraw()
	}
}
