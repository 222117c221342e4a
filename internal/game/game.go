package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Type string

const (
	TypeTicTacToe  Type = "tictactoe"
	TypeCheckers   Type = "checkers"
	TypeChess      Type = "chess"
	TypeBackgammon Type = "backgammon"
	TypeDurak      Type = "durak"
	TypeDomino     Type = "domino"
	TypeDice       Type = "dice"
	TypeBingo      Type = "bingo"
)

func Types() []Type {
	return []Type{
		TypeTicTacToe, TypeCheckers, TypeChess, TypeBackgammon,
		TypeDurak, TypeDomino, TypeDice, TypeBingo,
	}
}

func ParseType(s string) (Type, error) {
	for _, t := range Types() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown game type %q", s)
}

type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  bool   `json:"bot"`
}

// Core is the shared shape of every game state. The orchestration layer only
// ever reads this part; everything else belongs to the owning engine.
type Core struct {
	Turn     string      `json:"turn"`
	Players  []PlayerRef `json:"players"`
	Finished bool        `json:"finished"`
	WinnerID string      `json:"winnerId,omitempty"`
	Draw     bool        `json:"draw,omitempty"`
}

func (c *Core) HasPlayer(id string) bool {
	for _, p := range c.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (c *Core) Opponent(id string) string {
	for _, p := range c.Players {
		if p.ID != id {
			return p.ID
		}
	}
	return ""
}

func (c *Core) seat(id string) int {
	for i, p := range c.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (c *Core) finishWin(winnerID string) {
	c.Finished = true
	c.WinnerID = winnerID
	c.Turn = ""
}

func (c *Core) finishDraw() {
	c.Finished = true
	c.Draw = true
	c.Turn = ""
}

type State interface {
	Base() *Core
	// View returns the client-visible snapshot for viewerID, with hidden
	// information (opponent hands, undrawn decks) stripped.
	View(viewerID string) any
}

// TurnAdvance tells the session layer whether the move handed the turn to the
// opponent or the same actor keeps acting (compound captures, unspent dice).
type TurnAdvance int

const (
	HandOff TurnAdvance = iota
	SameActor
)

type Verdict struct {
	Advance TurnAdvance
}

type Result struct {
	Over     bool
	WinnerID string
	Draw     bool
}

var (
	ErrNotYourTurn   = errors.New("not_your_turn")
	ErrInvalidMove   = errors.New("invalid_move")
	ErrBadPayload    = errors.New("bad_move_payload")
	ErrGameFinished  = errors.New("game_finished")
	ErrWrongPlayers  = errors.New("wrong_player_count")
	ErrNotInGame     = errors.New("not_in_game")
	ErrOutOfRange    = errors.New("position_out_of_range")
	ErrFalseClaim    = errors.New("false_claim")
	ErrRollFirst     = errors.New("roll_dice_first")
	ErrAlreadyRolled = errors.New("already_rolled")
)

// Logic is the per-game-type contract. ApplyMove validates before it mutates:
// on error the state is untouched.
type Logic interface {
	Type() Type
	NewGame(players []PlayerRef) (State, error)
	ApplyMove(st State, actorID string, move json.RawMessage) (Verdict, error)
	Outcome(st State) Result
	BotMove(st State, botID string) (json.RawMessage, bool)
	// OffTurnClaims reports whether this game lets a player submit a winning
	// claim outside normal turn order (bingo-style).
	OffTurnClaims() bool
}

func LogicFor(t Type) (Logic, error) {
	switch t {
	case TypeTicTacToe:
		return ticTacToeLogic{}, nil
	case TypeCheckers:
		return checkersLogic{}, nil
	case TypeChess:
		return chessLogic{}, nil
	case TypeBackgammon:
		return backgammonLogic{}, nil
	case TypeDurak:
		return durakLogic{}, nil
	case TypeDomino:
		return dominoLogic{}, nil
	case TypeDice:
		return diceLogic{}, nil
	case TypeBingo:
		return bingoLogic{}, nil
	default:
		return nil, fmt.Errorf("unknown game type %q", t)
	}
}

// outcomeFromCore is shared by engines whose terminal conditions are fully
// recorded on Core.
func outcomeFromCore(st State) Result {
	c := st.Base()
	return Result{Over: c.Finished, WinnerID: c.WinnerID, Draw: c.Draw}
}

func newCore(t Type, players []PlayerRef) (Core, error) {
	if len(players) < 1 || len(players) > 2 {
		return Core{}, ErrWrongPlayers
	}
	c := Core{Players: append([]PlayerRef(nil), players...)}
	if len(players) == 2 {
		c.Turn = players[0].ID
	}
	return c, nil
}

// guardMove applies the shared acceptance predicate: the game is live and the
// actor holds the turn (unless the engine allows off-turn claims, in which
// case the caller checks membership only).
func guardMove(c *Core, actorID string, offTurnOK bool) error {
	if c.Finished {
		return ErrGameFinished
	}
	if len(c.Players) != 2 {
		return ErrWrongPlayers
	}
	if !c.HasPlayer(actorID) {
		return ErrNotInGame
	}
	if c.Turn != actorID && !offTurnOK {
		return ErrNotYourTurn
	}
	return nil
}
