package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func twoPlayers() []PlayerRef {
	return []PlayerRef{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob", Bot: true},
	}
}

func mustMove(t *testing.T, l Logic, st State, actor string, payload string) Verdict {
	t.Helper()
	v, err := l.ApplyMove(st, actor, json.RawMessage(payload))
	require.NoError(t, err)
	return v
}

// Every supported game type must run from initial state to a terminal one
// when both seats are driven by the engine's own bot moves.
func TestEveryGameTypeReachesTerminalState(t *testing.T) {
	SeedRand(7)
	for _, gt := range Types() {
		gt := gt
		t.Run(string(gt), func(t *testing.T) {
			logic, err := LogicFor(gt)
			require.NoError(t, err)
			st, err := logic.NewGame(twoPlayers())
			require.NoError(t, err)

			for i := 0; i < 20000; i++ {
				if logic.Outcome(st).Over {
					break
				}
				moved := false
				for _, p := range st.Base().Players {
					raw, ok := logic.BotMove(st, p.ID)
					if !ok {
						continue
					}
					_, err := logic.ApplyMove(st, p.ID, raw)
					require.NoError(t, err, "game %s move %s", gt, string(raw))
					moved = true
					break
				}
				require.True(t, moved, "game %s stuck without a bot move", gt)
			}
			res := logic.Outcome(st)
			require.True(t, res.Over, "game %s never finished", gt)
			if !res.Draw {
				require.True(t, st.Base().HasPlayer(res.WinnerID))
			}
		})
	}
}

func TestMoveAcceptancePredicate(t *testing.T) {
	logic, _ := LogicFor(TypeTicTacToe)

	// One slot only: every move rejected.
	st, err := logic.NewGame([]PlayerRef{{ID: "u1"}})
	require.NoError(t, err)
	_, err = logic.ApplyMove(st, "u1", json.RawMessage(`{"cell":0}`))
	require.ErrorIs(t, err, ErrWrongPlayers)

	st, err = logic.NewGame(twoPlayers())
	require.NoError(t, err)

	// Off turn.
	_, err = logic.ApplyMove(st, "u2", json.RawMessage(`{"cell":0}`))
	require.ErrorIs(t, err, ErrNotYourTurn)

	// Stranger.
	_, err = logic.ApplyMove(st, "intruder", json.RawMessage(`{"cell":0}`))
	require.ErrorIs(t, err, ErrNotInGame)

	// Occupied cell leaves state untouched.
	mustMove(t, logic, st, "u1", `{"cell":4}`)
	_, err = logic.ApplyMove(st, "u2", json.RawMessage(`{"cell":4}`))
	require.ErrorIs(t, err, ErrInvalidMove)
	require.Equal(t, "u2", st.Base().Turn)

	// Finished game rejects everything.
	mustMove(t, logic, st, "u2", `{"cell":1}`)
	mustMove(t, logic, st, "u1", `{"cell":0}`)
	mustMove(t, logic, st, "u2", `{"cell":2}`)
	mustMove(t, logic, st, "u1", `{"cell":8}`) // 4,0,8 wins the diagonal
	require.True(t, logic.Outcome(st).Over)
	require.Equal(t, "u1", logic.Outcome(st).WinnerID)
	_, err = logic.ApplyMove(st, "u2", json.RawMessage(`{"cell":5}`))
	require.ErrorIs(t, err, ErrGameFinished)
}

func TestDiceTurnOnlyHandsOffOnHoldOrBust(t *testing.T) {
	SeedRand(11)
	logic, _ := LogicFor(TypeDice)
	st, err := logic.NewGame(twoPlayers())
	require.NoError(t, err)

	for i := 0; i < 200 && !logic.Outcome(st).Over; i++ {
		s := st.(*diceState)
		actor := s.Turn
		v := mustMove(t, logic, st, actor, `{"action":"roll"}`)
		if v.Advance == SameActor {
			require.Equal(t, actor, s.Turn, "same-actor verdict must keep the turn")
			mustMove(t, logic, st, actor, `{"action":"hold"}`)
			if !s.Finished {
				require.NotEqual(t, actor, s.Turn, "hold must hand off")
			}
		} else if !s.Finished {
			require.NotEqual(t, actor, s.Turn, "bust must hand off")
			require.Equal(t, 1, s.LastRoll)
		}
	}
}

func TestBackgammonRequiresRollBeforeMove(t *testing.T) {
	logic, _ := LogicFor(TypeBackgammon)
	st, err := logic.NewGame(twoPlayers())
	require.NoError(t, err)

	_, err = logic.ApplyMove(st, "u1", json.RawMessage(`{"action":"move","from":0,"die":3}`))
	require.ErrorIs(t, err, ErrRollFirst)

	v := mustMove(t, logic, st, "u1", `{"action":"roll"}`)
	if v.Advance == SameActor {
		_, err = logic.ApplyMove(st, "u1", json.RawMessage(`{"action":"roll"}`))
		require.ErrorIs(t, err, ErrAlreadyRolled)
	}
}

func TestBingoOffTurnClaim(t *testing.T) {
	logic, _ := LogicFor(TypeBingo)
	require.True(t, logic.OffTurnClaims())

	st, err := logic.NewGame(twoPlayers())
	require.NoError(t, err)
	s := st.(*bingoState)

	// A premature claim is a validation error and mutates nothing.
	_, err = logic.ApplyMove(st, "u2", json.RawMessage(`{"action":"claim"}`))
	require.ErrorIs(t, err, ErrFalseClaim)
	require.False(t, s.Finished)

	// Mark u2's first row as drawn; the claim is then valid even though it
	// is u1's turn.
	s.Drawn = append(s.Drawn, s.Cards[1][0], s.Cards[1][1], s.Cards[1][2], s.Cards[1][3], s.Cards[1][4])
	require.Equal(t, "u1", s.Turn)
	mustMove(t, logic, st, "u2", `{"action":"claim"}`)
	require.True(t, s.Finished)
	require.Equal(t, "u2", s.WinnerID)
}

func TestCheckersMultiCaptureKeepsActor(t *testing.T) {
	logic, _ := LogicFor(TypeCheckers)
	st, err := logic.NewGame(twoPlayers())
	require.NoError(t, err)
	s := st.(*checkersState)

	// Clear the board and stage a double jump for seat 0:
	// man at 9 jumps 18 -> lands 27, then jumps 36 -> lands 45.
	for i := range s.Board {
		s.Board[i] = 0
	}
	s.Board[9] = 1
	s.Board[18] = -1
	s.Board[36] = -1
	s.Board[63] = -1 // keep the opponent alive

	v := mustMove(t, logic, st, "u1", `{"from":9,"to":27}`)
	require.Equal(t, SameActor, v.Advance)
	require.Equal(t, "u1", s.Turn)
	require.Equal(t, 27, s.MustJumpFrom)

	// Mid multi-capture, a plain move by the same piece is rejected.
	_, err = logic.ApplyMove(st, "u1", json.RawMessage(`{"from":27,"to":34}`))
	require.ErrorIs(t, err, ErrInvalidMove)

	v = mustMove(t, logic, st, "u1", `{"from":27,"to":45}`)
	require.Equal(t, HandOff, v.Advance)
	require.Equal(t, "u2", s.Turn)
	require.Equal(t, -1, s.MustJumpFrom)
	require.Equal(t, 0, s.Board[18])
	require.Equal(t, 0, s.Board[36])
}

func TestDominoHiddenInformationInView(t *testing.T) {
	SeedRand(3)
	logic, _ := LogicFor(TypeDomino)
	st, err := logic.NewGame(twoPlayers())
	require.NoError(t, err)

	raw, err := json.Marshal(st.View("u1"))
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal(raw, &v))
	require.Contains(t, v, "hand")
	require.Contains(t, v, "handSizes")
	// The opponent's tiles must not appear anywhere in u1's view.
	require.NotContains(t, v, "hands")
}

func TestChessKingCaptureEndsGame(t *testing.T) {
	logic, _ := LogicFor(TypeChess)
	st, err := logic.NewGame(twoPlayers())
	require.NoError(t, err)
	s := st.(*chessState)

	for i := range s.Board {
		s.Board[i] = 0
	}
	s.Board[0] = 4   // seat-0 rook a1
	s.Board[56] = -6 // seat-1 king a8
	s.Board[36] = 6  // seat-0 king e5, off the rook's file

	mustMove(t, logic, st, "u1", `{"from":0,"to":56}`)
	res := logic.Outcome(st)
	require.True(t, res.Over)
	require.Equal(t, "u1", res.WinnerID)
}

func TestDurakDefenseHandsAttackToDefender(t *testing.T) {
	logic, _ := LogicFor(TypeDurak)
	st, err := logic.NewGame(twoPlayers())
	require.NoError(t, err)
	s := st.(*durakState)

	// Force a known bout: attacker u1 plays a six, defender holds a higher
	// card of the same suit.
	s.Attacker = 0
	s.Turn = "u1"
	s.Hands[0] = []durakCard{{6, 0}, {7, 1}}
	s.Hands[1] = []durakCard{{10, 0}, {8, 2}}
	s.Deck = []durakCard{{9, 3}, {9, 2}, {11, 1}, {12, 1}}
	s.TrumpSuit = 3

	mustMove(t, logic, st, "u1", `{"action":"attack","card":[6,0]}`)
	require.Equal(t, "u2", s.Turn)

	v := mustMove(t, logic, st, "u2", `{"action":"defend","card":[10,0]}`)
	require.Equal(t, SameActor, v.Advance)
	require.Equal(t, 1, s.Attacker, "successful defender takes over the attack")
	require.Equal(t, "u2", s.Turn)
}

func TestDurakBotAttacksWithCheapestCard(t *testing.T) {
	logic, _ := LogicFor(TypeDurak)
	st, err := logic.NewGame(twoPlayers())
	require.NoError(t, err)
	s := st.(*durakState)

	s.Attacker = 0
	s.Turn = "u1"
	s.Attack = nil
	s.TrumpSuit = 1
	s.Hands[0] = []durakCard{{14, 0}, {6, 1}, {7, 2}}

	raw, ok := logic.BotMove(st, "u1")
	require.True(t, ok)
	var mv durakMove
	require.NoError(t, json.Unmarshal(raw, &mv))
	require.Equal(t, "attack", mv.Action)
	// The six of trumps is the dearest card despite its rank.
	require.Equal(t, durakCard{7, 2}, *mv.Card)
}

func TestParseType(t *testing.T) {
	for _, gt := range Types() {
		parsed, err := ParseType(string(gt))
		require.NoError(t, err)
		require.Equal(t, gt, parsed)
	}
	_, err := ParseType("poker")
	require.Error(t, err)
}
