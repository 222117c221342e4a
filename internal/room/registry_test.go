package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchpoint/internal/game"
)

type sentEvent struct {
	Name string
	Data any
}

type fakeConn struct {
	mu     sync.Mutex
	events []sentEvent
}

func (c *fakeConn) Send(event string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sentEvent{Name: event, Data: data})
}

func (c *fakeConn) has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Name == name {
			return true
		}
	}
	return false
}

func (c *fakeConn) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

type fakeBank struct {
	mu       sync.Mutex
	balances map[string]int64
	matches  []MatchOutcome
}

func newFakeBank(balances map[string]int64) *fakeBank {
	return &fakeBank{balances: balances}
}

func (b *fakeBank) Balance(_ context.Context, userID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[userID], nil
}

func (b *fakeBank) DebitStake(_ context.Context, userID, _ string, amount int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[userID] -= amount
	return b.balances[userID], nil
}

func (b *fakeBank) CreditWinnings(_ context.Context, userID, _ string, amount int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[userID] += amount
	return b.balances[userID], nil
}

func (b *fakeBank) RecordMatch(_ context.Context, out MatchOutcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matches = append(b.matches, out)
	return nil
}

func shrinkTimers(t *testing.T) {
	t.Helper()
	oldBudget, oldWarn, oldJoin, oldGrace := turnBudget, turnWarnAfter, botJoinWait, disconnectGrace
	oldMin, oldMax, oldCool := botMoveDelayMin, botMoveDelayMax, botTurnCooldown
	botMoveDelayMin, botMoveDelayMax, botTurnCooldown = 0, 0, 0
	t.Cleanup(func() {
		turnBudget, turnWarnAfter, botJoinWait, disconnectGrace = oldBudget, oldWarn, oldJoin, oldGrace
		botMoveDelayMin, botMoveDelayMax, botTurnCooldown = oldMin, oldMax, oldCool
	})
}

func mv(t *testing.T, cell int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]int{"cell": cell})
	require.NoError(t, err)
	return raw
}

func alice() game.PlayerRef { return game.PlayerRef{ID: "u_alice", Name: "alice"} }
func bob() game.PlayerRef   { return game.PlayerRef{ID: "u_bob", Name: "bob"} }

func startTwoPlayerRoom(t *testing.T, r *Registry) (*Session, *fakeConn, *fakeConn) {
	t.Helper()
	ctx := context.Background()
	ca, cb := &fakeConn{}, &fakeConn{}
	s, err := r.Create(ctx, game.TypeTicTacToe, 10, alice(), ca)
	require.NoError(t, err)
	_, err = r.Join(ctx, s.ID, bob(), cb)
	require.NoError(t, err)
	require.Equal(t, StatusActive, s.Status)
	return s, ca, cb
}

func TestBotFillsLoneSeatAfterWait(t *testing.T) {
	shrinkTimers(t)
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100}), nil)
	conn := &fakeConn{}
	s, err := r.Create(context.Background(), game.TypeTicTacToe, 10, alice(), conn)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, s.Status)

	r.Sweep(s.botJoinAt.Add(-time.Second))
	require.Equal(t, StatusOpen, s.Status)
	require.Len(t, s.Slots, 1)

	r.Sweep(s.botJoinAt.Add(time.Millisecond))
	require.Equal(t, StatusActive, s.Status)
	require.Len(t, s.Slots, 2)
	require.True(t, s.Slots[1].Player.Bot)
	require.True(t, conn.has("gameStart"))
	// Creator moves first, so the human's turn clock is running.
	require.True(t, conn.has("moveTimerStart"))
	require.False(t, s.turnDeadline.IsZero())
}

func TestJoinCancelsBotFill(t *testing.T) {
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100}), nil)
	s, _, _ := startTwoPlayerRoom(t, r)
	require.True(t, s.botJoinAt.IsZero())

	// A stale sweep past the original fill deadline must be inert.
	r.Sweep(time.Now().Add(botJoinWait + time.Hour))
	require.Len(t, s.Slots, 2)
}

func TestTurnTimeoutForfeitsAndSettles(t *testing.T) {
	bank := newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100})
	r := NewRegistry(bank, nil)
	s, ca, cb := startTwoPlayerRoom(t, r)

	deadline := s.turnDeadline
	r.Sweep(deadline.Add(time.Millisecond))

	require.Equal(t, StatusFinished, s.Status)
	require.True(t, ca.has("gameTimeout"))
	require.True(t, cb.has("gameTimeout"))
	require.True(t, cb.has("gameEnd"))
	require.Equal(t, int64(90), bank.balances["u_alice"])
	require.Equal(t, int64(110), bank.balances["u_bob"])
	require.Len(t, bank.matches, 2)

	_, ok := r.get(s.ID)
	require.False(t, ok)
}

func TestTimerWarningFiresOnce(t *testing.T) {
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100}), nil)
	s, ca, _ := startTwoPlayerRoom(t, r)

	warnAt := s.turnWarnAt
	r.Sweep(warnAt.Add(time.Millisecond))
	r.Sweep(warnAt.Add(2 * time.Millisecond))
	require.Equal(t, 1, ca.count("moveTimerWarning"))
	require.Equal(t, StatusActive, s.Status)
}

func TestAcceptedMoveCancelsClock(t *testing.T) {
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100}), nil)
	s, _, cb := startTwoPlayerRoom(t, r)

	staleDeadline := s.turnDeadline
	require.NoError(t, r.SubmitMove(context.Background(), s.ID, "u_alice", mv(t, 4)))

	// The old deadline belongs to a cancelled clock; only the new
	// holder's clock is live.
	require.Equal(t, "u_bob", s.turnHolder)
	r.Sweep(staleDeadline)
	require.Equal(t, StatusActive, s.Status)
	require.True(t, cb.has("gameUpdate"))
}

func TestMoveRejectionsLeaveSessionUntouched(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100}), nil)
	s, _, _ := startTwoPlayerRoom(t, r)

	require.ErrorIs(t, r.SubmitMove(ctx, s.ID, "u_bob", mv(t, 0)), game.ErrNotYourTurn)
	require.ErrorIs(t, r.SubmitMove(ctx, s.ID, "u_stranger", mv(t, 0)), ErrNotInRoom)
	require.ErrorIs(t, r.SubmitMove(ctx, "nope", "u_alice", mv(t, 0)), ErrRoomNotFound)
	require.Equal(t, "u_alice", s.State.Base().Turn)
}

func TestMoveBeforeOpponentRejected(t *testing.T) {
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100}), nil)
	s, err := r.Create(context.Background(), game.TypeTicTacToe, 10, alice(), &fakeConn{})
	require.NoError(t, err)
	require.ErrorIs(t, r.SubmitMove(context.Background(), s.ID, "u_alice", mv(t, 0)), game.ErrWrongPlayers)
}

func TestReconnectWithinGraceCancelsForfeit(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100}), nil)
	s, _, cb := startTwoPlayerRoom(t, r)

	moveDeadline := s.turnDeadline
	r.Disconnect(ctx, "u_alice")
	require.False(t, s.graceAt.IsZero())
	require.True(t, cb.has("opponentDisconnected"))
	graceDeadline := s.graceAt

	// The absent player's move budget is suspended: only the grace
	// window may forfeit them.
	require.True(t, s.turnDeadline.IsZero())
	r.Sweep(moveDeadline.Add(time.Millisecond))
	require.Equal(t, StatusActive, s.Status)

	// Stretch the budget so the re-armed clock stays clear of the
	// stale-grace sweep below.
	oldBudget := turnBudget
	turnBudget = time.Hour
	t.Cleanup(func() { turnBudget = oldBudget })

	fresh := &fakeConn{}
	got := r.Reconnect(ctx, "u_alice", fresh)
	require.Same(t, s, got)
	require.True(t, s.graceAt.IsZero())
	require.True(t, fresh.has("gameUpdate"))
	require.True(t, cb.has("playerReconnected"))

	// A fresh budget is armed for the returning player on move.
	require.Equal(t, "u_alice", s.turnHolder)
	require.False(t, s.turnDeadline.IsZero())
	require.True(t, fresh.has("moveTimerStart"))

	// The cancelled grace deadline must never fire.
	r.Sweep(graceDeadline.Add(time.Millisecond))
	require.Equal(t, StatusActive, s.Status)
	require.False(t, cb.has("gameEnd"))
}

func TestGraceExpiryForfeitsAbsentPlayer(t *testing.T) {
	ctx := context.Background()
	bank := newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100})
	r := NewRegistry(bank, nil)
	s, _, cb := startTwoPlayerRoom(t, r)

	r.Disconnect(ctx, "u_alice")
	r.Sweep(s.graceAt.Add(time.Millisecond))

	require.Equal(t, StatusFinished, s.Status)
	require.True(t, cb.has("gameEnd"))
	require.Equal(t, int64(90), bank.balances["u_alice"])
	require.Equal(t, int64(110), bank.balances["u_bob"])
}

func TestDisconnectedLoneCreatorDiscardsRoom(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100}), nil)
	s, err := r.Create(ctx, game.TypeTicTacToe, 10, alice(), &fakeConn{})
	require.NoError(t, err)

	r.Disconnect(ctx, "u_alice")
	_, ok := r.get(s.ID)
	require.False(t, ok)
}

func TestLeaveForfeitsActiveMatch(t *testing.T) {
	ctx := context.Background()
	bank := newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100})
	r := NewRegistry(bank, nil)
	s, _, cb := startTwoPlayerRoom(t, r)

	require.NoError(t, r.Leave(ctx, s.ID, "u_alice"))
	require.Equal(t, StatusFinished, s.Status)
	require.True(t, cb.has("gameEnd"))
	require.Equal(t, int64(110), bank.balances["u_bob"])
}

func TestInsufficientFundsRejected(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_poor": 3}), nil)
	s, err := r.Create(ctx, game.TypeTicTacToe, 10, alice(), &fakeConn{})
	require.NoError(t, err)
	_, err = r.Join(ctx, s.ID, game.PlayerRef{ID: "u_poor", Name: "poor"}, &fakeConn{})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = r.Create(ctx, game.TypeTicTacToe, 10, game.PlayerRef{ID: "u_poor", Name: "poor"}, &fakeConn{})
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestPrivateInviteSingleUseAndHiddenFromLobby(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100, "u_carol": 100}), nil)
	s, inv, err := r.CreatePrivate(ctx, game.TypeTicTacToe, 10, alice(), &fakeConn{})
	require.NoError(t, err)
	require.Empty(t, r.List(game.TypeTicTacToe))
	// Private rooms never bot-fill.
	require.True(t, s.botJoinAt.IsZero())

	_, err = r.JoinPrivate(ctx, inv.Token, bob(), &fakeConn{})
	require.NoError(t, err)
	require.Equal(t, StatusActive, s.Status)

	_, err = r.JoinPrivate(ctx, inv.Token, game.PlayerRef{ID: "u_carol", Name: "carol"}, &fakeConn{})
	require.ErrorIs(t, err, ErrInviteUsed)

	_, err = r.JoinPrivate(ctx, "bogus-token", game.PlayerRef{ID: "u_carol", Name: "carol"}, &fakeConn{})
	require.ErrorIs(t, err, ErrInviteInvalid)
}

func TestExpiredInviteRejected(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100}), nil)
	_, inv, err := r.CreatePrivate(ctx, game.TypeTicTacToe, 10, alice(), &fakeConn{})
	require.NoError(t, err)

	inv.ExpiresAt = time.Now().Add(-time.Minute)
	_, err = r.JoinPrivate(ctx, inv.Token, bob(), &fakeConn{})
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestDaemonSeededRoomArmsBotFillOnFirstJoin(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100}), nil)
	s, err := r.CreateEmpty(game.TypeDice, 10)
	require.NoError(t, err)
	require.True(t, s.botJoinAt.IsZero())

	_, err = r.Join(ctx, s.ID, alice(), &fakeConn{})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, s.Status)
	require.False(t, s.botJoinAt.IsZero())
}

func TestBotPlaysGameToCompletion(t *testing.T) {
	shrinkTimers(t)
	game.SeedRand(11)
	bank := newFakeBank(map[string]int64{"u_alice": 100})
	r := NewRegistry(bank, nil)
	conn := &fakeConn{}
	s, err := r.Create(context.Background(), game.TypeTicTacToe, 10, alice(), conn)
	require.NoError(t, err)

	r.Sweep(s.botJoinAt.Add(time.Millisecond))
	require.Equal(t, StatusActive, s.Status)

	// Alternate human moves with sweeps driving the paced bot.
	cells := []int{0, 1, 2, 5, 7, 8}
	i := 0
	for step := 0; step < 40 && s.Status == StatusActive; step++ {
		if s.State.Base().Turn == "u_alice" {
			for ; i < len(cells); i++ {
				if err := r.SubmitMove(context.Background(), s.ID, "u_alice", mv(t, cells[i])); err == nil {
					i++
					break
				}
			}
		}
		r.Sweep(time.Now().Add(time.Second))
	}
	require.Equal(t, StatusFinished, s.Status)
	require.Len(t, bank.matches, 1)
	require.Equal(t, "u_alice", bank.matches[0].UserID)
}

func TestActiveSessionHoldsAtMostOneActorTimer(t *testing.T) {
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100}), nil)
	s, _, _ := startTwoPlayerRoom(t, r)

	check := func() {
		t.Helper()
		live := 0
		if !s.turnDeadline.IsZero() {
			live++
		}
		if !s.botMoveAt.IsZero() {
			live++
		}
		if !s.botJoinAt.IsZero() {
			live++
		}
		require.LessOrEqual(t, live, 1)
	}
	check()
	require.NoError(t, r.SubmitMove(context.Background(), s.ID, "u_alice", mv(t, 0)))
	check()
	require.NoError(t, r.SubmitMove(context.Background(), s.ID, "u_bob", mv(t, 4)))
	check()
}

func TestCreateMatchInvokesFinishHookInsteadOfWallet(t *testing.T) {
	bank := newFakeBank(map[string]int64{"u_alice": 100, "u_bob": 100})
	r := NewRegistry(bank, nil)

	var got Outcome
	ca, cb := &fakeConn{}, &fakeConn{}
	s, err := r.CreateMatch(game.TypeTicTacToe, [2]game.PlayerRef{alice(), bob()},
		map[string]Conn{"u_alice": ca, "u_bob": cb},
		func(o Outcome) { got = o })
	require.NoError(t, err)
	require.Equal(t, StatusActive, s.Status)
	require.True(t, ca.has("tournamentGameStart"))
	require.False(t, ca.has("gameStart"))

	require.NoError(t, r.Leave(context.Background(), s.ID, "u_bob"))
	require.Equal(t, "u_alice", got.WinnerID)
	require.Equal(t, "opponent_left", got.Reason)
	require.True(t, ca.has("tournamentGameEnd"))
	require.Equal(t, int64(100), bank.balances["u_alice"])
	require.Empty(t, bank.matches)
}

// marathonLogic is a stub engine whose single turn takes a fixed number
// of consecutive actions, like a long domino draw run.
type marathonState struct {
	game.Core
	acted int
	total int
}

func (s *marathonState) Base() *game.Core { return &s.Core }
func (s *marathonState) View(string) any  { return map[string]any{"acted": s.acted} }

type marathonLogic struct{ total int }

func (marathonLogic) Type() game.Type     { return game.TypeDomino }
func (marathonLogic) OffTurnClaims() bool { return false }

func (l marathonLogic) NewGame(players []game.PlayerRef) (game.State, error) {
	c := game.Core{Players: append([]game.PlayerRef(nil), players...)}
	if len(players) == 2 {
		c.Turn = players[0].ID
	}
	return &marathonState{Core: c, total: l.total}, nil
}

func (marathonLogic) ApplyMove(st game.State, actorID string, _ json.RawMessage) (game.Verdict, error) {
	s := st.(*marathonState)
	if s.Finished || s.Turn != actorID {
		return game.Verdict{}, game.ErrNotYourTurn
	}
	s.acted++
	if s.acted >= s.total {
		s.Finished = true
		s.WinnerID = actorID
		s.Turn = ""
	}
	return game.Verdict{Advance: game.SameActor}, nil
}

func (marathonLogic) Outcome(st game.State) game.Result {
	s := st.(*marathonState)
	return game.Result{Over: s.Finished, WinnerID: s.WinnerID}
}

func (marathonLogic) BotMove(st game.State, botID string) (json.RawMessage, bool) {
	s := st.(*marathonState)
	if s.Finished || s.Turn != botID {
		return nil, false
	}
	return json.RawMessage(`{}`), true
}

func TestBotTurnBeyondActionLimitResumesAfterCooldown(t *testing.T) {
	shrinkTimers(t)
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100}), nil)

	bot := game.PlayerRef{ID: "bot_long", Name: "Rigel", Bot: true}
	logic := marathonLogic{total: 14}
	st, err := logic.NewGame([]game.PlayerRef{bot, alice()})
	require.NoError(t, err)
	conn := &fakeConn{}
	s := &Session{
		ID:       "room_marathon",
		GameType: game.TypeDomino,
		Status:   StatusActive,
		Slots: []*Slot{
			{Player: bot},
			{Player: alice(), Conn: conn, Connected: true},
		},
		State: st,
		logic: logic,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	s.mu.Lock()
	s.armTurnClock(time.Now(), bot.ID)
	s.mu.Unlock()

	// One bot action per sweep. Hitting the per-burst bound must leave
	// a pending resume deadline, never a timerless live session.
	for i := 0; i < botTurnLimit; i++ {
		r.Sweep(time.Now().Add(time.Second))
	}
	require.Equal(t, StatusActive, s.Status)
	require.False(t, s.botMoveAt.IsZero())

	for i := 0; i < 10 && s.Status == StatusActive; i++ {
		r.Sweep(time.Now().Add(time.Second))
	}
	require.Equal(t, StatusFinished, s.Status)
	require.Equal(t, 14, st.(*marathonState).acted)
}

func TestConcurrentJoinDisconnectAndLookup(t *testing.T) {
	ctx := context.Background()
	balances := map[string]int64{"u_alice": 100}
	users := make([]game.PlayerRef, 8)
	for i := range users {
		id := string(rune('a'+i)) + "_runner"
		users[i] = game.PlayerRef{ID: id, Name: id}
		balances[id] = 100
	}
	r := NewRegistry(newFakeBank(balances), nil)
	s, err := r.Create(ctx, game.TypeTicTacToe, 10, alice(), &fakeConn{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u game.PlayerRef) {
			defer wg.Done()
			_, _ = r.Join(ctx, s.ID, u, &fakeConn{})
			r.Disconnect(ctx, u.ID)
			_ = r.findByUser(u.ID)
		}(u)
	}
	wg.Wait()
	require.LessOrEqual(t, len(s.Slots), 2)
}

func TestCreateWhileAlreadyInRoom(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newFakeBank(map[string]int64{"u_alice": 100}), nil)
	_, err := r.Create(ctx, game.TypeTicTacToe, 10, alice(), &fakeConn{})
	require.NoError(t, err)
	_, err = r.Create(ctx, game.TypeDice, 10, alice(), &fakeConn{})
	require.ErrorIs(t, err, ErrAlreadyInRoom)
}
