package tournament

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"matchpoint/internal/game"
	"matchpoint/internal/room"
	"matchpoint/internal/store"
)

// Wallet settles entry fees, refunds and prizes. *ledger.Ledger
// satisfies it; tests use fakes.
type Wallet interface {
	Balance(ctx context.Context, userID string) (int64, error)
	DebitEntryFee(ctx context.Context, userID, tournamentID string, amount int64) (int64, error)
	RefundEntryFee(ctx context.Context, userID, tournamentID string, amount int64) (int64, error)
	CreditPrize(ctx context.Context, userID, tournamentID string, amount int64) (int64, error)
}

// Archive persists tournament lifecycle rows. *store.Store satisfies it.
type Archive interface {
	InsertTournament(ctx context.Context, rec store.TournamentRecord) error
	UpdateTournamentStatus(ctx context.Context, id, status string, prizePool int64) error
	FinishTournament(ctx context.Context, id, winnerID string) error
}

// Rooms instantiates and force-resolves bracket match rooms.
// *room.Registry satisfies it.
type Rooms interface {
	CreateMatch(gt game.Type, players [2]game.PlayerRef, conns map[string]room.Conn, onFinish func(room.Outcome)) (*room.Session, error)
	ForceResult(ctx context.Context, roomID, winnerID, reason string) error
}

// Notifier delivers tournament events to connected players and the
// tournament lobby, and supplies connections for match rooms.
type Notifier interface {
	Notify(userID, event string, data any)
	Broadcast(event string, data any)
	ConnFor(userID string) room.Conn
}

// Orchestrator owns every live tournament. Its mutex is the
// single-writer gate for roster and bracket mutations; match results
// re-enter through room finish hooks.
type Orchestrator struct {
	mu          sync.Mutex
	tournaments map[string]*Tournament

	rooms    Rooms
	wallet   Wallet
	archive  Archive
	notifier Notifier
}

func NewOrchestrator(rooms Rooms, wallet Wallet, archive Archive, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		tournaments: make(map[string]*Tournament),
		rooms:       rooms,
		wallet:      wallet,
		archive:     archive,
		notifier:    notifier,
	}
}

// Start runs the countdown/acceleration sweep until ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context, tick time.Duration) {
	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				o.Sweep(now)
			}
		}
	}()
}

func validMaxPlayers(n int) bool {
	switch n {
	case 4, 8, 16, 32:
		return true
	}
	return false
}

// Create validates and registers a WAITING tournament.
func (o *Orchestrator) Create(ctx context.Context, name string, gt game.Type, entryFee int64, maxPlayers int) (Snapshot, error) {
	if !validMaxPlayers(maxPlayers) {
		return Snapshot{}, ErrBadMaxPlayers
	}
	if _, err := game.LogicFor(gt); err != nil {
		return Snapshot{}, err
	}
	t := &Tournament{
		ID:         store.NewID(),
		Name:       name,
		GameType:   gt,
		Status:     StatusWaiting,
		EntryFee:   entryFee,
		MaxPlayers: maxPlayers,
		CreatedAt:  time.Now(),
	}
	if err := o.archive.InsertTournament(ctx, store.TournamentRecord{
		ID:         t.ID,
		GameType:   string(gt),
		Status:     string(StatusWaiting),
		EntryFee:   entryFee,
		MaxPlayers: maxPlayers,
	}); err != nil {
		return Snapshot{}, fmt.Errorf("persist tournament: %w", err)
	}

	o.mu.Lock()
	o.tournaments[t.ID] = t
	snap := t.snapshot()
	o.mu.Unlock()

	o.notifier.Broadcast("tournamentCreated", snap)
	return snap, nil
}

// Register seats a player. The first registration arms the countdown;
// an exactly-full roster starts the bracket immediately.
func (o *Orchestrator) Register(ctx context.Context, tournamentID string, user game.PlayerRef) (Snapshot, error) {
	o.mu.Lock()
	t, ok := o.tournaments[tournamentID]
	if !ok {
		o.mu.Unlock()
		return Snapshot{}, ErrNotFound
	}
	if t.Status != StatusWaiting {
		o.mu.Unlock()
		return Snapshot{}, ErrRegistrationClosed
	}
	if t.registered(user.ID) {
		o.mu.Unlock()
		return Snapshot{}, ErrAlreadyRegistered
	}
	for _, other := range o.tournaments {
		if other != t && other.Status == StatusWaiting && other.registered(user.ID) {
			o.mu.Unlock()
			return Snapshot{}, ErrRegisteredElsewhere
		}
	}
	if len(t.Roster) >= t.MaxPlayers {
		o.mu.Unlock()
		return Snapshot{}, ErrFull
	}
	o.mu.Unlock()

	if t.EntryFee > 0 {
		bal, err := o.wallet.Balance(ctx, user.ID)
		if err != nil {
			return Snapshot{}, err
		}
		if bal < t.EntryFee {
			return Snapshot{}, ErrInsufficientFunds
		}
		if _, err := o.wallet.DebitEntryFee(ctx, user.ID, t.ID, t.EntryFee); err != nil {
			return Snapshot{}, err
		}
	}

	o.mu.Lock()
	elsewhere := false
	for _, other := range o.tournaments {
		if other != t && other.Status == StatusWaiting && other.registered(user.ID) {
			elsewhere = true
			break
		}
	}
	if t.Status != StatusWaiting || t.registered(user.ID) || elsewhere || len(t.Roster) >= t.MaxPlayers {
		o.mu.Unlock()
		if t.EntryFee > 0 {
			if _, err := o.wallet.RefundEntryFee(ctx, user.ID, t.ID, t.EntryFee); err != nil {
				log.Error().Err(err).Str("tournament_id", t.ID).Str("user_id", user.ID).Msg("late registration refund failed")
			}
		}
		return Snapshot{}, ErrRegistrationClosed
	}
	first := len(t.Roster) == 0
	t.Roster = append(t.Roster, user)
	t.PrizePool = t.EntryFee * int64(len(t.Roster))
	if first {
		t.countdownAt = time.Now().Add(registrationCountdown)
	}
	full := len(t.Roster) == t.MaxPlayers
	if full {
		t.countdownAt = time.Time{}
		o.startLocked(ctx, t)
	}
	snap := t.snapshot()
	o.mu.Unlock()

	o.persistStatus(ctx, t.ID, snap.Status, snap.PrizePool)
	o.notifier.Broadcast("tournamentUpdated", snap)
	if full {
		o.notifier.Broadcast("tournamentStarted", snap)
	}
	return snap, nil
}

// Unregister refunds a WAITING registration. A roster left empty or
// all-bots is cleared so no unattended tournament runs.
func (o *Orchestrator) Unregister(ctx context.Context, tournamentID, userID string) (Snapshot, error) {
	o.mu.Lock()
	t, ok := o.tournaments[tournamentID]
	if !ok {
		o.mu.Unlock()
		return Snapshot{}, ErrNotFound
	}
	if t.Status != StatusWaiting {
		o.mu.Unlock()
		return Snapshot{}, ErrRegistrationClosed
	}
	idx := -1
	for i, p := range t.Roster {
		if p.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		o.mu.Unlock()
		return Snapshot{}, ErrNotRegistered
	}
	t.Roster = append(t.Roster[:idx], t.Roster[idx+1:]...)
	if len(t.humans()) == 0 {
		t.Roster = nil
		t.countdownAt = time.Time{}
	}
	t.PrizePool = t.EntryFee * int64(len(t.Roster))
	snap := t.snapshot()
	fee := t.EntryFee
	o.mu.Unlock()

	if fee > 0 {
		if _, err := o.wallet.RefundEntryFee(ctx, userID, t.ID, fee); err != nil {
			log.Error().Err(err).Str("tournament_id", t.ID).Str("user_id", userID).Msg("entry fee refund failed")
		}
	}
	o.persistStatus(ctx, t.ID, snap.Status, snap.PrizePool)
	o.notifier.Broadcast("tournamentUpdated", snap)
	return snap, nil
}

// Get returns a snapshot by id.
func (o *Orchestrator) Get(tournamentID string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tournaments[tournamentID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return t.snapshot(), nil
}

// List returns every live tournament snapshot.
func (o *Orchestrator) List() []Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Snapshot, 0, len(o.tournaments))
	for _, t := range o.tournaments {
		out = append(out, t.snapshot())
	}
	return out
}

// RoomForMatch resolves the live room backing a bracket match.
func (o *Orchestrator) RoomForMatch(matchID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range o.tournaments {
		if m := t.findMatch(matchID); m != nil && m.roomID != "" && m.Status == MatchActive {
			return m.roomID, true
		}
	}
	return "", false
}

// Sweep fires due registration countdowns and accelerates stalled
// bot-vs-bot matches. Exported so tests can drive time by hand.
func (o *Orchestrator) Sweep(now time.Time) {
	type forced struct {
		roomID   string
		winnerID string
	}
	var started []Snapshot
	var accelerate []forced

	o.mu.Lock()
	for _, t := range o.tournaments {
		if t.Status == StatusWaiting && !t.countdownAt.IsZero() && !now.Before(t.countdownAt) {
			t.countdownAt = time.Time{}
			if len(t.humans()) == 0 {
				t.Roster = nil
				continue
			}
			o.fillWithBots(t)
			o.startLocked(context.Background(), t)
			started = append(started, t.snapshot())
		}
		if t.Status != StatusActive {
			continue
		}
		for _, round := range t.Rounds {
			for _, m := range round {
				if m.Status == MatchActive && m.bothBots() && now.Sub(m.startedAt) >= botAccelerationAfter {
					w := m.Players[game.RandInt64(2)]
					accelerate = append(accelerate, forced{roomID: m.roomID, winnerID: w.ID})
				}
			}
		}
	}
	o.mu.Unlock()

	for _, snap := range started {
		o.persistStatus(context.Background(), snap.ID, snap.Status, snap.PrizePool)
		o.notifier.Broadcast("tournamentStarted", snap)
	}
	for _, f := range accelerate {
		if err := o.rooms.ForceResult(context.Background(), f.roomID, f.winnerID, "bot_accelerated"); err != nil {
			log.Error().Err(err).Str("room_id", f.roomID).Msg("bot acceleration failed")
		}
	}
}

// fillWithBots tops the roster up to MaxPlayers with uniquely named
// synthetic players. Callers hold o.mu.
func (o *Orchestrator) fillWithBots(t *Tournament) {
	for i := len(t.Roster); i < t.MaxPlayers; i++ {
		t.Roster = append(t.Roster, game.PlayerRef{
			ID:   "bot_" + store.NewID(),
			Name: fmt.Sprintf("Bot %d", i+1),
			Bot:  true,
		})
	}
	t.PrizePool = t.EntryFee * int64(len(t.Roster))
}

// startLocked shuffles the roster, builds the bracket and instantiates
// round 1. Callers hold o.mu.
func (o *Orchestrator) startLocked(ctx context.Context, t *Tournament) {
	t.Status = StatusActive
	roster := append([]game.PlayerRef(nil), t.Roster...)
	game.Shuffle(len(roster), func(i, j int) { roster[i], roster[j] = roster[j], roster[i] })

	matches := len(roster) / 2
	for round := 0; matches >= 1; round++ {
		row := make([]*Match, matches)
		for i := range row {
			m := &Match{ID: store.NewID(), Round: round, Index: i, Status: MatchWaiting}
			if round == 0 {
				p0, p1 := roster[2*i], roster[2*i+1]
				m.Players[0], m.Players[1] = &p0, &p1
			}
			row[i] = m
		}
		t.Rounds = append(t.Rounds, row)
		matches /= 2
	}
	for _, m := range t.Rounds[0] {
		o.openMatchLocked(t, m)
	}
}

// openMatchLocked backs a bracket match with a live room. Callers hold o.mu.
func (o *Orchestrator) openMatchLocked(t *Tournament, m *Match) {
	conns := map[string]room.Conn{}
	for _, p := range m.Players {
		if !p.Bot {
			if c := o.notifier.ConnFor(p.ID); c != nil {
				conns[p.ID] = c
			}
		}
	}
	tid, mid := t.ID, m.ID
	s, err := o.rooms.CreateMatch(t.GameType, [2]game.PlayerRef{*m.Players[0], *m.Players[1]}, conns,
		func(out room.Outcome) { o.matchSettled(tid, mid, out) })
	if err != nil {
		log.Error().Err(err).Str("tournament_id", t.ID).Str("match_id", m.ID).Msg("bracket match room creation failed")
		return
	}
	m.Status = MatchActive
	m.roomID = s.ID
	m.startedAt = time.Now()
	for _, p := range m.Players {
		if !p.Bot {
			o.notifier.Notify(p.ID, "tournamentMatchReady", map[string]any{
				"tournamentId": t.ID,
				"matchId":      m.ID,
				"roomId":       s.ID,
				"round":        m.Round + 1,
			})
		}
	}
}

// matchSettled is the room finish hook: record the result, replay
// draws, advance the bracket.
func (o *Orchestrator) matchSettled(tournamentID, matchID string, out room.Outcome) {
	ctx := context.Background()

	o.mu.Lock()
	t, ok := o.tournaments[tournamentID]
	if !ok {
		o.mu.Unlock()
		return
	}
	m := t.findMatch(matchID)
	if m == nil || m.Status == MatchFinished {
		o.mu.Unlock()
		return
	}

	if out.Draw {
		m.Replays++
		if m.Replays <= replayCap {
			players := m.Players
			replays := m.Replays
			o.openMatchLocked(t, m)
			snap := t.snapshot()
			o.mu.Unlock()
			for _, p := range players {
				if p != nil && !p.Bot {
					o.notifier.Notify(p.ID, "tournamentReplay", map[string]any{
						"tournamentId": tournamentID,
						"matchId":      matchID,
						"replay":       replays,
					})
					o.notifier.Notify(p.ID, "tournamentMatchResult", map[string]any{
						"tournamentId": tournamentID,
						"matchId":      matchID,
						"outcome":      "DRAW",
					})
				}
			}
			o.notifier.Broadcast("tournamentUpdated", snap)
			return
		}
		// Replay budget exhausted: force a winner.
		out.WinnerID = m.Players[game.RandInt64(2)].ID
		out.Draw = false
	}

	m.WinnerID = out.WinnerID
	m.Status = MatchFinished
	notifyResults := make([]game.PlayerRef, 0, 2)
	for _, p := range m.Players {
		if p != nil && !p.Bot {
			notifyResults = append(notifyResults, *p)
		}
	}

	finishedRound := t.Rounds[m.Round]
	complete := true
	for _, rm := range finishedRound {
		if rm.Status != MatchFinished {
			complete = false
			break
		}
	}

	var champion *game.PlayerRef
	if complete {
		if m.Round+1 < len(t.Rounds) {
			o.populateNextRoundLocked(t, m.Round)
		} else {
			champion = m.winner()
			t.Status = StatusFinished
			t.WinnerID = m.WinnerID
		}
	}
	snap := t.snapshot()
	prize := t.PrizePool
	o.mu.Unlock()

	for _, p := range notifyResults {
		outcome := "ELIMINATED"
		if p.ID == out.WinnerID {
			outcome = "ADVANCED"
		}
		o.notifier.Notify(p.ID, "tournamentMatchResult", map[string]any{
			"tournamentId": tournamentID,
			"matchId":      matchID,
			"outcome":      outcome,
			"winnerId":     out.WinnerID,
		})
	}
	o.notifier.Broadcast("tournamentUpdated", snap)

	if champion != nil {
		if err := o.archive.FinishTournament(ctx, tournamentID, champion.ID); err != nil {
			log.Error().Err(err).Str("tournament_id", tournamentID).Msg("tournament finish persist failed")
		}
		if !champion.Bot && prize > 0 {
			if _, err := o.wallet.CreditPrize(ctx, champion.ID, tournamentID, prize); err != nil {
				log.Error().Err(err).Str("tournament_id", tournamentID).Str("user_id", champion.ID).Msg("prize payout failed")
			}
		}
		o.notifier.Broadcast("tournamentFinished", snap)
		o.mu.Lock()
		delete(o.tournaments, tournamentID)
		o.mu.Unlock()
	}
}

// populateNextRoundLocked fills round r+1 pairwise from round r's
// winners and opens the new rooms. Callers hold o.mu.
func (o *Orchestrator) populateNextRoundLocked(t *Tournament, r int) {
	cur, next := t.Rounds[r], t.Rounds[r+1]
	for i, m := range next {
		if m.Players[0] != nil || m.Players[1] != nil {
			// Duplicate-advance guard: a round is populated exactly once.
			log.Warn().Str("tournament_id", t.ID).Int("round", r+2).Msg("next round already populated, skipping")
			return
		}
		m.Players[0] = cur[2*i].winner()
		m.Players[1] = cur[2*i+1].winner()
	}
	for _, m := range next {
		o.openMatchLocked(t, m)
	}
}

func (o *Orchestrator) persistStatus(ctx context.Context, id string, status Status, prizePool int64) {
	if err := o.archive.UpdateTournamentStatus(ctx, id, string(status), prizePool); err != nil {
		log.Error().Err(err).Str("tournament_id", id).Msg("tournament status persist failed")
	}
}
