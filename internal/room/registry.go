package room

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"matchpoint/internal/game"
	"matchpoint/internal/store"
)

// Invite is a single-use private-room token.
type Invite struct {
	Token     string
	RoomID    string
	CreatedBy string
	ExpiresAt time.Time
	Used      bool
}

// Registry owns every live session. The registry mutex guards the maps
// only; each session serialises its own mutations, and the janitor
// sweep fires deadlines through the same per-session lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	invites  map[string]*Invite

	bank      Bank
	announcer Announcer
}

func NewRegistry(bank Bank, announcer Announcer) *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		invites:   make(map[string]*Invite),
		bank:      bank,
		announcer: announcer,
	}
}

func (r *Registry) get(roomID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

func (r *Registry) remove(roomID string) {
	r.mu.Lock()
	delete(r.sessions, roomID)
	for tok, inv := range r.invites {
		if inv.RoomID == roomID {
			delete(r.invites, tok)
		}
	}
	r.mu.Unlock()
}

// findByUser returns the first unfinished session seating userID.
// Slots are session state, so each candidate is checked under its own
// lock (r.mu before s.mu, same order as List).
func (r *Registry) findByUser(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.mu.Lock()
		seated := s.slot(userID) != nil
		s.mu.Unlock()
		if seated {
			return s
		}
	}
	return nil
}

// Create opens a public room with the creator seated. The creator must
// be able to cover the stake; the debit itself happens at settlement.
func (r *Registry) Create(ctx context.Context, gt game.Type, stake int64, creator game.PlayerRef, conn Conn) (*Session, error) {
	logic, err := game.LogicFor(gt)
	if err != nil {
		return nil, err
	}
	if err := r.checkFunds(ctx, creator, stake); err != nil {
		return nil, err
	}
	if r.findByUser(creator.ID) != nil {
		return nil, ErrAlreadyInRoom
	}
	st, err := logic.NewGame([]game.PlayerRef{creator})
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:       store.NewID(),
		GameType: gt,
		Stake:    stake,
		Status:   StatusOpen,
		Slots:    []*Slot{{Player: creator, Conn: conn, Connected: conn != nil}},
		State:    st,
		logic:    logic,
	}
	s.botJoinAt = time.Now().Add(botJoinWait)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	s.mu.Lock()
	s.sendTo(creator.ID, "roomCreated", s.viewFor(creator.ID))
	s.mu.Unlock()
	r.announce(gt)
	return s, nil
}

// CreatePrivate opens an invite-only room. Private rooms never appear
// in lobby listings and never bot-fill.
func (r *Registry) CreatePrivate(ctx context.Context, gt game.Type, stake int64, creator game.PlayerRef, conn Conn) (*Session, *Invite, error) {
	logic, err := game.LogicFor(gt)
	if err != nil {
		return nil, nil, err
	}
	if err := r.checkFunds(ctx, creator, stake); err != nil {
		return nil, nil, err
	}
	if r.findByUser(creator.ID) != nil {
		return nil, nil, ErrAlreadyInRoom
	}
	st, err := logic.NewGame([]game.PlayerRef{creator})
	if err != nil {
		return nil, nil, err
	}
	s := &Session{
		ID:       store.NewID(),
		GameType: gt,
		Stake:    stake,
		Private:  true,
		Status:   StatusOpen,
		Slots:    []*Slot{{Player: creator, Conn: conn, Connected: conn != nil}},
		State:    st,
		logic:    logic,
	}
	inv := &Invite{
		Token:     uuid.NewString(),
		RoomID:    s.ID,
		CreatedBy: creator.ID,
		ExpiresAt: time.Now().Add(inviteTTL),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.invites[inv.Token] = inv
	r.mu.Unlock()

	s.mu.Lock()
	s.sendTo(creator.ID, "roomCreated", s.viewFor(creator.ID))
	s.mu.Unlock()
	return s, inv, nil
}

// CreateEmpty seeds a seatless public room, used by the lobby daemon to
// keep the listings stocked. The bot-fill timer only starts once a
// human sits down.
func (r *Registry) CreateEmpty(gt game.Type, stake int64) (*Session, error) {
	logic, err := game.LogicFor(gt)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:       store.NewID(),
		GameType: gt,
		Stake:    stake,
		Status:   StatusOpen,
		logic:    logic,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.announce(gt)
	return s, nil
}

// Join seats a second (or, for daemon-seeded rooms, first) player.
func (r *Registry) Join(ctx context.Context, roomID string, user game.PlayerRef, conn Conn) (*Session, error) {
	s, ok := r.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.join(ctx, s, user, conn)
}

// JoinPrivate redeems a single-use invite token.
func (r *Registry) JoinPrivate(ctx context.Context, token string, user game.PlayerRef, conn Conn) (*Session, error) {
	r.mu.Lock()
	inv, ok := r.invites[token]
	if !ok {
		r.mu.Unlock()
		return nil, ErrInviteInvalid
	}
	if inv.Used {
		r.mu.Unlock()
		return nil, ErrInviteUsed
	}
	if time.Now().After(inv.ExpiresAt) {
		delete(r.invites, token)
		r.mu.Unlock()
		return nil, ErrInviteExpired
	}
	s, ok := r.sessions[inv.RoomID]
	if !ok {
		delete(r.invites, token)
		r.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	inv.Used = true
	r.mu.Unlock()

	joined, err := r.join(ctx, s, user, conn)
	if err != nil {
		// Redeeming failed before the seat was taken; let the token be
		// retried rather than burning the invite.
		r.mu.Lock()
		if cur, ok := r.invites[token]; ok && cur == inv {
			inv.Used = false
		}
		r.mu.Unlock()
		return nil, err
	}
	return joined, nil
}

func (r *Registry) join(ctx context.Context, s *Session, user game.PlayerRef, conn Conn) (*Session, error) {
	if err := r.checkFunds(ctx, user, s.Stake); err != nil {
		return nil, err
	}
	if cur := r.findByUser(user.ID); cur != nil && cur != s {
		return nil, ErrAlreadyInRoom
	}

	s.mu.Lock()
	if s.Status != StatusOpen {
		s.mu.Unlock()
		return nil, ErrRoomFull
	}
	if s.slot(user.ID) != nil {
		s.mu.Unlock()
		return nil, ErrAlreadyInRoom
	}
	if len(s.Slots) >= 2 {
		s.mu.Unlock()
		return nil, ErrRoomFull
	}

	s.Slots = append(s.Slots, &Slot{Player: user, Conn: conn, Connected: conn != nil})
	now := time.Now()
	if len(s.Slots) == 1 {
		// First human in a daemon-seeded room becomes the creator seat.
		st, err := s.logic.NewGame([]game.PlayerRef{user})
		if err != nil {
			s.Slots = s.Slots[:0]
			s.mu.Unlock()
			return nil, err
		}
		s.State = st
		s.botJoinAt = now.Add(botJoinWait)
		s.sendTo(user.ID, "roomCreated", s.viewFor(user.ID))
		s.mu.Unlock()
		r.announce(s.GameType)
		return s, nil
	}

	if err := r.beginMatch(s, now); err != nil {
		s.Slots = s.Slots[:len(s.Slots)-1]
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	r.announce(s.GameType)
	return s, nil
}

// beginMatch flips an OPEN room with two seats to ACTIVE. Callers hold s.mu.
func (r *Registry) beginMatch(s *Session, now time.Time) error {
	players := []game.PlayerRef{s.Slots[0].Player, s.Slots[1].Player}
	st, err := s.logic.NewGame(players)
	if err != nil {
		return err
	}
	s.State = st
	s.Status = StatusActive
	s.botJoinAt = time.Time{}
	s.broadcastState(s.event("gameStart"))
	s.armTurnClock(now, st.Base().Turn)
	return nil
}

// CreateMatch seats two known players directly into an ACTIVE session.
// Used by the tournament orchestrator; onFinish replaces wallet
// settlement.
func (r *Registry) CreateMatch(gt game.Type, players [2]game.PlayerRef, conns map[string]Conn, onFinish func(Outcome)) (*Session, error) {
	logic, err := game.LogicFor(gt)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:       store.NewID(),
		GameType: gt,
		Private:  true,
		Status:   StatusActive,
		logic:    logic,
		onFinish: onFinish,
	}
	for _, p := range players[:] {
		s.Slots = append(s.Slots, &Slot{Player: p, Conn: conns[p.ID], Connected: conns[p.ID] != nil})
	}
	st, err := logic.NewGame(players[:])
	if err != nil {
		return nil, err
	}
	s.State = st

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	s.mu.Lock()
	s.broadcastState(s.event("gameStart"))
	s.armTurnClock(time.Now(), st.Base().Turn)
	s.mu.Unlock()
	return s, nil
}

// ForceResult ends a session administratively with the given winner.
// Used by the tournament orchestrator to resolve stalled bot branches.
func (r *Registry) ForceResult(ctx context.Context, roomID, winnerID, reason string) error {
	s, ok := r.get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	s.mu.Lock()
	if s.Status == StatusFinished {
		s.mu.Unlock()
		return nil
	}
	fin := r.finishLocked(s, winnerID, false, reason)
	s.mu.Unlock()
	r.settle(ctx, fin)
	return nil
}

// SubmitMove applies a player's move. Rejections leave the session
// untouched and are reported only to the actor.
func (r *Registry) SubmitMove(ctx context.Context, roomID, actorID string, payload json.RawMessage) error {
	s, ok := r.get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.applyMove(ctx, s, actorID, payload)
}

func (r *Registry) applyMove(ctx context.Context, s *Session, actorID string, payload json.RawMessage) error {
	s.mu.Lock()
	if s.Status == StatusFinished {
		s.mu.Unlock()
		return game.ErrGameFinished
	}
	if s.slot(actorID) == nil {
		s.mu.Unlock()
		return ErrNotInRoom
	}
	if s.Status != StatusActive || len(s.Slots) < 2 {
		s.mu.Unlock()
		return game.ErrWrongPlayers
	}

	verdict, err := s.logic.ApplyMove(s.State, actorID, payload)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.clearTurnClock()
	s.botMoveAt = time.Time{}
	res := s.logic.Outcome(s.State)
	if res.Over {
		fin := r.finishLocked(s, res.WinnerID, res.Draw, "result")
		s.mu.Unlock()
		r.settle(ctx, fin)
		return nil
	}

	s.broadcastState(s.event("gameUpdate"))
	now := time.Now()
	holder := s.State.Base().Turn
	if verdict.Advance == game.SameActor {
		if sl := s.slot(actorID); sl != nil && sl.Player.Bot {
			s.botMoves++
			if s.botMoves < botTurnLimit {
				s.botMoveAt = now.Add(botMoveDelay())
			} else {
				// Yield, then resume with a fresh allowance so a long
				// legal turn still completes.
				s.botMoves = 0
				s.botMoveAt = now.Add(botTurnCooldown)
				log.Warn().Str("room_id", s.ID).Str("bot_id", actorID).Msg("bot action limit reached, cooling down")
			}
		} else {
			s.armTurnClock(now, holder)
		}
	} else {
		s.armTurnClock(now, holder)
	}
	s.mu.Unlock()
	return nil
}

// Leave is an explicit exit. An active opponent wins immediately.
func (r *Registry) Leave(ctx context.Context, roomID, userID string) error {
	s, ok := r.get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	s.mu.Lock()
	if s.slot(userID) == nil {
		s.mu.Unlock()
		return ErrNotInRoom
	}
	if s.Status == StatusFinished {
		s.mu.Unlock()
		return nil
	}
	if s.Status == StatusActive {
		opp := s.opponentSlot(userID)
		fin := r.finishLocked(s, opp.Player.ID, false, "opponent_left")
		s.mu.Unlock()
		r.settle(ctx, fin)
		return nil
	}
	// Waiting room: discard it.
	s.Status = StatusFinished
	s.clearTimers()
	gt := s.GameType
	s.mu.Unlock()
	r.remove(s.ID)
	r.announce(gt)
	return nil
}

// Disconnect marks the user's seat dead across their session. A lone
// waiting player's room is discarded; a live match arms the grace timer.
func (r *Registry) Disconnect(ctx context.Context, userID string) {
	s := r.findByUser(userID)
	if s == nil {
		return
	}
	s.mu.Lock()
	sl := s.slot(userID)
	if sl == nil || s.Status == StatusFinished {
		s.mu.Unlock()
		return
	}
	sl.Connected = false
	sl.Conn = nil
	if len(s.Slots) < 2 {
		s.Status = StatusFinished
		s.clearTimers()
		gt := s.GameType
		s.mu.Unlock()
		r.remove(s.ID)
		r.announce(gt)
		return
	}
	now := time.Now()
	s.graceAt = now.Add(disconnectGrace)
	s.graceFor = userID
	// The absent player cannot move; suspend their clock so the grace
	// window, not the move budget, decides the forfeit. Reconnect
	// re-arms a fresh budget.
	if s.turnHolder == userID {
		s.clearTurnClock()
	}
	s.broadcast("opponentDisconnected", map[string]any{
		"playerId":    userID,
		"graceMillis": disconnectGrace.Milliseconds(),
	})
	s.mu.Unlock()
}

// Reconnect rebinds a fresh connection to the user's live seat and
// replays the current state. Returns the session, or nil when there is
// nothing to resume.
func (r *Registry) Reconnect(ctx context.Context, userID string, conn Conn) *Session {
	s := r.findByUser(userID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	sl := s.slot(userID)
	if sl == nil || s.Status == StatusFinished {
		s.mu.Unlock()
		return nil
	}
	sl.Conn = conn
	sl.Connected = true
	if s.graceFor == userID {
		s.graceAt = time.Time{}
		s.graceFor = ""
		if s.Status == StatusActive && s.State != nil && s.State.Base().Turn == userID {
			s.armTurnClock(time.Now(), userID)
		}
	}
	s.sendTo(userID, s.event("gameUpdate"), s.viewFor(userID))
	if opp := s.opponentSlot(userID); opp != nil && opp.Connected && opp.Conn != nil {
		opp.Conn.Send("playerReconnected", map[string]any{"playerId": userID})
	}
	s.mu.Unlock()
	return s
}

// View returns the room snapshot filtered for viewerID.
func (r *Registry) View(roomID, viewerID string) (map[string]any, error) {
	s, ok := r.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewFor(viewerID), nil
}

// List returns the joinable public rooms for a game type, oldest first.
func (r *Registry) List(gt game.Type) []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Info, 0)
	for _, s := range r.sessions {
		s.mu.Lock()
		if s.GameType == gt && !s.Private && s.Status == StatusOpen {
			names := make([]string, 0, len(s.Slots))
			for _, sl := range s.Slots {
				names = append(names, sl.Player.Name)
			}
			out = append(out, Info{
				ID:       s.ID,
				GameType: s.GameType,
				Stake:    s.Stake,
				Players:  names,
				Full:     len(s.Slots) >= 2,
			})
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OpenCount counts joinable public rooms for the lobby daemon.
func (r *Registry) OpenCount(gt game.Type) int {
	return len(r.List(gt))
}

func (r *Registry) announce(gt game.Type) {
	if r.announcer != nil {
		r.announcer.AnnounceRooms(gt, r.List(gt))
	}
}

func (r *Registry) checkFunds(ctx context.Context, user game.PlayerRef, stake int64) error {
	if user.Bot || stake <= 0 || r.bank == nil {
		return nil
	}
	bal, err := r.bank.Balance(ctx, user.ID)
	if err != nil {
		return err
	}
	if bal < stake {
		return ErrInsufficientFunds
	}
	return nil
}
