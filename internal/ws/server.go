package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"matchpoint/internal/game"
	"matchpoint/internal/room"
	"matchpoint/internal/store"
	"matchpoint/internal/tournament"
)

type Client struct {
	conn *websocket.Conn
	send chan []byte
	user *store.User
}

// Send satisfies room.Conn: every outbound event is an Envelope frame.
func (c *Client) Send(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("event payload marshal failed")
		return
	}
	msg, _ := json.Marshal(Envelope{Type: event, Data: payload})
	safeSend(c.send, msg)
}

// Server is the websocket front door: it authenticates users, routes
// inbound events into the registry and orchestrator, and fans
// broadcasts back out. It also backs room.Announcer and
// tournament.Notifier.
type Server struct {
	store    *store.Store
	registry *room.Registry
	orch     *tournament.Orchestrator
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
}

// NewServer builds an unbound server; Bind attaches the registry and
// orchestrator once they exist, since both take the server as their
// announcer/notifier.
func NewServer(st *store.Store) *Server {
	return &Server{
		store:    st,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[string]*Client{},
	}
}

func (s *Server) Bind(registry *room.Registry, orch *tournament.Orchestrator) {
	s.registry = registry
	s.orch = orch
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 16)}

	go s.writeLoop(client)
	s.readLoop(client)
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			continue
		}
		if env.Type == "auth" {
			s.handleAuth(c, env.Data)
			continue
		}
		if c.user == nil {
			c.Send("error", ErrorPayload{Message: "unauthenticated"})
			continue
		}
		s.dispatch(c, env)
	}
}

func (s *Server) handleAuth(c *Client, data json.RawMessage) {
	var auth AuthMessage
	if err := json.Unmarshal(data, &auth); err != nil {
		c.Send("error", ErrorPayload{Message: "bad_auth_payload"})
		return
	}
	ctx := context.Background()
	user, err := s.store.GetUserByToken(ctx, auth.Token)
	if err != nil {
		c.Send("error", ErrorPayload{Message: "invalid_token"})
		return
	}
	c.user = user

	s.mu.Lock()
	if old := s.clients[user.ID]; old != nil && old != c {
		safeClose(old.send)
		_ = old.conn.Close()
	}
	s.clients[user.ID] = c
	s.mu.Unlock()

	bal, err := s.store.GetBalance(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("balance read on auth failed")
	}
	c.Send("authenticated", map[string]any{
		"userId":  user.ID,
		"name":    user.Name,
		"balance": bal,
	})

	// Rebind a live seat if the user dropped mid-match.
	s.registry.Reconnect(ctx, user.ID, c)
}

func (s *Server) dispatch(c *Client, env Envelope) {
	ctx := context.Background()
	switch env.Type {
	case "createRoom":
		var m CreateRoomMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		gt, err := game.ParseType(m.GameType)
		if err != nil {
			c.Send("error", ErrorPayload{Message: "unknown_game_type"})
			return
		}
		if _, err := s.registry.Create(ctx, gt, m.Stake, s.player(c), c); err != nil {
			s.sendErr(c, err)
		}

	case "createPrivateRoom":
		var m CreateRoomMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		gt, err := game.ParseType(m.GameType)
		if err != nil {
			c.Send("error", ErrorPayload{Message: "unknown_game_type"})
			return
		}
		_, inv, err := s.registry.CreatePrivate(ctx, gt, m.Stake, s.player(c), c)
		if err != nil {
			s.sendErr(c, err)
			return
		}
		c.Send("inviteCreated", map[string]any{
			"token":     inv.Token,
			"roomId":    inv.RoomID,
			"expiresAt": inv.ExpiresAt.UnixMilli(),
		})

	case "joinRoom":
		var m JoinRoomMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		if _, err := s.registry.Join(ctx, m.RoomID, s.player(c), c); err != nil {
			s.sendErr(c, err)
		}

	case "joinPrivateRoom":
		var m JoinPrivateMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		if _, err := s.registry.JoinPrivate(ctx, m.Token, s.player(c), c); err != nil {
			s.sendErr(c, err)
		}

	case "playerMove":
		var m MoveMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		if err := s.registry.SubmitMove(ctx, m.RoomID, c.user.ID, m.Move); err != nil {
			s.sendErr(c, err)
		}

	case "rollDice":
		var m RoomMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		roll := json.RawMessage(`{"action":"roll"}`)
		if err := s.registry.SubmitMove(ctx, m.RoomID, c.user.ID, roll); err != nil {
			s.sendErr(c, err)
		}

	case "leaveGame":
		var m RoomMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		if err := s.registry.Leave(ctx, m.RoomID, c.user.ID); err != nil {
			s.sendErr(c, err)
		}

	case "getGameState":
		var m RoomMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		view, err := s.registry.View(m.RoomID, c.user.ID)
		if err != nil {
			s.sendErr(c, err)
			return
		}
		c.Send("gameUpdate", view)

	case "listRooms":
		var m ListRoomsMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		gt, err := game.ParseType(m.GameType)
		if err != nil {
			c.Send("error", ErrorPayload{Message: "unknown_game_type"})
			return
		}
		c.Send("roomsList", map[string]any{"gameType": gt, "rooms": s.registry.List(gt)})

	case "createTournament":
		var m CreateTournamentMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		gt, err := game.ParseType(m.GameType)
		if err != nil {
			c.Send("error", ErrorPayload{Message: "unknown_game_type"})
			return
		}
		if _, err := s.orch.Create(ctx, m.Name, gt, m.EntryFee, m.MaxPlayers); err != nil {
			s.sendErr(c, err)
		}

	case "registerTournament":
		var m TournamentMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		if _, err := s.orch.Register(ctx, m.TournamentID, s.player(c)); err != nil {
			s.sendErr(c, err)
		}

	case "unregisterTournament":
		var m TournamentMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		if _, err := s.orch.Unregister(ctx, m.TournamentID, c.user.ID); err != nil {
			s.sendErr(c, err)
		}

	case "listTournaments":
		c.Send("tournamentsList", s.orch.List())

	case "joinTournamentGame", "tournamentReturned":
		// Rebind the seat and replay state for the caller's live match.
		if s.registry.Reconnect(ctx, c.user.ID, c) == nil {
			c.Send("error", ErrorPayload{Message: "no_active_match"})
		}

	case "tournamentMove":
		var m TournamentMatchMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		roomID, ok := s.orch.RoomForMatch(m.MatchID)
		if !ok {
			c.Send("error", ErrorPayload{Message: "match_not_found"})
			return
		}
		if err := s.registry.SubmitMove(ctx, roomID, c.user.ID, m.Move); err != nil {
			s.sendErr(c, err)
		}

	case "tournamentPlayerLeft", "tournamentForfeited":
		var m TournamentMatchMessage
		if !s.decode(c, env.Data, &m) {
			return
		}
		roomID, ok := s.orch.RoomForMatch(m.MatchID)
		if !ok {
			c.Send("error", ErrorPayload{Message: "match_not_found"})
			return
		}
		if err := s.registry.Leave(ctx, roomID, c.user.ID); err != nil {
			s.sendErr(c, err)
		}

	default:
		c.Send("error", ErrorPayload{Message: "unknown_event_type"})
	}
}

func (s *Server) decode(c *Client, data json.RawMessage, dst any) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		c.Send("error", ErrorPayload{Message: "bad_payload"})
		return false
	}
	return true
}

func (s *Server) sendErr(c *Client, err error) {
	c.Send("error", ErrorPayload{Message: room.ErrorCode(err)})
}

func (s *Server) player(c *Client) game.PlayerRef {
	return game.PlayerRef{ID: c.user.ID, Name: c.user.Name}
}

func (s *Server) unregister(c *Client) {
	if c.user != nil {
		s.mu.Lock()
		if s.clients[c.user.ID] == c {
			delete(s.clients, c.user.ID)
		}
		s.mu.Unlock()
		s.registry.Disconnect(context.Background(), c.user.ID)
	}
	safeClose(c.send)
}

// AnnounceRooms satisfies room.Announcer: lobby snapshots go to every
// connected client.
func (s *Server) AnnounceRooms(gt game.Type, rooms []room.Info) {
	payload := map[string]any{"gameType": gt, "rooms": rooms}
	s.mu.Lock()
	targets := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()
	for _, c := range targets {
		c.Send("roomsList", payload)
	}
}

// Notify satisfies tournament.Notifier.
func (s *Server) Notify(userID, event string, data any) {
	s.mu.Lock()
	c := s.clients[userID]
	s.mu.Unlock()
	if c != nil {
		c.Send(event, data)
	}
}

func (s *Server) Broadcast(event string, data any) {
	s.mu.Lock()
	targets := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()
	for _, c := range targets {
		c.Send(event, data)
	}
}

func (s *Server) ConnFor(userID string) room.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[userID]; ok {
		return c
	}
	return nil
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case ch <- msg:
	default:
	}
}
