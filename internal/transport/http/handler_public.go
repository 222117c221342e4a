package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"matchpoint/internal/config"
	"matchpoint/internal/game"
	"matchpoint/internal/room"
	"matchpoint/internal/store"
	"matchpoint/internal/tournament"
)

type PublicHandlers struct {
	store    *store.Store
	registry *room.Registry
	orch     *tournament.Orchestrator
	cfg      config.ServerConfig
}

func NewPublicHandlers(st *store.Store, registry *room.Registry, orch *tournament.Orchestrator, cfg config.ServerConfig) *PublicHandlers {
	return &PublicHandlers{store: st, registry: registry, orch: orch, cfg: cfg}
}

func (h *PublicHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "db_unreachable")
			return
		}
		WriteJSON(w, map[string]any{"ok": true})
	}
}

// Register creates a user with a fresh bearer token and a funded
// account. The token is returned exactly once.
func (h *PublicHandlers) Register() http.HandlerFunc {
	type request struct {
		Name string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			WriteHTTPError(w, http.StatusBadRequest, "name_required")
			return
		}
		token := uuid.NewString()
		id, err := h.store.CreateUser(r.Context(), req.Name, token)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if err := h.store.EnsureAccount(r.Context(), id, h.cfg.InitialBalance); err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{
			"id":      id,
			"name":    req.Name,
			"token":   token,
			"balance": h.cfg.InitialBalance,
		})
	}
}

func (h *PublicHandlers) GameTypes() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, map[string]any{"gameTypes": game.Types()})
	}
}

func (h *PublicHandlers) Rooms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gt, err := game.ParseType(r.URL.Query().Get("gameType"))
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "unknown_game_type")
			return
		}
		WriteJSON(w, map[string]any{"gameType": gt, "rooms": h.registry.List(gt)})
	}
}

func (h *PublicHandlers) Tournaments() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, map[string]any{"tournaments": h.orch.List()})
	}
}

func (h *PublicHandlers) Tournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := h.orch.Get(chi.URLParam(r, "tournament_id"))
		if err != nil {
			WriteHTTPError(w, http.StatusNotFound, "tournament_not_found")
			return
		}
		WriteJSON(w, snap)
	}
}

func (h *PublicHandlers) TournamentHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, err := h.store.ListTournaments(r.Context(), limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"tournaments": items})
	}
}

func (h *PublicHandlers) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		bal, err := h.store.GetBalance(r.Context(), user.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{
			"id":      user.ID,
			"name":    user.Name,
			"balance": bal,
		})
	}
}

func (h *PublicHandlers) MyHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		limit, offset := ParsePagination(r)
		items, err := h.store.ListMatchHistory(r.Context(), user.ID, limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"matches": items})
	}
}

func (h *PublicHandlers) MyLedger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		limit, offset := ParsePagination(r)
		items, err := h.store.ListLedgerEntries(r.Context(), store.LedgerFilter{
			UserID: user.ID,
			RefID:  r.URL.Query().Get("refId"),
		}, limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"entries": items})
	}
}
