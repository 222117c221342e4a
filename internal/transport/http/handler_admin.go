package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"matchpoint/internal/game"
	"matchpoint/internal/scheduler"
	"matchpoint/internal/store"
)

type AdminHandlers struct {
	store          *store.Store
	templateDaemon *scheduler.Daemon
	lobbyDaemon    *scheduler.Daemon
}

func NewAdminHandlers(st *store.Store, templateDaemon, lobbyDaemon *scheduler.Daemon) *AdminHandlers {
	return &AdminHandlers{store: st, templateDaemon: templateDaemon, lobbyDaemon: lobbyDaemon}
}

func (h *AdminHandlers) daemon(r *http.Request) *scheduler.Daemon {
	switch chi.URLParam(r, "daemon") {
	case "templates":
		return h.templateDaemon
	case "lobby":
		return h.lobbyDaemon
	default:
		return nil
	}
}

func (h *AdminHandlers) SchedulerStats() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, map[string]any{
			"daemons": []scheduler.Stats{
				h.templateDaemon.Status(),
				h.lobbyDaemon.Status(),
			},
		})
	}
}

func (h *AdminHandlers) SchedulerStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := h.daemon(r)
		if d == nil {
			WriteHTTPError(w, http.StatusNotFound, "unknown_daemon")
			return
		}
		if err := d.Start(); err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "daemon_start_failed")
			return
		}
		WriteJSON(w, d.Status())
	}
}

func (h *AdminHandlers) SchedulerStop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := h.daemon(r)
		if d == nil {
			WriteHTTPError(w, http.StatusNotFound, "unknown_daemon")
			return
		}
		if err := d.Stop(); err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "daemon_stop_failed")
			return
		}
		WriteJSON(w, d.Status())
	}
}

func (h *AdminHandlers) SchedulerForceCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := h.daemon(r)
		if d == nil {
			WriteHTTPError(w, http.StatusNotFound, "unknown_daemon")
			return
		}
		d.ForceCheck()
		WriteJSON(w, d.Status())
	}
}

func validateTemplate(t store.TournamentTemplate) string {
	if t.Name == "" {
		return "name_required"
	}
	if _, err := game.ParseType(t.GameType); err != nil {
		return "unknown_game_type"
	}
	switch t.MaxPlayers {
	case 4, 8, 16, 32:
	default:
		return "max_players_must_be_power_of_two"
	}
	switch t.Kind {
	case store.TemplateKindInterval:
		if t.EveryMins <= 0 {
			return "every_minutes_required"
		}
	case store.TemplateKindFixed:
		if t.AtTimes == "" {
			return "at_times_required"
		}
	case store.TemplateKindDynamic:
		if t.MinActive <= 0 {
			return "min_active_required"
		}
	default:
		return "unknown_schedule_kind"
	}
	return ""
}

func (h *AdminHandlers) TemplateCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t store.TournamentTemplate
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "bad_payload")
			return
		}
		if code := validateTemplate(t); code != "" {
			WriteHTTPError(w, http.StatusBadRequest, code)
			return
		}
		id, err := h.store.CreateTemplate(r.Context(), t)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"id": id})
	}
}

func (h *AdminHandlers) TemplateUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t store.TournamentTemplate
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "bad_payload")
			return
		}
		t.ID = chi.URLParam(r, "template_id")
		if code := validateTemplate(t); code != "" {
			WriteHTTPError(w, http.StatusBadRequest, code)
			return
		}
		if err := h.store.UpdateTemplate(r.Context(), t); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "template_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"ok": true})
	}
}

func (h *AdminHandlers) TemplateDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.DeleteTemplate(r.Context(), chi.URLParam(r, "template_id")); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "template_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"ok": true})
	}
}

func (h *AdminHandlers) TemplateGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := h.store.GetTemplate(r.Context(), chi.URLParam(r, "template_id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "template_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, t)
	}
}

func (h *AdminHandlers) TemplateList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.store.ListTemplates(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"templates": items})
	}
}
