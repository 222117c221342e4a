package httptransport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"matchpoint/internal/config"
	"matchpoint/internal/room"
	"matchpoint/internal/scheduler"
	"matchpoint/internal/store"
	"matchpoint/internal/tournament"
	"matchpoint/internal/ws"
)

func NewRouter(
	st *store.Store,
	cfg config.ServerConfig,
	registry *room.Registry,
	orch *tournament.Orchestrator,
	wsServer *ws.Server,
	templateDaemon, lobbyDaemon *scheduler.Daemon,
) *chi.Mux {
	publicHandlers := NewPublicHandlers(st, registry, orch, cfg)
	adminHandlers := NewAdminHandlers(st, templateDaemon, lobbyDaemon)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", publicHandlers.Health())
	r.Get("/ws", wsServer.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/users/register", publicHandlers.Register())
		r.Get("/public/game-types", publicHandlers.GameTypes())
		r.Get("/public/rooms", publicHandlers.Rooms())
		r.Get("/public/tournaments", publicHandlers.Tournaments())
		r.Get("/public/tournaments/history", publicHandlers.TournamentHistory())
		r.Get("/public/tournaments/{tournament_id}", publicHandlers.Tournament())

		r.Group(func(r chi.Router) {
			r.Use(UserAuthMiddleware(st))
			r.Get("/users/me", publicHandlers.Me())
			r.Get("/users/me/history", publicHandlers.MyHistory())
			r.Get("/users/me/ledger", publicHandlers.MyLedger())
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/admin/scheduler/stats", adminHandlers.SchedulerStats())
			r.Post("/admin/scheduler/{daemon}/start", adminHandlers.SchedulerStart())
			r.Post("/admin/scheduler/{daemon}/stop", adminHandlers.SchedulerStop())
			r.Post("/admin/scheduler/{daemon}/force-check", adminHandlers.SchedulerForceCheck())

			r.Get("/admin/templates", adminHandlers.TemplateList())
			r.Post("/admin/templates", adminHandlers.TemplateCreate())
			r.Get("/admin/templates/{template_id}", adminHandlers.TemplateGet())
			r.Put("/admin/templates/{template_id}", adminHandlers.TemplateUpdate())
			r.Delete("/admin/templates/{template_id}", adminHandlers.TemplateDelete())
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
