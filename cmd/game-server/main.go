package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"matchpoint/internal/config"
	"matchpoint/internal/ledger"
	"matchpoint/internal/logging"
	"matchpoint/internal/room"
	"matchpoint/internal/scheduler"
	"matchpoint/internal/store"
	"matchpoint/internal/tournament"
	httptransport "matchpoint/internal/transport/http"
	"matchpoint/internal/ws"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	janitorTick = 250 * time.Millisecond
	bracketTick = time.Second
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure schema failed")
	}

	led := ledger.New(st)
	wsServer := ws.NewServer(st)

	registry := room.NewRegistry(&bank{Ledger: led, store: st}, wsServer)
	orch := tournament.NewOrchestrator(registry, led, st, wsServer)
	wsServer.Bind(registry, orch)

	registry.StartJanitor(ctx, janitorTick)
	orch.Start(ctx, bracketTick)

	templateDaemon := scheduler.NewTemplateDaemon(cfg.Scheduler, st, orch)
	lobbyDaemon := scheduler.NewLobbyDaemon(cfg.Scheduler, registry)
	if err := templateDaemon.Start(); err != nil {
		log.Fatal().Err(err).Msg("template daemon start failed")
	}
	if err := lobbyDaemon.Start(); err != nil {
		log.Fatal().Err(err).Msg("lobby daemon start failed")
	}

	r := httptransport.NewRouter(st, cfg.Server, registry, orch, wsServer, templateDaemon, lobbyDaemon)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	_ = templateDaemon.Stop()
	_ = lobbyDaemon.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
