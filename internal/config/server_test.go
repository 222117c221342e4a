package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/matchpoint?sslmode=disable")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.InitialBalance != 1000 {
		t.Fatalf("InitialBalance = %d, want 1000", cfg.InitialBalance)
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadSchedulerParse(t *testing.T) {
	t.Setenv("LOBBY_TICK", "5s")
	t.Setenv("LOBBY_POOL_SIZE", "4")

	cfg, err := LoadScheduler()
	if err != nil {
		t.Fatalf("LoadScheduler() error = %v", err)
	}
	if cfg.LobbyTick.Seconds() != 5 {
		t.Fatalf("LobbyTick = %v, want 5s", cfg.LobbyTick)
	}
	if cfg.LobbyPoolSize != 4 {
		t.Fatalf("LobbyPoolSize = %d, want 4", cfg.LobbyPoolSize)
	}
	if cfg.TemplateTick.Seconds() != 120 {
		t.Fatalf("TemplateTick = %v, want 120s", cfg.TemplateTick)
	}
}
