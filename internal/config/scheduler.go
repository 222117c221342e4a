package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type SchedulerConfig struct {
	LobbyTick      time.Duration `env:"LOBBY_TICK" envDefault:"30s"`
	LobbyPoolSize  int           `env:"LOBBY_POOL_SIZE" envDefault:"2"`
	LobbyRoomStake int64         `env:"LOBBY_ROOM_STAKE" envDefault:"10"`

	TemplateTick time.Duration `env:"TEMPLATE_TICK" envDefault:"120s"`
}

func LoadScheduler() (SchedulerConfig, error) {
	var cfg SchedulerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
