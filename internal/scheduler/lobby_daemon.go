package scheduler

import (
	"context"

	"github.com/rs/zerolog/log"

	"matchpoint/internal/config"
	"matchpoint/internal/game"
	"matchpoint/internal/room"
)

// Lobby is the registry slice the lobby daemon needs. *room.Registry
// satisfies it.
type Lobby interface {
	OpenCount(gt game.Type) int
	CreateEmpty(gt game.Type, stake int64) (*room.Session, error)
}

// NewLobbyDaemon keeps a pool of joinable public rooms per game type so
// a player always finds an open seat.
func NewLobbyDaemon(cfg config.SchedulerConfig, lobby Lobby) *Daemon {
	task := func(ctx context.Context) {
		runLobbyTopUp(lobby, cfg.LobbyPoolSize, cfg.LobbyRoomStake)
	}
	return newDaemon("lobby-pool", cfg.LobbyTick, task)
}

func runLobbyTopUp(lobby Lobby, poolSize int, stake int64) {
	for _, gt := range game.Types() {
		open := lobby.OpenCount(gt)
		for i := open; i < poolSize; i++ {
			if _, err := lobby.CreateEmpty(gt, stake); err != nil {
				log.Error().Err(err).Str("game_type", string(gt)).Msg("lobby room creation failed")
				break
			}
		}
		if open < poolSize {
			log.Debug().Str("game_type", string(gt)).Int("created", poolSize-open).Msg("lobby pool topped up")
		}
	}
}
