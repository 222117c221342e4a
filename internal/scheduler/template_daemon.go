package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"matchpoint/internal/config"
	"matchpoint/internal/game"
	"matchpoint/internal/store"
	"matchpoint/internal/tournament"
)

// Templates is the persistence slice the template daemon needs.
// *store.Store satisfies it.
type Templates interface {
	ListActiveTemplates(ctx context.Context) ([]store.TournamentTemplate, error)
	MarkTemplateFired(ctx context.Context, id string, at time.Time) error
}

// TournamentCreator is the orchestrator slice the template daemon
// needs. *tournament.Orchestrator satisfies it.
type TournamentCreator interface {
	Create(ctx context.Context, name string, gt game.Type, entryFee int64, maxPlayers int) (tournament.Snapshot, error)
	List() []tournament.Snapshot
}

// NewTemplateDaemon polls active tournament templates and fires the
// ones whose schedule is due.
func NewTemplateDaemon(cfg config.SchedulerConfig, templates Templates, creator TournamentCreator) *Daemon {
	task := func(ctx context.Context) {
		runTemplateCheck(ctx, templates, creator, time.Now())
	}
	return newDaemon("tournament-templates", cfg.TemplateTick, task)
}

func runTemplateCheck(ctx context.Context, templates Templates, creator TournamentCreator, now time.Time) {
	tpls, err := templates.ListActiveTemplates(ctx)
	if err != nil {
		log.Error().Err(err).Msg("template daemon list failed")
		return
	}
	for _, tpl := range tpls {
		if !templateDue(tpl, creator, now) {
			continue
		}
		gt, err := game.ParseType(tpl.GameType)
		if err != nil {
			log.Error().Err(err).Str("template_id", tpl.ID).Msg("template names unknown game type")
			continue
		}
		if _, err := creator.Create(ctx, tpl.Name, gt, tpl.EntryFee, tpl.MaxPlayers); err != nil {
			log.Error().Err(err).Str("template_id", tpl.ID).Msg("scheduled tournament creation failed")
			continue
		}
		if err := templates.MarkTemplateFired(ctx, tpl.ID, now); err != nil {
			log.Error().Err(err).Str("template_id", tpl.ID).Msg("template fire mark failed")
		}
		log.Info().Str("template_id", tpl.ID).Str("game_type", tpl.GameType).Msg("scheduled tournament created")
	}
}

func templateDue(tpl store.TournamentTemplate, creator TournamentCreator, now time.Time) bool {
	switch tpl.Kind {
	case store.TemplateKindInterval:
		if tpl.EveryMins <= 0 {
			return false
		}
		if tpl.LastFiredAt == nil {
			return true
		}
		return now.Sub(*tpl.LastFiredAt) >= time.Duration(tpl.EveryMins)*time.Minute
	case store.TemplateKindFixed:
		return fixedTimeDue(tpl, now)
	case store.TemplateKindDynamic:
		if tpl.MinActive <= 0 {
			return false
		}
		live := 0
		for _, s := range creator.List() {
			if string(s.GameType) == tpl.GameType && (s.Status == tournament.StatusWaiting || s.Status == tournament.StatusActive) {
				live++
			}
		}
		return live < tpl.MinActive
	default:
		return false
	}
}

// fixedTimeDue reports whether any of the template's HH:MM wall-clock
// times has passed today without the template firing since.
func fixedTimeDue(tpl store.TournamentTemplate, now time.Time) bool {
	for _, raw := range strings.Split(tpl.AtTimes, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		at, err := time.ParseInLocation("15:04", raw, now.Location())
		if err != nil {
			log.Warn().Str("template_id", tpl.ID).Str("at", raw).Msg("unparseable template time")
			continue
		}
		slot := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
		if now.Before(slot) {
			continue
		}
		if tpl.LastFiredAt == nil || tpl.LastFiredAt.Before(slot) {
			return true
		}
	}
	return false
}
