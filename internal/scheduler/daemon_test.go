package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchpoint/internal/game"
	"matchpoint/internal/room"
	"matchpoint/internal/store"
	"matchpoint/internal/tournament"
)

type fakeTemplates struct {
	mu    sync.Mutex
	tpls  []store.TournamentTemplate
	fired map[string]time.Time
}

func (f *fakeTemplates) ListActiveTemplates(context.Context) ([]store.TournamentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.TournamentTemplate(nil), f.tpls...), nil
}

func (f *fakeTemplates) MarkTemplateFired(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fired == nil {
		f.fired = map[string]time.Time{}
	}
	f.fired[id] = at
	return nil
}

type fakeCreator struct {
	mu      sync.Mutex
	created []string
	live    []tournament.Snapshot
}

func (f *fakeCreator) Create(_ context.Context, name string, gt game.Type, fee int64, maxPlayers int) (tournament.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	snap := tournament.Snapshot{ID: store.NewID(), Name: name, GameType: gt, Status: tournament.StatusWaiting, EntryFee: fee, MaxPlayers: maxPlayers}
	f.live = append(f.live, snap)
	return snap, nil
}

func (f *fakeCreator) List() []tournament.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tournament.Snapshot(nil), f.live...)
}

func past(d time.Duration) *time.Time {
	t := time.Now().Add(-d)
	return &t
}

func TestIntervalTemplateFiresWhenElapsed(t *testing.T) {
	tpls := &fakeTemplates{tpls: []store.TournamentTemplate{
		{ID: "fresh", Name: "hourly", GameType: "chess", MaxPlayers: 8, Kind: store.TemplateKindInterval, EveryMins: 60},
		{ID: "recent", Name: "hourly", GameType: "chess", MaxPlayers: 8, Kind: store.TemplateKindInterval, EveryMins: 60, LastFiredAt: past(10 * time.Minute)},
		{ID: "stale", Name: "hourly", GameType: "chess", MaxPlayers: 8, Kind: store.TemplateKindInterval, EveryMins: 60, LastFiredAt: past(2 * time.Hour)},
	}}
	creator := &fakeCreator{}

	runTemplateCheck(context.Background(), tpls, creator, time.Now())

	// Never-fired and overdue templates fire; the recent one waits.
	require.Len(t, creator.created, 2)
	require.Contains(t, tpls.fired, "fresh")
	require.Contains(t, tpls.fired, "stale")
	require.NotContains(t, tpls.fired, "recent")
}

func TestFixedTimeTemplateFiresOncePerSlot(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	tpl := store.TournamentTemplate{
		ID: "daily", Name: "daily cup", GameType: "checkers", MaxPlayers: 4,
		Kind: store.TemplateKindFixed, AtTimes: "09:00, 18:00",
	}
	creator := &fakeCreator{}

	require.True(t, templateDue(tpl, creator, now))

	fired := now.Add(-time.Minute)
	tpl.LastFiredAt = &fired
	require.False(t, templateDue(tpl, creator, now))

	// A firing before today's 18:00 slot does not cover it.
	old := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tpl.LastFiredAt = &old
	require.True(t, templateDue(tpl, creator, now))

	// Before the first slot of the day nothing is due.
	early := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	lastNight := time.Date(2026, 3, 14, 18, 0, 5, 0, time.UTC)
	tpl.LastFiredAt = &lastNight
	require.False(t, templateDue(tpl, creator, early))
}

func TestDynamicTemplateTracksLivePopulation(t *testing.T) {
	tpl := store.TournamentTemplate{
		ID: "dyn", Name: "rolling", GameType: "durak", MaxPlayers: 4,
		Kind: store.TemplateKindDynamic, MinActive: 2,
	}
	creator := &fakeCreator{}
	require.True(t, templateDue(tpl, creator, time.Now()))

	runTemplateCheck(context.Background(), &fakeTemplates{tpls: []store.TournamentTemplate{tpl}}, creator, time.Now())
	require.True(t, templateDue(tpl, creator, time.Now()))

	runTemplateCheck(context.Background(), &fakeTemplates{tpls: []store.TournamentTemplate{tpl}}, creator, time.Now())
	require.False(t, templateDue(tpl, creator, time.Now()))
}

type fakeLobby struct {
	mu      sync.Mutex
	open    map[game.Type]int
	created map[game.Type]int
}

func (f *fakeLobby) OpenCount(gt game.Type) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[gt]
}

func (f *fakeLobby) CreateEmpty(gt game.Type, _ int64) (*room.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[gt]++
	f.created[gt]++
	return &room.Session{ID: store.NewID(), GameType: gt}, nil
}

func TestLobbyTopUpReachesPoolSize(t *testing.T) {
	lobby := &fakeLobby{
		open:    map[game.Type]int{game.TypeChess: 1, game.TypeDice: 2},
		created: map[game.Type]int{},
	}
	runLobbyTopUp(lobby, 2, 10)

	require.Equal(t, 1, lobby.created[game.TypeChess])
	require.Equal(t, 0, lobby.created[game.TypeDice])
	require.Equal(t, 2, lobby.created[game.TypeBingo])

	// A second tick is a no-op: the pool is already full.
	runLobbyTopUp(lobby, 2, 10)
	require.Equal(t, 2, lobby.created[game.TypeBingo])
}

func TestDaemonControls(t *testing.T) {
	ran := 0
	d := newDaemon("test", time.Hour, func(context.Context) { ran++ })

	st := d.Status()
	require.False(t, st.Running)
	require.Equal(t, "test", st.Name)

	require.NoError(t, d.Start())
	require.True(t, d.Status().Running)
	require.NoError(t, d.Start())

	d.ForceCheck()
	require.Equal(t, 1, ran)
	require.Equal(t, 1, d.Status().Runs)

	require.NoError(t, d.Stop())
	require.False(t, d.Status().Running)
	require.NoError(t, d.Stop())
}
