package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Daemon wraps one polling loop behind start/stop/force-check controls
// for the admin surface. Each tick runs the task once; ticks are
// idempotent by construction of the tasks.
type Daemon struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context)

	mu      sync.Mutex
	sched   gocron.Scheduler
	runs    int
	lastRun time.Time
}

func newDaemon(name string, interval time.Duration, task func(ctx context.Context)) *Daemon {
	return &Daemon{name: name, interval: interval, task: task}
}

// Start begins ticking. Idempotent: a running daemon stays running.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sched != nil {
		return nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(d.interval),
		gocron.NewTask(func() { d.run() }),
	)
	if err != nil {
		return err
	}
	sched.Start()
	d.sched = sched
	log.Info().Str("daemon", d.name).Dur("interval", d.interval).Msg("scheduler daemon started")
	return nil
}

// Stop shuts the loop down. Idempotent.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sched == nil {
		return nil
	}
	err := d.sched.Shutdown()
	d.sched = nil
	log.Info().Str("daemon", d.name).Msg("scheduler daemon stopped")
	return err
}

// ForceCheck runs one tick immediately, regardless of running state.
func (d *Daemon) ForceCheck() {
	d.run()
}

func (d *Daemon) run() {
	start := time.Now()
	d.task(context.Background())
	d.mu.Lock()
	d.runs++
	d.lastRun = start
	d.mu.Unlock()
}

// Stats is the admin-facing daemon snapshot.
type Stats struct {
	Name     string    `json:"name"`
	Running  bool      `json:"running"`
	Interval string    `json:"interval"`
	Runs     int       `json:"runs"`
	LastRun  time.Time `json:"lastRun,omitempty"`
}

func (d *Daemon) Status() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Name:     d.name,
		Running:  d.sched != nil,
		Interval: d.interval.String(),
		Runs:     d.runs,
		LastRun:  d.lastRun,
	}
}
