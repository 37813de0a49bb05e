// Package schedule runs configured agenda pushes on cron specs.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jensandresen/schemapush/internal/app"
	"github.com/jensandresen/schemapush/internal/config"
	appLog "github.com/jensandresen/schemapush/internal/log"
)

// jobTimeout bounds a single fetch + push run.
const jobTimeout = 2 * time.Minute

// Agendas is the part of app.App a job needs.
type Agendas interface {
	Day(ctx context.Context, name, selector string) (app.Agenda, error)
	Send(ctx context.Context, ag app.Agenda) error
}

// Job is one configured schedule entry bound to an agenda provider.
type Job struct {
	Calendar string
	Day      string
	Send     bool
	agendas  Agendas
}

// NewJob binds sc to a.
func NewJob(a Agendas, sc config.ScheduleConfig) Job {
	return Job{Calendar: sc.Calendar, Day: sc.Day, Send: sc.Send, agendas: a}
}

// Run selects the agenda and, when configured, pushes it.
func (j Job) Run(ctx context.Context) error {
	ag, err := j.agendas.Day(ctx, j.Calendar, j.Day)
	if err != nil {
		return err
	}
	if ag.Empty() {
		appLog.Info("scheduled agenda empty", "calendar", j.Calendar, "message", ag.EmptyMessage())
		return nil
	}
	if !j.Send {
		appLog.Info("scheduled agenda", "calendar", j.Calendar, "lines", len(ag.Lines))
		return nil
	}
	return j.agendas.Send(ctx, ag)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New registers one cron entry per schedule. Specs use the standard five
// fields and are evaluated in loc.
func New(ctx context.Context, a Agendas, schedules []config.ScheduleConfig, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx: ctx,
	}

	for i, sc := range schedules {
		job := NewJob(a, sc)
		id, err := s.cron.AddFunc(sc.Cron, func() { s.run(job) })
		if err != nil {
			return nil, fmt.Errorf("schedules[%d]: %w", i, err)
		}
		appLog.Info("schedule registered",
			"id", int(id),
			"cron", sc.Cron,
			"calendar", sc.Calendar,
			"day", sc.Day,
			"send", sc.Send,
		)
	}
	return s, nil
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	if err := job.Run(ctx); err != nil {
		appLog.Error("scheduled job failed", err, "calendar", job.Calendar, "day", job.Day)
	}
}

// Len returns the number of registered entries.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Next returns the next activation time over all entries, zero when none.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if e.Next.IsZero() {
			continue
		}
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	appLog.Info("scheduler started", "entries", s.Len())
	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	appLog.Info("scheduler stopped")
}

// cronLogger routes cron's logr-style output through appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
