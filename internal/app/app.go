// Package app wires configuration, feed fetching, parsing, formatting and
// push delivery into the operations exposed by the CLI, the web server and
// the scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jensandresen/schemapush/internal/agenda"
	"github.com/jensandresen/schemapush/internal/config"
	"github.com/jensandresen/schemapush/internal/format"
	"github.com/jensandresen/schemapush/internal/ics"
	appLog "github.com/jensandresen/schemapush/internal/log"
	"github.com/jensandresen/schemapush/internal/model"
	"github.com/jensandresen/schemapush/internal/push"
)

// ErrUnknownCalendar is returned when a calendar name is not configured.
var ErrUnknownCalendar = errors.New("unknown calendar")

// Agenda is a selection of events together with their rendered lines.
type Agenda struct {
	// Calendar is the configured calendar name, empty for file sources.
	Calendar string
	// Day is the target day at midnight; zero for "last N" listings.
	Day    time.Time
	Events []model.Event
	Lines  []string
}

// Empty reports whether no events were selected.
func (a Agenda) Empty() bool {
	return len(a.Events) == 0
}

// EmptyMessage is the line printed when a day has no events.
func (a Agenda) EmptyMessage() string {
	return "No events available for " + agenda.FormatDay(a.Day)
}

// App holds the long-lived collaborators. It is safe for concurrent use.
type App struct {
	cfg       *config.Config
	fetcher   *ics.Fetcher
	parser    *ics.Parser
	clock     agenda.Clock
	formatter format.Formatter
	sink      push.Sink
}

// Option customizes an App.
type Option func(*App)

// WithClock overrides the wall clock.
func WithClock(c agenda.Clock) Option {
	return func(a *App) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithSink overrides the push sink.
func WithSink(s push.Sink) Option {
	return func(a *App) {
		if s != nil {
			a.sink = s
		}
	}
}

// WithFetcher overrides the feed fetcher.
func WithFetcher(f *ics.Fetcher) Option {
	return func(a *App) {
		if f != nil {
			a.fetcher = f
		}
	}
}

// New builds an App from cfg. Without WithSink, pushes go to Pushover using
// the configured credentials.
func New(cfg *config.Config, opts ...Option) *App {
	loc := cfg.Location()
	a := &App{
		cfg:     cfg,
		fetcher: ics.NewFetcher(cfg.CacheDir),
		parser: ics.NewParser(
			ics.WithSuppressTerms(cfg.Suppress),
			ics.WithLocation(loc),
		),
		clock:     agenda.SystemClock{Location: loc},
		formatter: format.New(loc, cfg.TimeFormat),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sink == nil {
		a.sink = push.NewClient(push.Config{
			Endpoint:      cfg.Pushover.Endpoint,
			Token:         cfg.Pushover.Token,
			User:          cfg.Pushover.User,
			RatePerMinute: cfg.Pushover.RatePerMinute,
		})
	}
	return a
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Source returns the feed source for a configured calendar.
func (a *App) Source(name string) (ics.LineSource, error) {
	cal, ok := a.cfg.Calendar(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalendar, name)
	}
	return ics.URLSource{
		Fetcher: a.fetcher,
		Source:  ics.Source{ID: cal.Name, URL: cal.URL},
	}, nil
}

// Events reads src and parses it with the configured suppression terms.
func (a *App) Events(ctx context.Context, src ics.LineSource) ([]model.Event, error) {
	lines, err := src.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	return a.parser.Parse(lines), nil
}

// TargetDay resolves a day selector against the app clock.
func (a *App) TargetDay(selector string) time.Time {
	return agenda.TargetDay(selector, a.clock.Now())
}

// Day fetches the named calendar and selects the events of the day chosen
// by selector ("today", "tomorrow" or YYYY-MM-DD).
func (a *App) Day(ctx context.Context, name, selector string) (Agenda, error) {
	src, err := a.Source(name)
	if err != nil {
		return Agenda{}, err
	}
	events, err := a.Events(ctx, src)
	if err != nil {
		return Agenda{}, fmt.Errorf("calendar %q: %w", name, err)
	}

	day := a.TargetDay(selector)
	selected := agenda.SelectForDay(events, day)

	appLog.Info("agenda selected",
		"calendar", name,
		"day", agenda.FormatDay(day),
		"parsed", len(events),
		"selected", len(selected),
	)

	return Agenda{
		Calendar: name,
		Day:      day,
		Events:   selected,
		Lines:    a.formatter.AgendaLines(selected),
	}, nil
}

// Last returns the n latest-beginning events of src.
func (a *App) Last(ctx context.Context, src ics.LineSource, n int) (Agenda, error) {
	events, err := a.Events(ctx, src)
	if err != nil {
		return Agenda{}, err
	}
	selected := agenda.SelectLast(events, n)
	return Agenda{
		Events: selected,
		Lines:  a.formatter.LastLines(selected),
	}, nil
}

// Send pushes a day agenda to the calendar's device. Empty agendas are not
// sent.
func (a *App) Send(ctx context.Context, ag Agenda) error {
	if ag.Empty() {
		appLog.Info("nothing to send", "calendar", ag.Calendar, "day", agenda.FormatDay(ag.Day))
		return nil
	}
	cal, ok := a.cfg.Calendar(ag.Calendar)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCalendar, ag.Calendar)
	}

	msg := push.Message{
		Recipient: cal.Device,
		Title:     a.title(cal.Name),
		Lines:     ag.Lines,
	}
	if err := a.sink.Send(ctx, msg); err != nil {
		return fmt.Errorf("push %q: %w", cal.Name, err)
	}
	return nil
}

// Export writes the named calendar's parsed events as an .ics document.
func (a *App) Export(ctx context.Context, w io.Writer, name string) error {
	src, err := a.Source(name)
	if err != nil {
		return err
	}
	events, err := a.Events(ctx, src)
	if err != nil {
		return fmt.Errorf("calendar %q: %w", name, err)
	}
	return ics.Export(w, name, agenda.SortByBegin(events), a.clock.Now())
}

func (a *App) title(name string) string {
	if a.cfg.Pushover.TitlePrefix == "" {
		return name
	}
	return a.cfg.Pushover.TitlePrefix + " " + name
}
