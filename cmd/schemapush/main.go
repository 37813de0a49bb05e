package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/jensandresen/schemapush/internal/app"
	"github.com/jensandresen/schemapush/internal/config"
	"github.com/jensandresen/schemapush/internal/ics"
	appLog "github.com/jensandresen/schemapush/internal/log"
	"github.com/jensandresen/schemapush/internal/schedule"
	"github.com/jensandresen/schemapush/internal/web"
)

const version = "0.1.0"

// globalFlags are accepted before the subcommand name.
type globalFlags struct {
	configPath string
	logLevel   string
}

type command struct {
	usage string
	run   func(ctx context.Context, env *env, args []string) error
}

// env is what every subcommand receives once config is loaded.
type env struct {
	cfg    *config.Config
	app    *app.App
	stdout io.Writer
	stderr io.Writer
}

var commands = map[string]command{
	"last":     {"List the last N events of a local iCal file.", runLast},
	"list":     {"List (and optionally push) the events of a day.", runList},
	"export":   {"Write a calendar's filtered events as .ics.", runExport},
	"serve":    {"Serve the HTTP API and run configured schedules.", runServe},
	"schedule": {"Run configured schedules without the HTTP API.", runSchedule},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var gf globalFlags
	fs := flag.NewFlagSet("schemapush", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&gf.configPath, "config", defaultConfigPath(), "Path to config file")
	fs.StringVar(&gf.logLevel, "log-level", "", "Log level (overrides config if set)")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(gf.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", gf.configPath)
		return 1
	}
	if gf.logLevel != "" {
		cfg.LogLevel = gf.logLevel
	}

	cleanup, err := appLog.Configure(appLog.Options{
		Level:  appLog.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		appLog.Error("failed to configure logging", err, "log_file", cfg.LogFile)
		return 1
	}
	defer cleanup()

	appLog.Debug("effective config",
		"version", version,
		"command", name,
		"timezone", cfg.Timezone,
		"calendars", len(cfg.Calendars),
		"schedules", len(cfg.Schedules),
		"suppress", len(cfg.Suppress),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg, app: app.New(cfg), stdout: stdout, stderr: stderr}
	if err := cmd.run(ctx, e, fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		appLog.Error(name+" failed", err)
		return 1
	}
	return 0
}

func defaultConfigPath() string {
	if p := os.Getenv("SCHEMAPUSH_CONFIG"); p != "" {
		return p
	}
	return "./schemapush.yaml"
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "usage: schemapush [flags] <command> [command flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "  %-9s %s\n", n, commands[n].usage)
	}
	fmt.Fprintf(out, "\nflags:\n")
	fs.PrintDefaults()
}

// newFlagSet returns a subcommand flag set that reports to e.stderr.
func (e *env) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func runLast(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("last")
	var count int
	var filename string
	fs.IntVar(&count, "count", e.cfg.LastCount, "Number of items to return")
	fs.IntVar(&count, "n", e.cfg.LastCount, "Number of items to return (shorthand)")
	fs.StringVar(&filename, "filename", "", "The iCal file to read from")
	fs.StringVar(&filename, "f", "", "The iCal file to read from (shorthand)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if filename == "" {
		return errors.New("--filename is required")
	}

	fullPath, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	appLog.Info("last", "count", count, "filename", fullPath)

	ag, err := e.app.Last(ctx, ics.FileSource{Path: fullPath}, count)
	if err != nil {
		return err
	}
	return printLines(e.stdout, ag.Lines)
}

func runList(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("list")
	var name, day string
	var send bool
	fs.StringVar(&name, "name", "", "Calendar name")
	fs.StringVar(&day, "day", "today", "today, tomorrow or YYYY-MM-DD")
	fs.BoolVar(&send, "send", false, "Send as push notification")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if name == "" {
		return errors.New("--name is required")
	}

	appLog.Info("sending request", "calendar", name, "day", day)
	ag, err := e.app.Day(ctx, name, day)
	if err != nil {
		return err
	}
	if ag.Empty() {
		_, err := fmt.Fprintln(e.stdout, ag.EmptyMessage())
		return err
	}
	if err := printLines(e.stdout, ag.Lines); err != nil {
		return err
	}
	if send {
		return e.app.Send(ctx, ag)
	}
	return nil
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("export")
	var name, out string
	fs.StringVar(&name, "name", "", "Calendar name")
	fs.StringVar(&out, "o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if name == "" {
		return errors.New("--name is required")
	}

	if out == "" {
		return e.app.Export(ctx, e.stdout, name)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := e.app.Export(ctx, f, name); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runServe(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("serve")
	var listen string
	fs.StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// CLI --listen overrides config file listen if provided.
	if listen != "" {
		e.cfg.Listen = listen
	}

	if len(e.cfg.Schedules) > 0 {
		s, err := schedule.New(ctx, e.app, e.cfg.Schedules, e.cfg.Location())
		if err != nil {
			return err
		}
		go s.Run(ctx)
	}
	return web.StartServer(ctx, e.app)
}

func runSchedule(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("schedule")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(e.cfg.Schedules) == 0 {
		return errors.New("no schedules configured")
	}

	s, err := schedule.New(ctx, e.app, e.cfg.Schedules, e.cfg.Location())
	if err != nil {
		return err
	}
	s.Run(ctx)
	return nil
}

func printLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
