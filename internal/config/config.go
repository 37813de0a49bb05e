package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: load/save keep the first-run behavior of writing a default config
// with 0600 permissions, since the file holds push credentials.

const (
	defaultTimezone    = "Europe/Copenhagen"
	defaultListen      = "127.0.0.1:8080"
	defaultCacheDir    = "./var/ics-cache"
	defaultLastCount   = 5
	defaultTimeFormat  = "15:04"
	defaultEndpoint    = "https://api.pushover.net/1/messages.json"
	defaultTitlePrefix = "Skema for"
	defaultRatePerMin  = 30
)

// CalendarConfig describes one named calendar feed and who receives it.
type CalendarConfig struct {
	// Name is the handle used on the command line (--name) and in schedules.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS feed endpoint.
	URL string `yaml:"url" json:"url"`
	// Device is the push recipient identifier for this calendar.
	Device string `yaml:"device" json:"device"`
}

// PushoverConfig holds credentials for the push-notification sink.
type PushoverConfig struct {
	Endpoint      string `yaml:"endpoint" json:"endpoint"`
	Token         string `yaml:"token" json:"-"`
	User          string `yaml:"user" json:"-"`
	TitlePrefix   string `yaml:"title_prefix" json:"title_prefix"`
	RatePerMinute int    `yaml:"rate_per_minute" json:"rate_per_minute"`
}

// ScheduleConfig triggers a day agenda for a calendar on a cron spec.
type ScheduleConfig struct {
	// Cron is a standard 5-field cron expression, e.g. "30 6 * * 1-5".
	Cron     string `yaml:"cron" json:"cron"`
	Calendar string `yaml:"calendar" json:"calendar"`
	// Day is "today" (default), "tomorrow" or a YYYY-MM-DD date.
	Day  string `yaml:"day" json:"day"`
	Send bool   `yaml:"send" json:"send"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone used for "today"/"tomorrow" and for
	// floating DTSTART/DTEND values.
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	LogFile   string `yaml:"log_file,omitempty" json:"log_file,omitempty"`

	// Listen is the HTTP listen address for `schemapush serve`.
	Listen    string           `yaml:"listen" json:"listen"`
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// CacheDir holds per-URL ETag/Last-Modified caches for fetched feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// LastCount is the default N for `schemapush last`.
	LastCount int `yaml:"last_count" json:"last_count"`

	// TimeFormat is the Go layout used for HH:MM in agenda lines.
	TimeFormat string `yaml:"time_format" json:"time_format"`

	// Suppress is the case-insensitive substring denylist applied to
	// summary and description.
	Suppress []string `yaml:"suppress" json:"suppress"`

	Calendars []CalendarConfig `yaml:"calendars" json:"calendars"`
	Pushover  PushoverConfig   `yaml:"pushover" json:"pushover"`
	Schedules []ScheduleConfig `yaml:"schedules" json:"schedules"`
}

// DefaultSuppress returns the default suppression terms.
func DefaultSuppress() []string {
	return []string{"tilsyn", "årgang"}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:   defaultTimezone,
		LogLevel:   "info",
		LogFormat:  "text",
		Listen:     defaultListen,
		CacheDir:   defaultCacheDir,
		LastCount:  defaultLastCount,
		TimeFormat: defaultTimeFormat,
		Suppress:   DefaultSuppress(),
		Calendars:  []CalendarConfig{},
		Pushover: PushoverConfig{
			Endpoint:      defaultEndpoint,
			TitlePrefix:   defaultTitlePrefix,
			RatePerMinute: defaultRatePerMin,
		},
		Schedules: []ScheduleConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.LastCount <= 0 {
		c.LastCount = defaultLastCount
	}
	if c.TimeFormat == "" {
		c.TimeFormat = defaultTimeFormat
	}
	// An explicit empty list disables suppression; only a missing key
	// falls back to the defaults.
	if c.Suppress == nil {
		c.Suppress = DefaultSuppress()
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	if c.Pushover.Endpoint == "" {
		c.Pushover.Endpoint = defaultEndpoint
	}
	if c.Pushover.TitlePrefix == "" {
		c.Pushover.TitlePrefix = defaultTitlePrefix
	}
	if c.Pushover.RatePerMinute <= 0 {
		c.Pushover.RatePerMinute = defaultRatePerMin
	}
	if c.Schedules == nil {
		c.Schedules = []ScheduleConfig{}
	}
	for i := range c.Schedules {
		if c.Schedules[i].Day == "" {
			c.Schedules[i].Day = "today"
		}
	}
}

// Validate reports configuration errors that defaults cannot repair.
func (c *Config) Validate() error {
	names := make(map[string]struct{}, len(c.Calendars))
	for i, cal := range c.Calendars {
		if cal.Name == "" {
			return fmt.Errorf("calendars[%d]: name is empty", i)
		}
		if cal.URL == "" {
			return fmt.Errorf("calendar %q: url is empty", cal.Name)
		}
		if _, dup := names[cal.Name]; dup {
			return fmt.Errorf("calendar %q: duplicate name", cal.Name)
		}
		names[cal.Name] = struct{}{}
	}

	for i, s := range c.Schedules {
		if _, ok := names[s.Calendar]; !ok {
			return fmt.Errorf("schedules[%d]: unknown calendar %q", i, s.Calendar)
		}
		if _, err := cron.ParseStandard(s.Cron); err != nil {
			return fmt.Errorf("schedules[%d]: invalid cron %q: %w", i, s.Cron, err)
		}
	}
	return nil
}

// Calendar looks up a calendar by name.
func (c *Config) Calendar(name string) (CalendarConfig, bool) {
	for _, cal := range c.Calendars {
		if cal.Name == name {
			return cal, true
		}
	}
	return CalendarConfig{}, false
}

// Location resolves Timezone, falling back to time.Local when the zone
// cannot be loaded.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".schemapush-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
