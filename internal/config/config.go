package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RedisConfig holds connection settings for the event store.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// MaxEventsConfig sets how many events a grid cell shows per view before
// the response switches to an overflow count. These are presentation
// thresholds, not data properties; the projector always matches fully.
type MaxEventsConfig struct {
	Day   int `yaml:"day" json:"day"`
	Week  int `yaml:"week" json:"week"`
	Month int `yaml:"month" json:"month"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for grid and projection math
	// (e.g. "Asia/Shanghai"). Empty or invalid falls back to the host's
	// local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday opens a calendar week. Supported:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// FlushCron is a cron-style schedule (e.g. "*/15 * * * *") for the
	// periodic persistence sweep that re-saves the in-memory collection.
	FlushCron string `yaml:"flush" json:"flush"`

	// Redis configures the durable event store. An unreachable store
	// degrades the service to in-memory persistence.
	Redis RedisConfig `yaml:"redis" json:"redis"`

	// ImportCacheDir is where URL imports keep their HTTP cache.
	ImportCacheDir string `yaml:"import_cache_dir" json:"import_cache_dir"`

	MaxEvents MaxEventsConfig `yaml:"max_events" json:"max_events"`

	// HolidayKeywords / WorkKeywords override the classifier's built-in
	// bilingual keyword lists. Holiday keywords win over work keywords.
	HolidayKeywords []string `yaml:"holiday_keywords" json:"holiday_keywords"`
	WorkKeywords    []string `yaml:"work_keywords" json:"work_keywords"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		Timezone:       "Asia/Shanghai",
		WeekStart:      "sunday",
		FlushCron:      "*/15 * * * *",
		Redis:          RedisConfig{Addr: "127.0.0.1:6379"},
		ImportCacheDir: "./var/ics-cache",
		MaxEvents:      MaxEventsConfig{Day: 30, Week: 10, Month: 4},
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Shanghai"
	}
	switch c.WeekStart {
	case "sunday", "monday":
		// ok
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = "sunday"
	}
	if c.FlushCron == "" {
		c.FlushCron = "*/15 * * * *"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.ImportCacheDir == "" {
		c.ImportCacheDir = "./var/ics-cache"
	}
	if c.MaxEvents.Day <= 0 {
		c.MaxEvents.Day = 30
	}
	if c.MaxEvents.Week <= 0 {
		c.MaxEvents.Week = 10
	}
	if c.MaxEvents.Month <= 0 {
		c.MaxEvents.Month = 4
	}
	// Empty keyword lists mean "use the classifier defaults"; nothing to fill.
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
//   - normalize defaults
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
		return nil, err
	}
	cfg.Normalize()

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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".gridcal-config-*.tmp")
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

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
