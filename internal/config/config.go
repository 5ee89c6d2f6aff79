// Package config loads forum settings from an optional YAML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"forumdata/internal/ratelimit"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type Config struct {
	Addr       string                    `yaml:"addr"`
	Storage    Storage                   `yaml:"storage"`
	BcryptCost int                       `yaml:"bcrypt_cost"`
	Session    Session                   `yaml:"session"`
	RateLimits map[string]ratelimit.Rule `yaml:"rate_limits"`
	Log        Log                       `yaml:"log"`
}

type Storage struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type Session struct {
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Addr:       ":8080",
		Storage:    Storage{Driver: DriverSQLite, Path: "forum.db"},
		BcryptCost: bcrypt.DefaultCost,
		Session:    Session{CookieName: "session_id", TTL: 24 * time.Hour},
		RateLimits: ratelimit.DefaultRules(),
		Log:        Log{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path yields
// the defaults. Rate limit entries in the file replace the default for that
// action only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.merge(file)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.Storage.Driver != "" {
		c.Storage.Driver = o.Storage.Driver
	}
	if o.Storage.Path != "" {
		c.Storage.Path = o.Storage.Path
	}
	if o.BcryptCost != 0 {
		c.BcryptCost = o.BcryptCost
	}
	if o.Session.CookieName != "" {
		c.Session.CookieName = o.Session.CookieName
	}
	if o.Session.TTL != 0 {
		c.Session.TTL = o.Session.TTL
	}
	for action, r := range o.RateLimits {
		c.RateLimits[action] = r
	}
	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
	if o.Log.Format != "" {
		c.Log.Format = o.Log.Format
	}
}

// ApplyEnv overrides settings from PORT and DB_PATH. Setting DB_PATH also
// selects the sqlite driver.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		c.Addr = ":" + port
	}
	if path := getenv("DB_PATH"); path != "" {
		c.Storage.Driver = DriverSQLite
		c.Storage.Path = path
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	for action, r := range c.RateLimits {
		if r.Max < 0 || r.Window <= 0 {
			return fmt.Errorf("rate_limits.%s: max must be >= 0 and window positive", action)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Logger builds a slog.Logger writing to w as the log settings describe.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
