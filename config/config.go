// ABOUTME: Application configuration stored at XDG paths
// ABOUTME: Loads JSON config, .env files and DEALBOARD_* environment overrides
package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/harperreed/dealboard/charm"
	"github.com/harperreed/dealboard/persist"
	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
)

// AppName names the XDG config and data directories.
const AppName = "dealboard"

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendCharm  = "charm"
	BackendMemory = "memory"
)

// Duration is a time.Duration that reads and writes as "250ms" style strings.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Bare numbers are nanoseconds
		var n int64
		if nerr := json.Unmarshal(b, &n); nerr != nil {
			return fmt.Errorf("invalid duration %s", string(b))
		}
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// RetryConfig tunes how the background writer retries failed saves.
type RetryConfig struct {
	MaxAttempts     int      `json:"max_attempts"`
	InitialInterval Duration `json:"initial_interval"`
	MaxInterval     Duration `json:"max_interval"`
	Multiplier      float64  `json:"multiplier"`
	BreakerFailures int      `json:"breaker_failures"`
	BreakerTimeout  Duration `json:"breaker_timeout"`
}

// Config is the full application configuration.
type Config struct {
	Backend   string `json:"backend"`
	DataDir   string `json:"data_dir"`
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	Retry RetryConfig  `json:"retry"`
	Charm charm.Config `json:"charm"`

	// MaxNotifications caps the feed; 0 keeps everything
	MaxNotifications int  `json:"max_notifications"`
	SeedWelcome      bool `json:"seed_welcome"`

	// Authenticated stands in for a real session check.
	Authenticated bool   `json:"authenticated"`
	DefaultOwner  string `json:"default_owner,omitempty"`
	DeviceID      string `json:"device_id,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	d := persist.DefaultOptions()
	return &Config{
		Backend:   BackendSQLite,
		DataDir:   DefaultDataDir(),
		LogLevel:  "info",
		LogFormat: "text",
		Retry: RetryConfig{
			MaxAttempts:     d.MaxAttempts,
			InitialInterval: Duration(d.InitialInterval),
			MaxInterval:     Duration(d.MaxInterval),
			Multiplier:      d.Multiplier,
			BreakerFailures: d.BreakerFailures,
			BreakerTimeout:  Duration(d.BreakerTimeout),
		},
		Charm:         *charm.DefaultConfig(),
		SeedWelcome:   true,
		Authenticated: true,
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DefaultDataDir returns the XDG data directory.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Load reads path (ConfigPath when empty), then .env, then the environment.
// A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// .env in the working directory, then next to the config file; existing env wins
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile decodes path over the defaults without any environment overrides.
func readFile(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer func() { _ = f.Close() }()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return cfg, nil
}

// applyEnvOverrides applies DEALBOARD_* variables on top of file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DEALBOARD_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("DEALBOARD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DEALBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DEALBOARD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("DEALBOARD_CHARM_HOST"); v != "" {
		cfg.Charm.Host = v
	}
	if v := os.Getenv("DEALBOARD_AUTO_SYNC"); v != "" {
		cfg.Charm.AutoSync = parseBool(v)
	}
	if v := os.Getenv("DEALBOARD_AUTHENTICATED"); v != "" {
		cfg.Authenticated = parseBool(v)
	}
	if v := os.Getenv("DEALBOARD_SEED_WELCOME"); v != "" {
		cfg.SeedWelcome = parseBool(v)
	}
	if v := os.Getenv("DEALBOARD_OWNER"); v != "" {
		cfg.DefaultOwner = v
	}
	if v := os.Getenv("DEALBOARD_MAX_NOTIFICATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEALBOARD_MAX_NOTIFICATIONS: %w", err)
		}
		cfg.MaxNotifications = n
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendBadger, BackendCharm, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want sqlite, badger, charm or memory)", c.Backend)
	}
	switch c.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("unknown log format %q (want text, json or logfmt)", c.LogFormat)
	}
	if c.MaxNotifications < 0 {
		return fmt.Errorf("max_notifications must not be negative")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// Save writes the config to path (ConfigPath when empty) with restricted permissions.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// DatabasePath is the SQLite file used by the sqlite backend.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "dealboard.db")
}

// BadgerDir is the directory used by the badger backend.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.DataDir, "kv")
}

// PersistOptions converts the retry settings for persist.NewWriter.
func (c *Config) PersistOptions() persist.Options {
	return persist.Options{
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: time.Duration(c.Retry.InitialInterval),
		MaxInterval:     time.Duration(c.Retry.MaxInterval),
		Multiplier:      c.Retry.Multiplier,
		BreakerFailures: c.Retry.BreakerFailures,
		BreakerTimeout:  time.Duration(c.Retry.BreakerTimeout),
	}
}

// EnsureDeviceID assigns a device id if the config has none and reports whether it did.
func (c *Config) EnsureDeviceID() bool {
	if c.DeviceID != "" {
		return false
	}
	c.DeviceID = GenerateDeviceID()
	return true
}

// PersistDeviceID returns the device id stored at path (ConfigPath when empty),
// generating and saving one if the file has none. Only the file's own values are
// written back, so .env and DEALBOARD_* overrides never leak into it.
func PersistDeviceID(path string) (string, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := readFile(path)
	if err != nil {
		return "", err
	}
	if !cfg.EnsureDeviceID() {
		return cfg.DeviceID, nil
	}
	if err := cfg.Save(path); err != nil {
		return cfg.DeviceID, err
	}
	return cfg.DeviceID, nil
}

// GenerateDeviceID generates a new ULID for device identification.
func GenerateDeviceID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
