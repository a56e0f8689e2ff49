// Package config loads environment variables into the typed Config used across the relay.
// Defaults let the binary run locally with nothing but a bot token; the token may also be
// passed on the command line (see ApplyArgs).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends understood by store/backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// ErrMissingToken is returned by Validate when no bot token was configured.
var ErrMissingToken = errors.New("missing TELEGRAM_BOT_TOKEN (env or first argument)")

type Config struct {
	// Telegram
	BotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	APIBaseURL  string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	PollTimeout time.Duration `env:"POLL_TIMEOUT" envDefault:"30s"`

	// Storage
	Backend   string `env:"STORE_BACKEND" envDefault:"sqlite"`
	DBPath    string `env:"DB_PATH"`
	DBDsn     string `env:"DB_DSN"`
	BadgerDir string `env:"BADGER_DIR"`
	DataDir   string `env:"DATA_DIR"`

	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// HTTP_ADDR=off disables the operational server.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// Load reads environment variables and applies defaults. It doesn't fail on a missing token;
// call Validate once command line overrides were applied.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.DataDir = filepath.Join(home, "telegram-signature-bot", "data")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, cfg.Environment+".db")
	}
	if cfg.BadgerDir == "" {
		cfg.BadgerDir = filepath.Join(cfg.DataDir, cfg.Environment+".badger")
	}
	return cfg, nil
}

// ApplyArgs applies command line overrides: -token, -db, and a bare first argument taken as the token.
func (c *Config) ApplyArgs(args []string) error {
	fs := flag.NewFlagSet("signature-relay", flag.ContinueOnError)
	token := fs.String("token", "", "Telegram bot token (overrides TELEGRAM_BOT_TOKEN)")
	dbPath := fs.String("db", "", "SQLite database file (overrides DB_PATH)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" && fs.NArg() > 0 {
		*token = fs.Arg(0)
	}
	if *token != "" {
		c.BotToken = *token
	}
	if *dbPath != "" {
		c.DBPath = *dbPath
	}
	return nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return ErrMissingToken
	}
	switch c.Backend {
	case BackendSQLite, BackendPostgres, BackendBadger:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want sqlite, postgres or badger)", c.Backend)
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("POLL_TIMEOUT must not be negative, got %s", c.PollTimeout)
	}
	return nil
}

// HTTPEnabled reports whether the operational HTTP server should run.
func (c *Config) HTTPEnabled() bool { return c.HTTPAddr != "" && c.HTTPAddr != "off" }

// MaskedToken returns the token with everything but its last 6 characters hidden, for logs.
func (c *Config) MaskedToken() string {
	if len(c.BotToken) <= 6 {
		return "***"
	}
	return "***" + c.BotToken[len(c.BotToken)-6:]
}
