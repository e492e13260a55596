package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string        `env:"LOBBY_ADDR"             envDefault:":8080"`
	LogLevel        string        `env:"LOBBY_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"LOBBY_LOG_FORMAT"       envDefault:"json"`
	CodeLength      int           `env:"LOBBY_CODE_LENGTH"      envDefault:"6"`
	MinParticipants int           `env:"LOBBY_MIN_PARTICIPANTS" envDefault:"5"`
	MaxParticipants int           `env:"LOBBY_MAX_PARTICIPANTS" envDefault:"10"`
	InboxSize       int           `env:"LOBBY_INBOX_SIZE"       envDefault:"64"`
	OutboxSize      int           `env:"LOBBY_OUTBOX_SIZE"      envDefault:"16"`
	WSWriteTimeout  time.Duration `env:"LOBBY_WS_WRITE_TIMEOUT" envDefault:"3s"`
	WSPingInterval  time.Duration `env:"LOBBY_WS_PING_INTERVAL" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"LOBBY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"LOBBY_ALLOWED_ORIGINS"  envDefault:"*" envSeparator:","`
}

// Load reads an optional dotenv file, then the environment. Variables already
// set in the environment win over the file.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("LOBBY_ADDR cannot be empty")
	}
	if c.CodeLength < 4 {
		return fmt.Errorf("LOBBY_CODE_LENGTH must be at least 4, got %d", c.CodeLength)
	}
	if c.MinParticipants < 0 || c.MaxParticipants < 0 {
		return fmt.Errorf("participant limits cannot be negative")
	}
	if c.MaxParticipants > 0 && c.MinParticipants > c.MaxParticipants {
		return fmt.Errorf("LOBBY_MIN_PARTICIPANTS (%d) exceeds LOBBY_MAX_PARTICIPANTS (%d)", c.MinParticipants, c.MaxParticipants)
	}
	if c.InboxSize <= 0 || c.OutboxSize <= 0 {
		return fmt.Errorf("inbox and outbox sizes must be positive")
	}
	if c.WSWriteTimeout <= 0 || c.WSPingInterval <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOBBY_LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}
