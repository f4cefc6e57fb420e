// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// minSecretLength matches what auth.NewTokenService accepts.
const minSecretLength = 16

// Config is every knob the server reads at startup.
type Config struct {
	Port           int           `env:"PORT"                 envDefault:"8080"`
	DBPath         string        `env:"DB_PATH"              envDefault:"data/inkwell.db"`
	AuthSecret     string        `env:"AUTH_SECRET,required"`
	SessionTTL     time.Duration `env:"SESSION_TTL"          envDefault:"168h"`
	CookieSecure   bool          `env:"COOKIE_SECURE"        envDefault:"false"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	BcryptCost     int           `env:"BCRYPT_COST"          envDefault:"12"`
	LogLevel       string        `env:"LOG_LEVEL"            envDefault:"info"`
	SeedCategories []string      `env:"SEED_CATEGORIES"      envSeparator:","`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: DB_PATH must not be empty")
	}
	if len(c.AuthSecret) < minSecretLength {
		return fmt.Errorf("config: AUTH_SECRET must be at least %d characters", minSecretLength)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level. Validate has already rejected
// unknown names, so the fallback is never used after Load.
func (c Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// Categories returns the trimmed, non-empty entries of SEED_CATEGORIES.
func (c Config) Categories() []string {
	var out []string
	for _, name := range c.SeedCategories {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
