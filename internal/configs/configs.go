/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings come from operating system environment variables, optionally seeded from a .env
file, and cover the running environment, port, CORS allowed origins, token signing,
the optional account database, the Proof-of-Work difficulty, and the lifetimes used by the area engine and its reaper.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const maxPowDifficulty = 6

const defaultDevSecret = "your_default_insecure_secret_key_change_me"

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// Security Settings
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// PowDifficulty is the number of leading hex zeros area creation must prove. Zero disables the check.
	PowDifficulty int `env:"POW_DIFFICULTY" envDefault:"0"`

	// Database Settings. Registered logins are disabled when empty.
	DatabaseDSN string `env:"DATABASE_URL"`

	// Area Engine Settings
	UserIdleTimeout  time.Duration `env:"USER_IDLE_TIMEOUT" envDefault:"10m"`
	AreaIdleTimeout  time.Duration `env:"AREA_IDLE_TIMEOUT" envDefault:"30m"`
	ReapInterval     time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`
	AreaMaxOccupants int           `env:"AREA_MAX_OCCUPANTS" envDefault:"16"`
	ResponseTimeout  time.Duration `env:"RESPONSE_TIMEOUT" envDefault:"30s"`

	// CountdownDuration is the countdown between a successful ready check and play.
	CountdownDuration time.Duration `env:"COUNTDOWN_DURATION" envDefault:"5s"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads a .env file from the working directory when one exists, then
// parses the application configuration from environment variables.
// Variables already set in the environment take precedence over the file.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}
	return Parse()
}

// Parse builds an AppConfig from the current environment and validates it.
func Parse() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	origins := cfg.AllowedOrigins[:0]
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
		cfg.JWTSecret = defaultDevSecret
	}

	if cfg.PowDifficulty < 0 || cfg.PowDifficulty > maxPowDifficulty {
		return nil, fmt.Errorf("POW_DIFFICULTY must be between 0 and %d, got %d", maxPowDifficulty, cfg.PowDifficulty)
	}

	if cfg.AreaMaxOccupants < 0 {
		return nil, fmt.Errorf("AREA_MAX_OCCUPANTS must not be negative, got %d", cfg.AreaMaxOccupants)
	}
	if cfg.ReapInterval <= 0 {
		return nil, fmt.Errorf("REAP_INTERVAL must be positive, got %s", cfg.ReapInterval)
	}
	if cfg.ResponseTimeout <= 0 {
		return nil, fmt.Errorf("RESPONSE_TIMEOUT must be positive, got %s", cfg.ResponseTimeout)
	}
	if cfg.CountdownDuration < 0 {
		return nil, fmt.Errorf("COUNTDOWN_DURATION must not be negative, got %s", cfg.CountdownDuration)
	}

	return cfg, nil
}
