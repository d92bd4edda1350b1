// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration. Admin identity, refund window,
// and capacity ceiling are fixed for the process lifetime; the oracle
// binding and default release percent are runtime state owned by the
// ledger and set through the admin API.
type Config struct {
	// Addr is the listen address.
	Addr string `env:"ADDR" envDefault:":8080"`

	// DBPath is the SQLite database file.
	DBPath string `env:"DB_PATH" envDefault:"./data/escrow.db"`

	// JWTSecret signs session tokens.
	JWTSecret string `env:"JWT_SECRET,required"`

	// TokenTTL is how long session tokens stay valid.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// AdminAccount is the administrator's account id.
	AdminAccount string `env:"ADMIN_ACCOUNT,required"`

	// RefundWindow is how long after creation a non-cancelled campaign
	// stays refund-eligible.
	RefundWindow time.Duration `env:"REFUND_WINDOW" envDefault:"24h"`

	// MaxFunds is the exclusive upper bound on fund ids.
	MaxFunds int64 `env:"MAX_FUNDS" envDefault:"1000"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is "text" (tint) or "json".
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
