package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries all runtime settings. Every field has an env override so
// deployments stay twelve-factor; defaults target a local stack.
type Config struct {
	Port int `env:"PORT" envDefault:"3001"`

	// External collaborators.
	LedgerAPIBase   string `env:"LEDGER_API_BASE" envDefault:"http://localhost:4000/api"`
	IdentityAPIBase string `env:"IDENTITY_API_BASE" envDefault:"http://localhost:4000/auth"`
	RPCEndpoint     string `env:"RPC_ENDPOINT" envDefault:"https://api.devnet.solana.com"`

	// URLs baked into composed responses.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3001"`
	AppBaseURL    string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	ActionIconURL string `env:"ACTION_ICON_URL" envDefault:"http://localhost:3000/icon.png"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ClientTimeout  time.Duration `env:"CLIENT_TIMEOUT" envDefault:"5s"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"30"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
