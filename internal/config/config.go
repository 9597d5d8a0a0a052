// Package config loads the service's ambient configuration once at startup
// from the process environment. The result is treated as immutable: nothing
// downstream re-reads os.Getenv after Load returns.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-derived setting the service needs to run.
type Config struct {
	// DatabaseURL is the Postgres connection string for internal/store.
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Port is the HTTP listen port for internal/api.
	Port string `env:"PORT" envDefault:"8080"`

	// CORSOriginURL, if set, is an origin the CORS middleware allows in
	// addition to http://localhost origins, which are always allowed.
	CORSOriginURL string `env:"CORS_ORIGIN_URL"`

	// VaultStorage is the base address of the Vault KV v2 mount used by
	// internal/secretstore.
	VaultStorage string `env:"VAULT_STORAGE,required,notEmpty"`

	// VaultToken authenticates requests to VaultStorage.
	VaultToken string `env:"VAULT_TOKEN,required,notEmpty"`
}

// Load parses Config from the current environment, failing fast if a
// required variable is absent or empty rather than starting the service
// half configured.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
