package config

import (
	"fmt"
	"net/url"
)

const (
	DbBackendMongo  = "mongo"
	DbBackendMemory = "memory"
)

type DbConfig struct {
	// Backend selects the account store: "mongo" (default) or "memory"
	Backend  string `mapstructure:"backend"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"db-name"`
	Address  string `mapstructure:"address"`
}

func (cfg *DbConfig) IsMemory() bool {
	return cfg.Backend == DbBackendMemory
}

func (cfg *DbConfig) Validate() error {
	switch cfg.Backend {
	case "", DbBackendMongo:
	case DbBackendMemory:
		// nothing else to check for the in-memory store
		return nil
	default:
		return fmt.Errorf("unknown db backend %q", cfg.Backend)
	}

	if cfg.Username == "" {
		return fmt.Errorf("missing db username")
	}

	if cfg.Password == "" {
		return fmt.Errorf("missing db password")
	}

	if cfg.Address == "" {
		return fmt.Errorf("missing db address")
	}

	if cfg.DbName == "" {
		return fmt.Errorf("missing db name")
	}

	u, err := url.Parse(cfg.Address)
	if err != nil {
		return fmt.Errorf("invalid db address: %w", err)
	}

	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return fmt.Errorf("unsupported db address scheme: %s", u.Scheme)
	}

	return nil
}
