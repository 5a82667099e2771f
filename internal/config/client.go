package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	defaultClientTimeout       = 15 * time.Second
	defaultClientMaxRetryTimes = 3
	defaultClientRetryInterval = 500 * time.Millisecond
)

// ClientConfig points the cli at a running server
type ClientConfig struct {
	URL           string        `mapstructure:"url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
	// KeypairPath is the solana keypair file used to sign instructions
	KeypairPath string `mapstructure:"keypair-path"`
}

func (cfg *ClientConfig) Validate() error {
	if cfg.URL == "" {
		return fmt.Errorf("client URL must be set")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid client URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported client URL scheme: %s", u.Scheme)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultClientTimeout
	}

	if cfg.MaxRetryTimes == 0 {
		cfg.MaxRetryTimes = defaultClientMaxRetryTimes
	}

	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultClientRetryInterval
	}

	return nil
}
