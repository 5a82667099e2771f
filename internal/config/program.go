package config

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var validClusters = map[string]bool{
	"devnet":       true,
	"testnet":      true,
	"mainnet-beta": true,
	"localnet":     true,
}

type ProgramConfig struct {
	// Cluster the program is deployed to, selects the default program id
	Cluster string `mapstructure:"cluster"`
	// ProgramID overrides the cluster default when set (base58)
	ProgramID string `mapstructure:"program-id"`
}

func (cfg *ProgramConfig) Validate() error {
	if !validClusters[cfg.Cluster] {
		return fmt.Errorf("invalid cluster %q", cfg.Cluster)
	}

	if cfg.ProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
	}

	return nil
}
