package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "NFT_STAKING"

type Config struct {
	Db      DbConfig      `mapstructure:"db"`
	Program ProgramConfig `mapstructure:"program"`
	Server  ServerConfig  `mapstructure:"server"`
	Poller  PollerConfig  `mapstructure:"poller"`
	Queue   *QueueConfig  `mapstructure:"queue"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Client  *ClientConfig `mapstructure:"client"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Db.Validate(); err != nil {
		return err
	}

	if err := cfg.Program.Validate(); err != nil {
		return err
	}

	if err := cfg.Server.Validate(); err != nil {
		return err
	}

	if err := cfg.Poller.Validate(); err != nil {
		return err
	}

	// queue is optional, events are not published when it is absent
	if cfg.Queue != nil {
		if err := cfg.Queue.Validate(); err != nil {
			return err
		}
	}

	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}

	if cfg.Client != nil {
		if err := cfg.Client.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// New returns a fully parsed Config object from a given file path.
// Every key can be overridden from the environment, e.g. NFT_STAKING_DB_PASSWORD.
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", cfgFile, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
