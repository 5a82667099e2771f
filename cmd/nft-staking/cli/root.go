package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	defaultConfigFileName  = "config.yml"
	defaultKeypairFileName = ".config/solana/id.json"
)

var (
	cfgPath     string
	serverURL   string
	keypairPath string
	rootCmd     = &cobra.Command{
		Use:           "nft-staking",
		Short:         "NFT staking program server and client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := getDefaultConfigFile(homePath, defaultConfigFileName)
	defaultKeypairPath := filepath.Join(homePath, defaultKeypairFileName)

	rootCmd.AddCommand(StartServerCmd())
	rootCmd.AddCommand(KeygenCmd())
	rootCmd.AddCommand(InitConfigCmd())
	rootCmd.AddCommand(InitUserCmd())
	rootCmd.AddCommand(StakeCmd())
	rootCmd.AddCommand(ClaimCmd())
	rootCmd.AddCommand(UnstakeCmd())
	rootCmd.AddCommand(ConfigureCmd())
	rootCmd.AddCommand(MintAssetCmd())
	rootCmd.AddCommand(TransferAssetCmd())
	rootCmd.AddCommand(ShowConfigCmd())
	rootCmd.AddCommand(ShowStakeCmd())
	rootCmd.AddCommand(ShowUserCmd())
	rootCmd.AddCommand(ShowAssetCmd())
	rootCmd.AddCommand(ShowStatsCmd())

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "api server url, overrides the client section of the config")
	rootCmd.PersistentFlags().StringVar(&keypairPath, "keypair", defaultKeypairPath, "solana keypair file used to sign instructions")

	return rootCmd.Execute()
}

func getDefaultConfigFile(homePath, filename string) string {
	return filepath.Join(homePath, filename)
}

func GetConfigPath() string {
	return cfgPath
}
