package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func MintAssetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint-asset <mint> <owner>",
		Short: "Registers an asset on a localnet server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("mint", args[0])
			if err != nil {
				return err
			}
			owner, err := parsePublicKey("owner", args[1])
			if err != nil {
				return err
			}

			api, _, err := newApiClient()
			if err != nil {
				return err
			}
			if err := api.MintAsset(cmd.Context(), mint, owner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "minted %s to %s\n", mint, owner)
			return nil
		},
	}
}

func ShowConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Prints the program config",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := newApiClient()
			if err != nil {
				return err
			}
			cfg, err := api.GetConfig(cmd.Context())
			if err != nil {
				return err
			}
			dump(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func ShowStakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-stake <owner> <asset>",
		Short: "Prints a stake record and its pending reward",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parsePublicKey("owner", args[0])
			if err != nil {
				return err
			}
			asset, err := parsePublicKey("asset", args[1])
			if err != nil {
				return err
			}

			api, _, err := newApiClient()
			if err != nil {
				return err
			}
			stake, err := api.GetStake(cmd.Context(), owner, asset)
			if err != nil {
				return err
			}
			dump(cmd.OutOrStdout(), stake)
			return nil
		},
	}
}

func ShowUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-user <owner>",
		Short: "Prints a user account with its stakes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parsePublicKey("owner", args[0])
			if err != nil {
				return err
			}

			api, _, err := newApiClient()
			if err != nil {
				return err
			}
			user, err := api.GetUser(cmd.Context(), owner)
			if err != nil {
				return err
			}
			dump(cmd.OutOrStdout(), user)
			return nil
		},
	}
}

func ShowAssetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-asset <mint>",
		Short: "Prints the holder of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("mint", args[0])
			if err != nil {
				return err
			}

			api, _, err := newApiClient()
			if err != nil {
				return err
			}
			asset, err := api.GetAsset(cmd.Context(), mint)
			if err != nil {
				return err
			}
			dump(cmd.OutOrStdout(), asset)
			return nil
		},
	}
}

func ShowStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-stats",
		Short: "Prints the overall staking stats",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := newApiClient()
			if err != nil {
				return err
			}
			stats, err := api.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			dump(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}
