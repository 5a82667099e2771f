package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tedkimdev/nft-staking/internal/program"
)

func InitConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Creates the program config with the signer as authority",
		Args:  cobra.ExactArgs(0),
		RunE:  initConfig,
	}
	cmd.Flags().Uint64("reward-rate", 1, "reward points per second staked")
	cmd.Flags().Int64("min-stake-duration", 0, "seconds an asset must stay staked before unstake")
	cmd.Flags().Uint32("max-stake", 0, "maximum concurrent stakes per user, 0 for unlimited")

	return cmd
}

func initConfig(cmd *cobra.Command, args []string) error {
	c, _, err := newProgramClient(cmd.Context())
	if err != nil {
		return err
	}

	var ixArgs program.InitializeConfigArgs
	if ixArgs.RewardRate, err = cmd.Flags().GetUint64("reward-rate"); err != nil {
		return err
	}
	if ixArgs.MinStakeDuration, err = cmd.Flags().GetInt64("min-stake-duration"); err != nil {
		return err
	}
	if ixArgs.MaxStake, err = cmd.Flags().GetUint32("max-stake"); err != nil {
		return err
	}

	if err := c.InitializeConfig(cmd.Context(), ixArgs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "config initialized, authority %s\n", c.PublicKey())
	return nil
}

func InitUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-user",
		Short: "Creates the user account of the signer",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newProgramClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.InitializeUser(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user account created for %s\n", c.PublicKey())
			return nil
		},
	}
}

func StakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stake [owner] <asset>",
		Short: "Stakes an asset held by the signer",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newProgramClient(cmd.Context())
			if err != nil {
				return err
			}
			owner, asset, err := parseOwnerAndAsset(c.PublicKey(), args)
			if err != nil {
				return err
			}
			if err := c.Stake(cmd.Context(), owner, asset); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "staked %s\n", asset)
			return nil
		},
	}
}

func ClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim [owner] <asset>",
		Short: "Claims the reward accrued by a staked asset",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newProgramClient(cmd.Context())
			if err != nil {
				return err
			}
			owner, asset, err := parseOwnerAndAsset(c.PublicKey(), args)
			if err != nil {
				return err
			}
			amount, err := c.Claim(cmd.Context(), owner, asset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "claimed %d points\n", amount)
			return nil
		},
	}
}

func UnstakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unstake [owner] <asset>",
		Short: "Unstakes an asset, paying out the remaining reward",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newProgramClient(cmd.Context())
			if err != nil {
				return err
			}
			owner, asset, err := parseOwnerAndAsset(c.PublicKey(), args)
			if err != nil {
				return err
			}
			amount, err := c.Unstake(cmd.Context(), owner, asset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unstaked %s, paid %d points\n", asset, amount)
			return nil
		},
	}
}

func ConfigureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Updates the program config, only flags that are set change",
		Args:  cobra.ExactArgs(0),
		RunE:  configure,
	}
	cmd.Flags().Uint64("reward-rate", 0, "reward points per second staked")
	cmd.Flags().Int64("min-stake-duration", 0, "seconds an asset must stay staked before unstake")
	cmd.Flags().Uint32("max-stake", 0, "maximum concurrent stakes per user, 0 for unlimited")

	return cmd
}

func configure(cmd *cobra.Command, args []string) error {
	var ixArgs program.ConfigureArgs
	flags := cmd.Flags()

	if flags.Changed("reward-rate") {
		v, err := flags.GetUint64("reward-rate")
		if err != nil {
			return err
		}
		ixArgs.RewardRate = &v
	}
	if flags.Changed("min-stake-duration") {
		v, err := flags.GetInt64("min-stake-duration")
		if err != nil {
			return err
		}
		ixArgs.MinStakeDuration = &v
	}
	if flags.Changed("max-stake") {
		v, err := flags.GetUint32("max-stake")
		if err != nil {
			return err
		}
		ixArgs.MaxStake = &v
	}
	if ixArgs.RewardRate == nil && ixArgs.MinStakeDuration == nil && ixArgs.MaxStake == nil {
		return fmt.Errorf("nothing to configure, set at least one flag")
	}

	c, _, err := newProgramClient(cmd.Context())
	if err != nil {
		return err
	}
	if err := c.Configure(cmd.Context(), ixArgs); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "config updated")
	return nil
}

func TransferAssetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-asset <asset> <recipient>",
		Short: "Transfers an asset held by the signer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newProgramClient(cmd.Context())
			if err != nil {
				return err
			}
			asset, err := parsePublicKey("asset", args[0])
			if err != nil {
				return err
			}
			recipient, err := parsePublicKey("recipient", args[1])
			if err != nil {
				return err
			}
			if err := c.TransferAsset(cmd.Context(), asset, recipient); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transferred %s to %s\n", asset, recipient)
			return nil
		},
	}
}
