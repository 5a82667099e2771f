package staking

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/internal/types"
)

// InitializeConfig creates the program config with authority as its only admin
func (s *Service) InitializeConfig(
	ctx context.Context, authority solana.PublicKey, args program.InitializeConfigArgs,
) error {
	if authority.IsZero() {
		return types.Wrap(types.ErrUnauthorized, "missing authority")
	}
	if args.MinStakeDuration < 0 {
		return types.Wrap(types.ErrBadRequest, "min stake duration must not be negative")
	}

	accts := accounts{writes: []string{s.config.String()}}
	return s.execute(ctx, program.InitializeConfigInstruction, accts, func(ctx context.Context) (*queue.StakeEvent, error) {
		now := s.clock.Now()
		doc := &model.ProgramConfigDocument{
			Address:          s.config.String(),
			Authority:        authority.String(),
			RewardRate:       args.RewardRate,
			MinStakeDuration: args.MinStakeDuration,
			MaxStake:         args.MaxStake,
			Bump:             s.config.Bump,
			UpdatedAt:        now,
		}
		if err := s.db.SaveNewProgramConfig(ctx, doc); err != nil {
			if db.IsDuplicateKeyError(err) {
				return nil, types.Wrap(types.ErrAlreadyInitialized, "program config already exists")
			}
			return nil, internalError("failed to save program config: %w", err)
		}

		ev := queue.NewConfigUpdatedEvent(authority.String(), args.RewardRate, now)
		return &ev, nil
	})
}

// Configure updates the fields set in args. Only the config authority may call it.
// Stake records are untouched: a new rate reaches a record at its next checkpoint.
func (s *Service) Configure(ctx context.Context, caller solana.PublicKey, args program.ConfigureArgs) error {
	if args.MinStakeDuration != nil && *args.MinStakeDuration < 0 {
		return types.Wrap(types.ErrBadRequest, "min stake duration must not be negative")
	}

	accts := accounts{writes: []string{s.config.String()}}
	return s.execute(ctx, program.ConfigureInstruction, accts, func(ctx context.Context) (*queue.StakeEvent, error) {
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return nil, err
		}
		if cfg.Authority != caller.String() {
			return nil, types.Wrap(types.ErrUnauthorized, "%s is not the config authority", caller)
		}

		if args.RewardRate != nil {
			cfg.RewardRate = *args.RewardRate
		}
		if args.MinStakeDuration != nil {
			cfg.MinStakeDuration = *args.MinStakeDuration
		}
		if args.MaxStake != nil {
			cfg.MaxStake = *args.MaxStake
		}
		cfg.UpdatedAt = s.clock.Now()

		if err := s.db.UpdateProgramConfig(ctx, cfg); err != nil {
			return nil, internalError("failed to update program config: %w", err)
		}

		ev := queue.NewConfigUpdatedEvent(cfg.Authority, cfg.RewardRate, cfg.UpdatedAt)
		return &ev, nil
	})
}

func (s *Service) GetConfig(ctx context.Context) (*model.ProgramConfigDocument, error) {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, normalizeError(err)
	}
	return cfg, nil
}

func (s *Service) loadConfig(ctx context.Context) (*model.ProgramConfigDocument, error) {
	cfg, err := s.db.GetProgramConfig(ctx, s.config.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.Wrap(types.ErrNotInitialized, "program config is not initialized")
		}
		return nil, internalError("failed to get program config: %w", err)
	}
	return cfg, nil
}
