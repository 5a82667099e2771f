package staking

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/observability/metrics"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/internal/reward"
	"github.com/tedkimdev/nft-staking/internal/types"
	"github.com/tedkimdev/nft-staking/internal/utils/state"
)

// Stake moves asset into custody and opens a stake record for owner
func (s *Service) Stake(ctx context.Context, caller, owner, asset solana.PublicKey) error {
	if caller != owner {
		return types.Wrap(types.ErrUnauthorized, "%s cannot stake on behalf of %s", caller, owner)
	}

	stakeAddr, err := s.stakeAddress(owner, asset)
	if err != nil {
		return err
	}

	var now int64
	accts := s.stakeAccounts(stakeAddr, owner, asset)
	err = s.execute(ctx, program.StakeInstruction, accts, func(ctx context.Context) (*queue.StakeEvent, error) {
		if err := s.vault.EnsureNotInCustody(ctx, asset); err != nil {
			return nil, err
		}
		if err := s.ensureAssetOwner(ctx, asset, owner); err != nil {
			return nil, err
		}
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return nil, err
		}

		user, isNew, err := s.loadOrCreateUser(ctx, owner)
		if err != nil {
			return nil, err
		}
		if cfg.MaxStake > 0 && user.AmountStaked >= cfg.MaxStake {
			return nil, types.Wrap(types.ErrMaxStakeReached, "%s already staked %d assets", owner, user.AmountStaked)
		}
		if user.AmountStaked == ^uint32(0) {
			return nil, types.Wrap(types.ErrArithmeticOverflow, "staked asset counter of %s overflows", owner)
		}

		now = s.clock.Now()
		record := model.NewStakeRecordDocument(
			stakeAddr.String(), owner.String(), asset.String(), s.config.String(),
			now, cfg.RewardRate, stakeAddr.Bump,
		)
		if !state.IsQualifiedStateForStakeStateChange(types.StateEmpty, record.State) {
			return nil, internalError("invalid stake state transition to %s", record.State)
		}
		if err := s.db.SaveNewStakeRecord(ctx, record); err != nil {
			if db.IsDuplicateKeyError(err) {
				return nil, types.Wrap(types.ErrAlreadyStaked, "asset %s is already staked", asset)
			}
			return nil, internalError("failed to save stake record: %w", err)
		}
		if err := s.vault.Deposit(ctx, record, now); err != nil {
			return nil, err
		}

		user.AmountStaked++
		if err := s.saveUser(ctx, user, isNew); err != nil {
			return nil, err
		}

		ev := queue.NewStakedEvent(owner.String(), asset.String(), now)
		return &ev, nil
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str("owner", owner.String()).
		Str("asset", asset.String()).
		Int64("staked_at", now).
		Msg("asset staked")
	return nil
}

// Claim pays out the reward accrued since the last checkpoint and moves the
// checkpoint to now. Claiming nothing is an error and changes nothing.
func (s *Service) Claim(ctx context.Context, caller, owner, asset solana.PublicKey) (uint64, error) {
	stakeAddr, err := s.stakeAddress(owner, asset)
	if err != nil {
		return 0, err
	}

	var amount uint64
	accts := accounts{
		writes: []string{stakeAddr.String(), userLockKey(owner)},
		reads:  []string{s.config.String()},
	}
	err = s.execute(ctx, program.ClaimInstruction, accts, func(ctx context.Context) (*queue.StakeEvent, error) {
		record, err := s.loadStakedRecord(ctx, stakeAddr, caller)
		if err != nil {
			return nil, err
		}
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		total, err := checkpoint(record, now, cfg.RewardRate)
		if err != nil {
			return nil, err
		}
		if total == 0 {
			return nil, types.Wrap(types.ErrNothingToClaim, "no reward accrued for asset %s", asset)
		}

		if !state.IsQualifiedStateForStakeStateChange(record.State, types.StateStaked) {
			return nil, internalError("invalid stake state transition from %s", record.State)
		}
		if err := s.db.UpdateStakeRecord(ctx, record, types.QualifiedStatesForClaim()); err != nil {
			return nil, staleRecordError(err, asset)
		}
		if err := s.creditUser(ctx, owner, total, 0); err != nil {
			return nil, err
		}

		amount = total
		ev := queue.NewClaimedEvent(owner.String(), asset.String(), amount, now)
		return &ev, nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordRewardPaid(program.ClaimInstruction.String(), amount)
	return amount, nil
}

// Unstake settles the final reward, returns asset to its owner and closes the
// stake record. A zero final reward is allowed.
func (s *Service) Unstake(ctx context.Context, caller, owner, asset solana.PublicKey) (uint64, error) {
	stakeAddr, err := s.stakeAddress(owner, asset)
	if err != nil {
		return 0, err
	}

	var amount uint64
	accts := s.stakeAccounts(stakeAddr, owner, asset)
	err = s.execute(ctx, program.UnstakeInstruction, accts, func(ctx context.Context) (*queue.StakeEvent, error) {
		record, err := s.loadStakedRecord(ctx, stakeAddr, caller)
		if err != nil {
			return nil, err
		}
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		if staked := reward.Elapsed(record.StakedAt, now); staked < cfg.MinStakeDuration {
			return nil, types.Wrap(
				types.ErrStakeTooShort,
				"asset %s staked for %ds, minimum is %ds", asset, staked, cfg.MinStakeDuration,
			)
		}

		total, err := checkpoint(record, now, cfg.RewardRate)
		if err != nil {
			return nil, err
		}

		if !state.IsQualifiedStateForStakeStateChange(record.State, types.StateUnstaking) {
			return nil, internalError("invalid stake state transition from %s", record.State)
		}
		record.State = types.StateUnstaking
		if err := s.db.UpdateStakeRecord(ctx, record, types.QualifiedStatesForUnstake()); err != nil {
			return nil, staleRecordError(err, asset)
		}

		if err := s.creditUser(ctx, owner, total, 1); err != nil {
			return nil, err
		}
		if err := s.vault.Release(ctx, record); err != nil {
			return nil, err
		}

		if !state.IsQualifiedStateForStakeStateChange(record.State, types.StateEmpty) {
			return nil, internalError("invalid stake state transition from %s", record.State)
		}
		if err := s.db.DeleteStakeRecord(ctx, record.Address, types.QualifiedStatesForRelease()); err != nil {
			return nil, staleRecordError(err, asset)
		}

		amount = total
		ev := queue.NewUnstakedEvent(owner.String(), asset.String(), amount, now)
		return &ev, nil
	})
	if err != nil {
		return 0, err
	}

	log.Ctx(ctx).Info().
		Str("owner", owner.String()).
		Str("asset", asset.String()).
		Uint64("reward", amount).
		Msg("asset unstaked")
	if amount > 0 {
		metrics.RecordRewardPaid(program.UnstakeInstruction.String(), amount)
	}
	return amount, nil
}

func (s *Service) GetStakeRecord(ctx context.Context, owner, asset solana.PublicKey) (*model.StakeRecordDocument, error) {
	stakeAddr, err := s.stakeAddress(owner, asset)
	if err != nil {
		return nil, err
	}
	record, err := s.db.GetStakeRecord(ctx, stakeAddr.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.Wrap(types.ErrNotStaked, "asset %s is not staked by %s", asset, owner)
		}
		return nil, internalError("failed to get stake record: %w", err)
	}
	return record, nil
}

func (s *Service) GetStakeRecordsByOwner(ctx context.Context, owner solana.PublicKey) ([]*model.StakeRecordDocument, error) {
	records, err := s.db.GetStakeRecordsByOwner(ctx, owner.String())
	if err != nil {
		return nil, internalError("failed to get stake records of %s: %w", owner, err)
	}
	return records, nil
}

// PendingReward is what a claim would pay right now, without changing anything
func (s *Service) PendingReward(record *model.StakeRecordDocument) uint64 {
	if record.State != types.StateStaked {
		return 0
	}
	return reward.SaturatingAdd(
		record.AccruedReward,
		reward.Accrue(reward.Elapsed(record.LastCheckpoint, s.clock.Now()), record.RewardRate),
	)
}

func (s *Service) stakeAddress(owner, asset solana.PublicKey) (ledger.Address, error) {
	addr, err := s.addresses.Stake(owner, asset, s.config.Key)
	if err != nil {
		return ledger.Address{}, types.NewInternalServiceError(err)
	}
	return addr, nil
}

// stakeAccounts are the accounts touched by stake and unstake
func (s *Service) stakeAccounts(stakeAddr ledger.Address, owner, asset solana.PublicKey) accounts {
	return accounts{
		writes: []string{stakeAddr.String(), assetLockKey(asset), userLockKey(owner)},
		reads:  []string{s.config.String()},
	}
}

// loadStakedRecord returns the STAKED record at addr, checking caller is its owner
func (s *Service) loadStakedRecord(
	ctx context.Context, addr ledger.Address, caller solana.PublicKey,
) (*model.StakeRecordDocument, error) {
	record, err := s.db.GetStakeRecord(ctx, addr.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.Wrap(types.ErrNotStaked, "no stake record at %s", addr)
		}
		return nil, internalError("failed to get stake record: %w", err)
	}
	if record.State != types.StateStaked {
		return nil, types.Wrap(types.ErrNotStaked, "stake record %s is %s", addr, record.State)
	}
	if record.Owner != caller.String() {
		return nil, types.Wrap(types.ErrUnauthorized, "%s does not own stake record %s", caller, addr)
	}
	return record, nil
}

func (s *Service) ensureAssetOwner(ctx context.Context, asset, owner solana.PublicKey) error {
	doc, err := s.db.GetAsset(ctx, asset.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return types.Wrap(types.ErrUnauthorized, "asset %s does not exist", asset)
		}
		return internalError("failed to get asset: %w", err)
	}
	if doc.Owner != owner.String() {
		return types.Wrap(types.ErrUnauthorized, "asset %s is not held by %s", asset, owner)
	}
	return nil
}

// creditUser adds amount to the points of owner and decrements the staked
// asset counter by released
func (s *Service) creditUser(ctx context.Context, owner solana.PublicKey, amount uint64, released uint32) error {
	user, err := s.db.GetUserAccount(ctx, owner.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return internalError("staker %s has no user account", owner)
		}
		return internalError("failed to get user account: %w", err)
	}

	points, err := reward.CheckedAdd(user.Points, amount)
	if err != nil {
		return types.Wrap(types.ErrArithmeticOverflow, "points of %s: %s", owner, err.Error())
	}
	if user.AmountStaked < released {
		return internalError("staked asset counter of %s is already zero", owner)
	}

	user.Points = points
	user.AmountStaked -= released
	if err := s.db.UpdateUserAccount(ctx, user); err != nil {
		return internalError("failed to update user account: %w", err)
	}
	return nil
}

// checkpoint folds the reward accrued since the last checkpoint into the total
// owed, moves the checkpoint to now and snapshots rate for the next period.
// The record's accrued reward is reset because the total is paid out by the caller.
func checkpoint(record *model.StakeRecordDocument, now int64, rate uint64) (uint64, error) {
	accrued := reward.Accrue(reward.Elapsed(record.LastCheckpoint, now), record.RewardRate)
	total, err := reward.CheckedAdd(record.AccruedReward, accrued)
	if err != nil {
		if errors.Is(err, reward.ErrOverflow) {
			return 0, types.Wrap(types.ErrArithmeticOverflow, "reward of %s: %s", record.Address, err.Error())
		}
		return 0, types.NewInternalServiceError(err)
	}

	// a clock behind the checkpoint never moves it backwards
	if now > record.LastCheckpoint {
		record.LastCheckpoint = now
	}
	record.RewardRate = rate
	record.AccruedReward = 0
	return total, nil
}

// staleRecordError maps a qualified update that matched nothing. The record
// was read in the same transaction, so this only happens on a lost race.
func staleRecordError(err error, asset solana.PublicKey) error {
	if db.IsNotFoundError(err) {
		return types.Wrap(types.ErrNotStaked, "stake record of asset %s changed concurrently", asset)
	}
	return internalError("failed to update stake record of asset %s: %w", asset, err)
}
