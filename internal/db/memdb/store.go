// Package memdb is an in-memory implementation of db.DbInterface backed by
// copy-on-write btrees. It keeps the same atomicity contract as the mongo
// store: every write happens inside a transaction and is applied on commit.
package memdb

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/reward"
	"github.com/tedkimdev/nft-staking/internal/types"
)

type Store struct {
	mu      sync.RWMutex
	version uint64
	tables  map[string]tableOps

	configs *table[model.ProgramConfigDocument]
	users   *table[model.UserAccountDocument]
	stakes  *table[model.StakeRecordDocument]
	vault   *table[model.VaultEntryDocument]
	assets  *table[model.AssetDocument]
	stats   *table[model.OverallStatsDocument]
	nonces  *table[model.SignerNonceDocument]
}

var _ db.DbInterface = (*Store)(nil)

func New() *Store {
	s := &Store{
		configs: newTable[model.ProgramConfigDocument](model.ProgramConfigCollection),
		users:   newTable[model.UserAccountDocument](model.UserAccountCollection),
		stakes:  newTable[model.StakeRecordDocument](model.StakeRecordCollection),
		vault:   newTable[model.VaultEntryDocument](model.VaultEntryCollection),
		assets:  newTable[model.AssetDocument](model.AssetCollection),
		stats:   newTable[model.OverallStatsDocument](model.OverallStatsCollection),
		nonces:  newTable[model.SignerNonceDocument](model.SignerNonceCollection),
	}
	s.tables = map[string]tableOps{
		s.configs.name: s.configs,
		s.users.name:   s.users,
		s.stakes.name:  s.stakes,
		s.vault.name:   s.vault,
		s.assets.name:  s.assets,
		s.stats.name:   s.stats,
		s.nonces.name:  s.nonces,
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WithTransaction runs fn against a private write set and applies it on
// success. Nested calls join the outer transaction. A commit that finds a row
// it read changed underneath it fails with db.TransientError and applies nothing.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txnFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &txn{
		reads:  make(map[rowKey]uint64),
		writes: make(map[rowKey]pending),
	}
	if err := fn(context.WithValue(ctx, txnKey{}, tx)); err != nil {
		return err
	}
	if len(tx.writes) == 0 {
		return nil
	}
	if err := s.commit(tx); err != nil {
		return &db.TransientError{Err: err}
	}
	return nil
}

func (s *Store) SaveNewProgramConfig(ctx context.Context, doc *model.ProgramConfigDocument) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, ok := lookup(s, ctx, s.configs, doc.Address); ok {
			return &db.DuplicateKeyError{Key: doc.Address, Message: "program config already exists"}
		}
		stage(ctx, s.configs, doc.Address, *doc)
		return nil
	})
}

func (s *Store) GetProgramConfig(ctx context.Context, address string) (result *model.ProgramConfigDocument, err error) {
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		doc, ok := lookup(s, ctx, s.configs, address)
		if !ok {
			return &db.NotFoundError{Key: address, Message: "program config not found"}
		}
		result = &doc
		return nil
	})
	return
}

func (s *Store) UpdateProgramConfig(ctx context.Context, doc *model.ProgramConfigDocument) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		current, ok := lookup(s, ctx, s.configs, doc.Address)
		if !ok {
			return &db.NotFoundError{Key: doc.Address, Message: "program config not found"}
		}
		current.Authority = doc.Authority
		current.RewardRate = doc.RewardRate
		current.MinStakeDuration = doc.MinStakeDuration
		current.MaxStake = doc.MaxStake
		current.UpdatedAt = doc.UpdatedAt
		stage(ctx, s.configs, doc.Address, current)
		return nil
	})
}

func (s *Store) SaveNewUserAccount(ctx context.Context, doc *model.UserAccountDocument) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, ok := lookup(s, ctx, s.users, doc.Owner); ok {
			return &db.DuplicateKeyError{Key: doc.Owner, Message: "user account already exists"}
		}
		stage(ctx, s.users, doc.Owner, *doc)
		return nil
	})
}

func (s *Store) GetUserAccount(ctx context.Context, owner string) (result *model.UserAccountDocument, err error) {
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		doc, ok := lookup(s, ctx, s.users, owner)
		if !ok {
			return &db.NotFoundError{Key: owner, Message: "user account not found"}
		}
		result = &doc
		return nil
	})
	return
}

func (s *Store) UpdateUserAccount(ctx context.Context, doc *model.UserAccountDocument) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		current, ok := lookup(s, ctx, s.users, doc.Owner)
		if !ok {
			return &db.NotFoundError{Key: doc.Owner, Message: "user account not found"}
		}
		current.Points = doc.Points
		current.AmountStaked = doc.AmountStaked
		stage(ctx, s.users, doc.Owner, current)
		return nil
	})
}

func (s *Store) SaveNewStakeRecord(ctx context.Context, doc *model.StakeRecordDocument) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, ok := lookup(s, ctx, s.stakes, doc.Address); ok {
			return &db.DuplicateKeyError{Key: doc.Address, Message: "stake record already exists"}
		}
		stage(ctx, s.stakes, doc.Address, *doc)
		return nil
	})
}

func (s *Store) GetStakeRecord(ctx context.Context, address string) (result *model.StakeRecordDocument, err error) {
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		doc, ok := lookup(s, ctx, s.stakes, address)
		if !ok {
			return &db.NotFoundError{Key: address, Message: "stake record not found"}
		}
		result = &doc
		return nil
	})
	return
}

func (s *Store) GetStakeRecordsByOwner(ctx context.Context, owner string) (result []*model.StakeRecordDocument, err error) {
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		scan(s, ctx, s.stakes, func(_ string, doc model.StakeRecordDocument) {
			if doc.Owner == owner {
				result = append(result, &doc)
			}
		})
		return nil
	})
	slices.SortFunc(result, func(a, b *model.StakeRecordDocument) int {
		if a.StakedAt != b.StakedAt {
			if a.StakedAt < b.StakedAt {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Address, b.Address)
	})
	return
}

func (s *Store) UpdateStakeRecord(
	ctx context.Context, doc *model.StakeRecordDocument, qualifiedPreviousStates []types.StakeState,
) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		current, ok := lookup(s, ctx, s.stakes, doc.Address)
		if !ok || !slices.Contains(qualifiedPreviousStates, current.State) {
			return &db.NotFoundError{
				Key:     doc.Address,
				Message: "stake record not found or current state is not qualified states",
			}
		}
		current.LastCheckpoint = doc.LastCheckpoint
		current.RewardRate = doc.RewardRate
		current.AccruedReward = doc.AccruedReward
		current.State = doc.State
		stage(ctx, s.stakes, doc.Address, current)
		return nil
	})
}

func (s *Store) DeleteStakeRecord(
	ctx context.Context, address string, qualifiedPreviousStates []types.StakeState,
) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		current, ok := lookup(s, ctx, s.stakes, address)
		if !ok || !slices.Contains(qualifiedPreviousStates, current.State) {
			return &db.NotFoundError{
				Key:     address,
				Message: "stake record not found or current state is not qualified states",
			}
		}
		unstage(ctx, s.stakes, address)
		return nil
	})
}

func (s *Store) SaveNewVaultEntry(ctx context.Context, doc *model.VaultEntryDocument) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, ok := lookup(s, ctx, s.vault, doc.Asset); ok {
			return &db.DuplicateKeyError{Key: doc.Asset, Message: "asset already held in vault"}
		}
		stage(ctx, s.vault, doc.Asset, *doc)
		return nil
	})
}

func (s *Store) GetVaultEntry(ctx context.Context, asset string) (result *model.VaultEntryDocument, err error) {
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		doc, ok := lookup(s, ctx, s.vault, asset)
		if !ok {
			return &db.NotFoundError{Key: asset, Message: "vault entry not found"}
		}
		result = &doc
		return nil
	})
	return
}

func (s *Store) DeleteVaultEntry(ctx context.Context, asset string) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, ok := lookup(s, ctx, s.vault, asset); !ok {
			return &db.NotFoundError{Key: asset, Message: "vault entry not found"}
		}
		unstage(ctx, s.vault, asset)
		return nil
	})
}

func (s *Store) SaveNewAsset(ctx context.Context, doc *model.AssetDocument) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, ok := lookup(s, ctx, s.assets, doc.Mint); ok {
			return &db.DuplicateKeyError{Key: doc.Mint, Message: "asset already exists"}
		}
		stage(ctx, s.assets, doc.Mint, *doc)
		return nil
	})
}

func (s *Store) GetAsset(ctx context.Context, mint string) (result *model.AssetDocument, err error) {
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		doc, ok := lookup(s, ctx, s.assets, mint)
		if !ok {
			return &db.NotFoundError{Key: mint, Message: "asset not found"}
		}
		result = &doc
		return nil
	})
	return
}

func (s *Store) TransferAsset(ctx context.Context, mint, from, to string) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		doc, ok := lookup(s, ctx, s.assets, mint)
		if !ok || doc.Owner != from {
			return &db.NotFoundError{Key: mint, Message: "asset not found or not held by sender"}
		}
		doc.Owner = to
		stage(ctx, s.assets, mint, doc)
		return nil
	})
}

func (s *Store) GetSignerNonce(ctx context.Context, signer string) (result *model.SignerNonceDocument, err error) {
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		doc, ok := lookup(s, ctx, s.nonces, signer)
		if !ok {
			return &db.NotFoundError{Key: signer, Message: "signer nonce not found"}
		}
		result = &doc
		return nil
	})
	return
}

func (s *Store) AdvanceSignerNonce(ctx context.Context, signer string, nonce uint64, updatedAt int64) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		if doc, ok := lookup(s, ctx, s.nonces, signer); ok && doc.LastNonce >= nonce {
			return &db.StaleNonceError{Signer: signer, Nonce: nonce}
		}
		stage(ctx, s.nonces, signer, model.SignerNonceDocument{
			Signer:    signer,
			LastNonce: nonce,
			UpdatedAt: updatedAt,
		})
		return nil
	})
}

func (s *Store) CalculateStakeStats(ctx context.Context) (*db.StakeStats, error) {
	stats := &db.StakeStats{}
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		scan(s, ctx, s.stakes, func(_ string, doc model.StakeRecordDocument) {
			if doc.State != types.StateStaked {
				return
			}
			stats.ActiveStakes++
			stats.UnclaimedReward = reward.SaturatingAdd(stats.UnclaimedReward, doc.AccruedReward)
		})
		scan(s, ctx, s.users, func(_ string, doc model.UserAccountDocument) {
			stats.ClaimedPoints = reward.SaturatingAdd(stats.ClaimedPoints, doc.Points)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) UpsertOverallStats(ctx context.Context, stats *db.StakeStats, updatedAt int64) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		// upsert is blind, the row does not need to be read first
		stage(ctx, s.stats, model.OverallStatsID, model.OverallStatsDocument{
			ID:              model.OverallStatsID,
			ActiveStakes:    stats.ActiveStakes,
			UnclaimedReward: stats.UnclaimedReward,
			ClaimedPoints:   stats.ClaimedPoints,
			LastUpdated:     updatedAt,
		})
		return nil
	})
}

func (s *Store) GetOverallStats(ctx context.Context) (result *model.OverallStatsDocument, err error) {
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		doc, ok := lookup(s, ctx, s.stats, model.OverallStatsID)
		if !ok {
			return &db.NotFoundError{Key: model.OverallStatsID, Message: "overall stats not found"}
		}
		result = &doc
		return nil
	})
	return
}
