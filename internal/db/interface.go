package db

import (
	"context"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/types"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	// WithTransaction runs fn atomically. Store calls made with the ctx handed to fn
	// join the transaction; an error from fn aborts it and nothing fn wrote is kept.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// program config
	SaveNewProgramConfig(ctx context.Context, doc *model.ProgramConfigDocument) error
	GetProgramConfig(ctx context.Context, address string) (*model.ProgramConfigDocument, error)
	UpdateProgramConfig(ctx context.Context, doc *model.ProgramConfigDocument) error

	// user accounts
	SaveNewUserAccount(ctx context.Context, doc *model.UserAccountDocument) error
	GetUserAccount(ctx context.Context, owner string) (*model.UserAccountDocument, error)
	UpdateUserAccount(ctx context.Context, doc *model.UserAccountDocument) error

	// stake records
	SaveNewStakeRecord(ctx context.Context, doc *model.StakeRecordDocument) error
	GetStakeRecord(ctx context.Context, address string) (*model.StakeRecordDocument, error)
	GetStakeRecordsByOwner(ctx context.Context, owner string) ([]*model.StakeRecordDocument, error)
	// UpdateStakeRecord returns NotFoundError if the record is missing or its
	// current state is not one of qualifiedPreviousStates
	UpdateStakeRecord(
		ctx context.Context, doc *model.StakeRecordDocument, qualifiedPreviousStates []types.StakeState,
	) error
	DeleteStakeRecord(ctx context.Context, address string, qualifiedPreviousStates []types.StakeState) error

	// vault
	SaveNewVaultEntry(ctx context.Context, doc *model.VaultEntryDocument) error
	GetVaultEntry(ctx context.Context, asset string) (*model.VaultEntryDocument, error)
	DeleteVaultEntry(ctx context.Context, asset string) error

	// asset registry
	SaveNewAsset(ctx context.Context, doc *model.AssetDocument) error
	GetAsset(ctx context.Context, mint string) (*model.AssetDocument, error)
	// TransferAsset returns NotFoundError if mint is missing or not held by from
	TransferAsset(ctx context.Context, mint, from, to string) error

	// signer nonces
	GetSignerNonce(ctx context.Context, signer string) (*model.SignerNonceDocument, error)
	// AdvanceSignerNonce returns StaleNonceError unless nonce is above the
	// last nonce stored for signer
	AdvanceSignerNonce(ctx context.Context, signer string, nonce uint64, updatedAt int64) error

	// stats
	CalculateStakeStats(ctx context.Context) (*StakeStats, error)
	UpsertOverallStats(ctx context.Context, stats *StakeStats, updatedAt int64) error
	GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error)
}

// StakeStats is the result of aggregating stake records and user accounts
type StakeStats struct {
	ActiveStakes    uint64
	UnclaimedReward uint64
	ClaimedPoints   uint64
}

var (
	_ DbInterface = (*Database)(nil)
	_ DbInterface = (*DbWithMetrics)(nil)
)
