package db

import (
	"context"
	"time"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/observability/metrics"
	"github.com/tedkimdev/nft-staking/internal/types"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.run("WithTransaction", func() error {
		return d.db.WithTransaction(ctx, fn)
	})
}

func (d *DbWithMetrics) SaveNewProgramConfig(ctx context.Context, doc *model.ProgramConfigDocument) error {
	return d.run("SaveNewProgramConfig", func() error {
		return d.db.SaveNewProgramConfig(ctx, doc)
	})
}

func (d *DbWithMetrics) GetProgramConfig(ctx context.Context, address string) (result *model.ProgramConfigDocument, err error) {
	//nolint:errcheck
	d.run("GetProgramConfig", func() error {
		result, err = d.db.GetProgramConfig(ctx, address)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateProgramConfig(ctx context.Context, doc *model.ProgramConfigDocument) error {
	return d.run("UpdateProgramConfig", func() error {
		return d.db.UpdateProgramConfig(ctx, doc)
	})
}

func (d *DbWithMetrics) SaveNewUserAccount(ctx context.Context, doc *model.UserAccountDocument) error {
	return d.run("SaveNewUserAccount", func() error {
		return d.db.SaveNewUserAccount(ctx, doc)
	})
}

func (d *DbWithMetrics) GetUserAccount(ctx context.Context, owner string) (result *model.UserAccountDocument, err error) {
	//nolint:errcheck
	d.run("GetUserAccount", func() error {
		result, err = d.db.GetUserAccount(ctx, owner)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateUserAccount(ctx context.Context, doc *model.UserAccountDocument) error {
	return d.run("UpdateUserAccount", func() error {
		return d.db.UpdateUserAccount(ctx, doc)
	})
}

func (d *DbWithMetrics) SaveNewStakeRecord(ctx context.Context, doc *model.StakeRecordDocument) error {
	return d.run("SaveNewStakeRecord", func() error {
		return d.db.SaveNewStakeRecord(ctx, doc)
	})
}

func (d *DbWithMetrics) GetStakeRecord(ctx context.Context, address string) (result *model.StakeRecordDocument, err error) {
	//nolint:errcheck
	d.run("GetStakeRecord", func() error {
		result, err = d.db.GetStakeRecord(ctx, address)
		return err
	})
	return
}

func (d *DbWithMetrics) GetStakeRecordsByOwner(ctx context.Context, owner string) (result []*model.StakeRecordDocument, err error) {
	//nolint:errcheck
	d.run("GetStakeRecordsByOwner", func() error {
		result, err = d.db.GetStakeRecordsByOwner(ctx, owner)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateStakeRecord(ctx context.Context, doc *model.StakeRecordDocument, qualifiedPreviousStates []types.StakeState) error {
	return d.run("UpdateStakeRecord", func() error {
		return d.db.UpdateStakeRecord(ctx, doc, qualifiedPreviousStates)
	})
}

func (d *DbWithMetrics) DeleteStakeRecord(ctx context.Context, address string, qualifiedPreviousStates []types.StakeState) error {
	return d.run("DeleteStakeRecord", func() error {
		return d.db.DeleteStakeRecord(ctx, address, qualifiedPreviousStates)
	})
}

func (d *DbWithMetrics) SaveNewVaultEntry(ctx context.Context, doc *model.VaultEntryDocument) error {
	return d.run("SaveNewVaultEntry", func() error {
		return d.db.SaveNewVaultEntry(ctx, doc)
	})
}

func (d *DbWithMetrics) GetVaultEntry(ctx context.Context, asset string) (result *model.VaultEntryDocument, err error) {
	//nolint:errcheck
	d.run("GetVaultEntry", func() error {
		result, err = d.db.GetVaultEntry(ctx, asset)
		return err
	})
	return
}

func (d *DbWithMetrics) DeleteVaultEntry(ctx context.Context, asset string) error {
	return d.run("DeleteVaultEntry", func() error {
		return d.db.DeleteVaultEntry(ctx, asset)
	})
}

func (d *DbWithMetrics) SaveNewAsset(ctx context.Context, doc *model.AssetDocument) error {
	return d.run("SaveNewAsset", func() error {
		return d.db.SaveNewAsset(ctx, doc)
	})
}

func (d *DbWithMetrics) GetAsset(ctx context.Context, mint string) (result *model.AssetDocument, err error) {
	//nolint:errcheck
	d.run("GetAsset", func() error {
		result, err = d.db.GetAsset(ctx, mint)
		return err
	})
	return
}

func (d *DbWithMetrics) TransferAsset(ctx context.Context, mint, from, to string) error {
	return d.run("TransferAsset", func() error {
		return d.db.TransferAsset(ctx, mint, from, to)
	})
}

func (d *DbWithMetrics) GetSignerNonce(ctx context.Context, signer string) (result *model.SignerNonceDocument, err error) {
	//nolint:errcheck
	d.run("GetSignerNonce", func() error {
		result, err = d.db.GetSignerNonce(ctx, signer)
		return err
	})
	return
}

func (d *DbWithMetrics) AdvanceSignerNonce(ctx context.Context, signer string, nonce uint64, updatedAt int64) error {
	return d.run("AdvanceSignerNonce", func() error {
		return d.db.AdvanceSignerNonce(ctx, signer, nonce, updatedAt)
	})
}

func (d *DbWithMetrics) CalculateStakeStats(ctx context.Context) (result *StakeStats, err error) {
	//nolint:errcheck
	d.run("CalculateStakeStats", func() error {
		result, err = d.db.CalculateStakeStats(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) UpsertOverallStats(ctx context.Context, stats *StakeStats, updatedAt int64) error {
	return d.run("UpsertOverallStats", func() error {
		return d.db.UpsertOverallStats(ctx, stats, updatedAt)
	})
}

func (d *DbWithMetrics) GetOverallStats(ctx context.Context) (result *model.OverallStatsDocument, err error) {
	//nolint:errcheck
	d.run("GetOverallStats", func() error {
		result, err = d.db.GetOverallStats(ctx)
		return err
	})
	return
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
