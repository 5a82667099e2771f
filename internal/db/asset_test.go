//go:build integration

package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/testutil"
)

func TestAsset(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	asset := &model.AssetDocument{
		Mint:  testutil.RandomPublicKey(),
		Owner: testutil.RandomPublicKey(),
	}
	require.NoError(t, testDB.SaveNewAsset(ctx, asset))

	err := testDB.SaveNewAsset(ctx, asset)
	assert.True(t, db.IsDuplicateKeyError(err))

	t.Run("transfer from wrong holder", func(t *testing.T) {
		err := testDB.TransferAsset(ctx, asset.Mint, testutil.RandomPublicKey(), testutil.RandomPublicKey())
		require.Error(t, err)
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("transfer", func(t *testing.T) {
		to := testutil.RandomPublicKey()
		require.NoError(t, testDB.TransferAsset(ctx, asset.Mint, asset.Owner, to))

		stored, err := testDB.GetAsset(ctx, asset.Mint)
		require.NoError(t, err)
		assert.Equal(t, to, stored.Owner)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := testDB.GetAsset(ctx, testutil.RandomPublicKey())
		assert.True(t, db.IsNotFoundError(err))
	})
}

func TestAccounts(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	t.Run("program config", func(t *testing.T) {
		cfg := &model.ProgramConfigDocument{
			Address:          testutil.RandomPublicKey(),
			Authority:        testutil.RandomPublicKey(),
			RewardRate:       5,
			MinStakeDuration: 10,
		}
		require.NoError(t, testDB.SaveNewProgramConfig(ctx, cfg))
		assert.True(t, db.IsDuplicateKeyError(testDB.SaveNewProgramConfig(ctx, cfg)))

		cfg.RewardRate = 9
		cfg.MaxStake = 3
		cfg.UpdatedAt = 42
		require.NoError(t, testDB.UpdateProgramConfig(ctx, cfg))

		stored, err := testDB.GetProgramConfig(ctx, cfg.Address)
		require.NoError(t, err)
		assert.Equal(t, cfg, stored)

		_, err = testDB.GetProgramConfig(ctx, testutil.RandomPublicKey())
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("user account", func(t *testing.T) {
		user := model.NewUserAccountDocument(testutil.RandomPublicKey(), testutil.RandomPublicKey(), 254)
		require.NoError(t, testDB.SaveNewUserAccount(ctx, user))
		assert.True(t, db.IsDuplicateKeyError(testDB.SaveNewUserAccount(ctx, user)))

		user.Points = 60
		user.AmountStaked = 2
		require.NoError(t, testDB.UpdateUserAccount(ctx, user))

		stored, err := testDB.GetUserAccount(ctx, user.Owner)
		require.NoError(t, err)
		assert.Equal(t, user, stored)

		missing := model.NewUserAccountDocument(testutil.RandomPublicKey(), "", 0)
		assert.True(t, db.IsNotFoundError(testDB.UpdateUserAccount(ctx, missing)))
	})
}
