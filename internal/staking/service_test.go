package staking_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tedkimdev/nft-staking/internal/db/memdb"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/internal/staking"
	"github.com/tedkimdev/nft-staking/internal/types"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PushStakeEvent(ctx context.Context, ev *queue.StakeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *mockPublisher) Shutdown() {}

type fixture struct {
	svc       *staking.Service
	store     *memdb.Store
	clock     *ledger.ManualClock
	publisher *mockPublisher
	authority solana.PrivateKey
}

func newFixture(t *testing.T, args program.InitializeConfigArgs) *fixture {
	t.Helper()

	f := &fixture{
		store:     memdb.New(),
		clock:     ledger.NewManualClock(0),
		publisher: &mockPublisher{},
		authority: solana.NewWallet().PrivateKey,
	}
	f.publisher.On("PushStakeEvent", mock.Anything, mock.Anything).Return(nil)

	svc, err := staking.NewService(f.store, f.clock, program.NftStakingProgramID, f.publisher)
	require.NoError(t, err)
	f.svc = svc

	require.NoError(t, svc.InitializeConfig(t.Context(), f.authority.PublicKey(), args))
	return f
}

// mint creates a fresh staker holding a fresh asset
func (f *fixture) mint(t *testing.T) (solana.PublicKey, solana.PublicKey) {
	t.Helper()
	owner := solana.NewWallet().PublicKey()
	asset := solana.NewWallet().PublicKey()
	require.NoError(t, f.svc.MintAsset(t.Context(), asset, owner))
	return owner, asset
}

func (f *fixture) vaultAddress(t *testing.T, asset solana.PublicKey) solana.PublicKey {
	t.Helper()
	vault, err := ledger.NewAddressDeriver(program.NftStakingProgramID).Vault(asset)
	require.NoError(t, err)
	return vault.Key
}

func (f *fixture) eventsOfType(typ queue.EventType) []*queue.StakeEvent {
	var events []*queue.StakeEvent
	for _, call := range f.publisher.Calls {
		ev := call.Arguments.Get(1).(*queue.StakeEvent)
		if ev.EventType == typ {
			events = append(events, ev)
		}
	}
	return events
}

func defaultConfig() program.InitializeConfigArgs {
	return program.InitializeConfigArgs{RewardRate: 5, MinStakeDuration: 10}
}

func TestWorkedExample(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t, defaultConfig())
	owner, asset := f.mint(t)

	require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

	vaultOwner, err := f.svc.GetAssetOwner(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, f.vaultAddress(t, asset), vaultOwner)

	f.clock.Set(3)
	amount, err := f.svc.Claim(ctx, owner, owner, asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), amount)

	record, err := f.svc.GetStakeRecord(ctx, owner, asset)
	require.NoError(t, err)
	assert.Equal(t, int64(3), record.LastCheckpoint)
	assert.Zero(t, record.AccruedReward)

	f.clock.Set(12)
	amount, err = f.svc.Unstake(ctx, owner, owner, asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), amount)

	user, err := f.svc.GetUserAccount(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), user.Points)
	assert.Zero(t, user.AmountStaked)

	assetOwner, err := f.svc.GetAssetOwner(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, owner, assetOwner)

	_, err = f.svc.GetStakeRecord(ctx, owner, asset)
	assert.ErrorIs(t, err, types.ErrNotStaked)
	_, err = f.svc.GetVaultEntry(ctx, asset)
	assert.ErrorIs(t, err, types.ErrNotStaked)

	require.Len(t, f.eventsOfType(queue.StakedEventType), 1)
	claimed := f.eventsOfType(queue.ClaimedEventType)
	require.Len(t, claimed, 1)
	assert.Equal(t, uint64(15), claimed[0].Amount)
	unstaked := f.eventsOfType(queue.UnstakedEventType)
	require.Len(t, unstaked, 1)
	assert.Equal(t, uint64(45), unstaked[0].Amount)
	assert.Equal(t, int64(12), unstaked[0].Timestamp)
}

func TestStake(t *testing.T) {
	ctx := t.Context()

	t.Run("creates record, vault entry and user account", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		f.clock.Set(100)

		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

		record, err := f.svc.GetStakeRecord(ctx, owner, asset)
		require.NoError(t, err)
		assert.Equal(t, types.StateStaked, record.State)
		assert.Equal(t, int64(100), record.StakedAt)
		assert.Equal(t, int64(100), record.LastCheckpoint)
		assert.Equal(t, uint64(5), record.RewardRate)
		assert.Equal(t, f.svc.ConfigAddress().String(), record.Config)

		entry, err := f.svc.GetVaultEntry(ctx, asset)
		require.NoError(t, err)
		assert.Equal(t, record.Address, entry.StakeRecord)
		assert.Equal(t, f.vaultAddress(t, asset).String(), entry.Vault)

		user, err := f.svc.GetUserAccount(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), user.AmountStaked)
	})
	t.Run("caller must be owner", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)

		err := f.svc.Stake(ctx, solana.NewWallet().PublicKey(), owner, asset)
		assert.ErrorIs(t, err, types.ErrUnauthorized)
	})
	t.Run("asset must be held by owner", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		_, asset := f.mint(t)
		stranger := solana.NewWallet().PublicKey()

		err := f.svc.Stake(ctx, stranger, stranger, asset)
		assert.ErrorIs(t, err, types.ErrUnauthorized)

		err = f.svc.Stake(ctx, stranger, stranger, solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, types.ErrUnauthorized)
	})
	t.Run("already staked", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

		err := f.svc.Stake(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrAlreadyStaked)

		// the vault now holds the asset, nobody else can stake it either
		other := solana.NewWallet().PublicKey()
		err = f.svc.Stake(ctx, other, other, asset)
		assert.ErrorIs(t, err, types.ErrAlreadyStaked)
	})
	t.Run("not initialized", func(t *testing.T) {
		svc, err := staking.NewService(memdb.New(), ledger.NewManualClock(0), program.NftStakingProgramID, nil)
		require.NoError(t, err)
		owner := solana.NewWallet().PublicKey()
		asset := solana.NewWallet().PublicKey()
		require.NoError(t, svc.MintAsset(ctx, asset, owner))

		err = svc.Stake(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrNotInitialized)

		assetOwner, err := svc.GetAssetOwner(ctx, asset)
		require.NoError(t, err)
		assert.Equal(t, owner, assetOwner)
	})
	t.Run("max stake", func(t *testing.T) {
		f := newFixture(t, program.InitializeConfigArgs{RewardRate: 1, MaxStake: 1})
		owner, first := f.mint(t)
		second := solana.NewWallet().PublicKey()
		require.NoError(t, f.svc.MintAsset(ctx, second, owner))

		require.NoError(t, f.svc.Stake(ctx, owner, owner, first))
		err := f.svc.Stake(ctx, owner, owner, second)
		assert.ErrorIs(t, err, types.ErrMaxStakeReached)

		// rejected stake left nothing behind
		assetOwner, err := f.svc.GetAssetOwner(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, owner, assetOwner)
		_, err = f.svc.GetVaultEntry(ctx, second)
		assert.ErrorIs(t, err, types.ErrNotStaked)
	})
	t.Run("staked asset cannot be transferred", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

		err := f.svc.TransferAsset(ctx, owner, asset, solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, types.ErrUnauthorized)
	})
}

func TestConcurrentStake(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t, defaultConfig())
	owner, asset := f.mint(t)

	var (
		wg        conc.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for range 16 {
		wg.Go(func() {
			err := f.svc.Stake(ctx, owner, owner, asset)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, types.ErrAlreadyStaked):
				rejected.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(15), rejected.Load())

	user, err := f.svc.GetUserAccount(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), user.AmountStaked)

	records, err := f.svc.GetStakeRecordsByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestClaim(t *testing.T) {
	ctx := t.Context()

	t.Run("immediate claim has nothing to claim", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

		amount, err := f.svc.Claim(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrNothingToClaim)
		assert.Zero(t, amount)
	})
	t.Run("second claim at the same time has nothing to claim", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

		f.clock.Set(4)
		amount, err := f.svc.Claim(ctx, owner, owner, asset)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), amount)

		_, err = f.svc.Claim(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrNothingToClaim)

		record, err := f.svc.GetStakeRecord(ctx, owner, asset)
		require.NoError(t, err)
		assert.Equal(t, int64(4), record.LastCheckpoint)

		user, err := f.svc.GetUserAccount(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), user.Points)
	})
	t.Run("not staked", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)

		_, err := f.svc.Claim(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrNotStaked)
	})
	t.Run("only the owner can claim", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))
		f.clock.Set(5)

		_, err := f.svc.Claim(ctx, solana.NewWallet().PublicKey(), owner, asset)
		assert.ErrorIs(t, err, types.ErrUnauthorized)
	})
	t.Run("rate change applies from the next checkpoint", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

		f.clock.Set(10)
		rate := uint64(100)
		require.NoError(t, f.svc.Configure(ctx, f.authority.PublicKey(), program.ConfigureArgs{RewardRate: &rate}))

		// first period still pays the rate snapshotted at stake time
		amount, err := f.svc.Claim(ctx, owner, owner, asset)
		require.NoError(t, err)
		assert.Equal(t, uint64(50), amount)

		f.clock.Set(12)
		amount, err = f.svc.Claim(ctx, owner, owner, asset)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), amount)
	})
	t.Run("overflow aborts the claim", func(t *testing.T) {
		f := newFixture(t, program.InitializeConfigArgs{RewardRate: ^uint64(0)})
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

		f.clock.Set(1)
		amount, err := f.svc.Claim(ctx, owner, owner, asset)
		require.NoError(t, err)
		assert.Equal(t, ^uint64(0), amount)

		f.clock.Set(2)
		_, err = f.svc.Claim(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrArithmeticOverflow)

		record, err := f.svc.GetStakeRecord(ctx, owner, asset)
		require.NoError(t, err)
		assert.Equal(t, int64(1), record.LastCheckpoint)
	})
}

func TestUnstake(t *testing.T) {
	ctx := t.Context()

	t.Run("too short leaves record unchanged", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))
		before, err := f.svc.GetStakeRecord(ctx, owner, asset)
		require.NoError(t, err)

		f.clock.Set(9)
		amount, err := f.svc.Unstake(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrStakeTooShort)
		assert.Zero(t, amount)

		after, err := f.svc.GetStakeRecord(ctx, owner, asset)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		assetOwner, err := f.svc.GetAssetOwner(ctx, asset)
		require.NoError(t, err)
		assert.Equal(t, f.vaultAddress(t, asset), assetOwner)
	})
	t.Run("zero reward is allowed", func(t *testing.T) {
		f := newFixture(t, program.InitializeConfigArgs{RewardRate: 0})
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

		amount, err := f.svc.Unstake(ctx, owner, owner, asset)
		require.NoError(t, err)
		assert.Zero(t, amount)
	})
	t.Run("only the owner can unstake", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))
		f.clock.Set(20)

		thief := solana.NewWallet().PublicKey()
		_, err := f.svc.Unstake(ctx, thief, owner, asset)
		assert.ErrorIs(t, err, types.ErrUnauthorized)

		// the thief's own derivation points at a record that does not exist
		_, err = f.svc.Unstake(ctx, thief, thief, asset)
		assert.ErrorIs(t, err, types.ErrNotStaked)
	})
	t.Run("double unstake", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))
		f.clock.Set(10)

		_, err := f.svc.Unstake(ctx, owner, owner, asset)
		require.NoError(t, err)
		_, err = f.svc.Unstake(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrNotStaked)
	})
	t.Run("new owner can stake after transfer", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))
		f.clock.Set(10)
		_, err := f.svc.Unstake(ctx, owner, owner, asset)
		require.NoError(t, err)

		buyer := solana.NewWallet().PublicKey()
		require.NoError(t, f.svc.TransferAsset(ctx, owner, asset, buyer))

		err = f.svc.Stake(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrUnauthorized)

		f.clock.Set(15)
		require.NoError(t, f.svc.Stake(ctx, buyer, buyer, asset))
		record, err := f.svc.GetStakeRecord(ctx, buyer, asset)
		require.NoError(t, err)
		assert.Equal(t, int64(15), record.StakedAt)
		assert.Equal(t, buyer.String(), record.Owner)
	})
	t.Run("restake by the same owner starts fresh", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		owner, asset := f.mint(t)
		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))
		f.clock.Set(10)
		_, err := f.svc.Unstake(ctx, owner, owner, asset)
		require.NoError(t, err)

		require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))
		_, err = f.svc.Claim(ctx, owner, owner, asset)
		assert.ErrorIs(t, err, types.ErrNothingToClaim)
	})
}

func TestConfigure(t *testing.T) {
	ctx := t.Context()

	t.Run("non authority is rejected", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		rate := uint64(1)

		err := f.svc.Configure(ctx, solana.NewWallet().PublicKey(), program.ConfigureArgs{RewardRate: &rate})
		assert.ErrorIs(t, err, types.ErrUnauthorized)

		cfg, err := f.svc.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), cfg.RewardRate)
	})
	t.Run("only provided fields change", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		maxStake := uint32(3)
		f.clock.Set(7)

		require.NoError(t, f.svc.Configure(ctx, f.authority.PublicKey(), program.ConfigureArgs{MaxStake: &maxStake}))

		cfg, err := f.svc.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), cfg.RewardRate)
		assert.Equal(t, int64(10), cfg.MinStakeDuration)
		assert.Equal(t, uint32(3), cfg.MaxStake)
		assert.Equal(t, int64(7), cfg.UpdatedAt)
	})
	t.Run("negative min duration is rejected", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		minDuration := int64(-1)

		err := f.svc.Configure(ctx, f.authority.PublicKey(), program.ConfigureArgs{MinStakeDuration: &minDuration})
		assert.ErrorIs(t, err, types.ErrBadRequest)
	})
	t.Run("config is created once", func(t *testing.T) {
		f := newFixture(t, defaultConfig())

		err := f.svc.InitializeConfig(ctx, solana.NewWallet().PublicKey(), defaultConfig())
		assert.ErrorIs(t, err, types.ErrAlreadyInitialized)

		cfg, err := f.svc.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.authority.PublicKey().String(), cfg.Authority)
	})
}

func TestInitializeUser(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t, defaultConfig())
	owner := solana.NewWallet().PublicKey()

	err := f.svc.InitializeUser(ctx, solana.NewWallet().PublicKey(), owner)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	require.NoError(t, f.svc.InitializeUser(ctx, owner, owner))
	err = f.svc.InitializeUser(ctx, owner, owner)
	assert.ErrorIs(t, err, types.ErrAlreadyInitialized)

	user, err := f.svc.GetUserAccount(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, user.Points)
	assert.NotEmpty(t, user.Address)
}

func TestPublishFailureKeepsCommit(t *testing.T) {
	ctx := t.Context()
	publisher := &mockPublisher{}
	publisher.On("PushStakeEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc, err := staking.NewService(memdb.New(), ledger.NewManualClock(0), program.NftStakingProgramID, publisher)
	require.NoError(t, err)
	authority := solana.NewWallet().PublicKey()
	require.NoError(t, svc.InitializeConfig(ctx, authority, defaultConfig()))

	owner := solana.NewWallet().PublicKey()
	asset := solana.NewWallet().PublicKey()
	require.NoError(t, svc.MintAsset(ctx, asset, owner))
	require.NoError(t, svc.Stake(ctx, owner, owner, asset))

	_, err = svc.GetStakeRecord(ctx, owner, asset)
	require.NoError(t, err)
	publisher.AssertNumberOfCalls(t, "PushStakeEvent", 2)
}

func TestEventPublishedBeforeLocksRelease(t *testing.T) {
	ctx := t.Context()
	clock := ledger.NewManualClock(0)
	publisher := &mockPublisher{}
	svc, err := staking.NewService(memdb.New(), clock, program.NftStakingProgramID, publisher)
	require.NoError(t, err)

	owner := solana.NewWallet().PublicKey()
	asset := solana.NewWallet().PublicKey()

	var (
		wg                   conc.WaitGroup
		claimed              atomic.Bool
		claimedDuringPublish atomic.Bool
	)
	isStaked := mock.MatchedBy(func(ev *queue.StakeEvent) bool {
		return ev.EventType == queue.StakedEventType
	})
	// a claim started while the staked event is being published must wait
	// for the stake's locks, so its event cannot overtake the staked event
	publisher.On("PushStakeEvent", mock.Anything, isStaked).Run(func(mock.Arguments) {
		clock.Set(5)
		wg.Go(func() {
			_, err := svc.Claim(ctx, owner, owner, asset)
			assert.NoError(t, err)
			claimed.Store(true)
		})
		time.Sleep(50 * time.Millisecond)
		claimedDuringPublish.Store(claimed.Load())
	}).Return(nil).Once()
	publisher.On("PushStakeEvent", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.InitializeConfig(ctx, solana.NewWallet().PublicKey(), defaultConfig()))
	require.NoError(t, svc.MintAsset(ctx, asset, owner))
	require.NoError(t, svc.Stake(ctx, owner, owner, asset))
	wg.Wait()

	assert.True(t, claimed.Load())
	assert.False(t, claimedDuringPublish.Load())

	var order []queue.EventType
	for _, call := range publisher.Calls {
		order = append(order, call.Arguments.Get(1).(*queue.StakeEvent).EventType)
	}
	assert.Equal(t, []queue.EventType{
		queue.ConfigUpdatedEventType,
		queue.StakedEventType,
		queue.ClaimedEventType,
	}, order)
}

func TestPendingReward(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t, defaultConfig())
	owner, asset := f.mint(t)
	require.NoError(t, f.svc.Stake(ctx, owner, owner, asset))

	f.clock.Set(7)
	record, err := f.svc.GetStakeRecord(ctx, owner, asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(35), f.svc.PendingReward(record))

	// reading does not move the checkpoint
	again, err := f.svc.GetStakeRecord(ctx, owner, asset)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.LastCheckpoint)
}
