package program_test

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/types"
)

func TestProgramIDForCluster(t *testing.T) {
	expected := solana.MustPublicKeyFromBase58("5fF9fccWZZJZV19bimi6dJyBm3rbZGG4u68Y9GSiDrz2")
	for _, cluster := range []string{"devnet", "testnet", "mainnet-beta", "localnet", "anything"} {
		assert.Equal(t, expected, program.ProgramIDForCluster(cluster), cluster)
	}

	id, err := program.ResolveProgramID("devnet", "")
	require.NoError(t, err)
	assert.Equal(t, expected, id)

	custom := solana.NewWallet().PublicKey()
	id, err = program.ResolveProgramID("devnet", custom.String())
	require.NoError(t, err)
	assert.Equal(t, custom, id)
}

func TestDiscriminator(t *testing.T) {
	// sha256("global:stake")[:8], as produced by anchor
	assert.Equal(t,
		[8]byte{0xce, 0xb0, 0xca, 0x12, 0xc8, 0xd1, 0xb3, 0x6c},
		program.Discriminator(program.StakeInstruction),
	)
	assert.NotEqual(t,
		program.Discriminator(program.ClaimInstruction),
		program.Discriminator(program.UnstakeInstruction),
	)
}

func TestEncodeDecode(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	asset := solana.NewWallet().PublicKey()

	t.Run("stake", func(t *testing.T) {
		data, err := program.Encode(program.StakeInstruction, &program.StakeArgs{Owner: owner, Asset: asset})
		require.NoError(t, err)
		assert.Len(t, data, 8+32+32)

		ix, err := program.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, program.StakeInstruction, ix.Name)
		assert.Equal(t, &program.StakeArgs{Owner: owner, Asset: asset}, ix.Args)
	})
	t.Run("configure with partial fields", func(t *testing.T) {
		rate := uint64(9)
		data, err := program.Encode(program.ConfigureInstruction, &program.ConfigureArgs{RewardRate: &rate})
		require.NoError(t, err)

		ix, err := program.Decode(data)
		require.NoError(t, err)
		args, ok := ix.Args.(*program.ConfigureArgs)
		require.True(t, ok)
		require.NotNil(t, args.RewardRate)
		assert.Equal(t, rate, *args.RewardRate)
		assert.Nil(t, args.MinStakeDuration)
		assert.Nil(t, args.MaxStake)
	})
	t.Run("rejects malformed data", func(t *testing.T) {
		_, err := program.Decode([]byte{1, 2, 3})
		require.Error(t, err)

		_, err = program.Decode(make([]byte, 16))
		require.Error(t, err)

		data, err := program.Encode(program.ClaimInstruction, &program.StakeArgs{Owner: owner, Asset: asset})
		require.NoError(t, err)
		_, err = program.Decode(data[:len(data)-1])
		require.Error(t, err)
		_, err = program.Decode(append(data, 0))
		require.Error(t, err)
	})
	t.Run("unknown name", func(t *testing.T) {
		_, err := program.Encode("transfer", &program.StakeArgs{})
		require.Error(t, err)
	})
}

func TestSignedInstruction(t *testing.T) {
	wallet := solana.NewWallet()
	data, err := program.Encode(program.InitializeUserInstruction, &program.InitializeUserArgs{Owner: wallet.PublicKey()})
	require.NoError(t, err)

	programID := program.NftStakingProgramID

	t.Run("valid", func(t *testing.T) {
		ix, err := program.NewSignedInstruction(programID, 7, data, wallet.PrivateKey)
		require.NoError(t, err)
		require.NoError(t, ix.Verify(programID))
	})
	t.Run("tampered data", func(t *testing.T) {
		ix, err := program.NewSignedInstruction(programID, 7, data, wallet.PrivateKey)
		require.NoError(t, err)
		ix.Data = append([]byte{}, data...)
		ix.Data[len(ix.Data)-1] ^= 0xff
		assert.ErrorIs(t, ix.Verify(programID), ledger.ErrInvalidSignature)
	})
	t.Run("changed nonce", func(t *testing.T) {
		ix, err := program.NewSignedInstruction(programID, 7, data, wallet.PrivateKey)
		require.NoError(t, err)
		ix.Nonce = 8
		assert.ErrorIs(t, ix.Verify(programID), ledger.ErrInvalidSignature)
	})
	t.Run("other program", func(t *testing.T) {
		ix, err := program.NewSignedInstruction(programID, 7, data, wallet.PrivateKey)
		require.NoError(t, err)
		assert.ErrorIs(t, ix.Verify(solana.NewWallet().PublicKey()), ledger.ErrInvalidSignature)
	})
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, ix *program.SignedInstruction) (uint64, error) {
	args := m.Called(ctx, ix)
	return args.Get(0).(uint64), args.Error(1)
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	wallet := solana.NewWallet()
	asset := solana.NewWallet().PublicKey()

	t.Run("signs and decodes to the requested instruction", func(t *testing.T) {
		executor := new(mockExecutor)
		executor.On("Execute", ctx, mock.MatchedBy(func(ix *program.SignedInstruction) bool {
			decoded, err := program.Decode(ix.Data)
			return err == nil &&
				decoded.Name == program.ClaimInstruction &&
				ix.Signer == wallet.PublicKey() &&
				ix.Verify(program.NftStakingProgramID) == nil
		})).Return(uint64(15), nil).Once()

		client := program.NewClient(executor, program.NftStakingProgramID, wallet.PrivateKey)
		amount, err := client.Claim(ctx, wallet.PublicKey(), asset)
		require.NoError(t, err)
		assert.Equal(t, uint64(15), amount)
		executor.AssertExpectations(t)
	})
	t.Run("retries transaction conflicts", func(t *testing.T) {
		executor := new(mockExecutor)
		executor.On("Execute", ctx, mock.Anything).
			Return(uint64(0), types.Wrap(types.ErrTransactionConflict, "write conflict")).Twice()
		executor.On("Execute", ctx, mock.Anything).Return(uint64(45), nil).Once()

		client := program.NewClient(executor, program.NftStakingProgramID, wallet.PrivateKey, program.WithRetry(3, 0))
		amount, err := client.Unstake(ctx, wallet.PublicKey(), asset)
		require.NoError(t, err)
		assert.Equal(t, uint64(45), amount)
		executor.AssertNumberOfCalls(t, "Execute", 3)

		// a rolled back submission keeps its nonce, so the same instruction is resent
		first := executor.Calls[0].Arguments.Get(1).(*program.SignedInstruction)
		last := executor.Calls[2].Arguments.Get(1).(*program.SignedInstruction)
		assert.Equal(t, first.Nonce, last.Nonce)
	})
	t.Run("every instruction gets a higher nonce", func(t *testing.T) {
		executor := new(mockExecutor)
		executor.On("Execute", ctx, mock.Anything).Return(uint64(0), nil)

		client := program.NewClient(executor, program.NftStakingProgramID, wallet.PrivateKey)
		for range 5 {
			require.NoError(t, client.Stake(ctx, wallet.PublicKey(), asset))
		}

		var last uint64
		for _, call := range executor.Calls {
			ix := call.Arguments.Get(1).(*program.SignedInstruction)
			assert.Greater(t, ix.Nonce, last)
			last = ix.Nonce
		}
	})
	t.Run("does not retry program errors", func(t *testing.T) {
		executor := new(mockExecutor)
		executor.On("Execute", ctx, mock.Anything).
			Return(uint64(0), types.Wrap(types.ErrNothingToClaim, "no reward accrued")).Once()

		client := program.NewClient(executor, program.NftStakingProgramID, wallet.PrivateKey, program.WithRetry(3, 0))
		_, err := client.Claim(ctx, wallet.PublicKey(), asset)
		require.ErrorIs(t, err, types.ErrNothingToClaim)
		executor.AssertNumberOfCalls(t, "Execute", 1)
	})
}
