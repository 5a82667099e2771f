package apiclient_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tedkimdev/nft-staking/internal/api"
	"github.com/tedkimdev/nft-staking/internal/clients/apiclient"
	"github.com/tedkimdev/nft-staking/internal/config"
	"github.com/tedkimdev/nft-staking/internal/db/memdb"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/staking"
	"github.com/tedkimdev/nft-staking/internal/types"
)

func clientConfig(url string) *config.ClientConfig {
	return &config.ClientConfig{
		URL:           url,
		Timeout:       5 * time.Second,
		MaxRetryTimes: 3,
		RetryInterval: 10 * time.Millisecond,
	}
}

func TestClientAgainstServer(t *testing.T) {
	ctx := t.Context()
	store := memdb.New()
	clock := ledger.NewManualClock(0)
	svc, err := staking.NewService(store, clock, program.NftStakingProgramID, nil)
	require.NoError(t, err)

	server := api.New(&config.ServerConfig{
		Host: "127.0.0.1", WriteTimeout: time.Second, ReadTimeout: time.Second, IdleTimeout: time.Second,
	}, api.NewHandler(svc, store, true))
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	apiClient := apiclient.NewClient(clientConfig(ts.URL + "/"))
	prog, err := apiClient.GetProgram(ctx)
	require.NoError(t, err)
	programID, err := solana.PublicKeyFromBase58(prog.ProgramID)
	require.NoError(t, err)

	admin := program.NewClient(apiClient, programID, solana.NewWallet().PrivateKey)
	staker := program.NewClient(apiClient, programID, solana.NewWallet().PrivateKey)
	asset := solana.NewWallet().PublicKey()

	require.NoError(t, apiClient.MintAsset(ctx, asset, staker.PublicKey()))
	require.NoError(t, admin.InitializeConfig(ctx, program.InitializeConfigArgs{RewardRate: 3}))
	require.NoError(t, staker.Stake(ctx, staker.PublicKey(), asset))

	cfg, err := apiClient.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.PublicKey().String(), cfg.Authority)

	_, err = staker.Claim(ctx, staker.PublicKey(), asset)
	assert.ErrorIs(t, err, types.ErrNothingToClaim)

	clock.Set(10)
	amount, err := staker.Claim(ctx, staker.PublicKey(), asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), amount)

	stake, err := apiClient.GetStake(ctx, staker.PublicKey(), asset)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stake.LastCheckpoint)

	user, err := apiClient.GetUser(ctx, staker.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(30), user.Points)
	require.Len(t, user.Stakes, 1)

	_, err = apiClient.GetStats(ctx)
	assert.ErrorIs(t, err, types.ErrNotFound)

	other := program.NewClient(apiClient, programID, solana.NewWallet().PrivateKey)
	err = staker.TransferAsset(ctx, asset, other.PublicKey())
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	clock.Set(20)
	_, err = staker.Unstake(ctx, staker.PublicKey(), asset)
	require.NoError(t, err)
	require.NoError(t, staker.TransferAsset(ctx, asset, other.PublicKey()))
	require.NoError(t, other.Stake(ctx, other.PublicKey(), asset))

	held, err := apiClient.GetAsset(ctx, asset)
	require.NoError(t, err)
	assert.NotEmpty(t, held.StakeRecord)
}

func TestReadsRetryWhileUnavailable(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"errorCode":"TRANSACTION_CONFLICT","message":"busy"}`))
			return
		}
		w.Write([]byte(`{"mint":"m","owner":"o"}`))
	}))
	defer ts.Close()

	c := apiclient.NewClient(clientConfig(ts.URL))
	asset, err := c.GetAsset(t.Context(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, "o", asset.Owner)
	assert.Equal(t, int32(3), requests.Load())
}

func TestSubmissionIsNotRetriedOnServerError(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	c := apiclient.NewClient(clientConfig(ts.URL))
	key := solana.NewWallet().PrivateKey
	ix, err := program.NewSignedInstruction(program.NftStakingProgramID, 1, []byte("data"), key)
	require.NoError(t, err)

	_, err = c.Execute(t.Context(), ix)
	require.Error(t, err)
	assert.Equal(t, types.InternalServiceError, types.CodeOf(err))
	assert.Equal(t, int32(1), requests.Load())
}
