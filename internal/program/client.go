package program

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/types"
)

const (
	defaultMaxRetryTimes = 3
	defaultRetryInterval = 200 * time.Millisecond
)

// Executor runs a signed instruction and returns the reward amount it paid out,
// zero for instructions that pay nothing
type Executor interface {
	Execute(ctx context.Context, ix *SignedInstruction) (uint64, error)
}

// Client is a typed handle to the program. It signs every instruction with
// its key and resubmits instructions rejected with a transaction conflict.
// Nonces come from the wall clock and never repeat, so instructions of one
// signer must be submitted one at a time: the program rejects a nonce lower
// than one it already accepted.
type Client struct {
	executor      Executor
	programID     solana.PublicKey
	signer        solana.PrivateKey
	maxRetryTimes uint
	retryInterval time.Duration

	lastNonce atomic.Uint64
}

type ClientOption func(*Client)

func WithRetry(maxRetryTimes uint, interval time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetryTimes = maxRetryTimes
		c.retryInterval = interval
	}
}

func NewClient(executor Executor, programID solana.PublicKey, signer solana.PrivateKey, opts ...ClientOption) *Client {
	c := &Client{
		executor:      executor,
		programID:     programID,
		signer:        signer,
		maxRetryTimes: defaultMaxRetryTimes,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) PublicKey() solana.PublicKey {
	return c.signer.PublicKey()
}

func (c *Client) InitializeConfig(ctx context.Context, args InitializeConfigArgs) error {
	_, err := c.submit(ctx, InitializeConfigInstruction, &args)
	return err
}

func (c *Client) InitializeUser(ctx context.Context) error {
	_, err := c.submit(ctx, InitializeUserInstruction, &InitializeUserArgs{Owner: c.PublicKey()})
	return err
}

// Stake deposits asset on behalf of owner. owner must be the signer.
func (c *Client) Stake(ctx context.Context, owner, asset solana.PublicKey) error {
	_, err := c.submit(ctx, StakeInstruction, &StakeArgs{Owner: owner, Asset: asset})
	return err
}

func (c *Client) Claim(ctx context.Context, owner, asset solana.PublicKey) (uint64, error) {
	return c.submit(ctx, ClaimInstruction, &StakeArgs{Owner: owner, Asset: asset})
}

func (c *Client) Unstake(ctx context.Context, owner, asset solana.PublicKey) (uint64, error) {
	return c.submit(ctx, UnstakeInstruction, &StakeArgs{Owner: owner, Asset: asset})
}

func (c *Client) Configure(ctx context.Context, args ConfigureArgs) error {
	_, err := c.submit(ctx, ConfigureInstruction, &args)
	return err
}

// TransferAsset moves asset from the signer to recipient
func (c *Client) TransferAsset(ctx context.Context, asset, recipient solana.PublicKey) error {
	_, err := c.submit(ctx, TransferAssetInstruction, &TransferAssetArgs{Asset: asset, Recipient: recipient})
	return err
}

func (c *Client) nextNonce() uint64 {
	for {
		last := c.lastNonce.Load()
		next := max(uint64(time.Now().UnixNano()), last+1)
		if c.lastNonce.CompareAndSwap(last, next) {
			return next
		}
	}
}

// submit signs once and resubmits the same instruction on conflicts. A
// conflict means the transaction was rolled back, so the nonce is still unused.
func (c *Client) submit(ctx context.Context, name InstructionName, args any) (uint64, error) {
	data, err := Encode(name, args)
	if err != nil {
		return 0, err
	}

	ix, err := NewSignedInstruction(c.programID, c.nextNonce(), data, c.signer)
	if err != nil {
		return 0, err
	}

	return retry.DoWithData(
		func() (uint64, error) {
			return c.executor.Execute(ctx, ix)
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetryTimes),
		retry.Delay(c.retryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// everything else is a deterministic rejection
			return errors.Is(err, types.ErrTransactionConflict)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Str("instruction", name.String()).
				Uint("attempt", n+1).
				Uint("max_attempts", c.maxRetryTimes).
				Err(err).
				Msg("transaction conflict, resubmitting instruction")
		}),
	)
}
