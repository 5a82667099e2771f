package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/api/apitypes"
	"github.com/tedkimdev/nft-staking/internal/clients/client"
	"github.com/tedkimdev/nft-staking/internal/config"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/types"
)

type Client struct {
	httpClient *http.Client
	cfg        *config.ClientConfig
}

func NewClient(cfg *config.ClientConfig) *Client {
	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
	}
}

func (c *Client) GetBaseURL() string {
	return strings.TrimSuffix(c.cfg.URL, "/")
}

func (c *Client) GetDefaultRequestTimeout() time.Duration {
	return c.cfg.Timeout
}

func (c *Client) GetHttpClient() *http.Client {
	return c.httpClient
}

// Execute submits a signed instruction. Submissions are not retried here,
// program.Client resubmits on transaction conflicts.
func (c *Client) Execute(ctx context.Context, ix *program.SignedInstruction) (uint64, error) {
	const path = "/v1/instructions"
	opts := &client.HttpClientOptions{
		Path:         path,
		TemplatePath: path,
	}

	resp, err := client.SendRequest[apitypes.InstructionRequest, apitypes.InstructionResponse](
		ctx, c, http.MethodPost, opts, apitypes.NewInstructionRequest(ix),
	)
	if err != nil {
		return 0, err
	}
	return resp.Amount, nil
}

func (c *Client) MintAsset(ctx context.Context, mint, owner solana.PublicKey) error {
	const path = "/v1/assets"
	opts := &client.HttpClientOptions{
		Path:         path,
		TemplatePath: path,
	}

	req := &apitypes.MintAssetRequest{Mint: mint.String(), Owner: owner.String()}
	_, err := client.SendRequest[apitypes.MintAssetRequest, apitypes.AssetResponse](
		ctx, c, http.MethodPost, opts, req,
	)
	return err
}

func (c *Client) GetProgram(ctx context.Context) (*apitypes.ProgramResponse, error) {
	return get[apitypes.ProgramResponse](ctx, c, "/v1/program", "/v1/program")
}

func (c *Client) GetConfig(ctx context.Context) (*apitypes.ConfigResponse, error) {
	return get[apitypes.ConfigResponse](ctx, c, "/v1/config", "/v1/config")
}

func (c *Client) GetStake(ctx context.Context, owner, asset solana.PublicKey) (*apitypes.StakeResponse, error) {
	return get[apitypes.StakeResponse](
		ctx, c, "/v1/stakes/"+owner.String()+"/"+asset.String(), "/v1/stakes/{owner}/{asset}",
	)
}

func (c *Client) GetUser(ctx context.Context, owner solana.PublicKey) (*apitypes.UserResponse, error) {
	return get[apitypes.UserResponse](ctx, c, "/v1/users/"+owner.String(), "/v1/users/{owner}")
}

func (c *Client) GetAsset(ctx context.Context, asset solana.PublicKey) (*apitypes.AssetResponse, error) {
	return get[apitypes.AssetResponse](ctx, c, "/v1/assets/"+asset.String(), "/v1/assets/{asset}")
}

func (c *Client) GetStats(ctx context.Context) (*apitypes.StatsResponse, error) {
	return get[apitypes.StatsResponse](ctx, c, "/v1/stats", "/v1/stats")
}

type empty struct{}

// get reads are idempotent so they are retried while the server is unavailable
func get[R any](ctx context.Context, c *Client, path, templatePath string) (*R, error) {
	opts := &client.HttpClientOptions{
		Path:         path,
		TemplatePath: templatePath,
	}
	return clientCallWithRetry(ctx, func() (*R, error) {
		return client.SendRequest[empty, R](ctx, c, http.MethodGet, opts, nil)
	}, c.cfg)
}

func clientCallWithRetry[T any](
	ctx context.Context,
	call retry.RetryableFuncWithData[T],
	cfg *config.ClientConfig,
) (T, error) {
	return retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxRetryTimes),
		retry.Delay(cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", cfg.MaxRetryTimes).
				Err(err).
				Msg("server unavailable, retrying with exponential backoff")
		}),
	)
}

func isRetryable(err error) bool {
	var apiErr *types.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway:
		return true
	}
	return false
}

var _ ApiClientInterface = (*Client)(nil)
