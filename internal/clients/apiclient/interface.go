package apiclient

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/tedkimdev/nft-staking/internal/api/apitypes"
	"github.com/tedkimdev/nft-staking/internal/program"
)

type ApiClientInterface interface {
	program.Executor
	MintAsset(ctx context.Context, mint, owner solana.PublicKey) error
	GetProgram(ctx context.Context) (*apitypes.ProgramResponse, error)
	GetConfig(ctx context.Context) (*apitypes.ConfigResponse, error)
	GetStake(ctx context.Context, owner, asset solana.PublicKey) (*apitypes.StakeResponse, error)
	GetUser(ctx context.Context, owner solana.PublicKey) (*apitypes.UserResponse, error)
	GetAsset(ctx context.Context, asset solana.PublicKey) (*apitypes.AssetResponse, error)
	GetStats(ctx context.Context) (*apitypes.StatsResponse, error)
}
