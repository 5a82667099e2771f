package staking

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/internal/types"
)

// MintAsset registers a new asset held by owner. The asset registry stands in
// for the token ledger on local deployments.
func (s *Service) MintAsset(ctx context.Context, mint, owner solana.PublicKey) error {
	if mint.IsZero() || owner.IsZero() {
		return types.Wrap(types.ErrBadRequest, "mint and owner are required")
	}

	unlock := s.locker.Lock([]string{assetLockKey(mint)}, nil)
	defer unlock()

	err := s.db.SaveNewAsset(ctx, &model.AssetDocument{Mint: mint.String(), Owner: owner.String()})
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return types.Wrap(types.ErrAlreadyInitialized, "asset %s already exists", mint)
		}
		return normalizeError(internalError("failed to save asset: %w", err))
	}

	log.Ctx(ctx).Info().
		Str("mint", mint.String()).
		Str("owner", owner.String()).
		Msg("asset minted")
	return nil
}

// TransferAsset moves mint from caller to recipient. An asset in custody is
// held by its vault address, so no caller can move it until it is unstaked.
func (s *Service) TransferAsset(ctx context.Context, caller, mint, recipient solana.PublicKey) error {
	if recipient.IsZero() {
		return types.Wrap(types.ErrBadRequest, "recipient is required")
	}

	accts := accounts{writes: []string{assetLockKey(mint)}}
	err := s.execute(ctx, program.TransferAssetInstruction, accts, func(ctx context.Context) (*queue.StakeEvent, error) {
		err := s.db.TransferAsset(ctx, mint.String(), caller.String(), recipient.String())
		if err != nil {
			if db.IsNotFoundError(err) {
				return nil, types.Wrap(types.ErrUnauthorized, "asset %s is not held by %s", mint, caller)
			}
			return nil, internalError("failed to transfer asset: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str("mint", mint.String()).
		Str("from", caller.String()).
		Str("to", recipient.String()).
		Msg("asset transferred")
	return nil
}

func (s *Service) GetAssetOwner(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	doc, err := s.db.GetAsset(ctx, mint.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return solana.PublicKey{}, types.Wrap(types.ErrNotFound, "asset %s not found", mint)
		}
		return solana.PublicKey{}, internalError("failed to get asset: %w", err)
	}

	owner, err := solana.PublicKeyFromBase58(doc.Owner)
	if err != nil {
		return solana.PublicKey{}, internalError("invalid owner %s of asset %s: %w", doc.Owner, mint, err)
	}
	return owner, nil
}

func (s *Service) GetVaultEntry(ctx context.Context, asset solana.PublicKey) (*model.VaultEntryDocument, error) {
	entry, err := s.db.GetVaultEntry(ctx, asset.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.Wrap(types.ErrNotStaked, "asset %s is not in custody", asset)
		}
		return nil, internalError("failed to get vault entry: %w", err)
	}
	return entry, nil
}
