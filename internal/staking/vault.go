package staking

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/types"
)

// Vault takes custody of staked assets. An asset in custody is owned by the
// vault address of its mint and has exactly one vault entry naming the stake
// record it backs. Vault methods must run inside the caller's transaction.
type Vault struct {
	db        db.DbInterface
	addresses *ledger.AddressDeriver
}

func NewVault(db db.DbInterface, addresses *ledger.AddressDeriver) *Vault {
	return &Vault{db: db, addresses: addresses}
}

// EnsureNotInCustody fails with AlreadyStaked if asset already has a vault entry
func (v *Vault) EnsureNotInCustody(ctx context.Context, asset solana.PublicKey) error {
	_, err := v.db.GetVaultEntry(ctx, asset.String())
	if err == nil {
		return types.Wrap(types.ErrAlreadyStaked, "asset %s is already staked", asset)
	}
	if db.IsNotFoundError(err) {
		return nil
	}
	return internalError("failed to get vault entry of asset %s: %w", asset, err)
}

// Deposit moves asset from its owner into custody for record
func (v *Vault) Deposit(ctx context.Context, record *model.StakeRecordDocument, now int64) error {
	asset, err := solana.PublicKeyFromBase58(record.Asset)
	if err != nil {
		return internalError("invalid asset %s on stake record: %w", record.Asset, err)
	}
	vault, err := v.addresses.Vault(asset)
	if err != nil {
		return types.NewInternalServiceError(err)
	}

	entry := &model.VaultEntryDocument{
		Asset:       record.Asset,
		Owner:       record.Owner,
		StakeRecord: record.Address,
		Vault:       vault.String(),
		DepositedAt: now,
	}
	if err := v.db.SaveNewVaultEntry(ctx, entry); err != nil {
		if db.IsDuplicateKeyError(err) {
			return types.Wrap(types.ErrAlreadyStaked, "asset %s is already staked", record.Asset)
		}
		return internalError("failed to save vault entry: %w", err)
	}

	if err := v.db.TransferAsset(ctx, record.Asset, record.Owner, vault.String()); err != nil {
		if db.IsNotFoundError(err) {
			return types.Wrap(types.ErrUnauthorized, "asset %s is not held by %s", record.Asset, record.Owner)
		}
		return internalError("failed to move asset into the vault: %w", err)
	}
	return nil
}

// Release returns the asset backing record to the record owner and removes its vault entry
func (v *Vault) Release(ctx context.Context, record *model.StakeRecordDocument) error {
	entry, err := v.db.GetVaultEntry(ctx, record.Asset)
	if err != nil {
		if db.IsNotFoundError(err) {
			return internalError("asset %s has a stake record but no vault entry", record.Asset)
		}
		return internalError("failed to get vault entry of asset %s: %w", record.Asset, err)
	}
	if entry.StakeRecord != record.Address {
		return internalError(
			"vault entry of asset %s belongs to stake record %s, not %s",
			record.Asset, entry.StakeRecord, record.Address,
		)
	}

	if err := v.db.TransferAsset(ctx, record.Asset, entry.Vault, record.Owner); err != nil {
		return internalError("failed to return asset %s from the vault: %w", record.Asset, err)
	}
	if err := v.db.DeleteVaultEntry(ctx, record.Asset); err != nil {
		return internalError("failed to delete vault entry of asset %s: %w", record.Asset, err)
	}
	return nil
}
