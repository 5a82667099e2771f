package staking

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/internal/types"
)

// InitializeUser creates the user account of owner. Staking creates it
// implicitly, so calling this first is optional.
func (s *Service) InitializeUser(ctx context.Context, caller, owner solana.PublicKey) error {
	if caller != owner {
		return types.Wrap(types.ErrUnauthorized, "%s cannot initialize the user account of %s", caller, owner)
	}

	accts := accounts{writes: []string{userLockKey(owner)}}
	return s.execute(ctx, program.InitializeUserInstruction, accts, func(ctx context.Context) (*queue.StakeEvent, error) {
		doc, err := s.newUserAccount(owner)
		if err != nil {
			return nil, err
		}
		if err := s.db.SaveNewUserAccount(ctx, doc); err != nil {
			if db.IsDuplicateKeyError(err) {
				return nil, types.Wrap(types.ErrAlreadyInitialized, "user account of %s already exists", owner)
			}
			return nil, internalError("failed to save user account: %w", err)
		}
		return nil, nil
	})
}

func (s *Service) GetUserAccount(ctx context.Context, owner solana.PublicKey) (*model.UserAccountDocument, error) {
	user, err := s.db.GetUserAccount(ctx, owner.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.Wrap(types.ErrNotFound, "user account of %s not found", owner)
		}
		return nil, internalError("failed to get user account: %w", err)
	}
	return user, nil
}

func (s *Service) newUserAccount(owner solana.PublicKey) (*model.UserAccountDocument, error) {
	addr, err := s.addresses.User(owner)
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	return model.NewUserAccountDocument(owner.String(), addr.String(), addr.Bump), nil
}

// loadOrCreateUser returns the user account of owner and whether it still has to be inserted
func (s *Service) loadOrCreateUser(ctx context.Context, owner solana.PublicKey) (*model.UserAccountDocument, bool, error) {
	user, err := s.db.GetUserAccount(ctx, owner.String())
	if err == nil {
		return user, false, nil
	}
	if !db.IsNotFoundError(err) {
		return nil, false, internalError("failed to get user account: %w", err)
	}

	user, err = s.newUserAccount(owner)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *Service) saveUser(ctx context.Context, user *model.UserAccountDocument, isNew bool) error {
	var err error
	if isNew {
		err = s.db.SaveNewUserAccount(ctx, user)
	} else {
		err = s.db.UpdateUserAccount(ctx, user)
	}
	if err != nil {
		return internalError("failed to save user account of %s: %w", user.Owner, err)
	}
	return nil
}

// lock keys are prefixed so an owner key never collides with an asset key
func userLockKey(owner solana.PublicKey) string {
	return "user:" + owner.String()
}

func assetLockKey(asset solana.PublicKey) string {
	return "asset:" + asset.String()
}
