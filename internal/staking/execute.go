package staking

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/types"
)

// Execute verifies and runs a signed instruction. The signer is the caller of
// the instruction. The returned amount is the reward paid, zero for
// instructions that pay nothing. Every instruction that got past verification
// uses up its nonce unless it lost a transaction conflict, which the signer
// may resubmit unchanged.
func (s *Service) Execute(ctx context.Context, ix *program.SignedInstruction) (uint64, error) {
	if ix == nil {
		return 0, types.Wrap(types.ErrBadRequest, "missing instruction")
	}
	if err := ix.Verify(s.ProgramID()); err != nil {
		if errors.Is(err, ledger.ErrMissingSigner) || errors.Is(err, ledger.ErrInvalidSignature) {
			return 0, types.Wrap(types.ErrUnauthorized, "%s", err.Error())
		}
		return 0, types.NewInternalServiceError(err)
	}

	if ix.Nonce == 0 {
		return 0, types.Wrap(types.ErrUnauthorized, "instruction nonce must be positive")
	}

	decoded, err := program.Decode(ix.Data)
	if err != nil {
		return 0, types.Wrap(types.ErrBadRequest, "%s", err.Error())
	}

	nonce := signerNonce{signer: ix.Signer, value: ix.Nonce}
	amount, err := s.dispatch(withNonce(ctx, nonce), ix.Signer, decoded)
	if err != nil && !errors.Is(err, types.ErrTransactionConflict) {
		s.burnNonce(ctx, nonce)
	}
	return amount, err
}

// dispatch runs a decoded instruction on behalf of caller
func (s *Service) dispatch(ctx context.Context, caller solana.PublicKey, decoded *program.Instruction) (uint64, error) {
	switch args := decoded.Args.(type) {
	case *program.InitializeConfigArgs:
		return 0, s.InitializeConfig(ctx, caller, *args)
	case *program.InitializeUserArgs:
		return 0, s.InitializeUser(ctx, caller, args.Owner)
	case *program.ConfigureArgs:
		return 0, s.Configure(ctx, caller, *args)
	case *program.TransferAssetArgs:
		return 0, s.TransferAsset(ctx, caller, args.Asset, args.Recipient)
	case *program.StakeArgs:
		switch decoded.Name {
		case program.StakeInstruction:
			return 0, s.Stake(ctx, caller, args.Owner, args.Asset)
		case program.ClaimInstruction:
			return s.Claim(ctx, caller, args.Owner, args.Asset)
		case program.UnstakeInstruction:
			return s.Unstake(ctx, caller, args.Owner, args.Asset)
		}
	}
	return 0, types.Wrap(types.ErrBadRequest, "unsupported instruction %s", decoded.Name)
}

var _ program.Executor = (*Service)(nil)
