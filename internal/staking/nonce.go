package staking

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/types"
)

// signerNonce is the nonce of the signed instruction being executed
type signerNonce struct {
	signer solana.PublicKey
	value  uint64
}

type nonceKey struct{}

func withNonce(ctx context.Context, n signerNonce) context.Context {
	return context.WithValue(ctx, nonceKey{}, n)
}

func nonceFrom(ctx context.Context) (signerNonce, bool) {
	n, ok := ctx.Value(nonceKey{}).(signerNonce)
	return n, ok
}

func nonceLockKey(signer solana.PublicKey) string {
	return "nonce:" + signer.String()
}

// consumeNonce records n as the last nonce of its signer. It runs inside the
// instruction's transaction, so the nonce is only kept if the instruction commits.
func (s *Service) consumeNonce(ctx context.Context, n signerNonce) error {
	err := s.db.AdvanceSignerNonce(ctx, n.signer.String(), n.value, s.clock.Now())
	if err == nil {
		return nil
	}
	if db.IsStaleNonceError(err) {
		return types.Wrap(types.ErrUnauthorized, "nonce %d of %s was already used or superseded", n.value, n.signer)
	}
	return internalError("failed to advance nonce of %s: %w", n.signer, err)
}

// burnNonce consumes n after its instruction failed, so the same signed
// instruction cannot be submitted again once the state that rejected it changes.
// A nonce that is already stale needs no burning.
func (s *Service) burnNonce(ctx context.Context, n signerNonce) {
	unlock := s.locker.Lock([]string{nonceLockKey(n.signer)}, nil)
	defer unlock()

	err := s.db.WithTransaction(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return s.db.AdvanceSignerNonce(ctx, n.signer.String(), n.value, s.clock.Now())
	})
	if err != nil && !db.IsStaleNonceError(err) {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("signer", n.signer.String()).
			Uint64("nonce", n.value).
			Msg("failed to burn nonce of rejected instruction")
	}
}
