package ledger

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrMissingSigner    = errors.New("missing signer")
	ErrInvalidSignature = errors.New("signature verification failed")
)

// VerifySignature checks that message was signed by signer
func VerifySignature(signer solana.PublicKey, message []byte, signature solana.Signature) error {
	if signer.IsZero() {
		return ErrMissingSigner
	}
	if !signature.Verify(signer, message) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign signs message with key. Thin wrapper so callers don't depend on the
// key type's method set.
func Sign(key solana.PrivateKey, message []byte) (solana.Signature, error) {
	return key.Sign(message)
}
