package testutil

import (
	"github.com/gagliardetto/solana-go"
)

// RandomPublicKey returns the base58 form of a fresh ed25519 public key
func RandomPublicKey() string {
	return solana.NewWallet().PublicKey().String()
}
