package program

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/tedkimdev/nft-staking/internal/ledger"
)

// SignedInstruction is encoded instruction data together with the
// signature of the account submitting it. The signature covers the program
// id and the nonce as well as Data, so it is only valid once and only for one
// program.
type SignedInstruction struct {
	Data      []byte
	Nonce     uint64
	Signer    solana.PublicKey
	Signature solana.Signature
}

func NewSignedInstruction(
	programID solana.PublicKey, nonce uint64, data []byte, key solana.PrivateKey,
) (*SignedInstruction, error) {
	sig, err := ledger.Sign(key, SigningMessage(programID, nonce, data))
	if err != nil {
		return nil, err
	}
	return &SignedInstruction{
		Data:      data,
		Nonce:     nonce,
		Signer:    key.PublicKey(),
		Signature: sig,
	}, nil
}

// SigningMessage is programID || little endian nonce || data
func SigningMessage(programID solana.PublicKey, nonce uint64, data []byte) []byte {
	msg := make([]byte, 0, solana.PublicKeyLength+8+len(data))
	msg = append(msg, programID[:]...)
	msg = binary.LittleEndian.AppendUint64(msg, nonce)
	return append(msg, data...)
}

// Verify checks the signature was made for programID
func (ix *SignedInstruction) Verify(programID solana.PublicKey) error {
	return ledger.VerifySignature(ix.Signer, SigningMessage(programID, ix.Nonce, ix.Data), ix.Signature)
}
