package model

// SignerNonceDocument holds the highest instruction nonce accepted from a signer
type SignerNonceDocument struct {
	Signer    string `bson:"_id"`
	LastNonce uint64 `bson:"last_nonce"`
	UpdatedAt int64  `bson:"updated_at"`
}
