package model

type UserAccountDocument struct {
	Owner        string `bson:"_id"`
	Address      string `bson:"address"`
	Points       uint64 `bson:"points"`
	AmountStaked uint32 `bson:"amount_staked"`
	Bump         uint8  `bson:"bump"`
}

func NewUserAccountDocument(owner, address string, bump uint8) *UserAccountDocument {
	return &UserAccountDocument{
		Owner:   owner,
		Address: address,
		Bump:    bump,
	}
}
