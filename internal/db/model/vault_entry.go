package model

// VaultEntryDocument binds a custodied asset to the stake record holding it.
// Keyed by asset so an asset can never have two entries.
type VaultEntryDocument struct {
	Asset       string `bson:"_id"`
	Owner       string `bson:"owner"`
	StakeRecord string `bson:"stake_record"`
	Vault       string `bson:"vault"`
	DepositedAt int64  `bson:"deposited_at"`
}
