package model

// AssetDocument tracks the current holder of a non-fungible asset
type AssetDocument struct {
	Mint  string `bson:"_id"`
	Owner string `bson:"owner"`
}
