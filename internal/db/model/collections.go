package model

const (
	ProgramConfigCollection = "program_config"
	UserAccountCollection   = "user_accounts"
	StakeRecordCollection   = "stake_records"
	VaultEntryCollection    = "vault_entries"
	AssetCollection         = "assets"
	OverallStatsCollection  = "overall_stats"
	SignerNonceCollection   = "signer_nonces"
)

// Collections lists every collection owned by the program, in creation order
var Collections = []string{
	ProgramConfigCollection,
	UserAccountCollection,
	StakeRecordCollection,
	VaultEntryCollection,
	AssetCollection,
	OverallStatsCollection,
	SignerNonceCollection,
}
