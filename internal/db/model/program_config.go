package model

// ProgramConfigDocument is the single program-wide configuration account
type ProgramConfigDocument struct {
	Address          string `bson:"_id"`
	Authority        string `bson:"authority"`
	RewardRate       uint64 `bson:"reward_rate"`        // reward points per second staked
	MinStakeDuration int64  `bson:"min_stake_duration"` // seconds before unstake is allowed
	MaxStake         uint32 `bson:"max_stake"`          // 0 means unlimited
	Bump             uint8  `bson:"bump"`
	UpdatedAt        int64  `bson:"updated_at"`
}
