package model

import (
	"github.com/tedkimdev/nft-staking/internal/types"
)

type StakeRecordDocument struct {
	Address        string           `bson:"_id"` // Primary key, derived from owner, asset and config
	Owner          string           `bson:"owner"`
	Asset          string           `bson:"asset"`
	Config         string           `bson:"config"`
	StakedAt       int64            `bson:"staked_at"`
	LastCheckpoint int64            `bson:"last_checkpoint"`
	RewardRate     uint64           `bson:"reward_rate"` // snapshot taken at LastCheckpoint
	AccruedReward  uint64           `bson:"accrued_reward"`
	State          types.StakeState `bson:"state"`
	Bump           uint8            `bson:"bump"`
}

func NewStakeRecordDocument(
	address, owner, asset, config string,
	stakedAt int64, rewardRate uint64, bump uint8,
) *StakeRecordDocument {
	return &StakeRecordDocument{
		Address:        address,
		Owner:          owner,
		Asset:          asset,
		Config:         config,
		StakedAt:       stakedAt,
		LastCheckpoint: stakedAt,
		RewardRate:     rewardRate,
		State:          types.StateStaked,
		Bump:           bump,
	}
}
