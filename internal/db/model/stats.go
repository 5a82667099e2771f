package model

const OverallStatsID = "overall_stats"

// OverallStatsDocument represents the overall staking statistics
type OverallStatsDocument struct {
	ID              string `bson:"_id"`              // Always "overall_stats"
	ActiveStakes    uint64 `bson:"active_stakes"`    // Number of assets currently in custody
	UnclaimedReward uint64 `bson:"unclaimed_reward"` // Accrued but unclaimed reward as of last checkpoints
	ClaimedPoints   uint64 `bson:"claimed_points"`   // Total points credited to users
	LastUpdated     int64  `bson:"last_updated"`     // Unix timestamp of last update
}
