package db

import (
	"context"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/types"
	"go.mongodb.org/mongo-driver/bson"
)

// CalculateStakeStats calculates stats using MongoDB aggregation pipelines
// instead of loading every record into memory
func (db *Database) CalculateStakeStats(ctx context.Context) (*StakeStats, error) {
	stakePipeline := bson.A{
		// Match only records holding custody
		bson.M{
			"$match": bson.M{
				"state": types.StateStaked.String(),
			},
		},
		bson.M{
			"$group": bson.M{
				"_id":              nil,
				"active_stakes":    bson.M{"$sum": 1},
				"unclaimed_reward": bson.M{"$sum": "$accrued_reward"},
			},
		},
	}

	cursor, err := db.collection(model.StakeRecordCollection).Aggregate(ctx, stakePipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := &StakeStats{}
	if cursor.Next(ctx) {
		var result struct {
			ActiveStakes    uint64 `bson:"active_stakes"`
			UnclaimedReward uint64 `bson:"unclaimed_reward"`
		}
		if err := cursor.Decode(&result); err != nil {
			return nil, err
		}
		stats.ActiveStakes = result.ActiveStakes
		stats.UnclaimedReward = result.UnclaimedReward
	}

	pointsPipeline := bson.A{
		bson.M{
			"$group": bson.M{
				"_id":            nil,
				"claimed_points": bson.M{"$sum": "$points"},
			},
		},
	}

	pointsCursor, err := db.collection(model.UserAccountCollection).Aggregate(ctx, pointsPipeline)
	if err != nil {
		return nil, err
	}
	defer pointsCursor.Close(ctx)

	if pointsCursor.Next(ctx) {
		var result struct {
			ClaimedPoints uint64 `bson:"claimed_points"`
		}
		if err := pointsCursor.Decode(&result); err != nil {
			return nil, err
		}
		stats.ClaimedPoints = result.ClaimedPoints
	}

	return stats, nil
}
