package db

import (
	"context"
	"errors"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertOverallStats updates or inserts overall stats
func (db *Database) UpsertOverallStats(ctx context.Context, stats *StakeStats, updatedAt int64) error {
	filter := bson.M{"_id": model.OverallStatsID}
	update := bson.M{
		"$set": bson.M{
			"active_stakes":    stats.ActiveStakes,
			"unclaimed_reward": stats.UnclaimedReward,
			"claimed_points":   stats.ClaimedPoints,
			"last_updated":     updatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.OverallStatsCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error) {
	var doc model.OverallStatsDocument
	err := db.collection(model.OverallStatsCollection).
		FindOne(ctx, bson.M{"_id": model.OverallStatsID}).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     model.OverallStatsID,
				Message: "overall stats not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}
