package db

import (
	"context"
	"errors"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (db *Database) SaveNewProgramConfig(ctx context.Context, doc *model.ProgramConfigDocument) error {
	_, err := db.collection(model.ProgramConfigCollection).InsertOne(ctx, doc)
	if err != nil {
		return duplicateKeyOr(err, doc.Address, "program config already exists")
	}
	return nil
}

func (db *Database) GetProgramConfig(ctx context.Context, address string) (*model.ProgramConfigDocument, error) {
	filter := bson.M{"_id": address}

	var doc model.ProgramConfigDocument
	err := db.collection(model.ProgramConfigCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     address,
				Message: "program config not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

func (db *Database) UpdateProgramConfig(ctx context.Context, doc *model.ProgramConfigDocument) error {
	filter := bson.M{"_id": doc.Address}
	update := bson.M{
		"$set": bson.M{
			"authority":          doc.Authority,
			"reward_rate":        doc.RewardRate,
			"min_stake_duration": doc.MinStakeDuration,
			"max_stake":          doc.MaxStake,
			"updated_at":         doc.UpdatedAt,
		},
	}

	res, err := db.collection(model.ProgramConfigCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{
			Key:     doc.Address,
			Message: "program config not found",
		}
	}

	return nil
}
