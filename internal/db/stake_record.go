package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *Database) SaveNewStakeRecord(ctx context.Context, doc *model.StakeRecordDocument) error {
	if doc == nil {
		return fmt.Errorf("nil stake record")
	}

	_, err := db.collection(model.StakeRecordCollection).InsertOne(ctx, doc)
	if err != nil {
		return duplicateKeyOr(err, doc.Address, "stake record already exists")
	}
	return nil
}

func (db *Database) GetStakeRecord(ctx context.Context, address string) (*model.StakeRecordDocument, error) {
	filter := bson.M{"_id": address}

	var doc model.StakeRecordDocument
	err := db.collection(model.StakeRecordCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     address,
				Message: "stake record not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

func (db *Database) GetStakeRecordsByOwner(ctx context.Context, owner string) ([]*model.StakeRecordDocument, error) {
	filter := bson.M{"owner": owner}
	opts := options.Find().SetSort(bson.D{{Key: "staked_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := db.collection(model.StakeRecordCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.StakeRecordDocument
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (db *Database) UpdateStakeRecord(
	ctx context.Context,
	doc *model.StakeRecordDocument,
	qualifiedPreviousStates []types.StakeState,
) error {
	filter := bson.M{
		"_id":   doc.Address,
		"state": bson.M{"$in": stateStrings(qualifiedPreviousStates)},
	}
	update := bson.M{
		"$set": bson.M{
			"last_checkpoint": doc.LastCheckpoint,
			"reward_rate":     doc.RewardRate,
			"accrued_reward":  doc.AccruedReward,
			"state":           doc.State.String(),
		},
	}

	res := db.collection(model.StakeRecordCollection).FindOneAndUpdate(ctx, filter, update)
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     doc.Address,
				Message: "stake record not found or current state is not qualified states",
			}
		}
		return res.Err()
	}

	return nil
}

func (db *Database) DeleteStakeRecord(
	ctx context.Context, address string, qualifiedPreviousStates []types.StakeState,
) error {
	filter := bson.M{
		"_id":   address,
		"state": bson.M{"$in": stateStrings(qualifiedPreviousStates)},
	}

	res, err := db.collection(model.StakeRecordCollection).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &NotFoundError{
			Key:     address,
			Message: "stake record not found or current state is not qualified states",
		}
	}

	return nil
}

func stateStrings(states []types.StakeState) []string {
	result := make([]string, len(states))
	for i, state := range states {
		result[i] = state.String()
	}
	return result
}
