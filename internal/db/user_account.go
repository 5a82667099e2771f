package db

import (
	"context"
	"errors"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (db *Database) SaveNewUserAccount(ctx context.Context, doc *model.UserAccountDocument) error {
	_, err := db.collection(model.UserAccountCollection).InsertOne(ctx, doc)
	if err != nil {
		return duplicateKeyOr(err, doc.Owner, "user account already exists")
	}
	return nil
}

func (db *Database) GetUserAccount(ctx context.Context, owner string) (*model.UserAccountDocument, error) {
	filter := bson.M{"_id": owner}

	var doc model.UserAccountDocument
	err := db.collection(model.UserAccountCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     owner,
				Message: "user account not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

func (db *Database) UpdateUserAccount(ctx context.Context, doc *model.UserAccountDocument) error {
	filter := bson.M{"_id": doc.Owner}
	update := bson.M{
		"$set": bson.M{
			"points":        doc.Points,
			"amount_staked": doc.AmountStaked,
		},
	}

	res, err := db.collection(model.UserAccountCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{
			Key:     doc.Owner,
			Message: "user account not found",
		}
	}

	return nil
}
