package db

import (
	"context"
	"errors"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (db *Database) SaveNewAsset(ctx context.Context, doc *model.AssetDocument) error {
	_, err := db.collection(model.AssetCollection).InsertOne(ctx, doc)
	if err != nil {
		return duplicateKeyOr(err, doc.Mint, "asset already exists")
	}
	return nil
}

func (db *Database) GetAsset(ctx context.Context, mint string) (*model.AssetDocument, error) {
	var doc model.AssetDocument
	err := db.collection(model.AssetCollection).FindOne(ctx, bson.M{"_id": mint}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     mint,
				Message: "asset not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

func (db *Database) TransferAsset(ctx context.Context, mint, from, to string) error {
	filter := bson.M{
		"_id":   mint,
		"owner": from,
	}
	update := bson.M{"$set": bson.M{"owner": to}}

	res := db.collection(model.AssetCollection).FindOneAndUpdate(ctx, filter, update)
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     mint,
				Message: "asset not found or not held by sender",
			}
		}
		return res.Err()
	}

	return nil
}
