package db

import (
	"context"
	"errors"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (db *Database) SaveNewVaultEntry(ctx context.Context, doc *model.VaultEntryDocument) error {
	_, err := db.collection(model.VaultEntryCollection).InsertOne(ctx, doc)
	if err != nil {
		return duplicateKeyOr(err, doc.Asset, "asset already held in vault")
	}
	return nil
}

func (db *Database) GetVaultEntry(ctx context.Context, asset string) (*model.VaultEntryDocument, error) {
	filter := bson.M{"_id": asset}

	var doc model.VaultEntryDocument
	err := db.collection(model.VaultEntryCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     asset,
				Message: "vault entry not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

func (db *Database) DeleteVaultEntry(ctx context.Context, asset string) error {
	res, err := db.collection(model.VaultEntryCollection).DeleteOne(ctx, bson.M{"_id": asset})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &NotFoundError{
			Key:     asset,
			Message: "vault entry not found",
		}
	}
	return nil
}
