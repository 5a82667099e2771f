package db

import (
	"context"
	"errors"

	"github.com/tedkimdev/nft-staking/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *Database) GetSignerNonce(ctx context.Context, signer string) (*model.SignerNonceDocument, error) {
	filter := bson.M{"_id": signer}

	var doc model.SignerNonceDocument
	err := db.collection(model.SignerNonceCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     signer,
				Message: "signer nonce not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

// AdvanceSignerNonce stores nonce as the last nonce of signer. The filter only
// matches a lower stored nonce; otherwise the upsert collides on _id, which is
// reported as StaleNonceError.
func (db *Database) AdvanceSignerNonce(ctx context.Context, signer string, nonce uint64, updatedAt int64) error {
	filter := bson.M{
		"_id":        signer,
		"last_nonce": bson.M{"$lt": nonce},
	}
	update := bson.M{
		"$set": bson.M{
			"last_nonce": nonce,
			"updated_at": updatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.SignerNonceCollection).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &StaleNonceError{Signer: signer, Nonce: nonce}
		}
		return err
	}
	return nil
}
