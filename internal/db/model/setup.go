package model

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type index struct {
	Keys   bson.D
	Unique bool
}

var collectionIndexes = map[string][]index{
	StakeRecordCollection: {
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "staked_at", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}}},
		// a second record for the same asset must never be persisted
		{Keys: bson.D{{Key: "asset", Value: 1}}, Unique: true},
	},
	VaultEntryCollection: {
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	},
	AssetCollection: {
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	},
}

// Setup creates the collections and indexes used by the program.
// Collections must exist up front because mongo cannot create them inside a transaction.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" {
		clientOps.SetAuth(credential)
	}
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongo")
		}
	}()

	database := client.Database(cfg.DbName)

	for _, collection := range Collections {
		if err := createCollection(ctx, database, collection); err != nil {
			return err
		}
	}

	for collection, idxs := range collectionIndexes {
		for _, idx := range idxs {
			if err := createIndex(ctx, database, collection, idx); err != nil {
				return err
			}
		}
	}

	log.Info().Msg("Collections and indexes created successfully")
	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, collectionName string) error {
	existing, err := database.ListCollectionNames(ctx, bson.M{"name": collectionName})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	if err := database.CreateCollection(ctx, collectionName); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
	}
	log.Debug().Str("collection", collectionName).Msg("collection created")
	return nil
}

func createIndex(ctx context.Context, database *mongo.Database, collectionName string, idx index) error {
	if len(idx.Keys) == 0 {
		return nil
	}

	indexModel := mongo.IndexModel{
		Keys:    idx.Keys,
		Options: options.Index().SetUnique(idx.Unique),
	}

	if _, err := database.Collection(collectionName).Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create index on collection %s: %w", collectionName, err)
	}

	return nil
}
