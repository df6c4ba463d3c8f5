package mongo

import (
	"context"
	"fmt"
	"time"

	"hallbook/internal/migrations/mongo/validators"
	"hallbook/pkg/lock"
	"hallbook/pkg/logger"
	"hallbook/pkg/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	CollectionIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	}

	// Expired locks are removed by Mongo even if their holder died.
	LockIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

type collectionSpec struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collectionSpecs() map[string]collectionSpec {
	return map[string]collectionSpec{
		store.MongoCollectionName: {
			Indexes:   CollectionIndexes,
			Validator: validators.CollectionDocumentValidator(store.Collections),
		},
		lock.MongoCollectionName: {
			Indexes:   LockIndexes,
			Validator: validators.LockValidator,
		},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, database string, log *logger.Logger) error {
	db := client.Database(database)
	log.Info("Running Mongo migrations", "database", database)

	for name, def := range collectionSpecs() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	if err := seedCollections(ctx, db.Collection(store.MongoCollectionName), store.Collections, log); err != nil {
		return fmt.Errorf("failed to seed collections: %w", err)
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name)
	return nil
}

// seedCollections inserts an empty document for every named collection that
// does not exist yet. Existing records are left alone.
func seedCollections(ctx context.Context, coll *mongo.Collection, names []string, log *logger.Logger) error {
	now := time.Now().UTC()
	for _, name := range names {
		res, err := coll.UpdateOne(ctx,
			bson.M{"_id": name},
			bson.M{"$setOnInsert": bson.M{"records": bson.A{}, "updated_at": now}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", name, err)
		}
		if res.UpsertedCount > 0 {
			log.Info("Seeded empty collection", "collection", name)
		}
	}
	return nil
}
