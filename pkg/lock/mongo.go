package lock

import (
	"context"
	"fmt"
	"time"

	"hallbook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const MongoCollectionName = "Collection_locks"

// Mongo relies on the unique _id to make insertion the acquire step. Expired
// locks are reclaimed inline and by the TTL index on expires_at.
type Mongo struct {
	collection *mongo.Collection
	ttl        time.Duration
	wait       time.Duration
}

func NewMongo(client *mongo.Client, database string, ttl, wait time.Duration) *Mongo {
	return &Mongo{
		collection: client.Database(database).Collection(MongoCollectionName),
		ttl:        ttl,
		wait:       wait,
	}
}

func (m *Mongo) Acquire(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()

	err := retry(ctx, m.wait, func(ctx context.Context) (bool, error) {
		now := time.Now().UTC()
		_, err := m.collection.InsertOne(ctx, model.CollectionLock{
			ID:        key,
			Token:     token,
			ExpiresAt: now.Add(m.ttl),
			CreatedAt: now,
		})
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("failed to acquire mongo lock %s: %w", key, err)
		}

		if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lt": now}}); err != nil {
			return false, fmt.Errorf("failed to reclaim expired mongo lock %s: %w", key, err)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key, "token": token}); err != nil {
			return fmt.Errorf("failed to release mongo lock %s: %w", key, err)
		}
		return nil
	}, nil
}
