package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	mongotx "hallbook/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MongoCollectionName = "Collections"

// MongoStore keeps each collection as one document:
// {_id: <collection>, records: [...], updated_at: <time>}.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
	timeout    time.Duration
}

func NewMongoStore(client *mongo.Client, database string, timeout time.Duration) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(MongoCollectionName),
		txManager:  mongotx.NewTransactionManager(client),
		timeout:    timeout,
	}
}

type mongoDocument struct {
	ID        string        `bson:"_id"`
	Records   bson.RawValue `bson:"records"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func (s *MongoStore) Get(ctx context.Context, collection string, dst any) (bool, error) {
	if collection == "" {
		return false, ErrEmptyCollectionName
	}
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc mongoDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": collection}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}

	if err := doc.Records.Unmarshal(dst); err != nil {
		return true, fmt.Errorf("failed to decode collection %s: %w", collection, err)
	}
	return true, nil
}

func (s *MongoStore) Set(ctx context.Context, collection string, records any) error {
	if collection == "" {
		return ErrEmptyCollectionName
	}
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := bson.M{
		"_id":        collection,
		"records":    records,
		"updated_at": time.Now().UTC(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": collection}, doc, opts); err != nil {
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Remove(ctx context.Context, collection string) error {
	if collection == "" {
		return ErrEmptyCollectionName
	}
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": collection}); err != nil {
		return fmt.Errorf("failed to remove collection %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Clear(ctx context.Context) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear collections: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}
