package mongox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultURI      = "mongodb://localhost:27017"
	DefaultDatabase = "calendar"
)

// Connect opens a client, pings the primary and returns the named database.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	if uri == "" {
		uri = DefaultURI
	}
	if database == "" {
		database = DefaultDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client.Database(database), nil
}

// EnsureIndexes creates the indexes the calendar queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	events := []mongo.IndexModel{
		{Keys: bson.D{{Key: "startDate", Value: 1}}},
		{Keys: bson.D{{Key: "endDate", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "location", Value: 1}}},
	}
	if _, err := db.Collection("events").Indexes().CreateMany(ctx, events); err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}

	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, coll := range []string{"categories", "locations"} {
		if _, err := db.Collection(coll).Indexes().CreateOne(ctx, unique); err != nil {
			return fmt.Errorf("failed to create %s index: %w", coll, err)
		}
	}

	return nil
}
