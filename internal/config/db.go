package config

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo connects and pings the document store, retrying a few times so
// a cold database container can catch up.
func ConnectMongo(ctx context.Context, cfg *Config, logger zerolog.Logger) (*mongo.Client, error) {
	maxRetries := 5
	retryInterval := 5 * time.Second

	var client *mongo.Client
	var err error
	for i := 0; i < maxRetries; i++ {
		client, err = mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = client.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				logger.Info().Str("db", cfg.MongoDB).Msg("connected to mongodb")
				return client, nil
			}
		}
		logger.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries).Msg("failed to connect to mongodb, retrying")
		time.Sleep(retryInterval)
	}
	return nil, fmt.Errorf("unable to connect to mongodb after %d attempts: %w", maxRetries, err)
}

// EnsureIndexes creates every index the repositories rely on. Safe to run on
// every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	trips := []mongo.IndexModel{
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}}},
		{Keys: bson.D{{Key: "slug", Value: 1}}},
		{Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}}},
	}
	if _, err := db.Collection("trips").Indexes().CreateMany(ctx, trips); err != nil {
		return fmt.Errorf("failed to create trip indexes: %w", err)
	}

	// one review per user per trip
	reviews := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trip", Value: 1}, {Key: "user", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection("reviews").Indexes().CreateMany(ctx, reviews); err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}
	return nil
}
