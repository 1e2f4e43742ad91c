package db

import (
	"context"
	"fmt"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/config"
	"github.com/yigit/circlehub/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB wraps the client and the application database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB connects, pings the primary and returns the application database.
func NewMongoDB(ctx context.Context, cfg *config.Config) (*MongoDB, error) {
	timeout, err := time.ParseDuration(cfg.Mongo.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mongo connect timeout: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetMaxConnecting(uint64(cfg.Mongo.MaxConnecting)).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoDB{Client: client, Database: client.Database(cfg.Mongo.Database)}, nil
}

// Ping is used by the health check
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		models.CollectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "subscriptionStatus", Value: 1}, {Key: "trialEndDate", Value: 1}}},
		},
		models.CollectionCommunities: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "paymentStatus", Value: 1}, {Key: "subscriptionEndDate", Value: 1}}},
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		models.CollectionPosts: {
			{Keys: bson.D{{Key: "community", Value: 1}, {Key: "isPinned", Value: -1}, {Key: "createdAt", Value: -1}}},
		},
		models.CollectionComments: {
			{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		models.CollectionCourses: {
			{Keys: bson.D{{Key: "community", Value: 1}}},
		},
		models.CollectionProgress: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "course", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		models.CollectionMessages: {
			{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "read", Value: 1}}},
		},
		models.CollectionNotifications: {
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		models.CollectionTransactions: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "gatewaySessionId", Value: 1}}},
		},
		models.CollectionPlans: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		models.CollectionSubscriptions: {
			{Keys: bson.D{{Key: "gatewaySubscriptionId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "community", Value: 1}, {Key: "purpose", Value: 1}}},
		},
	}

	for collection, idx := range indexes {
		names, err := m.Database.Collection(collection).Indexes().CreateMany(ctx, idx)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		logger.Debug().Str("collection", collection).Strs("indexes", names).Msg("Indexes ensured")
	}
	return nil
}
