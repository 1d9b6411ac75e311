package repository

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"surveypulse/internal/config"
)

// Connect opens a Mongo client and verifies it with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// idFilter matches an _id stored either as an ObjectID or as a plain string.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

// insertedID returns the hex form of a driver-generated ObjectID.
func insertedID(result *mongo.InsertOneResult) string {
	switch v := result.InsertedID.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	}
	return ""
}

// EnsureIndexes creates the indexes the postback pipeline relies on.
// Failures are logged, not returned: a missing index only slows queries.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *slog.Logger) {
	createIndex(ctx, logger, db.Collection(sharesCollection), bson.D{{Key: "unique_postback_id", Value: 1}}, true)
	createIndex(ctx, logger, db.Collection(mappingsCollection), bson.D{{Key: "survey_id", Value: 1}, {Key: "status", Value: 1}}, false)
	createIndex(ctx, logger, db.Collection(partnersCollection), bson.D{{Key: "status", Value: 1}}, false)
	createIndex(ctx, logger, db.Collection(surveyConfigsCollection), bson.D{{Key: "survey_id", Value: 1}}, true)
	createIndex(ctx, logger, db.Collection(criteriaCollection), bson.D{{Key: "name", Value: 1}}, false)
	createIndex(ctx, logger, db.Collection(usersCollection), bson.D{{Key: "email", Value: 1}}, false)
	createIndex(ctx, logger, db.Collection(auditCollection), bson.D{{Key: "survey_id", Value: 1}, {Key: "timestamp", Value: -1}}, false)
	createIndex(ctx, logger, db.Collection(auditCollection), bson.D{{Key: "type", Value: 1}, {Key: "timestamp", Value: -1}}, false)
	createIndex(ctx, logger, db.Collection(responsesCollection), bson.D{{Key: "surveyId", Value: 1}, {Key: "submittedAt", Value: -1}}, false)
	logger.Info("mongo indexes ensured")
}

func createIndex(ctx context.Context, logger *slog.Logger, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts}); err != nil {
		logger.Warn("failed to create index", "collection", coll.Name(), "error", err)
	}
}
