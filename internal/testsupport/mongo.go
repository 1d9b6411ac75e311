package testsupport

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"

	"surveypulse/internal/config"
	"surveypulse/internal/repository"
)

// MongoContainer holds an ephemeral MongoDB instance and a connected client.
type MongoContainer struct {
	Container *mongodb.MongoDBContainer
	Client    *mongo.Client
}

// Database returns a fresh database on the container.
func (c *MongoContainer) Database(name string) *mongo.Database {
	return c.Client.Database(name)
}

// Terminate disconnects the client and removes the container.
func (c *MongoContainer) Terminate(ctx context.Context) error {
	c.Client.Disconnect(ctx)
	return c.Container.Terminate(ctx)
}

// StartMongoContainer spins up a mongo:7 container and connects through
// the same path the server uses.
func StartMongoContainer(ctx context.Context) (*MongoContainer, error) {
	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		return nil, fmt.Errorf("failed to start mongo container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mongo endpoint: %w", err)
	}

	client, err := repository.Connect(ctx, config.MongoConfig{URI: uri, ConnectTimeout: 30 * time.Second})
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}
	return &MongoContainer{Container: container, Client: client}, nil
}
