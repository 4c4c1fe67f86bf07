package container

import (
	"context"
	"fmt"
	"sync"

	broker "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Broker"
	config "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Config"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Container manages dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *logger.Logger

	mongoClient  *mongo.Client
	brokerClient *broker.Client

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions
	cleanupFuncs []func() error
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	log := logger.NewLogger(&cfg.Logging)

	return &Container{
		config: cfg,
		logger: log,
	}, nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetMongoClient returns the document store client, connecting on first use
func (c *Container) GetMongoClient() (*mongo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mongoClient != nil {
		return c.mongoClient, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Mongo.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.config.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	c.mongoClient = client
	c.cleanupFuncs = append(c.cleanupFuncs, func() error {
		return client.Disconnect(context.Background())
	})

	c.logger.Info("Connected to document store")
	return client, nil
}

// GetDatabase returns the configured database handle
func (c *Container) GetDatabase() (*mongo.Database, error) {
	client, err := c.GetMongoClient()
	if err != nil {
		return nil, err
	}
	return client.Database(c.config.Mongo.Database), nil
}

// GetBrokerClient returns the MQTT client. Connect is left to the caller
// so consumers can register their subscription hooks first.
func (c *Container) GetBrokerClient() *broker.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.brokerClient == nil {
		c.brokerClient = broker.NewClient(c.config, c.logger)
		c.cleanupFuncs = append(c.cleanupFuncs, func() error {
			c.brokerClient.Disconnect()
			return nil
		})
	}

	return c.brokerClient
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	// Execute cleanup functions in reverse order
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}
