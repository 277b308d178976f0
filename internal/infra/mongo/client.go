package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/infra/config"
)

const defaultTimeout = 5 * time.Second

// Client wraps mongo.Client with health check and lifecycle management
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *zap.Logger
	timeout  time.Duration
}

// NewClient connects to the configured deployment and verifies it with a ping.
func NewClient(ctx context.Context, cfg config.MongoSettings, logger *zap.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	logger.Info("MongoDB connection established",
		zap.String("database", cfg.Database),
		zap.Duration("timeout", timeout),
	)

	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		logger:   logger,
		timeout:  timeout,
	}, nil
}

// Database returns the handle repositories operate on.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// HealthCheck performs a ping to verify MongoDB connectivity
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}

// Close disconnects the client, bounded by the configured timeout.
func (c *Client) Close(ctx context.Context) error {
	c.logger.Info("Closing MongoDB connection")
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
