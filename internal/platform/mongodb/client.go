// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package mongodb provides a managed MongoDB client for the credential store.
//
// # Architecture
//
// This package is part of the Infrastructure layer. It manages the physical
// connection pool of the official driver and hands out [*mongo.Database]
// handles to the repositories defined in the domain packages.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/taibuivan/mockexam/internal/platform/constants"
)

// Opinionated pool settings for the auth workload.
const (
	// maxPoolSize is the maximum number of connections in the pool.
	maxPoolSize = 25
	// minPoolSize keeps a warm set of connections to avoid cold-start latency.
	minPoolSize = 2
	// maxConnIdleTime closes connections that have been idle too long.
	maxConnIdleTime = 10 * time.Minute
	// connectTimeout is the maximum time allowed to establish a new connection.
	connectTimeout = 5 * time.Second
	// serverSelectionTimeout bounds how long an operation waits for a usable server.
	serverSelectionTimeout = 5 * time.Second
	// pingTimeout is the maximum duration for a health check ping.
	pingTimeout = 2 * time.Second
	// disconnectTimeout bounds the graceful close at shutdown.
	disconnectTimeout = 5 * time.Second
)

// Client bundles the driver client with the application database.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewClient creates and validates a new MongoDB connection pool.
//
// # Parameters
//   - ctx: Context for the initial ping.
//   - uri: A mongodb:// or mongodb+srv:// connection string.
//   - databaseName: Name of the application database.
//   - logger: Structured logger for pool-level events.
func NewClient(ctx context.Context, uri, databaseName string, logger *slog.Logger) (*Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetAppName(constants.AppName).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minPoolSize).
		SetMaxConnIdleTime(maxConnIdleTime).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetTimeout(constants.GlobalRequestTimeout)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb: invalid configuration: %w", err)
	}

	wrapped := &Client{client: client, database: client.Database(databaseName)}

	// Validate that we can actually reach the server.
	if err := wrapped.Ping(ctx); err != nil {
		_ = wrapped.Close()
		return nil, err
	}

	logger.Info("mongodb client connected",
		slog.String("database", databaseName),
		slog.Int("max_pool_size", maxPoolSize),
	)

	return wrapped, nil
}

// Database returns the application database handle.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Ping verifies that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb: ping failed: %w", err)
	}

	return nil
}

// Close drains the pool and disconnects.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}
