// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package redis provides the client for short-lived sign-in state.
//
// Values here expire on their own. The only writer is the OAuth state store,
// which uses SET NX to issue a nonce and GETDEL to consume it once, so an
// abandoned sign-in never leaves a record in the credential store.
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client settings for the state store: one SET NX on redirect and one
// GETDEL on callback per sign-in.
const (
	dialTimeout     = 3 * time.Second
	readTimeout     = 1 * time.Second
	writeTimeout    = 1 * time.Second
	pingTimeout     = 2 * time.Second
	poolSize        = 4
	maxIdleConns    = 2
	connMaxIdleTime = 5 * time.Minute
)

// NewClient parses a Redis URL and returns a ready-to-use client.
//
// Retries are disabled: a resent SET NX or GETDEL after a lost reply would
// report a fresh state as taken or a valid state as already used.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	// Sign-ins are rare; connections are opened on demand
	options.PoolSize = poolSize
	options.MinIdleConns = 0
	options.MaxIdleConns = maxIdleConns
	options.ConnMaxIdleTime = connMaxIdleTime
	options.MaxRetries = -1

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	// Validate connectivity immediately at startup.
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis client connected",
		slog.String("addr", options.Addr),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
