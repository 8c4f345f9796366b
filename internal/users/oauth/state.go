// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mockexam/internal/platform/constants"
)

// ErrInvalidState is returned for unknown, expired, reused or cross-provider states.
var ErrInvalidState = errors.New("oauth: invalid state")

const stateBytes = 32

// StateStore issues and consumes the anti-forgery 'state' of a redirect.
type StateStore interface {
	Issue(ctx context.Context, provider string) (string, error)
	Consume(ctx context.Context, provider, state string) error
}

// RedisStateStore keeps states in Redis with a TTL. Each state is bound to
// one provider and can be consumed once.
type RedisStateStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStateStore creates a state store. A non-positive ttl uses the default.
func NewRedisStateStore(client redis.Cmdable, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = constants.OAuthStateTTL
	}
	return &RedisStateStore{client: client, ttl: ttl}
}

// Issue implements [StateStore].
func (s *RedisStateStore) Issue(ctx context.Context, provider string) (string, error) {
	buffer := make([]byte, stateBytes)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("oauth: generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buffer)

	stored, err := s.client.SetNX(ctx, constants.RedisPrefixOAuthState+state, provider, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("oauth: store state: %w", err)
	}
	if !stored {
		return "", errors.New("oauth: state collision")
	}

	return state, nil
}

// Consume implements [StateStore]. The state is deleted whether or not it matches.
func (s *RedisStateStore) Consume(ctx context.Context, provider, state string) error {
	if state == "" {
		return ErrInvalidState
	}

	owner, err := s.client.GetDel(ctx, constants.RedisPrefixOAuthState+state).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidState
	}
	if err != nil {
		return fmt.Errorf("oauth: consume state: %w", err)
	}

	if owner != provider {
		return ErrInvalidState
	}

	return nil
}
