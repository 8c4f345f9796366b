// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
	"github.com/taibuivan/mockexam/internal/users/auth"
)

// memoryRepository is an in-memory [auth.UserRepository] with the same
// uniqueness and compare-and-swap rules as the Mongo implementation.
type memoryRepository struct {
	mu    sync.Mutex
	users map[string]*auth.User
	err   error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: make(map[string]*auth.User)}
}

func clone(user *auth.User) *auth.User {
	copied := *user
	if user.ProviderIDs != nil {
		copied.ProviderIDs = make(map[string]string, len(user.ProviderIDs))
		for provider, id := range user.ProviderIDs {
			copied.ProviderIDs[provider] = id
		}
	}
	return &copied
}

func (r *memoryRepository) find(match func(*auth.User) bool) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	for _, user := range r.users {
		if match(user) {
			return clone(user), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.ID == id })
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Email == email })
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Username == username })
}

func (r *memoryRepository) FindByUsernameOrEmail(_ context.Context, value string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Username == value || u.Email == value })
}

func (r *memoryRepository) FindByProviderID(_ context.Context, provider, providerID string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return providerID != "" && u.ProviderIDs[provider] == providerID })
}

func (r *memoryRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return apperr.Conflict("User already exists")
		}
	}

	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = clone(user)
	return nil
}

func (r *memoryRepository) UpdateOAuthProfile(_ context.Context, id string, update auth.OAuthProfileUpdate) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	if update.FirstName != "" {
		user.FirstName = update.FirstName
	}
	if update.LastName != "" {
		user.LastName = update.LastName
	}
	if update.ProfilePicURL != "" {
		user.ProfilePicURL = update.ProfilePicURL
	}
	if update.Provider != "" && update.ProviderID != "" {
		if user.ProviderIDs == nil {
			user.ProviderIDs = make(map[string]string)
		}
		user.ProviderIDs[update.Provider] = update.ProviderID
	}
	return clone(user), nil
}

func (r *memoryRepository) SetRefreshToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	user.RefreshToken = token
	return nil
}

func (r *memoryRepository) SwapRefreshToken(_ context.Context, id, current, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || current == "" || user.RefreshToken != current {
		return false, nil
	}
	user.RefreshToken = next
	return true, nil
}

// stored returns a copy of the persisted account.
func (r *memoryRepository) stored(id string) *auth.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil
	}
	return clone(user)
}

func (r *memoryRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// recorder collects auth events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) RecordAuthEvent(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, operation+":"+outcome)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
