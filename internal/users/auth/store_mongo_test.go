// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
	"github.com/taibuivan/mockexam/internal/platform/migration"
	"github.com/taibuivan/mockexam/internal/platform/mongodb"
	"github.com/taibuivan/mockexam/internal/platform/sec"
	"github.com/taibuivan/mockexam/internal/users/auth"
	"github.com/taibuivan/mockexam/internal/users/oauth"
)

// newMongoRepository connects to MONGO_TEST_URI and applies the user migrations.
// The test is skipped when MongoDB is not reachable.
func newMongoRepository(t *testing.T) *auth.MongoUserRepository {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx := context.Background()

	const databaseName = "mockexam_auth_test"

	client, err := mongodb.NewClient(ctx, uri, databaseName, logger)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Database().Drop(context.Background())
		_ = client.Close()
	})

	require.NoError(t, client.Database().Drop(ctx))
	require.NoError(t, migration.RunUp(uri, databaseName, auth.Migrations, auth.MigrationsDir, logger))

	return auth.NewUserRepository(client.Database())
}

func newStoredUser(id, email, username string) *auth.User {
	return &auth.User{
		ID:           id,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		Username:     username,
		PasswordHash: "$2a$10$hash",
		Role:         sec.RoleUser,
	}
}

/*
TestMongoUserRepository_Lookups finds accounts by every supported key.
*/
func TestMongoUserRepository_Lookups(t *testing.T) {
	repository := newMongoRepository(t)
	ctx := context.Background()

	user := newStoredUser("u1", "ada@example.com", "ada")
	user.ProviderIDs = map[string]string{oauth.ProviderGoogle: "g-1"}
	require.NoError(t, repository.Create(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	lookups := map[string]func() (*auth.User, error){
		"id":                func() (*auth.User, error) { return repository.FindByID(ctx, "u1") },
		"email":             func() (*auth.User, error) { return repository.FindByEmail(ctx, "ada@example.com") },
		"username":          func() (*auth.User, error) { return repository.FindByUsername(ctx, "ada") },
		"or by username":    func() (*auth.User, error) { return repository.FindByUsernameOrEmail(ctx, "ada") },
		"or by email":       func() (*auth.User, error) { return repository.FindByUsernameOrEmail(ctx, "ada@example.com") },
		"provider identity": func() (*auth.User, error) { return repository.FindByProviderID(ctx, oauth.ProviderGoogle, "g-1") },
	}

	for name, lookup := range lookups {
		t.Run(name, func(t *testing.T) {
			found, err := lookup()
			require.NoError(t, err)
			assert.Equal(t, "u1", found.ID)
			assert.Equal(t, "$2a$10$hash", found.PasswordHash)
		})
	}

	_, err := repository.FindByEmail(ctx, "missing@example.com")
	assert.True(t, apperr.IsNotFound(err))
	_, err = repository.FindByProviderID(ctx, oauth.ProviderFacebook, "g-1")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestMongoUserRepository_Uniqueness enforces unique email, username and provider id.
*/
func TestMongoUserRepository_Uniqueness(t *testing.T) {
	repository := newMongoRepository(t)
	ctx := context.Background()

	first := newStoredUser("u1", "ada@example.com", "ada")
	first.ProviderIDs = map[string]string{oauth.ProviderGoogle: "g-1"}
	require.NoError(t, repository.Create(ctx, first))

	// Accounts without a provider id do not collide on the sparse index.
	require.NoError(t, repository.Create(ctx, newStoredUser("u2", "grace@example.com", "grace")))

	duplicates := []*auth.User{
		newStoredUser("u3", "ada@example.com", "other"),
		newStoredUser("u4", "other@example.com", "ada"),
		func() *auth.User {
			user := newStoredUser("u5", "third@example.com", "third")
			user.ProviderIDs = map[string]string{oauth.ProviderGoogle: "g-1"}
			return user
		}(),
	}
	for _, user := range duplicates {
		err := repository.Create(ctx, user)
		assert.True(t, apperr.HasCode(err, apperr.CodeConflict), "user %s: %v", user.ID, err)
	}
}

/*
TestMongoUserRepository_UpdateOAuthProfile merges only non-empty values.
*/
func TestMongoUserRepository_UpdateOAuthProfile(t *testing.T) {
	repository := newMongoRepository(t)
	ctx := context.Background()
	require.NoError(t, repository.Create(ctx, newStoredUser("u1", "ada@example.com", "ada")))

	updated, err := repository.UpdateOAuthProfile(ctx, "u1", auth.OAuthProfileUpdate{
		LastName:      "King",
		ProfilePicURL: "https://example.com/ada.png",
		Provider:      oauth.ProviderFacebook,
		ProviderID:    "fb-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "King", updated.LastName)
	assert.Equal(t, "https://example.com/ada.png", updated.ProfilePicURL)
	assert.Equal(t, "fb-1", updated.ProviderIDs[oauth.ProviderFacebook])
	assert.Equal(t, "$2a$10$hash", updated.PasswordHash)

	_, err = repository.UpdateOAuthProfile(ctx, "missing", auth.OAuthProfileUpdate{FirstName: "X"})
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestMongoUserRepository_RefreshToken covers overwrite, compare-and-swap and clear.
*/
func TestMongoUserRepository_RefreshToken(t *testing.T) {
	repository := newMongoRepository(t)
	ctx := context.Background()
	require.NoError(t, repository.Create(ctx, newStoredUser("u1", "ada@example.com", "ada")))

	require.NoError(t, repository.SetRefreshToken(ctx, "u1", "t1"))
	assert.True(t, apperr.IsNotFound(repository.SetRefreshToken(ctx, "missing", "t1")))

	swapped, err := repository.SwapRefreshToken(ctx, "u1", "stale", "t2")
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = repository.SwapRefreshToken(ctx, "u1", "t1", "t2")
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = repository.SwapRefreshToken(ctx, "u1", "t2", "")
	require.NoError(t, err)
	assert.True(t, swapped)

	stored, err := repository.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)

	swapped, err = repository.SwapRefreshToken(ctx, "u1", "", "t3")
	require.NoError(t, err)
	assert.False(t, swapped, "an empty current token never matches a cleared session")
}

/*
TestMongoUserRepository_SwapRace lets exactly one concurrent swap succeed.
*/
func TestMongoUserRepository_SwapRace(t *testing.T) {
	repository := newMongoRepository(t)
	ctx := context.Background()
	require.NoError(t, repository.Create(ctx, newStoredUser("u1", "ada@example.com", "ada")))
	require.NoError(t, repository.SetRefreshToken(ctx, "u1", "shared"))

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			swapped, err := repository.SwapRefreshToken(ctx, "u1", "shared", "next-"+string(rune('a'+i)))
			assert.NoError(t, err)
			if swapped {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
