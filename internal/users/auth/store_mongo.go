// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"embed"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taibuivan/mockexam/internal/platform/constants"
	"github.com/taibuivan/mockexam/internal/platform/dberr"
)

const resourceUser = "User"

// bson field names of the users collection.
const (
	bsonID           = "_id"
	bsonFirstName    = "first_name"
	bsonLastName     = "last_name"
	bsonUsername     = "username"
	bsonEmail        = "email"
	bsonPicture      = "profile_pic_url"
	bsonProviderIDs  = "provider_ids"
	bsonRefreshToken = "refresh_token"
	bsonUpdatedAt    = "updated_at"
)

// # User Repository

// MongoUserRepository implements the [UserRepository] interface on MongoDB.
type MongoUserRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewUserRepository creates a MongoDB implementation of the [UserRepository].
func NewUserRepository(database *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		collection: database.Collection(constants.CollectionUsers),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Migrations holds the versioned index migrations of the users collection.
//
//go:embed migrations/*.json
var Migrations embed.FS

// MigrationsDir is the directory of [Migrations].
const MigrationsDir = "migrations"

func providerField(provider string) string {
	return bsonProviderIDs + "." + provider
}

// findOne decodes the single document matching filter.
func (repository *MongoUserRepository) findOne(context context.Context, filter bson.D) (*User, error) {
	var user User
	if err := repository.collection.FindOne(context, filter).Decode(&user); err != nil {
		return nil, dberr.Wrap(err, resourceUser)
	}
	return &user, nil
}

// FindByID implements [UserRepository].
func (repository *MongoUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, bson.D{{Key: bsonID, Value: id}})
}

// FindByEmail implements [UserRepository].
func (repository *MongoUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, bson.D{{Key: bsonEmail, Value: email}})
}

// FindByUsername implements [UserRepository].
func (repository *MongoUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findOne(context, bson.D{{Key: bsonUsername, Value: username}})
}

// FindByUsernameOrEmail implements [UserRepository].
func (repository *MongoUserRepository) FindByUsernameOrEmail(context context.Context, value string) (*User, error) {
	return repository.findOne(context, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: bsonUsername, Value: value}},
		bson.D{{Key: bsonEmail, Value: value}},
	}}})
}

// FindByProviderID implements [UserRepository].
func (repository *MongoUserRepository) FindByProviderID(context context.Context, provider, providerID string) (*User, error) {
	return repository.findOne(context, bson.D{{Key: providerField(provider), Value: providerID}})
}

/*
Create persists a new user document.

Description: Initializes timestamps when missing. Unique index violations on
email or username surface as a Conflict.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Conflict or connectivity errors
*/
func (repository *MongoUserRepository) Create(context context.Context, user *User) error {
	now := repository.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.collection.InsertOne(context, user)
	return dberr.Wrap(err, resourceUser)
}

/*
UpdateOAuthProfile merges non-empty provider values and links the provider id.

Parameters:
  - context: context.Context
  - id: string
  - update: OAuthProfileUpdate

Returns:
  - *User: The document after the update
  - error: NotFound or persistence failures
*/
func (repository *MongoUserRepository) UpdateOAuthProfile(context context.Context, id string, update OAuthProfileUpdate) (*User, error) {
	set := bson.D{{Key: bsonUpdatedAt, Value: repository.now()}}

	if update.FirstName != "" {
		set = append(set, bson.E{Key: bsonFirstName, Value: update.FirstName})
	}
	if update.LastName != "" {
		set = append(set, bson.E{Key: bsonLastName, Value: update.LastName})
	}
	if update.ProfilePicURL != "" {
		set = append(set, bson.E{Key: bsonPicture, Value: update.ProfilePicURL})
	}
	if update.Provider != "" && update.ProviderID != "" {
		set = append(set, bson.E{Key: providerField(update.Provider), Value: update.ProviderID})
	}

	var user User
	err := repository.collection.FindOneAndUpdate(context,
		bson.D{{Key: bsonID, Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, dberr.Wrap(err, resourceUser)
	}

	return &user, nil
}

// SetRefreshToken implements [UserRepository].
func (repository *MongoUserRepository) SetRefreshToken(context context.Context, id, token string) error {
	result, err := repository.collection.UpdateOne(context,
		bson.D{{Key: bsonID, Value: id}},
		refreshTokenUpdate(token, repository.now()),
	)
	if err != nil {
		return dberr.Wrap(err, resourceUser)
	}
	if result.MatchedCount == 0 {
		return dberr.Wrap(mongo.ErrNoDocuments, resourceUser)
	}
	return nil
}

/*
SwapRefreshToken performs a compare-and-swap on the stored refresh token.

Description: The filter matches only while the document still holds current,
so of two concurrent callers presenting the same token exactly one matches.

Parameters:
  - context: context.Context
  - id: string
  - current: string
  - next: string (empty clears the session)

Returns:
  - bool: true when the swap was applied
  - error: Persistence failures
*/
func (repository *MongoUserRepository) SwapRefreshToken(context context.Context, id, current, next string) (bool, error) {
	if current == "" {
		return false, nil
	}

	result, err := repository.collection.UpdateOne(context,
		bson.D{{Key: bsonID, Value: id}, {Key: bsonRefreshToken, Value: current}},
		refreshTokenUpdate(next, repository.now()),
	)
	if err != nil {
		return false, dberr.Wrap(err, resourceUser)
	}

	return result.MatchedCount == 1, nil
}

// refreshTokenUpdate sets token, or unsets the field when token is empty.
func refreshTokenUpdate(token string, now time.Time) bson.D {
	if token == "" {
		return bson.D{
			{Key: "$unset", Value: bson.D{{Key: bsonRefreshToken, Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: bsonUpdatedAt, Value: now}}},
		}
	}
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: bsonRefreshToken, Value: token},
		{Key: bsonUpdatedAt, Value: now},
	}}}
}
