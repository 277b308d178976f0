package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

const (
	codesCollection = "codes"
	usersCollection = "users"
)

// Repositories groups the MongoDB-backed repository implementations.
type Repositories struct {
	Users *UserRepository
	Codes *CodeRepository
}

// NewRepositories wires all repositories against the supplied database.
func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Users: NewUserRepository(db),
		Codes: NewCodeRepository(db),
	}
}

// EnsureIndexes creates the unique indexes that back duplicate detection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	codeIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true).SetName("code_unique")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		{Keys: bson.D{{Key: "time", Value: 1}}, Options: options.Index().SetName("time_asc")},
	}
	if _, err := db.Collection(codesCollection).Indexes().CreateMany(ctx, codeIndexes); err != nil {
		return fmt.Errorf("create code indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
	}
	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	return nil
}

func translateWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}
