package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

type userDocument struct {
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	CreatedAt time.Time `bson:"created_at"`
}

// UserRepository implements port.UserRepository on the users collection.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository constructs a user repository on db.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(usersCollection)}
}

func (r *UserRepository) FindByEmailAndUsername(ctx context.Context, email, username string) (*domain.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, bson.M{"email": email, "username": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &domain.User{Username: doc.Username, Email: doc.Email, CreatedAt: doc.CreatedAt.UTC()}, nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := userDocument{Username: user.Username, Email: user.Email, CreatedAt: createdAt}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mapped := translateWriteError(err); mapped == repository.ErrDuplicate {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, email, username string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"email": email, "username": username})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
