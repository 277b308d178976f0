package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

// codeDocument stores the issue time as Unix milliseconds in "time".
type codeDocument struct {
	Code       string `bson:"code"`
	Email      string `bson:"email"`
	Username   string `bson:"username"`
	IssuedAt   int64  `bson:"time"`
	Mismatches int    `bson:"mismatches"`
}

func (d codeDocument) toDomain() *domain.ResetCode {
	return &domain.ResetCode{
		Code:       d.Code,
		Email:      d.Email,
		Username:   d.Username,
		IssuedAt:   time.UnixMilli(d.IssuedAt).UTC(),
		Mismatches: d.Mismatches,
	}
}

// CodeRepository implements port.CodeRepository on the codes collection.
type CodeRepository struct {
	collection *mongo.Collection
}

// NewCodeRepository constructs a code repository on db.
func NewCodeRepository(db *mongo.Database) *CodeRepository {
	return &CodeRepository{collection: db.Collection(codesCollection)}
}

func (r *CodeRepository) Create(ctx context.Context, code domain.ResetCode) error {
	doc := codeDocument{
		Code:       code.Code,
		Email:      code.Email,
		Username:   code.Username,
		IssuedAt:   code.IssuedAt.UnixMilli(),
		Mismatches: code.Mismatches,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mapped := translateWriteError(err); mapped == repository.ErrDuplicate {
			return mapped
		}
		return fmt.Errorf("insert reset code: %w", err)
	}
	return nil
}

func (r *CodeRepository) FindByCode(ctx context.Context, code string) (*domain.ResetCode, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *CodeRepository) FindConflict(ctx context.Context, username, email, code string) (*domain.ResetCode, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
		bson.M{"code": code},
	}})
}

func (r *CodeRepository) DeleteByCode(ctx context.Context, code string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"code": code})
	if err != nil {
		return false, fmt.Errorf("delete reset code: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *CodeRepository) IncrementMismatches(ctx context.Context, code string) (int, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc codeDocument
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"code": code}, bson.M{"$inc": bson.M{"mismatches": 1}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment mismatches: %w", err)
	}
	return doc.Mismatches, nil
}

func (r *CodeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"time": bson.M{"$lt": cutoff.UnixMilli()}})
	if err != nil {
		return 0, fmt.Errorf("sweep reset codes: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *CodeRepository) findOne(ctx context.Context, filter bson.M) (*domain.ResetCode, error) {
	var doc codeDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find reset code: %w", err)
	}
	return doc.toDomain(), nil
}

var _ port.CodeRepository = (*CodeRepository)(nil)
