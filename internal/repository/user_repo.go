package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/model"
)

// UserRepository defines operations for account data. Lookup methods return
// (nil, nil) when no matching active account exists; the service layer
// decides what that means.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*model.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
}

type userRepository struct {
	users *Collection[model.User]
}

// NewUserCollection is the active-scoped users collection. Inactive
// (soft-deleted) accounts are unconditionally hidden from every read.
func NewUserCollection(db *mongo.Database) *Collection[model.User] {
	return NewCollection[model.User](db, "users").
		WithScope(bson.M{"active": bson.M{"$ne": false}})
}

// NewUserRepository creates a UserRepository over the active-scoped users
// collection.
func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{users: NewUserCollection(db)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	id, err := r.users.InsertOne(ctx, user)
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByResetTokenHash resolves a pending, unexpired password reset. The
// caller presents the hash re-derived from the one-time secret.
func (r *userRepository) FindByResetTokenHash(ctx context.Context, hash string) (*model.User, error) {
	return r.findOne(ctx, bson.M{
		"passwordResetToken":   hash,
		"passwordResetExpires": bson.M{"$gt": time.Now()},
	})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	user, err := r.users.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// UpdatePassword stores a new password hash, records the change time and
// clears any pending reset token.
func (r *userRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string, changedAt time.Time) error {
	_, err := r.users.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"password":          passwordHash,
			"passwordChangedAt": changedAt,
		},
		"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetResetToken replaces any pending reset state; only the latest hash and
// expiry pair is honored.
func (r *userRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expiresAt time.Time) error {
	_, err := r.users.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"passwordResetToken":   hash,
			"passwordResetExpires": expiresAt,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

// ClearResetToken rolls back pending reset state, for example when the reset
// email could not be delivered.
func (r *userRepository) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.users.coll.UpdateByID(ctx, id, bson.M{
		"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}
