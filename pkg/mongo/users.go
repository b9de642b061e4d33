package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(UsersCollection)}
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("email_taken", "an account with this email already exists")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	user, ok, err := findOne[models.User](ctx, r.collection, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id.Hex(), err)
	}
	if !ok {
		return nil, apperr.NotFound("user", id.Hex())
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok, err := findOne[models.User](ctx, r.collection, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("user", email)
	}
	return user, nil
}

// Update writes every mutable field of user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"verified":      user.Verified,
		"phone":         user.Phone,
		"address":       user.Address,
		"updated_at":    user.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("email_taken", "an account with this email already exists")
		}
		return fmt.Errorf("update user %s: %w", user.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user", user.ID.Hex())
	}
	return nil
}

func (r *UserRepository) AdminExists(ctx context.Context) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"role": models.RoleAdmin})
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n > 0, nil
}
