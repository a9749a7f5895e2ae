package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AccountsCollection holds local identity accounts.
const AccountsCollection = "accounts"

// MongoAccountRepository implements the AccountRepository interface using MongoDB
type MongoAccountRepository struct {
	accounts *mongo.Collection
}

// NewMongoAccountRepository creates the repository and its indexes.
func NewMongoAccountRepository(ctx context.Context, db *mongo.Database) (*MongoAccountRepository, error) {
	repo := &MongoAccountRepository{accounts: db.Collection(AccountsCollection)}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := repo.accounts.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create account indexes: %w", err)
	}
	return repo, nil
}

// Create inserts a new account.
func (r *MongoAccountRepository) Create(ctx context.Context, account *model.Account) error {
	if account == nil {
		return errors.New("account cannot be nil")
	}
	now := time.Now().UTC()
	account.Email = normalizeEmail(account.Email)
	account.CreatedAt = now
	account.UpdatedAt = now

	if _, err := r.accounts.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by email
func (r *MongoAccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	return r.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

// GetByID retrieves an account by ID
func (r *MongoAccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, errors.New("account ID cannot be empty")
	}
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*model.Account, error) {
	var account model.Account
	err := r.accounts.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &account, nil
}

// Update replaces the stored profile and credentials of an account.
func (r *MongoAccountRepository) Update(ctx context.Context, account *model.Account) error {
	if account == nil {
		return errors.New("account cannot be nil")
	}
	account.UpdatedAt = time.Now().UTC()

	result, err := r.accounts.UpdateOne(ctx, bson.M{"id": account.ID}, bson.M{"$set": bson.M{
		"password_hash": account.PasswordHash,
		"displayName":   account.DisplayName,
		"photoURL":      account.PhotoURL,
		"emailVerified": account.EmailVerified,
		"disabled":      account.Disabled,
		"updated_at":    account.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ repository.AccountRepository = (*MongoAccountRepository)(nil)
