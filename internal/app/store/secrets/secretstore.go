// internal/app/store/secrets/secretstore.go
package secretstore

import (
	"context"
	"time"

	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store holds the join passphrase hash. The collection is expected to carry
// exactly one record; startup enforces that.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("secrets")}
}

// Get returns the shared secret, or mongo.ErrNoDocuments if none exists.
func (s *Store) Get(ctx context.Context) (*models.SharedSecret, error) {
	var sec models.SharedSecret
	if err := s.c.FindOne(ctx, bson.M{}).Decode(&sec); err != nil {
		return nil, err
	}
	return &sec, nil
}

// Count returns the number of secret records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// Create stores a new secret with the given bcrypt hash.
func (s *Store) Create(ctx context.Context, passwordHash string) (models.SharedSecret, error) {
	sec := models.SharedSecret{
		ID:           primitive.NewObjectID(),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, sec); err != nil {
		return models.SharedSecret{}, err
	}
	return sec, nil
}
