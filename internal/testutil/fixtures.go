package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/membersonly/internal/app/system/authutil"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with a bcrypt-hashed password.
func (f *Fixtures) CreateUser(ctx context.Context, first, last, email, password string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, first, last, email, password, false, false)
}

// CreateAdmin inserts an admin user (not a member).
func (f *Fixtures) CreateAdmin(ctx context.Context, first, last, email, password string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, first, last, email, password, true, false)
}

func (f *Fixtures) insertUser(ctx context.Context, first, last, email, password string, isAdmin, isMember bool) models.User {
	f.t.Helper()

	hash, err := authutil.HashPassword(password)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	u := models.User{
		ID:           primitive.NewObjectID(),
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		IsMember:     isMember,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateSecret inserts the shared join secret for passphrase.
func (f *Fixtures) CreateSecret(ctx context.Context, passphrase string) models.SharedSecret {
	f.t.Helper()

	hash, err := authutil.HashPassword(passphrase)
	if err != nil {
		f.t.Fatalf("failed to hash passphrase: %v", err)
	}
	sec := models.SharedSecret{
		ID:           primitive.NewObjectID(),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("secrets").InsertOne(ctx, sec); err != nil {
		f.t.Fatalf("failed to create test secret: %v", err)
	}
	return sec
}

// CreateMessage inserts a message by author.
func (f *Fixtures) CreateMessage(ctx context.Context, title, text string, author primitive.ObjectID) models.Message {
	f.t.Helper()

	m := models.Message{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Text:      text,
		Timestamp: time.Now().UTC(),
		AuthorID:  author,
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}
