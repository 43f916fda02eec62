// Package gate holds the two credential checks of the board: password login
// and the join passphrase that grants member status.
//
// Both return ErrInvalidCredentials (wrapped in a *CredentialsError carrying
// the precise reason) on a bad secret, and plain errors for store failures,
// so callers can tell a form error from a 500.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/membersonly/internal/app/system/authutil"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrInvalidCredentials is matched with errors.Is for any rejected secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSecretMissing means no shared secret record exists. It is a
	// configuration error, never a form error.
	ErrSecretMissing = errors.New("shared secret is not configured")
)

// Failure reasons carried by CredentialsError.
const (
	ReasonNoUser        = "No user found"
	ReasonWrongPassword = "Wrong password"
)

// CredentialsError describes why a credential check failed. UserID is set
// when the account was found but the password did not match.
type CredentialsError struct {
	Reason string
	UserID primitive.ObjectID
}

func (e *CredentialsError) Error() string { return e.Reason }

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

// Users is the subset of the user store the gate needs.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetMember(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Secrets loads the single shared join secret.
type Secrets interface {
	Get(ctx context.Context) (*models.SharedSecret, error)
}

// Gate runs credential checks against the stores.
type Gate struct {
	users   Users
	secrets Secrets
}

// New builds a Gate.
func New(users Users, secrets Secrets) *Gate {
	return &Gate{users: users, secrets: secrets}
}

// Authenticate looks the user up by exact email and compares the password.
// It does not touch the session; the caller establishes identity on success.
func (g *Gate) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := g.users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &CredentialsError{Reason: ReasonNoUser}
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: load user: %w", err)
	}

	if !authutil.CheckPassword(password, u.PasswordHash) {
		return nil, &CredentialsError{Reason: ReasonWrongPassword, UserID: u.ID}
	}
	return u, nil
}

// UpgradeMembership checks the passphrase against the shared secret and, on a
// match, persists is_member=true. The returned user reflects the durable
// write; the caller updates the session cache afterwards.
func (g *Gate) UpgradeMembership(ctx context.Context, userID primitive.ObjectID, passphrase string) (*models.User, error) {
	sec, err := g.secrets.Get(ctx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSecretMissing
	}
	if err != nil {
		return nil, fmt.Errorf("upgrade membership: load secret: %w", err)
	}
	if sec.PasswordHash == "" {
		return nil, ErrSecretMissing
	}

	if !authutil.CheckPassword(passphrase, sec.PasswordHash) {
		return nil, &CredentialsError{Reason: ReasonWrongPassword, UserID: userID}
	}

	u, err := g.users.SetMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("upgrade membership: persist: %w", err)
	}
	return u, nil
}
