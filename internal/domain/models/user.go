// internal/domain/models/user.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account on the board.
//
// NOTE:
//   - Email is the login key and is matched exactly (case-sensitive).
//   - IsAdmin is chosen at signup and never changes afterwards.
//   - IsMember flips to true only through the join-passphrase flow.
//   - PasswordHash is a bcrypt hash; the plaintext is never stored.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	IsAdmin      bool               `bson:"is_admin" json:"is_admin"`
	IsMember     bool               `bson:"is_member" json:"is_member"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// FullName joins first and last name for display.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
