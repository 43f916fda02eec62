// internal/domain/models/sharedsecret.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SharedSecret holds the bcrypt hash of the join passphrase. Exactly one
// record is expected in the secrets collection.
type SharedSecret struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	PasswordHash string             `bson:"password"`
	CreatedAt    time.Time          `bson:"created_at"`
}
