// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message length limits, enforced by the form handler and the collection validator.
const (
	MessageTitleMaxLen = 100
	MessageTextMaxLen  = 999
)

// Message is a post on the board. Author references the users collection
// and is fixed at creation.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Text      string             `bson:"text" json:"text"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	AuthorID  primitive.ObjectID `bson:"author" json:"author"`
}

// MessageWithAuthor is a Message with its author document joined in.
// Author is nil when the referenced user no longer resolves.
type MessageWithAuthor struct {
	Message `bson:",inline"`
	Author  *User `bson:"author_doc,omitempty" json:"author_doc,omitempty"`
}
