// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"time"

	"github.com/dalemusser/membersonly/internal/app/system/indexes"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// EnsureIndexes creates the index backing the newest-first listing.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return indexes.EnsureSet(ctx, s.c, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("idx_messages_timestamp"),
	}})
}

// Create inserts a message authored by authorID. Title and text are stored
// as given; validation happens in the handler.
func (s *Store) Create(ctx context.Context, title, text string, authorID primitive.ObjectID) (models.Message, error) {
	m := models.Message{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Text:      text,
		Timestamp: time.Now().UTC(),
		AuthorID:  authorID,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListWithAuthors returns every message, newest first, with the author
// document joined in from the users collection.
func (s *Store) ListWithAuthors(ctx context.Context) ([]models.MessageWithAuthor, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "author",
			"foreignField": "_id",
			"as":           "author_doc",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$author_doc",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$project", Value: bson.M{"author_doc.password": 0}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.MessageWithAuthor{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the message with the given id and reports how many
// documents were removed. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
