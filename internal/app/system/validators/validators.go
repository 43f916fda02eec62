// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/membersonly/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collectionSpec pairs a collection with its optional JSON-Schema validator.
type collectionSpec struct {
	name   string
	schema bson.M
}

func collections() []collectionSpec {
	return []collectionSpec{
		{"users", usersSchema()},
		{"messages", messagesSchema()},
		{"secrets", secretsSchema()},
		{"sessions", nil},
		{"audit_events", nil},
	}
}

// EnsureAll creates the board's collections and attaches validators where a
// schema exists. Deployments that reject collMod (some DocumentDB versions)
// keep their collections without validators.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		zap.L().Warn("listCollections failed; creating blindly", zap.Error(err))
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var problems []string
	for _, c := range collections() {
		if err := ensureOne(ctx, db, c, have[c.name]); err != nil {
			problems = append(problems, c.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureOne(ctx context.Context, db *mongo.Database, c collectionSpec, exists bool) error {
	if !exists {
		err := db.CreateCollection(ctx, c.name)
		switch {
		case err == nil:
			zap.L().Info("created collection", zap.String("collection", c.name))
		case commandErr(err, []int32{48}, "already exists", "namespace exists"):
			// lost a race with another instance
		default:
			return err
		}
	}
	if c.schema == nil {
		return nil
	}

	cmd := bson.D{
		{Key: "collMod", Value: c.name},
		{Key: "validator", Value: c.schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		if commandErr(err, []int32{59, 115}, "no such command", "not implemented", "not supported") {
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
			return nil
		}
		return err
	}
	zap.L().Debug("validator ensured", zap.String("collection", c.name))
	return nil
}

// commandErr reports whether err is a server command error with one of the
// given codes, or whose text contains one of the phrases.
func commandErr(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"first_name", "last_name", "email", "password", "is_admin", "is_member"},
			"properties": bson.M{
				"first_name": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"last_name":  bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"email":      bson.M{"bsonType": "string", "minLength": 3},
				"password":   bson.M{"bsonType": "string", "minLength": 1},
				"is_admin":   bson.M{"bsonType": "bool"},
				"is_member":  bson.M{"bsonType": "bool"},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "text", "timestamp", "author"},
			"properties": bson.M{
				"title":     bson.M{"bsonType": "string", "minLength": 1, "maxLength": models.MessageTitleMaxLen},
				"text":      bson.M{"bsonType": "string", "minLength": 1, "maxLength": models.MessageTextMaxLen},
				"timestamp": bson.M{"bsonType": "date"},
				"author":    bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func secretsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"password"},
			"properties": bson.M{
				"password": bson.M{"bsonType": "string", "minLength": 1},
			},
		},
	}
}
