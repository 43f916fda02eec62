// internal/app/store/sessions/mongostore.go
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/membersonly/internal/app/system/indexes"
	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMaxAge is the server-side lifetime used when the cookie is a
// browser-session cookie (Options.MaxAge == 0).
const DefaultMaxAge = 14 * 24 * 60 * 60

// record is the server-side session document. The cookie only carries the
// signed _id.
type record struct {
	ID        string    `bson:"_id"`
	Values    bson.M    `bson:"values"`
	ExpiresAt time.Time `bson:"expires_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore is a gorilla sessions.Store that keeps session values in the
// "sessions" collection. Every Save pushes expires_at forward (rolling expiry).
type MongoStore struct {
	c       *mongo.Collection
	Codecs  []securecookie.Codec
	Options *sessions.Options
}

// NewMongoStore builds a store. keyPairs are securecookie hash/block key
// pairs, exactly as for sessions.NewCookieStore.
func NewMongoStore(db *mongo.Database, opts sessions.Options, keyPairs ...[]byte) *MongoStore {
	s := &MongoStore{
		c:       db.Collection("sessions"),
		Codecs:  securecookie.CodecsFromPairs(keyPairs...),
		Options: &opts,
	}
	s.MaxAge(opts.MaxAge)
	return s
}

// MaxAge sets the cookie and codec max age.
func (s *MongoStore) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

// EnsureIndexes creates a TTL index so MongoDB also reaps expired records.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	return indexes.EnsureSet(ctx, s.c, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetName("ttl_sessions_expires_at").SetExpireAfterSeconds(0),
	}})
}

// Get returns the session cached in the request registry, loading it on first use.
func (s *MongoStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New returns the stored session for the request cookie, or a fresh one.
// A missing, tampered or expired cookie yields a new session without error;
// only store failures are reported.
func (s *MongoStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.Codecs...); err != nil {
		return session, nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var rec record
	err = s.c.FindOne(ctx, bson.M{"_id": id, "expires_at": bson.M{"$gt": time.Now().UTC()}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return session, nil
	}
	if err != nil {
		return session, fmt.Errorf("load session: %w", err)
	}

	for k, v := range rec.Values {
		session.Values[k] = v
	}
	session.ID = id
	session.IsNew = false
	return session, nil
}

// Save writes the session and sets the cookie. A negative MaxAge deletes the
// record and expires the cookie.
func (s *MongoStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if _, err := s.c.DeleteOne(ctx, bson.M{"_id": session.ID}); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	values := bson.M{}
	for k, v := range session.Values {
		key, ok := k.(string)
		if !ok {
			return fmt.Errorf("session value key %v is not a string", k)
		}
		values[key] = v
	}

	age := session.Options.MaxAge
	if age == 0 {
		age = DefaultMaxAge
	}
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": session.ID},
		bson.M{"$set": bson.M{
			"values":     values,
			"expires_at": now.Add(time.Duration(age) * time.Second),
			"updated_at": now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Revoke deletes the record for id. An unknown id is not an error.
func (s *MongoStore) Revoke(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DeleteExpired removes records whose expiry has passed and returns the count.
func (s *MongoStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
