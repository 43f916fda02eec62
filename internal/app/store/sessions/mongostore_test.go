package sessionstore_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sessionstore "github.com/dalemusser/membersonly/internal/app/store/sessions"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/testutil"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const cookieName = "test-session"

func newStore(t *testing.T) (*sessionstore.MongoStore, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := sessionstore.NewMongoStore(db, sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
	}, []byte("0123456789abcdef0123456789abcdef"))
	return store, db
}

// saveAndCookie saves values into a new session and returns the issued cookie.
func saveAndCookie(t *testing.T, store *sessionstore.MongoStore, values map[string]any) *http.Cookie {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	sess, err := store.Get(r, cookieName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !sess.IsNew {
		t.Fatal("expected a new session")
	}
	for k, v := range values {
		sess.Values[k] = v
	}
	if err := sess.Save(r, w); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestMongoStore_RoundTrip(t *testing.T) {
	store, _ := newStore(t)
	c := saveAndCookie(t, store, map[string]any{"user_id": "abc", "is_admin": true})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	sess, err := store.Get(r, cookieName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.IsNew {
		t.Error("expected existing session")
	}
	if got, _ := sess.Values["user_id"].(string); got != "abc" {
		t.Errorf("user_id: got %q", got)
	}
	if got, _ := sess.Values["is_admin"].(bool); !got {
		t.Error("is_admin: expected true")
	}
}

func TestMongoStore_CookieCarriesOnlyID(t *testing.T) {
	store, db := newStore(t)
	c := saveAndCookie(t, store, map[string]any{"user_id": "abc"})

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := db.Collection("sessions").CountDocuments(ctx, bson.M{"values.user_id": "abc"})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 server-side record, got %d", n)
	}
	if c.HttpOnly != true {
		t.Error("expected HttpOnly cookie")
	}
}

func TestMongoStore_TamperedCookie(t *testing.T) {
	store, _ := newStore(t)
	c := saveAndCookie(t, store, map[string]any{"user_id": "abc"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: c.Value + "x"})
	sess, err := store.Get(r, cookieName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !sess.IsNew || len(sess.Values) != 0 {
		t.Error("tampered cookie should yield an empty new session")
	}
}

func TestMongoStore_DeleteOnNegativeMaxAge(t *testing.T) {
	store, db := newStore(t)
	c := saveAndCookie(t, store, map[string]any{"user_id": "abc"})

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.AddCookie(c)
	w := httptest.NewRecorder()
	sess, err := store.Get(r, cookieName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, _ := db.Collection("sessions").CountDocuments(ctx, bson.M{})
	if n != 0 {
		t.Errorf("expected record to be deleted, %d remain", n)
	}

	// the old cookie no longer resolves
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(c)
	sess2, err := store.Get(r2, cookieName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !sess2.IsNew {
		t.Error("expected new session after delete")
	}
}

func TestMongoStore_DeleteExpired(t *testing.T) {
	store, db := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	past := time.Now().UTC().Add(-time.Hour)
	_, err := db.Collection("sessions").InsertOne(ctx, bson.M{
		"_id":        "expired-one",
		"values":     bson.M{"user_id": "old"},
		"expires_at": past,
		"updated_at": past,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	saveAndCookie(t, store, map[string]any{"user_id": "live"})

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired: got %d, want 1", n)
	}
	left, _ := db.Collection("sessions").CountDocuments(ctx, bson.M{})
	if left != 1 {
		t.Errorf("expected live session to remain, got %d", left)
	}
}

func TestMongoStore_LoginRotatesID(t *testing.T) {
	store, db := newStore(t)
	sm := auth.NewSessionManager(store, cookieName, nil, zap.NewNop())
	planted := saveAndCookie(t, store, map[string]any{"user_id": "someone-else"})

	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.AddCookie(planted)
	w := httptest.NewRecorder()
	if err := sm.EstablishIdentity(w, r, "u1", false, true); err != nil {
		t.Fatalf("EstablishIdentity failed: %v", err)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, _ := db.Collection("sessions").CountDocuments(ctx, bson.M{})
	if n != 1 {
		t.Fatalf("expected only the new record, got %d", n)
	}

	// the planted cookie no longer resolves
	r1 := httptest.NewRequest(http.MethodGet, "/", nil)
	r1.AddCookie(planted)
	old, err := store.Get(r1, cookieName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !old.IsNew {
		t.Error("planted session should be gone after login")
	}

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r2.AddCookie(c)
	}
	fresh, err := store.Get(r2, cookieName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fresh.IsNew || fresh.Values["user_id"] != "u1" {
		t.Errorf("expected logged-in session, got new=%v values=%v", fresh.IsNew, fresh.Values)
	}
}

func TestMongoStore_RevokeUnknown(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.Revoke(ctx, "no-such-id"); err != nil {
		t.Errorf("Revoke of unknown id: %v", err)
	}
}
