package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/viewdata"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID       string
	Name     string
	Email    string
	IsAdmin  bool
	IsMember bool
}

// PlainUser returns a logged-in user with no role flags.
func PlainUser() TestUser {
	return TestUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test User",
		Email: "user@test.com",
	}
}

// MemberUser returns a TestUser with the member flag.
func MemberUser() TestUser {
	u := PlainUser()
	u.Name = "Test Member"
	u.Email = "member@test.com"
	u.IsMember = true
	return u
}

// AdminUser returns a TestUser with the admin flag (and not member).
func AdminUser() TestUser {
	u := PlainUser()
	u.Name = "Test Admin"
	u.Email = "admin@test.com"
	u.IsAdmin = true
	return u
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithUser(r, &auth.SessionUser{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
		IsMember: user.IsMember,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewFormRequest creates a url-encoded form request.
func NewFormRequest(method, target string, form url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// Rendered is one captured template render.
type Rendered struct {
	Name string
	Data any
}

// RenderCapture records template renders in place of the template engine.
type RenderCapture struct {
	mu    sync.Mutex
	calls []Rendered
}

// CaptureRender swaps the viewdata renderer for the duration of the test.
func CaptureRender(t *testing.T) *RenderCapture {
	t.Helper()
	rc := &RenderCapture{}
	restore := viewdata.UseRenderer(func(w http.ResponseWriter, r *http.Request, name string, data any) {
		rc.mu.Lock()
		rc.calls = append(rc.calls, Rendered{Name: name, Data: data})
		rc.mu.Unlock()
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = w.Write([]byte("<!-- " + name + " -->"))
	})
	t.Cleanup(restore)
	return rc
}

// Count returns the number of renders so far.
func (rc *RenderCapture) Count() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.calls)
}

// Last returns the most recent render. It fails the test if none happened.
func (rc *RenderCapture) Last(t *testing.T) Rendered {
	t.Helper()
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.calls) == 0 {
		t.Fatal("expected a template render, got none")
	}
	return rc.calls[len(rc.calls)-1]
}

// TestSessionKey signs cookies in tests.
const TestSessionKey = "test-session-key-must-be-32-chars-long"

// NewSessionManager returns a session manager over a signed CookieStore, so
// handler tests run without MongoDB.
func NewSessionManager(t *testing.T, fetcher auth.UserFetcher) *auth.SessionManager {
	t.Helper()
	store := sessions.NewCookieStore([]byte(TestSessionKey))
	opts := auth.CookieOptions("", 24*time.Hour, false)
	store.Options = &opts
	return auth.NewSessionManager(store, "test-session", fetcher, zap.NewNop())
}

// AddCookies copies the response cookies from rec onto req. When a name is
// set more than once the last header wins, as in a browser.
func AddCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	last := map[string]*http.Cookie{}
	var order []string
	for _, c := range rec.Result().Cookies() {
		if _, ok := last[c.Name]; !ok {
			order = append(order, c.Name)
		}
		last[c.Name] = c
	}
	for _, name := range order {
		if c := last[name]; c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

// SessionUserFrom replays the cookies set on rec through LoadSessionUser and
// returns the user it restores, or nil for an anonymous session.
func SessionUserFrom(sm *auth.SessionManager, rec *httptest.ResponseRecorder) *auth.SessionUser {
	var seen *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CurrentUser(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), AddCookies(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	return seen
}
