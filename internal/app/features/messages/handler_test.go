package messages_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/membersonly/internal/app/features/errors"
	"github.com/dalemusser/membersonly/internal/app/features/messages"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"github.com/dalemusser/membersonly/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	users    *testutil.MemUsers
	messages *testutil.MemMessages
	sm       *auth.SessionManager
	renders  *testutil.RenderCapture
	author   models.User
}

func newEnv(t *testing.T) env {
	t.Helper()
	users := testutil.NewMemUsers()
	return env{
		users:    users,
		messages: testutil.NewMemMessages(users),
		sm:       testutil.NewSessionManager(t, users),
		renders:  testutil.CaptureRender(t),
		author:   users.AddWithPassword("A", "B", "a@b.com", "password1", false),
	}
}

func (e env) handler() *messages.Handler {
	logger := zap.NewNop()
	return messages.NewHandler(e.users, e.messages, uierrors.NewErrorLogger(logger, false), nil, logger)
}

// login returns a recorder carrying a session cookie for u.
func (e env) login(t *testing.T, u models.User) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := e.sm.EstablishIdentity(rec, httptest.NewRequest("POST", "/login", nil), u.ID.Hex(), u.IsAdmin, u.IsMember); err != nil {
		t.Fatalf("EstablishIdentity failed: %v", err)
	}
	return rec
}

func (e env) post(h http.Handler, cookies *httptest.ResponseRecorder, form url.Values) *httptest.ResponseRecorder {
	req := testutil.NewFormRequest("POST", "/", form)
	if cookies != nil {
		req = testutil.AddCookies(req, cookies)
	}
	rec := httptest.NewRecorder()
	e.sm.LoadSessionUser(h).ServeHTTP(rec, req)
	return rec
}

func TestSendMessage_CreatesWithSessionAuthor(t *testing.T) {
	e := newEnv(t)
	h := messages.SendRoutes(e.handler(), e.sm)

	rec := e.post(h, e.login(t, e.author), url.Values{"title": {"hi"}, "message": {"hello"}})

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	all := e.messages.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 message, got %d", len(all))
	}
	if all[0].AuthorID != e.author.ID {
		t.Errorf("author: got %s, want %s", all[0].AuthorID.Hex(), e.author.ID.Hex())
	}
	if all[0].Title != "hi" || all[0].Text != "hello" {
		t.Errorf("stored %q/%q", all[0].Title, all[0].Text)
	}
	if !slices.Contains(e.users.Calls, "GetByID") {
		t.Error("author should be resolved through the user store")
	}
}

func TestSendMessage_IgnoresAuthorField(t *testing.T) {
	e := newEnv(t)
	h := messages.SendRoutes(e.handler(), e.sm)
	other := primitive.NewObjectID().Hex()

	e.post(h, e.login(t, e.author), url.Values{"title": {"hi"}, "message": {"hello"}, "author": {other}})

	all := e.messages.All()
	if len(all) != 1 || all[0].AuthorID != e.author.ID {
		t.Fatalf("form author must be ignored, got %+v", all)
	}
}

func TestSendMessage_Anonymous_RedirectsToLogin(t *testing.T) {
	e := newEnv(t)
	h := messages.SendRoutes(e.handler(), e.sm)

	req := httptest.NewRequest("GET", "/send-message", nil)
	rec := httptest.NewRecorder()
	e.sm.LoadSessionUser(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login") {
		t.Errorf("Location: got %q", loc)
	}
	if e.renders.Count() != 0 {
		t.Error("form must not render for anonymous users")
	}
}

func TestSendMessage_Validation(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		message   string
		wantField string
	}{
		{"empty title", "", "body", "title"},
		{"markup-only title", "<b></b>", "body", "title"},
		{"title too long", strings.Repeat("t", models.MessageTitleMaxLen+1), "body", "title"},
		{"empty message", "title", "   ", "message"},
		{"message too long", "title", strings.Repeat("m", models.MessageTextMaxLen+1), "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			h := messages.SendRoutes(e.handler(), e.sm)

			rec := e.post(h, e.login(t, e.author), url.Values{"title": {tt.title}, "message": {tt.message}})

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200 re-render, got %d", rec.Code)
			}
			got := e.renders.Last(t)
			if got.Name != "send_message" {
				t.Fatalf("template: got %q", got.Name)
			}
			fe := testutil.MapField(t, got.Data, "FieldErrors")
			if fe[tt.wantField] == "" {
				t.Errorf("expected a %s error, got %v", tt.wantField, fe)
			}
			if len(testutil.StringsField(t, got.Data, "Errors")) == 0 {
				t.Error("expected the error list to be populated")
			}
			if testutil.StringField(t, got.Data, "MsgTitle") != tt.title {
				t.Error("title should be echoed back")
			}
			if len(e.messages.All()) != 0 {
				t.Error("nothing should be stored")
			}
		})
	}
}

func TestSendMessage_BoundaryLengthsAccepted(t *testing.T) {
	e := newEnv(t)
	h := messages.SendRoutes(e.handler(), e.sm)

	rec := e.post(h, e.login(t, e.author), url.Values{
		"title":   {strings.Repeat("é", models.MessageTitleMaxLen)},
		"message": {strings.Repeat("m", models.MessageTextMaxLen)},
	})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
}

func TestSendMessage_StoreFailure(t *testing.T) {
	e := newEnv(t)
	e.messages.Err = errors.New("db down")
	h := messages.SendRoutes(e.handler(), e.sm)

	rec := e.post(h, e.login(t, e.author), url.Values{"title": {"hi"}, "message": {"hello"}})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestDelete_AdminRemovesMessage(t *testing.T) {
	e := newEnv(t)
	admin := e.users.AddWithPassword("Ad", "Min", "admin@b.com", "password1", true)
	msg := e.messages.Add(models.Message{Title: "t", Text: "x", AuthorID: e.author.ID})
	h := messages.DeleteRoutes(e.handler(), e.sm)

	rec := e.post(h, e.login(t, admin), url.Values{"id": {msg.ID.Hex()}})

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(e.messages.All()) != 0 {
		t.Error("message should be deleted")
	}
}

func TestDelete_ToleratesUnknownAndMalformedIDs(t *testing.T) {
	for _, id := range []string{primitive.NewObjectID().Hex(), "not-an-id", ""} {
		t.Run(id, func(t *testing.T) {
			e := newEnv(t)
			admin := e.users.AddWithPassword("Ad", "Min", "admin@b.com", "password1", true)
			e.messages.Add(models.Message{Title: "t", Text: "x", AuthorID: e.author.ID})
			h := messages.DeleteRoutes(e.handler(), e.sm)

			rec := e.post(h, e.login(t, admin), url.Values{"id": {id}})

			if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
				t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
			}
			if len(e.messages.All()) != 1 {
				t.Error("other messages must be untouched")
			}
		})
	}
}

func TestDelete_NonAdminCannotDelete(t *testing.T) {
	e := newEnv(t)
	member := e.author
	member.IsMember = true
	msg := e.messages.Add(models.Message{Title: "t", Text: "x", AuthorID: e.author.ID})
	h := messages.DeleteRoutes(e.handler(), e.sm)

	for name, cookies := range map[string]*httptest.ResponseRecorder{
		"anonymous": nil,
		"member":    e.login(t, member),
	} {
		t.Run(name, func(t *testing.T) {
			rec := e.post(h, cookies, url.Values{"id": {msg.ID.Hex()}})
			if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
				t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
			}
			if len(e.messages.All()) != 1 {
				t.Error("message must survive a non-admin delete")
			}
		})
	}
}
