package login_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	uierrors "github.com/dalemusser/membersonly/internal/app/features/errors"
	"github.com/dalemusser/membersonly/internal/app/features/login"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/gate"
	"github.com/dalemusser/membersonly/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	handler *login.Handler
	users   *testutil.MemUsers
	sm      *auth.SessionManager
	renders *testutil.RenderCapture
}

func newEnv(t *testing.T) env {
	t.Helper()
	logger := zap.NewNop()
	users := testutil.NewMemUsers()
	sm := testutil.NewSessionManager(t, users)
	g := gate.New(users, testutil.NewMemSecrets(""))
	h := login.NewHandler(g, sm, uierrors.NewErrorLogger(logger, false), nil, logger)
	return env{handler: h, users: users, sm: sm, renders: testutil.CaptureRender(t)}
}

func post(h *login.Handler, form url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleLoginPost(rec, testutil.NewFormRequest("POST", "/login", form))
	return rec
}

func TestServeLogin_RendersEmptyForm(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	e.handler.ServeLogin(rec, httptest.NewRequest("GET", "/login?return=%2Fjoin", nil))

	got := e.renders.Last(t)
	if got.Name != "login" {
		t.Fatalf("template: got %q", got.Name)
	}
	if testutil.StringField(t, got.Data, "ReturnURL") != "/join" {
		t.Errorf("ReturnURL: got %q", testutil.StringField(t, got.Data, "ReturnURL"))
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleLoginPost_Success_CopiesFlags(t *testing.T) {
	e := newEnv(t)
	e.users.AddWithPassword("A", "B", "admin@example.com", "password1", true)

	rec := post(e.handler, url.Values{"email": {"admin@example.com"}, "password": {"password1"}})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location: got %q, want /", loc)
	}

	su := testutil.SessionUserFrom(e.sm, rec)
	if su == nil {
		t.Fatal("expected an identity in the session")
	}
	if !su.IsAdmin || su.IsMember {
		t.Errorf("flags: admin=%v member=%v, want admin only", su.IsAdmin, su.IsMember)
	}
	if su.Name != "A B" {
		t.Errorf("Name: got %q", su.Name)
	}
}

func TestHandleLoginPost_ReturnURL(t *testing.T) {
	e := newEnv(t)
	e.users.AddWithPassword("A", "B", "a@b.com", "password1", false)

	rec := post(e.handler, url.Values{
		"email":    {"a@b.com"},
		"password": {"password1"},
		"return":   {"/send-message"},
	})
	if loc := rec.Header().Get("Location"); loc != "/send-message" {
		t.Errorf("Location: got %q, want /send-message", loc)
	}

	rec = post(e.handler, url.Values{
		"email":    {"a@b.com"},
		"password": {"password1"},
		"return":   {"https://evil.example/steal"},
	})
	if loc := rec.Header().Get("Location"); loc == "https://evil.example/steal" {
		t.Error("external return URL must not be followed")
	}
}

func TestHandleLoginPost_SameMessageForBothFailures(t *testing.T) {
	e := newEnv(t)
	e.users.AddWithPassword("A", "B", "a@b.com", "password1", false)

	cases := []url.Values{
		{"email": {"nobody@b.com"}, "password": {"password1"}},
		{"email": {"a@b.com"}, "password": {"wrong-pass"}},
	}

	var messages []string
	for _, form := range cases {
		rec := post(e.handler, form)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 re-render, got %d", rec.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("failed login must not set a session cookie")
		}
		got := e.renders.Last(t)
		errs := testutil.StringsField(t, got.Data, "Errors")
		if len(errs) != 1 {
			t.Fatalf("expected one error, got %v", errs)
		}
		messages = append(messages, errs[0])
		if testutil.StringField(t, got.Data, "Email") != form.Get("email") {
			t.Error("email should be echoed")
		}
	}
	if messages[0] != messages[1] {
		t.Errorf("unknown email and wrong password must read the same: %q vs %q", messages[0], messages[1])
	}
}

func TestHandleLoginPost_MissingFields(t *testing.T) {
	e := newEnv(t)

	rec := post(e.handler, url.Values{"email": {""}, "password": {""}})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if len(testutil.StringsField(t, e.renders.Last(t).Data, "Errors")) == 0 {
		t.Error("expected an error message")
	}
	if len(e.users.Calls) != 0 {
		t.Error("store should not be queried for an empty form")
	}
}

func TestHandleLoginPost_StoreFailure(t *testing.T) {
	e := newEnv(t)
	e.users.Err = errors.New("db down")

	rec := post(e.handler, url.Values{"email": {"a@b.com"}, "password": {"password1"}})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if e.renders.Last(t).Name != "error_page" {
		t.Errorf("expected error page, got %q", e.renders.Last(t).Name)
	}
}
