package home_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	uierrors "github.com/dalemusser/membersonly/internal/app/features/errors"
	"github.com/dalemusser/membersonly/internal/app/features/home"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"github.com/dalemusser/membersonly/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	handler  *home.Handler
	messages *testutil.MemMessages
	renders  *testutil.RenderCapture
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := zap.NewNop()
	users := testutil.NewMemUsers()
	author := users.AddWithPassword("A", "B", "a@b.com", "password1", false)

	messages := testutil.NewMemMessages(users)
	now := time.Now().UTC()
	messages.Add(models.Message{Title: "first", Text: "one", AuthorID: author.ID, Timestamp: now.Add(-time.Minute)})
	messages.Add(models.Message{Title: "second", Text: "two", AuthorID: author.ID, Timestamp: now})

	return fixture{
		handler:  home.NewHandler(messages, uierrors.NewErrorLogger(logger, false), logger),
		messages: messages,
		renders:  testutil.CaptureRender(t),
	}
}

// messageFields pulls Title/Author/CanDelete out of the rendered Messages slice.
func messageFields(t *testing.T, data any) []map[string]any {
	t.Helper()
	v := reflect.ValueOf(testutil.Field(t, data, "Messages"))
	out := make([]map[string]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		m := v.Index(i)
		out[i] = map[string]any{
			"Title":     m.FieldByName("Title").String(),
			"Author":    m.FieldByName("Author").String(),
			"CanDelete": m.FieldByName("CanDelete").Bool(),
		}
	}
	return out
}

func TestServeRoot_Anonymous(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeRoot(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := f.renders.Last(t)
	if got.Name != "home" {
		t.Fatalf("template: got %q", got.Name)
	}
	msgs := messageFields(t, got.Data)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0]["Title"] != "second" {
		t.Errorf("expected newest first, got %v", msgs[0]["Title"])
	}
	for _, m := range msgs {
		if m["Author"] != "" {
			t.Errorf("anonymous viewers must not see authors, got %v", m["Author"])
		}
		if m["CanDelete"].(bool) {
			t.Error("anonymous viewers must not get delete")
		}
	}
	if testutil.Field(t, got.Data, "CanPost").(bool) {
		t.Error("anonymous cannot post")
	}
}

func TestServeRoot_MemberSeesAuthors(t *testing.T) {
	f := newFixture(t)

	req := testutil.WithUser(httptest.NewRequest("GET", "/", nil), testutil.MemberUser())
	f.handler.ServeRoot(httptest.NewRecorder(), req)

	got := f.renders.Last(t)
	for _, m := range messageFields(t, got.Data) {
		if m["Author"] != "A B" {
			t.Errorf("Author: got %v, want A B", m["Author"])
		}
		if m["CanDelete"].(bool) {
			t.Error("members cannot delete")
		}
	}
	if testutil.Field(t, got.Data, "CanJoin").(bool) {
		t.Error("members should not be offered join")
	}
}

func TestServeRoot_AdminWithoutMembership(t *testing.T) {
	f := newFixture(t)

	req := testutil.WithUser(httptest.NewRequest("GET", "/", nil), testutil.AdminUser())
	f.handler.ServeRoot(httptest.NewRecorder(), req)

	got := f.renders.Last(t)
	for _, m := range messageFields(t, got.Data) {
		if !m["CanDelete"].(bool) {
			t.Error("admins get delete buttons")
		}
		if m["Author"] != "" {
			t.Error("admin flag alone does not reveal authors")
		}
	}
	if !testutil.Field(t, got.Data, "CanJoin").(bool) {
		t.Error("non-member admin should be offered join")
	}
}

func TestServeRoot_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.messages.Err = errors.New("db down")

	rec := httptest.NewRecorder()
	f.handler.ServeRoot(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
