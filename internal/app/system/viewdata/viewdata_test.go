package viewdata_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/viewdata"
)

func TestNewBaseVM_Anonymous(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	vm := viewdata.NewBaseVM(r, "Home", "/")

	if vm.IsLoggedIn || vm.IsAdmin || vm.IsMember {
		t.Errorf("anonymous request should carry no flags: %+v", vm)
	}
	if vm.SiteName != viewdata.DefaultSiteName {
		t.Errorf("SiteName: got %q", vm.SiteName)
	}
	if vm.Title != "Home" {
		t.Errorf("Title: got %q", vm.Title)
	}
}

func TestNewBaseVM_User(t *testing.T) {
	r := auth.WithUser(httptest.NewRequest("GET", "/join", nil), &auth.SessionUser{
		ID: "u1", Name: "A B", IsMember: true,
	})
	vm := viewdata.NewBaseVM(r, "Join", "/")

	if !vm.IsLoggedIn || !vm.IsMember || vm.IsAdmin {
		t.Errorf("unexpected flags: %+v", vm)
	}
	if vm.UserName != "A B" {
		t.Errorf("UserName: got %q", vm.UserName)
	}
}

func TestUseRenderer_Restore(t *testing.T) {
	var got string
	restore := viewdata.UseRenderer(func(w http.ResponseWriter, r *http.Request, name string, data any) {
		got = name
	})

	viewdata.Render(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil), "page", nil)
	if got != "page" {
		t.Errorf("expected swapped renderer to be called, got %q", got)
	}

	inner := ""
	restore2 := viewdata.UseRenderer(func(w http.ResponseWriter, r *http.Request, name string, data any) {
		inner = name
	})
	restore2()
	viewdata.Render(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil), "again", nil)
	if inner != "" || got != "again" {
		t.Errorf("restore should bring back the previous renderer, inner=%q got=%q", inner, got)
	}
	restore()
}
