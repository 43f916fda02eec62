// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"
	"sync"

	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/gorilla/csrf"
)

// DefaultSiteName is shown in the page header.
const DefaultSiteName = "Members Only"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware). IsAdmin and IsMember are the
	// session's cached flags.
	IsLoggedIn bool
	IsAdmin    bool
	IsMember   bool
	UserName   string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// CSRF protection
	CSRFToken string
}

// NewBaseVM creates a fully populated BaseVM for a page.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:    DefaultSiteName,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}
	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.IsAdmin = u.IsAdmin
		vm.IsMember = u.IsMember
		vm.UserName = u.Name
	}
	return vm
}

// RenderFunc renders the named template with data.
type RenderFunc func(w http.ResponseWriter, r *http.Request, name string, data any)

var (
	renderMu sync.RWMutex
	renderer RenderFunc = engineRender
)

func engineRender(w http.ResponseWriter, r *http.Request, name string, data any) {
	templates.Render(w, r, name, data)
}

// Render renders through the active renderer (the template engine unless a
// test has swapped it).
func Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	renderMu.RLock()
	fn := renderer
	renderMu.RUnlock()
	fn(w, r, name, data)
}

// UseRenderer swaps the renderer and returns a func restoring the previous one.
func UseRenderer(fn RenderFunc) (restore func()) {
	renderMu.Lock()
	prev := renderer
	renderer = fn
	renderMu.Unlock()
	return func() {
		renderMu.Lock()
		renderer = prev
		renderMu.Unlock()
	}
}
