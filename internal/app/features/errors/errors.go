// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/membersonly/internal/app/system/viewdata"
)

// pageData is the view model for the generic error page.
type pageData struct {
	viewdata.BaseVM
	Status  int
	Message string
	Detail  string // only populated in dev
}

// Render writes the error page with the given status.
func Render(w http.ResponseWriter, r *http.Request, status int, title, message, detail, backURL string) {
	if backURL == "" {
		backURL = "/"
	}
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, title, backURL),
		Status:  status,
		Message: message,
		Detail:  detail,
	}
	data.BackURL = backURL

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	viewdata.Render(w, r, "error_page", data)
}
