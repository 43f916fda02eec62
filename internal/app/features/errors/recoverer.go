// internal/app/features/errors/recoverer.go
package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recoverer turns a panic in any downstream handler into a logged 500 page.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func (e *ErrorLogger) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			e.log.Error("panic recovered",
				append(e.fields(r, nil),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)...,
			)
			Render(w, r, http.StatusInternalServerError, "Server error",
				"Something went wrong on our end. Please try again.",
				e.detail(fmt.Errorf("panic: %v", rec)), "/")
		}()
		next.ServeHTTP(w, r)
	})
}
