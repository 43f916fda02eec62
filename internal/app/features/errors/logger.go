// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger logs a failure and renders the matching error page. Handlers
// hold one and call it at the request boundary instead of writing errors
// themselves.
type ErrorLogger struct {
	log        *zap.Logger
	showDetail bool
}

// NewErrorLogger builds an ErrorLogger. showDetail puts the error text on
// the page and should only be true in dev.
func NewErrorLogger(logger *zap.Logger, showDetail bool) *ErrorLogger {
	return &ErrorLogger{log: logger, showDetail: showDetail}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

func (e *ErrorLogger) detail(err error) string {
	if !e.showDetail || err == nil {
		return ""
	}
	return err.Error()
}

// LogServerError logs at error level and renders a 500 page.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Error(msg, e.fields(r, err)...)
	if userMsg == "" {
		userMsg = "Something went wrong on our end. Please try again."
	}
	Render(w, r, http.StatusInternalServerError, "Server error", userMsg, e.detail(err), backURL)
}

// LogBadRequest logs at warn level and renders a 400 page.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Warn(msg, e.fields(r, err)...)
	if userMsg == "" {
		userMsg = "The request could not be understood."
	}
	Render(w, r, http.StatusBadRequest, "Bad request", userMsg, e.detail(err), backURL)
}

// LogNotFound logs at info level and renders a 404 page.
func (e *ErrorLogger) LogNotFound(w http.ResponseWriter, r *http.Request, msg string, err error, backURL string) {
	e.log.Info(msg, e.fields(r, err)...)
	Render(w, r, http.StatusNotFound, "Not found", "The page you were looking for does not exist.", e.detail(err), backURL)
}

// NotFound is the router's fallback for unmatched routes.
func (e *ErrorLogger) NotFound(w http.ResponseWriter, r *http.Request) {
	e.LogNotFound(w, r, "no route", nil, "/")
}

// SessionError is installed as the session manager's error hook.
func (e *ErrorLogger) SessionError(w http.ResponseWriter, r *http.Request, err error) {
	e.LogServerError(w, r, "session lookup failed", err, "", "/")
}
