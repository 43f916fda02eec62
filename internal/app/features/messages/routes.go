// internal/app/features/messages/routes.go
package messages

import (
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// SendRoutes mounts the compose form; any identified user may post.
func SendRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireIdentity)
	r.Get("/", h.ServeSendMessage)
	r.Post("/", h.HandleSendMessagePost)
	return r
}

// DeleteRoutes mounts message deletion for admins.
func DeleteRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin)
	r.Post("/", h.HandleDeletePost)
	return r
}
