// internal/app/features/join/routes.go
package join

import (
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the join form behind RequireIdentity.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireIdentity)
	r.Get("/", h.ServeJoin)
	r.Post("/", h.HandleJoinPost)
	return r
}
