// internal/app/features/join/handler.go
package join

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/membersonly/internal/app/features/errors"
	"github.com/dalemusser/membersonly/internal/app/system/auditlog"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/gate"
	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"github.com/dalemusser/membersonly/internal/app/system/viewdata"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Upgrader checks the join passphrase and persists member status.
type Upgrader interface {
	UpgradeMembership(ctx context.Context, userID primitive.ObjectID, passphrase string) (*models.User, error)
}

type Handler struct {
	Gate       Upgrader
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(g Upgrader, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Gate:       g,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Log:        logger,
	}
}

type joinFormData struct {
	viewdata.BaseVM
	Errors        []string
	AlreadyMember bool
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, errs ...string) {
	data := joinFormData{
		BaseVM: viewdata.NewBaseVM(r, "Join the club", "/"),
		Errors: errs,
	}
	data.AlreadyMember = data.IsMember
	viewdata.Render(w, r, "join", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /join                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /join                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleJoinPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/join")
		return
	}

	u, ok := auth.CurrentUser(r)
	if !ok || !u.Role().CanJoin() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "session user id is not an ObjectID", err, "", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Gate.UpgradeMembership(ctx, userID, r.FormValue("password"))
	switch {
	case errors.Is(err, gate.ErrInvalidCredentials):
		h.AuditLog.MembershipFailed(ctx, r, u.ID, "wrong passphrase")
		h.render(w, r, "Wrong password.")
		return
	case errors.Is(err, gate.ErrSecretMissing):
		h.AuditLog.MembershipFailed(ctx, r, u.ID, "secret missing")
		h.ErrLog.LogServerError(w, r, "join secret is not configured", err, "Joining is unavailable right now.", "/")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "membership upgrade failed", err, "", "/join")
		return
	}

	// The user record is already written; now refresh the session cache.
	if err := h.SessionMgr.SetMemberFlag(w, r, updated.IsMember); err != nil {
		h.ErrLog.LogServerError(w, r, "session save failed", err, "", "/")
		return
	}

	h.AuditLog.MembershipGranted(ctx, r, u.ID)
	h.Log.Info("membership granted", zap.String("user_id", u.ID))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
