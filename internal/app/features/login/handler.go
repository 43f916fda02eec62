// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/membersonly/internal/app/features/errors"
	"github.com/dalemusser/membersonly/internal/app/system/auditlog"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/gate"
	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"github.com/dalemusser/membersonly/internal/app/system/viewdata"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// msgInvalid is shown for both unknown email and wrong password.
const msgInvalid = "Invalid email or password."

// Authenticator checks an email/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type Handler struct {
	Gate       Authenticator
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(g Authenticator, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Gate:       g,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Errors    []string
	Email     string
	ReturnURL string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	viewdata.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Log in", "/"),
		ReturnURL: query.Get(r, "return"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	ret := r.FormValue("return")

	if email == "" || password == "" {
		h.renderFormWithErrors(w, r, email, ret, "Please enter your email and password.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Gate.Authenticate(ctx, email, password)
	if err != nil {
		var ce *gate.CredentialsError
		if errors.As(err, &ce) {
			if ce.UserID.IsZero() {
				h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
			} else {
				h.AuditLog.LoginFailedWrongPassword(ctx, r, ce.UserID, email)
			}
			h.renderFormWithErrors(w, r, email, ret, msgInvalid)
			return
		}
		h.ErrLog.LogServerError(w, r, "login lookup failed", err, "", "/login")
		return
	}

	// Role flags are copied into the session here and only here.
	if err := h.SessionMgr.EstablishIdentity(w, r, u.ID.Hex(), u.IsAdmin, u.IsMember); err != nil {
		h.ErrLog.LogServerError(w, r, "session save failed", err, "", "/login")
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)
	h.Log.Info("user logged in",
		zap.String("user_id", u.ID.Hex()),
		zap.Bool("is_admin", u.IsAdmin),
		zap.Bool("is_member", u.IsMember))

	http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/"), http.StatusSeeOther)
}

func (h *Handler) renderFormWithErrors(w http.ResponseWriter, r *http.Request, email, ret string, errs ...string) {
	viewdata.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Log in", "/"),
		Errors:    errs,
		Email:     email,
		ReturnURL: ret,
	})
}
