// internal/app/features/signup/handler.go
package signup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/membersonly/internal/app/features/errors"
	userstore "github.com/dalemusser/membersonly/internal/app/store/users"
	"github.com/dalemusser/membersonly/internal/app/system/auditlog"
	"github.com/dalemusser/membersonly/internal/app/system/authutil"
	"github.com/dalemusser/membersonly/internal/app/system/htmlsanitize"
	"github.com/dalemusser/membersonly/internal/app/system/inputval"
	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"github.com/dalemusser/membersonly/internal/app/system/viewdata"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.uber.org/zap"
)

// UserCreator persists a new account. It returns userstore.ErrDuplicateEmail
// when the email is taken.
type UserCreator interface {
	Create(ctx context.Context, u models.User) (models.User, error)
}

type Handler struct {
	Users    UserCreator
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users UserCreator, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		ErrLog:   errLog,
		AuditLog: auditLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type signupFormData struct {
	viewdata.BaseVM
	FirstName     string
	LastName      string
	Email         string
	IsAdmin       bool
	Errors        []string
	PasswordRules string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data signupFormData) {
	data.BaseVM = viewdata.NewBaseVM(r, "Sign up", "/")
	data.PasswordRules = authutil.PasswordRules()
	viewdata.Render(w, r, "signup", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /sign-up                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSignup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, signupFormData{})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /sign-up                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSignupPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/sign-up")
		return
	}

	// Echo what was submitted; passwords are never echoed.
	form := signupFormData{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Email:     r.FormValue("email"),
		IsAdmin:   r.FormValue("isAdmin") == "on",
	}
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	first := htmlsanitize.PlainText(form.FirstName)
	last := htmlsanitize.PlainText(form.LastName)
	email := strings.TrimSpace(form.Email)

	var errs []string
	if first == "" {
		errs = append(errs, "First name is required.")
	}
	if last == "" {
		errs = append(errs, "Last name is required.")
	}
	if !inputval.IsValidEmail(email) {
		errs = append(errs, "Please enter a valid email address.")
	}
	switch err := authutil.ValidatePassword(password); {
	case errors.Is(err, authutil.ErrPasswordTooLong):
		errs = append(errs, fmt.Sprintf("Password must be at most %d bytes.", authutil.MaxPasswordBytes))
	case err != nil:
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters.", authutil.MinPasswordLength))
	}
	if confirm != password {
		errs = append(errs, "Passwords do not match.")
	}
	if len(errs) > 0 {
		form.Errors = errs
		h.render(w, r, form)
		return
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "password hash failed", err, "", "/sign-up")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      form.IsAdmin,
		IsMember:     false,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		form.Errors = []string{"An account with that email already exists."}
		h.render(w, r, form)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user failed", err, "", "/sign-up")
		return
	}

	h.AuditLog.UserSignedUp(ctx, r, u.ID, u.Email, u.IsAdmin)
	h.Log.Info("user signed up", zap.String("user_id", u.ID.Hex()), zap.Bool("is_admin", u.IsAdmin))

	// The new account is not logged in.
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
