// internal/app/features/messages/handler.go
package messages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	uierrors "github.com/dalemusser/membersonly/internal/app/features/errors"
	"github.com/dalemusser/membersonly/internal/app/system/auditlog"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/htmlsanitize"
	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"github.com/dalemusser/membersonly/internal/app/system/viewdata"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AuthorLookup resolves the session identity to a stored user.
type AuthorLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// MessageWriter creates and removes board messages.
type MessageWriter interface {
	Create(ctx context.Context, title, text string, authorID primitive.ObjectID) (models.Message, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type Handler struct {
	Users    AuthorLookup
	Messages MessageWriter
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users AuthorLookup, messages MessageWriter, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Messages: messages,
		ErrLog:   errLog,
		AuditLog: auditLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type sendFormData struct {
	viewdata.BaseVM
	MsgTitle    string
	Message     string
	FieldErrors map[string]string
	Errors      []string
	TitleMax    int
	MessageMax  int
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data sendFormData) {
	data.BaseVM = viewdata.NewBaseVM(r, "New message", "/")
	data.TitleMax = models.MessageTitleMaxLen
	data.MessageMax = models.MessageTextMaxLen
	viewdata.Render(w, r, "send_message", data)
}

// validate checks a cleaned title/text pair and returns per-field messages.
func validate(title, text string) map[string]string {
	errs := map[string]string{}
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		errs["title"] = "Title is required."
	case n > models.MessageTitleMaxLen:
		errs["title"] = fmt.Sprintf("Title must be at most %d characters.", models.MessageTitleMaxLen)
	}
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		errs["message"] = "Message is required."
	case n > models.MessageTextMaxLen:
		errs["message"] = fmt.Sprintf("Message must be at most %d characters.", models.MessageTextMaxLen)
	}
	return errs
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /send-message                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSendMessage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, sendFormData{})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /send-message                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSendMessagePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/send-message")
		return
	}

	form := sendFormData{
		MsgTitle: r.FormValue("title"),
		Message:  r.FormValue("message"),
	}
	title := htmlsanitize.PlainText(form.MsgTitle)
	text := htmlsanitize.PlainText(form.Message)

	if fe := validate(title, text); len(fe) > 0 {
		form.FieldErrors = fe
		for _, k := range []string{"title", "message"} {
			if msg, ok := fe[k]; ok {
				form.Errors = append(form.Errors, msg)
			}
		}
		h.render(w, r, form)
		return
	}

	u, ok := auth.CurrentUser(r)
	if !ok {
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

	// The author always comes from the stored user, never from the form.
	author, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "author lookup failed", err, "", "/send-message")
		return
	}

	msg, err := h.Messages.Create(ctx, title, text, author.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create message failed", err, "", "/send-message")
		return
	}

	h.AuditLog.MessageCreated(ctx, r, author.ID, msg.ID)
	h.Log.Info("message created", zap.String("message_id", msg.ID.Hex()), zap.String("user_id", u.ID))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /delete                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDeletePost removes a message by id. Unknown or malformed ids are
// ignored; the response is the same redirect either way.
func (h *Handler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/")
		return
	}

	rawID := r.FormValue("id")
	actorID := ""
	if u, ok := auth.CurrentUser(r); ok {
		actorID = u.ID
	}

	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		h.Log.Debug("delete: malformed message id", zap.String("id", rawID))
		h.AuditLog.MessageDeleted(r.Context(), r, actorID, rawID, false)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Messages.Delete(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete message failed", err, "", "/")
		return
	}

	h.AuditLog.MessageDeleted(ctx, r, actorID, rawID, n > 0)
	h.Log.Info("message delete", zap.String("message_id", rawID), zap.Bool("removed", n > 0))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
