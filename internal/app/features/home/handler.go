package home

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/membersonly/internal/app/features/errors"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"github.com/dalemusser/membersonly/internal/app/system/viewdata"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.uber.org/zap"
)

// MessageLister returns the board, newest first, with authors joined.
type MessageLister interface {
	ListWithAuthors(ctx context.Context) ([]models.MessageWithAuthor, error)
}

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	Messages MessageLister
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(messages MessageLister, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Messages: messages,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type messageVM struct {
	ID        string
	Title     string
	Text      string
	Posted    string
	Author    string // empty unless the viewer may see authors
	CanDelete bool
}

type homeData struct {
	viewdata.BaseVM
	Messages      []messageVM
	CanPost       bool
	CanJoin       bool
	CanSeeAuthors bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – message board                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msgs, err := h.Messages.ListWithAuthors(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list messages failed", err, "", "/")
		return
	}

	u, _ := auth.CurrentUser(r)
	role := u.Role()

	data := homeData{
		BaseVM:        viewdata.NewBaseVM(r, "Message board", "/"),
		Messages:      make([]messageVM, 0, len(msgs)),
		CanPost:       role.CanPost(),
		CanJoin:       role.CanJoin() && !role.IsMember(),
		CanSeeAuthors: role.CanSeeAuthors(),
	}
	for _, m := range msgs {
		vm := messageVM{
			ID:        m.ID.Hex(),
			Title:     m.Title,
			Text:      m.Text,
			Posted:    m.Timestamp.Local().Format(time.DateTime),
			CanDelete: role.CanDelete(),
		}
		if data.CanSeeAuthors {
			if m.Author != nil {
				vm.Author = m.Author.FullName()
			} else {
				vm.Author = "[deleted user]"
			}
		}
		data.Messages = append(data.Messages, vm)
	}

	viewdata.Render(w, r, "home", data)
}
