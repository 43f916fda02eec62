package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dalemusser/membersonly/internal/app/system/authz"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// DefaultSessionName is used when the config leaves session_name empty.
const DefaultSessionName = "membersonly-session"

const (
	userIDKey   = "user_id"
	isAdminKey  = "is_admin"
	isMemberKey = "is_member"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is injected into r.Context() by LoadSessionUser.
// ID, Name and Email come from the user record; IsAdmin and IsMember are the
// flags snapshotted into the session at login (and at join for IsMember).
type SessionUser struct {
	ID       string
	Name     string
	Email    string
	IsAdmin  bool
	IsMember bool
}

// Role returns the role set for this user. A nil user is anonymous.
func (u *SessionUser) Role() authz.Role {
	if u == nil {
		return authz.Anonymous
	}
	return authz.FromFlags(true, u.IsMember, u.IsAdmin)
}

// UserFetcher resolves a session's user id to the current display identity.
// It returns (nil, nil) when the user no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*SessionUser, error)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithUser returns a copy of r carrying u as the current user.
func WithUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the session store and the request guards.
type SessionManager struct {
	store   sessions.Store
	name    string
	fetcher UserFetcher
	logger  *zap.Logger
	onError func(http.ResponseWriter, *http.Request, error)
}

// NewSessionManager builds a manager over any gorilla sessions.Store.
// Production uses the MongoDB store; tests use a CookieStore.
func NewSessionManager(store sessions.Store, name string, fetcher UserFetcher, logger *zap.Logger) *SessionManager {
	if name == "" {
		name = DefaultSessionName
	}
	return &SessionManager{
		store:   store,
		name:    name,
		fetcher: fetcher,
		logger:  logger,
	}
}

// OnError sets the handler used when the session or user lookup fails.
// Without one, a plain 500 is written.
func (sm *SessionManager) OnError(fn func(http.ResponseWriter, *http.Request, error)) {
	sm.onError = fn
}

// Name returns the session cookie name.
func (sm *SessionManager) Name() string { return sm.name }

// CookieOptions returns the cookie settings for the session store.
// secure marks cookies Secure (production over HTTPS).
func CookieOptions(domain string, maxAge time.Duration, secure bool) sessions.Options {
	return sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// GetSession returns the request's session (cached per request by gorilla).
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

func (sm *SessionManager) fail(w http.ResponseWriter, r *http.Request, err error) {
	if sm.onError != nil {
		sm.onError(w, r, err)
		return
	}
	sm.logger.Error("session failure", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// LoadSessionUser injects the user into context if the session carries an
// identity. Role flags are read from the session, never from the user record.
// Each identified request re-saves the session once, just before the
// response is written, pushing its expiry forward. Handlers that save the
// session themselves replace that refresh.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.GetSession(r)
		if err != nil {
			sm.fail(w, r, err)
			return
		}

		id, _ := sess.Values[userIDKey].(string)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, err := sm.fetcher.FetchUser(r.Context(), id)
		if err != nil {
			sm.fail(w, r, err)
			return
		}
		if u == nil {
			// identity points at a user that no longer resolves
			next.ServeHTTP(w, r)
			return
		}
		u.IsAdmin, _ = sess.Values[isAdminKey].(bool)
		u.IsMember, _ = sess.Values[isMemberKey].(bool)

		st := &refreshState{}
		rw := &refreshWriter{ResponseWriter: w, state: st, refresh: func() {
			if err := sess.Save(r, w); err != nil {
				sm.logger.Warn("session refresh failed", zap.Error(err), zap.String("user_id", id))
			}
		}}
		r = r.WithContext(context.WithValue(r.Context(), refreshKey, st))
		next.ServeHTTP(rw, WithUser(r, u))
		rw.fire()
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Rolling refresh                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

const refreshKey ctxKey = "sessionRefresh"

// refreshState records that a handler already saved the session, so the
// rolling refresh must not add a second Set-Cookie for the same name.
type refreshState struct{ saved bool }

// refreshWriter saves the session just before the response header goes out.
type refreshWriter struct {
	http.ResponseWriter
	state   *refreshState
	refresh func()
	fired   bool
}

func (rw *refreshWriter) fire() {
	if rw.fired {
		return
	}
	rw.fired = true
	if !rw.state.saved {
		rw.refresh()
	}
}

func (rw *refreshWriter) WriteHeader(code int) {
	rw.fire()
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *refreshWriter) Write(b []byte) (int, error) {
	rw.fire()
	return rw.ResponseWriter.Write(b)
}

func (rw *refreshWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func markSaved(r *http.Request) {
	if st, ok := r.Context().Value(refreshKey).(*refreshState); ok {
		st.saved = true
	}
}

// saveNow writes the session and suppresses the pending rolling refresh.
func (sm *SessionManager) saveNow(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	markSaved(r)
	return sess.Save(r, w)
}

// RequireIdentity passes requests that carry an identity. Others go to
// /login with a return parameter (303, or HX-Redirect for HTMX).
func (sm *SessionManager) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := CurrentUser(r); ok && u.Role().CanPost() {
			next.ServeHTTP(w, r)
			return
		}
		redirect(w, r, "/login?return="+url.QueryEscape(returnPath(r)))
	})
}

// RequireAdmin passes only when the session's admin flag is set; everyone
// else is sent to /.
func (sm *SessionManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := CurrentUser(r); ok && u.Role().CanDelete() {
			next.ServeHTTP(w, r)
			return
		}
		redirect(w, r, "/")
	})
}

// Revoker is implemented by stores that keep session records server-side.
type Revoker interface {
	Revoke(ctx context.Context, id string) error
}

// EstablishIdentity records userID in the session and copies the role flags
// from the just-authenticated user. This is the only place IsAdmin is written.
// Any session the request arrived with is revoked and a new id is issued.
func (sm *SessionManager) EstablishIdentity(w http.ResponseWriter, r *http.Request, userID string, isAdmin, isMember bool) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		return err
	}
	if sess.ID != "" {
		if rv, ok := sm.store.(Revoker); ok {
			if err := rv.Revoke(r.Context(), sess.ID); err != nil {
				return err
			}
		}
		sess.ID = ""
	}
	sess.Values = map[interface{}]interface{}{
		userIDKey:   userID,
		isAdminKey:  isAdmin,
		isMemberKey: isMember,
	}
	return sm.saveNow(w, r, sess)
}

// SetMemberFlag updates the cached member flag after the user record has
// been written.
func (sm *SessionManager) SetMemberFlag(w http.ResponseWriter, r *http.Request, isMember bool) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		return err
	}
	sess.Values[isMemberKey] = isMember
	return sm.saveNow(w, r, sess)
}

// ClearIdentity drops the identity and role flags and destroys the session.
func (sm *SessionManager) ClearIdentity(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		return err
	}
	delete(sess.Values, userIDKey)
	delete(sess.Values, isAdminKey)
	delete(sess.Values, isMemberKey)
	sess.Options.MaxAge = -1
	return sm.saveNow(w, r, sess)
}

// helpers

func redirect(w http.ResponseWriter, r *http.Request, dest string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// returnPath is where login should send the user back to. Form posts return
// to the form page itself.
func returnPath(r *http.Request) string {
	if r.Method != http.MethodGet {
		return r.URL.Path
	}
	return r.URL.RequestURI()
}
