// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"net/http"

	errorsfeature "github.com/dalemusser/membersonly/internal/app/features/errors"
	healthfeature "github.com/dalemusser/membersonly/internal/app/features/health"
	homefeature "github.com/dalemusser/membersonly/internal/app/features/home"
	joinfeature "github.com/dalemusser/membersonly/internal/app/features/join"
	loginfeature "github.com/dalemusser/membersonly/internal/app/features/login"
	logoutfeature "github.com/dalemusser/membersonly/internal/app/features/logout"
	messagesfeature "github.com/dalemusser/membersonly/internal/app/features/messages"
	signupfeature "github.com/dalemusser/membersonly/internal/app/features/signup"
	auditstore "github.com/dalemusser/membersonly/internal/app/store/audit"
	messagestore "github.com/dalemusser/membersonly/internal/app/store/messages"
	secretstore "github.com/dalemusser/membersonly/internal/app/store/secrets"
	userstore "github.com/dalemusser/membersonly/internal/app/store/users"
	"github.com/dalemusser/membersonly/internal/app/system/auditlog"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/gate"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// UserStore is everything the handlers need from the users collection.
// *userstore.Store satisfies it.
type UserStore interface {
	signupfeature.UserCreator
	messagesfeature.AuthorLookup
	gate.Users
}

// MessageStore is everything the handlers need from the messages collection.
// *messagestore.Store satisfies it.
type MessageStore interface {
	homefeature.MessageLister
	messagesfeature.MessageWriter
}

// routerDeps is what buildRouter wires together. BuildHandler fills it from
// MongoDB; tests fill it with in-memory stores.
type routerDeps struct {
	Users      UserStore
	Secrets    gate.Secrets
	Messages   MessageStore
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Health     *healthfeature.Handler
	CSRFKey    []byte
	Dev        bool
	Logger     *zap.Logger
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It boots the template engine, builds the
// MongoDB-backed stores and session manager, and hands them to buildRouter.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	dev := coreCfg.Env == "dev"
	db := deps.MongoDatabase

	sessStore := newSessionStore(coreCfg, appCfg, deps)
	if deps.runtime != nil && deps.runtime.sessions != nil {
		sessStore = deps.runtime.sessions
	}
	// LoadSessionUser resolves the session's user id on each request; role
	// flags stay as cached at login/join.
	sessionMgr := auth.NewSessionManager(sessStore, appCfg.SessionName, userstore.NewFetcher(db), logger)

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(dev)
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	auditLog := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	secrets := secretstore.New(db)

	key := sha256.Sum256([]byte(appCfg.SessionKey))

	return buildRouter(routerDeps{
		Users:      userstore.New(db),
		Secrets:    secrets,
		Messages:   messagestore.New(db),
		SessionMgr: sessionMgr,
		AuditLog:   auditLog,
		Health:     healthfeature.NewHandler(deps.MongoClient, secrets, logger),
		CSRFKey:    key[:],
		Dev:        dev,
		Logger:     logger,
	}), nil
}

func buildRouter(d routerDeps) chi.Router {
	logger := d.Logger
	errLog := errorsfeature.NewErrorLogger(logger, d.Dev)
	d.SessionMgr.OnError(errLog.SessionError)

	g := gate.New(d.Users, d.Secrets)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(errLog.Recoverer)
	r.Use(middleware.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(middleware.SetHeader("X-Frame-Options", "DENY"))
	r.Use(middleware.SetHeader("Referrer-Policy", "same-origin"))
	r.Use(middleware.Compress(5))
	r.NotFound(errLog.NotFound)

	// Health check endpoint for load balancers and orchestrators
	if d.Health != nil {
		r.Mount("/health", healthfeature.Routes(d.Health))
	}

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Everything else is a page: CSRF-protected and session-aware.
	r.Group(func(r chi.Router) {
		if d.Dev {
			r.Use(plaintextHTTP)
		}
		r.Use(csrf.Protect(d.CSRFKey,
			csrf.Path("/"),
			csrf.Secure(!d.Dev),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(csrfFailed(logger)),
		))
		r.Use(d.SessionMgr.LoadSessionUser)

		homeHandler := homefeature.NewHandler(d.Messages, errLog, logger)
		r.Mount("/", homefeature.Routes(homeHandler))

		signupHandler := signupfeature.NewHandler(d.Users, errLog, d.AuditLog, logger)
		r.Mount("/sign-up", signupfeature.Routes(signupHandler))

		loginHandler := loginfeature.NewHandler(g, d.SessionMgr, errLog, d.AuditLog, logger)
		r.Mount("/login", loginfeature.Routes(loginHandler))

		logoutHandler := logoutfeature.NewHandler(d.SessionMgr, d.AuditLog, logger)
		r.Mount("/logout", logoutfeature.Routes(logoutHandler))

		joinHandler := joinfeature.NewHandler(g, d.SessionMgr, errLog, d.AuditLog, logger)
		r.Mount("/join", joinfeature.Routes(joinHandler, d.SessionMgr))

		msgHandler := messagesfeature.NewHandler(d.Users, d.Messages, errLog, d.AuditLog, logger)
		r.Mount("/send-message", messagesfeature.SendRoutes(msgHandler, d.SessionMgr))
		r.Mount("/delete", messagesfeature.DeleteRoutes(msgHandler, d.SessionMgr))
	})

	return r
}

// plaintextHTTP tells gorilla/csrf the request arrived over plain HTTP, so
// its HTTPS-only referer checks are skipped in development.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func csrfFailed(logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("csrf check failed",
			zap.String("path", r.URL.Path),
			zap.Error(csrf.FailureReason(r)))
		errorsfeature.Render(w, r, http.StatusForbidden, "Forbidden",
			"Your form has expired. Go back, reload the page and try again.", "", "/")
	})
}
