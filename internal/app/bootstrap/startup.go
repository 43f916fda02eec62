// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/membersonly/internal/app/resources"
	sessionstore "github.com/dalemusser/membersonly/internal/app/store/sessions"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It loads
// the shared templates, builds the session store and starts the worker that
// sweeps expired sessions.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	if deps.runtime == nil {
		return nil
	}
	deps.runtime.sessions = newSessionStore(coreCfg, appCfg, deps)
	deps.runtime.cleanup = workers.NewSessionCleanup(deps.runtime.sessions, logger, appCfg.SessionCleanupInterval)
	deps.runtime.cleanup.Start()
	return nil
}

func newSessionStore(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps) *sessionstore.MongoStore {
	secure := coreCfg != nil && coreCfg.Env == "prod"
	opts := auth.CookieOptions(appCfg.SessionDomain, appCfg.SessionMaxAge, secure)
	return sessionstore.NewMongoStore(deps.MongoDatabase, opts, []byte(appCfg.SessionKey))
}
