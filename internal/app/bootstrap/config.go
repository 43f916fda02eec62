// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/membersonly/internal/app/system/authutil"
	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for the board.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: MEMBERSONLY_MONGO_URI, MEMBERSONLY_JOIN_PASSPHRASE, etc.
//   - Command-line flags: --mongo_uri, --join_passphrase, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "members_only", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "membersonly-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "336h", Desc: "Session lifetime, extended on every request (e.g., 336h)"},
	{Name: "session_cleanup_interval", Default: "10m", Desc: "How often expired sessions are swept"},

	{Name: "db_timeout_short", Default: "5s", Desc: "Timeout for single-document database calls"},
	{Name: "db_timeout_medium", Default: "10s", Desc: "Timeout for list queries such as the board"},
	{Name: "db_timeout_long", Default: "30s", Desc: "Timeout for connect, schema and sweep work"},

	{Name: "join_passphrase", Default: "", Desc: "Passphrase that seeds the join secret when none is stored"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Board event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, MEMBERSONLY_* for app) and
// flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MEMBERSONLY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:             appValues.String("session_key"),
		SessionName:            appValues.String("session_name"),
		SessionDomain:          appValues.String("session_domain"),
		SessionMaxAge:          appValues.Duration("session_max_age", 14*24*time.Hour),
		SessionCleanupInterval: appValues.Duration("session_cleanup_interval", 10*time.Minute),

		DBTimeouts: timeouts.Config{
			Short:  appValues.Duration("db_timeout_short", timeouts.DefaultShort),
			Medium: appValues.Duration("db_timeout_medium", timeouts.DefaultMedium),
			Long:   appValues.Duration("db_timeout_long", timeouts.DefaultLong),
		},

		JoinPassphrase: appValues.String("join_passphrase"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
	}

	return coreCfg, appCfg, nil
}

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true, "": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}

	if len(appCfg.SessionKey) < 32 {
		logger.Warn("session_key is shorter than 32 bytes", zap.Int("length", len(appCfg.SessionKey)))
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		return fmt.Errorf("session_key must be set in production")
	}
	if appCfg.SessionMaxAge <= 0 {
		return fmt.Errorf("session_max_age must be positive, got %s", appCfg.SessionMaxAge)
	}
	if appCfg.SessionCleanupInterval <= 0 {
		return fmt.Errorf("session_cleanup_interval must be positive, got %s", appCfg.SessionCleanupInterval)
	}

	if len(appCfg.JoinPassphrase) > authutil.MaxPasswordBytes {
		return fmt.Errorf("join_passphrase must be at most %d bytes", authutil.MaxPasswordBytes)
	}

	if appCfg.DBTimeouts.Short < 0 || appCfg.DBTimeouts.Medium < 0 || appCfg.DBTimeouts.Long < 0 {
		return fmt.Errorf("db timeouts must not be negative")
	}

	if !auditModes[appCfg.AuditLogAuth] {
		return fmt.Errorf("audit_log_auth: unknown mode %q", appCfg.AuditLogAuth)
	}
	if !auditModes[appCfg.AuditLogAdmin] {
		return fmt.Errorf("audit_log_admin: unknown mode %q", appCfg.AuditLogAdmin)
	}
	return nil
}
