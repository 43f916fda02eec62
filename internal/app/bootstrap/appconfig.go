// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (MEMBERSONLY_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers the framework-level settings: ports, TLS, log level, and Env.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey             string        // securecookie hash key for the session id cookie
	SessionName            string        // Cookie name for sessions (default: membersonly-session)
	SessionDomain          string        // Cookie domain (blank means current host)
	SessionMaxAge          time.Duration // Rolling session lifetime
	SessionCleanupInterval time.Duration // How often expired session records are swept

	// Database call timeouts; zero keeps the package default.
	DBTimeouts timeouts.Config

	// JoinPassphrase seeds the shared secret when the secrets collection is empty.
	JoinPassphrase string

	// Audit logging destinations: all, db, log, off
	AuditLogAuth  string
	AuditLogAdmin string
}
