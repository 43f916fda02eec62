// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	sessionstore "github.com/dalemusser/membersonly/internal/app/store/sessions"
	"github.com/dalemusser/membersonly/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// runtime is filled in by Startup; hooks receive DBDeps by value, so the
	// pointer is what carries the session store and worker to later hooks.
	runtime *runtimeDeps
}

type runtimeDeps struct {
	sessions *sessionstore.MongoStore
	cleanup  *workers.SessionCleanup
}
