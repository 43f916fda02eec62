// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	auditstore "github.com/dalemusser/membersonly/internal/app/store/audit"
	messagestore "github.com/dalemusser/membersonly/internal/app/store/messages"
	secretstore "github.com/dalemusser/membersonly/internal/app/store/secrets"
	sessionstore "github.com/dalemusser/membersonly/internal/app/store/sessions"
	userstore "github.com/dalemusser/membersonly/internal/app/store/users"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/authutil"
	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"github.com/dalemusser/membersonly/internal/app/system/validators"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and verifies it with a ping.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(appCfg.DBTimeouts)

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("membersonly")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		runtime:       &runtimeDeps{},
	}, nil
}

// EnsureSchema creates collections, validators and indexes, then checks the
// join secret. It aborts startup when the board could not admit members.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("validators: %w", err)
	}

	secrets := secretstore.New(db)
	sessOpts := auth.CookieOptions(appCfg.SessionDomain, appCfg.SessionMaxAge, false)
	for name, ensure := range map[string]func(context.Context) error{
		"users":        userstore.New(db).EnsureIndexes,
		"messages":     messagestore.New(db).EnsureIndexes,
		"sessions":     sessionstore.NewMongoStore(db, sessOpts).EnsureIndexes,
		"audit_events": auditstore.New(db).EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("%s indexes: %w", name, err)
		}
	}

	return ensureJoinSecret(ctx, secrets, appCfg.JoinPassphrase, logger)
}

// secretSeeder is the slice of secretstore.Store used at startup.
type secretSeeder interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, passwordHash string) (models.SharedSecret, error)
}

var (
	errNoJoinSecret        = errors.New("no join secret stored and join_passphrase is not set")
	errAmbiguousJoinSecret = errors.New("more than one join secret stored")
)

// ensureJoinSecret makes sure exactly one shared secret exists, seeding it
// from passphrase when the collection is empty. A stored secret always wins
// over the configured passphrase.
func ensureJoinSecret(ctx context.Context, secrets secretSeeder, passphrase string, logger *zap.Logger) error {
	n, err := secrets.Count(ctx)
	if err != nil {
		return fmt.Errorf("count join secrets: %w", err)
	}

	switch {
	case n == 1:
		if passphrase != "" {
			logger.Info("join secret already stored; join_passphrase ignored")
		}
		return nil
	case n > 1:
		return fmt.Errorf("%w (found %d)", errAmbiguousJoinSecret, n)
	case passphrase == "":
		return errNoJoinSecret
	}

	hash, err := authutil.HashPassword(passphrase)
	if err != nil {
		return fmt.Errorf("hash join passphrase: %w", err)
	}
	if _, err := secrets.Create(ctx, hash); err != nil {
		return fmt.Errorf("store join secret: %w", err)
	}
	logger.Info("seeded join secret from configuration")
	return nil
}
