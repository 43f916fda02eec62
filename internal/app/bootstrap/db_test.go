package bootstrap

import (
	"context"
	"errors"
	"testing"

	secretstore "github.com/dalemusser/membersonly/internal/app/store/secrets"
	userstore "github.com/dalemusser/membersonly/internal/app/store/users"
	"github.com/dalemusser/membersonly/internal/app/system/authutil"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"github.com/dalemusser/membersonly/internal/testutil"
	"go.uber.org/zap"
)

type fakeSeeder struct {
	count    int64
	countErr error
	created  []string
}

func (f *fakeSeeder) Count(context.Context) (int64, error) { return f.count, f.countErr }

func (f *fakeSeeder) Create(_ context.Context, hash string) (models.SharedSecret, error) {
	f.created = append(f.created, hash)
	return models.SharedSecret{PasswordHash: hash}, nil
}

func TestEnsureJoinSecret(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("seeds when empty", func(t *testing.T) {
		f := &fakeSeeder{}
		if err := ensureJoinSecret(ctx, f, "open sesame", logger); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(f.created) != 1 {
			t.Fatalf("expected one secret to be created, got %d", len(f.created))
		}
		if !authutil.CheckPassword("open sesame", f.created[0]) {
			t.Error("stored hash should match the passphrase")
		}
	})

	t.Run("empty and unconfigured fails", func(t *testing.T) {
		err := ensureJoinSecret(ctx, &fakeSeeder{}, "", logger)
		if !errors.Is(err, errNoJoinSecret) {
			t.Fatalf("expected errNoJoinSecret, got %v", err)
		}
	})

	t.Run("existing secret wins", func(t *testing.T) {
		f := &fakeSeeder{count: 1}
		if err := ensureJoinSecret(ctx, f, "something else", logger); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(f.created) != 0 {
			t.Error("must not create a second secret")
		}
	})

	t.Run("more than one fails", func(t *testing.T) {
		err := ensureJoinSecret(ctx, &fakeSeeder{count: 2}, "open sesame", logger)
		if !errors.Is(err, errAmbiguousJoinSecret) {
			t.Fatalf("expected errAmbiguousJoinSecret, got %v", err)
		}
	})

	t.Run("count error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		if err := ensureJoinSecret(ctx, &fakeSeeder{countErr: boom}, "x", logger); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped count error, got %v", err)
		}
	})
}

func TestEnsureSchema_SeedsSecretAndIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validAppConfig()
	cfg.JoinPassphrase = "open sesame"
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}

	if err := EnsureSchema(ctx, nil, cfg, deps, zap.NewNop()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// Second run is a no-op.
	if err := EnsureSchema(ctx, nil, cfg, deps, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}

	n, err := secretstore.New(db).Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected exactly one secret, got %d (%v)", n, err)
	}

	users := userstore.New(db)
	u := models.User{FirstName: "A", LastName: "B", Email: "a@b.com", PasswordHash: "x"}
	if _, err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := users.Create(ctx, u); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail from the unique index, got %v", err)
	}
}

func TestEnsureSchema_FailsWithoutSecret(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	err := EnsureSchema(ctx, nil, validAppConfig(), deps, zap.NewNop())
	if !errors.Is(err, errNoJoinSecret) {
		t.Fatalf("expected errNoJoinSecret, got %v", err)
	}
}
