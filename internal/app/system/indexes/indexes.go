// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

/*
EnsureSet reconciles the desired indexes of one collection. It is idempotent
and is called from each store's EnsureIndexes at startup:

  - an index with the same keys and options is reused (renamed if its name differs)
  - an index with the same keys but different unique/TTL options is dropped and recreated
  - anything else is created

Problems are aggregated so startup can fail with all of them at once.
*/
func EnsureSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listBySig(ctx, coll)
	if err != nil {
		return fmt.Errorf("%s: list indexes: %w", coll.Name(), err)
	}

	var errs []string
	for _, m := range models {
		want := describe(m)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", want.Name),
			zap.String("keys", want.sig))

		ex, found := existing[want.sig]
		switch {
		case found && ex.sameOptions(want) && (want.Name == "" || ex.Name == want.Name):
			log.Debug("reusing existing index")
			continue
		case found:
			// Name or options drifted; recreate with the desired options.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop %s failed: %v", coll.Name(), want.Name, ex.Name, err))
				continue
			}
			log.Info("dropped drifted index", zap.String("old_name", ex.Name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wafflemongo.IsDup(err) && want.Unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index, duplicates present on %s", coll.Name(), want.Name, want.sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), want.Name, err))
			}
			log.Warn("index ensure failed", zap.Error(err))
			continue
		}
		log.Info("index ensured", zap.Bool("unique", want.Unique), zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// indexInfo is the subset of listIndexes output that EnsureSet compares.
type indexInfo struct {
	Name        string `bson:"name"`
	Key         bson.D `bson:"key"`
	Unique      bool   `bson:"unique,omitempty"`
	ExpireAfter *int32 `bson:"expireAfterSeconds,omitempty"`
	sig         string
}

func (a indexInfo) sameOptions(b indexInfo) bool {
	if a.Unique != b.Unique {
		return false
	}
	if (a.ExpireAfter == nil) != (b.ExpireAfter == nil) {
		return false
	}
	return a.ExpireAfter == nil || *a.ExpireAfter == *b.ExpireAfter
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func describe(m mongo.IndexModel) indexInfo {
	info := indexInfo{}
	if keys, ok := m.Keys.(bson.D); ok {
		info.Key = keys
		info.sig = keySig(keys)
	}
	if o := m.Options; o != nil {
		if o.Name != nil {
			info.Name = *o.Name
		}
		if o.Unique != nil {
			info.Unique = *o.Unique
		}
		info.ExpireAfter = o.ExpireAfterSeconds
	}
	return info
}

func listBySig(ctx context.Context, coll *mongo.Collection) (map[string]indexInfo, error) {
	out := map[string]indexInfo{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		var ce mongo.CommandError
		if errors.As(err, &ce) && ce.Code == 26 { // NamespaceNotFound: nothing to reconcile yet
			return out, nil
		}
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var idx indexInfo
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index", zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		idx.sig = keySig(idx.Key)
		out[idx.sig] = idx
	}
	return out, cur.Err()
}
