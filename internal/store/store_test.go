package store_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/trail/internal/db"
	"github.com/persistorai/trail/internal/db/migrations"
	"github.com/persistorai/trail/internal/dbpool"
	"github.com/persistorai/trail/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := db.RunMigrations(ctx, dbURL, log, migrations.FS); err != nil {
		t.Fatalf("migrating test DB: %v", err)
	}

	pool, err := dbpool.NewPool(ctx, dbURL, 4)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

// setupTestStore returns a VersionStore and an item type unique to this test,
// whose rows are removed afterwards.
func setupTestStore(t *testing.T) (*store.VersionStore, string) {
	t.Helper()

	env := getTestEnv(t)
	itemType := "Test" + uuid.NewString()[:8]

	t.Cleanup(func() {
		env.pool.Exec(context.Background(), "DELETE FROM versions WHERE item_type = $1", itemType) //nolint:errcheck // best-effort cleanup
	})

	return store.NewVersionStore(store.Base{Pool: env.pool, Log: env.log}), itemType
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }
