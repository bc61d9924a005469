// Package databasetest opens a throwaway MongoDB database for store tests.
package databasetest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/himlearning/storyhub/internal/config"
	"github.com/himlearning/storyhub/internal/database"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EnvURI names the server store tests run against.
const EnvURI = "STORYHUB_TEST_MONGO_URI"

// Open connects to the server in EnvURI and returns an empty database with
// indexes in place. The test is skipped when EnvURI is unset. The database
// is dropped on cleanup.
func Open(t testing.TB) *database.DB {
	t.Helper()
	uri := os.Getenv(EnvURI)
	if uri == "" {
		t.Skipf("%s not set", EnvURI)
	}

	cfg := &config.AppConfig{Mongo: config.MongoConfig{
		URI:      uri,
		Database: "storyhub_test_" + primitive.NewObjectID().Hex(),
		Timeout:  10 * time.Second,
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := database.Connect(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = db.Close(ctx)
	})
	return db
}
