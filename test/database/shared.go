package database

import (
	"context"
	"testing"

	"github.com/evercatalog/catalog/pkg/database"
	"github.com/evercatalog/catalog/test/util"
)

// SharedTestDB is a single migrated Postgres schema shared by multiple
// independent connection pools ("replicas"). Used by tests that exercise
// cross-replica behavior — concurrent job claiming via SELECT ... FOR UPDATE
// SKIP LOCKED, or NOTIFY/LISTEN event fan-out — where each replica needs its
// own pool but all must observe the same rows.
type SharedTestDB struct {
	connStrWithSchema string
	baseConnStr       string
	schemaName        string
}

// NewSharedTestDB creates a shared schema, migrates it once, and registers
// t.Cleanup to drop it. Call NewClient per replica.
func NewSharedTestDB(t *testing.T) *SharedTestDB {
	t.Helper()
	ctx := context.Background()

	baseConnStr := util.GetBaseConnectionString(t)
	schemaName := util.GenerateSchemaName(t)
	util.CreateSchema(t, baseConnStr, schemaName)

	connStrWithSchema := util.AddSearchPathToConnString(baseConnStr, schemaName)

	// Run migrations once via a throwaway client, then close it — each
	// replica opens its own pool below.
	migrator, err := database.NewClientFromDSN(ctx, connStrWithSchema, schemaName, 5, 2)
	if err != nil {
		t.Fatalf("NewSharedTestDB: migrate: %v", err)
	}
	_ = migrator.Close()

	t.Cleanup(func() { util.DropSchema(t, baseConnStr, schemaName) })

	return &SharedTestDB{
		connStrWithSchema: connStrWithSchema,
		baseConnStr:       baseConnStr,
		schemaName:        schemaName,
	}
}

// ConnString returns the schema-scoped connection string, for callers that
// need a raw connection rather than a pool — e.g. a dedicated pgx.Conn for
// LISTEN/NOTIFY.
func (s *SharedTestDB) ConnString() string {
	return s.connStrWithSchema
}

// NewClient opens an independent pool against the shared schema, already
// migrated by NewSharedTestDB. Closed via t.Cleanup.
func (s *SharedTestDB) NewClient(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	client, err := database.NewClientFromDSN(ctx, s.connStrWithSchema, s.schemaName, 10, 5)
	if err != nil {
		t.Fatalf("SharedTestDB.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
