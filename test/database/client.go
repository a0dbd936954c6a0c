// Package database provides shared test helpers for spinning up an
// isolated, migrated Postgres schema per test.
package database

import (
	"context"
	"testing"

	"github.com/evercatalog/catalog/pkg/database"
	"github.com/evercatalog/catalog/test/util"
)

// NewTestClient creates a *database.Client against a fresh, uniquely named
// schema on the shared test Postgres instance (a package-local
// testcontainer, or CI_DATABASE_URL when set). The schema is dropped and the
// pool closed via t.Cleanup.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	baseConnStr := util.GetBaseConnectionString(t)
	schemaName := util.GenerateSchemaName(t)
	util.CreateSchema(t, baseConnStr, schemaName)
	t.Cleanup(func() { util.DropSchema(t, baseConnStr, schemaName) })

	connStr := util.AddSearchPathToConnString(baseConnStr, schemaName)
	client, err := database.NewClientFromDSN(ctx, connStr, schemaName, 10, 5)
	if err != nil {
		t.Fatalf("NewTestClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client
}
