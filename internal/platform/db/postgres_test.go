package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationFilesOrdered(t *testing.T) {
	names, err := MigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "migrations/0001_init.sql", names[0])

	body, err := migrations.ReadFile(names[0])
	require.NoError(t, err)
	for _, table := range []string{"users", "profiles", "inventory", "customers", "expenses", "sales", "invoices", "invoice_items", "stock_movements", "audit_logs", "idempotency_keys", "sessions"} {
		require.True(t, strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
}
