package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQLDropsComments(t *testing.T) {
	stmts := splitSQL("-- header\nCREATE TABLE a (id int);\n\n-- next\nCREATE TABLE b (id int);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id int)", "CREATE TABLE b (id int)"}, stmts)
}

func TestExtractTablesFromMigration(t *testing.T) {
	tables, err := extractTables(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	assert.Equal(t, []string{"trip_history", "pricing_rates", "pricing_add_ons"}, tables)

	_, err = extractTables(filepath.Join(os.TempDir(), "missing-migration.sql"))
	require.Error(t, err)
}
