//go:build integration

package db

import (
	"slices"
	"testing"

	"github.com/tordrt/dbsanity/internal/schema"
)

// verifyTablesExist checks that all expected tables are present in the snapshot
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	for _, tableName := range expectedTables {
		if s.FindTable(tableName) == nil {
			t.Errorf("Expected table %s not found in snapshot", tableName)
		}
	}
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	if !slices.Equal(table.PrimaryKey, expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, table.PrimaryKey)
	}
}

// verifyColumn checks nullability and default detection of a column
func verifyColumn(t *testing.T, table *schema.Table, name string, nullable, hasDefault bool) {
	t.Helper()

	col := table.FindColumn(name)
	if col == nil {
		t.Errorf("Expected column %s not found in %s table", name, table.Name)
		return
	}
	if col.Nullable != nullable {
		t.Errorf("Expected %s.%s nullable=%v, got %v", table.Name, name, nullable, col.Nullable)
	}
	if col.HasDefault != hasDefault {
		t.Errorf("Expected %s.%s hasDefault=%v, got %v", table.Name, name, hasDefault, col.HasDefault)
	}
}

// findIndex looks an index up by name, failing the test when missing
func findIndex(t *testing.T, table *schema.Table, name string) schema.Index {
	t.Helper()

	for _, idx := range table.Indexes {
		if idx.Name == name {
			return idx
		}
	}
	t.Fatalf("Expected index %s on %s table not found", name, table.Name)
	return schema.Index{}
}

// verifyIndex checks the normalized columns and uniqueness of an index
func verifyIndex(t *testing.T, table *schema.Table, name string, expectedColumns []string, unique bool) schema.Index {
	t.Helper()

	idx := findIndex(t, table, name)
	if !slices.Equal(idx.Columns(), expectedColumns) {
		t.Errorf("Expected index %s on %v, got %v", name, expectedColumns, idx.Columns())
	}
	if idx.IsUnique != unique {
		t.Errorf("Expected index %s unique=%v, got %v", name, unique, idx.IsUnique)
	}
	return idx
}
