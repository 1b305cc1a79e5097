package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/dbsanity/internal/schema"
)

// DefaultCaseFolding lists the index functions treated as case-insensitive comparisons
var DefaultCaseFolding = []string{"lower", "upper"}

// Extractor reads a schema snapshot from a live database.
//
// If tables is empty, all user tables are extracted. When some index
// definitions cannot be normalized, the snapshot is still returned together
// with the joined *schema.ParseError values; callers that need a complete
// snapshot must treat any error as fatal.
type Extractor interface {
	ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error)
}

// ConnectionError reports a database that could not be reached
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// rawIndex is an index as read from the catalog, before key normalization
type rawIndex struct {
	name      string
	keys      []string
	unique    bool
	primary   bool
	predicate string
}

// buildIndexes normalizes raw indexes. Indexes whose keys cannot be
// normalized are left out of the result and reported in the error slice.
func buildIndexes(table string, raws []rawIndex, caseFolding []string) ([]schema.Index, []error) {
	var indexes []schema.Index
	var errs []error

	for _, raw := range raws {
		parts, err := schema.ParseIndexParts(table, raw.name, raw.keys, caseFolding)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		indexes = append(indexes, schema.Index{
			Table:     table,
			Name:      raw.name,
			Parts:     parts,
			IsUnique:  raw.unique || raw.primary,
			IsPrimary: raw.primary,
			Predicate: strings.TrimSpace(raw.predicate),
		})
	}

	return indexes, errs
}

// tableExtractor is the per-driver part of a snapshot walk
type tableExtractor interface {
	getTableNames(ctx context.Context, requested []string) ([]string, error)
	extractTable(ctx context.Context, tableName string) (*schema.Table, []error, error)
}

// extractAll walks every table and joins index parse errors at the end
func extractAll(ctx context.Context, e tableExtractor, tables []string) (*schema.Schema, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	var extractedTables []schema.Table
	var parseErrs []error

	for _, tableName := range tableNames {
		table, errs, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		parseErrs = append(parseErrs, errs...)
		extractedTables = append(extractedTables, *table)
	}

	s := &schema.Schema{Tables: extractedTables}
	if len(parseErrs) > 0 {
		return s, errors.Join(parseErrs...)
	}
	return s, nil
}

// caseFoldingOrDefault returns DefaultCaseFolding for nil; an empty list folds nothing
func caseFoldingOrDefault(fns []string) []string {
	if fns == nil {
		return DefaultCaseFolding
	}
	return fns
}

// primaryKeyOf returns the key columns of the primary index, if any
func primaryKeyOf(indexes []schema.Index) []string {
	for _, idx := range indexes {
		if idx.IsPrimary {
			return idx.Columns()
		}
	}
	return nil
}
