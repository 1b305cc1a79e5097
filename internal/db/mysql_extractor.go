package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/dbsanity/internal/schema"
)

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client      *MySQLClient
	schemaName  string
	caseFolding []string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, schemaName string, caseFolding []string) *MySQLExtractor {
	return &MySQLExtractor{
		client:      client,
		schemaName:  schemaName,
		caseFolding: caseFoldingOrDefault(caseFolding),
	}
}

type mysqlColumnRow struct {
	Name       string         `db:"column_name"`
	ColumnType string         `db:"column_type"`
	IsNullable string         `db:"is_nullable"`
	Default    sql.NullString `db:"column_default"`
	Extra      string         `db:"extra"`
}

type mysqlIndexRow struct {
	IndexName  string         `db:"index_name"`
	NonUnique  int            `db:"non_unique"`
	Seq        int            `db:"seq_in_index"`
	ColumnName sql.NullString `db:"column_name"`
	Expression sql.NullString `db:"expression"`
}

// ExtractSchema extracts the snapshot for specified tables
// If tables is empty, extracts all tables in the schema
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return extractAll(ctx, e, tables)
}

// getTableNames returns the list of tables to extract
func (e *MySQLExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT table_name AS table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	var tables []string
	if err := e.client.GetDB().SelectContext(ctx, &tables, query, e.schemaName); err != nil {
		return nil, err
	}
	return tables, nil
}

// extractTable extracts all information for a single table
func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, []error, error) {
	table := &schema.Table{Name: tableName}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	raws, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	indexes, parseErrs := buildIndexes(tableName, raws, e.caseFolding)
	table.Indexes = indexes
	table.PrimaryKey = primaryKeyOf(indexes)

	return table, parseErrs, nil
}

// extractColumns extracts column information for a table
func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name AS column_name,
			c.column_type AS column_type,
			c.is_nullable AS is_nullable,
			c.column_default AS column_default,
			c.extra AS extra
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	var rows []mysqlColumnRow
	if err := e.client.GetDB().SelectContext(ctx, &rows, query, e.schemaName, tableName); err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, r := range rows {
		col := schema.Column{
			Name:     r.Name,
			Type:     r.ColumnType,
			Kind:     schema.ClassifyType(r.ColumnType),
			Nullable: r.IsNullable == "YES",
		}
		if r.Default.Valid {
			col.DefaultValue = &r.Default.String
		}
		extra := strings.ToLower(r.Extra)
		col.HasDefault = r.Default.Valid ||
			strings.Contains(extra, "auto_increment") ||
			strings.Contains(extra, "generated")

		columns = append(columns, col)
	}

	return columns, nil
}

// extractIndexes extracts index information.
// Functional key parts (MySQL 8.0.13+) have a NULL column_name and carry the expression instead.
func (e *MySQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]rawIndex, error) {
	query := `
		SELECT
			s.index_name AS index_name,
			s.non_unique AS non_unique,
			s.seq_in_index AS seq_in_index,
			s.column_name AS column_name,
			s.expression AS expression
		FROM information_schema.statistics s
		WHERE s.table_schema = ? AND s.table_name = ?
		ORDER BY s.index_name, s.seq_in_index
	`

	var rows []mysqlIndexRow
	if err := e.client.GetDB().SelectContext(ctx, &rows, query, e.schemaName, tableName); err != nil {
		return nil, err
	}

	var indexes []rawIndex
	for _, r := range rows {
		if len(indexes) == 0 || indexes[len(indexes)-1].name != r.IndexName {
			indexes = append(indexes, rawIndex{
				name:    r.IndexName,
				unique:  r.NonUnique == 0,
				primary: r.IndexName == "PRIMARY",
			})
		}
		idx := &indexes[len(indexes)-1]

		switch {
		case r.ColumnName.Valid:
			idx.keys = append(idx.keys, r.ColumnName.String)
		case r.Expression.Valid:
			idx.keys = append(idx.keys, r.Expression.String)
		default:
			idx.keys = append(idx.keys, "")
		}
	}

	return indexes, nil
}
