package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/dbsanity/internal/schema"
)

// MSSQLExtractor handles schema extraction from SQL Server.
// SQL Server has filtered indexes but no expression indexes, so every key is a plain column.
type MSSQLExtractor struct {
	client      *MSSQLClient
	schemaName  string
	caseFolding []string
}

// NewMSSQLExtractor creates a new SQL Server schema extractor
func NewMSSQLExtractor(client *MSSQLClient, schemaName string, caseFolding []string) *MSSQLExtractor {
	if schemaName == "" {
		schemaName = "dbo"
	}
	return &MSSQLExtractor{
		client:      client,
		schemaName:  schemaName,
		caseFolding: caseFoldingOrDefault(caseFolding),
	}
}

type mssqlColumnRow struct {
	Name       string         `db:"column_name"`
	DataType   string         `db:"data_type"`
	IsNullable string         `db:"is_nullable"`
	Default    sql.NullString `db:"column_default"`
	IsIdentity sql.NullInt64  `db:"is_identity"`
	IsComputed sql.NullInt64  `db:"is_computed"`
}

type mssqlIndexRow struct {
	IndexName  string `db:"index_name"`
	IsUnique   bool   `db:"is_unique"`
	IsPrimary  bool   `db:"is_primary"`
	Filter     string `db:"filter_definition"`
	ColumnName string `db:"column_name"`
}

// ExtractSchema extracts the snapshot for specified tables
// If tables is empty, extracts all tables in the schema
func (e *MSSQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return extractAll(ctx, e, tables)
}

// getTableNames returns the list of tables to extract
func (e *MSSQLExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT TABLE_NAME AS table_name
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	var tables []string
	if err := e.client.GetDB().SelectContext(ctx, &tables, query, e.schemaName); err != nil {
		return nil, err
	}
	return tables, nil
}

// extractTable extracts all information for a single table
func (e *MSSQLExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, []error, error) {
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
func (e *MSSQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.COLUMN_NAME AS column_name,
			c.DATA_TYPE AS data_type,
			c.IS_NULLABLE AS is_nullable,
			c.COLUMN_DEFAULT AS column_default,
			COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity') AS is_identity,
			COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsComputed') AS is_computed
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
	`

	var rows []mssqlColumnRow
	if err := e.client.GetDB().SelectContext(ctx, &rows, query, e.schemaName, tableName); err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, r := range rows {
		col := schema.Column{
			Name:     r.Name,
			Type:     r.DataType,
			Kind:     schema.ClassifyType(r.DataType),
			Nullable: r.IsNullable == "YES",
		}
		if r.Default.Valid {
			col.DefaultValue = &r.Default.String
		}
		col.HasDefault = r.Default.Valid ||
			(r.IsIdentity.Valid && r.IsIdentity.Int64 == 1) ||
			(r.IsComputed.Valid && r.IsComputed.Int64 == 1)

		columns = append(columns, col)
	}

	return columns, nil
}

// extractIndexes extracts index key columns and filter definitions
func (e *MSSQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]rawIndex, error) {
	query := `
		SELECT
			i.name AS index_name,
			i.is_unique AS is_unique,
			i.is_primary_key AS is_primary,
			ISNULL(i.filter_definition, '') AS filter_definition,
			col.name AS column_name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1
			AND t.name = @p2
			AND i.name IS NOT NULL
			AND ic.is_included_column = 0
		ORDER BY i.name, ic.key_ordinal
	`

	var rows []mssqlIndexRow
	if err := e.client.GetDB().SelectContext(ctx, &rows, query, e.schemaName, tableName); err != nil {
		return nil, err
	}

	var indexes []rawIndex
	for _, r := range rows {
		if len(indexes) == 0 || indexes[len(indexes)-1].name != r.IndexName {
			indexes = append(indexes, rawIndex{
				name:      r.IndexName,
				unique:    r.IsUnique,
				primary:   r.IsPrimary,
				predicate: r.Filter,
			})
		}
		idx := &indexes[len(indexes)-1]
		idx.keys = append(idx.keys, r.ColumnName)
	}

	return indexes, nil
}
