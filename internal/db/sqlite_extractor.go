package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/tordrt/dbsanity/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client      *SQLiteClient
	caseFolding []string
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient, caseFolding []string) *SQLiteExtractor {
	return &SQLiteExtractor{
		client:      client,
		caseFolding: caseFoldingOrDefault(caseFolding),
	}
}

type sqliteColumnRow struct {
	CID          int            `db:"cid"`
	Name         string         `db:"name"`
	Type         string         `db:"type"`
	NotNull      int            `db:"notnull"`
	DefaultValue sql.NullString `db:"dflt_value"`
	PK           int            `db:"pk"`
}

type sqliteIndexRow struct {
	Seq     int    `db:"seq"`
	Name    string `db:"name"`
	Unique  int    `db:"unique"`
	Origin  string `db:"origin"`
	Partial int    `db:"partial"`
}

type sqliteIndexColumnRow struct {
	SeqNo int            `db:"seqno"`
	CID   int            `db:"cid"`
	Name  sql.NullString `db:"name"`
	Desc  int            `db:"desc"`
	Coll  sql.NullString `db:"coll"`
	Key   int            `db:"key"`
}

// ExtractSchema extracts the snapshot for specified tables
// If tables is empty, extracts all tables in the database
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return extractAll(ctx, e, tables)
}

// getTableNames returns the list of tables to extract
func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	var tableList []string
	if err := e.client.GetDB().SelectContext(ctx, &tableList, query); err != nil {
		return nil, err
	}
	return tableList, nil
}

// extractTable extracts all information for a single table
func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, []error, error) {
	table := &schema.Table{Name: tableName}

	columns, pk, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns
	table.PrimaryKey = pk

	raws, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	indexes, parseErrs := buildIndexes(tableName, raws, e.caseFolding)

	// INTEGER PRIMARY KEY is a rowid alias and has no entry in index_list
	if primaryKeyOf(indexes) == nil && len(pk) > 0 {
		indexes = append(indexes, schema.Index{
			Table:     tableName,
			Name:      "sqlite_rowid",
			Parts:     columnParts(pk),
			IsUnique:  true,
			IsPrimary: true,
		})
	}
	table.Indexes = indexes

	return table, parseErrs, nil
}

// extractColumns extracts column information and primary key columns for a table
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	var rows []sqliteColumnRow
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLiteIdent(tableName))
	if err := e.client.GetDB().SelectContext(ctx, &rows, query); err != nil {
		return nil, nil, err
	}

	pkCount := 0
	for _, r := range rows {
		if r.PK > 0 {
			pkCount++
		}
	}

	pkColumns := make([]string, pkCount)
	columns := make([]schema.Column, 0, len(rows))
	for _, r := range rows {
		col := schema.Column{
			Name:     r.Name,
			Type:     r.Type,
			Kind:     schema.ClassifyType(r.Type),
			Nullable: r.NotNull == 0,
		}
		if r.DefaultValue.Valid {
			col.DefaultValue = &r.DefaultValue.String
		}
		rowidAlias := r.PK > 0 && pkCount == 1 && strings.EqualFold(r.Type, "integer")
		col.HasDefault = r.DefaultValue.Valid || rowidAlias

		if r.PK > 0 {
			pkColumns[r.PK-1] = r.Name
		}
		columns = append(columns, col)
	}

	if pkCount == 0 {
		pkColumns = nil
	}
	return columns, pkColumns, nil
}

// extractIndexes extracts index information.
// Expression keys and partial predicates are only present in the CREATE INDEX
// text, so they are read from sqlite_master.
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]rawIndex, error) {
	var list []sqliteIndexRow
	query := fmt.Sprintf("PRAGMA index_list(%s)", quoteSQLiteIdent(tableName))
	if err := e.client.GetDB().SelectContext(ctx, &list, query); err != nil {
		return nil, err
	}

	var indexes []rawIndex
	for _, entry := range list {
		var cols []sqliteIndexColumnRow
		infoQuery := fmt.Sprintf("PRAGMA index_xinfo(%s)", quoteSQLiteIdent(entry.Name))
		if err := e.client.GetDB().SelectContext(ctx, &cols, infoQuery); err != nil {
			return nil, fmt.Errorf("failed to read index %s: %w", entry.Name, err)
		}

		var ddl sql.NullString
		err := e.client.GetDB().GetContext(ctx, &ddl,
			"SELECT sql FROM sqlite_master WHERE type = 'index' AND name = ?", entry.Name)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to read index definition %s: %w", entry.Name, err)
		}

		var ddlKeys []string
		var predicate string
		if ddl.Valid {
			ddlKeys, predicate = parseSQLiteIndexDDL(ddl.String)
		}

		idx := rawIndex{
			name:      entry.Name,
			unique:    entry.Unique == 1,
			primary:   entry.Origin == "pk",
			predicate: predicate,
		}
		for _, c := range cols {
			if c.Key == 0 {
				continue
			}
			var key string
			switch {
			case c.Name.Valid:
				key = c.Name.String
			case c.SeqNo < len(ddlKeys):
				key = ddlKeys[c.SeqNo]
			}
			// index_xinfo reports the effective collation, including one inherited from the column
			if key != "" && c.Coll.Valid && strings.EqualFold(c.Coll.String, "nocase") {
				key += " COLLATE NOCASE"
			}
			idx.keys = append(idx.keys, key)
		}
		indexes = append(indexes, idx)
	}

	return indexes, nil
}

var (
	sqliteOnPattern    = regexp.MustCompile(`(?is)\bON\s+("[^"]+"|\[[^\]]+\]|` + "`[^`]+`" + `|[\w.]+)\s*\(`)
	sqliteWherePattern = regexp.MustCompile(`(?is)^\s*WHERE\s+(.*)$`)
	sqliteOrderPattern = regexp.MustCompile(`(?i)\s+(ASC|DESC)$`)
	sqliteCollPattern  = regexp.MustCompile(`(?i)\s+COLLATE\s+\S+$`)
)

// parseSQLiteIndexDDL splits a CREATE INDEX statement into key definitions and WHERE predicate
func parseSQLiteIndexDDL(ddl string) ([]string, string) {
	loc := sqliteOnPattern.FindStringIndex(ddl)
	if loc == nil {
		return nil, ""
	}
	open := loc[1] - 1
	end := open + closingParen(ddl[open:])
	if end < open {
		return nil, ""
	}

	var keys []string
	for _, key := range splitTopLevelCommas(ddl[open+1 : end]) {
		key = strings.TrimSpace(key)
		key = sqliteOrderPattern.ReplaceAllString(key, "")
		key = sqliteCollPattern.ReplaceAllString(key, "")
		keys = append(keys, strings.TrimSpace(key))
	}

	predicate := ""
	if m := sqliteWherePattern.FindStringSubmatch(ddl[end+1:]); m != nil {
		predicate = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), ";"))
	}
	return keys, predicate
}

// closingParen returns the index of the parenthesis matching s[0], or -1
func closingParen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func quoteSQLiteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnParts(cols []string) []schema.IndexPart {
	parts := make([]schema.IndexPart, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, schema.IndexPart{Column: c})
	}
	return parts
}
