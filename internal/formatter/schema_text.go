package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbsanity/internal/schema"
)

// SchemaTextFormatter dumps a snapshot the way the checks see it:
// normalized index parts, predicates and defaults
type SchemaTextFormatter struct {
	writer io.Writer
}

// NewSchemaTextFormatter creates a new snapshot formatter
func NewSchemaTextFormatter(w io.Writer) *SchemaTextFormatter {
	return &SchemaTextFormatter{writer: w}
}

// Format writes the snapshot in compact text format
func (f *SchemaTextFormatter) Format(s *schema.Schema) error {
	for i, table := range s.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}

		if err := f.formatTable(table); err != nil {
			return err
		}
	}
	return nil
}

func (f *SchemaTextFormatter) formatTable(table schema.Table) error {
	// Table header with primary key
	pkStr := ""
	if len(table.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.PrimaryKey, ", "))
	}
	if _, err := fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Name, pkStr); err != nil {
		return err
	}

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(col))
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", f.formatIndex(idx))
		}
	}

	return nil
}

func (f *SchemaTextFormatter) formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":", col.Type}

	if col.Kind != "" && string(col.Kind) != col.Type {
		parts = append(parts, "["+string(col.Kind)+"]")
	}

	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}

	switch {
	case col.DefaultValue != nil:
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	case col.HasDefault:
		parts = append(parts, "DEFAULT (generated)")
	}

	return strings.Join(parts, " ")
}

func (f *SchemaTextFormatter) formatIndex(idx schema.Index) string {
	var keys []string
	for _, p := range idx.Parts {
		if p.IsExpression() {
			keys = append(keys, fmt.Sprintf("%s -> %s", p.Expression, p.Column))
			continue
		}
		keys = append(keys, p.Column)
	}

	line := fmt.Sprintf("%s (%s)", idx.Name, strings.Join(keys, ", "))
	switch {
	case idx.IsPrimary:
		line += " PRIMARY"
	case idx.IsUnique:
		line += " UNIQUE"
	}
	if idx.CaseInsensitive() {
		line += " CASE-INSENSITIVE"
	}
	if idx.Predicate != "" {
		line += " WHERE " + idx.Predicate
	}
	return line
}
