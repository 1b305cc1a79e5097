package schema

import "slices"

// Schema represents a complete database snapshot taken once per run
type Schema struct {
	Tables []Table
}

// Table represents a database table
type Table struct {
	Name       string
	Columns    []Column
	Indexes    []Index
	PrimaryKey []string
}

// Column represents a table column
type Column struct {
	Name         string
	Type         string // raw type as reported by the database
	Kind         Kind
	Nullable     bool
	DefaultValue *string
	// HasDefault is true for literal defaults, default functions, identity and generated columns
	HasDefault bool
}

// IndexPart is one key of an index: a plain column or an expression over one column
type IndexPart struct {
	Column          string
	Expression      string // raw expression text, empty for plain columns
	Function        string // lowercased function name for expression parts
	CaseInsensitive bool
}

// IsExpression reports whether the part was built from an expression
func (p IndexPart) IsExpression() bool {
	return p.Expression != ""
}

// Index represents a database index
type Index struct {
	Table     string
	Name      string
	Parts     []IndexPart
	IsUnique  bool
	IsPrimary bool
	Predicate string // partial index filter, empty when the index covers all rows
}

// Columns returns the normalized column names of the index in key order
func (i Index) Columns() []string {
	cols := make([]string, 0, len(i.Parts))
	for _, p := range i.Parts {
		cols = append(cols, p.Column)
	}
	return cols
}

// HasColumn reports whether any key part targets the column
func (i Index) HasColumn(name string) bool {
	return slices.Contains(i.Columns(), name)
}

// CaseInsensitive reports whether any key part folds case
func (i Index) CaseInsensitive() bool {
	for _, p := range i.Parts {
		if p.CaseInsensitive {
			return true
		}
	}
	return false
}

// Definition renders the key parts the way they appear in DDL
func (i Index) Definition() []string {
	defs := make([]string, 0, len(i.Parts))
	for _, p := range i.Parts {
		if p.IsExpression() {
			defs = append(defs, p.Expression)
			continue
		}
		defs = append(defs, p.Column)
	}
	return defs
}

// FindTable looks a table up by name
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// FindColumn looks a column up by name
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	return t.FindColumn(name) != nil
}

// UniqueIndexes returns the unique indexes of the table, primary key index included
func (t *Table) UniqueIndexes() []Index {
	var out []Index
	for _, idx := range t.Indexes {
		if idx.IsUnique {
			out = append(out, idx)
		}
	}
	return out
}
