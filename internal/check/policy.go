package check

import (
	"slices"

	"github.com/tordrt/dbsanity/internal/schema"
)

// Policy holds the marker columns and exemption sets used by the checks
type Policy struct {
	SoftDeleteColumn string
	PrimaryKeyColumn string
	// TimestampColumns are never required to have a presence validation
	TimestampColumns []string
	// ExemptKinds are column kinds never required to have a presence validation
	ExemptKinds      []schema.Kind
	ForeignKeySuffix string
	SkipTables       []string
}

// DefaultPolicy returns the conventional Rails-style policy
func DefaultPolicy() Policy {
	return Policy{
		SoftDeleteColumn: "deleted_at",
		PrimaryKeyColumn: "id",
		TimestampColumns: []string{"created_at", "updated_at"},
		ExemptKinds:      []schema.Kind{schema.KindBoolean, schema.KindJSON},
		ForeignKeySuffix: "_id",
		SkipTables:       []string{"schema_migrations", "ar_internal_metadata"},
	}
}

// withDefaults fills empty names and nil sets from DefaultPolicy.
// An empty non-nil set is kept and means "exempt nothing".
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.SoftDeleteColumn == "" {
		p.SoftDeleteColumn = d.SoftDeleteColumn
	}
	if p.PrimaryKeyColumn == "" {
		p.PrimaryKeyColumn = d.PrimaryKeyColumn
	}
	if p.TimestampColumns == nil {
		p.TimestampColumns = d.TimestampColumns
	}
	if p.ExemptKinds == nil {
		p.ExemptKinds = d.ExemptKinds
	}
	if p.ForeignKeySuffix == "" {
		p.ForeignKeySuffix = d.ForeignKeySuffix
	}
	if p.SkipTables == nil {
		p.SkipTables = d.SkipTables
	}
	return p
}

func (p Policy) skipTable(name string) bool {
	return slices.Contains(p.SkipTables, name)
}

// presenceExempt reports whether a NOT NULL column needs no presence validation
func (p Policy) presenceExempt(col schema.Column) bool {
	return col.Name == p.PrimaryKeyColumn ||
		slices.Contains(p.TimestampColumns, col.Name) ||
		slices.Contains(p.ExemptKinds, col.Kind)
}
