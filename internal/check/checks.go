package check

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tordrt/dbsanity/internal/model"
	"github.com/tordrt/dbsanity/internal/schema"
)

// Func is a single consistency check. Checks are pure: the same inputs
// always yield the same mismatches.
type Func func(s *schema.Schema, entities []model.Entity, p Policy) []Mismatch

// entityNames maps each table to the sorted, comma-joined names of its entities
func entityNames(entities []model.Entity) map[string]string {
	byTable := make(map[string][]string)
	for _, e := range entities {
		byTable[e.Table] = append(byTable[e.Table], e.Name)
	}
	names := make(map[string]string, len(byTable))
	for table, list := range byTable {
		slices.Sort(list)
		names[table] = strings.Join(slices.Compact(list), ", ")
	}
	return names
}

// CheckNoDeletedAtInUniqueIndex reports every unique index whose columns include the soft-delete column
func CheckNoDeletedAtInUniqueIndex(s *schema.Schema, entities []model.Entity, p Policy) []Mismatch {
	p = p.withDefaults()
	owners := entityNames(entities)

	var out []Mismatch
	for _, table := range s.Tables {
		if p.skipTable(table.Name) {
			continue
		}
		for _, idx := range table.UniqueIndexes() {
			if !idx.HasColumn(p.SoftDeleteColumn) {
				continue
			}
			out = append(out, Mismatch{
				Category: CategoryDeletedAtInUniqueIndex,
				Table:    table.Name,
				Entity:   owners[table.Name],
				Subject:  idx.Name,
				Columns:  idx.Definition(),
				Message:  fmt.Sprintf("unique index on (%s) includes %s", strings.Join(idx.Definition(), ", "), p.SoftDeleteColumn),
			})
		}
	}
	return out
}

// CheckSoftDeleteIndexFiltered reports unique indexes on soft-delete tables that
// do not exclude deleted rows with a "<column> IS NULL" predicate. The primary key is exempt.
func CheckSoftDeleteIndexFiltered(s *schema.Schema, entities []model.Entity, p Policy) []Mismatch {
	p = p.withDefaults()
	owners := entityNames(entities)

	var out []Mismatch
	for _, table := range s.Tables {
		if p.skipTable(table.Name) || !table.HasColumn(p.SoftDeleteColumn) {
			continue
		}
		for _, idx := range table.UniqueIndexes() {
			if idx.IsPrimary || schema.ExcludesNullColumn(idx.Predicate, p.SoftDeleteColumn) {
				continue
			}
			msg := fmt.Sprintf("unique index has no predicate; expected WHERE %s IS NULL", p.SoftDeleteColumn)
			if idx.Predicate != "" {
				msg = fmt.Sprintf("predicate %q does not exclude rows where %s is set", idx.Predicate, p.SoftDeleteColumn)
			}
			out = append(out, Mismatch{
				Category: CategoryUnfilteredSoftDeleteIndex,
				Table:    table.Name,
				Entity:   owners[table.Name],
				Subject:  idx.Name,
				Columns:  idx.Definition(),
				Message:  msg,
			})
		}
	}
	return out
}

// CheckValidationCoverage reports database constraints without a matching validation:
// NOT NULL columns without presence, NOT NULL booleans without inclusion in
// {true, false}, and unique indexes without an equivalent uniqueness rule.
// Entities whose table is not in the snapshot are ignored.
func CheckValidationCoverage(s *schema.Schema, entities []model.Entity, p Policy) []Mismatch {
	p = p.withDefaults()

	var out []Mismatch
	for _, e := range entities {
		if p.skipTable(e.Table) {
			continue
		}
		table := s.FindTable(e.Table)
		if table == nil {
			continue
		}
		out = append(out, presenceMismatches(table, e, p)...)
		out = append(out, booleanMismatches(table, e)...)
		out = append(out, uniquenessMismatches(table, e, p)...)
	}
	return out
}

func presenceMismatches(table *schema.Table, e model.Entity, p Policy) []Mismatch {
	var out []Mismatch
	for _, col := range table.Columns {
		if col.Nullable || col.HasDefault || p.presenceExempt(col) {
			continue
		}
		if e.HasPresence(col.Name) {
			continue
		}
		isForeignKey := strings.HasSuffix(col.Name, p.ForeignKeySuffix)
		if isForeignKey && e.RequiresAssociation(col.Name, p.ForeignKeySuffix) {
			continue
		}

		msg := "NOT NULL column without default has no presence validation"
		if isForeignKey {
			msg = "NOT NULL foreign key has neither a presence validation nor a required belongs-to association"
		}
		out = append(out, Mismatch{
			Category: CategoryMissingPresence,
			Table:    table.Name,
			Entity:   e.Name,
			Subject:  col.Name,
			Columns:  []string{col.Name},
			Message:  msg,
		})
	}
	return out
}

func booleanMismatches(table *schema.Table, e model.Entity) []Mismatch {
	var out []Mismatch
	for _, col := range table.Columns {
		if col.Nullable || col.Kind != schema.KindBoolean {
			continue
		}
		if e.HasBooleanInclusion(col.Name) {
			continue
		}
		out = append(out, Mismatch{
			Category: CategoryMissingBooleanInclusion,
			Table:    table.Name,
			Entity:   e.Name,
			Subject:  col.Name,
			Columns:  []string{col.Name},
			Message:  "NOT NULL boolean column has no inclusion validation in [true, false]",
		})
	}
	return out
}

func uniquenessMismatches(table *schema.Table, e model.Entity, p Policy) []Mismatch {
	var out []Mismatch
	for _, idx := range table.UniqueIndexes() {
		if idx.IsPrimary {
			continue
		}
		want := columnSet(idx.Columns(), p.SoftDeleteColumn)
		if len(want) == 0 {
			continue
		}
		caseInsensitive := idx.CaseInsensitive()

		matched, caseMismatch := false, false
		for _, rule := range e.UniquenessRules() {
			got := columnSet(append(slices.Clone(rule.Scope), rule.Attributes...), p.SoftDeleteColumn)
			if !maps.Equal(got, want) {
				continue
			}
			if caseInsensitive && rule.CaseSensitive {
				caseMismatch = true
				continue
			}
			matched = true
			break
		}
		if matched {
			continue
		}

		cols := slices.Sorted(maps.Keys(want))
		msg := fmt.Sprintf("no uniqueness validation covering (%s)", strings.Join(cols, ", "))
		if caseMismatch {
			msg = fmt.Sprintf("uniqueness validation on (%s) must declare case_sensitive: false to match the case-insensitive index", strings.Join(cols, ", "))
		} else if caseInsensitive {
			msg += " with case_sensitive: false"
		}
		out = append(out, Mismatch{
			Category: CategoryMissingUniqueness,
			Table:    table.Name,
			Entity:   e.Name,
			Subject:  idx.Name,
			Columns:  idx.Definition(),
			Message:  msg,
		})
	}
	return out
}

// columnSet returns the columns as a set, without the excluded column
func columnSet(cols []string, exclude string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c != exclude {
			set[c] = struct{}{}
		}
	}
	return set
}
