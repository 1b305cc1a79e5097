package check

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrFindings is returned by callers that turn a non-empty report into a failure
var ErrFindings = errors.New("consistency findings reported")

// Category groups mismatches by the rule that produced them
type Category string

const (
	CategoryDeletedAtInUniqueIndex    Category = "deleted_at_in_unique_index"
	CategoryUnfilteredSoftDeleteIndex Category = "unfiltered_soft_delete_index"
	CategoryMissingPresence           Category = "missing_presence"
	CategoryMissingBooleanInclusion   Category = "missing_boolean_inclusion"
	CategoryMissingUniqueness         Category = "missing_uniqueness"
)

// Categories lists every category in report order
var Categories = []Category{
	CategoryDeletedAtInUniqueIndex,
	CategoryUnfilteredSoftDeleteIndex,
	CategoryMissingPresence,
	CategoryMissingBooleanInclusion,
	CategoryMissingUniqueness,
}

var categoryTitles = map[Category]string{
	CategoryDeletedAtInUniqueIndex:    "Unique indexes including the soft-delete column",
	CategoryUnfilteredSoftDeleteIndex: "Unique indexes not filtering soft-deleted rows",
	CategoryMissingPresence:           "NOT NULL columns without presence validation",
	CategoryMissingBooleanInclusion:   "NOT NULL boolean columns without inclusion in [true, false]",
	CategoryMissingUniqueness:         "Unique indexes without matching uniqueness validation",
}

// Title returns the heading used when rendering the category
func (c Category) Title() string {
	if title, ok := categoryTitles[c]; ok {
		return title
	}
	return string(c)
}

func (c Category) rank() int {
	if i := slices.Index(Categories, c); i >= 0 {
		return i
	}
	return len(Categories)
}

// ParseCategories parses a list of category names
func ParseCategories(names []string) ([]Category, error) {
	out := make([]Category, 0, len(names))
	for _, name := range names {
		c := Category(strings.TrimSpace(name))
		if !slices.Contains(Categories, c) {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		out = append(out, c)
	}
	return out, nil
}

// Mismatch is one inconsistency between the schema and the declared validations
type Mismatch struct {
	Category Category `json:"category"`
	Table    string   `json:"table"`
	Entity   string   `json:"entity,omitempty"`
	// Subject is the offending column or index name
	Subject string   `json:"subject"`
	Columns []string `json:"columns,omitempty"`
	Message string   `json:"message"`
}

// String renders the mismatch as a single report line
func (m Mismatch) String() string {
	owner := m.Table
	if m.Entity != "" {
		owner = fmt.Sprintf("%s (%s)", m.Table, m.Entity)
	}
	return fmt.Sprintf("%s: %s: %s", owner, m.Subject, m.Message)
}

func compareMismatches(a, b Mismatch) int {
	return cmp.Or(
		cmp.Compare(a.Category.rank(), b.Category.rank()),
		cmp.Compare(a.Table, b.Table),
		cmp.Compare(a.Subject, b.Subject),
		cmp.Compare(a.Entity, b.Entity),
		cmp.Compare(a.Message, b.Message),
	)
}

// Group is the mismatches of a single category or table
type Group struct {
	Key        string
	Mismatches []Mismatch
}

// Report is the sorted result of one engine run
type Report struct {
	Mismatches []Mismatch `json:"mismatches"`
	// TablesChecked and EntitiesChecked describe the audited snapshot
	TablesChecked   int `json:"tables_checked"`
	EntitiesChecked int `json:"entities_checked"`
	// SkippedEntities lists entities whose table was not in the snapshot
	SkippedEntities []string `json:"skipped_entities,omitempty"`
}

// Empty reports whether the run found nothing
func (r *Report) Empty() bool {
	return len(r.Mismatches) == 0
}

// Err returns ErrFindings when the report is not empty
func (r *Report) Err() error {
	if r.Empty() {
		return nil
	}
	return fmt.Errorf("%w: %d mismatches", ErrFindings, len(r.Mismatches))
}

// ByCategory groups mismatches by category in report order
func (r *Report) ByCategory() []Group {
	return r.group(func(m Mismatch) string { return string(m.Category) })
}

// ByTable groups mismatches by table name, sorted by table
func (r *Report) ByTable() []Group {
	sorted := slices.Clone(r.Mismatches)
	slices.SortStableFunc(sorted, func(a, b Mismatch) int { return cmp.Compare(a.Table, b.Table) })
	return (&Report{Mismatches: sorted}).group(func(m Mismatch) string { return m.Table })
}

func (r *Report) group(key func(Mismatch) string) []Group {
	var groups []Group
	for _, m := range r.Mismatches {
		k := key(m)
		if len(groups) == 0 || groups[len(groups)-1].Key != k {
			groups = append(groups, Group{Key: k})
		}
		groups[len(groups)-1].Mismatches = append(groups[len(groups)-1].Mismatches, m)
	}
	return groups
}
