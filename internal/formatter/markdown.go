package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbsanity/internal/check"
)

// MarkdownFormatter formats a report as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the report in markdown format
func (f *MarkdownFormatter) Format(r *check.Report) error {
	_, _ = fmt.Fprintln(f.writer, "# Consistency Report")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintf(f.writer, "%d tables, %d entities checked, %d mismatches.\n\n",
		r.TablesChecked, r.EntitiesChecked, len(r.Mismatches))

	if len(r.SkippedEntities) > 0 {
		_, _ = fmt.Fprintf(f.writer, "Skipped entities without a table: %s\n\n", strings.Join(r.SkippedEntities, ", "))
	}

	for _, group := range r.ByCategory() {
		category := check.Category(group.Key)
		_, _ = fmt.Fprintf(f.writer, "## %s\n\n", category.Title())
		_, _ = fmt.Fprintf(f.writer, "Category: `%s`\n\n", category)
		f.FormatMismatches(f.writer, group.Mismatches, true)
	}
	return nil
}

// FormatMismatches writes a markdown list of mismatches (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatMismatches(w io.Writer, ms []check.Mismatch, withTable bool) {
	for _, m := range ms {
		prefix := ""
		if withTable {
			prefix = fmt.Sprintf("**%s** ", ownerLabel(m))
		}
		cols := ""
		if len(m.Columns) > 0 {
			cols = fmt.Sprintf(" (%s)", strings.Join(m.Columns, ", "))
		}
		_, _ = fmt.Fprintf(w, "- %s`%s`%s: %s\n", prefix, m.Subject, cols, m.Message)
	}
	_, _ = fmt.Fprintln(w)
}
