package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/dbsanity/internal/check"
)

// TextFormatter formats a report as plain text, one line per mismatch
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the mismatches grouped by category. A clean report writes nothing.
func (f *TextFormatter) Format(r *check.Report) error {
	for i, group := range r.ByCategory() {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between categories
		}
		category := check.Category(group.Key)
		_, _ = fmt.Fprintf(f.writer, "%s [%s] (%d)\n", category.Title(), category, len(group.Mismatches))
		for _, m := range group.Mismatches {
			if _, err := fmt.Fprintf(f.writer, "  %s\n", m); err != nil {
				return err
			}
		}
	}
	return nil
}
