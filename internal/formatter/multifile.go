package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/dbsanity/internal/check"
)

// MultiFileFormatter writes a report to multiple files in a directory:
// a summary plus one file per table with findings
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the report to multiple files
func (f *MultiFileFormatter) Format(r *check.Report) error {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	byTable := r.ByTable()

	if err := f.writeSummary(r, byTable); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	for _, group := range byTable {
		if err := f.writeTableFile(group); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", group.Key, err)
		}
	}

	return nil
}

// writeSummary writes the summary file with counts per category and per table
func (f *MultiFileFormatter) writeSummary(r *check.Report, byTable []check.Group) error {
	ext := f.getFileExtension()
	filename := filepath.Join(f.OutputDir, "_summary"+ext)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	counts := make(map[check.Category]int)
	for _, m := range r.Mismatches {
		counts[m.Category]++
	}

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(file, "# Consistency Summary\n\n")
		_, _ = fmt.Fprintf(file, "%d tables, %d entities checked, %d mismatches.\n\n",
			r.TablesChecked, r.EntitiesChecked, len(r.Mismatches))
		_, _ = fmt.Fprintf(file, "Each table with findings has a corresponding file: `<table_name>%s`\n\n", ext)
		_, _ = fmt.Fprintf(file, "## Categories\n\n")
		for _, c := range check.Categories {
			_, _ = fmt.Fprintf(file, "- %s (`%s`): %d\n", c.Title(), c, counts[c])
		}
		_, _ = fmt.Fprintf(file, "\n## Tables\n\n")
		for _, group := range byTable {
			_, _ = fmt.Fprintf(file, "- **%s**: %d\n", group.Key, len(group.Mismatches))
		}
		if len(r.SkippedEntities) > 0 {
			_, _ = fmt.Fprintf(file, "\n## Skipped entities\n\n%s\n", strings.Join(r.SkippedEntities, ", "))
		}
		return nil
	}

	_, _ = fmt.Fprintf(file, "CONSISTENCY SUMMARY\n")
	_, _ = fmt.Fprintf(file, "tables=%d entities=%d mismatches=%d\n\n",
		r.TablesChecked, r.EntitiesChecked, len(r.Mismatches))
	for _, c := range check.Categories {
		_, _ = fmt.Fprintf(file, "%s %d\n", c, counts[c])
	}
	_, _ = fmt.Fprintln(file)
	for _, group := range byTable {
		_, _ = fmt.Fprintf(file, "%s %d\n", group.Key, len(group.Mismatches))
	}
	return nil
}

// writeTableFile writes the findings of a single table to its own file
func (f *MultiFileFormatter) writeTableFile(group check.Group) error {
	ext := f.getFileExtension()
	filename := filepath.Join(f.OutputDir, group.Key+ext)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	tableReport := &check.Report{Mismatches: group.Mismatches}

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(file, "## %s\n\n", group.Key)
		md := NewMarkdownFormatter(file)
		for _, byCategory := range tableReport.ByCategory() {
			_, _ = fmt.Fprintf(file, "### %s\n\n", check.Category(byCategory.Key).Title())
			md.FormatMismatches(file, byCategory.Mismatches, false)
		}
		return nil
	}

	return NewTextFormatter(file).Format(tableReport)
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
