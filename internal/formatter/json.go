package formatter

import (
	"encoding/json"
	"io"

	"github.com/tordrt/dbsanity/internal/check"
)

// JSONFormatter formats a report as an indented JSON document
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Format writes the report as JSON. Mismatches is always an array, never null.
func (f *JSONFormatter) Format(r *check.Report) error {
	out := *r
	if out.Mismatches == nil {
		out.Mismatches = []check.Mismatch{}
	}
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
