package formatter

import (
	"fmt"

	"github.com/tordrt/dbsanity/internal/check"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
	formatJSON     = "json"
)

// Formats lists the accepted report formats
var Formats = []string{formatText, formatMarkdown, formatJSON}

// ReportFormatter renders a consistency report
type ReportFormatter interface {
	Format(r *check.Report) error
}

func ownerLabel(m check.Mismatch) string {
	if m.Entity == "" {
		return m.Table
	}
	return fmt.Sprintf("%s (%s)", m.Table, m.Entity)
}
