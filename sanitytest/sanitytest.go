// Package sanitytest runs the consistency checks from a Go test.
//
//	func TestSchemaConsistency(t *testing.T) {
//		sanitytest.RunURL(t, context.Background(),
//			"sqlite://testdata/app.db",
//			dbsanity.FileSource("models.yaml"),
//			nil,
//		)
//	}
//
// Every mismatch is reported as its own assertion failure, inside a subtest
// per category when t is a *testing.T, so one run shows all of them.
package sanitytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbsanity"
	"github.com/tordrt/dbsanity/internal/check"
)

// T is the part of *testing.T used by this package
type T interface {
	require.TestingT
	Helper()
}

// AssertConsistent fails t once per mismatch between the snapshot and the entities.
// It returns true when the report is empty.
func AssertConsistent(t T, s *dbsanity.Snapshot, entities []dbsanity.Entity, policy dbsanity.Policy) bool {
	t.Helper()

	report := check.NewEngine(policy).Run(context.Background(), s, entities)
	return assertReport(t, report)
}

// Run extracts a snapshot and loads the entities, failing the test on any
// introspection or source error, then asserts consistency.
func Run(t T, ctx context.Context, extractor dbsanity.Extractor, src dbsanity.Source, policy dbsanity.Policy) bool {
	t.Helper()

	s, err := extractor.ExtractSchema(ctx, nil)
	require.NoError(t, err, "schema extraction failed")

	entities, err := src.Entities(ctx)
	require.NoError(t, err, "loading entities failed")

	return AssertConsistent(t, s, entities, policy)
}

// RunURL is Run for a database URL, as accepted by dbsanity.Audit.
// opts may be nil; its tables, policy and category filter are honored.
func RunURL(t T, ctx context.Context, databaseURL string, src dbsanity.Source, opts *dbsanity.Options) bool {
	t.Helper()

	s, err := dbsanity.ExtractSnapshot(ctx, databaseURL, opts)
	require.NoError(t, err, "schema extraction failed")

	report, err := dbsanity.AuditSnapshot(ctx, s, src, opts)
	require.NoError(t, err, "loading entities failed")

	return assertReport(t, report)
}

func assertReport(t T, report *dbsanity.Report) bool {
	t.Helper()

	groups := report.ByCategory()
	if tt, ok := t.(*testing.T); ok {
		for _, group := range groups {
			tt.Run(group.Key, func(t *testing.T) {
				failAll(t, group)
			})
		}
		return report.Empty()
	}

	for _, group := range groups {
		failAll(t, group)
	}
	return report.Empty()
}

func failAll(t assert.TestingT, group check.Group) {
	title := check.Category(group.Key).Title()
	for _, m := range group.Mismatches {
		assert.Fail(t, title, m.String())
	}
}
