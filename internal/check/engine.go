package check

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tordrt/dbsanity/internal/model"
	"github.com/tordrt/dbsanity/internal/schema"
)

// Engine runs the consistency checks over one snapshot
type Engine struct {
	policy Policy
	checks []Func
	only   []Category
	logger *slog.Logger
}

// NewEngine creates an engine running every check under the given policy
func NewEngine(policy Policy) *Engine {
	return &Engine{
		policy: policy.withDefaults(),
		checks: []Func{
			CheckNoDeletedAtInUniqueIndex,
			CheckSoftDeleteIndexFiltered,
			CheckValidationCoverage,
		},
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for skipped entities
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// Only restricts the report to the given categories
func (e *Engine) Only(categories ...Category) *Engine {
	e.only = categories
	return e
}

// Policy returns the effective policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// Run diffs the snapshot against the entities and returns the sorted report
func (e *Engine) Run(ctx context.Context, s *schema.Schema, entities []model.Entity) *Report {
	report := &Report{EntitiesChecked: len(entities)}
	for _, t := range s.Tables {
		if !e.policy.skipTable(t.Name) {
			report.TablesChecked++
		}
	}

	for _, ent := range entities {
		if s.FindTable(ent.Table) == nil && !e.policy.skipTable(ent.Table) {
			e.logger.DebugContext(ctx, "skipping entity without table", "entity", ent.Name, "table", ent.Table)
			report.SkippedEntities = append(report.SkippedEntities, ent.Name)
		}
	}
	slices.Sort(report.SkippedEntities)

	for _, check := range e.checks {
		for _, m := range check(s, entities, e.policy) {
			if len(e.only) > 0 && !slices.Contains(e.only, m.Category) {
				continue
			}
			report.Mismatches = append(report.Mismatches, m)
		}
	}
	slices.SortStableFunc(report.Mismatches, compareMismatches)

	e.logger.DebugContext(ctx, "consistency checks finished",
		"tables", report.TablesChecked,
		"entities", report.EntitiesChecked,
		"mismatches", len(report.Mismatches))
	return report
}
