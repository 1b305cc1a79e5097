package check

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbsanity/internal/model"
	"github.com/tordrt/dbsanity/internal/schema"
)

func fixtureSchema() *schema.Schema {
	emailIdx := uniqueIndex("users", "index_users_on_email_and_deleted_at", "email", "deleted_at")
	return &schema.Schema{Tables: []schema.Table{
		{
			Name: "users",
			Columns: []schema.Column{
				withDefault(col("id", schema.KindInteger, false)),
				col("name", schema.KindString, false),
				col("email", schema.KindString, false),
				col("active", schema.KindBoolean, false),
				col("deleted_at", schema.KindTime, true),
			},
			Indexes: []schema.Index{primaryIndex("users"), emailIdx},
		},
		{
			Name: "accounts",
			Columns: []schema.Column{
				withDefault(col("id", schema.KindInteger, false)),
				col("slug", schema.KindString, false),
			},
			Indexes: []schema.Index{primaryIndex("accounts"), upperIndex("accounts", "index_accounts_on_slug", "slug")},
		},
		{
			Name:    "schema_migrations",
			Columns: []schema.Column{col("version", schema.KindString, false)},
			Indexes: []schema.Index{uniqueIndex("schema_migrations", "unique_schema_migrations", "version")},
		},
	}}
}

func TestEngineRun(t *testing.T) {
	entities := []model.Entity{
		{Name: "User", Table: "users", Rules: []model.Rule{model.Presence("email")}},
		{Name: "Account", Table: "accounts", Rules: []model.Rule{model.Presence("slug"), model.Uniqueness("slug")}},
		{Name: "Ghost", Table: "ghosts"},
	}

	report := NewEngine(DefaultPolicy()).Run(context.Background(), fixtureSchema(), entities)

	var lines []string
	for _, m := range report.Mismatches {
		lines = append(lines, string(m.Category)+" "+m.String())
	}
	assert.Equal(t, []string{
		"deleted_at_in_unique_index users (User): index_users_on_email_and_deleted_at: unique index on (email, deleted_at) includes deleted_at",
		"unfiltered_soft_delete_index users (User): index_users_on_email_and_deleted_at: unique index has no predicate; expected WHERE deleted_at IS NULL",
		"missing_presence users (User): name: NOT NULL column without default has no presence validation",
		"missing_boolean_inclusion users (User): active: NOT NULL boolean column has no inclusion validation in [true, false]",
		"missing_uniqueness accounts (Account): index_accounts_on_slug: uniqueness validation on (slug) must declare case_sensitive: false to match the case-insensitive index",
		"missing_uniqueness users (User): index_users_on_email_and_deleted_at: no uniqueness validation covering (email)",
	}, lines)

	assert.Equal(t, 2, report.TablesChecked)
	assert.Equal(t, 3, report.EntitiesChecked)
	assert.Equal(t, []string{"Ghost"}, report.SkippedEntities)
	assert.False(t, report.Empty())
	assert.True(t, errors.Is(report.Err(), ErrFindings))
}

func TestEngineRunIsIdempotent(t *testing.T) {
	s := fixtureSchema()
	entities := []model.Entity{{Name: "User", Table: "users"}, {Name: "Account", Table: "accounts"}}
	engine := NewEngine(DefaultPolicy())

	first := engine.Run(context.Background(), s, entities)
	second := engine.Run(context.Background(), s, entities)

	assert.Equal(t, first, second)
}

func TestEngineRunClean(t *testing.T) {
	s := softDeleteUsers(schema.Index{
		Table:     "users",
		Name:      "index_users_on_email",
		IsUnique:  true,
		Parts:     []schema.IndexPart{{Column: "email"}},
		Predicate: "deleted_at IS NULL",
	})
	entities := []model.Entity{{Name: "User", Table: "users", Rules: []model.Rule{model.Uniqueness("email")}}}

	report := NewEngine(DefaultPolicy()).Run(context.Background(), s, entities)

	assert.True(t, report.Empty())
	assert.NoError(t, report.Err())
}

func TestEngineOnly(t *testing.T) {
	report := NewEngine(DefaultPolicy()).
		Only(CategoryMissingPresence, CategoryMissingBooleanInclusion).
		Run(context.Background(), fixtureSchema(), []model.Entity{{Name: "User", Table: "users"}})

	require.NotEmpty(t, report.Mismatches)
	for _, m := range report.Mismatches {
		assert.Contains(t, []Category{CategoryMissingPresence, CategoryMissingBooleanInclusion}, m.Category)
	}
}

func TestEngineLogsSkippedEntities(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewEngine(DefaultPolicy()).WithLogger(logger).
		Run(context.Background(), fixtureSchema(), []model.Entity{{Name: "Ghost", Table: "ghosts"}})

	assert.Contains(t, buf.String(), "skipping entity without table")
	assert.Contains(t, buf.String(), "entity=Ghost")
}

func TestReportGrouping(t *testing.T) {
	report := NewEngine(DefaultPolicy()).Run(context.Background(), fixtureSchema(), []model.Entity{
		{Name: "User", Table: "users"},
		{Name: "Account", Table: "accounts"},
	})

	byCategory := report.ByCategory()
	require.NotEmpty(t, byCategory)
	assert.Equal(t, string(CategoryDeletedAtInUniqueIndex), byCategory[0].Key)

	byTable := report.ByTable()
	require.Len(t, byTable, 2)
	assert.Equal(t, "accounts", byTable[0].Key)
	assert.Equal(t, "users", byTable[1].Key)
}

func TestParseCategories(t *testing.T) {
	got, err := ParseCategories([]string{"missing_presence", " missing_uniqueness"})
	require.NoError(t, err)
	assert.Equal(t, []Category{CategoryMissingPresence, CategoryMissingUniqueness}, got)

	_, err = ParseCategories([]string{"bogus"})
	assert.ErrorContains(t, err, `unknown category "bogus"`)
}

func TestPolicyWithDefaults(t *testing.T) {
	p := Policy{SoftDeleteColumn: "archived_at", TimestampColumns: []string{}}.withDefaults()

	assert.Equal(t, "archived_at", p.SoftDeleteColumn)
	assert.Equal(t, "id", p.PrimaryKeyColumn)
	assert.Empty(t, p.TimestampColumns)
	assert.NotNil(t, p.TimestampColumns)
	assert.Equal(t, []schema.Kind{schema.KindBoolean, schema.KindJSON}, p.ExemptKinds)
	assert.Equal(t, DefaultPolicy().SkipTables, p.SkipTables)
}
