package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbsanity"
	"github.com/tordrt/dbsanity/internal/db"
)

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, nil},
		{"trimmed", []string{" users ", "accounts"}, []string{"users", "accounts"}},
		{"comma inside entry", []string{"users,accounts"}, []string{"users", "accounts"}},
		{"empty entries", []string{"", " ", "users"}, []string{"users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTableList(tt.input))
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitClean, exitCode(nil))
	assert.Equal(t, exitFindings, exitCode(fmt.Errorf("%w: 3 mismatches", dbsanity.ErrFindings)))
	assert.Equal(t, exitError, exitCode(errors.New("boom")))
	assert.Equal(t, exitError, exitCode(&dbsanity.ConnectionError{Driver: "postgres", Err: errors.New("refused")}))
}

const fixtureDDL = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT 1,
	deleted_at DATETIME
);
CREATE UNIQUE INDEX index_users_on_email ON users (lower(email)) WHERE deleted_at IS NULL;
CREATE TABLE schema_migrations (version TEXT NOT NULL PRIMARY KEY);
`

const consistentModels = `
entities:
  - name: User
    table: users
    validations:
      - presence: [name, email]
      - uniqueness: [email]
        case_sensitive: false
      - inclusion: [active]
        in: [true, false]
`

const incompleteModels = `
entities:
  - name: User
    table: users
    validations:
      - presence: [email]
      - uniqueness: [email]
`

// fixture creates a SQLite database and a declaration file in a temp dir
func fixture(t *testing.T, models string) (dbURL, modelsPath string) {
	t.Helper()
	return fixtureWithDDL(t, fixtureDDL, models)
}

func fixtureWithDDL(t *testing.T, ddl, models string) (dbURL, modelsPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")

	client, err := db.NewSQLiteClient(context.Background(), dbPath)
	require.NoError(t, err)
	_, err = client.GetDB().Exec(ddl)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	modelsPath = filepath.Join(dir, "models.yaml")
	require.NoError(t, os.WriteFile(modelsPath, []byte(models), 0o600))
	return "sqlite://" + dbPath, modelsPath
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCheckClean(t *testing.T) {
	dbURL, models := fixture(t, consistentModels)

	code, stdout, stderr := run(t, "check", "--db-url", dbURL, "--models", models)

	assert.Equal(t, exitClean, code, stderr)
	assert.Empty(t, stdout, "a clean check prints nothing")
	assert.Empty(t, stderr)
}

func TestCheckFindings(t *testing.T) {
	dbURL, models := fixture(t, incompleteModels)

	code, stdout, _ := run(t, "check", "--db-url", dbURL, "--models", models)

	assert.Equal(t, exitFindings, code)
	assert.Contains(t, stdout, "users (User): name: NOT NULL column without default has no presence validation")
	assert.Contains(t, stdout, "users (User): active: NOT NULL boolean column has no inclusion validation in [true, false]")
	assert.Contains(t, stdout, "users (User): index_users_on_email: uniqueness validation on (email) must declare case_sensitive: false")
	assert.NotContains(t, stdout, "schema_migrations")
}

func TestCheckNocaseCollation(t *testing.T) {
	ddl := `
CREATE TABLE accounts (
	id INTEGER PRIMARY KEY,
	slug TEXT NOT NULL
);
CREATE UNIQUE INDEX index_accounts_on_slug ON accounts (slug COLLATE NOCASE);
`
	models := `
entities:
  - name: Account
    validations:
      - presence: [slug]
      - uniqueness: [slug]
`
	dbURL, modelsPath := fixtureWithDDL(t, ddl, models)

	code, stdout, _ := run(t, "check", "--db-url", dbURL, "--models", modelsPath)

	assert.Equal(t, exitFindings, code)
	assert.Contains(t, stdout, "accounts (Account): index_accounts_on_slug: uniqueness validation on (slug) must declare case_sensitive: false")
}

func TestCheckIncompleteSnapshot(t *testing.T) {
	ddl := fixtureDDL + `
CREATE UNIQUE INDEX index_users_on_name_prefix ON users (substr(name, 1, 3));
`
	dbURL, models := fixtureWithDDL(t, ddl, incompleteModels)

	code, stdout, stderr := run(t, "check", "--db-url", dbURL, "--models", models)

	assert.Equal(t, exitError, code)
	assert.Contains(t, stdout, "users (User): name: NOT NULL column without default has no presence validation",
		"the report of the readable indexes is still printed")
	assert.Contains(t, stderr, "snapshot is incomplete")
	assert.Contains(t, stderr, "cannot normalize index index_users_on_name_prefix on users")
	assert.Equal(t, 1, strings.Count(stderr, "snapshot is incomplete"))
}

func TestCheckOnlyAndJSON(t *testing.T) {
	dbURL, models := fixture(t, incompleteModels)

	code, stdout, _ := run(t, "check", "--db-url", dbURL, "--models", models,
		"--only", "missing_presence", "--format", "json")

	assert.Equal(t, exitFindings, code)
	assert.Contains(t, stdout, `"category": "missing_presence"`)
	assert.NotContains(t, stdout, "missing_uniqueness")
}

func TestCheckOutputDir(t *testing.T) {
	dbURL, models := fixture(t, incompleteModels)
	outDir := filepath.Join(t.TempDir(), "report")

	code, stdout, _ := run(t, "check", "--db-url", dbURL, "--models", models,
		"--output-dir", outDir, "--format", "markdown")

	assert.Equal(t, exitFindings, code)
	assert.Empty(t, stdout)
	assert.FileExists(t, filepath.Join(outDir, "_summary.md"))
	assert.FileExists(t, filepath.Join(outDir, "users.md"))
}

func TestCheckConfigFileAndEnv(t *testing.T) {
	dbURL, models := fixture(t, consistentModels)
	cfgPath := filepath.Join(t.TempDir(), "dbsanity.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("models:\n  file: "+models+"\n"), 0o600))
	t.Setenv("DBSANITY_DATABASE_URL", dbURL)

	code, _, stderr := run(t, "check", "--config", cfgPath)

	assert.Equal(t, exitClean, code, stderr)
}

func TestCheckErrors(t *testing.T) {
	dbURL, models := fixture(t, consistentModels)
	missingDB := "sqlite://" + filepath.Join(t.TempDir(), "missing.db")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no database url", []string{"check", "--models", models}, "database URL is required"},
		{"no models", []string{"check", "--db-url", dbURL}, "declaration file is required"},
		{"unreachable database", []string{"check", "--db-url", missingDB, "--models", models}, "failed to connect to sqlite"},
		{"bad category", []string{"check", "--db-url", dbURL, "--models", models, "--only", "bogus"}, "invalid --only"},
		{"bad format", []string{"check", "--db-url", dbURL, "--models", models, "--format", "html"}, "invalid format"},
		{"both outputs", []string{"check", "--db-url", dbURL, "--models", models, "-o", "x", "-d", "y"}, "cannot use both"},
		{"bad log level", []string{"check", "--log-level", "loud"}, "log.level"},
		{"missing config file", []string{"check", "--config", "nope.yaml"}, "failed to read config file"},
		{"unknown scheme", []string{"check", "--db-url", "oracle://x", "--models", models}, "invalid database URL scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, tt.args...)
			assert.Equal(t, exitError, code)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestSchemaCommand(t *testing.T) {
	dbURL, _ := fixture(t, consistentModels)

	code, stdout, stderr := run(t, "schema", "--db-url", dbURL, "--tables", "users")

	assert.Equal(t, exitClean, code, stderr)
	assert.Contains(t, stdout, "TABLE users (PK: id)")
	assert.Contains(t, stdout, "index_users_on_email (lower(email) -> email) UNIQUE CASE-INSENSITIVE WHERE deleted_at IS NULL")
	assert.NotContains(t, stdout, "schema_migrations")
}
