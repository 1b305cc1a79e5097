package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbsanity/internal/check"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Database.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"lower", "upper"}, cfg.Policy.CaseFoldingFunctions)

	p, err := cfg.Policy.CheckPolicy()
	require.NoError(t, err)
	assert.Equal(t, check.DefaultPolicy(), p)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbsanity.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: sqlite://app.db
  tables: [users, accounts]
models:
  file: models.yaml
policy:
  soft_delete_column: archived_at
  timestamp_columns: []
  exempt_kinds: [json]
  case_folding_functions: []
log:
  level: debug
`), 0o600))

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "sqlite://app.db", cfg.Database.URL)
	assert.Equal(t, []string{"users", "accounts"}, cfg.Database.Tables)
	assert.Equal(t, "models.yaml", cfg.Models.File)
	assert.Equal(t, "debug", cfg.Log.Level)

	p, err := cfg.Policy.CheckPolicy()
	require.NoError(t, err)
	assert.Equal(t, "archived_at", p.SoftDeleteColumn)
	assert.Empty(t, p.TimestampColumns)
	assert.NotNil(t, p.TimestampColumns)
	assert.Equal(t, "id", p.PrimaryKeyColumn)
	assert.Len(t, p.ExemptKinds, 1)

	assert.Empty(t, cfg.Policy.CaseFolding())
	assert.NotNil(t, cfg.Policy.CaseFolding(), "an emptied list must not fall back to lower/upper")
}

func TestReadFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	assert.NoError(t, ReadFile(New(), ""), "no default config file is fine")
	assert.Error(t, ReadFile(New(), "does-not-exist.yaml"))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbsanity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  url: sqlite://file.db\n"), 0o600))
	t.Setenv("DBSANITY_DATABASE_URL", "postgres://env/db")
	t.Setenv("DBSANITY_POLICY_SKIP_TABLES", "audits,versions")

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, []string{"audits", "versions"}, cfg.Policy.SkipTables)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{"unknown kind", "policy.exempt_kinds", []string{"blob"}, "unknown column kind: blob"},
		{"empty soft delete column", "policy.soft_delete_column", "", "soft_delete_column"},
		{"bad log level", "log.level", "loud", "log.level"},
		{"bad log format", "log.format", "xml", "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
