// Package config loads dbsanity settings with viper.
//
// Precedence is flag > environment (DBSANITY_ prefix, dots become underscores)
// > config file (dbsanity.yaml) > defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tordrt/dbsanity/internal/check"
	"github.com/tordrt/dbsanity/internal/logging"
	"github.com/tordrt/dbsanity/internal/schema"
)

// EnvPrefix is the prefix of environment variables read by viper
const EnvPrefix = "DBSANITY"

// Config is the complete dbsanity configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Models   ModelsConfig   `mapstructure:"models"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	URL    string   `mapstructure:"url"`
	Schema string   `mapstructure:"schema"`
	Tables []string `mapstructure:"tables"`
}

type ModelsConfig struct {
	File string `mapstructure:"file"`
}

// PolicyConfig holds the marker columns and exemption sets of the checks
type PolicyConfig struct {
	SoftDeleteColumn     string   `mapstructure:"soft_delete_column"`
	PrimaryKeyColumn     string   `mapstructure:"primary_key_column"`
	TimestampColumns     []string `mapstructure:"timestamp_columns"`
	ExemptKinds          []string `mapstructure:"exempt_kinds"`
	CaseFoldingFunctions []string `mapstructure:"case_folding_functions"`
	ForeignKeySuffix     string   `mapstructure:"foreign_key_suffix"`
	SkipTables           []string `mapstructure:"skip_tables"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("database.schema", "")
	v.SetDefault("database.tables", []string{})
	v.SetDefault("models.file", "")

	v.SetDefault("policy.soft_delete_column", "deleted_at")
	v.SetDefault("policy.primary_key_column", "id")
	v.SetDefault("policy.timestamp_columns", []string{"created_at", "updated_at"})
	v.SetDefault("policy.exempt_kinds", []string{string(schema.KindBoolean), string(schema.KindJSON)})
	v.SetDefault("policy.case_folding_functions", []string{"lower", "upper"})
	v.SetDefault("policy.foreign_key_suffix", "_id")
	v.SetDefault("policy.skip_tables", []string{"schema_migrations", "ar_internal_metadata"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// ReadFile reads the config file. With an empty path, dbsanity.yaml is looked
// up in the working directory and its absence is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("dbsanity")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	if c.Policy.SoftDeleteColumn == "" {
		return fmt.Errorf("policy.soft_delete_column must not be empty")
	}
	if c.Policy.PrimaryKeyColumn == "" {
		return fmt.Errorf("policy.primary_key_column must not be empty")
	}
	if _, err := c.Policy.CheckPolicy(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// CheckPolicy converts the policy section to the engine's policy
func (p PolicyConfig) CheckPolicy() (check.Policy, error) {
	kinds := make([]schema.Kind, 0, len(p.ExemptKinds))
	for _, name := range p.ExemptKinds {
		kind, err := schema.ParseKind(name)
		if err != nil {
			return check.Policy{}, fmt.Errorf("policy.exempt_kinds: %w", err)
		}
		kinds = append(kinds, kind)
	}

	return check.Policy{
		SoftDeleteColumn: p.SoftDeleteColumn,
		PrimaryKeyColumn: p.PrimaryKeyColumn,
		TimestampColumns: nonNil(p.TimestampColumns),
		ExemptKinds:      kinds,
		ForeignKeySuffix: p.ForeignKeySuffix,
		SkipTables:       nonNil(p.SkipTables),
	}, nil
}

// CaseFolding returns the index functions that fold case, keeping an explicitly emptied list
func (p PolicyConfig) CaseFolding() []string {
	return nonNil(p.CaseFoldingFunctions)
}

// nonNil keeps an explicitly emptied list from falling back to the defaults
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
