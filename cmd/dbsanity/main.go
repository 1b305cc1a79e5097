package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tordrt/dbsanity"
	"github.com/tordrt/dbsanity/internal/config"
	"github.com/tordrt/dbsanity/internal/logging"
)

// Exit codes
const (
	exitClean    = 0
	exitFindings = 1
	exitError    = 2
)

// app carries the state shared by the commands of one invocation
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.New(), stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "dbsanity",
		Short: "Audit a database schema against declared model validations",
		Long: `dbsanity checks that unique indexes never include the soft-delete column,
that unique indexes on soft-delete tables filter deleted rows, and that every
NOT NULL and UNIQUE constraint has a matching validation. It reads PostgreSQL,
MySQL, SQLite or SQL Server catalogs and compares them with a YAML declaration
of the application's entities.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default: ./dbsanity.yaml)")
	flags.String("db-url", "", "Database URL (postgres://, mysql://, sqlite:// or sqlserver://)")
	flags.StringP("schema", "s", "", "Database schema name (default: public, dbo, or the MySQL database)")
	flags.StringSliceP("tables", "t", nil, "Specific tables (comma-separated, optional)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")

	bindFlag(a.v, "database.url", flags.Lookup("db-url"))
	bindFlag(a.v, "database.schema", flags.Lookup("schema"))
	bindFlag(a.v, "database.tables", flags.Lookup("tables"))
	bindFlag(a.v, "log.level", flags.Lookup("log-level"))
	bindFlag(a.v, "log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(newCheckCmd(a), newSchemaCmd(a))
	return rootCmd
}

// load reads the config file, decodes the configuration and builds the logger
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	logger, err := logging.New(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// options builds the library options from the loaded configuration
func (a *app) options() (*dbsanity.Options, error) {
	policy, err := a.cfg.Policy.CheckPolicy()
	if err != nil {
		return nil, err
	}
	return &dbsanity.Options{
		Tables:               parseTableList(a.cfg.Database.Tables),
		SchemaName:           a.cfg.Database.Schema,
		Policy:               &policy,
		CaseFoldingFunctions: a.cfg.Policy.CaseFolding(),
		Logger:               a.logger,
	}, nil
}

// outputWriter returns stdout or the created output file with its closer
func (a *app) outputWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		return a.stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			a.logger.Warn("failed to close output file", "error", err)
		}
	}, nil
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag.Name, err))
	}
}

// parseTableList trims names and drops empty entries
func parseTableList(tables []string) []string {
	var out []string
	for _, t := range tables {
		for _, name := range strings.Split(t, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitClean
	case errors.Is(err, dbsanity.ErrFindings):
		return exitFindings
	default:
		return exitError
	}
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, dbsanity.ErrFindings) {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
