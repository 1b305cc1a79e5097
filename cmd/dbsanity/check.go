package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/dbsanity"
	"github.com/tordrt/dbsanity/internal/check"
	"github.com/tordrt/dbsanity/internal/formatter"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		format    string
		output    string
		outputDir string
		only      []string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the schema with the declared validations",
		Long: `check extracts the schema, loads the entity declarations and reports every
mismatch. It prints nothing and exits 0 when the schema is consistent, exits 1
when mismatches are found and exits 2 on connection, parse or config errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if a.cfg.Database.URL == "" {
				return fmt.Errorf("a database URL is required (--db-url or database.url)")
			}
			if a.cfg.Models.File == "" {
				return fmt.Errorf("a declaration file is required (--models or models.file)")
			}
			if outputDir != "" && output != "" {
				return fmt.Errorf("cannot use both --output-dir and --output flags")
			}

			opts, err := a.options()
			if err != nil {
				return err
			}
			if len(only) > 0 {
				opts.Only, err = check.ParseCategories(parseTableList(only))
				if err != nil {
					return fmt.Errorf("invalid --only: %w", err)
				}
			}

			report, auditErr := dbsanity.Audit(ctx, a.cfg.Database.URL, dbsanity.FileSource(a.cfg.Models.File), opts)
			if report == nil {
				return auditErr
			}

			w, closeOutput, err := a.outputWriter(output)
			if err != nil {
				return err
			}
			defer closeOutput()

			outOpts := &dbsanity.OutputOptions{Writer: w, OutputDir: outputDir, Format: format}
			if err := dbsanity.FormatReport(report, outOpts); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}

			a.logger.Debug("check finished",
				"tables", report.TablesChecked,
				"entities", report.EntitiesChecked,
				"mismatches", len(report.Mismatches))

			if auditErr != nil {
				return auditErr
			}
			return report.Err()
		},
	}

	flags := cmd.Flags()
	flags.String("models", "", "YAML declaration file of entities and validations")
	flags.StringVarP(&format, "format", "f", "text", "Output format: "+strings.Join(formatter.Formats, ", "))
	flags.StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	flags.StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	flags.StringSliceVar(&only, "only", nil, "Report only these categories (comma-separated)")
	bindFlag(a.v, "models.file", flags.Lookup("models"))

	return cmd
}
