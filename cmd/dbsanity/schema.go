package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tordrt/dbsanity"
)

func newSchemaCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema snapshot as the checks see it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if a.cfg.Database.URL == "" {
				return fmt.Errorf("a database URL is required (--db-url or database.url)")
			}

			opts, err := a.options()
			if err != nil {
				return err
			}

			s, extractErr := dbsanity.ExtractSnapshot(ctx, a.cfg.Database.URL, opts)
			if s == nil {
				return extractErr
			}

			w, closeOutput, err := a.outputWriter(output)
			if err != nil {
				return err
			}
			defer closeOutput()

			if err := dbsanity.FormatSnapshot(s, w); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return extractErr
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
