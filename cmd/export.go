package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okfde/froide-legalaction/internal/export"
	"github.com/okfde/froide-legalaction/internal/store"
)

var (
	exportIncomplete bool
	exportQuery      string
)

var exportCmd = &cobra.Command{
	Use:   "export <path.xlsx>",
	Short: "Export decisions to an XLSX workbook",
	Long: `Export decisions to an XLSX workbook for editorial review.

With --incomplete only decisions missing publication-relevant fields are
exported, each row listing what is missing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		n, err := export.WriteXLSX(ctx, s, store.DecisionFilter{
			Incomplete: exportIncomplete,
			Query:      exportQuery,
		}, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d decisions to %s\n", n, args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportIncomplete, "incomplete", false, "export only incomplete decisions")
	exportCmd.Flags().StringVar(&exportQuery, "query", "", "full-text filter")
	rootCmd.AddCommand(exportCmd)
}
