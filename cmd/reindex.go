package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okfde/froide-legalaction/internal/importer"
)

var reindexConcurrency int

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search text of all decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		n, err := importer.Reindex(ctx, s, reindexConcurrency)
		if err != nil {
			return err
		}

		fmt.Printf("Reindexed %d decisions\n", n)
		return nil
	},
}

func init() {
	reindexCmd.Flags().IntVar(&reindexConcurrency, "concurrency", 4, "parallel updates")
	rootCmd.AddCommand(reindexCmd)
}
