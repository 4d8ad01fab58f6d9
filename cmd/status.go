package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show decision database counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		total, err := s.CountDecisions(ctx)
		if err != nil {
			return err
		}
		incomplete, err := s.CountIncomplete(ctx)
		if err != nil {
			return err
		}

		byLoader, err := s.CountByLoader(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Decisions:  %d\n", total)
		fmt.Printf("Incomplete: %d\n", incomplete)

		names := make([]string, 0, len(byLoader))
		for name := range byLoader {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			label := name
			if label == "" {
				label = "(manual)"
			}
			fmt.Printf("  %-12s %d\n", label, byLoader[name])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
