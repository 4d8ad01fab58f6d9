package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okfde/froide-legalaction/internal/importer/loader"
)

var loadersCmd = &cobra.Command{
	Use:   "loaders",
	Short: "List available source loaders",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range loader.NewRegistry().AllNames() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadersCmd)
}
