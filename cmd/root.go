package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/okfde/froide-legalaction/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "legalaction",
	Short: "Court decision import and identifier toolkit",
	Long:  "Imports German court decisions from public sources, deduplicates them via ECLI-derived identifiers and serves the resulting decision database.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
