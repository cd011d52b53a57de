package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heritagepubs/pubsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pubsync",
	Short: "Heritage pub catalog reconciliation",
	Long:  "Reconciles scraped heritage-pub batches against the persistent catalog: matches records to existing entries, applies only changed fields, and logs tier and open/closed transitions.",
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
