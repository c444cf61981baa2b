package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"jot/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if cfg.DBDriver == "memory" {
			fatal("Nothing to migrate", fmt.Errorf("JOT_DB_DRIVER is memory"))
		}
		if err := cfg.Validate(); err != nil {
			fatal("Invalid configuration", err)
		}

		conn, err := db.Connect(context.Background(), cfg.DBDriver, cfg.DSN, 1, 1)
		if err != nil {
			fatal("Failed to connect", err)
		}
		defer conn.Close()

		if err := db.Migrate(conn, cfg.DBDriver); err != nil {
			fatal("Migration failed", err)
		}
		slog.Info("migrations applied", "driver", cfg.DBDriver)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
