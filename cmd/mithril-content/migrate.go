package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-content/internal/config"
	"github.com/GyroZepelix/mithril-content/internal/database"
)

var migrateDown int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("MITHRIL_DATABASE_URL is required")
		}

		if migrateDown > 0 {
			if err := database.RollbackMigrations(cfg.DatabaseURL, migrateDown); err != nil {
				return err
			}
		} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}

		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		fmt.Printf("Migration version: %d\n", version)
		if dirty {
			fmt.Println("Warning: database is dirty, a migration failed part way")
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "roll back N migrations instead of applying")
}
