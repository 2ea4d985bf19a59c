package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kucukaslan/activity/database"
	"kucukaslan/activity/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the activities table",
	Long:  `Create the ClickHouse activities table if it does not exist and apply the expiry TTL when enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreDriver != "clickhouse" {
			return fmt.Errorf("migrate needs store_driver clickhouse, got %q", cfg.StoreDriver)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		// ConnectClickHouse creates the table as part of connecting
		store, err := database.ConnectClickHouse(ctx, &cfg.ClickHouse)
		if err != nil {
			return err
		}
		defer store.Close()

		logging.Info().Str("database", cfg.ClickHouse.Database).Bool("ttl", cfg.ClickHouse.TableTTL).Msg("Activities table is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
