package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kucukaslan/activity/logging"
	"kucukaslan/activity/services"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete activities older than the retention horizon",
	Long: `Delete activities older than --days (default: tracking.retention_days).
Meant for cron; running it twice deletes nothing the second time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		retention, err := services.NewRetentionService(store, cfg.Tracking.RetentionDays)
		if err != nil {
			return err
		}
		deleted, err := retention.Cleanup(ctx, cleanupDays)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}

		logging.Info().Int64("deleted", deleted).Int("days", cleanupDays).Msg("Retention cleanup finished")
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d activities\n", deleted)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "delete activities older than this many days (0 uses the configured retention)")
	rootCmd.AddCommand(cleanupCmd)
}
