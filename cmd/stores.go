package cmd

import (
	"context"
	"fmt"

	"kucukaslan/activity/config"
	"kucukaslan/activity/database"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
)

func openStore(ctx context.Context, cfg *config.Config) (domain.ActivityStore, error) {
	switch cfg.StoreDriver {
	case "memory":
		logging.Warn().Msg("Using the in-memory activity store; events are lost on restart")
		return database.NewMemoryStore(), nil
	default:
		store, err := database.ConnectClickHouse(ctx, &cfg.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
		}
		return store, nil
	}
}
