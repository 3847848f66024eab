package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/beverage-pos/pkg/config"
	"github.com/angelmondragon/beverage-pos/pkg/db"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
)

// MaybeRunDev applies the embedded journal migrations at startup in dev when
// BEVPOS_AUTO_MIGRATE is on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"dialect": Dialect(cfg.DB.Driver), "source": "embedded"})
	if err := Run(ctx, sqlDB, Dialect(cfg.DB.Driver), "", "up"); err != nil {
		return fmt.Errorf("journal migrations: %w", err)
	}
	logg.Info(ctx, "journal.migrations_applied")
	return nil
}
