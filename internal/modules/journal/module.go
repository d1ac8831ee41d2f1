package journal

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"breakout_bot/internal/modules/config"
	"breakout_bot/internal/modules/journal/service"
	"breakout_bot/pkg/db"
	"breakout_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (db.TxManager, error) {
				if cfg.DB == "" {
					logger.Info("[JOURNAL] db_dsn не задан, журнал выключен")
					return nil, nil
				}
				pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, fmt.Errorf("failed to create pool: %w", err)
				}
				if err := pool.Ping(ctx); err != nil {
					return nil, err
				}
				return db.NewPgTxManager(pool), nil
			},
			service.NewJournal,
		),
	)
}
