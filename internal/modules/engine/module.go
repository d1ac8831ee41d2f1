package engine

import (
	"go.uber.org/fx"

	"breakout_bot/internal/modules/config"
	"breakout_bot/internal/modules/engine/service"
	exsvc "breakout_bot/internal/modules/exchange/service"
	jsvc "breakout_bot/internal/modules/journal/service"
	"breakout_bot/internal/notify"
	"breakout_bot/internal/risk"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			func(cfg *config.Config, presets *config.SymbolPresets, client *exsvc.Client, n notify.Notifier, j *jsvc.Journal, gate *risk.Gate) *service.Engine {
				return service.NewEngine(cfg, presets, client, n, j, gate)
			},
		),
	)
}
