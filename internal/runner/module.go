package runner

import (
	"context"

	"go.uber.org/fx"

	"breakout_bot/internal/risk"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			risk.NewGate,
			New,
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			var cancel context.CancelFunc
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					ctx, c := context.WithCancel(context.Background())
					cancel = c
					go r.Start(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
