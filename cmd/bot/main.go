package main

import (
	"context"
	"log"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"

	"breakout_bot/internal/modules/config"
	"breakout_bot/internal/modules/engine"
	"breakout_bot/internal/modules/exchange"
	exsvc "breakout_bot/internal/modules/exchange/service"
	"breakout_bot/internal/modules/health"
	"breakout_bot/internal/modules/journal"
	"breakout_bot/internal/notify"
	"breakout_bot/internal/runner"
	"breakout_bot/pkg/logger"
	"breakout_bot/pkg/tracing"
)

const serviceName = "breakout-bot"

func main() {
	logger.SetServiceName(serviceName)
	if err := logger.Init(); err != nil {
		log.Fatalf("logger init: %v", err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			func(lc fx.Lifecycle, cfg *config.Config) (opentracing.Tracer, error) {
				tracer, closeFn, err := tracing.InitTracer(serviceName, tracing.Config{
					Host: cfg.Jaeger.Host,
					Port: cfg.Jaeger.Port,
				})
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{OnStop: func(context.Context) error {
					closeFn()
					return nil
				}})
				return tracer, nil
			},
			// Notifier: если TELEGRAM_* нет — пишем в лог
			func(cfg *config.Config, client *exsvc.Client) notify.Notifier {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, client)
					if err == nil {
						return tg
					}
					logger.Error("telegram init: %v, переключаюсь на stdout", err)
				}
				return notify.NewStdout()
			},
		),
		config.Module(),
		exchange.Module(),
		journal.Module(),
		engine.Module(),
		health.Module(),
		runner.Module(),
		fx.Invoke(func(lc fx.Lifecycle, ctx context.Context, n notify.Notifier) {
			tg, ok := n.(*notify.Telegram)
			if !ok {
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					return tg.Start(ctx)
				},
			})
		}),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
}
