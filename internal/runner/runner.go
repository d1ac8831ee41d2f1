// Package runner — периодический драйвер движка: медленный цикл
// сигналов (история + генерация + исполнение), быстрый цикл трейлинга
// и поток марк-цен между ними. Отказ по одному символу не валит батч.
package runner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/modules/config"
	enginesvc "breakout_bot/internal/modules/engine/service"
	exsvc "breakout_bot/internal/modules/exchange/service"
	healthsvc "breakout_bot/internal/modules/health/service"
	"breakout_bot/internal/risk"
	"breakout_bot/pkg/logger"
)

type Runner struct {
	cfg    *config.Config
	eng    *enginesvc.Engine
	ex     *exsvc.Client
	gate   *risk.Gate
	tracer opentracing.Tracer
	health *healthsvc.State
}

func New(
	cfg *config.Config,
	eng *enginesvc.Engine,
	ex *exsvc.Client,
	gate *risk.Gate,
	tracer opentracing.Tracer,
	health *healthsvc.State,
) *Runner {
	return &Runner{
		cfg:    cfg,
		eng:    eng,
		ex:     ex,
		gate:   gate,
		tracer: tracer,
		health: health,
	}
}

func (r *Runner) Start(ctx context.Context) {
	logger.Info("[RUNNER] старт: %d символов, сигналы каждые %s, трейлинг каждые %s",
		len(r.cfg.Watchlist), r.cfg.SignalInterval, r.cfg.TrailInterval)
	go r.signalLoop(ctx)
	go r.trailLoop(ctx)
	go r.markLoop(ctx)
}

func (r *Runner) signalLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SignalInterval.Std())
	defer ticker.Stop()

	r.signalTick(ctx) // первый проход сразу, не ждём интервала
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.signalTick(ctx)
		}
	}
}

func (r *Runner) signalTick(ctx context.Context) {
	span := r.tracer.StartSpan("signal_tick")
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	for _, symbol := range r.cfg.Watchlist {
		r.processSymbol(ctx, symbol)
	}
	r.health.TouchSignalCycle()
}

// processSymbol — один символ за тик, со своей границей ошибок.
func (r *Runner) processSymbol(ctx context.Context, symbol string) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("[RUNNER] %s: panic: %v", symbol, p)
		}
	}()

	if err := r.eng.RefreshHistory(ctx, symbol); err != nil {
		logger.Error("[RUNNER] %s: история: %v", symbol, err)
		return
	}

	sig, err := r.eng.GenerateSignal(ctx, symbol)
	if err != nil {
		logger.Error("[RUNNER] %s: генерация: %v", symbol, err)
		return
	}
	if sig == nil {
		return
	}

	positions, err := r.ex.OpenPositions(ctx)
	if err != nil {
		logger.Error("[RUNNER] %s: позиции: %v", symbol, err)
		return
	}
	bal, err := r.ex.Balance(ctx)
	if err != nil {
		logger.Error("[RUNNER] %s: баланс: %v", symbol, err)
		return
	}

	margin := decimal.NewFromFloat(r.cfg.Strategy.PositionSizeUSD)
	if ok, why := r.gate.CanOpenPosition(positions, bal, margin); !ok {
		logger.Info("[RISK] %s: вход запрещён: %s", symbol, why)
		return
	}

	if err := r.eng.ExecuteSignal(ctx, *sig); err != nil {
		logger.Error("[RUNNER] %s: исполнение: %v", symbol, err)
	}
}

func (r *Runner) trailLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.TrailInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			span := r.tracer.StartSpan("trail_tick")
			if err := r.eng.UpdateTrailingStops(opentracing.ContextWithSpan(ctx, span)); err != nil {
				logger.Error("[RUNNER] трейлинг: %v", err)
			}
			span.Finish()
			r.health.TouchTrailCycle()
		}
	}
}

// markLoop — реакция на марк-цену между REST-циклами трейлинга.
func (r *Runner) markLoop(ctx context.Context) {
	ch := r.ex.StreamMarkPrices(ctx, r.cfg.Watchlist, r.health.SetWSConnected)
	for tick := range ch {
		r.eng.OnMark(ctx, tick.Symbol, tick.Price)
	}
}
