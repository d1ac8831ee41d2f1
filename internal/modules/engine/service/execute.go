package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

// ExecuteSignal — размещение лимитного ордера по сигналу и регистрация
// активной позиции. Если биржа уже держит позицию по символу (рестарт,
// ручной вход) — принимаем её под трекинг без ордера.
func (e *Engine) ExecuteSignal(ctx context.Context, sig models.Signal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state(sig.Symbol)
	e.clearExpiredCooldown(st)
	switch st.phase {
	case phasePositionOpen:
		logger.Debug("[EXEC] %s: уже POSITION_OPEN, пропуск", sig.Symbol)
		return nil
	case phaseCooldown:
		logger.Debug("[EXEC] %s: кулдаун, пропуск", sig.Symbol)
		return nil
	}

	// сверка с биржей: позиция могла остаться с прошлого запуска
	positions, err := e.ex.OpenPositions(ctx)
	if err != nil {
		e.notifier.NotifyError(ctx, "positions before execute", err)
		return err
	}
	for _, pos := range positions {
		if pos.Symbol != sig.Symbol {
			continue
		}
		logger.Info("[EXEC] %s: позиция уже на бирже, принимаем без ордера", sig.Symbol)
		e.adoptLocked(st, pos)
		return nil
	}

	tick := e.presets.TickSize(sig.Symbol)
	if sig.Side == models.SideLong {
		sig.Entry = helper.RoundToTick(sig.Entry, tick)
		sig.StopLoss = helper.RoundToTick(sig.StopLoss, tick)
		sig.TakeProfit = helper.RoundToTick(sig.TakeProfit, tick)
	} else {
		sig.Entry = helper.RoundUpToTick(sig.Entry, tick)
		sig.StopLoss = helper.RoundUpToTick(sig.StopLoss, tick)
		sig.TakeProfit = helper.RoundUpToTick(sig.TakeProfit, tick)
	}
	if !sig.Entry.IsPositive() {
		return errors.Errorf("%s: entry %s после округления", sig.Symbol, sig.Entry)
	}

	qty := decimal.NewFromFloat(e.cfg.Strategy.PositionSizeUSD).Div(sig.Entry).Round(6)
	if !qty.IsPositive() {
		return errors.Errorf("%s: нулевой размер позиции при entry %s", sig.Symbol, sig.Entry)
	}

	res, err := e.ex.PlaceOrder(ctx, models.OrderRequest{
		Symbol: sig.Symbol,
		Side:   sig.Side,
		Price:  sig.Entry,
		Qty:    qty,
	})
	if err != nil {
		// состояние не трогаем: на следующем тике будет новая попытка
		e.notifier.NotifyError(ctx, "place order "+sig.Symbol, err)
		return err
	}

	st.phase = phasePositionOpen
	sigCopy := sig
	st.active = &sigCopy
	st.trail = &models.TrailState{
		Symbol:   sig.Symbol,
		Side:     sig.Side,
		Extremum: sig.Entry,
		Stop:     sig.StopLoss,
		StopPct:  e.presets.StopPct(sig.Symbol),
	}

	logger.Info("[EXEC] %s %s qty=%s @ %s sl=%s ordId=%s",
		sig.Symbol, sig.Side, qty, sig.Entry, sig.StopLoss, res.OrderID)
	e.notifier.PositionOpened(ctx, sig, qty, res.OrderID)
	if e.journal != nil {
		e.journal.SignalExecuted(ctx, sig, qty, res.OrderID)
	}
	return nil
}

// adoptLocked — осиротевшая или чужая позиция становится активной без
// ордера: трекер от entry, плейсхолдер-сигнал, чтобы тейк работал единообразно.
func (e *Engine) adoptLocked(st *symbolState, pos models.OpenPosition) {
	stopPct := e.presets.StopPct(pos.Symbol)
	st.phase = phasePositionOpen
	st.trail = models.NewTrailState(pos.Symbol, pos.Side, pos.Entry, stopPct)
	if st.active == nil {
		st.active = &models.Signal{
			Symbol:     pos.Symbol,
			Side:       pos.Side,
			Entry:      pos.Entry,
			StopLoss:   st.trail.Stop,
			TakeProfit: e.takeProfitFor(pos.Side, pos.Entry),
			Strategy:   models.StrategyBreakout,
			Reason:     "восстановлено из позиции на бирже",
			CreatedAt:  e.now(),
		}
	}
}
