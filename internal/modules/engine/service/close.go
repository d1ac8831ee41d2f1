package service

import (
	"context"
	"time"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

// ClosePosition — идемпотентное закрытие по символу: повторный вызов
// внутри close_grace — no-op, живой позиции нет — no-op.
func (e *Engine) ClosePosition(ctx context.Context, symbol, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state(symbol)
	if e.inCloseGrace(st) {
		logger.Debug("[CLOSE] %s: недавно закрыт, пропуск (%s)", symbol, reason)
		return nil
	}

	positions, err := e.ex.OpenPositions(ctx)
	if err != nil {
		e.notifier.NotifyError(ctx, "positions for close "+symbol, err)
		return err
	}
	for _, pos := range positions {
		if pos.Symbol == symbol {
			return e.closeLocked(ctx, pos, reason)
		}
	}
	logger.Debug("[CLOSE] %s: живой позиции нет, no-op", symbol)
	return nil
}

// closeLocked — reduce-only ордер по округлённой марк-цене.
// Кулдаун стартует только по трейлинг-стопу.
func (e *Engine) closeLocked(ctx context.Context, pos models.OpenPosition, reason string) error {
	st := e.state(pos.Symbol)
	if e.inCloseGrace(st) {
		return nil
	}

	tick := e.presets.TickSize(pos.Symbol)
	px := helper.RoundToTick(pos.MarkPx, tick) // long закрываем продажей, округление вниз
	if pos.Side == models.SideShort {
		px = helper.RoundUpToTick(pos.MarkPx, tick)
	}

	_, err := e.ex.PlaceOrder(ctx, models.OrderRequest{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Price:      px,
		Qty:        pos.Size,
		ReduceOnly: true,
	})
	if err != nil {
		// состояние не трогаем: позиция остаётся под трекингом до следующего тика
		e.notifier.NotifyError(ctx, "close "+pos.Symbol, err)
		return err
	}

	now := e.now()
	st.closedAt = now
	st.active = nil
	st.trail = nil
	if reason == ReasonTrailingStop {
		st.phase = phaseCooldown
		st.cooldownUntil = now.Add(e.cfg.Strategy.CooldownWindow.Std())
		logger.Info("[CLOSE] %s: стоп-лосс, кулдаун до %s", pos.Symbol, st.cooldownUntil.Format(time.RFC3339))
	} else {
		st.phase = phaseIdle
		logger.Info("[CLOSE] %s: %s", pos.Symbol, reason)
	}

	if e.pnl != nil {
		e.pnl.RecordPnl(pos.Upl)
	}
	e.notifier.PositionClosed(ctx, pos.Symbol, pos.Side, reason, pos.Upl)
	if e.journal != nil {
		e.journal.PositionClosed(ctx, pos.Symbol, pos.Side, reason, pos.Upl)
	}
	return nil
}
