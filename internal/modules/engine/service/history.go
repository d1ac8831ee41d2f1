package service

import (
	"context"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

// historyCap — ёмкость пер-символьной истории: max(50, 2 * lookback).
func (e *Engine) historyCap() int {
	capN := 2 * e.cfg.Strategy.LookbackPeriod
	if capN < 50 {
		capN = 50
	}
	return capN
}

// RefreshHistory — догрузка закрытых свечей с биржи. Свечи старше
// последней известной отбрасываются, переполнение вытесняет хвост (FIFO).
func (e *Engine) RefreshHistory(ctx context.Context, symbol string) error {
	capN := e.historyCap()
	candles, err := e.ex.GetCandles(ctx, symbol, e.cfg.Timeframe, capN)
	if err != nil {
		logger.Error("[HISTORY] %s: %v", symbol, err)
		return err
	}
	if len(candles) == 0 {
		logger.Debug("[HISTORY] %s: пустой ответ", symbol)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state(symbol)
	st.history = mergeCandles(st.history, candles, capN)
	return nil
}

func mergeCandles(history, fresh []models.Candle, capN int) []models.Candle {
	for _, c := range fresh {
		if n := len(history); n > 0 && !c.Ts.After(history[n-1].Ts) {
			continue // дубль или свеча из прошлого
		}
		history = append(history, c)
	}
	if over := len(history) - capN; over > 0 {
		history = append(history[:0:0], history[over:]...)
	}
	return history
}

// HistoryLen — для диагностики и health.
func (e *Engine) HistoryLen(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[symbol]; ok {
		return len(st.history)
	}
	return 0
}
