package service

import (
	"context"

	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

// UpdateTrailingStops — быстрый цикл: обход живых позиций с биржи,
// подтягивание стопов, закрытие по стопу/тейку. Отказ по одному символу
// не валит остальные.
func (e *Engine) UpdateTrailingStops(ctx context.Context) error {
	positions, err := e.ex.OpenPositions(ctx)
	if err != nil {
		e.notifier.NotifyError(ctx, "positions for trailing", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pos := range positions {
		if err := e.trailLocked(ctx, pos); err != nil {
			logger.Error("[TRAIL] %s: %v", pos.Symbol, err)
		}
	}
	return nil
}

func (e *Engine) trailLocked(ctx context.Context, pos models.OpenPosition) error {
	st := e.state(pos.Symbol)

	// свежезакрытую позицию биржа может отдавать ещё несколько секунд
	if e.inCloseGrace(st) {
		return nil
	}

	if st.trail == nil {
		logger.Info("[TRAIL] %s: осиротевшая позиция, трекер от entry %s", pos.Symbol, pos.Entry)
		e.adoptLocked(st, pos)
	}
	st.phase = phasePositionOpen

	mark := pos.MarkPx
	advanceTrail(st.trail, mark)

	if stopHit(st.trail, mark) {
		return e.closeLocked(ctx, pos, ReasonTrailingStop)
	}
	if st.active != nil && st.active.HasTakeProfit() && tpHit(st.active, mark) {
		return e.closeLocked(ctx, pos, ReasonTakeProfit)
	}
	return nil
}

// OnMark — тик марк-цены из websocket между REST-циклами. Только
// подтягивает стоп и закрывает уже отслеживаемую позицию; новых не создаёт.
func (e *Engine) OnMark(ctx context.Context, symbol string, mark decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[symbol]
	if !ok || st.phase != phasePositionOpen || st.trail == nil || e.inCloseGrace(st) {
		return
	}

	advanceTrail(st.trail, mark)

	var reason string
	switch {
	case stopHit(st.trail, mark):
		reason = ReasonTrailingStop
	case st.active != nil && st.active.HasTakeProfit() && tpHit(st.active, mark):
		reason = ReasonTakeProfit
	default:
		return
	}

	// для reduce-only нужен размер — берём живую позицию с биржи
	positions, err := e.ex.OpenPositions(ctx)
	if err != nil {
		logger.Error("[TRAIL] %s: positions: %v", symbol, err)
		return
	}
	for _, pos := range positions {
		if pos.Symbol != symbol {
			continue
		}
		if err := e.closeLocked(ctx, pos, reason); err != nil {
			logger.Error("[TRAIL] %s: close: %v", symbol, err)
		}
		return
	}
}

// advanceTrail — экстремум и стоп двигаются только в пользу позиции.
func advanceTrail(t *models.TrailState, mark decimal.Decimal) {
	switch t.Side {
	case models.SideLong:
		if mark.GreaterThan(t.Extremum) {
			t.Extremum = mark
			t.Stop = models.StopFromExtremum(t.Side, mark, t.StopPct)
		}
	case models.SideShort:
		if mark.LessThan(t.Extremum) {
			t.Extremum = mark
			t.Stop = models.StopFromExtremum(t.Side, mark, t.StopPct)
		}
	}
}

func stopHit(t *models.TrailState, mark decimal.Decimal) bool {
	if t.Side == models.SideShort {
		return mark.GreaterThanOrEqual(t.Stop)
	}
	return mark.LessThanOrEqual(t.Stop)
}

func tpHit(sig *models.Signal, mark decimal.Decimal) bool {
	if sig.Side == models.SideShort {
		return mark.LessThanOrEqual(sig.TakeProfit)
	}
	return mark.GreaterThanOrEqual(sig.TakeProfit)
}
