// Package service — ядро бота: генерация сигналов на пробой,
// исполнение и жизненный цикл позиции с трейлинг-стопом.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"breakout_bot/internal/indicator"
	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/config"
	"breakout_bot/internal/notify"
)

// Exchange — то, что движку нужно от биржевого клиента.
type Exchange interface {
	GetCandles(ctx context.Context, symbol, interval string, count int) ([]models.Candle, error)
	OpenPositions(ctx context.Context) ([]models.OpenPosition, error)
	PlaceOrder(ctx context.Context, ord models.OrderRequest) (models.OrderResult, error)
}

// TradeJournal — аудит исполненных сигналов и закрытий. Может быть nil.
type TradeJournal interface {
	SignalExecuted(ctx context.Context, sig models.Signal, qty decimal.Decimal, orderID string)
	PositionClosed(ctx context.Context, symbol string, side models.Side, reason string, pnl decimal.Decimal)
}

// PnlRecorder — накопитель реализованного результата для дневного
// лимита убытка. Может быть nil.
type PnlRecorder interface {
	RecordPnl(pnl decimal.Decimal)
}

// Причины закрытия. По трейлинг-стопу символ уходит в кулдаун,
// по тейку и ручному закрытию — нет.
const (
	ReasonTrailingStop = "Trailing stop hit"
	ReasonTakeProfit   = "Take profit target reached"
)

type phase int

const (
	phaseIdle phase = iota
	phasePositionOpen
	phaseCooldown
)

func (p phase) String() string {
	switch p {
	case phasePositionOpen:
		return "POSITION_OPEN"
	case phaseCooldown:
		return "COOLDOWN"
	default:
		return "IDLE"
	}
}

// symbolState — всё состояние по символу в одном месте.
// Инвариант: POSITION_OPEN и COOLDOWN взаимоисключающие.
type symbolState struct {
	history       []models.Candle
	phase         phase
	active        *models.Signal
	trail         *models.TrailState
	cooldownUntil time.Time
	trendHist     []indicator.Trend
	closedAt      time.Time // момент последнего закрытия, анти-дубль
}

// Engine — единственный владелец пер-символьного состояния.
// Все публичные операции сериализованы одним мьютексом: медленный цикл
// сигналов и быстрый цикл трейлинга не пересекаются на одном символе.
type Engine struct {
	cfg     *config.Config
	presets *config.SymbolPresets

	ex       Exchange
	notifier notify.Notifier
	journal  TradeJournal
	pnl      PnlRecorder

	now func() time.Time

	mu     sync.Mutex
	states map[string]*symbolState
}

func NewEngine(
	cfg *config.Config,
	presets *config.SymbolPresets,
	ex Exchange,
	notifier notify.Notifier,
	journal TradeJournal,
	pnl PnlRecorder,
) *Engine {
	return &Engine{
		cfg:      cfg,
		presets:  presets,
		ex:       ex,
		notifier: notifier,
		journal:  journal,
		pnl:      pnl,
		now:      time.Now,
		states:   make(map[string]*symbolState),
	}
}

// state — ленивое создание состояния символа. Только под мьютексом.
func (e *Engine) state(symbol string) *symbolState {
	st, ok := e.states[symbol]
	if !ok {
		st = &symbolState{}
		e.states[symbol] = st
	}
	return st
}

func (e *Engine) clearExpiredCooldown(st *symbolState) {
	if st.phase == phaseCooldown && !e.now().Before(st.cooldownUntil) {
		st.phase = phaseIdle
		st.cooldownUntil = time.Time{}
	}
}

func (e *Engine) inCloseGrace(st *symbolState) bool {
	grace := e.cfg.Strategy.CloseGrace.Std()
	return grace > 0 && !st.closedAt.IsZero() && e.now().Sub(st.closedAt) < grace
}

func (e *Engine) takeProfitFor(side models.Side, entry decimal.Decimal) decimal.Decimal {
	pct := e.cfg.Strategy.TakeProfitPct
	if pct <= 0 {
		return decimal.Zero
	}
	frac := decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100))
	if side == models.SideShort {
		return entry.Mul(decimal.NewFromInt(1).Sub(frac))
	}
	return entry.Mul(decimal.NewFromInt(1).Add(frac))
}
