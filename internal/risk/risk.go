// Package risk — портфельные ограничения, проверяемые перед исполнением
// сигнала. Движок сам их не применяет: это забота драйвера.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/config"
)

type Gate struct {
	cfg config.RiskConfig
	now func() time.Time

	mu     sync.Mutex
	day    time.Time // UTC-сутки, к которым относится dayPnl
	dayPnl decimal.Decimal
}

func NewGate(cfg *config.Config) *Gate {
	return &Gate{cfg: cfg.Risk, now: time.Now}
}

// CanOpenPosition — лимит числа позиций, свободная маржа и дневной лимит
// убытка. Вторым значением — причина отказа для логов.
func (g *Gate) CanOpenPosition(open []models.OpenPosition, bal models.Balance, requiredMargin decimal.Decimal) (bool, string) {
	if g.cfg.MaxOpenPositions > 0 && len(open) >= g.cfg.MaxOpenPositions {
		return false, fmt.Sprintf("открыто %d позиций из %d", len(open), g.cfg.MaxOpenPositions)
	}

	if bal.Avail.LessThan(requiredMargin) {
		return false, fmt.Sprintf("свободно %s, нужно %s", bal.Avail, requiredMargin)
	}
	if g.cfg.MinFreeMarginPct > 0 && bal.Total.IsPositive() {
		minFree := bal.Total.
			Mul(decimal.NewFromFloat(g.cfg.MinFreeMarginPct)).
			Div(decimal.NewFromInt(100))
		if bal.Avail.Sub(requiredMargin).LessThan(minFree) {
			return false, fmt.Sprintf("после входа останется %s, минимум %s",
				bal.Avail.Sub(requiredMargin), minFree)
		}
	}

	if g.cfg.DailyLossLimitUSD > 0 {
		g.mu.Lock()
		g.rollDay()
		pnl := g.dayPnl
		g.mu.Unlock()
		if pnl.LessThanOrEqual(decimal.NewFromFloat(-g.cfg.DailyLossLimitUSD)) {
			return false, fmt.Sprintf("дневной убыток %s достиг лимита %.2f", pnl, g.cfg.DailyLossLimitUSD)
		}
	}
	return true, ""
}

// RecordPnl — учёт реализованного результата для дневного лимита.
func (g *Gate) RecordPnl(pnl decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDay()
	g.dayPnl = g.dayPnl.Add(pnl)
}

// rollDay — смена UTC-суток обнуляет накопленный результат. Под мьютексом.
func (g *Gate) rollDay() {
	day := g.now().UTC().Truncate(24 * time.Hour)
	if !day.Equal(g.day) {
		g.day = day
		g.dayPnl = decimal.Zero
	}
}
