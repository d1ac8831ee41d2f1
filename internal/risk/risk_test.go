package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/config"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newGate(rc config.RiskConfig) *Gate {
	cfg := &config.Config{Risk: rc}
	return NewGate(cfg)
}

func positions(n int) []models.OpenPosition {
	out := make([]models.OpenPosition, n)
	for i := range out {
		out[i] = models.OpenPosition{Symbol: "X", Side: models.SideLong, Size: d("1")}
	}
	return out
}

func TestCanOpenPositionMaxPositions(t *testing.T) {
	g := newGate(config.RiskConfig{MaxOpenPositions: 2})
	bal := models.Balance{Avail: d("1000"), Total: d("1000")}

	ok, _ := g.CanOpenPosition(positions(1), bal, d("100"))
	assert.True(t, ok)

	ok, why := g.CanOpenPosition(positions(2), bal, d("100"))
	assert.False(t, ok)
	assert.NotEmpty(t, why)
}

func TestCanOpenPositionMargin(t *testing.T) {
	g := newGate(config.RiskConfig{MaxOpenPositions: 10, MinFreeMarginPct: 10})

	// свободных меньше требуемой маржи
	ok, _ := g.CanOpenPosition(nil, models.Balance{Avail: d("50"), Total: d("1000")}, d("100"))
	assert.False(t, ok)

	// после входа свободных меньше 10% от эквити
	ok, _ = g.CanOpenPosition(nil, models.Balance{Avail: d("150"), Total: d("1000")}, d("100"))
	assert.False(t, ok)

	ok, _ = g.CanOpenPosition(nil, models.Balance{Avail: d("300"), Total: d("1000")}, d("100"))
	assert.True(t, ok)
}

func TestCanOpenPositionDailyLoss(t *testing.T) {
	g := newGate(config.RiskConfig{MaxOpenPositions: 10, DailyLossLimitUSD: 50})
	base := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	now := base
	g.now = func() time.Time { return now }

	bal := models.Balance{Avail: d("1000"), Total: d("1000")}

	g.RecordPnl(d("-60"))
	ok, why := g.CanOpenPosition(nil, bal, d("100"))
	assert.False(t, ok)
	assert.NotEmpty(t, why)

	// новые UTC-сутки — счётчик обнуляется
	now = base.Add(2 * time.Hour)
	ok, _ = g.CanOpenPosition(nil, bal, d("100"))
	assert.True(t, ok)
}
