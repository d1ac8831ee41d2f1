package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle — закрытая свеча. Все цены/объёмы в decimal, float64 тут запрещён.
type Candle struct {
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
	Ts     time.Time
}

// Valid: high >= low, все цены > 0.
func (c Candle) Valid() bool {
	if !c.High.IsPositive() || !c.Low.IsPositive() || !c.Close.IsPositive() {
		return false
	}
	if c.Open.Sign() < 0 || c.Volume.Sign() < 0 {
		return false
	}
	return !c.High.LessThan(c.Low)
}
