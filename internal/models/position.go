package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenPosition — позиция, которую вернула биржа. Source of truth после рестарта.
type OpenPosition struct {
	Symbol  string
	Side    Side
	Size    decimal.Decimal
	Entry   decimal.Decimal
	MarkPx  decimal.Decimal
	Upl     decimal.Decimal // unrealized pnl
	Updated time.Time
}

type Balance struct {
	Avail decimal.Decimal
	Total decimal.Decimal
}

type OrderRequest struct {
	Symbol     string
	Side       Side
	Price      decimal.Decimal
	Qty        decimal.Decimal
	ReduceOnly bool
}

type OrderResult struct {
	OrderID string
}

// TrailState — трейлинг по одной позиции.
// Extremum: максимум цены для long, минимум для short.
type TrailState struct {
	Symbol   string
	Side     Side
	Extremum decimal.Decimal
	Stop     decimal.Decimal
	StopPct  decimal.Decimal // процент, напр. 5 => 5%
}

// NewTrailState — стартовый стейт от цены входа.
func NewTrailState(symbol string, side Side, entry, stopPct decimal.Decimal) *TrailState {
	st := &TrailState{
		Symbol:   symbol,
		Side:     side,
		Extremum: entry,
		StopPct:  stopPct,
	}
	st.Stop = StopFromExtremum(side, entry, stopPct)
	return st
}

// StopFromExtremum: long => extremum*(1-pct/100), short => extremum*(1+pct/100).
func StopFromExtremum(side Side, extremum, pct decimal.Decimal) decimal.Decimal {
	frac := pct.Div(decimal.NewFromInt(100))
	if side == SideShort {
		return extremum.Mul(decimal.NewFromInt(1).Add(frac))
	}
	return extremum.Mul(decimal.NewFromInt(1).Sub(frac))
}
