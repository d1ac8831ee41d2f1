package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

type StrategyType string

const (
	StrategyBreakout    StrategyType = "breakout"
	StrategyTrendFollow StrategyType = "trend_follow"
)

// Signal — результат генерации. Исполняется ровно один раз.
type Signal struct {
	Symbol     string
	Side       Side
	Entry      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal // zero => не задан
	Confidence float64         // диагностика, не фильтр
	Strategy   StrategyType
	Reason     string
	CreatedAt  time.Time
}

func (s Signal) HasTakeProfit() bool { return s.TakeProfit.IsPositive() }
