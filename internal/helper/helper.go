package helper

import (
	"strings"

	"github.com/shopspring/decimal"
)

func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "15m":
		return "15m"
	case "5m":
		return "5m"
	case "1m":
		return "1m"
	default:
		return s
	}
}

// RoundToTick — вниз к ближайшему шагу цены. tick <= 0 => без округления.
func RoundToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px
	}
	steps := px.Div(tick).Floor()
	return steps.Mul(tick)
}

func RoundUpToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px
	}
	steps := px.Div(tick).Ceil()
	return steps.Mul(tick)
}

// PctChange = (to/from - 1) * 100. from <= 0 => zero (защита от деления).
func PctChange(from, to decimal.Decimal) decimal.Decimal {
	if !from.IsPositive() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(decimal.NewFromInt(100))
}
