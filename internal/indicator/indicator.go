// Package indicator — чистые функции над рядом закрытых свечей.
// Вся арифметика на decimal, сравнение цен только точное.
package indicator

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
)

var (
	// ErrInsufficientData — ряд короче требуемого окна. Для вызывающего это "сигнала пока нет".
	ErrInsufficientData = errors.New("insufficient candle data")
	// ErrValidation — мусор во входных данных (цена <= 0, high < low и т.п.).
	ErrValidation = errors.New("invalid candle data")
)

type Direction int

const (
	DirNone Direction = iota
	DirBullish
	DirBearish
)

func (d Direction) String() string {
	switch d {
	case DirBullish:
		return "BULLISH"
	case DirBearish:
		return "BEARISH"
	default:
		return "NONE"
	}
}

type Trend int

const (
	TrendSideways Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "UPTREND"
	case TrendDown:
		return "DOWNTREND"
	default:
		return "SIDEWAYS"
	}
}

type Structure int

const (
	StructureChoppy Structure = iota
	StructureHigherHighs
	StructureLowerLows
)

func (s Structure) String() string {
	switch s {
	case StructureHigherHighs:
		return "HIGHER_HIGHS"
	case StructureLowerLows:
		return "LOWER_LOWS"
	default:
		return "CHOPPY"
	}
}

// ValidateHistory — защита от мусора перед любым расчётом.
func ValidateHistory(history []models.Candle) error {
	for i, c := range history {
		if !c.Valid() {
			return errors.Wrapf(ErrValidation, "candle #%d (high=%s low=%s close=%s)",
				i, c.High, c.Low, c.Close)
		}
	}
	return nil
}

func Closes(history []models.Candle) []decimal.Decimal {
	out := make([]decimal.Decimal, len(history))
	for i, c := range history {
		out[i] = c.Close
	}
	return out
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)
