package indicator

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
)

const (
	trendRangeCandles = 10
	trendATRPeriods   = 14
	structLookback    = 10

	emaShort = 9
	emaMid   = 21
	emaLong  = 50
	emaTrend = 200
)

// DetectTrend — трёхслойный фильтр:
//  1. диапазон последних 10 свечей < 2*ATR(14) => рынок слишком сжат, SIDEWAYS;
//  2. структура: вторая половина из 20 свечей выше/ниже первой;
//  3. стек EMA20 > EMA50 > EMA200 (или зеркально).
//
// UPTREND/DOWNTREND только когда структура и стек согласны.
func DetectTrend(history []models.Candle, shortPeriods, longPeriods int) (Trend, error) {
	need := 2 * structLookback
	if n := trendATRPeriods + 1; n > need {
		need = n
	}
	if len(history) < need {
		return TrendSideways, errors.Wrapf(ErrInsufficientData, "trend: need %d candles, have %d", need, len(history))
	}
	if shortPeriods < 1 || longPeriods <= shortPeriods {
		return TrendSideways, errors.Wrapf(ErrValidation, "trend periods short=%d long=%d", shortPeriods, longPeriods)
	}

	// слой 1: волатильность
	atr, err := ATR(history, trendATRPeriods)
	if err != nil {
		return TrendSideways, err
	}
	rangeWin := history[len(history)-trendRangeCandles:]
	hi, lo := rangeWin[0].High, rangeWin[0].Low
	for _, c := range rangeWin[1:] {
		if c.High.GreaterThan(hi) {
			hi = c.High
		}
		if c.Low.LessThan(lo) {
			lo = c.Low
		}
	}
	if hi.Sub(lo).LessThan(atr.Mul(decimal.NewFromInt(2))) {
		return TrendSideways, nil
	}

	// слой 2: структура
	structure, err := DetectPriceStructure(history, structLookback)
	if err != nil {
		return TrendSideways, err
	}

	// слой 3: стек EMA
	closes := Closes(history)
	eShort, err := EMA(closes, shortPeriods)
	if err != nil {
		return TrendSideways, err
	}
	eLong, err := EMA(closes, longPeriods)
	if err != nil {
		return TrendSideways, err
	}
	eTrend, err := EMA(closes, emaTrend)
	if err != nil {
		return TrendSideways, err
	}

	emaBull := eShort.GreaterThan(eLong) && eLong.GreaterThan(eTrend)
	emaBear := eShort.LessThan(eLong) && eLong.LessThan(eTrend)

	switch {
	case structure == StructureHigherHighs && emaBull:
		return TrendUp, nil
	case structure == StructureLowerLows && emaBear:
		return TrendDown, nil
	default:
		return TrendSideways, nil
	}
}

// DetectPriceStructure: последние 2*lookback свечей делим пополам,
// обе экстремали второй половины выше => HIGHER_HIGHS, ниже => LOWER_LOWS.
func DetectPriceStructure(history []models.Candle, lookback int) (Structure, error) {
	if lookback < 1 {
		return StructureChoppy, errors.Wrapf(ErrValidation, "structure lookback=%d", lookback)
	}
	if len(history) < 2*lookback {
		return StructureChoppy, errors.Wrapf(ErrInsufficientData, "structure: need %d candles, have %d", 2*lookback, len(history))
	}

	win := history[len(history)-2*lookback:]
	firstHi, firstLo := extremes(win[:lookback])
	secondHi, secondLo := extremes(win[lookback:])

	switch {
	case secondHi.GreaterThan(firstHi) && secondLo.GreaterThan(firstLo):
		return StructureHigherHighs, nil
	case secondHi.LessThan(firstHi) && secondLo.LessThan(firstLo):
		return StructureLowerLows, nil
	default:
		return StructureChoppy, nil
	}
}

func extremes(win []models.Candle) (hi, lo decimal.Decimal) {
	hi, lo = win[0].High, win[0].Low
	for _, c := range win[1:] {
		if c.High.GreaterThan(hi) {
			hi = c.High
		}
		if c.Low.LessThan(lo) {
			lo = c.Low
		}
	}
	return hi, lo
}

// IsEmaAligned: бычье выравнивание price > EMA9 > EMA21 > EMA50 (и зеркально).
// Вторым значением — какое именно неравенство сломалось, для логов.
func IsEmaAligned(history []models.Candle, dir Direction) (bool, string, error) {
	if len(history) == 0 {
		return false, "", errors.Wrap(ErrInsufficientData, "ema alignment: empty history")
	}
	closes := Closes(history)
	price := closes[len(closes)-1]

	e9, err := EMA(closes, emaShort)
	if err != nil {
		return false, "", err
	}
	e21, err := EMA(closes, emaMid)
	if err != nil {
		return false, "", err
	}
	e50, err := EMA(closes, emaLong)
	if err != nil {
		return false, "", err
	}

	type check struct {
		ok   bool
		desc string
	}
	var checks []check
	switch dir {
	case DirBullish:
		checks = []check{
			{price.GreaterThan(e9), fmt.Sprintf("price %s <= EMA9 %s", price, e9)},
			{e9.GreaterThan(e21), fmt.Sprintf("EMA9 %s <= EMA21 %s", e9, e21)},
			{e21.GreaterThan(e50), fmt.Sprintf("EMA21 %s <= EMA50 %s", e21, e50)},
		}
	case DirBearish:
		checks = []check{
			{price.LessThan(e9), fmt.Sprintf("price %s >= EMA9 %s", price, e9)},
			{e9.LessThan(e21), fmt.Sprintf("EMA9 %s >= EMA21 %s", e9, e21)},
			{e21.LessThan(e50), fmt.Sprintf("EMA21 %s >= EMA50 %s", e21, e50)},
		}
	default:
		return false, "direction not set", nil
	}

	for _, c := range checks {
		if !c.ok {
			return false, c.desc, nil
		}
	}
	return true, "aligned", nil
}
