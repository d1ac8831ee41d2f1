package indicator

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
)

// Resistance — максимум high за lookback свечей, ТЕКУЩАЯ свеча исключена.
// Иначе уровень "убегает" за живой ценой и пробой никогда не детектится.
func Resistance(history []models.Candle, lookback int) (decimal.Decimal, error) {
	win, err := levelWindow(history, lookback)
	if err != nil {
		return decimal.Zero, err
	}
	res := win[0].High
	for _, c := range win[1:] {
		if c.High.GreaterThan(res) {
			res = c.High
		}
	}
	return res, nil
}

// Support — минимум low за lookback свечей, текущая свеча исключена.
func Support(history []models.Candle, lookback int) (decimal.Decimal, error) {
	win, err := levelWindow(history, lookback)
	if err != nil {
		return decimal.Zero, err
	}
	sup := win[0].Low
	for _, c := range win[1:] {
		if c.Low.LessThan(sup) {
			sup = c.Low
		}
	}
	return sup, nil
}

func levelWindow(history []models.Candle, lookback int) ([]models.Candle, error) {
	if lookback < 1 {
		return nil, errors.Wrapf(ErrValidation, "lookback=%d", lookback)
	}
	if len(history) < lookback+1 {
		return nil, errors.Wrapf(ErrInsufficientData, "need %d candles, have %d", lookback+1, len(history))
	}
	n := len(history)
	return history[n-1-lookback : n-1], nil
}

// AverageVolume — среднее объёма за periods свечей, текущая свеча включена.
func AverageVolume(history []models.Candle, periods int) (decimal.Decimal, error) {
	if periods < 1 {
		return decimal.Zero, errors.Wrapf(ErrValidation, "periods=%d", periods)
	}
	if len(history) < periods {
		return decimal.Zero, errors.Wrapf(ErrInsufficientData, "need %d candles, have %d", periods, len(history))
	}
	sum := decimal.Zero
	for _, c := range history[len(history)-periods:] {
		sum = sum.Add(c.Volume)
	}
	return sum.Div(decimal.NewFromInt(int64(periods))), nil
}

func IsVolumeSpike(current, avg, multiplier decimal.Decimal) bool {
	if !avg.IsPositive() {
		return false
	}
	return current.GreaterThan(avg.Mul(multiplier))
}

// DetectBreakout: цена строго выше resistance*(1+buffer) => BULLISH,
// строго ниже support*(1-buffer) => BEARISH. Граница сама пробоем не считается.
func DetectBreakout(price, resistance, support, buffer decimal.Decimal) Direction {
	up := resistance.Mul(one.Add(buffer))
	down := support.Mul(one.Sub(buffer))
	switch {
	case price.GreaterThan(up):
		return DirBullish
	case price.LessThan(down):
		return DirBearish
	default:
		return DirNone
	}
}

// VWAP — средняя типичная цена (h+l+c)/3, взвешенная по объёму.
// При нулевом суммарном объёме — простое среднее типичных цен.
func VWAP(history []models.Candle) (decimal.Decimal, error) {
	if len(history) == 0 {
		return decimal.Zero, errors.Wrap(ErrInsufficientData, "vwap: empty history")
	}
	three := decimal.NewFromInt(3)
	pvSum := decimal.Zero
	volSum := decimal.Zero
	tpSum := decimal.Zero
	for _, c := range history {
		tp := c.High.Add(c.Low).Add(c.Close).Div(three)
		pvSum = pvSum.Add(tp.Mul(c.Volume))
		volSum = volSum.Add(c.Volume)
		tpSum = tpSum.Add(tp)
	}
	if !volSum.IsPositive() {
		return tpSum.Div(decimal.NewFromInt(int64(len(history)))), nil
	}
	return pvSum.Div(volSum), nil
}
