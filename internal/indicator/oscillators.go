package indicator

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
)

// SMA за последние periods значений.
func SMA(values []decimal.Decimal, periods int) (decimal.Decimal, error) {
	if periods < 1 {
		return decimal.Zero, errors.Wrapf(ErrValidation, "sma periods=%d", periods)
	}
	if len(values) < periods {
		return decimal.Zero, errors.Wrapf(ErrInsufficientData, "sma: need %d values, have %d", periods, len(values))
	}
	sum := decimal.Zero
	for _, v := range values[len(values)-periods:] {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(periods))), nil
}

// EMA: сид = SMA первых periods значений, множитель 2/(periods+1).
// Ряд короче periods: сидим первым значением и прогоняем остаток с тем же
// множителем. Так EMA50 и EMA200 на коротком ряду остаются различимы,
// и стек EMA в детекторе тренда не вырождается.
func EMA(values []decimal.Decimal, periods int) (decimal.Decimal, error) {
	if periods < 1 {
		return decimal.Zero, errors.Wrapf(ErrValidation, "ema periods=%d", periods)
	}
	if len(values) == 0 {
		return decimal.Zero, errors.Wrap(ErrInsufficientData, "ema: empty series")
	}
	if len(values) <= periods {
		k := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(periods + 1)))
		ema := values[0]
		for _, v := range values[1:] {
			ema = v.Sub(ema).Mul(k).Add(ema)
		}
		return ema, nil
	}
	ema, err := SMA(values[:periods], periods)
	if err != nil {
		return decimal.Zero, err
	}
	k := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(periods + 1)))
	for _, v := range values[periods:] {
		ema = v.Sub(ema).Mul(k).Add(ema)
	}
	return ema, nil
}

// RSI по Уайлдеру: сид — простое среднее первых periods изменений,
// дальше рекуррента avg=(avg*(n-1)+cur)/n. avgLoss==0 => ровно 100.
func RSI(history []models.Candle, periods int) (decimal.Decimal, error) {
	if periods < 1 {
		return decimal.Zero, errors.Wrapf(ErrValidation, "rsi periods=%d", periods)
	}
	if len(history) < periods+1 {
		return decimal.Zero, errors.Wrapf(ErrInsufficientData, "rsi: need %d candles, have %d", periods+1, len(history))
	}

	closes := Closes(history)
	gains := make([]decimal.Decimal, 0, len(closes)-1)
	losses := make([]decimal.Decimal, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		ch := closes[i].Sub(closes[i-1])
		if ch.Sign() >= 0 {
			gains = append(gains, ch)
			losses = append(losses, decimal.Zero)
		} else {
			gains = append(gains, decimal.Zero)
			losses = append(losses, ch.Neg())
		}
	}

	n := decimal.NewFromInt(int64(periods))
	nMinus1 := decimal.NewFromInt(int64(periods - 1))

	avgGain := decimal.Zero
	avgLoss := decimal.Zero
	for i := 0; i < periods; i++ {
		avgGain = avgGain.Add(gains[i])
		avgLoss = avgLoss.Add(losses[i])
	}
	avgGain = avgGain.Div(n)
	avgLoss = avgLoss.Div(n)

	for i := periods; i < len(gains); i++ {
		avgGain = avgGain.Mul(nMinus1).Add(gains[i]).Div(n)
		avgLoss = avgLoss.Mul(nMinus1).Add(losses[i]).Div(n)
	}

	if avgLoss.IsZero() {
		return hundred, nil
	}
	rs := avgGain.Div(avgLoss)
	return hundred.Sub(hundred.Div(one.Add(rs))), nil
}

// ATR — простое среднее истинных диапазонов Уайлдера за periods свечей.
func ATR(history []models.Candle, periods int) (decimal.Decimal, error) {
	if periods < 1 {
		return decimal.Zero, errors.Wrapf(ErrValidation, "atr periods=%d", periods)
	}
	if len(history) < periods+1 {
		return decimal.Zero, errors.Wrapf(ErrInsufficientData, "atr: need %d candles, have %d", periods+1, len(history))
	}
	sum := decimal.Zero
	for i := len(history) - periods; i < len(history); i++ {
		prevClose := history[i-1].Close
		tr := history[i].High.Sub(history[i].Low)
		if hc := history[i].High.Sub(prevClose).Abs(); hc.GreaterThan(tr) {
			tr = hc
		}
		if lc := history[i].Low.Sub(prevClose).Abs(); lc.GreaterThan(tr) {
			tr = lc
		}
		sum = sum.Add(tr)
	}
	return sum.Div(decimal.NewFromInt(int64(periods))), nil
}

type MACDResult struct {
	Line      decimal.Decimal
	Signal    decimal.Decimal
	Histogram decimal.Decimal
}

// MACD = EMA(fast) - EMA(slow). Сигнальная линия — EMA от исторического ряда
// MACD, где каждая точка пересчитана заново по срезу closes[:i].
// Это НЕ стриминговая EMA: стриминговый вариант даёт другие значения.
func MACD(history []models.Candle, fast, slow, signalPeriods int) (MACDResult, error) {
	if fast < 1 || slow < 1 || signalPeriods < 1 || fast >= slow {
		return MACDResult{}, errors.Wrapf(ErrValidation, "macd params fast=%d slow=%d signal=%d", fast, slow, signalPeriods)
	}
	if len(history) < slow+1 {
		return MACDResult{}, errors.Wrapf(ErrInsufficientData, "macd: need %d candles, have %d", slow+1, len(history))
	}
	closes := Closes(history)

	series := make([]decimal.Decimal, 0, len(closes)-slow+1)
	for i := slow; i <= len(closes); i++ {
		f, err := EMA(closes[:i], fast)
		if err != nil {
			return MACDResult{}, err
		}
		s, err := EMA(closes[:i], slow)
		if err != nil {
			return MACDResult{}, err
		}
		series = append(series, f.Sub(s))
	}

	line := series[len(series)-1]
	sig, err := EMA(series, signalPeriods)
	if err != nil {
		return MACDResult{}, err
	}
	return MACDResult{Line: line, Signal: sig, Histogram: line.Sub(sig)}, nil
}

type Bands struct {
	Upper  decimal.Decimal
	Middle decimal.Decimal
	Lower  decimal.Decimal
}

// BollingerBands: SMA ± k * populationStdDev.
// Корень считаем через float64 — на точность полос это не влияет.
func BollingerBands(values []decimal.Decimal, periods int, stdDev decimal.Decimal) (Bands, error) {
	mid, err := SMA(values, periods)
	if err != nil {
		return Bands{}, err
	}
	win := values[len(values)-periods:]
	variance := decimal.Zero
	for _, v := range win {
		diff := v.Sub(mid)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(decimal.NewFromInt(int64(periods)))
	sd := decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
	delta := sd.Mul(stdDev)
	return Bands{Upper: mid.Add(delta), Middle: mid, Lower: mid.Sub(delta)}, nil
}
