package indicator

import (
	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
)

// Веса композитного скора. Сумма = 1.0.
const (
	wTrend  = 0.35
	wRSI    = 0.25
	wMACD   = 0.20
	wVolume = 0.10
	wVWAP   = 0.10
)

// MomentumScore — взвешенная свёртка тренд/RSI/MACD/объём/VWAP в один скаляр 0..1.
// Вспомогательная оценка уверенности, жёстким фильтром не является.
func MomentumScore(history []models.Candle, currentVolume, avgVolume decimal.Decimal, dir Direction) (float64, error) {
	if dir == DirNone {
		return 0, nil
	}
	if len(history) == 0 {
		return 0, ErrInsufficientData
	}
	price := history[len(history)-1].Close
	score := 0.0

	// тренд / выравнивание EMA
	if aligned, _, err := IsEmaAligned(history, dir); err == nil && aligned {
		score += wTrend
	}

	// позиционирование RSI: для лонга комфортная зона 50..70,
	// 40..50 — половина веса, перекупленность — ноль. Для шорта зеркально.
	if rsi, err := RSI(history, 14); err == nil {
		v := rsi.InexactFloat64()
		if dir == DirBearish {
			v = 100 - v
		}
		switch {
		case v >= 50 && v <= 70:
			score += wRSI
		case v >= 40 && v < 50:
			score += wRSI / 2
		}
	}

	// знак гистограммы MACD совпадает с направлением
	if macd, err := MACD(history, 12, 26, 9); err == nil {
		h := macd.Histogram.Sign()
		if (dir == DirBullish && h > 0) || (dir == DirBearish && h < 0) {
			score += wMACD
		}
	}

	// объём: отношение к среднему, насыщение на 2x
	if avgVolume.IsPositive() {
		ratio := currentVolume.Div(avgVolume).InexactFloat64() / 2
		if ratio > 1 {
			ratio = 1
		}
		if ratio > 0 {
			score += wVolume * ratio
		}
	}

	// сторона от VWAP
	if vwap, err := VWAP(history); err == nil {
		if (dir == DirBullish && price.GreaterThan(vwap)) ||
			(dir == DirBearish && price.LessThan(vwap)) {
			score += wVWAP
		}
	}

	if score > 1 {
		score = 1
	}
	return score, nil
}
