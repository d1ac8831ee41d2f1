package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/indicator"
	"breakout_bot/internal/models"
)

const (
	trendHistCap          = 10
	trendFollowConfidence = 0.65
)

// pushTrend — буфер последних чтений тренда, ёмкость 10.
func (e *Engine) pushTrend(st *symbolState, tr indicator.Trend) {
	st.trendHist = append(st.trendHist, tr)
	if len(st.trendHist) > trendHistCap {
		st.trendHist = append(st.trendHist[:0:0], st.trendHist[len(st.trendHist)-trendHistCap:]...)
	}
}

// trendFollowLocked — догоняющая подстратегия: вход по устойчивому тренду
// без пробоя уровня. Требует N одинаковых чтений тренда подряд, цену по
// нужную сторону SMA, объём не ниже порога и цену недалеко от экстремума.
func (e *Engine) trendFollowLocked(st *symbolState, symbol string, trend indicator.Trend, structure indicator.Structure, avgVol decimal.Decimal) (*models.Signal, error) {
	if trend == indicator.TrendSideways {
		return nil, nil
	}
	s := e.cfg.Strategy

	need := s.TrendConsecutive
	if need < 1 {
		need = 1
	}
	if len(st.trendHist) < need {
		return nil, nil
	}
	for _, tr := range st.trendHist[len(st.trendHist)-need:] {
		if tr != trend {
			return nil, nil
		}
	}

	history := st.history
	last := history[len(history)-1]
	price := last.Close

	side := models.SideLong
	if trend == indicator.TrendDown {
		side = models.SideShort
	}

	sma, err := indicator.SMA(indicator.Closes(history), s.TrendSMAPeriod)
	if err != nil {
		return nil, softErr(symbol, err)
	}
	if side == models.SideLong && !price.GreaterThan(sma) {
		return nil, nil
	}
	if side == models.SideShort && !price.LessThan(sma) {
		return nil, nil
	}

	if avgVol.IsPositive() &&
		last.Volume.LessThan(avgVol.Mul(decimal.NewFromFloat(s.TrendVolumeMult))) {
		return nil, nil
	}

	// не догоняем ушедшую цену
	hi, lo := recentExtremes(history, s.LookbackPeriod)
	maxDist := decimal.NewFromFloat(s.TrendMaxDistancePct)
	if side == models.SideLong && helper.PctChange(price, hi).GreaterThan(maxDist) {
		return nil, nil
	}
	if side == models.SideShort && helper.PctChange(lo, price).GreaterThan(maxDist) {
		return nil, nil
	}

	// структура должна подтверждать направление
	if side == models.SideLong && structure != indicator.StructureHigherHighs {
		return nil, nil
	}
	if side == models.SideShort && structure != indicator.StructureLowerLows {
		return nil, nil
	}

	stopPct := e.presets.StopPct(symbol)
	sig := models.Signal{
		Symbol:     symbol,
		Side:       side,
		Entry:      price,
		StopLoss:   models.StopFromExtremum(side, price, stopPct),
		TakeProfit: e.takeProfitFor(side, price),
		Confidence: trendFollowConfidence,
		Strategy:   models.StrategyTrendFollow,
		Reason:     fmt.Sprintf("trend follow: %d x %s, price vs SMA%d", need, trend, s.TrendSMAPeriod),
		CreatedAt:  e.now(),
	}
	return &sig, nil
}

func recentExtremes(history []models.Candle, lookback int) (hi, lo decimal.Decimal) {
	if lookback > len(history) {
		lookback = len(history)
	}
	win := history[len(history)-lookback:]
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
