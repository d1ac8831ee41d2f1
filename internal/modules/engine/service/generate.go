package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/indicator"
	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/config"
	"breakout_bot/pkg/logger"
)

const (
	scanWindow        = 5  // сколько последних свечей сканируем на пробой
	volumeWindow      = 20 // базовое окно среднего объёма
	structureLookback = 10
	rsiPeriods        = 14
	atrPeriods        = 14

	trendShort = 20
	trendLong  = 50

	baseConfidence  = 0.70
	confidenceBonus = 0.10
)

// candidate — свеча-триггер, найденная сканом, до прохода фильтров.
type candidate struct {
	dir        indicator.Direction
	idx        int
	cumulative bool // сработал cumulative-move, не пробой и не импульс
	desc       string
}

// GenerateSignal — одна попытка найти вход по символу на текущем тике.
// nil, nil — сигнала нет (нормальный исход почти всегда).
func (e *Engine) GenerateSignal(_ context.Context, symbol string) (*models.Signal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generateLocked(symbol)
}

func (e *Engine) generateLocked(symbol string) (*models.Signal, error) {
	st := e.state(symbol)
	e.clearExpiredCooldown(st)
	switch st.phase {
	case phasePositionOpen:
		return nil, nil
	case phaseCooldown:
		logger.Debug("[SIGNAL] %s: кулдаун до %s", symbol, st.cooldownUntil.Format(time.RFC3339))
		return nil, nil
	}

	s := e.cfg.Strategy
	history := st.history
	if len(history) < s.LookbackPeriod {
		logger.Debug("[SIGNAL] %s: истории мало (%d < %d)", symbol, len(history), s.LookbackPeriod)
		return nil, nil
	}
	if err := indicator.ValidateHistory(history); err != nil {
		return nil, errors.Wrap(err, symbol)
	}

	res, err := indicator.Resistance(history, s.LookbackPeriod)
	if err != nil {
		return nil, softErr(symbol, err)
	}
	sup, err := indicator.Support(history, s.LookbackPeriod)
	if err != nil {
		return nil, softErr(symbol, err)
	}
	if !sup.IsPositive() || !sup.LessThan(res) {
		return nil, errors.Wrapf(indicator.ErrValidation, "%s: support %s >= resistance %s", symbol, sup, res)
	}

	volPeriods := volumeWindow
	if len(history) < volPeriods {
		volPeriods = len(history)
	}
	avgVol, err := indicator.AverageVolume(history, volPeriods)
	if err != nil {
		return nil, softErr(symbol, err)
	}

	// тренд и структура нужны фильтрам; нехватка данных = SIDEWAYS/CHOPPY
	trend, err := indicator.DetectTrend(history, trendShort, trendLong)
	if err != nil && !errors.Is(err, indicator.ErrInsufficientData) {
		return nil, errors.Wrap(err, symbol)
	}
	structure, err := indicator.DetectPriceStructure(history, structureLookback)
	if err != nil && !errors.Is(err, indicator.ErrInsufficientData) {
		return nil, errors.Wrap(err, symbol)
	}
	e.pushTrend(st, trend)

	cand := findCandidate(history, res, sup, avgVol, s)
	if cand == nil {
		if s.TrendFollowEnabled {
			return e.trendFollowLocked(st, symbol, trend, structure, avgVol)
		}
		return nil, nil
	}

	if why := rejectByFilters(history, cand, trend, structure, s); why != "" {
		logger.Debug("[SIGNAL] %s %s отклонён: %s", symbol, cand.dir, why)
		return nil, nil
	}

	sig := e.buildSignal(symbol, history, structure, avgVol, cand)
	logger.Info("[SIGNAL] %s %s entry=%s sl=%s conf=%.2f (%s)",
		symbol, sig.Side, sig.Entry, sig.StopLoss, sig.Confidence, sig.Reason)
	return &sig, nil
}

// findCandidate — скан последних min(5, n) свечей от новой к старой,
// первый подходящий триггер побеждает: пробой уровня, импульсная свеча
// (>large_move_pct при спайке объёма) или накопленное движение по окнам 2..5.
func findCandidate(history []models.Candle, res, sup, avgVol decimal.Decimal, s config.StrategyConfig) *candidate {
	n := len(history)
	if n == 0 {
		return nil
	}
	price := history[n-1].Close

	buffer := decimal.NewFromFloat(s.BreakoutBuffer)
	spikeMult := decimal.NewFromFloat(s.VolumeSpikeMult)
	largeMovePct := decimal.NewFromFloat(s.LargeMovePct)
	cumPct := decimal.NewFromFloat(s.CumulativePct)
	cumVolMin := decimal.NewFromFloat(s.CumulativeVolMin)

	scan := scanWindow
	if n < scan {
		scan = n
	}
	for i := n - 1; i >= n-scan; i-- {
		c := history[i]
		spike := indicator.IsVolumeSpike(c.Volume, avgVol, spikeMult)

		breakoutDir := indicator.DetectBreakout(c.Close, res, sup, buffer)

		// импульсная свеча
		largeDir := indicator.DirNone
		var largeCh decimal.Decimal
		if i > 0 && spike {
			ch := helper.PctChange(history[i-1].Close, c.Close)
			if ch.Abs().GreaterThan(largeMovePct) {
				largeDir = dirBySign(ch)
				largeCh = ch
			}
		}

		// накопленное движение: окна 2..5 свечей, первое совпавшее по возрастанию
		cumDir := indicator.DirNone
		var cumCh decimal.Decimal
		cumW := 0
		if avgVol.IsPositive() {
			for w := 2; w <= 5 && i-w+1 >= 0; w++ {
				start := i - w + 1
				ch := helper.PctChange(history[start].Close, c.Close)
				if !ch.Abs().GreaterThan(cumPct) {
					continue
				}
				winVol := decimal.Zero
				for _, wc := range history[start : i+1] {
					winVol = winVol.Add(wc.Volume)
				}
				winAvg := winVol.Div(decimal.NewFromInt(int64(w)))
				if winAvg.Div(avgVol).LessThan(cumVolMin) {
					continue
				}
				cumDir = dirBySign(ch)
				cumCh = ch
				cumW = w
				break
			}
		}

		// приоритет триггеров: пробой, импульс, накопленное движение
		cand := candidate{idx: i}
		switch {
		case breakoutDir != indicator.DirNone:
			cand.dir = breakoutDir
			cand.desc = fmt.Sprintf("breakout: close %s за уровнем %s/%s", c.Close, sup, res)
		case largeDir != indicator.DirNone:
			cand.dir = largeDir
			cand.desc = fmt.Sprintf("large move %s%% со спайком объёма", largeCh.StringFixed(2))
		case cumDir != indicator.DirNone:
			cand.dir = cumDir
			cand.cumulative = true
			cand.desc = fmt.Sprintf("cumulative move %s%% за %d свечей", cumCh.StringFixed(2), cumW)
		default:
			continue
		}

		// объёмное подтверждение: спайк или накопленное движение
		if !spike && cumDir == indicator.DirNone {
			continue
		}

		// sanity по расположению цены: лонг не берём, если цена уже
		// провалилась под поддержку, шорт — если цена уже над сопротивлением
		if cand.dir == indicator.DirBullish && !price.GreaterThan(sup) {
			continue
		}
		if cand.dir == indicator.DirBearish && !price.LessThan(res) {
			continue
		}
		return &cand
	}
	return nil
}

func dirBySign(ch decimal.Decimal) indicator.Direction {
	if ch.Sign() > 0 {
		return indicator.DirBullish
	}
	return indicator.DirBearish
}

// rejectByFilters — последовательные вето. Пустая строка = сигнал прошёл.
func rejectByFilters(history []models.Candle, cand *candidate, trend indicator.Trend, structure indicator.Structure, s config.StrategyConfig) string {
	dir := cand.dir

	// строгое совпадение тренда; для cumulative-сигналов боковик
	// допустим, если так настроено
	wantTrend := indicator.TrendUp
	if dir == indicator.DirBearish {
		wantTrend = indicator.TrendDown
	}
	if trend != wantTrend {
		lenient := cand.cumulative && !s.StrictTrendForCumulative && trend == indicator.TrendSideways
		if !lenient {
			return fmt.Sprintf("trend %s, need %s", trend, wantTrend)
		}
	}

	aligned, why, err := indicator.IsEmaAligned(history, dir)
	if err != nil {
		return "ema alignment: " + err.Error()
	}
	if !aligned {
		return "ema alignment: " + why
	}

	// вето по структуре
	switch {
	case structure == indicator.StructureChoppy:
		return "structure CHOPPY"
	case dir == indicator.DirBullish && structure == indicator.StructureLowerLows:
		return "structure LOWER_LOWS против лонга"
	case dir == indicator.DirBearish && structure == indicator.StructureHigherHighs:
		return "structure HIGHER_HIGHS против шорта"
	}

	// вето по экстремумам RSI
	if rsi, err := indicator.RSI(history, rsiPeriods); err == nil {
		v := rsi.InexactFloat64()
		if dir == indicator.DirBullish && v > s.RSIOverbought {
			return fmt.Sprintf("RSI %.1f: перекупленность", v)
		}
		if dir == indicator.DirBearish && v < s.RSIOversold {
			return fmt.Sprintf("RSI %.1f: перепроданность", v)
		}
	}
	return ""
}

func (e *Engine) buildSignal(symbol string, history []models.Candle, structure indicator.Structure, avgVol decimal.Decimal, cand *candidate) models.Signal {
	last := history[len(history)-1]
	entry := last.Close

	side := models.SideLong
	if cand.dir == indicator.DirBearish {
		side = models.SideShort
	}

	stopPct := e.presets.StopPct(symbol)
	stop := models.StopFromExtremum(side, entry, stopPct)

	// уверенность диагностическая: база + фиксированные бонусы, без капа
	confidence := baseConfidence
	if atr, err := indicator.ATR(history, atrPeriods); err == nil {
		atrPct := atr.Div(entry).Mul(decimal.NewFromInt(100))
		if atrPct.GreaterThan(decimal.NewFromInt(1)) {
			confidence += confidenceBonus
		}
	}
	if (cand.dir == indicator.DirBullish && structure == indicator.StructureHigherHighs) ||
		(cand.dir == indicator.DirBearish && structure == indicator.StructureLowerLows) {
		confidence += confidenceBonus
	}
	confidence += confidenceBonus // свежий триггер в окне сканирования

	score, _ := indicator.MomentumScore(history, last.Volume, avgVol, cand.dir)

	return models.Signal{
		Symbol:     symbol,
		Side:       side,
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: e.takeProfitFor(side, entry),
		Confidence: confidence,
		Strategy:   models.StrategyBreakout,
		Reason:     fmt.Sprintf("%s, momentum %.2f", cand.desc, score),
		CreatedAt:  e.now(),
	}
}

// softErr — нехватка данных не ошибка, а "сигнала пока нет".
func softErr(symbol string, err error) error {
	if errors.Is(err, indicator.ErrInsufficientData) {
		logger.Debug("[SIGNAL] %s: %v", symbol, err)
		return nil
	}
	return errors.Wrap(err, symbol)
}
