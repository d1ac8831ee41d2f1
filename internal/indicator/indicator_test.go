package indicator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout_bot/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func candleAt(i int, high, low, close, vol string) models.Candle {
	return models.Candle{
		Open:   d(close),
		High:   d(high),
		Low:    d(low),
		Close:  d(close),
		Volume: d(vol),
		Ts:     time.Unix(int64(i)*60, 0),
	}
}

// flatSeries — n одинаковых свечей close=100, диапазон 99.9..100.1.
func flatSeries(n int) []models.Candle {
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candleAt(i, "100.1", "99.9", "100", "1000"))
	}
	return out
}

// driftSeries — закрытия растут на pct% каждую свечу, high/low = close*(1±0.001).
func driftSeries(n int, start, pct float64) []models.Candle {
	out := make([]models.Candle, 0, n)
	px := decimal.NewFromFloat(start)
	step := decimal.NewFromFloat(1 + pct/100)
	for i := 0; i < n; i++ {
		out = append(out, models.Candle{
			Open:   px,
			High:   px.Mul(d("1.001")),
			Low:    px.Mul(d("0.999")),
			Close:  px,
			Volume: d("1000"),
			Ts:     time.Unix(int64(i)*60, 0),
		})
		px = px.Mul(step)
	}
	return out
}

func TestResistanceExcludesCurrentCandle(t *testing.T) {
	hist := flatSeries(25)
	// пик внутри окна
	hist[15].High = d("105")

	res, err := Resistance(hist, 20)
	require.NoError(t, err)
	assert.True(t, res.Equal(d("105")))

	// новый исторический максимум на живой свече уровень менять не должен
	hist = append(hist, candleAt(25, "110", "108", "109", "1000"))
	res, err = Resistance(hist, 20)
	require.NoError(t, err)
	assert.True(t, res.Equal(d("105")), "live candle must not move the level, got %s", res)

	// а когда эта свеча перестала быть текущей — попадает в окно
	hist = append(hist, candleAt(26, "109.5", "108.5", "109", "1000"))
	res, err = Resistance(hist, 20)
	require.NoError(t, err)
	assert.True(t, res.Equal(d("110")))
}

func TestSupportExcludesCurrentCandle(t *testing.T) {
	hist := flatSeries(25)
	hist[20].Low = d("95")

	sup, err := Support(hist, 20)
	require.NoError(t, err)
	assert.True(t, sup.Equal(d("95")))

	hist = append(hist, candleAt(25, "94", "90", "91", "1000"))
	sup, err = Support(hist, 20)
	require.NoError(t, err)
	assert.True(t, sup.Equal(d("95")))
}

func TestLevelsInsufficientData(t *testing.T) {
	_, err := Resistance(flatSeries(20), 20) // нужно lookback+1
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, err = Support(flatSeries(5), 20)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAverageVolumeIncludesCurrent(t *testing.T) {
	hist := flatSeries(20)
	hist[19].Volume = d("2000") // текущая свеча входит в среднее

	avg, err := AverageVolume(hist, 20)
	require.NoError(t, err)
	assert.True(t, avg.Equal(d("1050")), "got %s", avg)
}

func TestIsVolumeSpike(t *testing.T) {
	assert.True(t, IsVolumeSpike(d("2000"), d("1000"), d("1.5")))
	assert.False(t, IsVolumeSpike(d("1500"), d("1000"), d("1.5"))) // граница не спайк
	assert.False(t, IsVolumeSpike(d("2000"), decimal.Zero, d("1.5")))
}

func TestRSIAllGainsIsExactly100(t *testing.T) {
	hist := driftSeries(20, 100, 0.5)
	rsi, err := RSI(hist, 14)
	require.NoError(t, err)
	assert.True(t, rsi.Equal(d("100")), "got %s", rsi)
}

func TestRSIBalancedIs50(t *testing.T) {
	// 14 изменений: чередование +1/-1, средние прибыль и убыток равны
	hist := make([]models.Candle, 0, 15)
	px := d("100")
	for i := 0; i < 15; i++ {
		hist = append(hist, models.Candle{
			Open: px, High: px.Add(d("1")), Low: px.Sub(d("1")), Close: px,
			Volume: d("1000"), Ts: time.Unix(int64(i)*60, 0),
		})
		if i%2 == 0 {
			px = px.Add(d("1"))
		} else {
			px = px.Sub(d("1"))
		}
	}
	rsi, err := RSI(hist, 14)
	require.NoError(t, err)
	assert.True(t, rsi.Equal(d("50")), "got %s", rsi)
}

func TestRSIInsufficientData(t *testing.T) {
	_, err := RSI(flatSeries(14), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSMA(t *testing.T) {
	vals := []decimal.Decimal{d("1"), d("2"), d("3"), d("4"), d("5")}
	sma, err := SMA(vals, 5)
	require.NoError(t, err)
	assert.True(t, sma.Equal(d("3")))

	sma, err = SMA(vals, 2)
	require.NoError(t, err)
	assert.True(t, sma.Equal(d("4.5")))

	_, err = SMA(vals, 6)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEMA(t *testing.T) {
	vals := make([]decimal.Decimal, 0, 10)
	for i := 1; i <= 10; i++ {
		vals = append(vals, decimal.NewFromInt(int64(i)))
	}
	// seed = SMA(1..5) = 3, k = 1/3, далее по одной единице за шаг до 8
	ema, err := EMA(vals, 5)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, ema.InexactFloat64(), 1e-9)

	// короткий ряд: сид первым значением, k тот же
	// ema(1,2,3; k=1/3): 1 -> 4/3 -> 17/9
	ema, err = EMA(vals[:3], 5)
	require.NoError(t, err)
	assert.InDelta(t, 17.0/9.0, ema.InexactFloat64(), 1e-9)

	// на коротком ряду разные периоды дают разные значения
	e5, err := EMA(vals[:3], 5)
	require.NoError(t, err)
	e9, err := EMA(vals[:3], 9)
	require.NoError(t, err)
	assert.False(t, e5.Equal(e9))
}

func TestATR(t *testing.T) {
	// свечи с известными TR: gap вверх учитывает |high - prevClose|
	hist := []models.Candle{
		candleAt(0, "101", "99", "100", "10"),
		candleAt(1, "103", "101", "102", "10"), // TR = max(2, 3, 1) = 3
		candleAt(2, "104", "102", "103", "10"), // TR = max(2, 2, 0) = 2
	}
	atr, err := ATR(hist, 2)
	require.NoError(t, err)
	assert.True(t, atr.Equal(d("2.5")), "got %s", atr)

	_, err = ATR(hist, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMACDTrendingUp(t *testing.T) {
	hist := driftSeries(60, 100, 1)
	res, err := MACD(hist, 12, 26, 9)
	require.NoError(t, err)
	assert.True(t, res.Line.IsPositive(), "line=%s", res.Line)
	assert.True(t, res.Histogram.IsPositive(), "hist=%s", res.Histogram)
}

func TestBollingerFlat(t *testing.T) {
	vals := make([]decimal.Decimal, 20)
	for i := range vals {
		vals[i] = d("100")
	}
	b, err := BollingerBands(vals, 20, d("2"))
	require.NoError(t, err)
	assert.True(t, b.Upper.Equal(d("100")))
	assert.True(t, b.Middle.Equal(d("100")))
	assert.True(t, b.Lower.Equal(d("100")))
}

func TestDetectBreakoutBoundaryExclusive(t *testing.T) {
	res, sup, buf := d("100"), d("90"), d("0.01")

	assert.Equal(t, DirNone, DetectBreakout(d("101"), res, sup, buf)) // ровно граница
	assert.Equal(t, DirBullish, DetectBreakout(d("101.0001"), res, sup, buf))
	assert.Equal(t, DirNone, DetectBreakout(d("89.1"), res, sup, buf))
	assert.Equal(t, DirBearish, DetectBreakout(d("89.09"), res, sup, buf))
	assert.Equal(t, DirNone, DetectBreakout(d("95"), res, sup, buf))
}

func TestVWAP(t *testing.T) {
	hist := []models.Candle{
		candleAt(0, "102", "98", "100", "10"), // typical = 100
		candleAt(1, "112", "108", "110", "30"), // typical = 110
	}
	v, err := VWAP(hist)
	require.NoError(t, err)
	// (100*10 + 110*30) / 40 = 107.5
	assert.True(t, v.Equal(d("107.5")), "got %s", v)
}

func TestDetectPriceStructure(t *testing.T) {
	up, err := DetectPriceStructure(driftSeries(20, 100, 1), 10)
	require.NoError(t, err)
	assert.Equal(t, StructureHigherHighs, up)

	down, err := DetectPriceStructure(driftSeries(20, 100, -1), 10)
	require.NoError(t, err)
	assert.Equal(t, StructureLowerLows, down)

	choppy, err := DetectPriceStructure(flatSeries(20), 10)
	require.NoError(t, err)
	assert.Equal(t, StructureChoppy, choppy)

	_, err = DetectPriceStructure(flatSeries(19), 10)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestDetectTrend(t *testing.T) {
	up, err := DetectTrend(driftSeries(60, 100, 1), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, TrendUp, up)

	down, err := DetectTrend(driftSeries(60, 100, -1), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, TrendDown, down)

	// плоский рынок отсекается ATR-фильтром
	flat, err := DetectTrend(flatSeries(60), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, TrendSideways, flat)
}

func TestIsEmaAligned(t *testing.T) {
	hist := driftSeries(60, 100, 1)

	ok, why, err := IsEmaAligned(hist, DirBullish)
	require.NoError(t, err)
	assert.True(t, ok, why)

	ok, why, err = IsEmaAligned(hist, DirBearish)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, why, "price")
}

func TestMomentumScore(t *testing.T) {
	hist := driftSeries(60, 100, 1)
	avg, err := AverageVolume(hist, 20)
	require.NoError(t, err)

	bull, err := MomentumScore(hist, avg.Mul(d("2")), avg, DirBullish)
	require.NoError(t, err)
	bear, err := MomentumScore(hist, avg.Mul(d("2")), avg, DirBearish)
	require.NoError(t, err)

	assert.Greater(t, bull, 0.5)
	assert.Greater(t, bull, bear)
	assert.LessOrEqual(t, bull, 1.0)

	none, err := MomentumScore(hist, avg, avg, DirNone)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestValidateHistory(t *testing.T) {
	hist := flatSeries(5)
	require.NoError(t, ValidateHistory(hist))

	hist[2].High = d("99") // high < low
	err := ValidateHistory(hist)
	assert.ErrorIs(t, err, ErrValidation)

	hist = flatSeries(5)
	hist[0].Close = decimal.Zero
	assert.ErrorIs(t, ValidateHistory(hist), ErrValidation)
}
