package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Duration — time.Duration с разбором строк вида "15m"/"30s" из yaml:
// yaml.v2 сам по себе в time.Duration строку не кладёт.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// StopMode — политика процентов трейлинг-стопа.
// flat: один процент на все символы.
// tiered: по бакету волатильности символа из presets (low/medium/high).
type StopMode string

const (
	StopModeFlat   StopMode = "flat"
	StopModeTiered StopMode = "tiered"
)

type StrategyConfig struct {
	LookbackPeriod   int     `yaml:"lookback_period"`    // окно support/resistance
	BreakoutBuffer   float64 `yaml:"breakout_buffer"`    // доля, напр. 0.001 = 0.1%
	VolumeSpikeMult  float64 `yaml:"volume_spike_mult"`  // объём > avg * mult
	LargeMovePct     float64 `yaml:"large_move_pct"`     // % за одну свечу
	CumulativePct    float64 `yaml:"cumulative_pct"`     // % за окно 2..5 свечей
	CumulativeVolMin float64 `yaml:"cumulative_vol_min"` // мин. отношение объёма окна к среднему
	RSIOverbought    float64 `yaml:"rsi_overbought"`
	RSIOversold      float64 `yaml:"rsi_oversold"`

	// Политика стопа (см. DESIGN.md, вопрос из двух вариантов движка)
	StopMode StopMode `yaml:"stop_mode"`
	StopPct  float64  `yaml:"stop_pct"` // для flat, напр. 5.0 => 5%

	TakeProfitPct float64 `yaml:"take_profit_pct"` // 0 => тейк не ставим

	// Строгий тренд для cumulative-move сигналов (второй спорный пункт)
	StrictTrendForCumulative bool `yaml:"strict_trend_for_cumulative"`

	// trend-following подстратегия
	TrendFollowEnabled  bool    `yaml:"trend_follow_enabled"`
	TrendConsecutive    int     `yaml:"trend_consecutive"`     // N одинаковых чтений тренда подряд
	TrendSMAPeriod      int     `yaml:"trend_sma_period"`      // цена по нужную сторону SMA(N)
	TrendVolumeMult     float64 `yaml:"trend_volume_mult"`     // объём >= mult * avg
	TrendMaxDistancePct float64 `yaml:"trend_max_distance_pct"` // макс. удаление от hi/lo

	PositionSizeUSD float64  `yaml:"position_size_usd"`
	CooldownWindow  Duration `yaml:"cooldown_window"` // после стоп-лосса
	CloseGrace      Duration `yaml:"close_grace"`     // анти-дубль закрытия
}

type RiskConfig struct {
	MaxOpenPositions  int     `yaml:"max_open_positions"`
	MinFreeMarginPct  float64 `yaml:"min_free_margin_pct"`
	DailyLossLimitUSD float64 `yaml:"daily_loss_limit_usd"`
}

type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Host       string `yaml:"host"`
		HealthPort int    `yaml:"health_port"`
	} `yaml:"service"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	Exchange struct {
		BaseURL    string `yaml:"base_url"`
		WSURL      string `yaml:"ws_url"`
		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
		Passphrase string `yaml:"passphrase"`
	} `yaml:"exchange"`

	Watchlist []string `yaml:"watchlist"`
	Timeframe string   `yaml:"timeframe"`

	SignalInterval Duration `yaml:"signal_interval"` // медленный цикл: история + сигналы
	TrailInterval  Duration `yaml:"trail_interval"`  // быстрый цикл: трейлинг

	SymbolPresetsFile string `yaml:"symbol_presets_file"`

	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	config := defaults()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaults() *Config {
	c := &Config{
		Timeframe:         getenvDefault("TIMEFRAME", "5m"),
		SignalInterval:    Duration(durationFromEnv("SIGNAL_INTERVAL", "1m")),
		TrailInterval:     Duration(durationFromEnv("TRAIL_INTERVAL", "15s")),
		SymbolPresetsFile: getenvDefault("SYMBOL_PRESETS_FILE", "configs/symbols.yaml"),
		Strategy: StrategyConfig{
			LookbackPeriod:   intFromEnv("LOOKBACK_PERIOD", 20),
			BreakoutBuffer:   0.001,
			VolumeSpikeMult:  1.5,
			LargeMovePct:     5.0,
			CumulativePct:    1.75,
			CumulativeVolMin: 0.2,
			RSIOverbought:    70,
			RSIOversold:      30,

			StopMode: StopModeFlat,
			StopPct:  floatFromEnv("STOP_PCT", 5.0),

			StrictTrendForCumulative: true,

			TrendConsecutive:    3,
			TrendSMAPeriod:      20,
			TrendVolumeMult:     1.2,
			TrendMaxDistancePct: 1.0,

			PositionSizeUSD: floatFromEnv("POSITION_SIZE_USD", 100),
			CooldownWindow:  Duration(15 * time.Minute),
			CloseGrace:      Duration(time.Minute),
		},
		Risk: RiskConfig{
			MaxOpenPositions:  intFromEnv("MAX_OPEN_POSITIONS", 10),
			MinFreeMarginPct:  10,
			DailyLossLimitUSD: floatFromEnv("DAILY_LOSS_LIMIT_USD", 0),
		},
	}
	c.Service.HealthPort = intFromEnv("HEALTH_PORT", 8080)
	c.Exchange.BaseURL = getenvDefault("EXCHANGE_BASE_URL", "https://www.okx.com")
	c.Exchange.WSURL = getenvDefault("EXCHANGE_WS_URL", "wss://ws.okx.com:8443/ws/v5/public")
	c.Exchange.APIKey = os.Getenv("EXCHANGE_API_KEY")
	c.Exchange.APISecret = os.Getenv("EXCHANGE_API_SECRET")
	c.Exchange.Passphrase = os.Getenv("EXCHANGE_PASSPHRASE")
	return c
}

// Validate — кривые параметры стратегии фатальны на старте, не в рантайме.
func (c *Config) Validate() error {
	s := c.Strategy
	switch {
	case s.LookbackPeriod < 1:
		return fmt.Errorf("strategy: lookback_period must be >= 1, got %d", s.LookbackPeriod)
	case s.BreakoutBuffer < 0:
		return fmt.Errorf("strategy: breakout_buffer must be >= 0, got %f", s.BreakoutBuffer)
	case s.VolumeSpikeMult <= 0:
		return fmt.Errorf("strategy: volume_spike_mult must be > 0, got %f", s.VolumeSpikeMult)
	case s.StopPct <= 0 && s.StopMode == StopModeFlat:
		return fmt.Errorf("strategy: stop_pct must be > 0 in flat mode, got %f", s.StopPct)
	case s.PositionSizeUSD <= 0:
		return fmt.Errorf("strategy: position_size_usd must be > 0, got %f", s.PositionSizeUSD)
	case s.CooldownWindow <= 0:
		return fmt.Errorf("strategy: cooldown_window must be > 0, got %s", s.CooldownWindow)
	case s.StopMode != StopModeFlat && s.StopMode != StopModeTiered:
		return fmt.Errorf("strategy: unknown stop_mode %q", s.StopMode)
	}
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist is empty")
	}
	return nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
