package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// SymbolPreset — статические параметры символа: шаг цены и бакет волатильности.
type SymbolPreset struct {
	TickSize   string `mapstructure:"tick_size"`
	Volatility string `mapstructure:"volatility"` // low | medium | high
}

type SymbolPresets struct {
	symbols map[string]SymbolPreset

	defaultTick decimal.Decimal
	tierPct     map[string]decimal.Decimal // volatility -> stop pct
	flatPct     decimal.Decimal
	mode        StopMode
}

// LoadSymbolPresets читает yaml с параметрами символов.
// Файла может не быть — тогда работаем на дефолтах.
func LoadSymbolPresets(cfg *Config) (*SymbolPresets, error) {
	p := &SymbolPresets{
		symbols:     map[string]SymbolPreset{},
		defaultTick: decimal.RequireFromString("0.0001"),
		tierPct: map[string]decimal.Decimal{
			"low":    decimal.RequireFromString("3"),
			"medium": decimal.RequireFromString("5"),
			"high":   decimal.RequireFromString("8"),
		},
		flatPct: decimal.NewFromFloat(cfg.Strategy.StopPct),
		mode:    cfg.Strategy.StopMode,
	}

	v := viper.New()
	v.SetConfigFile(cfg.SymbolPresetsFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return p, nil
		}
		// отдельный кейс: SetConfigFile с отсутствующим путём отдаёт *fs.PathError
		if strings.Contains(err.Error(), "no such file") {
			return p, nil
		}
		return nil, errors.Wrap(err, "read symbol presets")
	}

	if v.IsSet("default_tick_size") {
		tick, err := decimal.NewFromString(v.GetString("default_tick_size"))
		if err != nil {
			return nil, errors.Wrap(err, "default_tick_size")
		}
		p.defaultTick = tick
	}
	for tier := range p.tierPct {
		key := "stop_pct." + tier
		if v.IsSet(key) {
			pct, err := decimal.NewFromString(v.GetString(key))
			if err != nil {
				return nil, errors.Wrapf(err, "stop_pct.%s", tier)
			}
			p.tierPct[tier] = pct
		}
	}

	var symbols map[string]SymbolPreset
	if err := v.UnmarshalKey("symbols", &symbols); err != nil {
		return nil, errors.Wrap(err, "unmarshal symbols")
	}
	// viper опускает ключи до lower-case, вернём символы как в конфиге
	for k, sp := range symbols {
		p.symbols[strings.ToUpper(k)] = sp
	}
	return p, nil
}

// TickSize — шаг цены символа, дефолт для неизвестных.
func (p *SymbolPresets) TickSize(symbol string) decimal.Decimal {
	if sp, ok := p.symbols[strings.ToUpper(symbol)]; ok && sp.TickSize != "" {
		if tick, err := decimal.NewFromString(sp.TickSize); err == nil && tick.IsPositive() {
			return tick
		}
	}
	return p.defaultTick
}

// StopPct — процент трейлинг-стопа символа по выбранной политике.
func (p *SymbolPresets) StopPct(symbol string) decimal.Decimal {
	if p.mode != StopModeTiered {
		return p.flatPct
	}
	if sp, ok := p.symbols[strings.ToUpper(symbol)]; ok {
		if pct, ok := p.tierPct[strings.ToLower(sp.Volatility)]; ok {
			return pct
		}
	}
	return p.tierPct["medium"]
}
