package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePresets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func baseCfg(file string, mode StopMode) *Config {
	c := defaults()
	c.SymbolPresetsFile = file
	c.Strategy.StopMode = mode
	c.Strategy.StopPct = 5
	return c
}

func TestPresetsTickSize(t *testing.T) {
	file := writePresets(t, `
default_tick_size: "0.01"
symbols:
  BTC-USDT-SWAP:
    tick_size: "0.1"
    volatility: low
  DOGE-USDT-SWAP:
    tick_size: "0.00001"
    volatility: high
`)
	p, err := LoadSymbolPresets(baseCfg(file, StopModeFlat))
	require.NoError(t, err)

	assert.True(t, p.TickSize("BTC-USDT-SWAP").Equal(decimal.RequireFromString("0.1")))
	assert.True(t, p.TickSize("DOGE-USDT-SWAP").Equal(decimal.RequireFromString("0.00001")))
	// неизвестный символ падает в дефолт
	assert.True(t, p.TickSize("XRP-USDT-SWAP").Equal(decimal.RequireFromString("0.01")))
}

func TestPresetsStopPctFlat(t *testing.T) {
	file := writePresets(t, `
symbols:
  BTC-USDT-SWAP:
    volatility: low
`)
	p, err := LoadSymbolPresets(baseCfg(file, StopModeFlat))
	require.NoError(t, err)

	// flat-режим игнорирует бакеты
	assert.True(t, p.StopPct("BTC-USDT-SWAP").Equal(decimal.NewFromInt(5)))
	assert.True(t, p.StopPct("UNKNOWN").Equal(decimal.NewFromInt(5)))
}

func TestPresetsStopPctTiered(t *testing.T) {
	file := writePresets(t, `
stop_pct:
  low: "2.5"
  high: "9"
symbols:
  BTC-USDT-SWAP:
    volatility: low
  PEPE-USDT-SWAP:
    volatility: high
`)
	p, err := LoadSymbolPresets(baseCfg(file, StopModeTiered))
	require.NoError(t, err)

	assert.True(t, p.StopPct("BTC-USDT-SWAP").Equal(decimal.RequireFromString("2.5")))
	assert.True(t, p.StopPct("PEPE-USDT-SWAP").Equal(decimal.RequireFromString("9")))
	// неизвестный символ — medium-бакет
	assert.True(t, p.StopPct("XRP-USDT-SWAP").Equal(decimal.NewFromInt(5)))
}

func TestPresetsMissingFile(t *testing.T) {
	cfg := baseCfg(filepath.Join(t.TempDir(), "nope.yaml"), StopModeFlat)
	p, err := LoadSymbolPresets(cfg)
	require.NoError(t, err)
	assert.True(t, p.TickSize("ANY").Equal(decimal.RequireFromString("0.0001")))
}

func TestConfigValidate(t *testing.T) {
	c := defaults()
	c.Watchlist = []string{"BTC-USDT-SWAP"}
	require.NoError(t, c.Validate())

	c.Strategy.LookbackPeriod = -1
	assert.Error(t, c.Validate())

	c = defaults()
	c.Watchlist = []string{"BTC-USDT-SWAP"}
	c.Strategy.StopMode = "banana"
	assert.Error(t, c.Validate())

	c = defaults()
	assert.Error(t, c.Validate()) // пустой watchlist
}
