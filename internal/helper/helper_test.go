package helper

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundToTick(t *testing.T) {
	assert.True(t, d("100.12").Equal(RoundToTick(d("100.1234"), d("0.01"))))
	assert.True(t, d("100.13").Equal(RoundUpToTick(d("100.1234"), d("0.01"))))
	// tick=0 — цена не трогается
	assert.True(t, d("100.1234").Equal(RoundToTick(d("100.1234"), decimal.Zero)))
	// точное попадание в шаг не двигается ни вверх ни вниз
	assert.True(t, d("100.5").Equal(RoundToTick(d("100.5"), d("0.5"))))
	assert.True(t, d("100.5").Equal(RoundUpToTick(d("100.5"), d("0.5"))))
}

func TestPctChange(t *testing.T) {
	assert.True(t, d("5").Equal(PctChange(d("100"), d("105"))))
	assert.True(t, d("-2").Equal(PctChange(d("100"), d("98"))))
	assert.True(t, PctChange(decimal.Zero, d("98")).IsZero())
}
