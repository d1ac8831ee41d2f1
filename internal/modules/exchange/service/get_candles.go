package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

// GetCandles — закрытые свечи по символу, по возрастанию времени.
// Может вернуть меньше count; на отказ отдаёт пустой срез, а не панику выше.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, count int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("instId", symbol)
	q.Set("bar", helper.NormTF(interval))
	q.Set("limit", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/api/v5/market/candles?"+q.Encode(),
		nil,
	)
	if err != nil {
		return nil, errors.Wrap(ErrExchange, err.Error())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrExchange, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrapf(ErrExchange, "candles http %d: %s", resp.StatusCode, string(b))
	}

	var payload struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(ErrExchange, err.Error())
	}
	if payload.Code != "0" {
		return nil, errors.Wrapf(ErrExchange, "candles code=%s msg=%s", payload.Code, payload.Msg)
	}

	// данные приходят от новых к старым, последняя строка может быть неподтверждённой
	out := make([]models.Candle, 0, len(payload.Data))
	for i := len(payload.Data) - 1; i >= 0; i-- {
		row := payload.Data[i]
		// [ts, o, h, l, c, vol, ..., confirm]
		if len(row) < 6 {
			continue
		}
		if row[len(row)-1] != "1" {
			continue // ждём закрытую свечу
		}
		candle, err := parseCandleRow(row)
		if err != nil {
			logger.Debug("[CANDLES] %s skip row: %v", symbol, err)
			continue
		}
		out = append(out, candle)
	}
	return out, nil
}

func parseCandleRow(row []string) (models.Candle, error) {
	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("ts: %w", err)
	}
	open, err := decimal.NewFromString(row[1])
	if err != nil {
		return models.Candle{}, fmt.Errorf("open: %w", err)
	}
	high, err := decimal.NewFromString(row[2])
	if err != nil {
		return models.Candle{}, fmt.Errorf("high: %w", err)
	}
	low, err := decimal.NewFromString(row[3])
	if err != nil {
		return models.Candle{}, fmt.Errorf("low: %w", err)
	}
	closePx, err := decimal.NewFromString(row[4])
	if err != nil {
		return models.Candle{}, fmt.Errorf("close: %w", err)
	}
	vol, err := decimal.NewFromString(row[5])
	if err != nil {
		return models.Candle{}, fmt.Errorf("volume: %w", err)
	}

	c := models.Candle{
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: vol,
		Ts:     time.UnixMilli(tsMs),
	}
	if !c.Valid() {
		return models.Candle{}, fmt.Errorf("invalid candle h=%s l=%s c=%s", high, low, closePx)
	}
	return c, nil
}
