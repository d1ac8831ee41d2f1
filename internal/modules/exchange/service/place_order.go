package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"breakout_bot/internal/models"
)

// PlaceOrder — лимитный ордер. Цена и размер должны быть уже
// округлены к шагам инструмента вызывающим кодом.
func (c *Client) PlaceOrder(ctx context.Context, ord models.OrderRequest) (models.OrderResult, error) {
	if !ord.Qty.IsPositive() {
		return models.OrderResult{}, errors.Wrap(ErrExchange, "order qty <= 0")
	}
	if !ord.Price.IsPositive() {
		return models.OrderResult{}, errors.Wrap(ErrExchange, "order price <= 0")
	}

	// открытие long => buy, закрытие long => sell; для short зеркально
	side := "buy"
	if (ord.Side == models.SideLong) == ord.ReduceOnly {
		side = "sell"
	}

	body := map[string]any{
		"instId":  ord.Symbol,
		"tdMode":  "cross",
		"side":    side,
		"posSide": string(ord.Side),
		"ordType": "limit",
		"px":      ord.Price.String(),
		"sz":      ord.Qty.String(),
	}
	if ord.ReduceOnly {
		body["reduceOnly"] = true
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return models.OrderResult{}, errors.Wrap(ErrExchange, err.Error())
	}

	const requestPath = "/api/v5/trade/order"
	ts := nowTS()
	sign := c.sign(ts, http.MethodPost, requestPath, string(payload))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+requestPath,
		bytes.NewReader(payload),
	)
	if err != nil {
		return models.OrderResult{}, errors.Wrap(ErrExchange, err.Error())
	}
	c.setAuthHeaders(req, ts, sign)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.OrderResult{}, errors.Wrap(ErrExchange, err.Error())
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.OrderResult{}, errors.Wrapf(ErrExchange, "order http %d: %s", resp.StatusCode, string(data))
	}

	var wrap struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			OrdID string `json:"ordId"`
			SCode string `json:"sCode"`
			SMsg  string `json:"sMsg"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &wrap); err != nil {
		return models.OrderResult{}, errors.Wrap(ErrExchange, err.Error())
	}
	if len(wrap.Data) == 0 {
		return models.OrderResult{}, errors.Wrapf(ErrExchange, "order empty data code=%s msg=%s", wrap.Code, wrap.Msg)
	}
	d := wrap.Data[0]
	if wrap.Code != "0" || d.SCode != "0" {
		return models.OrderResult{}, errors.Wrapf(ErrExchange,
			"order rejected code=%s msg=%s sCode=%s sMsg=%s", wrap.Code, wrap.Msg, d.SCode, d.SMsg)
	}
	return models.OrderResult{OrderID: d.OrdID}, nil
}
