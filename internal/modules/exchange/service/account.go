package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
)

// OpenPositions — живые позиции на бирже. Единственный source of truth
// для движка после рестарта.
func (c *Client) OpenPositions(ctx context.Context) ([]models.OpenPosition, error) {
	const requestPath = "/api/v5/account/positions"

	data, err := c.signedGet(ctx, requestPath)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			InstID  string `json:"instId"`
			PosSide string `json:"posSide"`
			Pos     string `json:"pos"`
			AvgPx   string `json:"avgPx"`
			MarkPx  string `json:"markPx"`
			Upl     string `json:"upl"`
			UTime   string `json:"uTime"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(ErrExchange, err.Error())
	}
	if payload.Code != "0" {
		return nil, errors.Wrapf(ErrExchange, "positions code=%s msg=%s", payload.Code, payload.Msg)
	}

	out := make([]models.OpenPosition, 0, len(payload.Data))
	for _, p := range payload.Data {
		size, err := decimal.NewFromString(p.Pos)
		if err != nil || !size.IsPositive() {
			continue
		}
		side := models.Side(p.PosSide)
		if side != models.SideLong && side != models.SideShort {
			continue
		}
		entry, err1 := decimal.NewFromString(p.AvgPx)
		mark, err2 := decimal.NewFromString(p.MarkPx)
		if err1 != nil || err2 != nil {
			continue
		}
		upl := decimal.Zero
		if p.Upl != "" {
			upl, _ = decimal.NewFromString(p.Upl)
		}
		pos := models.OpenPosition{
			Symbol: p.InstID,
			Side:   side,
			Size:   size,
			Entry:  entry,
			MarkPx: mark,
			Upl:    upl,
		}
		if ms, err := parseMillis(p.UTime); err == nil {
			pos.Updated = ms
		}
		out = append(out, pos)
	}
	return out, nil
}

// Balance — доступный и общий эквити в USDT.
func (c *Client) Balance(ctx context.Context) (models.Balance, error) {
	const requestPath = "/api/v5/account/balance?ccy=USDT"

	data, err := c.signedGet(ctx, requestPath)
	if err != nil {
		return models.Balance{}, err
	}

	var payload struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			TotalEq string `json:"totalEq"`
			Details []struct {
				Ccy     string `json:"ccy"`
				AvailEq string `json:"availEq"`
				Eq      string `json:"eq"`
			} `json:"details"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.Balance{}, errors.Wrap(ErrExchange, err.Error())
	}
	if payload.Code != "0" || len(payload.Data) == 0 {
		return models.Balance{}, errors.Wrapf(ErrExchange, "balance code=%s msg=%s", payload.Code, payload.Msg)
	}

	var bal models.Balance
	if total, err := decimal.NewFromString(payload.Data[0].TotalEq); err == nil {
		bal.Total = total
	}
	for _, det := range payload.Data[0].Details {
		if det.Ccy != "USDT" {
			continue
		}
		if avail, err := decimal.NewFromString(det.AvailEq); err == nil {
			bal.Avail = avail
		}
		break
	}
	return bal, nil
}

func (c *Client) signedGet(ctx context.Context, requestPath string) ([]byte, error) {
	ts := nowTS()
	sign := c.sign(ts, http.MethodGet, requestPath, "")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+requestPath, nil)
	if err != nil {
		return nil, errors.Wrap(ErrExchange, err.Error())
	}
	c.setAuthHeaders(req, ts, sign)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrExchange, err.Error())
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, errors.Wrapf(ErrExchange, "%s http %d: %s", requestPath, resp.StatusCode, string(data))
	}
	return data, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
