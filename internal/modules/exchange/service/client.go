package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"breakout_bot/internal/modules/config"
)

// ErrExchange — любой отказ биржи: http, код ответа, отклонённый ордер.
// Движок такие ошибки не эскалирует, только репортит и ждёт следующий тик.
var ErrExchange = errors.New("exchange request failed")

type Client struct {
	http     *http.Client
	wsDialer websocket.Dialer

	baseURL string
	wsURL   string

	apiKey    string
	apiSecret string
	passph    string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		http: &http.Client{Timeout: 10 * time.Second},
		wsDialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		baseURL:   cfg.Exchange.BaseURL,
		wsURL:     cfg.Exchange.WSURL,
		apiKey:    cfg.Exchange.APIKey,
		apiSecret: cfg.Exchange.APISecret,
		passph:    cfg.Exchange.Passphrase,
	}
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (c *Client) setAuthHeaders(req *http.Request, ts, sign string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OK-ACCESS-KEY", c.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", sign)
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
}

func nowTS() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
