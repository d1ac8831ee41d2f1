package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"breakout_bot/pkg/logger"
)

type MarkTick struct {
	Symbol string
	Price  decimal.Decimal
	Ts     time.Time
}

// StreamMarkPrices — один websocket на все символы watchlist.
// Быстрый канал для трейлинга между REST-обновлениями позиций.
// onState дёргается при коннекте/дисконнекте (для health).
func (c *Client) StreamMarkPrices(ctx context.Context, symbols []string, onState func(connected bool)) <-chan MarkTick {
	ch := make(chan MarkTick)

	go func() {
		defer close(ch)

		if len(symbols) == 0 {
			return
		}

		args := make([]map[string]string, 0, len(symbols))
		for _, s := range symbols {
			args = append(args, map[string]string{
				"channel": "mark-price",
				"instId":  s,
			})
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			logger.Info("[WS] mark-price connect, %d symbols", len(symbols))
			conn, _, err := c.wsDialer.Dial(c.wsURL, nil)
			if err != nil {
				logger.Error("[WS] dial: %v", err)
				time.Sleep(time.Second)
				continue
			}

			sub := map[string]any{"op": "subscribe", "args": args}
			if err := conn.WriteJSON(sub); err != nil {
				logger.Error("[WS] subscribe: %v", err)
				_ = conn.Close()
				continue
			}
			if onState != nil {
				onState(true)
			}

			// keepalive ping — иначе сервер рвёт соединение
			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(20 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-stopPing:
						return
					case <-t.C:
						_ = conn.WriteJSON(map[string]string{"op": "ping"})
					}
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					logger.Error("[WS] read: %v", err)
					_ = conn.Close()
					close(stopPing)
					if onState != nil {
						onState(false)
					}
					break
				}

				var frame struct {
					Arg struct {
						Channel string `json:"channel"`
						InstID  string `json:"instId"`
					} `json:"arg"`
					Data []struct {
						MarkPx string `json:"markPx"`
						Ts     string `json:"ts"`
					} `json:"data"`
				}
				if err := json.Unmarshal(msg, &frame); err != nil {
					continue
				}
				if frame.Arg.Channel != "mark-price" || len(frame.Data) == 0 {
					continue
				}

				for _, row := range frame.Data {
					px, err := decimal.NewFromString(row.MarkPx)
					if err != nil || !px.IsPositive() {
						continue
					}
					tick := MarkTick{Symbol: frame.Arg.InstID, Price: px, Ts: time.Now()}

					select {
					case ch <- tick:
					case <-ctx.Done():
						_ = conn.Close()
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()

	return ch
}
