package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

// Notifier — fire-and-forget. Ошибки отправки никогда не влияют на движок.
type Notifier interface {
	PositionOpened(ctx context.Context, sig models.Signal, qty decimal.Decimal, orderID string)
	PositionClosed(ctx context.Context, symbol string, side models.Side, reason string, pnl decimal.Decimal)
	NotifyError(ctx context.Context, msg string, err error)
}

type PositionSource interface {
	OpenPositions(ctx context.Context) ([]models.OpenPosition, error)
}

// Telegram — пассивный нотифайер + одна команда /positions.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	ex     PositionSource

	mu       sync.Mutex
	lastSent map[string]time.Time // анти-спам по ключу сообщения
}

func NewTelegram(token string, chatID int64, ex PositionSource) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:      b,
		chatID:   chatID,
		ex:       ex,
		lastSent: make(map[string]time.Time),
	}, nil
}

func (t *Telegram) send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

// canSend — не чаще одного сообщения с данным ключом за окно.
func (t *Telegram) canSend(key string, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.lastSent[key]; ok && time.Since(last) < window {
		return false
	}
	t.lastSent[key] = time.Now()
	return true
}

func (t *Telegram) PositionOpened(_ context.Context, sig models.Signal, qty decimal.Decimal, orderID string) {
	arrow := "📈"
	if sig.Side == models.SideShort {
		arrow = "📉"
	}
	tp := "—"
	if sig.HasTakeProfit() {
		tp = sig.TakeProfit.String()
	}
	t.send(fmt.Sprintf(
		"%s [%s] OPEN %s @ %s | SL=%s TP=%s sz=%s conf=%.2f | %s (orderId=%s)",
		arrow, sig.Symbol, strings.ToUpper(string(sig.Side)),
		sig.Entry, sig.StopLoss, tp, qty, sig.Confidence, sig.Reason, orderID,
	))
}

func (t *Telegram) PositionClosed(_ context.Context, symbol string, side models.Side, reason string, pnl decimal.Decimal) {
	emoji := "✅"
	if pnl.Sign() < 0 {
		emoji = "🔻"
	}
	t.send(fmt.Sprintf(
		"%s [%s] Позиция закрыта (%s) | pnl=%s | %s",
		emoji, symbol, side, pnl, reason,
	))
}

func (t *Telegram) NotifyError(_ context.Context, msg string, err error) {
	if !t.canSend("err:"+msg, 5*time.Minute) {
		return
	}
	t.send(fmt.Sprintf("❗️ %s: %v", msg, err))
}

// /positions — вывод открытых позиций
func (t *Telegram) handlePositions(ctx context.Context) {
	if t.ex == nil {
		t.send("❗️ Клиент биржи не инициализирован")
		return
	}
	positions, err := t.ex.OpenPositions(ctx)
	if err != nil {
		t.send(fmt.Sprintf("❗️ Ошибка получения позиций: %v", err))
		return
	}
	if len(positions) == 0 {
		t.send("📭 Открытых позиций нет")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s [%s] sz=%s @ %s mark=%s upl=%s\n",
			p.Symbol, strings.ToUpper(string(p.Side)), p.Size, p.Entry, p.MarkPx, p.Upl)
	}
	t.send(b.String())
}

// Start: long-polling только ради команд.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					go t.handlePositions(ctx)
				}
			}
		}
	}()
	return nil
}

// Stdout — заглушка: всё в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) PositionOpened(_ context.Context, sig models.Signal, qty decimal.Decimal, orderID string) {
	logger.Info("[NOTIFY] open %s %s @ %s sl=%s sz=%s (%s)", sig.Symbol, sig.Side, sig.Entry, sig.StopLoss, qty, orderID)
}

func (s *Stdout) PositionClosed(_ context.Context, symbol string, side models.Side, reason string, pnl decimal.Decimal) {
	logger.Info("[NOTIFY] close %s %s pnl=%s reason=%s", symbol, side, pnl, reason)
}

func (s *Stdout) NotifyError(_ context.Context, msg string, err error) {
	logger.Error("[NOTIFY] %s: %v", msg, err)
}
