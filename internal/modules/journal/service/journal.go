package service

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/db"
	"breakout_bot/pkg/logger"
)

// Journal — аудит сделок в Postgres. Любая ошибка записи только логируется:
// движок не должен зависеть от доступности базы.
type Journal struct {
	tx db.TxManager
}

// NewJournal: tx == nil => журнал выключен (DSN не задан).
func NewJournal(tx db.TxManager) *Journal {
	return &Journal{tx: tx}
}

func (j *Journal) enabled() bool { return j != nil && j.tx != nil }

func (j *Journal) SignalExecuted(ctx context.Context, sig models.Signal, qty decimal.Decimal, orderID string) {
	if !j.enabled() {
		return
	}
	payload, err := sonic.Marshal(sig)
	if err != nil {
		logger.Error("[JOURNAL] marshal signal: %v", err)
		return
	}
	err = j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trade_journal (symbol, side, strategy, entry_px, stop_px, qty, order_id, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
			sig.Symbol, string(sig.Side), string(sig.Strategy),
			sig.Entry.String(), sig.StopLoss.String(), qty.String(), orderID, payload,
		)
		return err
	})
	if err != nil {
		logger.Error("[JOURNAL] insert signal %s: %v", sig.Symbol, err)
	}
}

func (j *Journal) PositionClosed(ctx context.Context, symbol string, side models.Side, reason string, pnl decimal.Decimal) {
	if !j.enabled() {
		return
	}
	err := j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trade_closes (symbol, side, reason, pnl, closed_at)
			VALUES ($1, $2, $3, $4, now())`,
			symbol, string(side), reason, pnl.String(),
		)
		return err
	})
	if err != nil {
		logger.Error("[JOURNAL] insert close %s: %v", symbol, err)
	}
}
