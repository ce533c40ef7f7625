package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"oilmill/internal/core/id"
	"oilmill/internal/domain/events"
)

// Outbox is the transactional outbox in sys_outbox. Publish writes inside
// the caller's transaction; the relay side implements events.Store.
type Outbox struct {
	txm *TxManager
}

var (
	_ events.Publisher = (*Outbox)(nil)
	_ events.Store     = (*Outbox)(nil)
)

// NewOutbox creates an outbox.
func NewOutbox(txm *TxManager) *Outbox {
	return &Outbox{txm: txm}
}

// Publish writes an event. It must be called inside a transaction.
func (o *Outbox) Publish(ctx context.Context, e events.Event) error {
	tx, err := o.txm.requireTx(ctx, "outbox publish")
	if err != nil {
		return err
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	sql, args, err := builder().
		Insert("sys_outbox").
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at").
		Values(id.New(), e.AggregateType, e.AggregateID, e.EventType, payload, events.StatusPending, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// FetchPending returns due pending messages. Rows are locked with SKIP LOCKED
// when called inside a transaction, so two relays never deliver the same row.
func (o *Outbox) FetchPending(ctx context.Context, limit int) ([]events.Message, error) {
	sql, args, err := fetchPendingQuery(limit, time.Now().UTC()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outbox query: %w", err)
	}
	var msgs []events.Message
	if err := selectAll(ctx, o.txm.GetQuerier(ctx), &msgs, sql, args...); err != nil {
		return nil, fmt.Errorf("fetch outbox messages: %w", err)
	}
	return msgs, nil
}

func fetchPendingQuery(limit int, now time.Time) squirrel.SelectBuilder {
	return builder().
		Select(Columns[events.Message]()...).
		From("sys_outbox").
		Where(squirrel.Eq{"status": events.StatusPending}).
		Where(squirrel.Or{
			squirrel.Eq{"next_retry_at": nil},
			squirrel.LtOrEq{"next_retry_at": now},
		}).
		OrderBy("created_at").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")
}

// MarkPublished implements events.Store.
func (o *Outbox) MarkPublished(ctx context.Context, msgID id.ID, at time.Time) error {
	sql, args, err := builder().
		Update("sys_outbox").
		Set("status", events.StatusPublished).
		Set("published_at", at).
		Where(squirrel.Eq{"id": msgID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox update: %w", err)
	}
	_, err = o.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	return err
}

// MarkRetry implements events.Store.
func (o *Outbox) MarkRetry(ctx context.Context, msgID id.ID, cause string, next time.Time) error {
	sql, args, err := markRetryQuery(msgID, cause, next).ToSql()
	if err != nil {
		return fmt.Errorf("build outbox update: %w", err)
	}
	_, err = o.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	return err
}

func markRetryQuery(msgID id.ID, cause string, next time.Time) squirrel.UpdateBuilder {
	return builder().
		Update("sys_outbox").
		Set("retry_count", squirrel.Expr("retry_count + 1")).
		Set("last_error", cause).
		Set("next_retry_at", next).
		Set("status", squirrel.Expr("CASE WHEN retry_count + 1 >= ? THEN ? ELSE status END", events.MaxRetries, events.StatusFailed)).
		Where(squirrel.Eq{"id": msgID})
}
