package ledger

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/tx"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/events"
	"oilmill/pkg/logger"
)

// Service records stock movements.
type Service struct {
	items     catalog.Repository
	movements Repository
	txm       tx.Manager
	publisher events.Publisher
	now       func() time.Time
}

// NewService creates a new ledger service.
func NewService(items catalog.Repository, movements Repository, txm tx.Manager, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		items:     items,
		movements: movements,
		txm:       txm,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record appends a single movement and returns its id.
func (s *Service) Record(ctx context.Context, itemID id.ID, delta types.Quantity, reason string) (id.ID, error) {
	moves, err := s.Apply(ctx, []Entry{{ItemID: itemID, Delta: delta, Reason: reason}})
	if err != nil {
		return id.Nil(), err
	}
	return moves[0].ID, nil
}

// Adjust is a manual stock movement. It previews the resulting quantity and
// rejects a change that would go below zero with the current and requested
// values.
func (s *Service) Adjust(ctx context.Context, itemID id.ID, delta types.Quantity, reason string) (*Movement, error) {
	var result Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.items.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		// An out-of-range sum is left to Apply, which rejects it.
		if after, err := item.QuantityOnHand.CheckedAdd(delta); err == nil && after < 0 {
			appErr := apperror.NewInsufficientStock(item.ID.String(), item.Name,
				item.QuantityOnHand.Display(), delta.Abs().Display())
			appErr.Message = fmt.Sprintf("Cannot reduce stock below zero. Current: %s, Requested change: %s",
				item.QuantityOnHand.Display(), delta.Display())
			return appErr.WithDetail("unit", item.Unit)
		}

		moves, err := s.Apply(ctx, []Entry{{ItemID: itemID, Delta: delta, Reason: reason}})
		if err != nil {
			return err
		}
		result = moves[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Lock takes row locks on the given items in ascending id order and returns
// them keyed by id. Must be called inside a transaction.
func (s *Service) Lock(ctx context.Context, itemIDs ...id.ID) (map[id.ID]*catalog.Item, error) {
	locked := make(map[id.ID]*catalog.Item, len(itemIDs))
	for _, itemID := range id.SortedUnique(itemIDs) {
		item, err := s.items.GetForUpdate(ctx, itemID)
		if err != nil {
			return nil, err
		}
		locked[itemID] = item
	}
	return locked, nil
}

// Apply appends entries atomically. Entries are applied in order against
// running balances, so a later decrement may consume an earlier increment of
// the same call. Joins the transaction in ctx or opens one.
func (s *Service) Apply(ctx context.Context, entries []Entry) ([]Movement, error) {
	if len(entries) == 0 {
		return nil, apperror.NewValidation("no ledger entries")
	}
	for i := range entries {
		if id.IsNil(entries[i].ItemID) {
			return nil, apperror.NewValidation("item id is required")
		}
		if entries[i].Delta.IsZero() {
			return nil, apperror.NewValidation("quantity change must not be zero").
				WithDetail("item_id", entries[i].ItemID)
		}
	}

	var movements []Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ids := make([]id.ID, len(entries))
		for i, e := range entries {
			ids[i] = e.ItemID
		}
		locked, err := s.Lock(ctx, ids...)
		if err != nil {
			return err
		}

		balance := make(map[id.ID]types.Quantity, len(locked))
		for itemID, item := range locked {
			balance[itemID] = item.QuantityOnHand
		}

		now := s.now()
		key := eventKeyFrom(ctx)
		movements = make([]Movement, 0, len(entries))
		for _, e := range entries {
			current := balance[e.ItemID]
			after, err := current.CheckedAdd(e.Delta)
			if err != nil {
				item := locked[e.ItemID]
				return apperror.NewValidation("quantity change exceeds the supported range").
					WithDetail("item_id", item.ID).
					WithDetail("current", current.Display()).
					WithDetail("requested", e.Delta.Display())
			}
			if after < 0 {
				item := locked[e.ItemID]
				return apperror.NewInsufficientStock(item.ID.String(), item.Name,
					current.Display(), e.Delta.Abs().Display()).WithDetail("unit", item.Unit)
			}
			balance[e.ItemID] = after

			reason := strings.TrimSpace(e.Reason)
			if reason == "" {
				reason = DefaultReason
			}
			movements = append(movements, Movement{
				ID:             id.New(),
				ItemID:         e.ItemID,
				QuantityChange: e.Delta,
				Reason:         reason,
				EventKey:       key,
				CreatedAt:      now,
			})
		}

		if err := s.movements.AppendMovements(ctx, movements); err != nil {
			return fmt.Errorf("append movements: %w", err)
		}

		for _, itemID := range id.SortedUnique(ids) {
			item := locked[itemID]
			after := balance[itemID]
			if after == item.QuantityOnHand {
				continue
			}
			if err := s.items.SetQuantity(ctx, itemID, after); err != nil {
				return fmt.Errorf("set quantity: %w", err)
			}
			if err := s.publishIfLow(ctx, item, after); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		logger.Info(ctx, "stock movement recorded",
			"movement_id", m.ID,
			"item_id", m.ItemID,
			"quantity_change", m.QuantityChange.Display(),
			"reason", m.Reason,
		)
	}
	return movements, nil
}

// publishIfLow emits stock.low when the item crosses down to its threshold.
func (s *Service) publishIfLow(ctx context.Context, item *catalog.Item, after types.Quantity) error {
	if item.LowStockThreshold.IsZero() {
		return nil
	}
	if item.QuantityOnHand <= item.LowStockThreshold || after > item.LowStockThreshold {
		return nil
	}
	err := s.publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregateItem,
		AggregateID:   item.ID,
		EventType:     events.TypeStockLow,
		Payload: StockLowPayload{
			ItemID:    item.ID,
			ItemName:  item.Name,
			OnHand:    after,
			Threshold: item.LowStockThreshold,
			Unit:      item.Unit,
		},
	})
	if err != nil {
		return fmt.Errorf("publish stock.low: %w", err)
	}
	return nil
}

// History returns an item's movements, most recent first, bounded by limit.
// The sequence is lazy and restartable: each range re-reads the store.
func (s *Service) History(ctx context.Context, itemID id.ID, limit int) iter.Seq2[Movement, error] {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	pageSize := min(limit, 100)

	return func(yield func(Movement, error) bool) {
		if _, err := s.items.GetByID(ctx, itemID); err != nil {
			yield(Movement{}, err)
			return
		}

		var cursor *Cursor
		remaining := limit
		for remaining > 0 {
			page, err := s.movements.ListMovements(ctx, itemID, cursor, min(pageSize, remaining))
			if err != nil {
				yield(Movement{}, fmt.Errorf("list movements: %w", err))
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
			}
			if len(page) < min(pageSize, remaining) {
				return
			}
			remaining -= len(page)
			last := page[len(page)-1]
			cursor = &Cursor{CreatedAt: last.CreatedAt, Seq: last.Seq}
		}
	}
}

// Reconcile compares every item's materialized quantity with the sum of its
// movements and returns the items that drifted.
func (s *Service) Reconcile(ctx context.Context) ([]Drift, error) {
	sums, err := s.movements.SumByItem(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}
	items, err := s.items.List(ctx, catalog.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var drift []Drift
	for _, item := range items {
		if sum := sums[item.ID]; sum != item.QuantityOnHand {
			drift = append(drift, Drift{ItemID: item.ID, ItemName: item.Name, OnHand: item.QuantityOnHand, LedgerSum: sum})
		}
	}
	return drift, nil
}

// ClaimEvent records a business event key inside the transaction in ctx and
// tags the movements appended under the returned context with it. A key
// already applied fails with IDEMPOTENCY_CONFLICT.
func (s *Service) ClaimEvent(ctx context.Context, key string) (context.Context, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return ctx, nil
	}
	if err := s.movements.ClaimEventKey(ctx, key); err != nil {
		return ctx, err
	}
	return withEventKey(ctx, key), nil
}

// Once runs fn in one transaction after claiming key, so a retried request
// carrying the same key cannot apply its movements twice. An empty key runs
// fn without a claim.
func (s *Service) Once(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ctx, err := s.ClaimEvent(ctx, key)
		if err != nil {
			return err
		}
		return fn(ctx)
	})
}

type eventKeyCtx struct{}

func withEventKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, eventKeyCtx{}, key)
}

func eventKeyFrom(ctx context.Context) *string {
	if key, ok := ctx.Value(eventKeyCtx{}).(string); ok {
		return &key
	}
	return nil
}

// OpeningBalance records the initial stock of a newly created item.
// A zero quantity records nothing.
func (s *Service) OpeningBalance(ctx context.Context, itemID id.ID, qty types.Quantity) error {
	if qty.IsZero() {
		return nil
	}
	if qty.IsNegative() {
		return apperror.NewValidation("opening balance cannot be negative")
	}
	_, err := s.Record(ctx, itemID, qty, OpeningBalanceReason)
	return err
}
