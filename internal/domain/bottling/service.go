package bottling

import (
	"context"
	"fmt"
	"time"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/numerator"
	"oilmill/internal/core/tx"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/events"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/resolver"
	"oilmill/pkg/logger"
)

// Line is one SKU of a bottling run.
type Line struct {
	SKU      string         `json:"sku"`
	Quantity types.Quantity `json:"quantity"`
}

// LineSummary is the outcome of one line.
type LineSummary struct {
	SKU            string         `json:"sku"`
	Quantity       types.Quantity `json:"quantity"`
	Liters         types.Quantity `json:"liters"`
	EmptyItemID    id.ID          `json:"emptyItemId"`
	FinishedItemID id.ID          `json:"finishedItemId"`
}

// Result describes a completed run.
type Result struct {
	RunID       string         `json:"runId"`
	TotalLiters types.Quantity `json:"totalLiters"`
	Lines       []LineSummary  `json:"lines"`
	MovementIDs []id.ID        `json:"movementIds"`
	Message     string         `json:"message"`
}

// CompletedPayload is the payload of the bottling.completed event.
type CompletedPayload struct {
	RunID       string         `json:"runId"`
	TotalLiters types.Quantity `json:"totalLiters"`
	Lines       []LineSummary  `json:"lines"`
}

// Service runs bottling.
type Service struct {
	ledger    *ledger.Service
	resolver  *resolver.Service
	numerator numerator.Generator
	txm       tx.Manager
	publisher events.Publisher
	now       func() time.Time
}

// NewService creates a bottling service.
func NewService(
	ledgerSvc *ledger.Service,
	resolverSvc *resolver.Service,
	gen numerator.Generator,
	txm tx.Manager,
	publisher events.Publisher,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		ledger:    ledgerSvc,
		resolver:  resolverSvc,
		numerator: gen,
		txm:       txm,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type plannedLine struct {
	sku      SKU
	qty      types.Quantity
	liters   types.Quantity
	empty    *catalog.Item
	finished *catalog.Item
}

// Run bottles the given lines. Every container and the bulk oil are checked
// before anything is written; the run commits as one transaction.
func (s *Service) Run(ctx context.Context, lines []Line, eventKey string) (*Result, error) {
	var planned []plannedLine
	for _, l := range lines {
		if !l.Quantity.IsPositive() {
			continue
		}
		sku, ok := LookupSKU(l.SKU)
		if !ok {
			return nil, apperror.NewValidation("unsupported SKU " + l.SKU).WithDetail("sku", l.SKU)
		}
		if !l.Quantity.IsWhole() {
			return nil, apperror.NewValidation("bottling quantity must be a whole number of units").
				WithDetail("sku", l.SKU).
				WithDetail("quantity", l.Quantity.Display())
		}
		liters, err := LitersFor(sku.Name, l.Quantity)
		if err != nil {
			return nil, err
		}
		planned = append(planned, plannedLine{sku: sku, qty: l.Quantity, liters: liters})
	}
	if len(planned) == 0 {
		return nil, apperror.NewValidation("No bottling lines provided")
	}

	var res Result
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ctx, err := s.ledger.ClaimEvent(ctx, eventKey)
		if err != nil {
			return err
		}

		bulk, err := s.resolver.ResolveRole(ctx, resolver.RoleBulkOil)
		if err != nil {
			return err
		}

		var total types.Quantity
		lockIDs := []id.ID{bulk.ID}
		for i := range planned {
			p := &planned[i]
			if p.empty, err = s.resolver.ResolveRole(ctx, p.sku.Empty); err != nil {
				return err
			}
			if p.finished, err = s.resolver.ResolveRole(ctx, p.sku.Finished); err != nil {
				return err
			}
			if total, err = total.CheckedAdd(p.liters); err != nil {
				return errOutOfRange()
			}
			lockIDs = append(lockIDs, p.empty.ID, p.finished.ID)
		}

		locked, err := s.ledger.Lock(ctx, lockIDs...)
		if err != nil {
			return err
		}
		if err := validate(planned, locked, bulk.ID, total); err != nil {
			return err
		}

		runID, err := s.numerator.Next(ctx, numerator.DefaultConfig(numerator.PrefixBottlingRun), s.now())
		if err != nil {
			return fmt.Errorf("generate run id: %w", err)
		}

		entries := make([]ledger.Entry, 0, 2*len(planned)+1)
		summaries := make([]LineSummary, 0, len(planned))
		for _, p := range planned {
			reason := fmt.Sprintf("Bottling Run %s: %s (%s units)", runID, p.sku.Name, p.qty.Display())
			entries = append(entries,
				ledger.Entry{ItemID: p.empty.ID, Delta: p.qty.Neg(), Reason: reason},
				ledger.Entry{ItemID: p.finished.ID, Delta: p.qty, Reason: reason},
			)
			summaries = append(summaries, LineSummary{
				SKU:            p.sku.Name,
				Quantity:       p.qty,
				Liters:         p.liters,
				EmptyItemID:    p.empty.ID,
				FinishedItemID: p.finished.ID,
			})
		}
		entries = append(entries, ledger.Entry{
			ItemID: bulk.ID,
			Delta:  total.Neg(),
			Reason: fmt.Sprintf("Bottling Run %s: Total bulk oil consumed", runID),
		})

		moves, err := s.ledger.Apply(ctx, entries)
		if err != nil {
			return err
		}

		res = Result{
			RunID:       runID,
			TotalLiters: total,
			Lines:       summaries,
			Message:     fmt.Sprintf("Bottling run completed! Consumed %sL of bulk oil.", total.Decimal().StringFixed(1)),
		}
		for _, m := range moves {
			res.MovementIDs = append(res.MovementIDs, m.ID)
		}

		err = s.publisher.Publish(ctx, events.Event{
			AggregateType: events.AggregateRun,
			AggregateID:   moves[len(moves)-1].ID,
			EventType:     events.TypeBottlingCompleted,
			Payload:       CompletedPayload{RunID: runID, TotalLiters: total, Lines: summaries},
		})
		if err != nil {
			return fmt.Errorf("publish bottling run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "bottling run completed",
		"run_id", res.RunID,
		"total_liters", res.TotalLiters.Display(),
		"lines", len(res.Lines),
	)
	return &res, nil
}

// validate checks container and bulk oil sufficiency against locked stock.
// Lines sharing an empty container are summed.
func validate(planned []plannedLine, locked map[id.ID]*catalog.Item, bulkID id.ID, total types.Quantity) error {
	need := make(map[id.ID]types.Quantity)
	skuOf := make(map[id.ID]string)
	var order []id.ID
	for _, p := range planned {
		if _, ok := need[p.empty.ID]; !ok {
			order = append(order, p.empty.ID)
			skuOf[p.empty.ID] = p.sku.Name
		}
		sum, err := need[p.empty.ID].CheckedAdd(p.qty)
		if err != nil {
			return errOutOfRange()
		}
		need[p.empty.ID] = sum
	}
	for _, itemID := range order {
		item := locked[itemID]
		if item.QuantityOnHand < need[itemID] {
			return insufficient(item,
				fmt.Sprintf("Insufficient empty containers for %s. Available: %s, Required: %s",
					skuOf[itemID], item.QuantityOnHand.Display(), need[itemID].Display()),
				need[itemID])
		}
	}

	bulk := locked[bulkID]
	if bulk.QuantityOnHand < total {
		return insufficient(bulk,
			fmt.Sprintf("Insufficient bulk oil. Available: %sL, Required: %sL",
				bulk.QuantityOnHand.Display(), total.Display()),
			total)
	}
	return nil
}

func errOutOfRange() error {
	return apperror.NewValidation("bottling quantities exceed the supported range")
}

func insufficient(item *catalog.Item, msg string, required types.Quantity) error {
	err := apperror.NewInsufficientStock(item.ID.String(), item.Name, item.QuantityOnHand.Display(), required.Display())
	err.Message = msg
	return err.WithDetail("unit", item.Unit)
}
