// Package valuation maintains the weighted average cost of items.
package valuation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/tx"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/ledger"
	"oilmill/pkg/logger"
)

// DefaultReason tags the ledger increment of a revaluation.
const DefaultReason = "Procurement"

// costPrecision is the number of decimal places kept in an average cost.
const costPrecision int32 = 6

// Result describes a revaluation.
type Result struct {
	ItemID      id.ID          `json:"itemId"`
	OldQuantity types.Quantity `json:"oldQuantity"`
	NewQuantity types.Quantity `json:"newQuantity"`
	OldAvgCost  types.Money    `json:"oldAvgCost"`
	NewAvgCost  types.Money    `json:"newAvgCost"`
	MovementID  id.ID          `json:"movementId"`
}

// WeightedAverage returns (oldQty*oldAvg + amount) / (oldQty + added),
// or zero when the resulting quantity is zero.
func WeightedAverage(oldQty types.Quantity, oldAvg types.Money, added types.Quantity, amount types.Money) types.Money {
	newQty := oldQty + added
	if newQty.IsZero() {
		return decimal.Zero
	}
	total := oldQty.Decimal().Mul(oldAvg).Add(amount)
	return total.DivRound(newQty.Decimal(), costPrecision)
}

// Engine applies procurements to stock and cost.
type Engine struct {
	items  catalog.Repository
	ledger *ledger.Service
	txm    tx.Manager
}

// NewEngine creates a valuation engine.
func NewEngine(items catalog.Repository, ledgerSvc *ledger.Service, txm tx.Manager) *Engine {
	return &Engine{items: items, ledger: ledgerSvc, txm: txm}
}

// Revalue adds quantity bought for amount, recording a ledger increment and
// the new average cost in one transaction.
func (e *Engine) Revalue(ctx context.Context, itemID id.ID, added types.Quantity, amount types.Money, reason string) (*Result, error) {
	if !added.IsPositive() {
		return nil, apperror.NewValidation("quantity added must be positive")
	}
	if amount.IsNegative() {
		return nil, apperror.NewValidation("purchase amount cannot be negative")
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultReason
	}

	var res Result
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := e.ledger.Lock(ctx, itemID)
		if err != nil {
			return err
		}
		item := locked[itemID]

		newQty, err := item.QuantityOnHand.CheckedAdd(added)
		if err != nil {
			return apperror.NewValidation("quantity added exceeds the supported range").
				WithDetail("item_id", itemID).
				WithDetail("current", item.QuantityOnHand.Display()).
				WithDetail("added", added.Display())
		}

		res = Result{
			ItemID:      itemID,
			OldQuantity: item.QuantityOnHand,
			NewQuantity: newQty,
			OldAvgCost:  item.AvgCost,
			NewAvgCost:  WeightedAverage(item.QuantityOnHand, item.AvgCost, added, amount),
		}

		moveID, err := e.ledger.Record(ctx, itemID, added, reason)
		if err != nil {
			return err
		}
		res.MovementID = moveID

		if err := e.items.SetAvgCost(ctx, itemID, res.NewAvgCost); err != nil {
			return fmt.Errorf("set avg cost: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "item revalued",
		"item_id", itemID,
		"old_quantity", res.OldQuantity.Display(),
		"new_quantity", res.NewQuantity.Display(),
		"old_avg_cost", res.OldAvgCost.String(),
		"new_avg_cost", res.NewAvgCost.String(),
	)
	return &res, nil
}
