// Package ledger is the append-only stock ledger.
//
// Every change to an item's quantity on hand goes through Apply: items are
// locked in ascending id order, running balances are checked so that no entry
// drives an item negative, movements are appended and the materialized
// quantity is written, all inside the caller's transaction.
package ledger

import (
	"time"

	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
)

const (
	// DefaultReason is used when a movement is recorded without a reason.
	DefaultReason = "Manual adjustment"

	// OpeningBalanceReason tags the first movement of a newly created item.
	OpeningBalanceReason = "Opening balance"

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Movement is an immutable ledger entry.
type Movement struct {
	ID             id.ID          `db:"id" json:"id"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	QuantityChange types.Quantity `db:"quantity_change_scaled" json:"quantityChange"`
	Reason         string         `db:"reason" json:"reason"`
	EventKey       *string        `db:"event_key" json:"eventKey,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`

	// Seq is the insertion sequence, assigned by the store.
	Seq int64 `db:"seq" json:"-"`
}

// Entry is a requested quantity change.
type Entry struct {
	ItemID id.ID
	Delta  types.Quantity
	Reason string
}

// Cursor marks a position in an item's history (exclusive).
type Cursor struct {
	CreatedAt time.Time
	Seq       int64
}

// Drift is an item whose materialized quantity disagrees with its ledger.
type Drift struct {
	ItemID    id.ID          `json:"itemId"`
	ItemName  string         `json:"itemName"`
	OnHand    types.Quantity `json:"onHand"`
	LedgerSum types.Quantity `json:"ledgerSum"`
}

// StockLowPayload is the payload of the stock.low event.
type StockLowPayload struct {
	ItemID    id.ID          `json:"itemId"`
	ItemName  string         `json:"itemName"`
	OnHand    types.Quantity `json:"onHand"`
	Threshold types.Quantity `json:"threshold"`
	Unit      string         `json:"unit"`
}
