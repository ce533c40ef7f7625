// Package events defines the domain events emitted by stock transitions.
// They are written to the transactional outbox together with the ledger
// entries that caused them and relayed later by the worker.
package events

import (
	"context"

	"oilmill/internal/core/id"
)

// Event types.
const (
	TypeStockLow               = "stock.low"
	TypeProductionPhaseAdvance = "production.phase_advanced"
	TypeBottlingCompleted      = "bottling.completed"
	TypeProcurementApplied     = "finance.procurement_applied"
)

// Aggregate types.
const (
	AggregateItem  = "inventory_item"
	AggregateBatch = "production_batch"
	AggregateRun   = "bottling_run"
	AggregateSpend = "expense"
)

// Event is a domain event to be published via the outbox.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher writes events. Implementations must write inside the transaction
// carried by ctx so that events and ledger entries commit together.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
