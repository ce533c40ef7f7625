package events

import (
	"context"
	"time"

	"oilmill/internal/core/id"
)

// Status is the delivery state of an outbox message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// MaxRetries is the number of failed deliveries after which a message is
// parked as failed.
const MaxRetries = 5

// Message is a stored outbox row.
type Message struct {
	ID            id.ID      `db:"id" json:"id"`
	AggregateType string     `db:"aggregate_type" json:"aggregateType"`
	AggregateID   id.ID      `db:"aggregate_id" json:"aggregateId"`
	EventType     string     `db:"event_type" json:"eventType"`
	Payload       []byte     `db:"payload" json:"payload"`
	Status        Status     `db:"status" json:"status"`
	RetryCount    int        `db:"retry_count" json:"retryCount"`
	LastError     *string    `db:"last_error" json:"lastError,omitempty"`
	NextRetryAt   *time.Time `db:"next_retry_at" json:"nextRetryAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	PublishedAt   *time.Time `db:"published_at" json:"publishedAt,omitempty"`
}

// Store is the outbox as seen by the relay.
type Store interface {
	// FetchPending returns due pending messages, oldest first.
	FetchPending(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, msgID id.ID, at time.Time) error
	// MarkRetry records a failed delivery. The message becomes failed once
	// its retry count reaches MaxRetries.
	MarkRetry(ctx context.Context, msgID id.ID, cause string, next time.Time) error
}

// Handler delivers a message.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Relay moves outbox messages to a handler.
type Relay struct {
	store     Store
	handler   Handler
	batchSize int
	now       func() time.Time
}

// NewRelay creates a relay.
func NewRelay(store Store, handler Handler, batchSize int) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{store: store, handler: handler, batchSize: batchSize, now: time.Now}
}

// ProcessBatch delivers one batch of due messages and returns how many were
// delivered. A failed delivery is rescheduled with linear backoff and does
// not stop the batch.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	msgs, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range msgs {
		msg := &msgs[i]
		if err := r.handler.Handle(ctx, msg); err != nil {
			next := r.now().UTC().Add(time.Duration(msg.RetryCount+1) * time.Minute)
			if markErr := r.store.MarkRetry(ctx, msg.ID, err.Error(), next); markErr != nil {
				return delivered, markErr
			}
			continue
		}
		if err := r.store.MarkPublished(ctx, msg.ID, r.now().UTC()); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}
