package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"oilmill/internal/core/id"
	"oilmill/internal/domain/events"
)

// Outbox implements events.Publisher and events.Store.
type Outbox struct{ s *Store }

var (
	_ events.Publisher = (*Outbox)(nil)
	_ events.Store     = (*Outbox)(nil)
)

// Publish appends a pending message. Must be called inside a transaction.
func (o *Outbox) Publish(ctx context.Context, e events.Event) error {
	if !o.s.inTx(ctx) {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	return o.s.write(func(st *state) error {
		st.outbox = append(st.outbox, events.Message{
			ID:            id.New(),
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			EventType:     e.EventType,
			Payload:       payload,
			Status:        events.StatusPending,
			CreatedAt:     time.Now().UTC(),
		})
		return nil
	})
}

func (o *Outbox) FetchPending(_ context.Context, limit int) ([]events.Message, error) {
	now := time.Now().UTC()
	var out []events.Message
	o.s.read(func(st *state) {
		for _, m := range st.outbox {
			if len(out) == limit {
				return
			}
			if m.Status == events.StatusPending && (m.NextRetryAt == nil || !m.NextRetryAt.After(now)) {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (o *Outbox) MarkPublished(_ context.Context, msgID id.ID, at time.Time) error {
	return o.update(msgID, func(m *events.Message) {
		m.Status = events.StatusPublished
		m.PublishedAt = &at
	})
}

func (o *Outbox) MarkRetry(_ context.Context, msgID id.ID, cause string, next time.Time) error {
	return o.update(msgID, func(m *events.Message) {
		m.RetryCount++
		m.LastError = &cause
		m.NextRetryAt = &next
		if m.RetryCount >= events.MaxRetries {
			m.Status = events.StatusFailed
		}
	})
}

func (o *Outbox) update(msgID id.ID, fn func(m *events.Message)) error {
	return o.s.write(func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == msgID {
				fn(&st.outbox[i])
				return nil
			}
		}
		return fmt.Errorf("outbox message %s not found", msgID)
	})
}

// Messages returns every outbox message, optionally of one event type.
func (o *Outbox) Messages(eventType string) []events.Message {
	var out []events.Message
	o.s.read(func(st *state) {
		for _, m := range st.outbox {
			if eventType == "" || m.EventType == eventType {
				out = append(out, m)
			}
		}
	})
	return out
}
