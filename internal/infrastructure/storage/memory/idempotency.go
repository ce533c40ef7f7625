package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/idempotency"
)

// IdempotencyStore implements idempotency.Store. Keys live outside the
// transactional state: a stored response survives the rollback of the
// request that produced it.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
	ttl     time.Duration
	now     func() time.Time
}

func newIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[string]*idempotency.Record),
		ttl:     24 * time.Hour,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetTTL changes how long keys are kept.
func (s *IdempotencyStore) SetTTL(ttl time.Duration) { s.ttl = ttl }

func (s *IdempotencyStore) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[key]
	if !ok || now.After(rec.ExpiresAt) {
		s.records[key] = &idempotency.Record{
			Key:         key,
			UserID:      userID,
			Operation:   operation,
			Status:      idempotency.StatusPending,
			RequestHash: requestHash,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if rec.UserID != userID || rec.Operation != operation || rec.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}

	switch rec.Status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		return idempotency.ReplayOf(rec), nil
	default:
		if now.Sub(rec.UpdatedAt) > idempotency.StaleAfter {
			rec.UpdatedAt = now
			return nil, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
}

func (s *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusSuccess, statusCode, contentType, response)
}

func (s *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.StatusCode = statusCode
	rec.ContentType = contentType
	rec.Response = body
	rec.UpdatedAt = s.now()
	return nil
}

func (s *IdempotencyStore) CleanupExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for key, rec := range s.records {
		if now.After(rec.ExpiresAt) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}
