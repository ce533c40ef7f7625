package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/idempotency"
)

// IdempotencyStore keeps X-Idempotency-Key records in sys_idempotency.
// It always runs on the pool, never in the request's transaction, so a
// stored failure survives the rollback of the request.
type IdempotencyStore struct {
	pool *Pool
	ttl  time.Duration
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an idempotency store.
func NewIdempotencyStore(pool *Pool, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{pool: pool, ttl: ttl}
}

const acquireSQL = `
	INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
	ON CONFLICT (idempotency_key) DO UPDATE SET
		user_id = CASE WHEN sys_idempotency.expires_at < $6 THEN EXCLUDED.user_id ELSE sys_idempotency.user_id END,
		operation = CASE WHEN sys_idempotency.expires_at < $6 THEN EXCLUDED.operation ELSE sys_idempotency.operation END,
		request_hash = CASE WHEN sys_idempotency.expires_at < $6 THEN EXCLUDED.request_hash ELSE sys_idempotency.request_hash END,
		status = CASE WHEN sys_idempotency.expires_at < $6 THEN EXCLUDED.status ELSE sys_idempotency.status END,
		created_at = CASE WHEN sys_idempotency.expires_at < $6 THEN $6 ELSE sys_idempotency.created_at END,
		expires_at = GREATEST(sys_idempotency.expires_at, $7)
	RETURNING idempotency_key, user_id, operation, status, request_hash, response,
		response_status, response_content_type, created_at, updated_at, expires_at,
		(xmax = 0 OR created_at = $6) AS acquired`

type acquiredRecord struct {
	idempotency.Record
	Acquired bool `db:"acquired"`
}

// AcquireKey implements idempotency.Store. An expired key is taken over as new.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	now := time.Now().UTC()

	var rec acquiredRecord
	if err := Get(ctx, s.pool, &rec, acquireSQL,
		key, userID, operation, idempotency.StatusPending, requestHash, now, now.Add(s.ttl)); err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if rec.Acquired {
		return nil, nil
	}

	if rec.UserID != userID || rec.Operation != operation || rec.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}

	switch rec.Status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		return idempotency.ReplayOf(&rec.Record), nil
	}

	if now.Sub(rec.UpdatedAt) <= idempotency.StaleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}

	sql, args, err := builder().
		Update("sys_idempotency").
		Set("updated_at", now).
		Where(squirrel.Eq{"idempotency_key": key, "status": idempotency.StatusPending}).
		Where(squirrel.Lt{"updated_at": now.Add(-idempotency.StaleAfter)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reclaim: %w", err)
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			b, _ = json.Marshal(map[string]string{"error": err.Error()})
		}
		body = b
	}

	sql, args, err := finishQuery(key, status, statusCode, contentType, body).ToSql()
	if err != nil {
		return fmt.Errorf("build finish: %w", err)
	}
	_, err = s.pool.Exec(ctx, sql, args...)
	return err
}

func finishQuery(key string, status idempotency.Status, statusCode int, contentType string, body []byte) squirrel.UpdateBuilder {
	return builder().
		Update("sys_idempotency").
		Set("status", status).
		Set("response", body).
		Set("response_status", statusCode).
		Set("response_content_type", contentType).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"idempotency_key": key})
}

// CleanupExpired implements idempotency.Store.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sys_idempotency WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
