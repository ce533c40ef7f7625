// Package numerator issues batch codes and run ids from sys_sequences.
package numerator

import (
	"context"
	"fmt"
	"time"

	corenumerator "oilmill/internal/core/numerator"
	"oilmill/internal/infrastructure/storage/postgres"
)

const nextSQL = `
	INSERT INTO sys_sequences (key, value, updated_at)
	VALUES ($1, 1, now())
	ON CONFLICT (key) DO UPDATE SET value = sys_sequences.value + 1, updated_at = now()
	RETURNING value`

// Service implements numerator.Generator with a row per sequence key.
// The UPSERT runs in the caller's transaction, so the row stays locked until
// the transition commits and a rollback gives the number back.
type Service struct {
	txm *postgres.TxManager
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service.
func New(txm *postgres.TxManager) *Service {
	return &Service{txm: txm}
}

// Next implements numerator.Generator.
func (s *Service) Next(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	key := cfg.Key(period)
	var num int64
	if err := s.txm.GetQuerier(ctx).QueryRow(ctx, nextSQL, key).Scan(&num); err != nil {
		return "", fmt.Errorf("next number for %s: %w", key, err)
	}
	return cfg.Format(period, num), nil
}

// SetNext makes the next number for cfg and period equal to value.
// Used when importing batches numbered elsewhere.
func (s *Service) SetNext(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	if value < 1 {
		return fmt.Errorf("next number must be at least 1")
	}
	_, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_sequences (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		cfg.Key(period), value-1)
	if err != nil {
		return fmt.Errorf("set next number: %w", err)
	}
	return nil
}
