package memory

import (
	"context"
	"time"

	"oilmill/internal/core/numerator"
)

// Numerator implements numerator.Generator over in-memory sequences.
// Numbers taken inside a rolled back transaction are released.
type Numerator struct{ s *Store }

var _ numerator.Generator = (*Numerator)(nil)

func (n *Numerator) Next(_ context.Context, cfg numerator.Config, period time.Time) (string, error) {
	var next int64
	_ = n.s.write(func(st *state) error {
		key := cfg.Key(period)
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	return cfg.Format(period, next), nil
}
