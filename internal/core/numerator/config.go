// Package numerator provides contracts for human-readable sequential numbers
// (production batch codes, bottling run ids).
package numerator

import (
	"context"
	"fmt"
	"time"
)

// Prefixes used by the transition rules.
const (
	PrefixProductionBatch = "PB"
	PrefixBottlingRun     = "BR"
)

// Generator generates sequential numbers.
// Implementations join the transaction carried by ctx when there is one, so a
// rolled back transition does not consume a number.
type Generator interface {
	// Next returns the next number for cfg, e.g. BR-2026-00001.
	Next(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "BR", "PB")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// Key returns the sequence key for cfg and period.
func (c Config) Key(period time.Time) string {
	switch c.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006"))
	default:
		return c.Prefix
	}
}

// Format renders num according to cfg.
// Pattern: PREFIX-YEAR-XXXXX (e.g., BR-2026-00001)
func (c Config) Format(period time.Time, num int64) string {
	padWidth := c.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if c.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", c.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, padWidth, num)
}
