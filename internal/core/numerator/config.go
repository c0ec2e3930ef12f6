package numerator

import (
	"fmt"
	"time"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict increments the stored sequence for every number.
	// A number is consumed even if the document using it is never saved.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory.
	// Gaps appear after a restart.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Reset periods.
const (
	ResetYear  = "year"
	ResetMonth = "month"
	ResetNever = "never"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "SO")
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
		ResetPeriod: ResetYear,
	}
}

// Key identifies the sequence a number for period is drawn from.
func (c Config) Key(period time.Time) string {
	switch c.ResetPeriod {
	case ResetMonth:
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006_01"))
	case ResetYear:
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006"))
	default:
		return c.Prefix
	}
}

// Format renders num as a code.
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
