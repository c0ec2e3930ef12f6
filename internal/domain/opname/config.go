package opname

import (
	"time"

	"backoffice/internal/core/numerator"
)

const (
	// NumeratorStrategy hands out session codes in strict sequence.
	NumeratorStrategy = numerator.StrategyStrict

	// DefaultCodePrefix yields codes like SO-2026-00001.
	DefaultCodePrefix = "SO"
)

// Config tunes the engine.
type Config struct {
	CodePrefix string
	// Now is the clock; tests pin it.
	Now func() time.Time
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CodePrefix: DefaultCodePrefix,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}
