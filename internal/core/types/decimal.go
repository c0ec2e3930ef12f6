// Package types provides common type aliases and utilities.
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Extend returns unitCost multiplied by a whole-unit quantity.
func Extend(unitCost Money, qty int64) Money {
	return unitCost.Mul(decimal.NewFromInt(qty))
}

// ParseCount parses a whole-unit stock quantity.
// Spreadsheet cells such as "12.0" are accepted as long as they carry no fraction.
func ParseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	// IntPart wraps silently outside the int64 range.
	if !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("quantity %q is out of range", s)
	}
	return d.IntPart(), nil
}
