// Package id generates and parses entity identifiers.
//
// Ids are UUIDv7: their leading bits are a millisecond timestamp, so sessions,
// items and movements sort by creation time and index well in PostgreSQL.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// ID identifies sessions, items, products, branches and movements.
type ID = uuid.UUID

// New returns a fresh UUIDv7, falling back to a random v4 if the clock
// source fails.
func New() ID {
	if v, err := uuid.NewV7(); err == nil {
		return v
	}
	return uuid.New()
}

// Parse accepts the canonical textual forms and ignores surrounding spaces,
// which spreadsheets and shell flags tend to add.
func Parse(s string) (ID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// MustParse is Parse for fixed ids in code and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil is the zero id, used for "no branch".
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether v is the zero id.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
