// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file centralizes the sentinel errors shared by all
// repository functions and the driver-agnostic helpers that classify raw
// database errors into them.
//
// Error semantics:
//   - ErrNotFound aliases gorm.ErrRecordNotFound so callers can use a single
//     sentinel regardless of which layer produced it.
//   - ErrDuplicate is returned when an insert violates a unique constraint,
//     most importantly the (routine_id, checkin_date) index on checkins.
//     Callers decide whether a duplicate is benign (the generator) or a
//     user-facing conflict (a direct check-in POST).
//   - ErrConflict is returned by conditional updates whose optimistic
//     version check matched no rows.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate is returned when an insert loses a uniqueness race.
	ErrDuplicate = errors.New("record already exists")

	// ErrConflict is returned when an optimistic update observed a stale
	// version and applied nothing.
	ErrConflict = errors.New("concurrent modification detected")
)

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
