// Package services defines the business logic for routines, check-ins,
// streaks, analytics, and event telemetry. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

var (
	// ErrRoutineNotFound indicates that the requested routine does not exist
	// or is not accessible to the current user.
	ErrRoutineNotFound = errors.New("routine not found")

	// ErrCheckinNotFound indicates that the requested check-in does not
	// exist or is not accessible to the current user.
	ErrCheckinNotFound = errors.New("checkin not found")

	// ErrInvalidRecurrence is returned when a routine definition violates
	// the recurrence invariant: daily routines must not list weekdays,
	// weekly routines must list at least one, and weekday indexes must be
	// in 1..7 without duplicates.
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")

	// ErrInvalidStatus is returned when a check-in status is outside the
	// allowed set ("done" or "skipped").
	ErrInvalidStatus = errors.New("status must be done or skipped")

	// ErrEmptyTitle is returned when a routine is created or renamed with a
	// blank title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrInvalidDate is returned when a check-in is created without a
	// usable calendar date.
	ErrInvalidDate = errors.New("checkin date is missing or invalid")

	// ErrDuplicateCheckin is returned when a check-in already exists for
	// the (routine, date) pair of a direct user creation.
	ErrDuplicateCheckin = errors.New("checkin already exists for this date")

	// ErrStreakNotFound indicates that a routine has no streak record yet
	// (no "done" transition has ever been processed for it).
	ErrStreakNotFound = errors.New("streak not found")

	// ErrStreakConflict is returned when the streak engine exhausted its
	// retry budget against concurrent transitions for the same routine.
	// The caller may retry the whole "mark done" action.
	ErrStreakConflict = errors.New("streak update conflicted; retry")
)
