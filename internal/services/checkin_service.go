// Package services – CheckinService
//
// This file implements the CheckinService, the write path for daily
// check-in records. It verifies routine ownership before touching rows,
// enforces the one-check-in-per-day rule (backed by the unique index),
// and drives the streak engine whenever a check-in transitions to "done".
//
// Telemetry events ("checkin_created", "checkin_done") are recorded
// best-effort after the state change commits; a failed event insert never
// fails the request.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// CheckinInput carries the caller-supplied fields of a check-in create.
type CheckinInput struct {
	RoutineID   string
	CheckinDate time.Time
	Status      string
	Note        string
	Meta        domain.JSONMap
}

// CheckinService manages check-in rows and their streak side effects.
type CheckinService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Streaks applies consecutive-day accounting on "done" transitions.
	Streaks *StreakService
	// Events records best-effort telemetry.
	Events *EventService
}

// Create inserts a check-in for a routine owned by userID.
//
// An empty status defaults to "skipped", matching generator placeholders.
// When the new check-in is already "done", the streak engine runs for its
// date before the call returns.
func (s *CheckinService) Create(ctx context.Context, userID string, in CheckinInput) (*domain.Checkin, error) {
	if _, err := repo.GetRoutine(ctx, s.DB, in.RoutineID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = domain.StatusSkipped
	}
	if status != domain.StatusDone && status != domain.StatusSkipped {
		return nil, ErrInvalidStatus
	}
	if in.CheckinDate.IsZero() {
		return nil, ErrInvalidDate
	}

	c := &domain.Checkin{
		RoutineID:   in.RoutineID,
		UserID:      userID,
		CheckinDate: in.CheckinDate,
		Status:      status,
		Note:        in.Note,
		Meta:        in.Meta,
	}
	if err := repo.CreateCheckin(ctx, s.DB, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateCheckin
		}
		return nil, err
	}

	if status == domain.StatusDone {
		if _, err := s.Streaks.MarkDone(ctx, in.RoutineID, userID, c.CheckinDate); err != nil {
			return nil, err
		}
	}
	s.Events.Record(ctx, userID, EventCheckinCreated, domain.JSONMap{
		"checkin_id": c.ID,
		"routine_id": c.RoutineID,
		"date":       c.CheckinDate.Format("2006-01-02"),
		"status":     c.Status,
	})
	return c, nil
}

// MarkDone flips an existing check-in to "done" and runs the streak engine
// for its date. Marking an already-done check-in is a no-op for the streak
// counters (the engine sees a zero-day gap) but still rewrites note/meta
// when provided.
func (s *CheckinService) MarkDone(ctx context.Context, userID, id string, note *string, meta domain.JSONMap) (*domain.Checkin, error) {
	prev, err := repo.GetCheckin(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckinNotFound
		}
		return nil, err
	}

	c, err := repo.UpdateCheckinStatus(ctx, s.DB, id, domain.StatusDone, note, meta)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckinNotFound
		}
		return nil, err
	}

	if _, err := s.Streaks.MarkDone(ctx, prev.RoutineID, userID, c.CheckinDate); err != nil {
		return nil, err
	}
	s.Events.Record(ctx, userID, EventCheckinDone, domain.JSONMap{
		"checkin_id": c.ID,
		"routine_id": c.RoutineID,
		"date":       c.CheckinDate.Format("2006-01-02"),
	})
	return c, nil
}

// List returns all of a user's check-ins, optionally bounded by [from, to].
func (s *CheckinService) List(ctx context.Context, userID string, from, to *time.Time) ([]domain.Checkin, error) {
	return repo.ListCheckins(ctx, s.DB, userID, from, to)
}

// ListForRoutine returns check-ins of one routine owned by the user,
// optionally bounded by [from, to]. The routine's existence is verified
// first so an unknown or foreign routine yields ErrRoutineNotFound rather
// than an empty page.
func (s *CheckinService) ListForRoutine(ctx context.Context, userID, routineID string, from, to *time.Time) ([]domain.Checkin, error) {
	if _, err := repo.GetRoutine(ctx, s.DB, routineID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}
	return repo.ListRoutineCheckins(ctx, s.DB, routineID, userID, from, to)
}

// Delete hard-deletes a check-in owned by the user. Streak counters are
// not rewound; the engine only ever moves forward on "done" transitions.
func (s *CheckinService) Delete(ctx context.Context, userID, id string) error {
	err := repo.DeleteCheckin(ctx, s.DB, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCheckinNotFound
	}
	return err
}
