// Package services – RoutineService
//
// This file implements the RoutineService, which manages the lifecycle of
// routine definitions. It validates recurrence rules (daily routines carry
// no weekday set, weekly routines carry a non-empty one), normalizes titles,
// and coordinates repository operations for creating, listing (with
// pagination), updating, and deleting routines.
//
// The repository is injected as an interface rather than reached through a
// package-global handle, so the service can be exercised against fakes and
// the generator/streak engine never share a process-wide client.
//
// Service-level errors (ErrRoutineNotFound, ErrInvalidRecurrence, …) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// RoutineRepo defines the repository contract required by RoutineService.
// Implementations are responsible for persistence of routine aggregates.
type RoutineRepo interface {
	// CreateRoutine inserts a new routine row.
	CreateRoutine(ctx context.Context, db *gorm.DB, r *domain.Routine) error

	// ListRoutines returns all routines belonging to the user.
	ListRoutines(ctx context.Context, db *gorm.DB, userID string) ([]domain.Routine, error)

	// GetRoutine fetches a routine by ID ensuring it belongs to the user.
	GetRoutine(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Routine, error)

	// SaveRoutine persists a mutated routine.
	SaveRoutine(ctx context.Context, db *gorm.DB, r *domain.Routine) error

	// DeleteRoutine soft-deletes a routine owned by the user.
	DeleteRoutine(ctx context.Context, db *gorm.DB, id, userID string) error

	// CountRoutines returns the total number of routines for pagination.
	CountRoutines(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListRoutinesPage returns a page of routines belonging to the user.
	ListRoutinesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Routine, error)
}

// RoutineInput carries the caller-supplied fields of a create or update.
// Nil pointers on update mean "leave unchanged".
type RoutineInput struct {
	Title     string
	Frequency string
	Weekdays  domain.WeekdaySet
	TimeOfDay string
	Reminders *bool
	Meta      domain.JSONMap
}

// RoutineService provides routine CRUD with recurrence validation.
type RoutineService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the routine repository used by this service.
	Repo RoutineRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewRoutineService constructs a RoutineService with sane defaults.
func NewRoutineService(db *gorm.DB, r RoutineRepo) *RoutineService {
	return &RoutineService{DB: db, Repo: r, TitleMaxLen: 255}
}

// Create validates and inserts a new routine owned by userID.
func (s *RoutineService) Create(ctx context.Context, userID string, in RoutineInput) (*domain.Routine, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if err := validateRecurrence(in.Frequency, in.Weekdays); err != nil {
		return nil, err
	}

	reminders := true
	if in.Reminders != nil {
		reminders = *in.Reminders
	}
	r := &domain.Routine{
		UserID:    userID,
		Title:     s.clip(title),
		Frequency: in.Frequency,
		Weekdays:  in.Weekdays,
		TimeOfDay: strings.TrimSpace(in.TimeOfDay),
		Reminders: reminders,
		Meta:      in.Meta,
	}
	if err := s.Repo.CreateRoutine(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns all routines for a user (non-paginated).
// Prefer ListPage for scalability on large datasets.
func (s *RoutineService) List(ctx context.Context, userID string) ([]domain.Routine, error) {
	return s.Repo.ListRoutines(ctx, s.DB, userID)
}

// ListPage returns a page of routines for a user and the total count.
func (s *RoutineService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Routine, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountRoutines(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Routine{}, 0, nil
	}

	items, err := s.Repo.ListRoutinesPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Get fetches a routine by ID, enforcing ownership.
func (s *RoutineService) Get(ctx context.Context, userID, id string) (*domain.Routine, error) {
	r, err := s.Repo.GetRoutine(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}
	return r, nil
}

// Update applies the non-zero fields of in to an existing routine and
// re-validates the resulting recurrence rule as a whole.
func (s *RoutineService) Update(ctx context.Context, userID, id string, in RoutineInput) (*domain.Routine, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if t := strings.TrimSpace(in.Title); t != "" {
		r.Title = s.clip(t)
	}
	if in.Frequency != "" {
		r.Frequency = in.Frequency
	}
	if in.Weekdays != nil {
		r.Weekdays = in.Weekdays
	}
	if in.TimeOfDay != "" {
		r.TimeOfDay = strings.TrimSpace(in.TimeOfDay)
	}
	if in.Reminders != nil {
		r.Reminders = *in.Reminders
	}
	if in.Meta != nil {
		r.Meta = in.Meta
	}
	// Daily updates clear a stale weekday set rather than rejecting it,
	// unless the caller explicitly supplied one.
	if r.Frequency == domain.FrequencyDaily && in.Weekdays == nil {
		r.Weekdays = nil
	}

	if err := validateRecurrence(r.Frequency, r.Weekdays); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveRoutine(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a routine. Historical check-ins and the streak row are
// kept; the next generator run simply no longer sees the routine.
func (s *RoutineService) Delete(ctx context.Context, userID, id string) error {
	err := s.Repo.DeleteRoutine(ctx, s.DB, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRoutineNotFound
	}
	return err
}

// clip truncates a title to the configured maximum rune length.
func (s *RoutineService) clip(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 255
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// validateRecurrence enforces the frequency/weekday invariant.
func validateRecurrence(frequency string, weekdays domain.WeekdaySet) error {
	switch frequency {
	case domain.FrequencyDaily:
		if len(weekdays) > 0 {
			return ErrInvalidRecurrence
		}
	case domain.FrequencyWeekly:
		if len(weekdays) == 0 || !weekdays.Valid() {
			return ErrInvalidRecurrence
		}
	default:
		return ErrInvalidRecurrence
	}
	return nil
}
