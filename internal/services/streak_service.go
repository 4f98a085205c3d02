// Package services – StreakService
//
// This file implements the streak state machine. MarkDone is invoked once
// per check-in "done" transition and recomputes the routine's consecutive-day
// counters:
//
//   - no streak row yet          -> create (current=1, best=1, last=D)
//   - same day re-confirmed      -> no-op, nothing persisted
//   - D is exactly last+1 day    -> current+1
//   - any other difference       -> current resets to 1 (forward gaps and
//     out-of-order completions take the same branch)
//
// best = max(best, current) after every branch, so the best streak is
// monotonically non-decreasing for the lifetime of the routine.
//
// Concurrency: the persisted update is conditional on the version observed
// at read time. A lost race yields repo.ErrConflict; the transition is then
// re-run against freshly read state, up to MaxRetries attempts, after which
// ErrStreakConflict surfaces to the caller. Different routines never contend.
package services

import (
	"context"
	"errors"

	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultStreakRetries bounds the optimistic retry loop when MaxRetries is
// left unset.
const defaultStreakRetries = 3

// ---- TEST SEAMS (tests swap these to script lost races) ----
var (
	getStreakFn    = repo.GetStreak
	createStreakFn = repo.CreateStreak
	updateStreakFn = repo.UpdateStreak
)

// StreakService owns every read and write of the streaks table.
type StreakService struct {
	// DB is the database handle used for all streak operations.
	DB *gorm.DB

	// MaxRetries bounds the optimistic-conflict retry loop (default 3).
	MaxRetries int
}

// MarkDone applies one "done" transition for routineID on completionDate and
// returns the resulting streak row. The date is truncated to midnight before
// any comparison. A same-day repeat returns the unchanged row without
// writing anything.
func (s *StreakService) MarkDone(ctx context.Context, routineID, userID string, completionDate time.Time) (*domain.Streak, error) {
	tr := otel.Tracer("services/StreakService")
	ctx, span := tr.Start(ctx, "MarkDone",
		trace.WithAttributes(
			attribute.String("routine.id", routineID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	day := domain.DateOf(completionDate)

	retries := s.MaxRetries
	if retries <= 0 {
		retries = defaultStreakRetries
	}

	for attempt := 0; attempt <= retries; attempt++ {
		cur, err := getStreakFn(ctx, s.DB, routineID)
		if errors.Is(err, repo.ErrNotFound) {
			created := &domain.Streak{
				RoutineID:     routineID,
				UserID:        userID,
				CurrentStreak: 1,
				BestStreak:    1,
				LastCheckinAt: &day,
			}
			err = createStreakFn(ctx, s.DB, created)
			if errors.Is(err, repo.ErrDuplicate) {
				// A concurrent first transition won; fall through to the
				// normal update path on the next attempt.
				continue
			}
			if err != nil {
				return nil, err
			}
			return created, nil
		}
		if err != nil {
			return nil, err
		}

		next, changed := advance(cur, day)
		if !changed {
			return cur, nil
		}

		err = updateStreakFn(ctx, s.DB, next)
		if errors.Is(err, repo.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return next, nil
	}

	return nil, ErrStreakConflict
}

// advance computes the successor state of cur for a completion on day.
// It returns the (possibly copied and mutated) row and whether a write is
// required; the same-day branch requires none.
func advance(cur *domain.Streak, day time.Time) (*domain.Streak, bool) {
	next := *cur

	switch {
	case cur.LastCheckinAt == nil:
		// Defensive: row exists but never recorded a completion.
		next.CurrentStreak = 1
	default:
		switch domain.DaysBetween(*cur.LastCheckinAt, day) {
		case 0:
			return cur, false
		case 1:
			next.CurrentStreak = cur.CurrentStreak + 1
		default:
			// Forward gap of 2+ days, or an out-of-order completion.
			next.CurrentStreak = 1
		}
	}

	if next.CurrentStreak > next.BestStreak {
		next.BestStreak = next.CurrentStreak
	}
	next.LastCheckinAt = &day
	return &next, true
}

// Get returns the streak for a routine owned by userID, or ErrStreakNotFound
// when no "done" transition has ever been processed. Ownership is checked
// against the denormalized user id on the streak row itself, so the lookup
// works even after the routine has been deleted.
func (s *StreakService) Get(ctx context.Context, routineID, userID string) (*domain.Streak, error) {
	st, err := repo.GetStreak(ctx, s.DB, routineID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrStreakNotFound
	}
	if err != nil {
		return nil, err
	}
	if st.UserID != userID {
		return nil, ErrStreakNotFound
	}
	return st, nil
}

// ListForUser returns all of the user's streaks ordered by current streak
// descending.
func (s *StreakService) ListForUser(ctx context.Context, userID string) ([]domain.Streak, error) {
	return repo.ListStreaks(ctx, s.DB, userID)
}
