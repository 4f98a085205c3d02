// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Streak
// model, including the version-guarded conditional update the streak engine
// uses to serialize concurrent read-modify-write cycles for one routine.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// GetStreak returns the streak row for routineID, or ErrNotFound when the
// routine has never had a "done" transition.
func GetStreak(ctx context.Context, db *gorm.DB, routineID string) (*domain.Streak, error) {
	var s domain.Streak
	err := db.WithContext(ctx).
		Where("routine_id = ?", routineID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStreaks returns all streaks for a user, best-performing first.
func ListStreaks(ctx context.Context, db *gorm.DB, userID string) ([]domain.Streak, error) {
	var out []domain.Streak
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("current_streak desc").
		Find(&out).Error
	return out, err
}

// CreateStreak inserts the first streak row for a routine. Two concurrent
// first-done transitions can race here; the loser receives ErrDuplicate and
// should re-read and retry as a normal update.
func CreateStreak(ctx context.Context, db *gorm.DB, s *domain.Streak) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateStreak persists new counter values for s, conditional on the version
// the caller observed when it read the row. When the version no longer
// matches (a concurrent transition won), nothing is written and ErrConflict
// is returned; the caller re-reads and retries.
func UpdateStreak(ctx context.Context, db *gorm.DB, s *domain.Streak) error {
	res := db.WithContext(ctx).
		Model(&domain.Streak{}).
		Where("routine_id = ? AND version = ?", s.RoutineID, s.Version).
		Updates(map[string]any{
			"current_streak":  s.CurrentStreak,
			"best_streak":     s.BestStreak,
			"last_checkin_at": s.LastCheckinAt,
			"version":         s.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	s.Version++
	return nil
}

// StreakWithTitle pairs a streak with its routine's title for reporting.
// Title is empty when the routine has been deleted out from under the
// streak, which this service deliberately allows.
type StreakWithTitle struct {
	domain.Streak
	RoutineTitle string `json:"routine_title"`
}

// TopStreaks returns the user's highest current streaks joined with routine
// titles. Soft-deleted routines still match the join (deleted_at is ignored
// on purpose) so long-lived streak history keeps its label.
func TopStreaks(ctx context.Context, db *gorm.DB, userID string, limit int) ([]StreakWithTitle, error) {
	var out []StreakWithTitle
	err := db.WithContext(ctx).
		Model(&domain.Streak{}).
		Select("streaks.*, routines.title AS routine_title").
		Joins("LEFT JOIN routines ON routines.id = streaks.routine_id").
		Where("streaks.user_id = ?", userID).
		Order("streaks.current_streak desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
