// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Checkin
// model.
//
// The one rule that matters here: at most one check-in per (routine, date).
// CreateCheckin maps a lost uniqueness race to ErrDuplicate so that callers
// can tell "someone beat me to this day" apart from a real failure. The
// generator absorbs it as success-by-idempotence, a direct user POST
// surfaces it as a conflict.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// CreateCheckin inserts a check-in row, truncating the date to midnight UTC.
// On a unique-constraint violation it returns ErrDuplicate; the row that won
// the race is left untouched.
func CreateCheckin(ctx context.Context, db *gorm.DB, c *domain.Checkin) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CheckinDate = domain.DateOf(c.CheckinDate)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindCheckin returns the check-in for (routineID, date) or ErrNotFound.
func FindCheckin(ctx context.Context, db *gorm.DB, routineID string, date time.Time) (*domain.Checkin, error) {
	var c domain.Checkin
	err := db.WithContext(ctx).
		Where("routine_id = ? AND checkin_date = ?", routineID, domain.DateOf(date)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCheckin fetches a check-in by ID scoped to its owner, or ErrNotFound.
func GetCheckin(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Checkin, error) {
	var c domain.Checkin
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCheckins returns a user's check-ins, newest day first, optionally
// bounded by an inclusive [from, to] date range (dates are truncated).
func ListCheckins(ctx context.Context, db *gorm.DB, userID string, from, to *time.Time) ([]domain.Checkin, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	q = applyDateRange(q, from, to)
	var out []domain.Checkin
	err := q.Order("checkin_date desc").Find(&out).Error
	return out, err
}

// ListRoutineCheckins returns check-ins for one routine owned by userID,
// newest day first, optionally bounded by [from, to].
func ListRoutineCheckins(ctx context.Context, db *gorm.DB, routineID, userID string, from, to *time.Time) ([]domain.Checkin, error) {
	q := db.WithContext(ctx).Where("routine_id = ? AND user_id = ?", routineID, userID)
	q = applyDateRange(q, from, to)
	var out []domain.Checkin
	err := q.Order("checkin_date desc").Find(&out).Error
	return out, err
}

// UpdateCheckinStatus sets the status (and optionally note/meta) of a
// check-in and returns the updated row. Missing rows yield ErrNotFound.
func UpdateCheckinStatus(ctx context.Context, db *gorm.DB, id, status string, note *string, meta domain.JSONMap) (*domain.Checkin, error) {
	updates := map[string]any{"status": status}
	if note != nil {
		updates["note"] = *note
	}
	if meta != nil {
		updates["meta"] = meta
	}
	res := db.WithContext(ctx).
		Model(&domain.Checkin{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	var c domain.Checkin
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCheckin removes a check-in owned by userID. Streak counters are not
// recomputed on delete.
func DeleteCheckin(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Checkin{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// applyDateRange narrows q to checkin_date within the inclusive bounds.
func applyDateRange(q *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where("checkin_date >= ?", domain.DateOf(*from))
	}
	if to != nil {
		q = q.Where("checkin_date <= ?", domain.DateOf(*to))
	}
	return q
}
