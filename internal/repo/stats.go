// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// by the analytics summary and for conditional responses (ETag generation)
// in the HTTP layer. Each function is context-aware and safe to call from
// services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// RoutinesStats returns aggregate metadata for a user's routines: the total
// number of rows and the maximum UpdatedAt timestamp among those rows. When
// the user has no routines, the returned count is 0 and maxUpdatedAt is nil.
func RoutinesStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Routine{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// CheckinCounts holds per-status check-in totals for one user and period.
type CheckinCounts struct {
	Total   int64
	Done    int64
	Skipped int64
}

// CheckinStats counts a user's check-ins by status within the optional
// inclusive [from, to] date range. Three cheap COUNT queries against the
// covering (user_id, checkin_date) index.
func CheckinStats(ctx context.Context, db *gorm.DB, userID string, from, to *time.Time) (CheckinCounts, error) {
	var out CheckinCounts
	base := func() *gorm.DB {
		q := db.WithContext(ctx).Model(&domain.Checkin{}).Where("user_id = ?", userID)
		return applyDateRange(q, from, to)
	}

	if err := base().Count(&out.Total).Error; err != nil {
		return out, err
	}
	if out.Total == 0 {
		return out, nil
	}
	if err := base().Where("status = ?", domain.StatusDone).Count(&out.Done).Error; err != nil {
		return out, err
	}
	if err := base().Where("status = ?", domain.StatusSkipped).Count(&out.Skipped).Error; err != nil {
		return out, err
	}
	return out, nil
}
