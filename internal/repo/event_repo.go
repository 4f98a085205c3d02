// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only event log used for
// telemetry ("checkin_planned", "checkin_created", "checkin_done").
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// CreateEvent appends one telemetry event.
func CreateEvent(ctx context.Context, db *gorm.DB, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(e).Error
}

// ListEvents returns the most recent events for a user, newest first,
// capped at limit (values <= 0 are coerced to 100).
func ListEvents(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Event
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
