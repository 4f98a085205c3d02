// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Routine
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Recurrence-rule validation lives in the
// service layer.
//
// Functions:
//
//   - CreateRoutine(ctx, db, r) -> error
//     Inserts a new Routine row, generating the UUID key when unset.
//
//   - ListRoutines(ctx, db, userID) -> []domain.Routine, error
//     Returns all routines for a user, newest first.
//
//   - ListAllRoutines(ctx, db) -> []domain.Routine, error
//     Returns every live routine across all users; this is the snapshot the
//     check-in generator expands against.
//
//   - CountRoutines / ListRoutinesPage
//     Pagination support for the list endpoint.
//
//   - GetRoutine(ctx, db, id, userID) -> *domain.Routine, error
//     Fetches a single routine by ID/owner, or ErrNotFound.
//
//   - SaveRoutine(ctx, db, r) -> error
//     Persists a fully-loaded, mutated routine.
//
//   - DeleteRoutine(ctx, db, id, userID) -> error
//     Soft-deletes a routine. Historical check-ins and the streak row are
//     intentionally left in place.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// CreateRoutine inserts a new Routine row. The ID is assigned a random UUID
// when empty, and CreatedAt is set to UTC.
func CreateRoutine(ctx context.Context, db *gorm.DB, r *domain.Routine) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// ListRoutines returns all routines belonging to userID, ordered by creation
// time descending. It returns an empty slice if the user has none.
func ListRoutines(ctx context.Context, db *gorm.DB, userID string) ([]domain.Routine, error) {
	var out []domain.Routine
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListAllRoutines returns every routine in the store regardless of owner.
// Soft-deleted routines are excluded by GORM, which is exactly the lifecycle
// rule the generator relies on: a deleted routine simply stops appearing.
func ListAllRoutines(ctx context.Context, db *gorm.DB) ([]domain.Routine, error) {
	var out []domain.Routine
	err := db.WithContext(ctx).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountRoutines returns the total number of routines owned by userID.
func CountRoutines(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Routine{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListRoutinesPage returns a paginated slice of routines for userID, ordered
// by creation time descending. Use CountRoutines for pagination metadata.
func ListRoutinesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Routine, error) {
	var out []domain.Routine
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetRoutine fetches a single routine by its ID and owner. If the record
// does not exist (or belongs to someone else), it returns ErrNotFound.
func GetRoutine(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Routine, error) {
	var r domain.Routine
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveRoutine persists all fields of a previously-loaded routine. Ownership
// must have been verified by the caller (GetRoutine).
func SaveRoutine(ctx context.Context, db *gorm.DB, r *domain.Routine) error {
	return db.WithContext(ctx).Save(r).Error
}

// DeleteRoutine soft-deletes the routine identified by id and owned by
// userID. If no rows are affected it returns ErrNotFound. Check-ins and the
// streak row for the routine are not touched.
func DeleteRoutine(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Routine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
