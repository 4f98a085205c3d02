// Package services – EventService
//
// Best-effort telemetry. Record never returns an error: event logging is an
// observability aid, and a failed insert must not roll back or fail the
// operation that produced it (placeholder generation, a user marking a
// routine done). Failures are logged at warn level and swallowed.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// Event types emitted by this service's callers.
const (
	EventCheckinPlanned = "checkin_planned"
	EventCheckinCreated = "checkin_created"
	EventCheckinDone    = "checkin_done"
)

// EventService appends telemetry events for reporting collaborators.
type EventService struct {
	// DB is the database handle used for event inserts.
	DB *gorm.DB
}

// Record appends one event. Fire-and-forget: errors are logged, never
// returned.
func (s *EventService) Record(ctx context.Context, userID, eventType string, payload domain.JSONMap) {
	e := &domain.Event{
		UserID:  userID,
		Type:    eventType,
		Payload: payload,
	}
	if err := repo.CreateEvent(ctx, s.DB, e); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID).
			Str("event_type", eventType).
			Msg("event record failed")
	}
}

// List returns the most recent events for a user, newest first.
func (s *EventService) List(ctx context.Context, userID string, limit int) ([]domain.Event, error) {
	return repo.ListEvents(ctx, s.DB, userID, limit)
}
