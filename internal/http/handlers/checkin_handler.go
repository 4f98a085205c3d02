// Check-in HTTP handlers.
//
// This file exposes REST endpoints for check-in resources:
//   - GET    /checkins                       (list across routines, date-filtered)
//   - POST   /routines/{id}/checkins          (create for a routine)
//   - GET    /routines/{id}/checkins          (list for one routine)
//   - POST   /checkins/{id}/done              (mark done, drives the streak engine)
//   - DELETE /checkins/{id}                   (remove)
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/services"
)

//
// DTOs
//

// CreateCheckinRequest is the JSON payload for creating a check-in.
type CreateCheckinRequest struct {
	// Date is the calendar day of the check-in (YYYY-MM-DD).
	Date string `json:"date" binding:"required" example:"2025-11-10"`
	// Status is "done" or "skipped"; defaults to "skipped".
	Status string `json:"status,omitempty" example:"done"`
	// Note is an optional free-text remark.
	Note string `json:"note,omitempty" example:"5k before breakfast"`
	// Meta carries free-form metadata.
	Meta map[string]any `json:"meta,omitempty"`
}

// MarkDoneRequest is the optional JSON payload when completing a check-in.
type MarkDoneRequest struct {
	Note *string        `json:"note,omitempty" example:"finished late"`
	Meta map[string]any `json:"meta,omitempty"`
}

// MarkDoneResponse bundles the completed check-in with the streak state the
// completion produced.
type MarkDoneResponse struct {
	Checkin *domain.Checkin `json:"checkin"`
	Streak  *domain.Streak  `json:"streak,omitempty"`
}

//
// Helpers
//

// failCheckinErr translates service-layer check-in errors to HTTP responses.
func failCheckinErr(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrRoutineNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "routine not found")
	case errors.Is(err, services.ErrCheckinNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "checkin not found")
	case errors.Is(err, services.ErrDuplicateCheckin):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrStreakConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrInvalidDate):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

//
// Handlers
//

// ListCheckins godoc
// @ID          listCheckins
// @Summary     List check-ins
// @Description Returns the user's check-ins across all routines, newest first, optionally bounded by a date range.
// @Tags        Checkins
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       from       query   string  false "Range start (YYYY-MM-DD)" example(2025-11-01)
// @Param       to         query   string  false "Range end (YYYY-MM-DD)"   example(2025-11-30)
//
// @Success     200  {array}  domain.Checkin
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /checkins [get]
func (h *Handlers) ListCheckins(c *gin.Context) {
	from, to, rangeOK := dateRange(c)
	if !rangeOK {
		return
	}
	items, err := h.checkinSvc.List(c.Request.Context(), userID(c), from, to)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// ListRoutineCheckins godoc
// @ID          listRoutineCheckins
// @Summary     List check-ins of one routine
// @Description Returns the check-ins of a routine owned by the current user, newest first.
// @Tags        Checkins
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Routine ID (UUID)"      format(uuid)
// @Param       from       query   string  false "Range start (YYYY-MM-DD)" example(2025-11-01)
// @Param       to         query   string  false "Range end (YYYY-MM-DD)"   example(2025-11-30)
//
// @Success     200  {array}  domain.Checkin
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Routine not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /routines/{id}/checkins [get]
func (h *Handlers) ListRoutineCheckins(c *gin.Context) {
	routineID := c.Param("id")
	if _, err := uuid.Parse(routineID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "routine id must be a UUID")
		return
	}
	from, to, rangeOK := dateRange(c)
	if !rangeOK {
		return
	}

	items, err := h.checkinSvc.ListForRoutine(c.Request.Context(), userID(c), routineID, from, to)
	if err != nil {
		failCheckinErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateCheckin godoc
// @ID          createCheckin
// @Summary     Create a check-in
// @Description Records a check-in for a routine on a calendar day. A "done" status immediately feeds the streak engine.
// @Tags        Checkins
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Routine ID (UUID)"      format(uuid)
// @Param       body       body    handlers.CreateCheckinRequest  true  "Check-in payload"
//
// @Success     201  {object} domain.Checkin
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Routine not found"
// @Failure     409  {object} handlers.ErrorResponse "Check-in already exists for this date"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /routines/{id}/checkins [post]
func (h *Handlers) CreateCheckin(c *gin.Context) {
	routineID := c.Param("id")
	if _, err := uuid.Parse(routineID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "routine id must be a UUID")
		return
	}

	var req CreateCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
		return
	}

	ci, err := h.checkinSvc.Create(c.Request.Context(), userID(c), services.CheckinInput{
		RoutineID:   routineID,
		CheckinDate: date,
		Status:      req.Status,
		Note:        req.Note,
		Meta:        domain.JSONMap(req.Meta),
	})
	if err != nil {
		failCheckinErr(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, ci)
}

// MarkCheckinDone godoc
// @ID          markCheckinDone
// @Summary     Complete a check-in
// @Description Flips a check-in to "done" and returns it together with the routine's updated streak.
// @Tags        Checkins
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Check-in ID (UUID)"     format(uuid)
// @Param       body       body    handlers.MarkDoneRequest  false  "Optional note and metadata"
//
// @Success     200  {object} handlers.MarkDoneResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Check-in not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent streak update, retry"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /checkins/{id}/done [post]
func (h *Handlers) MarkCheckinDone(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "checkin id must be a UUID")
		return
	}

	// Body is optional; ignore EOF but reject malformed JSON.
	var req MarkDoneRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	uid := userID(c)
	ci, err := h.checkinSvc.MarkDone(c.Request.Context(), uid, id, req.Note, domain.JSONMap(req.Meta))
	if err != nil {
		failCheckinErr(c, err, ErrCodeUpdateFailed)
		return
	}

	resp := MarkDoneResponse{Checkin: ci}
	if st, err := h.streakSvc.Get(c.Request.Context(), ci.RoutineID, uid); err == nil {
		resp.Streak = st
	}
	ok(c, http.StatusOK, resp)
}

// DeleteCheckin godoc
// @ID          deleteCheckin
// @Summary     Delete a check-in
// @Description Removes a check-in owned by the current user. Streak counters are not rewound.
// @Tags        Checkins
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Check-in ID (UUID)"     format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Check-in not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /checkins/{id} [delete]
func (h *Handlers) DeleteCheckin(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "checkin id must be a UUID")
		return
	}

	if err := h.checkinSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		failCheckinErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
