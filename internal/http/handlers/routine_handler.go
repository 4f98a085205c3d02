// Routine HTTP handlers.
//
// This file exposes REST endpoints for routine resources:
//   - POST   /routines          (create)
//   - GET    /routines          (list, paginated, ETag support)
//   - GET    /routines/{id}     (fetch one)
//   - PATCH  /routines/{id}     (partial update)
//   - DELETE /routines/{id}     (soft delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/scheduler"
	"github.com/tbourn/go-habit-backend/internal/services"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RoutineService defines routine lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RoutineService interface {
	// Create validates and stores a new routine for userID.
	Create(ctx context.Context, userID string, in services.RoutineInput) (*domain.Routine, error)
	// ListPage returns a page of routines for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Routine, int64, error)
	// Get fetches one routine owned by userID.
	Get(ctx context.Context, userID, id string) (*domain.Routine, error)
	// Update applies a partial update and re-validates the recurrence rule.
	Update(ctx context.Context, userID, id string, in services.RoutineInput) (*domain.Routine, error)
	// Delete soft-deletes a routine owned by userID.
	Delete(ctx context.Context, userID, id string) error
}

// CheckinService defines check-in operations consumed by HTTP handlers.
type CheckinService interface {
	// Create inserts a check-in for a routine owned by userID.
	Create(ctx context.Context, userID string, in services.CheckinInput) (*domain.Checkin, error)
	// MarkDone flips a check-in to "done" and runs the streak engine.
	MarkDone(ctx context.Context, userID, id string, note *string, meta domain.JSONMap) (*domain.Checkin, error)
	// List returns a user's check-ins, optionally bounded by a date range.
	List(ctx context.Context, userID string, from, to *time.Time) ([]domain.Checkin, error)
	// ListForRoutine returns one routine's check-ins for the user.
	ListForRoutine(ctx context.Context, userID, routineID string, from, to *time.Time) ([]domain.Checkin, error)
	// Delete removes a check-in owned by userID.
	Delete(ctx context.Context, userID, id string) error
}

// StreakService defines streak read operations consumed by HTTP handlers.
type StreakService interface {
	// Get returns the streak for one routine owned by userID.
	Get(ctx context.Context, routineID, userID string) (*domain.Streak, error)
	// ListForUser returns all of a user's streaks, best first.
	ListForUser(ctx context.Context, userID string) ([]domain.Streak, error)
}

// AnalyticsService defines the aggregated reporting read model.
type AnalyticsService interface {
	// Summary computes the user's analytics snapshot.
	Summary(ctx context.Context, userID string, from, to *time.Time) (*services.Summary, error)
}

// PlaceholderGenerator runs one on-demand placeholder generation pass.
type PlaceholderGenerator interface {
	Generate(ctx context.Context, target time.Time) (*scheduler.Summary, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for routines, check-ins, streaks, and
// analytics. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	routineSvc   RoutineService
	checkinSvc   CheckinService
	streakSvc    StreakService
	analyticsSvc AnalyticsService
	generator    PlaceholderGenerator
	loc          *time.Location
}

// New constructs and returns a Handlers instance bound to the given services.
// loc is the scheduling timezone used to resolve "tomorrow" for the manual
// generation trigger; nil means UTC.
func New(routineSvc RoutineService, checkinSvc CheckinService, streakSvc StreakService, analyticsSvc AnalyticsService, gen PlaceholderGenerator, loc *time.Location) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{
		routineSvc:   routineSvc,
		checkinSvc:   checkinSvc,
		streakSvc:    streakSvc,
		analyticsSvc: analyticsSvc,
		generator:    gen,
		loc:          loc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateRoutineRequest is the JSON payload for creating a routine.
type CreateRoutineRequest struct {
	// Title names the routine (1–255 chars).
	Title string `json:"title" binding:"required,min=1,max=255" example:"Morning run"`
	// Frequency is "daily" or "weekly".
	Frequency string `json:"frequency" binding:"required" example:"weekly"`
	// Weekdays lists ISO weekday indexes (Mon=1..Sun=7); weekly only.
	Weekdays []int `json:"weekdays,omitempty" example:"1,3,5"`
	// TimeOfDay optionally hints a reminder time ("HH:MM").
	TimeOfDay string `json:"time_of_day,omitempty" example:"07:30"`
	// Reminders toggles reminder delivery; defaults to true.
	Reminders *bool `json:"reminders,omitempty"`
	// Meta carries free-form metadata.
	Meta map[string]any `json:"meta,omitempty"`
}

// UpdateRoutineRequest is the JSON payload for a partial routine update.
// Omitted fields keep their current value.
type UpdateRoutineRequest struct {
	Title     string         `json:"title,omitempty" example:"Evening run"`
	Frequency string         `json:"frequency,omitempty" example:"daily"`
	Weekdays  []int          `json:"weekdays,omitempty"`
	TimeOfDay string         `json:"time_of_day,omitempty" example:"19:00"`
	Reminders *bool          `json:"reminders,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListRoutinesResponse wraps a page of routines and pagination information.
type ListRoutinesResponse struct {
	Routines   []domain.Routine `json:"routines"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// dateRange parses optional "from" and "to" query params (YYYY-MM-DD).
// The second return is false when either value is malformed; the handler is
// expected to have already replied with 400.
func dateRange(c *gin.Context) (from, to *time.Time, ok bool) {
	var err error
	if from, err = utils.ParseDate(c.Query("from")); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from must be YYYY-MM-DD")
		return nil, nil, false
	}
	if to, err = utils.ParseDate(c.Query("to")); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "to must be YYYY-MM-DD")
		return nil, nil, false
	}
	return from, to, true
}

// routineInput maps a create/update payload onto the service input type.
func routineInput(title, frequency string, weekdays []int, timeOfDay string, reminders *bool, meta map[string]any) services.RoutineInput {
	return services.RoutineInput{
		Title:     title,
		Frequency: strings.ToLower(strings.TrimSpace(frequency)),
		Weekdays:  domain.WeekdaySet(weekdays),
		TimeOfDay: timeOfDay,
		Reminders: reminders,
		Meta:      domain.JSONMap(meta),
	}
}

// failRoutineErr translates service-layer routine errors to HTTP responses.
func failRoutineErr(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrRoutineNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "routine not found")
	case errors.Is(err, services.ErrInvalidRecurrence):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrEmptyTitle):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

//
// Handlers
//

// CreateRoutine godoc
// @ID          createRoutine
// @Summary     Create a new routine
// @Description Creates a routine for the current user and returns the routine resource.
// @Tags        Routines
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateRoutineRequest  true  "Create routine payload"
//
// @Success     201  {object}  domain.Routine
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /routines [post]
func (h *Handlers) CreateRoutine(c *gin.Context) {
	var req CreateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in := routineInput(req.Title, req.Frequency, req.Weekdays, req.TimeOfDay, req.Reminders, req.Meta)
	r, err := h.routineSvc.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		failRoutineErr(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListRoutines godoc
// @ID          listRoutines
// @Summary     List routines (paginated)
// @Description Returns a page of the user's routines. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Routines
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRoutinesResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /routines [get]
func (h *Handlers) ListRoutines(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.routineSvc.(*services.RoutineService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.RoutinesStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"routines:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	// Fetch page.
	items, total, err := h.routineSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListRoutinesResponse{
		Routines: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// GetRoutine godoc
// @ID          getRoutine
// @Summary     Fetch one routine
// @Description Returns a single routine owned by the current user.
// @Tags        Routines
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Routine ID (UUID)"      format(uuid)
//
// @Success     200  {object} domain.Routine
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Routine not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /routines/{id} [get]
func (h *Handlers) GetRoutine(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "routine id must be a UUID")
		return
	}

	r, err := h.routineSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failRoutineErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateRoutine godoc
// @ID          updateRoutine
// @Summary     Update a routine
// @Description Applies a partial update to a routine owned by the current user.
// @Tags        Routines
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Routine ID (UUID)"      format(uuid)
// @Param       body       body    handlers.UpdateRoutineRequest  true  "Fields to update"
//
// @Success     200  {object} domain.Routine
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Routine not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /routines/{id} [patch]
func (h *Handlers) UpdateRoutine(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "routine id must be a UUID")
		return
	}

	var req UpdateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in := routineInput(req.Title, req.Frequency, req.Weekdays, req.TimeOfDay, req.Reminders, req.Meta)
	r, err := h.routineSvc.Update(c.Request.Context(), userID(c), id, in)
	if err != nil {
		failRoutineErr(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteRoutine godoc
// @ID          deleteRoutine
// @Summary     Delete a routine
// @Description Soft-deletes a routine. Historical check-ins and the streak record are kept.
// @Tags        Routines
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Routine ID (UUID)"      format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Routine not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /routines/{id} [delete]
func (h *Handlers) DeleteRoutine(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "routine id must be a UUID")
		return
	}

	if err := h.routineSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		failRoutineErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
