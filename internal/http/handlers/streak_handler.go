// Streak HTTP handlers.
//
// Read-only endpoints over the streak engine's state:
//   - GET /routines/{id}/streak   (one routine's counters)
//   - GET /streaks                (all of the user's streaks, best first)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-habit-backend/internal/services"
)

// GetStreak godoc
// @ID          getStreak
// @Summary     Fetch a routine's streak
// @Description Returns the consecutive-day counters for one routine owned by the current user.
// @Tags        Streaks
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Routine ID (UUID)"      format(uuid)
//
// @Success     200  {object} domain.Streak
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Streak not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /routines/{id}/streak [get]
func (h *Handlers) GetStreak(c *gin.Context) {
	routineID := c.Param("id")
	if _, err := uuid.Parse(routineID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "routine id must be a UUID")
		return
	}

	st, err := h.streakSvc.Get(c.Request.Context(), routineID, userID(c))
	if err != nil {
		if errors.Is(err, services.ErrStreakNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "streak not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// ListStreaks godoc
// @ID          listStreaks
// @Summary     List streaks
// @Description Returns all of the user's streaks ordered by current streak descending.
// @Tags        Streaks
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {array}  domain.Streak
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /streaks [get]
func (h *Handlers) ListStreaks(c *gin.Context) {
	items, err := h.streakSvc.ListForUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}
