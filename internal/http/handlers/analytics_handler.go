// Analytics HTTP handler.
//
// One read-only endpoint aggregating check-in totals, completion rate, and
// the top-streak leaderboard:
//   - GET /analytics/summary
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAnalyticsSummary godoc
// @ID          getAnalyticsSummary
// @Summary     Analytics summary
// @Description Returns the user's routine count, check-in totals, completion rate, and top streaks. Optional from/to bound the check-in window.
// @Tags        Analytics
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"    example(user123)
// @Param       from       query   string  false "Range start (YYYY-MM-DD)" example(2025-11-01)
// @Param       to         query   string  false "Range end (YYYY-MM-DD)"   example(2025-11-30)
//
// @Success     200  {object} services.Summary
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /analytics/summary [get]
func (h *Handlers) GetAnalyticsSummary(c *gin.Context) {
	from, to, rangeOK := dateRange(c)
	if !rangeOK {
		return
	}

	sum, err := h.analyticsSvc.Summary(c.Request.Context(), userID(c), from, to)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}
