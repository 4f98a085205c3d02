// Admin HTTP handler.
//
// On-demand trigger for the placeholder generator, mirroring what the nightly
// schedule does:
//   - POST /admin/generate
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-habit-backend/internal/scheduler"
)

// GenerateRequest optionally overrides the generation target day.
type GenerateRequest struct {
	// Date is the target calendar day (YYYY-MM-DD); defaults to tomorrow.
	Date string `json:"date,omitempty" example:"2025-11-11"`
}

// TriggerGenerate godoc
// @ID          triggerGenerate
// @Summary     Run placeholder generation
// @Description Runs one placeholder generation pass for the given day (default: tomorrow) and returns the run summary. The pass is idempotent.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.GenerateRequest  false  "Optional target day"
//
// @Success     200  {object} scheduler.Summary
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Generation failed"
// @Router      /admin/generate [post]
func (h *Handlers) TriggerGenerate(c *gin.Context) {
	// Default matches the nightly schedule: tomorrow in the scheduling zone.
	target := scheduler.Tomorrow(time.Now(), h.loc)

	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
		if req.Date != "" {
			d, err := time.Parse("2006-01-02", req.Date)
			if err != nil {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
				return
			}
			target = d
		}
	}

	sum, err := h.generator.Generate(c.Request.Context(), target)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeGenerateFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}
