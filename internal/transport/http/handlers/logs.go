package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arklim/residency-registry/internal/usecase"
)

const maxLogLimit = 1000

// LogHandler exposes the activity log to admins.
type LogHandler struct {
	activity *usecase.ActivityService
}

// NewLogHandler constructs LogHandler.
func NewLogHandler(activity *usecase.ActivityService) *LogHandler {
	return &LogHandler{activity: activity}
}

// List returns activity entries most-recent-first, never more than maxLogLimit.
// A missing or zero ?limit means the cap itself.
func (h *LogHandler) List(c *gin.Context) {
	limit := maxLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a non-negative integer"))
			return
		}
		if n > 0 {
			limit = min(n, maxLogLimit)
		}
	}

	entries, err := h.activity.List(c.Request.Context(), limit)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to fetch activity logs")
		return
	}
	c.JSON(http.StatusOK, entries)
}
