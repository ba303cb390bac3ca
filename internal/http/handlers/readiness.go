package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clearpath-backend/internal/http/response"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/services"
)

type ReadinessHandler struct {
	tracking services.TrackingService
}

func NewReadinessHandler(tracking services.TrackingService) *ReadinessHandler {
	return &ReadinessHandler{tracking: tracking}
}

// PUT /api/readiness/:date
// body: { "score": 80, "sub_metrics": {"liver": 7, ...}, "notes": "..." }
func (h *ReadinessHandler) PutReadiness(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		response.RespondErr(c, apierr.Invalid("date must be YYYY-MM-DD"))
		return
	}
	var req services.ReadinessInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.Invalid("invalid request body: %v", err))
		return
	}
	rec, unlocked, err := h.tracking.RecordReadiness(c.Request.Context(), date, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if unlocked == nil {
		unlocked = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"record": rec, "unlocked": unlocked})
}

// GET /api/readiness?days=N
func (h *ReadinessHandler) ListReadiness(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondErr(c, apierr.Invalid("days must be a positive integer"))
			return
		}
		days = n
	}
	rows, err := h.tracking.ListReadiness(c.Request.Context(), days)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows})
}
