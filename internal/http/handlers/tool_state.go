package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clearpath-backend/internal/domain/tools"
	"github.com/yungbote/clearpath-backend/internal/http/response"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/services"
)

type ToolStateHandler struct {
	svc services.ToolStateService
}

func NewToolStateHandler(svc services.ToolStateService) *ToolStateHandler {
	return &ToolStateHandler{svc: svc}
}

// PUT /api/tools/binder-tolerance
func (h *ToolStateHandler) PutBinderTolerance(c *gin.Context) {
	var req tools.BinderToleranceState
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.Invalid("invalid request body: %v", err))
		return
	}
	state, unlocked, err := h.svc.SaveBinderTolerance(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "unlocked": unlocked})
}

// GET /api/tools/binder-tolerance
func (h *ToolStateHandler) GetBinderTolerance(c *gin.Context) {
	state, err := h.svc.GetBinderTolerance(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}
