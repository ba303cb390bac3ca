package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clearpath-backend/internal/http/response"
	"github.com/yungbote/clearpath-backend/internal/services"
)

type ModuleHandler struct {
	gating   services.GatingService
	progress services.ProgressService
}

func NewModuleHandler(gating services.GatingService, progress services.ProgressService) *ModuleHandler {
	return &ModuleHandler{gating: gating, progress: progress}
}

// GET /api/modules
func (h *ModuleHandler) ListModules(c *gin.Context) {
	modules, err := h.gating.ListModules(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modules": modules})
}

// GET /api/modules/unlocked
func (h *ModuleHandler) ListUnlocked(c *gin.Context) {
	slugs, err := h.gating.GetUnlockedModules(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlocked": slugs})
}

// GET /api/modules/:slug/gating
func (h *ModuleHandler) GetGating(c *gin.Context) {
	res, err := h.gating.CheckModuleGating(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gating": res})
}

// GET /api/modules/:slug/prerequisites
func (h *ModuleHandler) GetPrerequisites(c *gin.Context) {
	res, err := h.gating.CheckModulePrerequisites(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prerequisites": res})
}

// GET /api/modules/:slug/unlock-instructions
func (h *ModuleHandler) GetUnlockInstructions(c *gin.Context) {
	hints, err := h.gating.GetUnlockInstructions(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instructions": hints})
}

// GET /api/modules/:slug/safety
func (h *ModuleHandler) GetSafety(c *gin.Context) {
	advice, err := h.gating.CanSafelyProceed(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"safety": advice})
}

// POST /api/modules/:slug/start
func (h *ModuleHandler) StartModule(c *gin.Context) {
	upd, err := h.progress.StartModule(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, upd)
}

// POST /api/modules/:slug/lessons/:lessonId/complete
func (h *ModuleHandler) CompleteLesson(c *gin.Context) {
	upd, err := h.progress.CompleteLesson(c.Request.Context(), c.Param("slug"), c.Param("lessonId"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, upd)
}

// POST /api/modules/:slug/complete
func (h *ModuleHandler) CompleteModule(c *gin.Context) {
	upd, err := h.progress.CompleteModule(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, upd)
}

// GET /api/progress
func (h *ModuleHandler) ListProgress(c *gin.Context) {
	rows, err := h.progress.ListProgress(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows})
}
