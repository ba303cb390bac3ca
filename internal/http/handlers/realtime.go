package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/http/response"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/ctxutil"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
	"github.com/yungbote/clearpath-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/sse/stream?events=ModuleUnlocked,ModuleCompleted
// Every connection joins the caller's user channel; unlock and progress
// events are published there. events narrows what the stream delivers.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondErr(c, apierr.ErrUnauthorized)
		return
	}
	events, unknown := realtime.ParseEvents(c.Query("events"))
	if len(unknown) > 0 {
		response.RespondErr(c, apierr.Invalid("unknown events: %s", strings.Join(unknown, ", ")))
		return
	}
	client := h.hub.NewSSEClient(userID)
	client.Filter(events...)
	h.hub.AddChannel(client, userID.String())
	h.log.Debug("SSE stream open", "user_id", userID, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "user_id", userID, "client_id", client.ID)
}
