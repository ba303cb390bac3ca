package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/observability"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
	"github.com/yungbote/clearpath-backend/internal/realtime"
	"github.com/yungbote/clearpath-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

type BusEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if err := e.Bus.Publish(ctx, msg); err != nil && e.Log != nil {
		e.Log.Warn("publish SSE message failed", "event", msg.Event, "error", err)
	}
}

// =========================
// Module notifier
// =========================

type ModuleNotifier interface {
	ModuleUnlocked(ctx context.Context, userID uuid.UUID, module gating.Module)
	ModuleCompleted(ctx context.Context, userID uuid.UUID, module gating.Module)
	ReadinessLogged(ctx context.Context, userID uuid.UUID, date time.Time, score float64)
}

type moduleNotifier struct {
	emit SSEEmitter
}

func NewModuleNotifier(emit SSEEmitter) ModuleNotifier {
	return &moduleNotifier{emit: emit}
}

func (n *moduleNotifier) ModuleUnlocked(ctx context.Context, userID uuid.UUID, module gating.Module) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventModuleUnlocked,
		Data: map[string]any{
			"module_slug": module.Slug,
			"title":       module.Title,
		},
	})
}

func (n *moduleNotifier) ModuleCompleted(ctx context.Context, userID uuid.UUID, module gating.Module) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventModuleCompleted,
		Data: map[string]any{
			"module_slug": module.Slug,
			"title":       module.Title,
		},
	})
}

func (n *moduleNotifier) ReadinessLogged(ctx context.Context, userID uuid.UUID, date time.Time, score float64) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventReadinessLogged,
		Data: map[string]any{
			"date":  date.Format("2006-01-02"),
			"score": score,
		},
	})
}

// observedNotifier counts events before forwarding them.
type observedNotifier struct {
	next    ModuleNotifier
	metrics *observability.Metrics
}

// WithMetrics wraps n so unlock events and logged scores are recorded.
func WithMetrics(n ModuleNotifier, m *observability.Metrics) ModuleNotifier {
	if m == nil {
		return n
	}
	return &observedNotifier{next: n, metrics: m}
}

func (o *observedNotifier) ModuleUnlocked(ctx context.Context, userID uuid.UUID, module gating.Module) {
	o.metrics.IncModuleUnlocked(module.Slug)
	if o.next != nil {
		o.next.ModuleUnlocked(ctx, userID, module)
	}
}

func (o *observedNotifier) ModuleCompleted(ctx context.Context, userID uuid.UUID, module gating.Module) {
	if o.next != nil {
		o.next.ModuleCompleted(ctx, userID, module)
	}
}

func (o *observedNotifier) ReadinessLogged(ctx context.Context, userID uuid.UUID, date time.Time, score float64) {
	o.metrics.ObserveReadinessScore(score)
	if o.next != nil {
		o.next.ReadinessLogged(ctx, userID, date, score)
	}
}
