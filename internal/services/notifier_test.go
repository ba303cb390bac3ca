package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/observability"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
	"github.com/yungbote/clearpath-backend/internal/realtime"
)

func TestModuleNotifierBroadcastsOnUserChannel(t *testing.T) {
	hub := realtime.NewSSEHub(logger.Nop())
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, userID.String())
	t.Cleanup(func() { hub.CloseClient(client) })

	n := WithMetrics(NewModuleNotifier(&HubEmitter{Hub: hub}), observability.NewMetrics())
	n.ModuleUnlocked(context.Background(), userID, gating.Module{Slug: "04-binders", Title: "Binders"})
	n.ModuleUnlocked(context.Background(), uuid.Nil, gating.Module{Slug: "ignored"})

	select {
	case msg := <-client.Outbound:
		if msg.Event != realtime.SSEEventModuleUnlocked || msg.Channel != userID.String() {
			t.Fatalf("msg=%+v", msg)
		}
		data, ok := msg.Data.(map[string]any)
		if !ok || data["module_slug"] != "04-binders" || data["title"] != "Binders" {
			t.Fatalf("data=%+v", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatalf("no message delivered")
	}
	select {
	case msg := <-client.Outbound:
		t.Fatalf("unexpected message %+v", msg)
	default:
	}
}

func TestWithMetricsNilPassesThrough(t *testing.T) {
	inner := &fakeNotifier{}
	if got := WithMetrics(inner, nil); got != ModuleNotifier(inner) {
		t.Fatalf("nil metrics should return the wrapped notifier")
	}
}
