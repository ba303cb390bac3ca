package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/clearpath-backend/internal/platform/logger"
	"github.com/yungbote/clearpath-backend/internal/realtime"
)

func TestMemoryBusForwards(t *testing.T) {
	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []realtime.SSEMessage
	if err := b.StartForwarder(ctx, func(m realtime.SSEMessage) { got = append(got, m) }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	msg := realtime.SSEMessage{Channel: "u1", Event: realtime.SSEEventModuleUnlocked}
	if err := b.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 || got[0].Event != realtime.SSEEventModuleUnlocked {
		t.Fatalf("got=%+v", got)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Publish(ctx, msg); err == nil {
		t.Fatalf("Publish after Close should fail")
	}
}

func TestNewWithoutRedisUsesMemory(t *testing.T) {
	b, err := New(Config{}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := b.(*memoryBus); !ok {
		t.Fatalf("want memory bus, got %T", b)
	}
	if _, err := NewRedisBus(Config{}, logger.Nop()); err == nil {
		t.Fatalf("NewRedisBus without address should fail")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	msg := realtime.SSEMessage{
		Channel: "5d9f6f0e-3c1a-4e0b-9d2f-8f1c2b3a4d5e",
		Event:   realtime.SSEEventModuleUnlocked,
		Data:    map[string]any{"module_slug": "04-binders"},
	}
	raw, err := encodeEnvelope(msg, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Channel != msg.Channel || got.Event != msg.Event {
		t.Fatalf("got=%+v", got)
	}
	data, ok := got.Data.(map[string]any)
	if !ok || data["module_slug"] != "04-binders" {
		t.Fatalf("data=%#v", got.Data)
	}
}

func TestEnvelopeRejects(t *testing.T) {
	if _, err := encodeEnvelope(realtime.SSEMessage{Event: realtime.SSEEventModuleUnlocked}, time.Now()); err == nil {
		t.Fatalf("expected error for message without channel")
	}
	cases := map[string]string{
		"future_version": `{"v":2,"message":{"channel":"u","event":"ModuleUnlocked"}}`,
		"no_event":       `{"v":1,"message":{"channel":"u"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeEnvelope([]byte(raw)); !errors.Is(err, errUnsupportedEnvelope) {
				t.Fatalf("err=%v", err)
			}
		})
	}
	if _, err := decodeEnvelope([]byte("{")); err == nil {
		t.Fatalf("expected json error")
	}
}
