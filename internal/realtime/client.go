package realtime

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SSEClient is one open stream. A client with an empty event filter receives
// every event on its channels.
type SSEClient struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ConnectedAt time.Time
	Channels    map[string]bool
	Outbound    chan SSEMessage

	events map[SSEEvent]bool
	done   chan struct{}
}

// ParseEvents turns a comma separated list such as
// "ModuleUnlocked,ModuleCompleted" into known events. Unknown names are
// returned separately so callers can reject them.
func ParseEvents(raw string) (known []SSEEvent, unknown []string) {
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		ev := SSEEvent(name)
		switch ev {
		case SSEEventModuleUnlocked, SSEEventModuleCompleted, SSEEventReadinessLogged:
			known = append(known, ev)
		default:
			unknown = append(unknown, name)
		}
	}
	return known, unknown
}

// Filter limits the client to the given events. Calling it with no events
// clears the filter.
func (c *SSEClient) Filter(events ...SSEEvent) {
	if len(events) == 0 {
		c.events = nil
		return
	}
	c.events = make(map[SSEEvent]bool, len(events))
	for _, ev := range events {
		c.events[ev] = true
	}
}

// Wants reports whether msg passes the client's event filter.
func (c *SSEClient) Wants(msg SSEMessage) bool {
	return len(c.events) == 0 || c.events[msg.Event]
}
