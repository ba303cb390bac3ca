package realtime

type SSEEvent string

const (
	SSEEventModuleUnlocked  SSEEvent = "ModuleUnlocked"
	SSEEventModuleCompleted SSEEvent = "ModuleCompleted"
	SSEEventReadinessLogged SSEEvent = "ReadinessLogged"
)

// SSEMessage is delivered to every client subscribed to Channel. User
// channels are the user's uuid string.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
