package bus

import (
	"context"

	"github.com/yungbote/clearpath-backend/internal/realtime"
)

// Bus carries SSE messages between API instances. StartForwarder delivers
// every published message to onMsg until ctx ends.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

type Config struct {
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"clearpath-sse"`
}
