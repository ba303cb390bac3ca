package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/clearpath-backend/internal/platform/logger"
	"github.com/yungbote/clearpath-backend/internal/realtime"
)

const envelopeVersion = 1

// envelope is the wire form on the Redis channel.
type envelope struct {
	V       int                 `json:"v"`
	SentAt  time.Time           `json:"sent_at"`
	Message realtime.SSEMessage `json:"message"`
}

var errUnsupportedEnvelope = errors.New("unsupported envelope")

func encodeEnvelope(msg realtime.SSEMessage, now time.Time) ([]byte, error) {
	if strings.TrimSpace(msg.Channel) == "" {
		return nil, fmt.Errorf("sse message has no channel")
	}
	return json.Marshal(envelope{V: envelopeVersion, SentAt: now.UTC(), Message: msg})
}

func decodeEnvelope(raw []byte) (realtime.SSEMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return realtime.SSEMessage{}, err
	}
	if env.V != envelopeVersion {
		return realtime.SSEMessage{}, fmt.Errorf("%w: v=%d", errUnsupportedEnvelope, env.V)
	}
	if env.Message.Channel == "" || env.Message.Event == "" {
		return realtime.SSEMessage{}, fmt.Errorf("%w: missing channel or event", errUnsupportedEnvelope)
	}
	return env.Message, nil
}

// redisBus fans unlock and progress events out to every API instance so a
// user's SSE stream receives them regardless of which instance handled the
// write.
type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisBus(cfg Config, log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.RedisChannel)
	if ch == "" {
		ch = "clearpath-sse"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	busLog := log.With("service", "RedisModuleEventBus", "channel", ch)
	busLog.Info("connected")
	return &redisBus{log: busLog, rdb: rdb, channel: ch}, nil
}

// New returns the Redis bus when REDIS_ADDR is set and the in-memory bus
// otherwise.
func New(cfg Config, log *logger.Logger) (Bus, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return NewMemoryBus(), nil
	}
	return NewRedisBus(cfg, log)
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	raw, err := encodeEnvelope(msg, time.Now())
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Event, err)
	}
	return nil
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel(goredis.WithChannelSize(256))
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					b.log.Warn("subscription closed")
					return
				}
				msg, err := decodeEnvelope([]byte(m.Payload))
				if err != nil {
					b.log.Warn("dropping event", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
