package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// DefaultStream is the Redis stream alerts are appended to.
const DefaultStream = "safety:alerts"

// RedisConfig configures the Redis stream sender.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// NewRedisClient creates a client for cfg.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisSender appends alerts to a Redis stream for downstream consumers.
type RedisSender struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisSender creates a sender writing to cfg.Stream.
func NewRedisSender(client redis.Cmdable, cfg RedisConfig) *RedisSender {
	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}

	return &RedisSender{
		client: client,
		stream: stream,
		maxLen: cfg.MaxLen,
	}
}

// Name implements Sender.
func (s *RedisSender) Name() string {
	return "redis"
}

// Send implements Sender.
func (s *RedisSender) Send(ctx context.Context, alert *safety.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"event_id":   alert.EventID,
			"device_id":  alert.DeviceID,
			"event_code": string(alert.EventCode),
			"severity":   string(alert.Severity),
			"data":       string(payload),
		},
	}

	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err = s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append alert to stream %s: %w", s.stream, err)
	}

	return nil
}
