package peering

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// DefaultRedisChannel is the channel used when none is configured.
const DefaultRedisChannel = "ovecore:broadcast"

// RedisConfig configures a RedisRelay.
type RedisConfig struct {
	Addr     string
	Password string
	Channel  string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// RedisRelay relays envelopes through a Redis pub/sub channel shared by
// every instance.
type RedisRelay struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	queue   chan []byte
	logger  *slog.Logger
}

// NewRedisRelay creates a relay. Call Run to start publishing and subscribing.
func NewRedisRelay(cfg RedisConfig) *RedisRelay {
	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RedisRelay{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
		}),
		channel: cfg.Channel,
		timeout: cfg.Timeout,
		queue:   make(chan []byte, DefaultQueueSize),
		logger:  cfg.Logger.With("component", "redis_relay", "channel", cfg.Channel),
	}
}

// Ping checks the Redis connection.
func (r *RedisRelay) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Relay queues an envelope for publishing. A full queue drops it.
func (r *RedisRelay) Relay(env *domain.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		r.logger.Error("failed to encode relayed envelope", "error", err)
		return
	}
	select {
	case r.queue <- data:
	default:
		r.logger.Warn("redis relay queue full, envelope dropped")
	}
}

// Run publishes queued envelopes and hands subscribed ones to recv until
// ctx is done. Every instance subscribes to the channel, so recv must not
// publish what it receives back onto it. Our own publications come back
// and are dropped by the receiver's forwardedBy check.
func (r *RedisRelay) Run(ctx context.Context, recv Receiver) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	msgs := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-r.queue:
			r.publish(ctx, data)
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			env, _, err := domain.DecodeEnvelope([]byte(msg.Payload))
			if err != nil {
				r.logger.Debug("ignoring malformed relayed frame", "error", err)
				continue
			}
			recv.Receive(env)
		}
	}
}

func (r *RedisRelay) publish(ctx context.Context, data []byte) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn("redis publish failed", "error", err)
	}
}

// Close releases the Redis client.
func (r *RedisRelay) Close() error {
	return r.client.Close()
}
