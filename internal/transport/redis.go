package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultRedisChannel = "swarmctl:broadcast"

// Redis broadcasts over one redis pub/sub channel. Every subscriber,
// including the sender, receives each published message.
type Redis struct {
	rdb     *redis.Client
	pubsub  *redis.PubSub
	channel string
	msgs    <-chan *redis.Message
}

func DialRedis(ctx context.Context, addr, channel string, buffer int) (*Redis, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("transport: redis address is required")
	}
	if strings.TrimSpace(channel) == "" {
		channel = DefaultRedisChannel
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("transport: redis ping %s: %w", addr, err)
	}
	pubsub := rdb.Subscribe(ctx, channel)
	// wait for the subscription confirmation so early publishes are not missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("transport: redis subscribe %s: %w", channel, err)
	}
	log.Info().Str("addr", addr).Str("channel", channel).Msg("transport.DialRedis subscribed")
	return &Redis{
		rdb:     rdb,
		pubsub:  pubsub,
		channel: channel,
		msgs:    pubsub.Channel(redis.WithChannelSize(buffer)),
	}, nil
}

func (r *Redis) Send(ctx context.Context, data []byte) error {
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("transport: redis publish: %w", err)
	}
	return nil
}

func (r *Redis) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-r.msgs:
		if !ok {
			return nil, ErrClosed
		}
		return []byte(msg.Payload), nil
	}
}

func (r *Redis) Close() error {
	psErr := r.pubsub.Close()
	if err := r.rdb.Close(); err != nil {
		return err
	}
	return psErr
}
