// Package transport carries raw broadcast packets between robots.
//
// Every backend is best effort: sends never wait on a slow peer, full
// queues drop, and there is no ordering across senders.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	NameMemory    = "memory"
	NameRedis     = "redis"
	NameWebSocket = "websocket"

	DefaultBuffer = 256
)

var (
	ErrClosed         = errors.New("transport: closed")
	ErrNotConnected   = errors.New("transport: not connected")
	ErrUnknownBackend = errors.New("transport: unknown backend")
)

// Transport is the send/receive contract the orchestrator depends on.
type Transport interface {
	// Send broadcasts data to every reachable peer.
	Send(ctx context.Context, data []byte) error
	// Receive blocks until one message arrives, ctx ends, or the transport closes.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Name         string
	RedisAddr    string
	RedisChannel string
	RelayURL     string
	Buffer       int
	Backoff      BackoffConfig
	// Hub is required by the memory backend.
	Hub *Hub
}

// Open builds the backend named by cfg.Name.
func Open(ctx context.Context, cfg Config) (Transport, error) {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case NameMemory:
		if cfg.Hub == nil {
			return nil, fmt.Errorf("transport: memory backend requires a hub")
		}
		return cfg.Hub.Join(), nil
	case NameRedis:
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisChannel, cfg.Buffer)
	case NameWebSocket:
		return DialWebSocket(ctx, cfg.RelayURL, cfg.Buffer, cfg.Backoff)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Name)
	}
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
