package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/danmuck/swarmctl/internal/observability"
	"github.com/rs/zerolog/log"
)

// Hub is an in-process broadcast medium shared by memory transports.
type Hub struct {
	mu      sync.RWMutex
	buffer  int
	nextID  int
	peers   map[int]*Memory
	dropped atomic.Uint64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{buffer: buffer, peers: make(map[int]*Memory)}
}

// Join attaches a new peer. Its sends reach every other peer on the hub.
func (h *Hub) Join() *Memory {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	m := &Memory{
		hub:   h,
		id:    h.nextID,
		inbox: make(chan []byte, h.buffer),
		done:  make(chan struct{}),
	}
	h.peers[m.id] = m
	return m
}

func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Dropped counts deliveries discarded because a peer inbox was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) broadcast(from int, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, peer := range h.peers {
		if id == from {
			continue
		}
		select {
		case peer.inbox <- copyBytes(data):
		default:
			h.dropped.Add(1)
			observability.RecordTransportDrop(NameMemory)
			log.Debug().Int("peer", id).Msg("transport.Hub.broadcast inbox full, dropping")
		}
	}
}

func (h *Hub) leave(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, id)
}

// Memory is one peer on a Hub.
type Memory struct {
	hub       *Hub
	id        int
	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (m *Memory) Send(ctx context.Context, data []byte) error {
	select {
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	m.hub.broadcast(m.id, data)
	return nil
}

func (m *Memory) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-m.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case data := <-m.inbox:
		return data, nil
	}
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		m.hub.leave(m.id)
		close(m.done)
	})
	return nil
}
