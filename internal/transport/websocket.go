package transport

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/swarmctl/internal/observability"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteTimeout  = 5 * time.Second
	wsMaxMessageLen = 2 * 1024 * 1024
)

// WebSocket is a relay client. It redials with backoff when the relay drops.
type WebSocket struct {
	url     string
	dialer  *websocket.Dialer
	backoff BackoffConfig
	rng     *rand.Rand

	inbox chan []byte

	mu   sync.Mutex // serializes writes and conn swaps
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// DialWebSocket connects to a relay once. Later disconnects are retried
// in the background until Close.
func DialWebSocket(ctx context.Context, url string, buffer int, backoff BackoffConfig) (*WebSocket, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("transport: relay url is required")
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if backoff.InitialDelay <= 0 {
		backoff = DefaultBackoff()
	}
	dialer := &websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial relay %s: %w", url, err)
	}
	conn.SetReadLimit(wsMaxMessageLen)

	runCtx, cancel := context.WithCancel(context.Background())
	w := &WebSocket{
		url:     url,
		dialer:  dialer,
		backoff: backoff,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		inbox:   make(chan []byte, buffer),
		conn:    conn,
		ctx:     runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go w.run(conn)
	log.Info().Str("url", url).Msg("transport.DialWebSocket connected")
	return w, nil
}

func (w *WebSocket) run(conn *websocket.Conn) {
	defer close(w.done)
	for {
		w.readLoop(conn)
		if w.ctx.Err() != nil {
			return
		}
		w.mu.Lock()
		if w.conn == conn {
			w.conn = nil
		}
		w.mu.Unlock()

		next, ok := w.redial()
		if !ok {
			return
		}
		conn = next
	}
}

func (w *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if w.ctx.Err() == nil {
				log.Warn().Err(err).Str("url", w.url).Msg("transport.WebSocket.readLoop disconnected")
			}
			return
		}
		select {
		case w.inbox <- msg:
		default:
			observability.RecordTransportDrop(NameWebSocket)
			log.Debug().Str("url", w.url).Msg("transport.WebSocket.readLoop inbox full, dropping")
		}
	}
}

func (w *WebSocket) redial() (*websocket.Conn, bool) {
	for attempt := 1; ; attempt++ {
		delay := NextBackoffDelay(w.backoff, attempt, w.rng)
		select {
		case <-w.ctx.Done():
			return nil, false
		case <-time.After(delay):
		}
		conn, _, err := w.dialer.DialContext(w.ctx, w.url, nil)
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("transport.WebSocket.redial failed")
			continue
		}
		conn.SetReadLimit(wsMaxMessageLen)
		w.mu.Lock()
		if w.ctx.Err() != nil {
			w.mu.Unlock()
			_ = conn.Close()
			return nil, false
		}
		w.conn = conn
		w.mu.Unlock()
		log.Info().Str("url", w.url).Int("attempt", attempt).Msg("transport.WebSocket.redial reconnected")
		return conn, true
	}
}

// Send returns ErrNotConnected while a redial is in progress.
func (w *WebSocket) Send(ctx context.Context, data []byte) error {
	if w.ctx.Err() != nil {
		return ErrClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ErrNotConnected
	}
	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = w.conn.SetWriteDeadline(deadline)
	if err := w.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("transport: websocket write: %w", err)
	}
	return nil
}

func (w *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.ctx.Done():
		return nil, ErrClosed
	case msg := <-w.inbox:
		return msg, nil
	}
}

func (w *WebSocket) Close() error {
	w.cancel()
	w.mu.Lock()
	if w.conn != nil {
		_ = w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = w.conn.Close()
		w.conn = nil
	}
	w.mu.Unlock()
	<-w.done
	return nil
}

// Relay fans every message a client sends out to all other clients.
type Relay struct {
	upgrader websocket.Upgrader
	buffer   int

	mu    sync.RWMutex
	peers map[*relayPeer]struct{}
}

type relayPeer struct {
	conn *websocket.Conn
	out  chan []byte
}

func NewRelay(buffer int) *Relay {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Relay{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		buffer: buffer,
		peers:  make(map[*relayPeer]struct{}),
	}
}

func (r *Relay) Peers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Relay) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		log.Warn().Err(err).Msg("transport.Relay.ServeHTTP upgrade failed")
		return
	}
	conn.SetReadLimit(wsMaxMessageLen)
	peer := &relayPeer{conn: conn, out: make(chan []byte, r.buffer)}
	r.mu.Lock()
	r.peers[peer] = struct{}{}
	r.mu.Unlock()
	log.Debug().Str("remote", req.RemoteAddr).Msg("transport.Relay.ServeHTTP peer joined")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range peer.out {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				_ = conn.Close()
				// drain so fanout never blocks on a dead peer
				for range peer.out {
				}
				return
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		r.fanout(peer, msg)
	}

	r.mu.Lock()
	delete(r.peers, peer)
	r.mu.Unlock()
	// no fanout can reach peer.out once it is out of the map
	close(peer.out)
	<-writerDone
	_ = conn.Close()
	log.Debug().Str("remote", req.RemoteAddr).Msg("transport.Relay.ServeHTTP peer left")
}

func (r *Relay) fanout(from *relayPeer, msg []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for peer := range r.peers {
		if peer == from {
			continue
		}
		select {
		case peer.out <- msg:
		default:
			observability.RecordTransportDrop("relay")
		}
	}
}

// Close drops every connected peer; their ServeHTTP calls then return.
func (r *Relay) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for peer := range r.peers {
		_ = peer.conn.Close()
	}
}
