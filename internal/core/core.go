package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/swarmctl/internal/observability"
	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol"
	"github.com/danmuck/swarmctl/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Option customizes a Core at construction.
type Option func(*Core)

// WithEviction enables the neighbor eviction loop for a non-default policy.
func WithEviction(policy platform.EvictionPolicy) Option {
	return func(c *Core) {
		if policy != nil {
			c.eviction = policy
		}
	}
}

// WithClock replaces time.Now for stigmergy stamps and neighbor ages.
func WithClock(now func() time.Time) Option {
	return func(c *Core) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger replaces the package logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Core) {
		c.log = logger
	}
}

// Core is the explicit runtime context for one robot: store, transport,
// parser, and config. Nothing in it is process-global.
type Core struct {
	cfg      Config
	id       int
	store    *platform.Platform
	tr       transport.Transport
	parser   protocol.Parser
	eviction platform.EvictionPolicy
	now      func() time.Time
	log      zerolog.Logger

	outbox  *Outbox
	crossed chan uint64

	waitMu  sync.Mutex
	waiters map[uint64]*barrierWaiter

	running atomic.Bool
}

func New(cfg Config, store *platform.Platform, tr transport.Transport, parser protocol.Parser, opts ...Option) (*Core, error) {
	if store == nil || tr == nil || parser == nil {
		return nil, ErrNilCollaborator
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store.RobotID() != cfg.RobotID {
		return nil, fmt.Errorf("%w: store=%d config=%d", ErrRobotIDMismatch, store.RobotID(), cfg.RobotID)
	}
	c := &Core{
		cfg:      cfg,
		id:       cfg.RobotID,
		store:    store,
		tr:       tr,
		parser:   parser,
		eviction: platform.NoEviction{},
		now:      time.Now,
		log:      log.Logger,
		outbox:   NewOutbox(),
		crossed:  make(chan uint64, 16),
		waiters:  make(map[uint64]*barrierWaiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Int("robot", c.id).Logger()
	store.SetNeighborDistance(cfg.NeighborDistance)
	c.registerHandlers()
	observability.RegisterMetrics()
	return c, nil
}

func (c *Core) Store() *platform.Platform { return c.store }

func (c *Core) RobotID() int { return c.id }

func (c *Core) Config() Config { return c.cfg }

func (c *Core) Outbox() *Outbox { return c.outbox }

// SetRobotBase updates the local pose. The next robot base tick broadcasts it.
func (c *Core) SetRobotBase(b platform.Base) {
	c.store.SetRobotBase(b)
}

// Run drives every loop until ctx ends or one loop fails. It returns nil
// on cancellation.
func (c *Core) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	c.log.Info().
		Int("fleet", c.cfg.TotalRobotNumbers).
		Float64("neighbor_distance", c.store.NeighborDistance()).
		Msg("core.Core.Run starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.every(gctx, c.cfg.PublishRobotBaseDuration, c.publishRobotBase)
	})
	g.Go(func() error {
		return c.every(gctx, c.cfg.PublishSwarmListDuration, c.publishSwarmList)
	})
	g.Go(func() error {
		return c.every(gctx, c.cfg.BarrierCheckDuration, c.barrierCheck)
	})
	g.Go(func() error {
		return c.every(gctx, c.cfg.OutboxFlushDuration, c.flushOutbox)
	})
	if _, none := c.eviction.(platform.NoEviction); !none {
		g.Go(func() error {
			return c.every(gctx, c.cfg.EvictionSweepDuration, c.evictNeighbors)
		})
	}
	g.Go(func() error {
		return c.spin(gctx)
	})

	err := g.Wait()
	c.log.Info().Err(err).Msg("core.Core.Run stopped")
	return err
}

// Close releases the transport. Call it after Run returns.
func (c *Core) Close() error {
	return c.tr.Close()
}

func (c *Core) every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// send frames and hands one packet to the transport. Failures are
// logged and counted, never returned to a loop.
func (c *Core) send(ctx context.Context, packetType, payload string) bool {
	data, err := c.parser.Encode(c.id, packetType, payload)
	if err != nil {
		c.log.Error().Err(err).Str("type", packetType).Msg("core.Core.send encode failed")
		observability.RecordPacketSent(c.id, packetType, false)
		return false
	}
	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()
	if err := c.tr.Send(sendCtx, data); err != nil {
		c.log.Debug().Err(err).Str("type", packetType).Msg("core.Core.send failed")
		observability.RecordPacketSent(c.id, packetType, false)
		return false
	}
	observability.RecordPacketSent(c.id, packetType, true)
	return true
}

// broadcast is the foreground variant of send, bounded by SendTimeout only.
func (c *Core) broadcast(packetType, payload string) bool {
	return c.send(context.Background(), packetType, payload)
}
