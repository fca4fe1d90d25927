package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/danmuck/swarmctl/internal/observability"
	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol"
	"github.com/danmuck/swarmctl/internal/protocol/packets"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
	"github.com/danmuck/swarmctl/internal/transport"
)

// maxReplyAttempts bounds how long a query answer stays in the outbox.
const maxReplyAttempts = 3

func (c *Core) publishRobotBase(ctx context.Context) {
	c.send(ctx, schema.TagRobotBase, packets.EncodeRobotBase(packets.RobotBase{
		RobotID: c.id,
		Base:    c.store.RobotBase(),
	}))
}

func (c *Core) publishSwarmList(ctx context.Context) {
	c.send(ctx, schema.TagSwarmList, packets.EncodeSwarmList(packets.SwarmList{
		RobotID:  c.id,
		SwarmIDs: c.store.SwarmList(),
	}))
}

// barrierCheck signals a crossing and keeps re-announcing the local
// arrival so peers that lost a packet still converge.
func (c *Core) barrierCheck(ctx context.Context) {
	c.checkBarrier()
	round := c.store.BarrierRound()
	if c.store.InBarrier(c.id) {
		c.send(ctx, schema.TagBarrierArrive, packets.EncodeBarrierArrive(packets.BarrierArrive{
			RobotID: c.id,
			Round:   round,
		}))
	}
}

func (c *Core) checkBarrier() {
	round, ok := c.store.CrossBarrier(c.cfg.TotalRobotNumbers)
	if !ok {
		return
	}
	c.signalCrossed(round, "quorum")
}

// signalCrossed releases the round's waiters and notifies observers. The
// store has already marked the round crossed exactly once.
func (c *Core) signalCrossed(round uint64, via string) {
	c.releaseWaiters(func(r uint64) bool { return r == round }, true)
	select {
	case c.crossed <- round:
	default:
		c.log.Debug().Uint64("round", round).Msg("core.Core.signalCrossed crossed channel full")
	}
	observability.RecordBarrierCrossing(c.id)
	c.log.Info().Uint64("round", round).Int("fleet", c.cfg.TotalRobotNumbers).Str("via", via).Msg("core.Core.signalCrossed crossed")
}

func (c *Core) flushOutbox(ctx context.Context) {
	for _, item := range c.outbox.List() {
		if c.send(ctx, item.Type, item.Payload) {
			c.outbox.Remove(item.Key)
			continue
		}
		updated, ok := c.outbox.MarkAttempt(item.Key, c.now(), "send failed")
		if ok && updated.Attempts >= maxReplyAttempts {
			c.outbox.Remove(item.Key)
			c.log.Debug().Str("key", item.Key).Int("attempts", updated.Attempts).Msg("core.Core.flushOutbox giving up")
		}
	}
}

func (c *Core) evictNeighbors(context.Context) {
	removed := c.store.EvictNeighbors(c.eviction, c.now())
	if len(removed) == 0 {
		return
	}
	observability.SetNeighborCount(c.id, c.store.NeighborCount())
	c.log.Info().Ints("robots", removed).Msg("core.Core.evictNeighbors")
}

// spin is the inbound pump. Receive errors back off and retry; only a
// closed transport ends it early.
func (c *Core) spin(ctx context.Context) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0
	for {
		data, err := c.tr.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, transport.ErrClosed) {
				return fmt.Errorf("core: inbound pump: %w", err)
			}
			attempt++
			observability.RecordPacketDropped(c.id, observability.DropReceive)
			delay := transport.NextBackoffDelay(c.cfg.ReceiveBackoff, attempt, rng)
			c.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("core.Core.spin receive failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0
		c.handle(data)
	}
}

// handle decodes one inbound message and dispatches it.
func (c *Core) handle(data []byte) {
	pkt, err := c.parser.Decode(data)
	if err != nil {
		observability.RecordPacketDropped(c.id, observability.DropMalformed)
		c.log.Debug().Err(err).Int("bytes", len(data)).Msg("core.Core.handle malformed packet")
		return
	}
	c.dispatch(pkt)
}

func (c *Core) dispatch(pkt protocol.Packet) {
	if pkt.SenderID == c.id {
		observability.RecordPacketDropped(c.id, observability.DropLoopback)
		return
	}
	observability.RecordPacketReceived(c.id, pkt.Type)
	cb := c.store.Callback(pkt.Type)
	if err := cb(pkt.Payload); err != nil {
		observability.RecordHandlerError(c.id, pkt.Type)
		event := c.log.Warn()
		if errors.Is(err, platform.ErrNamespaceNotFound) {
			// peers write into spaces this robot never joined
			event = c.log.Debug()
		}
		event.Err(err).Str("type", pkt.Type).Int("sender", pkt.SenderID).Msg("core.Core.dispatch handler failed")
	}
}
