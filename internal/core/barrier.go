package core

import (
	"context"

	"github.com/danmuck/swarmctl/internal/protocol/packets"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
)

type barrierWaiter struct {
	done    chan struct{}
	crossed bool
}

// Barrier records the local arrival for the current round and blocks
// until the fleet crosses it, the round is reset, or ctx ends.
func (c *Core) Barrier(ctx context.Context) error {
	var (
		round uint64
		w     *barrierWaiter
	)
	for {
		round = c.store.BarrierRound()
		w = c.waiter(round)
		if c.store.InsertBarrierForRound(c.id, round) {
			break
		}
	}
	c.broadcast(schema.TagBarrierArrive, packets.EncodeBarrierArrive(packets.BarrierArrive{
		RobotID: c.id,
		Round:   round,
	}))
	c.checkBarrier()
	if r, crossed := c.store.BarrierState(); r == round && crossed {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		if w.crossed {
			return nil
		}
		return ErrBarrierReset
	}
}

// ResetBarrier starts the next round and releases waiters on earlier ones.
func (c *Core) ResetBarrier() uint64 {
	next := c.store.ResetBarrier()
	c.releaseWaiters(func(r uint64) bool { return r < next }, false)
	c.log.Debug().Uint64("round", next).Msg("core.Core.ResetBarrier")
	return next
}

// BarrierCrossed delivers each crossed round. Slow readers miss rounds.
func (c *Core) BarrierCrossed() <-chan uint64 {
	return c.crossed
}

func (c *Core) waiter(round uint64) *barrierWaiter {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()
	w, ok := c.waiters[round]
	if !ok {
		w = &barrierWaiter{done: make(chan struct{})}
		c.waiters[round] = w
	}
	return w
}

func (c *Core) releaseWaiters(match func(round uint64) bool, crossed bool) {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()
	for round, w := range c.waiters {
		if !match(round) {
			continue
		}
		w.crossed = crossed
		close(w.done)
		delete(c.waiters, round)
	}
}
