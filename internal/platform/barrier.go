package platform

import "sort"

type barrierState struct {
	round   uint64
	members map[int]struct{}
	crossed bool
}

func newBarrierState() barrierState {
	return barrierState{members: make(map[int]struct{})}
}

// InsertBarrier records an arrival for the current round.
func (p *Platform) InsertBarrier(robotID int) {
	p.barrier.Update(func(b *barrierState) {
		b.members[robotID] = struct{}{}
	})
}

func (p *Platform) BarrierSize() int {
	size := 0
	p.barrier.View(func(b barrierState) {
		size = len(b.members)
	})
	return size
}

func (p *Platform) BarrierMembers() []int {
	var out []int
	p.barrier.View(func(b barrierState) {
		out = make([]int, 0, len(b.members))
		for id := range b.members {
			out = append(out, id)
		}
	})
	sort.Ints(out)
	return out
}

func (p *Platform) BarrierRound() uint64 {
	var round uint64
	p.barrier.View(func(b barrierState) {
		round = b.round
	})
	return round
}

// CrossBarrier marks the current round crossed once total arrivals are in.
// It reports ok=true exactly once per round.
func (p *Platform) CrossBarrier(total int) (uint64, bool) {
	var (
		round uint64
		ok    bool
	)
	p.barrier.Update(func(b *barrierState) {
		round = b.round
		if b.crossed || total <= 0 || len(b.members) < total {
			return
		}
		b.crossed = true
		ok = true
	})
	return round, ok
}

// CrossBarrierBehind marks the current round crossed when a peer has
// already arrived in a later round. A peer only advances after seeing the
// whole fleet arrive, so its later round proves this one crossed. Like
// CrossBarrier it reports ok=true at most once per round.
func (p *Platform) CrossBarrierBehind(peerRound uint64) (uint64, bool) {
	var (
		round uint64
		ok    bool
	)
	p.barrier.Update(func(b *barrierState) {
		round = b.round
		if b.crossed || peerRound <= b.round {
			return
		}
		b.crossed = true
		ok = true
	})
	return round, ok
}

func (p *Platform) BarrierCrossed() bool {
	crossed := false
	p.barrier.View(func(b barrierState) {
		crossed = b.crossed
	})
	return crossed
}

// ResetBarrier clears arrivals and starts the next round.
func (p *Platform) ResetBarrier() uint64 {
	var round uint64
	p.barrier.Update(func(b *barrierState) {
		b.round++
		b.members = make(map[int]struct{})
		b.crossed = false
		round = b.round
	})
	return round
}

// InsertBarrierForRound records an arrival only when round matches the
// current round.
func (p *Platform) InsertBarrierForRound(robotID int, round uint64) bool {
	inserted := false
	p.barrier.Update(func(b *barrierState) {
		if b.round != round {
			return
		}
		b.members[robotID] = struct{}{}
		inserted = true
	})
	return inserted
}

// BarrierState reads the round and its crossed flag under one lock.
func (p *Platform) BarrierState() (round uint64, crossed bool) {
	p.barrier.View(func(b barrierState) {
		round = b.round
		crossed = b.crossed
	})
	return round, crossed
}

// InBarrier reports whether robotID has arrived in the current round.
func (p *Platform) InBarrier(robotID int) bool {
	in := false
	p.barrier.View(func(b barrierState) {
		_, in = b.members[robotID]
	})
	return in
}
