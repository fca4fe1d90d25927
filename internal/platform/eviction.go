package platform

import "time"

// EvictionPolicy decides when a neighbor observation is stale.
type EvictionPolicy interface {
	Expired(nb NeighborBase, now time.Time) bool
}

// NoEviction keeps every neighbor until it is deleted explicitly.
type NoEviction struct{}

func (NoEviction) Expired(NeighborBase, time.Time) bool { return false }

// StalenessEviction expires neighbors not refreshed within TTL.
type StalenessEviction struct {
	TTL time.Duration
}

func (s StalenessEviction) Expired(nb NeighborBase, now time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return now.Sub(nb.UpdatedAt) > s.TTL
}

// EvictNeighbors removes expired neighbors and then their swarm tuples.
// The two removals are separate partition operations.
func (p *Platform) EvictNeighbors(policy EvictionPolicy, now time.Time) []int {
	if policy == nil {
		return nil
	}
	removed := p.neighbors.DeleteFunc(func(_ int, nb NeighborBase) bool {
		return policy.Expired(nb, now)
	})
	for _, id := range removed {
		p.neighborSwarms.Delete(id)
	}
	return removed
}
