package platform

import (
	"time"
)

// Neighbors returns a copy of the neighbor table.
func (p *Platform) Neighbors() map[int]NeighborBase {
	return p.neighbors.Snapshot()
}

func (p *Platform) Neighbor(robotID int) (NeighborBase, bool) {
	return p.neighbors.Get(robotID)
}

// InsertOrUpdateNeighbor overwrites the whole record for robotID.
func (p *Platform) InsertOrUpdateNeighbor(robotID int, nb NeighborBase) {
	if nb.UpdatedAt.IsZero() {
		nb.UpdatedAt = time.Now()
	}
	p.neighbors.Put(robotID, nb)
}

func (p *Platform) DeleteNeighbor(robotID int) {
	p.neighbors.Delete(robotID)
}

func (p *Platform) InNeighbors(robotID int) bool {
	return p.neighbors.Has(robotID)
}

func (p *Platform) NeighborCount() int {
	return p.neighbors.Len()
}

// NeighborsWithin filters the table by relative distance. A non-positive
// distance returns every entry.
func (p *Platform) NeighborsWithin(distance float64) map[int]NeighborBase {
	out := make(map[int]NeighborBase)
	p.neighbors.Range(func(id int, nb NeighborBase) bool {
		if distance <= 0 || nb.Distance <= distance {
			out[id] = nb
		}
		return true
	})
	return out
}
