package platform

import "sort"

func (p *Platform) InsertOrUpdateSwarm(swarmID int, value bool) {
	p.swarms.Put(swarmID, value)
}

// Swarm reports whether the local robot is in swarmID.
func (p *Platform) Swarm(swarmID int) bool {
	v, _ := p.swarms.Get(swarmID)
	return v
}

// SwarmList returns the sorted swarm ids the local robot belongs to.
func (p *Platform) SwarmList() []int {
	out := make([]int, 0)
	p.swarms.Range(func(id int, in bool) bool {
		if in {
			out = append(out, id)
		}
		return true
	})
	sort.Ints(out)
	return out
}

func (p *Platform) DeleteSwarm(swarmID int) {
	p.swarms.Delete(swarmID)
}
