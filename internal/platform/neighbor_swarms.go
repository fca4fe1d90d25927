package platform

import (
	"slices"
	"sort"
)

// Stored swarm lists are sorted, deduplicated, and never mutated in place.

func normalizeSwarmList(in []int) []int {
	out := slices.Clone(in)
	sort.Ints(out)
	return slices.Compact(out)
}

func (p *Platform) InNeighborSwarm(robotID, swarmID int) bool {
	list, ok := p.neighborSwarms.Get(robotID)
	if !ok {
		return false
	}
	_, found := slices.BinarySearch(list, swarmID)
	return found
}

func (p *Platform) JoinNeighborSwarm(robotID, swarmID int) {
	p.neighborSwarms.Update(robotID, func(cur []int, _ bool) ([]int, bool) {
		if _, found := slices.BinarySearch(cur, swarmID); found {
			return cur, true
		}
		return normalizeSwarmList(append(slices.Clone(cur), swarmID)), true
	})
}

func (p *Platform) LeaveNeighborSwarm(robotID, swarmID int) {
	p.neighborSwarms.Update(robotID, func(cur []int, ok bool) ([]int, bool) {
		if !ok {
			return nil, false
		}
		idx, found := slices.BinarySearch(cur, swarmID)
		if !found {
			return cur, true
		}
		return slices.Delete(slices.Clone(cur), idx, idx+1), true
	})
}

// InsertOrRefreshNeighborSwarm replaces the full swarm list of robotID.
func (p *Platform) InsertOrRefreshNeighborSwarm(robotID int, swarmList []int) {
	p.neighborSwarms.Put(robotID, normalizeSwarmList(swarmList))
}

func (p *Platform) DeleteNeighborSwarm(robotID int) {
	p.neighborSwarms.Delete(robotID)
}

func (p *Platform) NeighborSwarm(robotID int) ([]int, bool) {
	list, ok := p.neighborSwarms.Get(robotID)
	if !ok {
		return nil, false
	}
	return slices.Clone(list), true
}

func (p *Platform) NeighborSwarms() map[int][]int {
	snap := p.neighborSwarms.Snapshot()
	for id, list := range snap {
		snap[id] = slices.Clone(list)
	}
	return snap
}

// SwarmMembers returns every known member of swarmID, including the local
// robot when it is a member itself.
func (p *Platform) SwarmMembers(swarmID int) []int {
	members := make([]int, 0)
	p.neighborSwarms.Range(func(id int, list []int) bool {
		if _, found := slices.BinarySearch(list, swarmID); found {
			members = append(members, id)
		}
		return true
	})
	if p.Swarm(swarmID) {
		members = append(members, p.RobotID())
	}
	return normalizeSwarmList(members)
}
