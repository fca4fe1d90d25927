package platform

import (
	"fmt"
	"sort"
	"strings"
)

func (p *Platform) DumpRobotBase() string {
	b := p.RobotBase()
	return fmt.Sprintf("robot=%d x=%.3f y=%.3f z=%.3f vx=%.3f vy=%.3f vz=%.3f",
		p.RobotID(), b.X, b.Y, b.Z, b.VX, b.VY, b.VZ)
}

func (p *Platform) DumpNeighbors() string {
	snap := p.Neighbors()
	ids := sortedKeys(snap)
	var sb strings.Builder
	for _, id := range ids {
		nb := snap[id]
		fmt.Fprintf(&sb, "neighbor=%d distance=%.3f azimuth=%.3f elevation=%.3f x=%.3f y=%.3f z=%.3f\n",
			id, nb.Distance, nb.Azimuth, nb.Elevation, nb.X, nb.Y, nb.Z)
	}
	return sb.String()
}

func (p *Platform) DumpSwarms() string {
	return fmt.Sprintf("robot=%d swarms=%v", p.RobotID(), p.SwarmList())
}

func (p *Platform) DumpNeighborSwarms() string {
	snap := p.NeighborSwarms()
	ids := sortedKeys(snap)
	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb, "neighbor=%d swarms=%v\n", id, snap[id])
	}
	return sb.String()
}

func (p *Platform) DumpVirtualStigmergy() string {
	ids := p.VirtualStigmergyIDs()
	sort.Ints(ids)
	var sb strings.Builder
	for _, id := range ids {
		space, err := p.VirtualStigmergySnapshot(id)
		if err != nil {
			continue
		}
		keys := make([]string, 0, len(space))
		for k := range space {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t := space[k]
			fmt.Fprintf(&sb, "vstig=%d key=%q value=%q timestamp=%d robot=%d\n", id, k, t.Value, t.Timestamp, t.RobotID)
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
