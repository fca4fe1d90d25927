package platform

import (
	"fmt"
	"maps"
)

// Space contents live in maps owned by the stigmergy partition. They are
// only read or written with that partition's lock held.

// CreateVirtualStigmergy registers space id. Existing contents are kept.
func (p *Platform) CreateVirtualStigmergy(id int) {
	p.stigmergy.Update(id, func(cur map[string]Tuple, ok bool) (map[string]Tuple, bool) {
		if ok {
			return cur, true
		}
		return make(map[string]Tuple), true
	})
}

func (p *Platform) HasVirtualStigmergy(id int) bool {
	return p.stigmergy.Has(id)
}

// InsertOrUpdateVirtualStigmergy applies a last-writer-wins write. Writes
// that lose the comparison are dropped and report applied=false.
func (p *Platform) InsertOrUpdateVirtualStigmergy(id int, key, value string, timestamp int64, robotID int) (bool, error) {
	incoming := Tuple{Value: value, Timestamp: timestamp, RobotID: robotID}
	var (
		applied bool
		found   bool
	)
	p.stigmergy.Update(id, func(space map[string]Tuple, ok bool) (map[string]Tuple, bool) {
		if !ok {
			return nil, false
		}
		found = true
		cur, exists := space[key]
		if !exists || incoming.NewerThan(cur) {
			space[key] = incoming
			applied = true
		}
		return space, true
	})
	if !found {
		return false, fmt.Errorf("%w: id=%d", ErrNamespaceNotFound, id)
	}
	return applied, nil
}

// StampVirtualStigmergy writes a local tuple stamped no earlier than now.
// When the stored stamp is not older, the write takes stored+1 instead, so
// it always wins locally. The raise and the write share one lock, so two
// local writers never pick the same stamp.
func (p *Platform) StampVirtualStigmergy(id int, key, value string, now int64, robotID int) (Tuple, error) {
	var (
		written Tuple
		found   bool
	)
	p.stigmergy.Update(id, func(space map[string]Tuple, ok bool) (map[string]Tuple, bool) {
		if !ok {
			return nil, false
		}
		found = true
		ts := now
		if cur, exists := space[key]; exists && cur.Timestamp >= ts {
			ts = cur.Timestamp + 1
		}
		written = Tuple{Value: value, Timestamp: ts, RobotID: robotID}
		space[key] = written
		return space, true
	})
	if !found {
		return Tuple{}, fmt.Errorf("%w: id=%d", ErrNamespaceNotFound, id)
	}
	return written, nil
}

func (p *Platform) VirtualStigmergyTuple(id int, key string) (Tuple, bool, error) {
	var (
		tuple  Tuple
		exists bool
		found  bool
	)
	p.stigmergy.View(id, func(space map[string]Tuple, ok bool) {
		found = ok
		if ok {
			tuple, exists = space[key]
		}
	})
	if !found {
		return Tuple{}, false, fmt.Errorf("%w: id=%d", ErrNamespaceNotFound, id)
	}
	return tuple, exists, nil
}

func (p *Platform) VirtualStigmergySize(id int) (int, error) {
	size := 0
	found := false
	p.stigmergy.View(id, func(space map[string]Tuple, ok bool) {
		found = ok
		size = len(space)
	})
	if !found {
		return 0, fmt.Errorf("%w: id=%d", ErrNamespaceNotFound, id)
	}
	return size, nil
}

// VirtualStigmergySnapshot copies every tuple in space id.
func (p *Platform) VirtualStigmergySnapshot(id int) (map[string]Tuple, error) {
	var (
		out   map[string]Tuple
		found bool
	)
	p.stigmergy.View(id, func(space map[string]Tuple, ok bool) {
		found = ok
		if ok {
			out = maps.Clone(space)
		}
	})
	if !found {
		return nil, fmt.Errorf("%w: id=%d", ErrNamespaceNotFound, id)
	}
	return out, nil
}

func (p *Platform) VirtualStigmergyIDs() []int {
	return p.stigmergy.Keys()
}

func (p *Platform) DeleteVirtualStigmergy(id int) {
	p.stigmergy.Delete(id)
}

func (p *Platform) DeleteVirtualStigmergyValue(id int, key string) {
	p.stigmergy.Update(id, func(space map[string]Tuple, ok bool) (map[string]Tuple, bool) {
		if !ok {
			return nil, false
		}
		delete(space, key)
		return space, true
	})
}
