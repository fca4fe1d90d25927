package core

import (
	"fmt"

	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol/packets"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
)

// VirtualStigmergy is a handle on one shared tuple space.
type VirtualStigmergy struct {
	core *Core
	id   int
}

// VirtualStigmergy creates space id when missing and returns its handle.
func (c *Core) VirtualStigmergy(id int) (*VirtualStigmergy, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStigmergyID, id)
	}
	c.store.CreateVirtualStigmergy(id)
	return &VirtualStigmergy{core: c, id: id}, nil
}

func (v *VirtualStigmergy) ID() int { return v.id }

// Put writes locally and broadcasts the tuple. The stamp is the local
// clock, raised above the stored stamp when needed so a local write is
// never shadowed by a peer whose clock runs ahead.
func (v *VirtualStigmergy) Put(key, value string) error {
	if key == "" {
		return ErrEmptyStigmergyKey
	}
	c := v.core
	tuple, err := c.store.StampVirtualStigmergy(v.id, key, value, c.now().UnixNano(), c.id)
	if err != nil {
		return err
	}
	c.broadcast(schema.TagStigmergyPut, packets.EncodeStigmergyPut(packets.StigmergyPut{
		ID:        v.id,
		Key:       key,
		Value:     tuple.Value,
		Timestamp: tuple.Timestamp,
		RobotID:   c.id,
	}))
	return nil
}

// Get returns the local tuple and asks peers for newer copies. Answers
// arrive as puts and are merged by last-writer-wins.
func (v *VirtualStigmergy) Get(key string) (platform.Tuple, bool, error) {
	c := v.core
	tuple, ok, err := c.store.VirtualStigmergyTuple(v.id, key)
	if err != nil {
		return platform.Tuple{}, false, err
	}
	c.broadcast(schema.TagStigmergyQuery, packets.EncodeStigmergyQuery(packets.StigmergyQuery{
		ID:  v.id,
		Key: key,
	}))
	return tuple, ok, nil
}

func (v *VirtualStigmergy) Size() (int, error) {
	return v.core.store.VirtualStigmergySize(v.id)
}

func (v *VirtualStigmergy) Snapshot() (map[string]platform.Tuple, error) {
	return v.core.store.VirtualStigmergySnapshot(v.id)
}

// Delete removes key from the local replica only.
func (v *VirtualStigmergy) Delete(key string) {
	v.core.store.DeleteVirtualStigmergyValue(v.id, key)
}
