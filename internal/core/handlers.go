package core

import (
	"fmt"
	"math"
	"time"

	"github.com/danmuck/swarmctl/internal/observability"
	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol/packets"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
)

// ListenPrefix namespaces user key/value callbacks in the registry.
const ListenPrefix = "nbkv."

func (c *Core) registerHandlers() {
	c.store.InsertOrUpdateCallback(schema.TagRobotBase, c.handleRobotBase)
	c.store.InsertOrUpdateCallback(schema.TagSwarmList, c.handleSwarmList)
	c.store.InsertOrUpdateCallback(schema.TagSwarmJoin, c.handleSwarmJoin)
	c.store.InsertOrUpdateCallback(schema.TagSwarmLeave, c.handleSwarmLeave)
	c.store.InsertOrUpdateCallback(schema.TagStigmergyPut, c.handleStigmergyPut)
	c.store.InsertOrUpdateCallback(schema.TagStigmergyQuery, c.handleStigmergyQuery)
	c.store.InsertOrUpdateCallback(schema.TagBarrierArrive, c.handleBarrierArrive)
	c.store.InsertOrUpdateCallback(schema.TagNeighborKV, c.handleNeighborKV)
}

func (c *Core) handleRobotBase(payload string) error {
	rb, err := packets.DecodeRobotBase(payload)
	if err != nil {
		return err
	}
	if rb.RobotID == c.id {
		return nil
	}
	c.store.InsertOrUpdateNeighbor(rb.RobotID, relativeTo(c.store.RobotBase(), rb.Base, c.now()))
	observability.SetNeighborCount(c.id, c.store.NeighborCount())
	return nil
}

func (c *Core) handleSwarmList(payload string) error {
	sl, err := packets.DecodeSwarmList(payload)
	if err != nil {
		return err
	}
	if sl.RobotID == c.id {
		return nil
	}
	c.store.InsertOrRefreshNeighborSwarm(sl.RobotID, sl.SwarmIDs)
	return nil
}

func (c *Core) handleSwarmJoin(payload string) error {
	m, err := packets.DecodeSwarmMembership(payload)
	if err != nil {
		return err
	}
	if m.RobotID != c.id {
		c.store.JoinNeighborSwarm(m.RobotID, m.SwarmID)
	}
	return nil
}

func (c *Core) handleSwarmLeave(payload string) error {
	m, err := packets.DecodeSwarmMembership(payload)
	if err != nil {
		return err
	}
	if m.RobotID != c.id {
		c.store.LeaveNeighborSwarm(m.RobotID, m.SwarmID)
	}
	return nil
}

func (c *Core) handleStigmergyPut(payload string) error {
	put, err := packets.DecodeStigmergyPut(payload)
	if err != nil {
		return err
	}
	_, err = c.store.InsertOrUpdateVirtualStigmergy(put.ID, put.Key, put.Value, put.Timestamp, put.RobotID)
	return err
}

// handleStigmergyQuery answers with the local tuple through the outbox.
// Spaces this robot does not hold are ignored.
func (c *Core) handleStigmergyQuery(payload string) error {
	q, err := packets.DecodeStigmergyQuery(payload)
	if err != nil {
		return err
	}
	tuple, ok, err := c.store.VirtualStigmergyTuple(q.ID, q.Key)
	if err != nil || !ok {
		return nil
	}
	c.outbox.Upsert(PendingReply{
		Key:  replyKey(schema.TagStigmergyPut, q.ID, q.Key),
		Type: schema.TagStigmergyPut,
		Payload: packets.EncodeStigmergyPut(packets.StigmergyPut{
			ID:        q.ID,
			Key:       q.Key,
			Value:     tuple.Value,
			Timestamp: tuple.Timestamp,
			RobotID:   tuple.RobotID,
		}),
		QueuedAt: c.now(),
	})
	return nil
}

func (c *Core) handleBarrierArrive(payload string) error {
	arrive, err := packets.DecodeBarrierArrive(payload)
	if err != nil {
		return err
	}
	if c.store.InsertBarrierForRound(arrive.RobotID, arrive.Round) {
		return nil
	}
	// a peer already in a later round saw the whole fleet arrive in ours,
	// even if our copy of some arrival was lost
	if round, ok := c.store.CrossBarrierBehind(arrive.Round); ok {
		c.signalCrossed(round, "peer_ahead")
	}
	return nil
}

func (c *Core) handleNeighborKV(payload string) error {
	kv, err := packets.DecodeNeighborKV(payload)
	if err != nil {
		return err
	}
	return c.store.Callback(ListenPrefix + kv.Key)(kv.Value)
}

func replyKey(packetType string, id int, key string) string {
	return fmt.Sprintf("%s/%d/%s", packetType, id, key)
}

// relativeTo builds a neighbor record for other as seen from self.
// Azimuth is measured in the x/y plane; elevation from that plane.
func relativeTo(self, other platform.Base, now time.Time) platform.NeighborBase {
	dx := other.X - self.X
	dy := other.Y - self.Y
	dz := other.Z - self.Z
	nb := platform.NeighborBase{
		Distance:  math.Sqrt(dx*dx + dy*dy + dz*dz),
		Azimuth:   math.Atan2(dy, dx),
		Elevation: math.Atan2(dz, math.Hypot(dx, dy)),
		X:         other.X,
		Y:         other.Y,
		Z:         other.Z,
		VX:        other.VX,
		VY:        other.VY,
		VZ:        other.VZ,
		UpdatedAt: now,
	}
	return nb
}
