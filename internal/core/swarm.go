package core

import (
	"github.com/danmuck/swarmctl/internal/protocol/packets"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
)

// JoinSwarm sets the local flag and announces it. A lost announcement
// is repaired by the next swarm list broadcast.
func (c *Core) JoinSwarm(swarmID int) {
	c.store.InsertOrUpdateSwarm(swarmID, true)
	c.broadcast(schema.TagSwarmJoin, packets.EncodeSwarmMembership(packets.SwarmMembership{
		RobotID: c.id,
		SwarmID: swarmID,
	}))
}

func (c *Core) LeaveSwarm(swarmID int) {
	c.store.InsertOrUpdateSwarm(swarmID, false)
	c.broadcast(schema.TagSwarmLeave, packets.EncodeSwarmMembership(packets.SwarmMembership{
		RobotID: c.id,
		SwarmID: swarmID,
	}))
}

// SwarmMembers lists every known robot in swarmID, local robot included.
func (c *Core) SwarmMembers(swarmID int) []int {
	return c.store.SwarmMembers(swarmID)
}
