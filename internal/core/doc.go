// Package core runs the swarm protocol for one robot.
//
// A Core owns the transport and parser handles and keeps the local
// platform store converging with the fleet:
// - periodic robot base and swarm list broadcasts
// - barrier polling and arrival re-broadcast
// - the inbound pump that decodes packets and dispatches them
// - a reply outbox flushed on its own tick
// - optional neighbor eviction
//
// Dispatch handlers only mutate the store or enqueue into the outbox.
// They never touch the transport.
package core
