// Package protocol owns the swarm wire contract.
//
// Ownership boundary:
// - frame/header primitives (frame)
// - tlv payload primitives (tlv)
// - packet tags and field validation (schema)
// - typed payload codecs (packets)
// - the Parser used by the orchestrator to turn bytes into packets
package protocol
