// Package platform owns the replicated runtime state of one robot.
//
// Ownership boundary:
// - self identity and pose
// - neighbor table and neighbor swarm observations
// - local swarm flags
// - virtual stigmergy spaces
// - barrier set
// - dispatch callback registry
//
// Every partition sits behind its own guard. Operations touch exactly one
// partition, so writers on different partitions never block each other and
// no operation spans two partitions atomically.
//
// Failure policy:
// - absent keys degrade to zero values or no-ops
// - writes into a virtual stigmergy space that was never created return
//   ErrNamespaceNotFound
package platform
