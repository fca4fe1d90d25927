// Package guard owns the reader-writer guarded partition primitives.
//
// Ownership boundary:
// - one lock per Cell or Map instance
// - copy-out reads, never internal references
//
// Callbacks passed to View, Update, and Range run with the partition lock
// held. They must not re-enter the same partition and must not block.
package guard
