// Package world holds the in-memory graph store that journal mutations
// apply to: a mapping from node id to named attributes.
//
// The world itself knows nothing about durability. All persisted
// mutations flow through the wal package's frame/apply path; mutating a
// world directly is legal but ephemeral - such changes do not survive a
// restart.
package world
