// Package update is the incremental update and merge pipeline. It
// consumes solved-variable sets from the external optimizer,
// repositions live nodes layer by layer, detects and resolves node
// merges through the spatial index, re-derives the room and building
// layers from their children, and commits each pass as a single
// logical unit through the shared graph state.
//
// The pipeline is the only writer of the graph store; everything else
// holds read-only access.
package update
