// Package dsg owns the layered scene graph data model: layers, nodes,
// intra- and inter-layer edges, and the process-wide shared graph
// wrapper.
//
// Responsibilities: node/edge identity, layer membership rules,
// parent/child hierarchy invariants, node merging, and the
// single-writer/multi-reader shared state used by the update pipeline
// and presentation readers.
//
// Dependency rule: dsg depends only on internal/monitoring. The
// spatial index, update pipeline, persistence and visualisation
// packages all depend on dsg, never the other way around.
package dsg
