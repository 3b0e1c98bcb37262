// Package spatialindex provides the nearest-neighbor query structures
// used to associate and merge scene graph nodes: a static finder over
// a layer snapshot, a finder over voxel grid indices, and a dynamic
// finder supporting incremental membership changes. All three are
// backed by gonum's kd-tree.
//
// Queries return neighbors in ascending distance order with ties
// broken by ascending id, so association results are deterministic.
// The package also hosts the furthest-index-from-line extremal query
// used when splitting skeleton edges into place nodes.
package spatialindex
