package spatialindex

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
	"github.com/fieldrobotics/scenegraph/internal/monitoring"
)

// DynamicCallback receives one result per neighbor: the node id and
// the Euclidean distance to the query position.
type DynamicCallback func(id dsg.NodeID, distance float64)

// DynamicNearestNodeFinder tracks a mutable membership set over one
// layer of a graph and answers nearest-neighbor queries against the
// members' current positions. Membership changes mark the index dirty;
// the tree is rebuilt lazily on the next query, which keeps the
// external contract (query correctness) while amortising rebuild cost.
//
// The finder must be used from the goroutine that owns the graph's
// node set, per the shared-resource policy.
type DynamicNearestNodeFinder struct {
	graph *dsg.Graph
	layer dsg.LayerID

	members map[dsg.NodeID]struct{}
	tree    *kdtree.Tree
	dirty   bool
}

// NewDynamicNearestNodeFinder creates an empty finder over the given
// layer. The layer must be configured in the graph.
func NewDynamicNearestNodeFinder(graph *dsg.Graph, layer dsg.LayerID) *DynamicNearestNodeFinder {
	graph.GetLayer(layer) // fatal if unknown
	return &DynamicNearestNodeFinder{
		graph:   graph,
		layer:   layer,
		members: make(map[dsg.NodeID]struct{}),
		dirty:   true,
	}
}

// AddNodes registers node ids with the finder. Ids not present in the
// layer at query time are skipped, so adding ahead of insertion or
// after removal is harmless.
func (f *DynamicNearestNodeFinder) AddNodes(ids []dsg.NodeID) {
	for _, id := range ids {
		f.members[id] = struct{}{}
	}
	f.dirty = true
}

// RemoveNode drops a node from the membership set.
func (f *DynamicNearestNodeFinder) RemoveNode(id dsg.NodeID) {
	if _, ok := f.members[id]; !ok {
		return
	}
	delete(f.members, id)
	f.dirty = true
}

// Len returns the current membership count, including ids that may no
// longer resolve in the layer.
func (f *DynamicNearestNodeFinder) Len() int { return len(f.members) }

// Find reports up to num nearest members of position in ascending
// distance order, ties by ascending id. skipFirst discards the single
// nearest result.
func (f *DynamicNearestNodeFinder) Find(position dsg.Vec3, num int, skipFirst bool, cb DynamicCallback) {
	f.rebuildIfDirty()
	if f.tree == nil {
		return
	}
	for _, r := range nearestNodes(f.tree, position, num, skipFirst) {
		cb(r.id, r.dist)
	}
}

func (f *DynamicNearestNodeFinder) rebuildIfDirty() {
	if !f.dirty {
		return
	}
	layer := f.graph.GetLayer(f.layer)
	pts := make(nodePoints, 0, len(f.members))
	for id := range f.members {
		n, ok := layer.Node(id)
		if !ok {
			// Node left the graph since it was registered; drop it.
			monitoring.Logf("spatialindex: dropping stale member %d from %v finder", id, f.layer)
			delete(f.members, id)
			continue
		}
		pts = append(pts, nodePoint{id: n.ID, pos: n.Attrs.Position})
	}
	if len(pts) == 0 {
		f.tree = nil
	} else {
		f.tree = kdtree.New(pts, false)
	}
	f.dirty = false
}

// MarkDirty forces a rebuild on the next query, for callers that
// repositioned member nodes in place.
func (f *DynamicNearestNodeFinder) MarkDirty() { f.dirty = true }
