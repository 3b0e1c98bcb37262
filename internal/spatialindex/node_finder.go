package spatialindex

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
)

// NodeCallback receives one result per neighbor: the node id, its
// rank in the result set (0 = nearest), and the Euclidean distance to
// the query position.
type NodeCallback func(id dsg.NodeID, index int, distance float64)

// NearestNodeFinder answers k-nearest-neighbor queries over a
// snapshot of node positions. Built once, immutable afterwards;
// rebuild to pick up graph changes.
type NearestNodeFinder struct {
	tree *kdtree.Tree
	size int
}

// NewNearestNodeFinder snapshots every node of a layer.
func NewNearestNodeFinder(layer *dsg.Layer) *NearestNodeFinder {
	pts := make(nodePoints, 0, layer.NumNodes())
	layer.ForEachNode(func(n *dsg.SceneNode) {
		pts = append(pts, nodePoint{id: n.ID, pos: n.Attrs.Position})
	})
	return newNodeFinder(pts)
}

// NewNearestNodeFinderForNodes snapshots a subset of a layer's nodes.
// Every listed node must exist in the layer: passing an unknown id is
// a caller bug.
func NewNearestNodeFinderForNodes(layer *dsg.Layer, ids []dsg.NodeID) *NearestNodeFinder {
	pts := make(nodePoints, 0, len(ids))
	for _, id := range ids {
		n, ok := layer.Node(id)
		if !ok {
			panic(fmt.Sprintf("spatialindex: node %d not in layer %v", id, layer.ID))
		}
		pts = append(pts, nodePoint{id: n.ID, pos: n.Attrs.Position})
	}
	return newNodeFinder(pts)
}

func newNodeFinder(pts nodePoints) *NearestNodeFinder {
	return &NearestNodeFinder{
		tree: kdtree.New(pts, false),
		size: len(pts),
	}
}

// Len returns the number of indexed points.
func (f *NearestNodeFinder) Len() int { return f.size }

// Find reports up to num nearest neighbors of position in ascending
// distance order, ties by ascending id. skipFirst discards the single
// nearest result, for queries where the query position is itself a
// member of the index. Fewer than num results is expected, not an
// error.
func (f *NearestNodeFinder) Find(position dsg.Vec3, num int, skipFirst bool, cb NodeCallback) {
	results := nearestNodes(f.tree, position, num, skipFirst)
	for i, r := range results {
		cb(r.id, i, r.dist)
	}
}

type nodeResult struct {
	id   dsg.NodeID
	dist float64
}

// nearestNodes runs the keeper query and normalises the result order.
func nearestNodes(tree *kdtree.Tree, position dsg.Vec3, num int, skipFirst bool) []nodeResult {
	if num <= 0 || tree.Len() == 0 {
		return nil
	}
	want := num
	if skipFirst {
		want++
	}

	keep := kdtree.NewNKeeper(want)
	tree.NearestSet(keep, nodePoint{pos: position})

	results := make([]nodeResult, 0, want)
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(nodePoint)
		results = append(results, nodeResult{id: p.id, dist: math.Sqrt(c.Dist)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].dist != results[j].dist {
			return results[i].dist < results[j].dist
		}
		return results[i].id < results[j].id
	})

	if skipFirst {
		if len(results) == 0 {
			return nil
		}
		results = results[1:]
	}
	if len(results) > num {
		results = results[:num]
	}
	return results
}
