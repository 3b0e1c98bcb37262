package dsg

import (
	"fmt"
	"sort"
)

// Layer owns the nodes of one rank and the intra-layer edges between
// them. Intra-layer edge ids are local to the layer.
type Layer struct {
	ID LayerID

	nodes      map[NodeID]*SceneNode
	edges      map[EdgeID]*SceneEdge
	nextEdgeID EdgeID
}

func newLayer(id LayerID) *Layer {
	return &Layer{
		ID:         id,
		nodes:      make(map[NodeID]*SceneNode),
		edges:      make(map[EdgeID]*SceneEdge),
		nextEdgeID: 1,
	}
}

// Node returns the node with the given id.
func (l *Layer) Node(id NodeID) (*SceneNode, bool) {
	n, ok := l.nodes[id]
	return n, ok
}

// HasNode reports membership without a lookup result.
func (l *Layer) HasNode(id NodeID) bool {
	_, ok := l.nodes[id]
	return ok
}

// Edge returns the intra-layer edge with the given layer-local id.
func (l *Layer) Edge(id EdgeID) (*SceneEdge, bool) {
	e, ok := l.edges[id]
	return e, ok
}

// NumNodes returns the node count.
func (l *Layer) NumNodes() int { return len(l.nodes) }

// NumEdges returns the intra-layer edge count.
func (l *Layer) NumEdges() int { return len(l.edges) }

// NodeIDs returns the layer's node ids in ascending order.
func (l *Layer) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(l.nodes))
	for id := range l.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ForEachNode visits every node. Mutating layer membership during the
// walk is not allowed.
func (l *Layer) ForEachNode(fn func(*SceneNode)) {
	for _, id := range l.NodeIDs() {
		fn(l.nodes[id])
	}
}

// ForEachEdge visits every intra-layer edge in ascending id order.
func (l *Layer) ForEachEdge(fn func(*SceneEdge)) {
	ids := make([]EdgeID, 0, len(l.edges))
	for id := range l.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(l.edges[id])
	}
}

// addIntraLayerEdge commits an edge between two nodes of this layer,
// assigning the next layer-local id. Both endpoints must exist; the
// caller (Graph.AddEdge) has already checked that.
func (l *Layer) addIntraLayerEdge(e *SceneEdge) {
	if e.SelfLoop() {
		panic(fmt.Sprintf("dsg: intra-layer self loop on node %d in %v", e.StartNode, l.ID))
	}
	start := l.nodes[e.StartNode]
	end := l.nodes[e.EndNode]

	e.ID = l.nextEdgeID
	l.nextEdgeID++
	l.edges[e.ID] = e
	start.Siblings[e.ID] = end.ID
	end.Siblings[e.ID] = start.ID
}

// removeEdge deletes an intra-layer edge and its sibling references.
func (l *Layer) removeEdge(id EdgeID) bool {
	e, ok := l.edges[id]
	if !ok {
		return false
	}
	if n, ok := l.nodes[e.StartNode]; ok {
		delete(n.Siblings, id)
	}
	if n, ok := l.nodes[e.EndNode]; ok {
		delete(n.Siblings, id)
	}
	delete(l.edges, id)
	return true
}
