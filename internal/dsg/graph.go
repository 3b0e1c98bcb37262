package dsg

import (
	"fmt"
	"sort"

	"github.com/fieldrobotics/scenegraph/internal/monitoring"
)

// Graph is the top-level aggregate. It exclusively owns all layers,
// nodes and edges; external components hold ids only. A Graph is
// created once at process start with a fixed ranked layer
// configuration and lives until shutdown.
//
// Graph itself is not goroutine safe. Concurrent access goes through
// SharedGraph, which enforces the single-writer/multi-reader
// discipline.
type Graph struct {
	layers map[LayerID]*Layer
	order  []LayerID // ascending rank

	interLayerEdges map[EdgeID]*SceneEdge
	nextEdgeID      EdgeID

	nextNodeID NodeID

	agents map[RobotID]*AgentLayer
}

// NewGraph creates a graph with the given ranked layers. The order
// must be strictly ascending by rank; anything else is a
// configuration error.
func NewGraph(order []LayerID) (*Graph, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("dsg: no layers configured")
	}
	g := &Graph{
		layers:          make(map[LayerID]*Layer, len(order)),
		order:           append([]LayerID(nil), order...),
		interLayerEdges: make(map[EdgeID]*SceneEdge),
		nextEdgeID:      1,
		nextNodeID:      1,
		agents:          make(map[RobotID]*AgentLayer),
	}
	for i, id := range g.order {
		if id <= LayerInvalid {
			return nil, fmt.Errorf("dsg: invalid layer id %d", int(id))
		}
		if i > 0 && id <= g.order[i-1] {
			return nil, fmt.Errorf("dsg: layer order must be strictly ascending, got %v after %v", id, g.order[i-1])
		}
		g.layers[id] = newLayer(id)
	}
	return g, nil
}

// LayerOrder returns the ranked layer configuration, ascending rank.
func (g *Graph) LayerOrder() []LayerID {
	return append([]LayerID(nil), g.order...)
}

// HasLayer reports whether the ranked layer exists.
func (g *Graph) HasLayer(id LayerID) bool {
	_, ok := g.layers[id]
	return ok
}

// GetLayer returns the ranked layer, panicking if it is not
// configured: asking for an unknown layer is a caller bug.
func (g *Graph) GetLayer(id LayerID) *Layer {
	l, ok := g.layers[id]
	if !ok {
		panic(fmt.Sprintf("dsg: unknown layer %v", id))
	}
	return l
}

// TryGetLayer is the non-fatal layer lookup.
func (g *Graph) TryGetLayer(id LayerID) (*Layer, bool) {
	l, ok := g.layers[id]
	return l, ok
}

// isParent reports whether a is the parent rank of b in the current
// layer-adjacency configuration (the next ranked layer above b).
func (g *Graph) isParent(a, b LayerID) bool {
	for i, id := range g.order {
		if id == b {
			return i+1 < len(g.order) && g.order[i+1] == a
		}
	}
	return false
}

// CanConnect reports whether an edge between the two layers would be
// accepted: same layer, or adjacent ranks in either direction. Callers
// handling external input use this to reject bad edges before AddEdge
// treats them as a logic error.
func (g *Graph) CanConnect(a, b LayerID) bool {
	if a == b {
		return g.HasLayer(a)
	}
	return g.isParent(a, b) || g.isParent(b, a)
}

// NewNode allocates the next node id, inserts a node with the given
// attributes into the layer, and returns it. The layer must exist.
func (g *Graph) NewNode(layer LayerID, attrs NodeAttributes) *SceneNode {
	l := g.GetLayer(layer)
	n := newSceneNode(g.nextNodeID, layer, attrs)
	g.nextNodeID++
	l.nodes[n.ID] = n
	return n
}

// InsertNode places a node with a caller-chosen id, used when
// restoring a persisted graph. The id must be unused in the layer; the
// allocator is advanced past it.
func (g *Graph) InsertNode(layer LayerID, id NodeID, attrs NodeAttributes) (*SceneNode, error) {
	l, ok := g.layers[layer]
	if !ok {
		return nil, fmt.Errorf("dsg: unknown layer %v", layer)
	}
	if l.HasNode(id) {
		return nil, fmt.Errorf("dsg: node %d already present in %v", id, layer)
	}
	n := newSceneNode(id, layer, attrs)
	l.nodes[id] = n
	if id >= g.nextNodeID {
		g.nextNodeID = id + 1
	}
	return n, nil
}

// GetNode is the read lookup. A missing layer or node is an expected
// absence: logged, not fatal.
func (g *Graph) GetNode(layer LayerID, id NodeID) (*SceneNode, bool) {
	l, ok := g.layers[layer]
	if !ok {
		monitoring.Logf("dsg: node lookup on unknown layer %v (node %d)", layer, id)
		return nil, false
	}
	n, ok := l.Node(id)
	if !ok {
		monitoring.Logf("dsg: node %d not found in layer %v", id, layer)
		return nil, false
	}
	return n, true
}

// HasNode reports membership without logging.
func (g *Graph) HasNode(layer LayerID, id NodeID) bool {
	l, ok := g.layers[layer]
	return ok && l.HasNode(id)
}

// InterLayerEdge returns the committed inter-layer edge with the
// given id.
func (g *Graph) InterLayerEdge(id EdgeID) (*SceneEdge, bool) {
	e, ok := g.interLayerEdges[id]
	return e, ok
}

// NumInterLayerEdges returns the global inter-layer edge count.
func (g *Graph) NumInterLayerEdges() int { return len(g.interLayerEdges) }

// ForEachInterLayerEdge visits every inter-layer edge in ascending id
// order.
func (g *Graph) ForEachInterLayerEdge(fn func(*SceneEdge)) {
	ids := make([]EdgeID, 0, len(g.interLayerEdges))
	for id := range g.interLayerEdges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(g.interLayerEdges[id])
	}
}

// AddEdge commits an edge. Both endpoint layers and nodes must exist;
// violations panic since they indicate a caller logic error. Same
// layer endpoints delegate to the layer's intra-layer store.
// Inter-layer edges must connect a layer to its parent rank; the edge
// is auto-corrected (with a logged warning) when submitted with the
// child on the start side.
func (g *Graph) AddEdge(e *SceneEdge) {
	if !g.HasLayer(e.StartLayer) {
		panic(fmt.Sprintf("dsg: AddEdge with unknown start layer %v", e.StartLayer))
	}
	if !g.HasLayer(e.EndLayer) {
		panic(fmt.Sprintf("dsg: AddEdge with unknown end layer %v", e.EndLayer))
	}
	if !g.HasNode(e.StartLayer, e.StartNode) {
		panic(fmt.Sprintf("dsg: AddEdge with missing start node %d in %v", e.StartNode, e.StartLayer))
	}
	if !g.HasNode(e.EndLayer, e.EndNode) {
		panic(fmt.Sprintf("dsg: AddEdge with missing end node %d in %v", e.EndNode, e.EndLayer))
	}

	if e.StartLayer == e.EndLayer {
		g.layers[e.StartLayer].addIntraLayerEdge(e)
		return
	}
	g.addInterLayerEdge(e)
	if !g.edgeValid(e) {
		panic(fmt.Sprintf("dsg: committed edge failed validity check: %s", e))
	}
}

func (g *Graph) addInterLayerEdge(e *SceneEdge) {
	if g.isParent(e.EndLayer, e.StartLayer) {
		// Submitted with the child on the start side; fix it so the
		// parent is always the start.
		monitoring.Logf("dsg: inter-layer edge with weird family tree (%v -> %v); fixing direction", e.StartLayer, e.EndLayer)
		e.SwapDirection()
	} else if !g.isParent(e.StartLayer, e.EndLayer) {
		panic(fmt.Sprintf("dsg: inter-layer edge between non-adjacent ranks %v and %v", e.StartLayer, e.EndLayer))
	}

	id := g.nextEdgeID
	g.nextEdgeID++
	if _, dup := g.interLayerEdges[id]; dup {
		panic(fmt.Sprintf("dsg: inter-layer edge id %d already present", id))
	}
	e.ID = id

	parent := g.layers[e.StartLayer].nodes[e.StartNode]
	child := g.layers[e.EndLayer].nodes[e.EndNode]

	// A node has at most one parent: adopting an already-parented
	// child retires the previous parent edge first so no orphaned
	// reference survives.
	if child.Parent != nil {
		g.RemoveEdge(child.Parent.Edge)
	}

	parent.Children[id] = child.ID
	child.Parent = &ParentRef{Edge: id, Node: parent.ID, Layer: parent.Layer}
	g.interLayerEdges[id] = e
}

// edgeValid is the post-commit validity check: endpoints distinct and
// still present.
func (g *Graph) edgeValid(e *SceneEdge) bool {
	if e.SelfLoop() {
		return false
	}
	return g.HasNode(e.StartLayer, e.StartNode) && g.HasNode(e.EndLayer, e.EndNode)
}

// RemoveEdge removes an inter-layer edge from the global set and from
// both endpoints' parent/children fields. Returns false when the id is
// unknown.
func (g *Graph) RemoveEdge(id EdgeID) bool {
	e, ok := g.interLayerEdges[id]
	if !ok {
		return false
	}
	if parent, ok := g.layers[e.StartLayer].Node(e.StartNode); ok {
		delete(parent.Children, id)
	}
	if child, ok := g.layers[e.EndLayer].Node(e.EndNode); ok {
		if child.Parent != nil && child.Parent.Edge == id {
			child.Parent = nil
		}
	}
	delete(g.interLayerEdges, id)
	return true
}

// RemoveIntraLayerEdge removes a sibling edge from its layer. Returns
// false when the layer or edge is unknown.
func (g *Graph) RemoveIntraLayerEdge(layer LayerID, id EdgeID) bool {
	l, ok := g.layers[layer]
	if !ok {
		return false
	}
	return l.removeEdge(id)
}

// RemoveNode removes a node and every edge touching it: its parent
// edge, all child edges, and all sibling edges. Returns false when the
// node is unknown.
func (g *Graph) RemoveNode(layer LayerID, id NodeID) bool {
	l, ok := g.layers[layer]
	if !ok {
		return false
	}
	n, ok := l.Node(id)
	if !ok {
		return false
	}

	if n.Parent != nil {
		g.RemoveEdge(n.Parent.Edge)
	}
	for eid := range n.Children {
		g.RemoveEdge(eid)
	}
	for eid := range n.Siblings {
		l.removeEdge(eid)
	}
	delete(l.nodes, id)
	return true
}

// MergeNodes collapses node from into node to within one layer. The
// survivor keeps its identity; all of the removed node's edges are
// re-parented onto the survivor; cluster and bounding-box attributes
// are unioned; the duplicate is removed. Both nodes must exist (a
// missing merge endpoint is an internal-invariant failure). Merging a
// node into itself is a no-op, which makes repeated merge passes
// idempotent.
func (g *Graph) MergeNodes(layer LayerID, from, to NodeID) {
	if from == to {
		return
	}
	l := g.GetLayer(layer)
	src, ok := l.Node(from)
	if !ok {
		panic(fmt.Sprintf("dsg: merge source %d missing from %v", from, layer))
	}
	dst, ok := l.Node(to)
	if !ok {
		panic(fmt.Sprintf("dsg: merge survivor %d missing from %v", to, layer))
	}

	// Children: re-point the parent side of each child edge onto the
	// survivor.
	for eid, childID := range src.Children {
		e := g.interLayerEdges[eid]
		if e == nil {
			panic(fmt.Sprintf("dsg: child edge %d of node %d missing from global set", eid, from))
		}
		e.StartNode = to
		dst.Children[eid] = childID
		if child, ok := g.layers[e.EndLayer].Node(childID); ok && child.Parent != nil {
			child.Parent.Node = to
		}
	}
	src.Children = make(map[EdgeID]NodeID)

	// Parent: the survivor keeps its own parent when it has one;
	// otherwise it inherits the duplicate's.
	if src.Parent != nil {
		eid := src.Parent.Edge
		if dst.Parent != nil {
			g.RemoveEdge(eid)
		} else {
			e := g.interLayerEdges[eid]
			e.EndNode = to
			dst.Parent = &ParentRef{Edge: eid, Node: e.StartNode, Layer: e.StartLayer}
			if parent, ok := g.layers[e.StartLayer].Node(e.StartNode); ok {
				parent.Children[eid] = to
			}
			src.Parent = nil
		}
	}

	// Siblings: reconnect the survivor to each former neighbor unless
	// that would self-loop or duplicate an existing sibling edge.
	neighbors := make([]NodeID, 0, len(src.Siblings))
	for _, other := range src.Siblings {
		neighbors = append(neighbors, other)
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
	for eid := range src.Siblings {
		l.removeEdge(eid)
	}
	for _, other := range neighbors {
		if other == to || !l.HasNode(other) {
			continue
		}
		if dst.hasSibling(other) {
			continue
		}
		g.AddEdge(&SceneEdge{StartLayer: layer, StartNode: to, EndLayer: layer, EndNode: other})
	}

	dst.Attrs.Cluster = dst.Attrs.Cluster.Union(src.Attrs.Cluster)
	if src.Attrs.Box != nil {
		if dst.Attrs.Box == nil {
			dst.Attrs.Box = src.Attrs.Box
		} else {
			merged := dst.Attrs.Box.Union(*src.Attrs.Box)
			dst.Attrs.Box = &merged
		}
	}

	delete(l.nodes, from)
}

func (n *SceneNode) hasSibling(other NodeID) bool {
	for _, id := range n.Siblings {
		if id == other {
			return true
		}
	}
	return false
}

// NumNodes returns the total node count across ranked layers.
func (g *Graph) NumNodes() int {
	total := 0
	for _, l := range g.layers {
		total += l.NumNodes()
	}
	return total
}
