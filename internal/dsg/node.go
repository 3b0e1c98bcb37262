package dsg

import "fmt"

// ParentRef records a node's single parent link: the inter-layer edge
// and the parent's identity. Ids only; the owning Graph resolves them,
// so removal can never leave a dangling pointer.
type ParentRef struct {
	Edge  EdgeID
	Node  NodeID
	Layer LayerID
}

// SceneNode is one entity in the scene graph. A node belongs to
// exactly one layer for its lifetime and has at most one parent.
// Children always belong to a lower-ranked layer than the node itself.
type SceneNode struct {
	ID    NodeID
	Layer LayerID
	Attrs NodeAttributes

	// Parent is nil until an inter-layer edge adopts this node.
	Parent *ParentRef

	// Children maps inter-layer edge id to the child node on the
	// other side. Insertion order is irrelevant.
	Children map[EdgeID]NodeID

	// Siblings maps layer-local intra-layer edge id to the sibling
	// node on the other side.
	Siblings map[EdgeID]NodeID
}

func newSceneNode(id NodeID, layer LayerID, attrs NodeAttributes) *SceneNode {
	return &SceneNode{
		ID:       id,
		Layer:    layer,
		Attrs:    attrs,
		Children: make(map[EdgeID]NodeID),
		Siblings: make(map[EdgeID]NodeID),
	}
}

// HasParent reports whether the node has been adopted by a
// higher-ranked node.
func (n *SceneNode) HasParent() bool { return n.Parent != nil }

// SiblingsConsistent checks that every sibling edge recorded on the
// node actually connects the node within its own layer.
func (n *SceneNode) SiblingsConsistent(layer *Layer) bool {
	for eid, other := range n.Siblings {
		e, ok := layer.Edge(eid)
		if !ok {
			return false
		}
		if e.StartNode != n.ID && e.EndNode != n.ID {
			return false
		}
		if e.StartLayer != n.Layer || e.EndLayer != n.Layer {
			return false
		}
		if e.StartNode != other && e.EndNode != other {
			return false
		}
	}
	return true
}

func (n *SceneNode) String() string {
	return fmt.Sprintf("node %d (%v): %s", n.ID, n.Layer, n.Attrs.String())
}
