package dsg

import "fmt"

// SceneEdge connects two nodes. If the endpoint layers differ the edge
// is inter-layer and, once committed, oriented so that the start side
// is always the parent (higher rank) and the end side the child.
type SceneEdge struct {
	// ID is assigned on commit for inter-layer edges (graph-wide
	// counter) and intra-layer edges (layer-local counter). Zero
	// before commit.
	ID EdgeID

	StartLayer LayerID
	StartNode  NodeID
	EndLayer   LayerID
	EndNode    NodeID
}

// IsInterLayer reports whether the edge spans two different layers.
func (e *SceneEdge) IsInterLayer() bool { return e.StartLayer != e.EndLayer }

// SwapDirection exchanges the start and end sides in place.
func (e *SceneEdge) SwapDirection() {
	e.StartLayer, e.EndLayer = e.EndLayer, e.StartLayer
	e.StartNode, e.EndNode = e.EndNode, e.StartNode
}

// SelfLoop reports whether both endpoints are the same node of the
// same layer.
func (e *SceneEdge) SelfLoop() bool {
	return e.StartLayer == e.EndLayer && e.StartNode == e.EndNode
}

func (e *SceneEdge) String() string {
	return fmt.Sprintf("edge %d: %v/%d -> %v/%d",
		e.ID, e.StartLayer, e.StartNode, e.EndLayer, e.EndNode)
}
