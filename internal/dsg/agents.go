package dsg

import (
	"fmt"
	"sort"
)

// AgentLayer is the dynamic layer for one robot: the time-ordered
// trajectory of its pose nodes. Agent layers sit outside the ranked
// hierarchy and are keyed by robot identity, so they carry no
// inter-layer edges. Consecutive trajectory nodes are implicitly
// chained by append order.
type AgentLayer struct {
	Robot RobotID

	nodes []*SceneNode
	byID  map[NodeID]*SceneNode
}

func newAgentLayer(robot RobotID) *AgentLayer {
	return &AgentLayer{
		Robot: robot,
		byID:  make(map[NodeID]*SceneNode),
	}
}

// NumNodes returns the trajectory length.
func (a *AgentLayer) NumNodes() int { return len(a.nodes) }

// Node returns the trajectory node with the given id.
func (a *AgentLayer) Node(id NodeID) (*SceneNode, bool) {
	n, ok := a.byID[id]
	return n, ok
}

// ForEachNode visits the trajectory in time order.
func (a *AgentLayer) ForEachNode(fn func(*SceneNode)) {
	for _, n := range a.nodes {
		fn(n)
	}
}

// Latest returns the most recent trajectory node.
func (a *AgentLayer) Latest() (*SceneNode, bool) {
	if len(a.nodes) == 0 {
		return nil, false
	}
	return a.nodes[len(a.nodes)-1], true
}

// AgentLayerFor returns the dynamic layer for a robot, creating it on
// first use.
func (g *Graph) AgentLayerFor(robot RobotID) *AgentLayer {
	a, ok := g.agents[robot]
	if !ok {
		a = newAgentLayer(robot)
		g.agents[robot] = a
	}
	return a
}

// TryAgentLayer returns the dynamic layer for a robot without
// creating it.
func (g *Graph) TryAgentLayer(robot RobotID) (*AgentLayer, bool) {
	a, ok := g.agents[robot]
	return a, ok
}

// AgentRobots returns the robots with dynamic layers, ascending.
func (g *Graph) AgentRobots() []RobotID {
	ids := make([]RobotID, 0, len(g.agents))
	for id := range g.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AppendAgentNode appends a pose to a robot's trajectory, allocating
// the node id from the graph-wide counter. Timestamps must be
// non-decreasing along the trajectory.
func (g *Graph) AppendAgentNode(robot RobotID, attrs NodeAttributes) (*SceneNode, error) {
	a := g.AgentLayerFor(robot)
	if last, ok := a.Latest(); ok && attrs.TimestampNanos < last.Attrs.TimestampNanos {
		return nil, fmt.Errorf("dsg: agent %d pose at %d precedes trajectory tail %d",
			robot, attrs.TimestampNanos, last.Attrs.TimestampNanos)
	}
	n := newSceneNode(g.nextNodeID, LayerAgents, attrs)
	g.nextNodeID++
	a.nodes = append(a.nodes, n)
	a.byID[n.ID] = n
	return n, nil
}
