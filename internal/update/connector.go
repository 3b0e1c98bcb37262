package update

import (
	"sort"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
	"github.com/fieldrobotics/scenegraph/internal/monitoring"
	"github.com/fieldrobotics/scenegraph/internal/spatialindex"
)

// LayerConnectorConfig names one parent layer and the child layers it
// adopts from.
type LayerConnectorConfig struct {
	ParentLayer dsg.LayerID
	ChildLayers []dsg.LayerID
}

// LayerConnector assigns parents to newly added (or re-homed) child
// nodes by nearest-neighbor association against the live parents of
// one layer. It tracks the active parent and child sets between calls
// so repeated passes only touch what changed.
type LayerConnector struct {
	cfg LayerConnectorConfig

	childLayers map[dsg.LayerID]bool

	// activeParents maps each live parent to the children currently
	// assigned to it.
	activeParents map[dsg.NodeID]map[dsg.NodeID]struct{}

	// activeChildren holds children awaiting (re-)assignment, with
	// their layer.
	activeChildren map[dsg.NodeID]dsg.LayerID
}

func NewLayerConnector(cfg LayerConnectorConfig) *LayerConnector {
	children := make(map[dsg.LayerID]bool, len(cfg.ChildLayers))
	for _, l := range cfg.ChildLayers {
		children[l] = true
	}
	return &LayerConnector{
		cfg:            cfg,
		childLayers:    children,
		activeParents:  make(map[dsg.NodeID]map[dsg.NodeID]struct{}),
		activeChildren: make(map[dsg.NodeID]dsg.LayerID),
	}
}

// UpdateParents folds newly added parent-layer nodes into the active
// parent set and prunes parents that left the graph, releasing their
// tracked children back into the pending set.
func (c *LayerConnector) UpdateParents(g *dsg.Graph, newNodes []dsg.NodeID) {
	parents, ok := g.TryGetLayer(c.cfg.ParentLayer)
	if !ok {
		return
	}
	for _, id := range newNodes {
		if parents.HasNode(id) {
			if _, tracked := c.activeParents[id]; !tracked {
				c.activeParents[id] = make(map[dsg.NodeID]struct{})
			}
		}
	}
	for id, children := range c.activeParents {
		if parents.HasNode(id) {
			continue
		}
		for child := range children {
			delete(c.activeChildren, child)
		}
		delete(c.activeParents, id)
	}
}

// ConnectChildren folds newly added child-layer nodes into the pending
// set and connects every pending child to its nearest active parent.
func (c *LayerConnector) ConnectChildren(g *dsg.Graph, newNodes []dsg.NodeID) {
	for _, id := range newNodes {
		for layer := range c.childLayers {
			if g.HasNode(layer, id) {
				c.activeChildren[id] = layer
				break
			}
		}
	}
	if len(c.activeParents) == 0 {
		return
	}

	parentIDs := make([]dsg.NodeID, 0, len(c.activeParents))
	for id := range c.activeParents {
		parentIDs = append(parentIDs, id)
	}
	sort.Slice(parentIDs, func(i, j int) bool { return parentIDs[i] < parentIDs[j] })

	parents := g.GetLayer(c.cfg.ParentLayer)
	finder := spatialindex.NewNearestNodeFinderForNodes(parents, parentIDs)

	for childID, childLayer := range c.activeChildren {
		child, ok := g.GetNode(childLayer, childID)
		if !ok {
			delete(c.activeChildren, childID)
			continue
		}

		if child.Parent != nil {
			if tracked, ok := c.activeParents[child.Parent.Node]; ok {
				delete(tracked, childID)
			}
		}

		finder.Find(child.Attrs.Position, 1, false, func(parentID dsg.NodeID, _ int, _ float64) {
			g.AddEdge(&dsg.SceneEdge{
				StartLayer: c.cfg.ParentLayer,
				StartNode:  parentID,
				EndLayer:   childLayer,
				EndNode:    childID,
			})
			c.activeParents[parentID][childID] = struct{}{}
		})
	}
}

// GraphConnector runs one LayerConnector per configured parent layer.
type GraphConnector struct {
	layers []*LayerConnector
}

func NewGraphConnector(cfgs []LayerConnectorConfig) *GraphConnector {
	gc := &GraphConnector{}
	for _, cfg := range cfgs {
		if len(cfg.ChildLayers) == 0 {
			monitoring.Logf("update: connector for %v has no child layers", cfg.ParentLayer)
		}
		gc.layers = append(gc.layers, NewLayerConnector(cfg))
	}
	return gc
}

// Connect updates parent sets and re-parents pending children for
// every configured layer pair.
func (gc *GraphConnector) Connect(g *dsg.Graph, newNodes []dsg.NodeID) {
	for _, layer := range gc.layers {
		layer.UpdateParents(g, newNodes)
		layer.ConnectChildren(g, newNodes)
	}
}
