package update

import (
	"sort"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
	"github.com/fieldrobotics/scenegraph/internal/monitoring"
	"github.com/fieldrobotics/scenegraph/internal/spatialindex"
)

// LayerUpdateFunc is the shared contract of all per-layer update
// operations: reposition from the two solved sets, then optionally
// merge duplicates. Rooms and buildings accept the value sets for
// interface uniformity but derive their positions from children.
type LayerUpdateFunc func(g *dsg.Graph, placesValues, meshValues Values, allowMerging bool)

// Config carries the per-layer merge thresholds and the layer-to-key
// mapping, supplied once at construction and immutable afterwards.
type Config struct {
	// LayerKeys classifies variable keys by layer (e.g. objects 'o',
	// places 'p', rooms 'r', buildings 'b').
	LayerKeys map[dsg.LayerID]byte

	// AgentKeys maps each robot to its trajectory key character.
	AgentKeys map[dsg.RobotID]byte

	// ObjectMergeDistanceM is the positional threshold below which two
	// object nodes are merge candidates.
	ObjectMergeDistanceM float64

	// PlacesMergeDistanceM is the positional threshold for places.
	PlacesMergeDistanceM float64

	// PlacesDistanceToleranceM bounds the difference in recorded
	// free-space clearance two places may have and still merge. Two
	// places close in Euclidean distance but separated by an obstacle
	// disagree on clearance and are kept apart.
	PlacesDistanceToleranceM float64
}

// DefaultConfig returns the standard pipeline thresholds.
func DefaultConfig() Config {
	return Config{
		LayerKeys: map[dsg.LayerID]byte{
			dsg.LayerObjects:   'o',
			dsg.LayerPlaces:    'p',
			dsg.LayerRooms:     'r',
			dsg.LayerBuildings: 'b',
		},
		AgentKeys:                map[dsg.RobotID]byte{0: 'a'},
		ObjectMergeDistanceM:     0.4,
		PlacesMergeDistanceM:     0.4,
		PlacesDistanceToleranceM: 1.0,
	}
}

// Updater applies optimizer results to the graph store. A single
// Updater instance is the graph's only writer.
type Updater struct {
	cfg Config
}

func NewUpdater(cfg Config) *Updater {
	return &Updater{cfg: cfg}
}

// Apply runs one whole pass (all layer updates) as a single logical
// unit against the shared graph, so readers never observe a partially
// updated graph.
func (u *Updater) Apply(shared *dsg.SharedGraph, placesValues, meshValues Values, allowMerging bool) {
	shared.Modify(func(g *dsg.Graph) {
		u.UpdateObjects(g, placesValues, meshValues, allowMerging)
		u.UpdatePlaces(g, placesValues, meshValues, allowMerging)
		u.UpdateRooms(g, placesValues, meshValues, allowMerging)
		u.UpdateBuildings(g, placesValues, meshValues, allowMerging)
		u.UpdateAgents(g, placesValues, meshValues, allowMerging)
	})
}

func (u *Updater) keyFor(layer dsg.LayerID, id dsg.NodeID) (Key, bool) {
	prefix, ok := u.cfg.LayerKeys[layer]
	if !ok {
		return Key{}, false
	}
	return Key{Prefix: prefix, Index: uint64(id)}, true
}

// repositionLayer overwrites the position (and orientation) of every
// node whose variable key is present in values. Unsolved nodes are
// left untouched.
func (u *Updater) repositionLayer(g *dsg.Graph, layer dsg.LayerID, values Values) {
	l, ok := g.TryGetLayer(layer)
	if !ok {
		// Layer not configured for this graph; nothing to update.
		return
	}
	l.ForEachNode(func(n *dsg.SceneNode) {
		key, ok := u.keyFor(layer, n.ID)
		if !ok {
			return
		}
		pose, ok := values.At(key)
		if !ok {
			return
		}
		n.Attrs.Position = pose.Position
		n.Attrs.Orientation = pose.Rotation
	})
}

// UpdateObjects repositions object nodes from the mesh-anchored
// solved set and merges coincident duplicates.
func (u *Updater) UpdateObjects(g *dsg.Graph, placesValues, meshValues Values, allowMerging bool) {
	u.repositionLayer(g, dsg.LayerObjects, meshValues)
	if allowMerging {
		u.mergeLayer(g, dsg.LayerObjects, u.cfg.ObjectMergeDistanceM, nil)
	}
}

// UpdatePlaces repositions place nodes from the places solved set and
// merges duplicates that pass both the positional threshold and the
// free-space clearance tolerance.
func (u *Updater) UpdatePlaces(g *dsg.Graph, placesValues, meshValues Values, allowMerging bool) {
	u.UpdatePlacesWithThresholds(g, placesValues, meshValues, allowMerging,
		u.cfg.PlacesMergeDistanceM, u.cfg.PlacesDistanceToleranceM)
}

// UpdatePlacesWithThresholds is UpdatePlaces with explicit thresholds,
// for callers tuning a single pass.
func (u *Updater) UpdatePlacesWithThresholds(g *dsg.Graph, placesValues, meshValues Values, allowMerging bool, posThresholdM, distanceToleranceM float64) {
	u.repositionLayer(g, dsg.LayerPlaces, placesValues)
	if allowMerging {
		tolerance := func(a, b *dsg.SceneNode) bool {
			diff := a.Attrs.Distance - b.Attrs.Distance
			if diff < 0 {
				diff = -diff
			}
			return diff <= distanceToleranceM
		}
		u.mergeLayer(g, dsg.LayerPlaces, posThresholdM, tolerance)
	}
}

// UpdateRooms recomputes each room's position as the centroid of its
// current children in the places layer. The solved sets are accepted
// for interface uniformity and ignored at this rank.
func (u *Updater) UpdateRooms(g *dsg.Graph, placesValues, meshValues Values, allowMerging bool) {
	deriveFromChildren(g, dsg.LayerRooms)
}

// UpdateBuildings recomputes each building's position as the centroid
// of its current rooms.
func (u *Updater) UpdateBuildings(g *dsg.Graph, placesValues, meshValues Values, allowMerging bool) {
	deriveFromChildren(g, dsg.LayerBuildings)
}

// UpdateAgents repositions every robot trajectory node present in the
// mesh-anchored solved set. Agent nodes are never merged.
func (u *Updater) UpdateAgents(g *dsg.Graph, placesValues, meshValues Values, allowMerging bool) {
	for _, robot := range g.AgentRobots() {
		prefix, ok := u.cfg.AgentKeys[robot]
		if !ok {
			monitoring.Logf("update: no key configured for robot %d; skipping trajectory", robot)
			continue
		}
		agent, _ := g.TryAgentLayer(robot)
		agent.ForEachNode(func(n *dsg.SceneNode) {
			pose, ok := meshValues.At(Key{Prefix: prefix, Index: uint64(n.ID)})
			if !ok {
				return
			}
			n.Attrs.Position = pose.Position
			n.Attrs.Orientation = pose.Rotation
		})
	}
}

// deriveFromChildren sets each node's position to the centroid of its
// children's positions. Childless nodes keep their position.
func deriveFromChildren(g *dsg.Graph, layer dsg.LayerID) {
	l, ok := g.TryGetLayer(layer)
	if !ok {
		return
	}
	l.ForEachNode(func(n *dsg.SceneNode) {
		if len(n.Children) == 0 {
			return
		}
		var sum dsg.Vec3
		count := 0
		for eid, childID := range n.Children {
			e, ok := g.InterLayerEdge(eid)
			if !ok {
				continue
			}
			child, ok := g.GetNode(e.EndLayer, childID)
			if !ok {
				continue
			}
			sum = sum.Add(child.Attrs.Position)
			count++
		}
		if count > 0 {
			n.Attrs.Position = sum.Scale(1 / float64(count))
		}
	})
}

// mergeLayer collapses pairs of nodes whose positions fall within
// threshold and whose proximity the spatial index confirms. The
// accept callback (optional) vetoes candidate pairs; the survivor is
// always the lower-numbered id. Re-running the pass on an
// already-merged graph produces no further changes.
func (u *Updater) mergeLayer(g *dsg.Graph, layer dsg.LayerID, thresholdM float64, accept func(a, b *dsg.SceneNode) bool) {
	l, ok := g.TryGetLayer(layer)
	if !ok || l.NumNodes() < 2 {
		return
	}

	finder := spatialindex.NewNearestNodeFinder(l)

	// Collect proposals against the pass snapshot, then apply. Each
	// proposal merges the higher id into the lower.
	type proposal struct{ from, to dsg.NodeID }
	var proposals []proposal
	l.ForEachNode(func(n *dsg.SceneNode) {
		finder.Find(n.Attrs.Position, 1, true, func(other dsg.NodeID, _ int, dist float64) {
			if dist > thresholdM {
				return
			}
			o, ok := l.Node(other)
			if !ok {
				return
			}
			if accept != nil && !accept(n, o) {
				return
			}
			from, to := n.ID, other
			if from < to {
				from, to = to, from
			}
			proposals = append(proposals, proposal{from: from, to: to})
		})
	})

	if len(proposals) == 0 {
		return
	}
	sort.Slice(proposals, func(i, j int) bool {
		if proposals[i].to != proposals[j].to {
			return proposals[i].to < proposals[j].to
		}
		return proposals[i].from < proposals[j].from
	})

	// Merges within one pass are serialized; chains collapse onto the
	// oldest surviving id.
	merged := make(map[dsg.NodeID]dsg.NodeID)
	resolve := func(id dsg.NodeID) dsg.NodeID {
		for {
			next, ok := merged[id]
			if !ok {
				return id
			}
			id = next
		}
	}
	for _, p := range proposals {
		if _, gone := merged[p.from]; gone {
			continue
		}
		to := resolve(p.to)
		if to == p.from {
			continue
		}
		monitoring.Logf("update: merging %v node %d into %d", layer, p.from, to)
		g.MergeNodes(layer, p.from, to)
		merged[p.from] = to
	}
}
