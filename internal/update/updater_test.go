package update

import (
	"math"
	"testing"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
)

func newTestGraph(t *testing.T) *dsg.Graph {
	t.Helper()
	g, err := dsg.NewGraph(dsg.DefaultLayerOrder())
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	return g
}

func keyForNode(t *testing.T, cfg Config, layer dsg.LayerID, id dsg.NodeID) Key {
	t.Helper()
	prefix, ok := cfg.LayerKeys[layer]
	if !ok {
		t.Fatalf("no key configured for layer %v", layer)
	}
	return Key{Prefix: prefix, Index: uint64(id)}
}

func TestUpdateObjectsRepositions(t *testing.T) {
	g := newTestGraph(t)
	cfg := DefaultConfig()
	u := NewUpdater(cfg)

	solved := g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{0, 0, 0}})
	unsolved := g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{9, 9, 9}})

	mesh := Values{
		keyForNode(t, cfg, dsg.LayerObjects, solved.ID): {
			Position: dsg.Vec3{1, 2, 3},
			Rotation: dsg.Quat{W: 0, X: 0, Y: 0, Z: 1},
		},
	}
	u.UpdateObjects(g, nil, mesh, false)

	if solved.Attrs.Position != (dsg.Vec3{1, 2, 3}) {
		t.Errorf("solved position = %v, want (1,2,3)", solved.Attrs.Position)
	}
	if solved.Attrs.Orientation != (dsg.Quat{Z: 1}) {
		t.Errorf("solved orientation = %+v, want z-flip", solved.Attrs.Orientation)
	}
	if unsolved.Attrs.Position != (dsg.Vec3{9, 9, 9}) {
		t.Errorf("unsolved node moved to %v", unsolved.Attrs.Position)
	}
}

func TestUpdateObjectsMergesDuplicates(t *testing.T) {
	g := newTestGraph(t)
	u := NewUpdater(DefaultConfig())

	a := g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{0, 0, 0}})
	b := g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{0.1, 0, 0}})
	far := g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{10, 0, 0}})

	u.UpdateObjects(g, nil, nil, true)

	objects := g.GetLayer(dsg.LayerObjects)
	if objects.NumNodes() != 2 {
		t.Fatalf("NumNodes = %d after merge, want 2", objects.NumNodes())
	}
	if !objects.HasNode(a.ID) {
		t.Error("survivor must be the lower id")
	}
	if objects.HasNode(b.ID) {
		t.Error("higher id should have been merged away")
	}
	if !objects.HasNode(far.ID) {
		t.Error("distant node must survive")
	}
}

func TestUpdateObjectsMergeChain(t *testing.T) {
	g := newTestGraph(t)
	u := NewUpdater(DefaultConfig())

	a := g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{0, 0, 0}})
	g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{0.2, 0, 0}})
	g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{0.4, 0, 0}})

	u.UpdateObjects(g, nil, nil, true)

	objects := g.GetLayer(dsg.LayerObjects)
	if objects.NumNodes() != 1 {
		t.Fatalf("NumNodes = %d, want chain collapsed to 1", objects.NumNodes())
	}
	if !objects.HasNode(a.ID) {
		t.Error("chain must collapse onto the oldest id")
	}
}

func TestUpdateObjectsMergeIdempotent(t *testing.T) {
	g := newTestGraph(t)
	u := NewUpdater(DefaultConfig())

	g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{0, 0, 0}})
	g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{Position: dsg.Vec3{0.1, 0, 0}})

	u.UpdateObjects(g, nil, nil, true)
	want := g.GetLayer(dsg.LayerObjects).NumNodes()
	u.UpdateObjects(g, nil, nil, true)
	if got := g.GetLayer(dsg.LayerObjects).NumNodes(); got != want {
		t.Errorf("second pass changed node count %d -> %d", want, got)
	}
}

func TestUpdatePlacesToleranceVeto(t *testing.T) {
	g := newTestGraph(t)
	u := NewUpdater(DefaultConfig())

	// Positionally coincident but with clearances 0.5 vs 3.0: an
	// obstacle separates them, so the merge is vetoed.
	g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{Position: dsg.Vec3{0, 0, 0}, Distance: 0.5})
	g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{Position: dsg.Vec3{0.1, 0, 0}, Distance: 3.0})

	u.UpdatePlaces(g, nil, nil, true)
	if got := g.GetLayer(dsg.LayerPlaces).NumNodes(); got != 2 {
		t.Errorf("NumNodes = %d, want veto to keep both places", got)
	}
}

func TestUpdatePlacesMergesWithinTolerance(t *testing.T) {
	g := newTestGraph(t)
	u := NewUpdater(DefaultConfig())

	a := g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{Position: dsg.Vec3{0, 0, 0}, Distance: 1.0})
	g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{Position: dsg.Vec3{0.1, 0, 0}, Distance: 1.5})

	u.UpdatePlaces(g, nil, nil, true)
	places := g.GetLayer(dsg.LayerPlaces)
	if places.NumNodes() != 1 || !places.HasNode(a.ID) {
		t.Errorf("expected merge into %d, have %d nodes", a.ID, places.NumNodes())
	}
}

func TestUpdatePlacesWithThresholds(t *testing.T) {
	g := newTestGraph(t)
	u := NewUpdater(DefaultConfig())

	g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{Position: dsg.Vec3{0, 0, 0}})
	g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{Position: dsg.Vec3{2, 0, 0}})

	// Default threshold keeps them apart; a widened one merges them.
	u.UpdatePlaces(g, nil, nil, true)
	if got := g.GetLayer(dsg.LayerPlaces).NumNodes(); got != 2 {
		t.Fatalf("NumNodes = %d before widening, want 2", got)
	}
	u.UpdatePlacesWithThresholds(g, nil, nil, true, 5.0, 10.0)
	if got := g.GetLayer(dsg.LayerPlaces).NumNodes(); got != 1 {
		t.Errorf("NumNodes = %d with widened threshold, want 1", got)
	}
}

func TestUpdateRoomsDerivesCentroid(t *testing.T) {
	g := newTestGraph(t)
	u := NewUpdater(DefaultConfig())

	room := g.NewNode(dsg.LayerRooms, dsg.NodeAttributes{Position: dsg.Vec3{99, 99, 99}})
	p1 := g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{Position: dsg.Vec3{0, 0, 0}})
	p2 := g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{Position: dsg.Vec3{4, 2, 0}})
	g.AddEdge(&dsg.SceneEdge{StartLayer: dsg.LayerRooms, StartNode: room.ID, EndLayer: dsg.LayerPlaces, EndNode: p1.ID})
	g.AddEdge(&dsg.SceneEdge{StartLayer: dsg.LayerRooms, StartNode: room.ID, EndLayer: dsg.LayerPlaces, EndNode: p2.ID})

	u.UpdateRooms(g, nil, nil, false)

	want := dsg.Vec3{2, 1, 0}
	if d := room.Attrs.Position.Dist(want); d > 1e-9 {
		t.Errorf("room position = %v, want %v", room.Attrs.Position, want)
	}

	// Childless rooms keep their position.
	lonely := g.NewNode(dsg.LayerRooms, dsg.NodeAttributes{Position: dsg.Vec3{7, 7, 7}})
	u.UpdateRooms(g, nil, nil, false)
	if lonely.Attrs.Position != (dsg.Vec3{7, 7, 7}) {
		t.Errorf("childless room moved to %v", lonely.Attrs.Position)
	}
}

func TestUpdateBuildingsDerivesCentroid(t *testing.T) {
	g := newTestGraph(t)
	u := NewUpdater(DefaultConfig())

	building := g.NewNode(dsg.LayerBuildings, dsg.NodeAttributes{})
	r1 := g.NewNode(dsg.LayerRooms, dsg.NodeAttributes{Position: dsg.Vec3{1, 0, 0}})
	r2 := g.NewNode(dsg.LayerRooms, dsg.NodeAttributes{Position: dsg.Vec3{3, 0, 0}})
	g.AddEdge(&dsg.SceneEdge{StartLayer: dsg.LayerBuildings, StartNode: building.ID, EndLayer: dsg.LayerRooms, EndNode: r1.ID})
	g.AddEdge(&dsg.SceneEdge{StartLayer: dsg.LayerBuildings, StartNode: building.ID, EndLayer: dsg.LayerRooms, EndNode: r2.ID})

	u.UpdateBuildings(g, nil, nil, false)
	if math.Abs(building.Attrs.Position.X()-2) > 1e-9 {
		t.Errorf("building position = %v, want x=2", building.Attrs.Position)
	}
}

func TestUpdateAgentsRepositions(t *testing.T) {
	g := newTestGraph(t)
	cfg := DefaultConfig()
	u := NewUpdater(cfg)

	n1, err := g.AppendAgentNode(0, dsg.NodeAttributes{TimestampNanos: 100, Position: dsg.Vec3{0, 0, 0}})
	if err != nil {
		t.Fatalf("AppendAgentNode failed: %v", err)
	}
	n2, err := g.AppendAgentNode(0, dsg.NodeAttributes{TimestampNanos: 200, Position: dsg.Vec3{1, 0, 0}})
	if err != nil {
		t.Fatalf("AppendAgentNode failed: %v", err)
	}

	mesh := Values{
		{Prefix: 'a', Index: uint64(n1.ID)}: {Position: dsg.Vec3{0.5, 0.5, 0}},
	}
	u.UpdateAgents(g, nil, mesh, false)

	if n1.Attrs.Position != (dsg.Vec3{0.5, 0.5, 0}) {
		t.Errorf("solved trajectory node at %v, want (0.5,0.5,0)", n1.Attrs.Position)
	}
	if n2.Attrs.Position != (dsg.Vec3{1, 0, 0}) {
		t.Errorf("unsolved trajectory node moved to %v", n2.Attrs.Position)
	}
}

func TestApplyRunsAllLayersAndMarksUpdate(t *testing.T) {
	cfg := DefaultConfig()
	shared, err := dsg.NewSharedGraph(cfg.LayerKeys)
	if err != nil {
		t.Fatalf("NewSharedGraph failed: %v", err)
	}
	u := NewUpdater(cfg)

	var objID dsg.NodeID
	shared.Modify(func(g *dsg.Graph) {
		objID = g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{}).ID
	})
	if _, ok := shared.ConsumeUpdate(); !ok {
		t.Fatal("setup modify should mark the graph updated")
	}

	mesh := Values{
		keyForNode(t, cfg, dsg.LayerObjects, objID): {Position: dsg.Vec3{1, 1, 1}},
	}
	u.Apply(shared, nil, mesh, true)

	if updated, _ := shared.Updated(); !updated {
		t.Error("Apply must mark the graph updated")
	}
	shared.Read(func(g *dsg.Graph) {
		n, ok := g.GetNode(dsg.LayerObjects, objID)
		if !ok {
			t.Fatal("object vanished")
		}
		if n.Attrs.Position != (dsg.Vec3{1, 1, 1}) {
			t.Errorf("object position = %v, want (1,1,1)", n.Attrs.Position)
		}
	})
}
