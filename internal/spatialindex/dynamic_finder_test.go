package spatialindex

import (
	"testing"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
)

func collectDynamic(f *DynamicNearestNodeFinder, pos dsg.Vec3, num int, skipFirst bool) []dsg.NodeID {
	var out []dsg.NodeID
	f.Find(pos, num, skipFirst, func(id dsg.NodeID, distance float64) {
		out = append(out, id)
	})
	return out
}

func TestDynamicFinderAddRemove(t *testing.T) {
	g, ids := newPlacesGraph(t, []dsg.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{5, 0, 0},
	})
	f := NewDynamicNearestNodeFinder(g, dsg.LayerPlaces)

	if got := collectDynamic(f, dsg.Vec3{}, 3, false); len(got) != 0 {
		t.Fatalf("empty finder returned %v", got)
	}

	f.AddNodes(ids)
	if f.Len() != 3 {
		t.Fatalf("Len = %d, want 3", f.Len())
	}
	got := collectDynamic(f, dsg.Vec3{0, 0, 0}, 2, false)
	if len(got) != 2 || got[0] != ids[0] || got[1] != ids[1] {
		t.Errorf("Find = %v, want [%d %d]", got, ids[0], ids[1])
	}

	f.RemoveNode(ids[0])
	got = collectDynamic(f, dsg.Vec3{0, 0, 0}, 1, false)
	if len(got) != 1 || got[0] != ids[1] {
		t.Errorf("after remove, Find = %v, want [%d]", got, ids[1])
	}
}

func TestDynamicFinderDropsStaleMembers(t *testing.T) {
	g, ids := newPlacesGraph(t, []dsg.Vec3{
		{0, 0, 0},
		{1, 0, 0},
	})
	f := NewDynamicNearestNodeFinder(g, dsg.LayerPlaces)
	f.AddNodes(ids)

	g.RemoveNode(dsg.LayerPlaces, ids[0])

	got := collectDynamic(f, dsg.Vec3{0, 0, 0}, 2, false)
	if len(got) != 1 || got[0] != ids[1] {
		t.Errorf("Find = %v, want only surviving node %d", got, ids[1])
	}
	if f.Len() != 1 {
		t.Errorf("Len = %d after stale drop, want 1", f.Len())
	}
}

func TestDynamicFinderMarkDirty(t *testing.T) {
	g, ids := newPlacesGraph(t, []dsg.Vec3{
		{0, 0, 0},
		{10, 0, 0},
	})
	f := NewDynamicNearestNodeFinder(g, dsg.LayerPlaces)
	f.AddNodes(ids)

	got := collectDynamic(f, dsg.Vec3{1, 0, 0}, 1, false)
	if len(got) != 1 || got[0] != ids[0] {
		t.Fatalf("Find = %v, want [%d]", got, ids[0])
	}

	// Move the second node on top of the query and invalidate.
	n, ok := g.GetLayer(dsg.LayerPlaces).Node(ids[1])
	if !ok {
		t.Fatal("node vanished")
	}
	n.Attrs.Position = dsg.Vec3{1, 0, 0}
	f.MarkDirty()

	got = collectDynamic(f, dsg.Vec3{1, 0, 0}, 1, false)
	if len(got) != 1 || got[0] != ids[1] {
		t.Errorf("after reposition, Find = %v, want [%d]", got, ids[1])
	}
}

func TestDynamicFinderSkipFirst(t *testing.T) {
	g, ids := newPlacesGraph(t, []dsg.Vec3{
		{0, 0, 0},
		{2, 0, 0},
	})
	f := NewDynamicNearestNodeFinder(g, dsg.LayerPlaces)
	f.AddNodes(ids)

	got := collectDynamic(f, dsg.Vec3{0, 0, 0}, 1, true)
	if len(got) != 1 || got[0] != ids[1] {
		t.Errorf("Find(skipFirst) = %v, want [%d]", got, ids[1])
	}
}
