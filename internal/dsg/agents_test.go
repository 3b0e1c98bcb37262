package dsg

import (
	"testing"
)

func TestAppendAgentNode(t *testing.T) {
	g := newTestGraph(t)

	first, err := g.AppendAgentNode(0, NodeAttributes{TimestampNanos: 100, Position: Vec3{1, 0, 0}})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	second, err := g.AppendAgentNode(0, NodeAttributes{TimestampNanos: 200, Position: Vec3{2, 0, 0}})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if second.ID <= first.ID {
		t.Errorf("agent ids should come from the global allocator: %d then %d", first.ID, second.ID)
	}

	agents, ok := g.TryAgentLayer(0)
	if !ok {
		t.Fatal("agent layer for robot 0 should exist")
	}
	if agents.NumNodes() != 2 {
		t.Errorf("NumNodes() = %d, want 2", agents.NumNodes())
	}
	latest, ok := agents.Latest()
	if !ok || latest.ID != second.ID {
		t.Errorf("Latest() = %v, %v, want node %d", latest, ok, second.ID)
	}
}

func TestAppendAgentNodeRejectsStaleTimestamp(t *testing.T) {
	g := newTestGraph(t)

	if _, err := g.AppendAgentNode(1, NodeAttributes{TimestampNanos: 500}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if _, err := g.AppendAgentNode(1, NodeAttributes{TimestampNanos: 400}); err == nil {
		t.Error("expected error for non-monotonic timestamp")
	}
	// Equal timestamps are fine; only regressions are rejected.
	if _, err := g.AppendAgentNode(1, NodeAttributes{TimestampNanos: 500}); err != nil {
		t.Errorf("equal timestamp should append: %v", err)
	}
}

func TestAgentRobotsSorted(t *testing.T) {
	g := newTestGraph(t)
	for _, robot := range []RobotID{3, 1, 2} {
		if _, err := g.AppendAgentNode(robot, NodeAttributes{TimestampNanos: 1}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	robots := g.AgentRobots()
	if len(robots) != 3 || robots[0] != 1 || robots[1] != 2 || robots[2] != 3 {
		t.Errorf("AgentRobots() = %v, want [1 2 3]", robots)
	}
}

func TestAgentsSeparateFromRankedLayers(t *testing.T) {
	g := newTestGraph(t)
	n, err := g.AppendAgentNode(0, NodeAttributes{TimestampNanos: 1})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if n.Layer != LayerAgents {
		t.Errorf("agent node layer = %v, want agents", n.Layer)
	}
	// Agent nodes live outside the ranked layers and their node count.
	if g.NumNodes() != 0 {
		t.Errorf("ranked NumNodes() = %d, want 0", g.NumNodes())
	}
}
