package sgviz

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
	"github.com/fieldrobotics/scenegraph/internal/timeutil"
	"github.com/fieldrobotics/scenegraph/internal/update"
)

func newSharedForPlots(t *testing.T) *dsg.SharedGraph {
	t.Helper()
	shared, err := dsg.NewSharedGraph(update.DefaultConfig().LayerKeys)
	if err != nil {
		t.Fatalf("NewSharedGraph failed: %v", err)
	}
	return shared
}

func TestGrowthPlotterSampling(t *testing.T) {
	shared := newSharedForPlots(t)
	gp := NewGrowthPlotter()

	// Sampling before Start is a no-op.
	gp.Sample(shared)
	if gp.NumSamples() != 0 {
		t.Fatalf("NumSamples = %d before Start, want 0", gp.NumSamples())
	}

	if err := gp.Start(filepath.Join(t.TempDir(), "run")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	gp.Sample(shared)
	shared.Modify(func(g *dsg.Graph) {
		g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{})
		g.NewNode(dsg.LayerObjects, dsg.NodeAttributes{})
	})
	gp.Sample(shared)

	if gp.NumSamples() != 2 {
		t.Errorf("NumSamples = %d, want 2", gp.NumSamples())
	}

	gp.Stop()
	gp.Sample(shared)
	if gp.NumSamples() != 2 {
		t.Errorf("NumSamples = %d after Stop, want still 2", gp.NumSamples())
	}
}

func TestGrowthPlotterGeneratePlots(t *testing.T) {
	shared := newSharedForPlots(t)
	gp := NewGrowthPlotter()

	dir := filepath.Join(t.TempDir(), "run")
	if err := gp.Start(dir); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		shared.Modify(func(g *dsg.Graph) {
			g.NewNode(dsg.LayerPlaces, dsg.NodeAttributes{})
		})
		gp.Sample(shared)
	}

	count, err := gp.GeneratePlots()
	if err != nil {
		t.Fatalf("GeneratePlots failed: %v", err)
	}
	if count != 2 {
		t.Errorf("generated %d plots, want 2", count)
	}
	for _, name := range []string{"growth_nodes.png", "growth_edges.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("missing plot %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("plot %s is empty", name)
		}
	}
}

func TestGrowthPlotterGenerateWithoutStart(t *testing.T) {
	gp := NewGrowthPlotter()
	if _, err := gp.GeneratePlots(); err == nil {
		t.Error("expected error without an output directory")
	}
}

func TestGrowthPlotterSampleTimestamps(t *testing.T) {
	shared := newSharedForPlots(t)
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	gp := NewGrowthPlotterWithClock(clock)
	if err := gp.Start(t.TempDir()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	gp.Sample(shared)
	clock.Advance(5 * time.Second)
	gp.Sample(shared)

	gp.mu.Lock()
	total := gp.samples["total"]
	gp.mu.Unlock()

	if len(total) != 2 {
		t.Fatalf("total series has %d samples, want 2", len(total))
	}
	if !total[0].Timestamp.Equal(start) {
		t.Errorf("first timestamp = %v, want %v", total[0].Timestamp, start)
	}
	if got := total[1].Timestamp.Sub(total[0].Timestamp); got != 5*time.Second {
		t.Errorf("sample spacing = %v, want 5s", got)
	}
}

func TestGrowthPlotterTracksAgents(t *testing.T) {
	shared := newSharedForPlots(t)
	gp := NewGrowthPlotter()
	if err := gp.Start(t.TempDir()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	shared.Modify(func(g *dsg.Graph) {
		if _, err := g.AppendAgentNode(3, dsg.NodeAttributes{TimestampNanos: 1}); err != nil {
			t.Fatalf("AppendAgentNode failed: %v", err)
		}
	})
	gp.Sample(shared)

	gp.mu.Lock()
	agentSeries, ok := gp.samples["agents_3"]
	total := gp.samples["total"]
	gp.mu.Unlock()

	if !ok || len(agentSeries) != 1 || agentSeries[0].Nodes != 1 {
		t.Errorf("agents_3 series = %+v", agentSeries)
	}
	if len(total) != 1 || total[0].Nodes != 1 {
		t.Errorf("total series = %+v", total)
	}
}
