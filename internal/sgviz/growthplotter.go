package sgviz

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
	"github.com/fieldrobotics/scenegraph/internal/timeutil"
)

// GrowthPlotter records graph size over time for visualization. It
// samples the shared graph on each call to Sample(), accumulating time
// series data that can be plotted after a run.
type GrowthPlotter struct {
	mu        sync.Mutex
	clock     timeutil.Clock
	enabled   bool
	outputDir string

	// samples holds per-layer time series keyed by layer name, plus a
	// "total" series and one per robot agent layer.
	samples map[string][]GrowthSample

	// startTime is the timestamp of the first sample, used for x-axis
	startTime time.Time
	sampleIdx int
}

// GrowthSample represents one snapshot of a series' size.
type GrowthSample struct {
	SampleIdx int
	Timestamp time.Time
	Nodes     int
	Edges     int
}

// NewGrowthPlotter creates a plotter. Call Start before sampling.
func NewGrowthPlotter() *GrowthPlotter {
	return NewGrowthPlotterWithClock(timeutil.RealClock{})
}

// NewGrowthPlotterWithClock creates a plotter with an injected clock.
func NewGrowthPlotterWithClock(clock timeutil.Clock) *GrowthPlotter {
	return &GrowthPlotter{
		clock:   clock,
		samples: make(map[string][]GrowthSample),
	}
}

// Start initializes the plotter for a new run.
// outputDir should be a timestamped directory (e.g., "plots/20260830_101500")
func (gp *GrowthPlotter) Start(outputDir string) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	gp.outputDir = outputDir
	gp.enabled = true
	gp.samples = make(map[string][]GrowthSample)
	gp.startTime = time.Time{}
	gp.sampleIdx = 0
	return nil
}

// Stop disables sampling without discarding accumulated samples.
func (gp *GrowthPlotter) Stop() {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.enabled = false
}

// Sample records the current size of every layer. Callers typically
// invoke this after consuming a freshness signal from the shared graph.
func (gp *GrowthPlotter) Sample(shared *dsg.SharedGraph) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if !gp.enabled {
		return
	}

	now := gp.clock.Now()
	if gp.startTime.IsZero() {
		gp.startTime = now
	}

	shared.Read(func(g *dsg.Graph) {
		totalNodes := 0
		totalEdges := g.NumInterLayerEdges()
		for _, id := range g.LayerOrder() {
			layer := g.GetLayer(id)
			gp.samples[id.String()] = append(gp.samples[id.String()], GrowthSample{
				SampleIdx: gp.sampleIdx,
				Timestamp: now,
				Nodes:     layer.NumNodes(),
				Edges:     layer.NumEdges(),
			})
			totalNodes += layer.NumNodes()
			totalEdges += layer.NumEdges()
		}
		for _, robot := range g.AgentRobots() {
			agents, _ := g.TryAgentLayer(robot)
			key := fmt.Sprintf("agents_%d", robot)
			gp.samples[key] = append(gp.samples[key], GrowthSample{
				SampleIdx: gp.sampleIdx,
				Timestamp: now,
				Nodes:     agents.NumNodes(),
			})
			totalNodes += agents.NumNodes()
		}
		gp.samples["total"] = append(gp.samples["total"], GrowthSample{
			SampleIdx: gp.sampleIdx,
			Timestamp: now,
			Nodes:     totalNodes,
			Edges:     totalEdges,
		})
	})

	gp.sampleIdx++
}

// NumSamples returns how many samples have been recorded.
func (gp *GrowthPlotter) NumSamples() int {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.sampleIdx
}

// GetOutputDir returns the current output directory for plots.
func (gp *GrowthPlotter) GetOutputDir() string {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.outputDir
}

// GeneratePlots creates PNG files showing node and edge counts over
// time, one line per series. Returns the number of plots generated.
func (gp *GrowthPlotter) GeneratePlots() (int, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(gp.samples) == 0 {
		return 0, nil
	}

	pNodes := plot.New()
	pNodes.Title.Text = "Scene Graph Growth - Nodes"
	pNodes.X.Label.Text = "Sample"
	pNodes.Y.Label.Text = "Node Count"

	pEdges := plot.New()
	pEdges.Title.Text = "Scene Graph Growth - Edges"
	pEdges.X.Label.Text = "Sample"
	pEdges.Y.Label.Text = "Edge Count"

	var names []string
	for name := range gp.samples {
		names = append(names, name)
	}
	sort.Strings(names)

	colors := generateColors(len(names))

	for i, name := range names {
		samples := gp.samples[name]
		if len(samples) == 0 {
			continue
		}

		nodePts := make(plotter.XYs, 0, len(samples))
		edgePts := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			nodePts = append(nodePts, plotter.XY{X: float64(s.SampleIdx), Y: float64(s.Nodes)})
			edgePts = append(edgePts, plotter.XY{X: float64(s.SampleIdx), Y: float64(s.Edges)})
		}

		nodeLine, err := plotter.NewLine(nodePts)
		if err != nil {
			return 0, err
		}
		nodeLine.Color = colors[i]
		nodeLine.Width = vg.Points(1)
		pNodes.Add(nodeLine)
		pNodes.Legend.Add(name, nodeLine)

		edgeLine, err := plotter.NewLine(edgePts)
		if err != nil {
			return 0, err
		}
		edgeLine.Color = colors[i]
		edgeLine.Width = vg.Points(1)
		pEdges.Add(edgeLine)
		pEdges.Legend.Add(name, edgeLine)
	}

	pNodes.Legend.Top = true
	pNodes.Legend.Left = false
	pNodes.Legend.XOffs = -10
	pNodes.Legend.YOffs = -10

	pEdges.Legend.Top = true
	pEdges.Legend.Left = false
	pEdges.Legend.XOffs = -10
	pEdges.Legend.YOffs = -10

	nodesFile := filepath.Join(gp.outputDir, "growth_nodes.png")
	if err := pNodes.Save(14*vg.Inch, 6*vg.Inch, nodesFile); err != nil {
		return 0, fmt.Errorf("save nodes plot: %w", err)
	}

	edgesFile := filepath.Join(gp.outputDir, "growth_edges.png")
	if err := pEdges.Save(14*vg.Inch, 6*vg.Inch, edgesFile); err != nil {
		return 1, fmt.Errorf("save edges plot: %w", err)
	}

	return 2, nil
}

// generateColors creates a palette of distinct colors for series lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
