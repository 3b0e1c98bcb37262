package sgviz

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// layerZOffset separates the ranked layers vertically in the scatter
// so the graph reads as a stack even when node heights overlap.
const layerZOffset = 4.0

// handleLayerScatter renders a quick XY scatter (HTML) of every ranked
// layer using go-echarts, with the layer rank encoded in the colour
// dimension. This is a debugging-only endpoint (no auth) to visually
// inspect the graph without a frontend.
// Query params:
//   - max_points (optional; default 8000) to reduce payload size
func (ws *WebServer) handleLayerScatter(w http.ResponseWriter, r *http.Request) {
	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}

	type layerSeries struct {
		name string
		data []opts.ScatterData
	}
	var series []layerSeries
	total := 0
	maxAbs := 0.0
	ws.shared.Read(func(g *dsg.Graph) {
		for rank, id := range g.LayerOrder() {
			layer := g.GetLayer(id)
			s := layerSeries{name: id.String()}
			layer.ForEachNode(func(n *dsg.SceneNode) {
				if total >= maxPoints {
					return
				}
				x, y := n.Attrs.Position[0], n.Attrs.Position[1]
				if math.Abs(x) > maxAbs {
					maxAbs = math.Abs(x)
				}
				if math.Abs(y) > maxAbs {
					maxAbs = math.Abs(y)
				}
				s.data = append(s.data, opts.ScatterData{
					Value: []interface{}{x, y, float64(rank) * layerZOffset},
				})
				total++
			})
			series = append(series, s)
		}
	})

	if total == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "graph has no nodes")
		return
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scene Graph Layers", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Scene Graph Layers", Subtitle: fmt.Sprintf("points=%d", total)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	for _, s := range series {
		if len(s.data) == 0 {
			continue
		}
		scatter.AddSeries(s.name, s.data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleStructureChart renders the graph topology (HTML): every node
// becomes a chart node named by its key, every sibling and parent edge
// a chart link.
// Query params:
//   - max_nodes (optional; default 2000)
func (ws *WebServer) handleStructureChart(w http.ResponseWriter, r *http.Request) {
	maxNodes := 2000
	if mn := r.URL.Query().Get("max_nodes"); mn != "" {
		if v, err := strconv.Atoi(mn); err == nil && v > 10 && v <= 20000 {
			maxNodes = v
		}
	}

	var nodes []opts.GraphNode
	var links []opts.GraphLink
	included := make(map[string]bool)
	ws.shared.Read(func(g *dsg.Graph) {
		nodeName := func(layer dsg.LayerID, id dsg.NodeID) string {
			prefix, ok := ws.shared.PrefixForLayer(layer)
			if !ok {
				return fmt.Sprintf("%v(%d)", layer, id)
			}
			return fmt.Sprintf("%c%d", prefix, id)
		}

		for rank, layerID := range g.LayerOrder() {
			layer := g.GetLayer(layerID)
			layer.ForEachNode(func(n *dsg.SceneNode) {
				if len(nodes) >= maxNodes {
					return
				}
				name := nodeName(layerID, n.ID)
				nodes = append(nodes, opts.GraphNode{
					Name:     name,
					X:        float32(n.Attrs.Position[0]),
					Y:        float32(n.Attrs.Position[1] + float64(rank)*layerZOffset),
					Category: rank,
				})
				included[name] = true
			})
			layer.ForEachEdge(func(e *dsg.SceneEdge) {
				src := nodeName(layerID, e.StartNode)
				dst := nodeName(layerID, e.EndNode)
				if included[src] && included[dst] {
					links = append(links, opts.GraphLink{Source: src, Target: dst})
				}
			})
		}
		g.ForEachInterLayerEdge(func(e *dsg.SceneEdge) {
			src := nodeName(e.StartLayer, e.StartNode)
			dst := nodeName(e.EndLayer, e.EndNode)
			if included[src] && included[dst] {
				links = append(links, opts.GraphLink{Source: src, Target: dst})
			}
		})
	})

	if len(nodes) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "graph has no nodes")
		return
	}

	var categories []*opts.GraphCategory
	for _, id := range dsg.DefaultLayerOrder() {
		categories = append(categories, &opts.GraphCategory{Name: id.String()})
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scene Graph Structure", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Scene Graph Structure", Subtitle: fmt.Sprintf("nodes=%d links=%d", len(nodes), len(links))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	graph.AddSeries("graph", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:     "none",
			Categories: categories,
			Roam:       opts.Bool(true),
		}),
	)

	var buf bytes.Buffer
	if err := graph.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
