package sgviz

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
	"github.com/fieldrobotics/scenegraph/internal/sgdb"
	"github.com/fieldrobotics/scenegraph/internal/update"
	"github.com/fieldrobotics/scenegraph/internal/version"
)

// WebServer handles the HTTP interface for monitoring a shared scene
// graph. It provides health checks, graph statistics and the debug
// chart endpoints.
type WebServer struct {
	address   string
	shared    *dsg.SharedGraph
	snapshots *sgdb.SnapshotStore
	plotter   *GrowthPlotter
	updater   *update.Updater
	mux       *http.ServeMux
	server    *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address   string
	Shared    *dsg.SharedGraph
	Snapshots *sgdb.SnapshotStore
	Plotter   *GrowthPlotter
	Updater   *update.Updater
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		shared:    config.Shared,
		snapshots: config.Snapshots,
		plotter:   config.Plotter,
		updater:   config.Updater,
	}

	ws.mux = ws.setupRoutes()
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.mux,
	}

	return ws
}

// Mux exposes the underlying mux so callers can mount additional
// handlers (e.g. the database debug surface) before Start.
func (ws *WebServer) Mux() *http.ServeMux { return ws.mux }

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/graph/stats", ws.handleGraphStats)
	mux.HandleFunc("/api/graph/snapshot", ws.handleSnapshot)
	mux.HandleFunc("/api/graph/snapshots", ws.handleSnapshots)
	mux.HandleFunc("/api/graph/nodes", ws.handleAddNode)
	mux.HandleFunc("/api/graph/edges", ws.handleAddEdge)
	mux.HandleFunc("/api/graph/update", ws.handleApplyUpdate)
	mux.HandleFunc("/debug/graph/layers", ws.handleLayerScatter)
	mux.HandleFunc("/debug/graph/structure", ws.handleStructureChart)
	mux.HandleFunc("/debug/graph/growth", ws.handleGrowthPlots)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// layerStats is the per-layer block of the stats response.
type layerStats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// handleGraphStats returns node and edge counts per layer plus the
// freshness flag.
func (ws *WebServer) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	type statsResponse struct {
		Layers          map[string]layerStats `json:"layers"`
		Agents          map[string]int        `json:"agents"`
		InterLayerEdges int                   `json:"inter_layer_edges"`
		TotalNodes      int                   `json:"total_nodes"`
		Updated         bool                  `json:"updated"`
		LastUpdate      string                `json:"last_update,omitempty"`
	}

	resp := statsResponse{
		Layers: make(map[string]layerStats),
		Agents: make(map[string]int),
	}
	ws.shared.Read(func(g *dsg.Graph) {
		for _, id := range g.LayerOrder() {
			layer := g.GetLayer(id)
			resp.Layers[id.String()] = layerStats{Nodes: layer.NumNodes(), Edges: layer.NumEdges()}
		}
		// NumNodes covers the ranked layers only, so the trajectory
		// nodes are added on top.
		resp.TotalNodes = g.NumNodes()
		for _, robot := range g.AgentRobots() {
			agents, _ := g.TryAgentLayer(robot)
			resp.Agents[fmt.Sprintf("%d", robot)] = agents.NumNodes()
			resp.TotalNodes += agents.NumNodes()
		}
		resp.InterLayerEdges = g.NumInterLayerEdges()
	})
	var lastUpdate time.Time
	resp.Updated, lastUpdate = ws.shared.Updated()
	if !lastUpdate.IsZero() {
		resp.LastUpdate = lastUpdate.Format(time.RFC3339Nano)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleSnapshot saves a snapshot of the current graph.
// Query params:
//
//	label (optional) free-form label stored with the snapshot
func (ws *WebServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed; use POST")
		return
	}
	if ws.snapshots == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	label := r.URL.Query().Get("label")

	var snap *sgdb.Snapshot
	var err error
	ws.shared.Read(func(g *dsg.Graph) {
		snap, err = ws.snapshots.SaveSnapshot(g, label)
	})
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("snapshot failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// handleSnapshots returns the stored snapshots, newest first.
func (ws *WebServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.snapshots == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	snaps, err := ws.snapshots.ListSnapshots()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list snapshots failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snaps)
}

// handleGrowthPlots writes the accumulated growth plots to disk.
func (ws *WebServer) handleGrowthPlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed; use POST")
		return
	}
	if ws.plotter == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "growth plotter not configured")
		return
	}

	count, err := ws.plotter.GeneratePlots()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("plot generation failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"plots": count})
}
