package sgviz

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
	"github.com/fieldrobotics/scenegraph/internal/update"
)

// poseJSON is the wire form of a solved pose.
type poseJSON struct {
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation,omitempty"` // w, x, y, z
}

func (p poseJSON) toPose() update.Pose {
	rot := dsg.Quat{W: p.Rotation[0], X: p.Rotation[1], Y: p.Rotation[2], Z: p.Rotation[3]}
	if rot == (dsg.Quat{}) {
		rot = dsg.IdentityQuat()
	}
	return update.Pose{Position: dsg.Vec3(p.Position), Rotation: rot}
}

// handleAddNode inserts a node into the layer named by its key prefix.
// Body:
//
//	{"layer_prefix": "o", "position": [x, y, z], "name": "chair_3",
//	 "semantic_label": 12, "timestamp_ns": 0}
func (ws *WebServer) handleAddNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed; use POST")
		return
	}

	var req struct {
		LayerPrefix   string     `json:"layer_prefix"`
		Position      [3]float64 `json:"position"`
		Name          string     `json:"name,omitempty"`
		SemanticLabel uint32     `json:"semantic_label,omitempty"`
		TimestampNs   int64      `json:"timestamp_ns,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.LayerPrefix) != 1 {
		ws.writeJSONError(w, http.StatusBadRequest, "layer_prefix must be a single character")
		return
	}
	layer, ok := ws.shared.LayerForPrefix(req.LayerPrefix[0])
	if !ok {
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown layer prefix %q", req.LayerPrefix))
		return
	}

	var node *dsg.SceneNode
	ws.shared.Modify(func(g *dsg.Graph) {
		node = g.NewNode(layer, dsg.NodeAttributes{
			TimestampNanos: req.TimestampNs,
			Position:       dsg.Vec3(req.Position),
			Orientation:    dsg.IdentityQuat(),
			Name:           req.Name,
			SemanticLabel:  req.SemanticLabel,
		})
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"node_id": node.ID,
		"layer":   layer.String(),
	})
}

// handleAddEdge connects two existing nodes, named by their keys.
// Body:
//
//	{"start": "r1", "end": "p4"}
func (ws *WebServer) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed; use POST")
		return
	}

	var req struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	resolve := func(s string) (dsg.LayerID, dsg.NodeID, error) {
		key, err := update.ParseKey(s)
		if err != nil {
			return dsg.LayerInvalid, 0, err
		}
		layer, ok := ws.shared.LayerForPrefix(key.Prefix)
		if !ok {
			return dsg.LayerInvalid, 0, fmt.Errorf("unknown layer prefix %q", key.Prefix)
		}
		return layer, dsg.NodeID(key.Index), nil
	}

	startLayer, startNode, err := resolve(req.Start)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	endLayer, endNode, err := resolve(req.End)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var addErr, rankErr error
	ws.shared.Modify(func(g *dsg.Graph) {
		if !g.CanConnect(startLayer, endLayer) {
			rankErr = fmt.Errorf("layers %s and %s are not adjacent ranks", startLayer, endLayer)
			return
		}
		if !g.HasNode(startLayer, startNode) {
			addErr = fmt.Errorf("node %s does not exist", req.Start)
			return
		}
		if !g.HasNode(endLayer, endNode) {
			addErr = fmt.Errorf("node %s does not exist", req.End)
			return
		}
		g.AddEdge(&dsg.SceneEdge{
			StartLayer: startLayer,
			StartNode:  startNode,
			EndLayer:   endLayer,
			EndNode:    endNode,
		})
	})
	if rankErr != nil {
		ws.writeJSONError(w, http.StatusBadRequest, rankErr.Error())
		return
	}
	if addErr != nil {
		ws.writeJSONError(w, http.StatusNotFound, addErr.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleApplyUpdate runs one full update pass with the posted solved
// values.
// Body:
//
//	{"places_values": {"p1": {"position": [0, 0, 0]}},
//	 "mesh_values": {"o1": {"position": [1, 2, 0]}},
//	 "allow_merging": true}
func (ws *WebServer) handleApplyUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed; use POST")
		return
	}
	if ws.updater == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "updater not configured")
		return
	}

	var req struct {
		PlacesValues map[string]poseJSON `json:"places_values,omitempty"`
		MeshValues   map[string]poseJSON `json:"mesh_values,omitempty"`
		AllowMerging bool                `json:"allow_merging"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	parseValues := func(in map[string]poseJSON) (update.Values, error) {
		out := make(update.Values, len(in))
		for s, p := range in {
			key, err := update.ParseKey(s)
			if err != nil {
				return nil, err
			}
			out[key] = p.toPose()
		}
		return out, nil
	}

	placesValues, err := parseValues(req.PlacesValues)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	meshValues, err := parseValues(req.MeshValues)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws.updater.Apply(ws.shared, placesValues, meshValues, req.AllowMerging)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
