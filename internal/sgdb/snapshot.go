package sgdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
)

// Snapshot describes one persisted copy of a graph.
type Snapshot struct {
	SnapshotID  string `json:"snapshot_id"`
	Label       string `json:"label,omitempty"`
	CreatedAtNs int64  `json:"created_at_ns"`
	NumNodes    int64  `json:"num_nodes"`
	NumEdges    int64  `json:"num_edges"`
}

// nodeGeometry is the JSON blob for the optional cluster and box
// attributes. Explicit columns cover the scalar attributes.
type nodeGeometry struct {
	Cluster *dsg.PointCluster `json:"cluster,omitempty"`
	Box     *dsg.BoundingBox  `json:"box,omitempty"`
}

// SnapshotStore provides persistence for scene graph snapshots.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// SaveSnapshot writes every node, edge and agent trajectory entry of g
// under a fresh snapshot id and returns the snapshot record.
func (s *SnapshotStore) SaveSnapshot(g *dsg.Graph, label string) (*Snapshot, error) {
	snap := &Snapshot{
		SnapshotID:  uuid.New().String(),
		Label:       label,
		CreatedAtNs: time.Now().UnixNano(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	// The header row goes in first so the node and edge rows have a
	// parent to reference. Counts are filled in once writing is done.
	_, err = tx.Exec(`
		INSERT INTO sg_snapshots (snapshot_id, label, created_at_ns, num_nodes, num_edges)
		VALUES (?, ?, ?, 0, 0)
	`, snap.SnapshotID, nullString(snap.Label), snap.CreatedAtNs)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	insertNode, err := tx.Prepare(`
		INSERT INTO sg_nodes (
			snapshot_id, node_id, layer, robot_id, timestamp_ns,
			pos_x, pos_y, pos_z, rot_w, rot_x, rot_y, rot_z,
			color_r, color_g, color_b, semantic_label, name, distance,
			geometry_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare node insert: %w", err)
	}
	defer insertNode.Close()

	writeNode := func(n *dsg.SceneNode, robot *dsg.RobotID) error {
		var geomJSON sql.NullString
		if n.Attrs.Cluster != nil || n.Attrs.Box != nil {
			raw, err := json.Marshal(nodeGeometry{Cluster: n.Attrs.Cluster, Box: n.Attrs.Box})
			if err != nil {
				return fmt.Errorf("marshal geometry for node %d: %w", n.ID, err)
			}
			geomJSON = sql.NullString{String: string(raw), Valid: true}
		}
		var robotID sql.NullInt64
		if robot != nil {
			robotID = sql.NullInt64{Int64: int64(*robot), Valid: true}
		}
		_, err := insertNode.Exec(
			snap.SnapshotID, int64(n.ID), int(n.Layer), robotID, n.Attrs.TimestampNanos,
			n.Attrs.Position[0], n.Attrs.Position[1], n.Attrs.Position[2],
			n.Attrs.Orientation.W, n.Attrs.Orientation.X, n.Attrs.Orientation.Y, n.Attrs.Orientation.Z,
			n.Attrs.Color[0], n.Attrs.Color[1], n.Attrs.Color[2],
			n.Attrs.SemanticLabel, n.Attrs.Name, n.Attrs.Distance,
			geomJSON,
		)
		if err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
		snap.NumNodes++
		return nil
	}

	insertEdge, err := tx.Prepare(`
		INSERT INTO sg_edges (
			snapshot_id, edge_id, start_layer, start_node, end_layer, end_node
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare edge insert: %w", err)
	}
	defer insertEdge.Close()

	writeEdge := func(e *dsg.SceneEdge) error {
		_, err := insertEdge.Exec(
			snap.SnapshotID, int64(e.ID),
			int(e.StartLayer), int64(e.StartNode), int(e.EndLayer), int64(e.EndNode),
		)
		if err != nil {
			return fmt.Errorf("insert edge %d: %w", e.ID, err)
		}
		snap.NumEdges++
		return nil
	}

	var werr error
	for _, layerID := range g.LayerOrder() {
		layer := g.GetLayer(layerID)
		layer.ForEachNode(func(n *dsg.SceneNode) {
			if werr == nil {
				werr = writeNode(n, nil)
			}
		})
		layer.ForEachEdge(func(e *dsg.SceneEdge) {
			if werr == nil {
				werr = writeEdge(e)
			}
		})
		if werr != nil {
			return nil, werr
		}
	}
	for _, robot := range g.AgentRobots() {
		robot := robot
		agents, _ := g.TryAgentLayer(robot)
		agents.ForEachNode(func(n *dsg.SceneNode) {
			if werr == nil {
				werr = writeNode(n, &robot)
			}
		})
		if werr != nil {
			return nil, werr
		}
	}
	g.ForEachInterLayerEdge(func(e *dsg.SceneEdge) {
		if werr == nil {
			werr = writeEdge(e)
		}
	})
	if werr != nil {
		return nil, werr
	}

	_, err = tx.Exec(`
		UPDATE sg_snapshots SET num_nodes = ?, num_edges = ? WHERE snapshot_id = ?
	`, snap.NumNodes, snap.NumEdges, snap.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("update snapshot counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return snap, nil
}

type storedNode struct {
	id    dsg.NodeID
	layer dsg.LayerID
	robot *dsg.RobotID
	attrs dsg.NodeAttributes
}

// LoadSnapshot rebuilds a graph from a stored snapshot. Nodes are
// replayed in ascending id order so the rebuilt graph allocates the
// same ids the original did.
func (s *SnapshotStore) LoadSnapshot(snapshotID string) (*dsg.Graph, error) {
	rows, err := s.db.Query(`
		SELECT node_id, layer, robot_id, timestamp_ns,
		       pos_x, pos_y, pos_z, rot_w, rot_x, rot_y, rot_z,
		       color_r, color_g, color_b, semantic_label, name, distance,
		       geometry_json
		FROM sg_nodes WHERE snapshot_id = ? ORDER BY node_id ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []storedNode
	for rows.Next() {
		var n storedNode
		var layer int
		var robotID sql.NullInt64
		var geomJSON sql.NullString
		err := rows.Scan(
			&n.id, &layer, &robotID, &n.attrs.TimestampNanos,
			&n.attrs.Position[0], &n.attrs.Position[1], &n.attrs.Position[2],
			&n.attrs.Orientation.W, &n.attrs.Orientation.X, &n.attrs.Orientation.Y, &n.attrs.Orientation.Z,
			&n.attrs.Color[0], &n.attrs.Color[1], &n.attrs.Color[2],
			&n.attrs.SemanticLabel, &n.attrs.Name, &n.attrs.Distance,
			&geomJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.layer = dsg.LayerID(layer)
		if robotID.Valid {
			r := dsg.RobotID(robotID.Int64)
			n.robot = &r
		}
		if geomJSON.Valid && geomJSON.String != "" {
			var geom nodeGeometry
			if err := json.Unmarshal([]byte(geomJSON.String), &geom); err != nil {
				return nil, fmt.Errorf("unmarshal geometry for node %d: %w", n.id, err)
			}
			n.attrs.Cluster = geom.Cluster
			n.attrs.Box = geom.Box
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("snapshot not found or empty: %s", snapshotID)
	}

	g, err := dsg.NewGraph(dsg.DefaultLayerOrder())
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.robot != nil {
			restored, err := g.AppendAgentNode(*n.robot, n.attrs)
			if err != nil {
				return nil, fmt.Errorf("restore agent node %d: %w", n.id, err)
			}
			if restored.ID != n.id {
				return nil, fmt.Errorf("agent node id drift: stored %d, rebuilt %d", n.id, restored.ID)
			}
			continue
		}
		if _, err := g.InsertNode(n.layer, n.id, n.attrs); err != nil {
			return nil, fmt.Errorf("restore node %d: %w", n.id, err)
		}
	}

	edges, err := s.loadEdges(snapshotID)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		e := e
		g.AddEdge(&e)
	}

	return g, nil
}

// loadEdges returns the snapshot's edges ordered for replay: sibling
// edges grouped by layer, parent edges last, each in ascending id
// order so local edge counters advance the way they originally did.
func (s *SnapshotStore) loadEdges(snapshotID string) ([]dsg.SceneEdge, error) {
	rows, err := s.db.Query(`
		SELECT edge_id, start_layer, start_node, end_layer, end_node
		FROM sg_edges WHERE snapshot_id = ?
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var edges []dsg.SceneEdge
	for rows.Next() {
		var e dsg.SceneEdge
		var start, end int
		if err := rows.Scan(&e.ID, &start, &e.StartNode, &end, &e.EndNode); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.StartLayer = dsg.LayerID(start)
		e.EndLayer = dsg.LayerID(end)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}

	sort.Slice(edges, func(i, j int) bool {
		li, lj := edges[i], edges[j]
		iIntra, jIntra := li.StartLayer == li.EndLayer, lj.StartLayer == lj.EndLayer
		if iIntra != jIntra {
			return iIntra
		}
		if iIntra && li.StartLayer != lj.StartLayer {
			return li.StartLayer < lj.StartLayer
		}
		return li.ID < lj.ID
	})
	return edges, nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *SnapshotStore) ListSnapshots() ([]Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT snapshot_id, label, created_at_ns, num_nodes, num_edges
		FROM sg_snapshots ORDER BY created_at_ns DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var label sql.NullString
		if err := rows.Scan(&snap.SnapshotID, &label, &snap.CreatedAtNs, &snap.NumNodes, &snap.NumEdges); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if label.Valid {
			snap.Label = label.String
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// DeleteSnapshot removes a snapshot and its rows.
func (s *SnapshotStore) DeleteSnapshot(snapshotID string) error {
	res, err := s.db.Exec(`DELETE FROM sg_snapshots WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot not found: %s", snapshotID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
