package dsg

import (
	"fmt"
	"math"
)

// LayerID identifies a layer in the scene graph hierarchy. Ranked
// layers form a fixed total order (objects < places < rooms <
// buildings). Layer 1 is reserved for the volumetric mesh, which lives
// outside this store.
type LayerID int

const (
	LayerInvalid   LayerID = 0
	LayerObjects   LayerID = 2
	LayerPlaces    LayerID = 3
	LayerRooms     LayerID = 4
	LayerBuildings LayerID = 5

	// LayerAgents tags nodes of the dynamic per-robot layers. It is
	// not a rank: agent layers are keyed by robot identity and never
	// appear in the ranked layer order.
	LayerAgents LayerID = 6
)

// DefaultLayerOrder is the ranked layer configuration used by the
// standard pipeline, ascending rank.
func DefaultLayerOrder() []LayerID {
	return []LayerID{LayerObjects, LayerPlaces, LayerRooms, LayerBuildings}
}

func (l LayerID) String() string {
	switch l {
	case LayerObjects:
		return "objects"
	case LayerPlaces:
		return "places"
	case LayerRooms:
		return "rooms"
	case LayerBuildings:
		return "buildings"
	case LayerAgents:
		return "agents"
	case LayerInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// NodeID is a globally unique node identifier, immutable once
// assigned. Allocation is monotonic and owned by the Graph.
type NodeID int64

// EdgeID identifies an edge. Inter-layer edge ids are allocated from
// the graph-wide counter; intra-layer edge ids are local to their
// owning layer.
type EdgeID int64

// RobotID identifies an agent (robot) for the dynamic agents layer.
type RobotID int

// Vec3 is a 3-D position or direction in the world frame (metres).
type Vec3 [3]float64

func (v Vec3) X() float64 { return v[0] }
func (v Vec3) Y() float64 { return v[1] }
func (v Vec3) Z() float64 { return v[2] }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Norm() }

// Quat is a unit quaternion (w, x, y, z) giving a node's orientation
// in the world frame.
type Quat struct {
	W, X, Y, Z float64
}

// IdentityQuat returns the identity rotation.
func IdentityQuat() Quat { return Quat{W: 1} }

// Color is an RGB color triple.
type Color [3]uint8
