package dsg

import (
	"fmt"
	"math"
)

// bboxCovarianceEpsilon is the minimum threshold for numerical
// stability in covariance operations during OBB estimation.
const bboxCovarianceEpsilon = 1e-9

// BoundingBoxType selects between axis-aligned and oriented boxes.
type BoundingBoxType int

const (
	BoxAABB BoundingBoxType = iota
	BoxOBB
)

// BoundingBox is an optional node bounding volume. For AABB boxes Min
// and Max are world-frame extents and Position/HeadingRad are unused.
// For OBB boxes Min and Max are extents in the box frame, Position is
// the box centre and HeadingRad the yaw around Z.
type BoundingBox struct {
	Type       BoundingBoxType
	Min        Vec3
	Max        Vec3
	Position   Vec3
	HeadingRad float64
}

// Union grows b to cover o, degrading to an AABB when the two boxes
// disagree on orientation. Used when merging duplicate nodes.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	out := BoundingBox{Type: BoxAABB}
	if b.Type == BoxOBB && o.Type == BoxOBB && b.HeadingRad == o.HeadingRad {
		out.Type = BoxOBB
		out.HeadingRad = b.HeadingRad
		out.Position = b.Position.Add(o.Position).Scale(0.5)
	}
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Min(b.Min[i], o.Min[i])
		out.Max[i] = math.Max(b.Max[i], o.Max[i])
	}
	return out
}

// PointCluster is the subsampled point set associated with a node
// (e.g. the object's segmented points or a place's supporting voxels).
type PointCluster struct {
	Points []Vec3
}

// Union appends o's points to a copy of c.
func (c *PointCluster) Union(o *PointCluster) *PointCluster {
	if c == nil {
		return o
	}
	if o == nil {
		return c
	}
	merged := &PointCluster{Points: make([]Vec3, 0, len(c.Points)+len(o.Points))}
	merged.Points = append(merged.Points, c.Points...)
	merged.Points = append(merged.Points, o.Points...)
	return merged
}

// Centroid returns the mean of the cluster points and false when the
// cluster is empty.
func (c *PointCluster) Centroid() (Vec3, bool) {
	if c == nil || len(c.Points) == 0 {
		return Vec3{}, false
	}
	var sum Vec3
	for _, p := range c.Points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(c.Points))), true
}

// NodeAttributes carries the mutable payload of a scene graph node.
type NodeAttributes struct {
	TimestampNanos int64
	Position       Vec3
	Orientation    Quat
	Color          Color
	SemanticLabel  uint32
	Name           string

	// Distance is the recorded free-space clearance for place nodes
	// (metres from the node to the nearest obstacle). Zero elsewhere.
	Distance float64

	Cluster *PointCluster
	Box     *BoundingBox
}

func (a *NodeAttributes) String() string {
	return fmt.Sprintf(
		"timestamp=%d position=(%.3f, %.3f, %.3f) label=%d name=%q distance=%.3f",
		a.TimestampNanos, a.Position[0], a.Position[1], a.Position[2],
		a.SemanticLabel, a.Name, a.Distance)
}

// EstimateOBBFromCluster computes an oriented bounding box for a point
// cluster using PCA on the X-Y plane to determine the principal
// orientation. Returns false for an empty cluster.
//
// Algorithm: centroid, 2x2 covariance, closed-form eigenvector for the
// larger eigenvalue, project points onto the principal axes for
// extents, heading = atan2 of the principal eigenvector.
func EstimateOBBFromCluster(c *PointCluster) (BoundingBox, bool) {
	if c == nil || len(c.Points) == 0 {
		return BoundingBox{}, false
	}
	n := float64(len(c.Points))

	var sum Vec3
	for _, p := range c.Points {
		sum = sum.Add(p)
	}
	mean := sum.Scale(1 / n)

	var c00, c01, c11 float64
	for _, p := range c.Points {
		dx := p[0] - mean[0]
		dy := p[1] - mean[1]
		c00 += dx * dx
		c01 += dx * dy
		c11 += dy * dy
	}
	c00 /= n
	c01 /= n
	c11 /= n

	// Principal eigenvector of the symmetric 2x2 covariance.
	var evX, evY float64
	if math.Abs(c01) > bboxCovarianceEpsilon {
		trace := c00 + c11
		det := c00*c11 - c01*c01
		disc := trace*trace - 4*det
		lambda1 := c00
		if disc >= 0 {
			lambda1 = (trace + math.Sqrt(disc)) / 2
		}
		evX = c01
		evY = lambda1 - c00
		mag := math.Hypot(evX, evY)
		if mag > bboxCovarianceEpsilon {
			evX /= mag
			evY /= mag
		} else {
			evX, evY = 1, 0
		}
	} else if c00 >= c11 {
		evX, evY = 1, 0
	} else {
		evX, evY = 0, 1
	}

	// Project onto principal axis (u) and its perpendicular (v), plus Z.
	minU, maxU := math.Inf(1), math.Inf(-1)
	minV, maxV := math.Inf(1), math.Inf(-1)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, p := range c.Points {
		dx := p[0] - mean[0]
		dy := p[1] - mean[1]
		u := dx*evX + dy*evY
		v := -dx*evY + dy*evX
		minU = math.Min(minU, u)
		maxU = math.Max(maxU, u)
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
		minZ = math.Min(minZ, p[2])
		maxZ = math.Max(maxZ, p[2])
	}

	centerZ := (minZ + maxZ) / 2
	return BoundingBox{
		Type:       BoxOBB,
		Min:        Vec3{minU, minV, minZ - centerZ},
		Max:        Vec3{maxU, maxV, maxZ - centerZ},
		Position:   Vec3{mean[0], mean[1], centerZ},
		HeadingRad: math.Atan2(evY, evX),
	}, true
}
