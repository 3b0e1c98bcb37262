package spatialindex

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
)

// nodePoint is a kd-tree element carrying the owning node's id.
// Distance is squared Euclidean, which preserves nearest-neighbor
// ordering while avoiding the square root in tree traversal.
type nodePoint struct {
	id  dsg.NodeID
	pos dsg.Vec3
}

func (p nodePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(nodePoint)
	return p.pos[d] - q.pos[d]
}

func (p nodePoint) Dims() int { return 3 }

func (p nodePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(nodePoint)
	diff := p.pos.Sub(q.pos)
	return diff.Dot(diff)
}

type nodePoints []nodePoint

func (p nodePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p nodePoints) Len() int                      { return len(p) }
func (p nodePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p nodePoints) Pivot(d kdtree.Dim) int {
	return nodePlane{Dim: d, nodePoints: p}.Pivot()
}

type nodePlane struct {
	kdtree.Dim
	nodePoints
}

func (p nodePlane) Less(i, j int) bool {
	return p.nodePoints[i].pos[p.Dim] < p.nodePoints[j].pos[p.Dim]
}
func (p nodePlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
func (p nodePlane) Slice(start, end int) kdtree.SortSlicer {
	p.nodePoints = p.nodePoints[start:end]
	return p
}
func (p nodePlane) Swap(i, j int) {
	p.nodePoints[i], p.nodePoints[j] = p.nodePoints[j], p.nodePoints[i]
}
