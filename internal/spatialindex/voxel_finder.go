package spatialindex

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/fieldrobotics/scenegraph/internal/voxel"
)

// VoxelCallback receives one result per neighbor: the voxel index,
// its rank in the result set, and the squared grid distance to the
// query index.
type VoxelCallback func(index voxel.GlobalIndex, rank int, distance int64)

// voxelPoint adapts a GlobalIndex to the kd-tree. Coordinates are
// converted to float64 for traversal; reported distances stay in
// squared integer grid units.
type voxelPoint struct {
	ord int // position in the source slice, for deterministic ties
	idx voxel.GlobalIndex
}

func (p voxelPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(voxelPoint)
	return float64(p.idx[d] - q.idx[d])
}

func (p voxelPoint) Dims() int { return 3 }

func (p voxelPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(voxelPoint)
	return float64(p.idx.Sub(q.idx).SquaredNorm())
}

type voxelPoints []voxelPoint

func (p voxelPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p voxelPoints) Len() int                      { return len(p) }
func (p voxelPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p voxelPoints) Pivot(d kdtree.Dim) int {
	return voxelPlane{Dim: d, voxelPoints: p}.Pivot()
}

type voxelPlane struct {
	kdtree.Dim
	voxelPoints
}

func (p voxelPlane) Less(i, j int) bool {
	return p.voxelPoints[i].idx[p.Dim] < p.voxelPoints[j].idx[p.Dim]
}
func (p voxelPlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
func (p voxelPlane) Slice(start, end int) kdtree.SortSlicer {
	p.voxelPoints = p.voxelPoints[start:end]
	return p
}
func (p voxelPlane) Swap(i, j int) {
	p.voxelPoints[i], p.voxelPoints[j] = p.voxelPoints[j], p.voxelPoints[i]
}

// NearestVoxelFinder answers k-nearest queries over a fixed set of
// voxel grid indices, used when anchoring place nodes to the
// extracted freespace graph.
type NearestVoxelFinder struct {
	tree *kdtree.Tree
	size int
}

// NewNearestVoxelFinder builds the finder from a snapshot of indices.
func NewNearestVoxelFinder(indices []voxel.GlobalIndex) *NearestVoxelFinder {
	pts := make(voxelPoints, len(indices))
	for i, idx := range indices {
		pts[i] = voxelPoint{ord: i, idx: idx}
	}
	return &NearestVoxelFinder{tree: kdtree.New(pts, false), size: len(pts)}
}

// Len returns the number of indexed voxels.
func (f *NearestVoxelFinder) Len() int { return f.size }

// Find reports up to num nearest indices to the query in ascending
// squared-distance order, ties by source order. An empty index set
// yields no callbacks.
func (f *NearestVoxelFinder) Find(index voxel.GlobalIndex, num int, cb VoxelCallback) {
	if num <= 0 || f.size == 0 {
		return
	}
	keep := kdtree.NewNKeeper(num)
	f.tree.NearestSet(keep, voxelPoint{idx: index})

	type result struct {
		ord  int
		idx  voxel.GlobalIndex
		dist int64
	}
	results := make([]result, 0, num)
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(voxelPoint)
		results = append(results, result{ord: p.ord, idx: p.idx, dist: int64(c.Dist)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].dist != results[j].dist {
			return results[i].dist < results[j].dist
		}
		return results[i].ord < results[j].ord
	})
	for i, r := range results {
		cb(r.idx, i, r.dist)
	}
}
