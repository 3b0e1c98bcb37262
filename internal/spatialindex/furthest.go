package spatialindex

import (
	"github.com/fieldrobotics/scenegraph/internal/voxel"
)

// FurthestIndexResult is the outcome of an extremal query against a
// line segment. Valid is false when the input index set was empty.
// FromSource marks results that were evaluated as source points
// (distance from the segment start) rather than against the segment
// line itself.
type FurthestIndexResult struct {
	Valid      bool
	Distance   int64
	FromSource bool
	Index      voxel.GlobalIndex
}

// FindFurthestIndexFromLine returns the index of maximum distance
// from the directed segment start->end. The first numberSourceEdges
// indices are scored by squared distance from start (source mode);
// the remainder by squared perpendicular distance from the line
// (line mode). Distances are integer grid units, squared.
//
// The place graph builder uses this to decide where to split or
// extend a skeleton edge: a large extremal distance means the
// straight-line edge misrepresents the freespace corridor.
func FindFurthestIndexFromLine(indices []voxel.GlobalIndex, start, end voxel.GlobalIndex, numberSourceEdges int) FurthestIndexResult {
	var result FurthestIndexResult

	line := end.Sub(start)
	lineNormSq := line.SquaredNorm()

	for i, idx := range indices {
		offset := idx.Sub(start)

		var distance int64
		fromSource := i < numberSourceEdges
		if fromSource || lineNormSq == 0 {
			// Degenerate segments fall back to source distance too.
			distance = offset.SquaredNorm()
		} else {
			distance = offset.Cross(line).SquaredNorm() / lineNormSq
		}

		if !result.Valid || distance > result.Distance {
			result.Valid = true
			result.Distance = distance
			result.FromSource = fromSource
			result.Index = idx
		}
	}
	return result
}

// FindFurthestIndex scores every index in source mode, returning the
// index furthest from start.
func FindFurthestIndex(indices []voxel.GlobalIndex, start, end voxel.GlobalIndex) FurthestIndexResult {
	return FindFurthestIndexFromLine(indices, start, end, len(indices))
}
