package voxel

import (
	"fmt"
	"math"
)

// LayerComparisonResult summarises a voxel-by-voxel comparison of two
// distance-field layers. Valid is false when the layers disagree on
// geometry (voxel size or voxels-per-side) and no comparison was made.
type LayerComparisonResult struct {
	Valid bool

	NumSame      int
	NumDifferent int

	NumLhsSeenRhsUnseen int
	NumRhsSeenLhsUnseen int

	NumMissingLhs int
	NumMissingRhs int

	RMSE     float64
	MinError float64
	MaxError float64
}

func (r LayerComparisonResult) String() string {
	if !r.Valid {
		return "invalid comparison (layer geometry mismatch)"
	}
	return fmt.Sprintf(
		"%d same, %d different; %d/%d unallocated (lhs/rhs); %d/%d uniquely seen (lhs/rhs); rmse %.4f in [%.4f, %.4f]",
		r.NumSame, r.NumDifferent,
		r.NumMissingLhs, r.NumMissingRhs,
		r.NumLhsSeenRhsUnseen, r.NumRhsSeenLhsUnseen,
		r.RMSE, r.MinError, r.MaxError)
}

// missingObserved counts observed voxels in blocks of layer that the
// other layer never allocated.
func missingObserved(layer, other *Layer) int {
	missing := 0
	for idx, b := range layer.blocks {
		if other.HasBlock(idx) {
			continue
		}
		for i := range b.Voxels {
			if b.Voxels[i].Observed {
				missing++
			}
		}
	}
	return missing
}

// CompareLayers walks both layers voxel by voxel, classifying each
// pair with sameFn and accumulating distance error statistics over
// voxels observed on both sides.
func CompareLayers(lhs, rhs *Layer, sameFn func(a, b GvdVoxel) bool) LayerComparisonResult {
	result := LayerComparisonResult{MinError: math.Inf(1)}
	if lhs.VoxelSize != rhs.VoxelSize || lhs.VoxelsPerSide != rhs.VoxelsPerSide {
		return result
	}
	result.Valid = true

	result.NumMissingLhs = missingObserved(rhs, lhs)
	result.NumMissingRhs = missingObserved(lhs, rhs)

	var sumSq float64
	for idx, lb := range lhs.blocks {
		rb, ok := rhs.blocks[idx]
		if !ok {
			continue
		}
		for i := range lb.Voxels {
			lv, rv := lb.Voxels[i], rb.Voxels[i]
			if !lv.Observed && !rv.Observed {
				result.NumSame++
				continue
			}
			if !lv.Observed || !rv.Observed {
				if lv.Observed {
					result.NumLhsSeenRhsUnseen++
				} else {
					result.NumRhsSeenLhsUnseen++
				}
				continue
			}

			if sameFn(lv, rv) {
				result.NumSame++
			} else {
				result.NumDifferent++
			}

			err := math.Abs(lv.Distance - rv.Distance)
			result.MinError = math.Min(result.MinError, err)
			result.MaxError = math.Max(result.MaxError, err)
			sumSq += err * err
		}
	}

	if n := result.NumSame + result.NumDifferent; n > 0 {
		result.RMSE = math.Sqrt(sumSq / float64(n))
	}
	return result
}

// GvdVoxelsSame is the default equivalence for GVD voxels.
func GvdVoxelsSame(a, b GvdVoxel) bool {
	return a.Distance == b.Distance && a.Fixed == b.Fixed
}
