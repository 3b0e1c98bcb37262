package voxel

import "fmt"

// GlobalIndex addresses a single voxel in the global grid.
type GlobalIndex [3]int64

func (i GlobalIndex) String() string {
	return fmt.Sprintf("(%d, %d, %d)", i[0], i[1], i[2])
}

// Sub returns i - o.
func (i GlobalIndex) Sub(o GlobalIndex) GlobalIndex {
	return GlobalIndex{i[0] - o[0], i[1] - o[1], i[2] - o[2]}
}

// SquaredNorm returns the squared Euclidean length of i.
func (i GlobalIndex) SquaredNorm() int64 {
	return i[0]*i[0] + i[1]*i[1] + i[2]*i[2]
}

// Cross returns the cross product of i and o.
func (i GlobalIndex) Cross(o GlobalIndex) GlobalIndex {
	return GlobalIndex{
		i[1]*o[2] - i[2]*o[1],
		i[2]*o[0] - i[0]*o[2],
		i[0]*o[1] - i[1]*o[0],
	}
}

// BlockIndex addresses an allocated block in a voxel layer.
type BlockIndex [3]int32

// GvdVoxel is the per-voxel state the mapper exposes: whether the
// voxel has been observed, its distance-field value, and whether the
// distance is fixed (surface-adjacent).
type GvdVoxel struct {
	Observed bool
	Distance float64
	Fixed    bool
}

// Block is a cube of voxels-per-side^3 voxels.
type Block struct {
	Index  BlockIndex
	Voxels []GvdVoxel
}

// NumVoxels returns the voxel count of the block.
func (b *Block) NumVoxels() int { return len(b.Voxels) }

// Layer is an indexed set of allocated blocks with a fixed voxel size
// and voxels-per-side, as produced by the volumetric mapper.
type Layer struct {
	VoxelSize     float64
	VoxelsPerSide int

	blocks map[BlockIndex]*Block
}

// NewLayer creates an empty layer with the given geometry.
func NewLayer(voxelSize float64, voxelsPerSide int) *Layer {
	return &Layer{
		VoxelSize:     voxelSize,
		VoxelsPerSide: voxelsPerSide,
		blocks:        make(map[BlockIndex]*Block),
	}
}

// AllocateBlock returns the block at idx, creating it (all voxels
// unobserved) on first use.
func (l *Layer) AllocateBlock(idx BlockIndex) *Block {
	b, ok := l.blocks[idx]
	if !ok {
		n := l.VoxelsPerSide * l.VoxelsPerSide * l.VoxelsPerSide
		b = &Block{Index: idx, Voxels: make([]GvdVoxel, n)}
		l.blocks[idx] = b
	}
	return b
}

// Block returns the allocated block at idx.
func (l *Layer) Block(idx BlockIndex) (*Block, bool) {
	b, ok := l.blocks[idx]
	return b, ok
}

// HasBlock reports whether idx is allocated.
func (l *Layer) HasBlock(idx BlockIndex) bool {
	_, ok := l.blocks[idx]
	return ok
}

// BlockIndices returns all allocated block indices.
func (l *Layer) BlockIndices() []BlockIndex {
	out := make([]BlockIndex, 0, len(l.blocks))
	for idx := range l.blocks {
		out = append(out, idx)
	}
	return out
}

// SkeletonCandidates is the list of candidate freespace-graph voxel
// indices the mapper extracted (GVD/skeleton vertices). The place
// graph builder consumes these through the spatial finders.
type SkeletonCandidates struct {
	Indices []GlobalIndex
}
