package dsg

import (
	"math"
	"testing"
)

func TestPointClusterCentroid(t *testing.T) {
	var empty *PointCluster
	if _, ok := empty.Centroid(); ok {
		t.Error("nil cluster should have no centroid")
	}

	c := &PointCluster{Points: []Vec3{{0, 0, 0}, {2, 0, 0}, {1, 3, 0}}}
	got, ok := c.Centroid()
	if !ok {
		t.Fatal("expected centroid for non-empty cluster")
	}
	want := Vec3{1, 1, 0}
	if got.Dist(want) > 1e-12 {
		t.Errorf("centroid = %v, want %v", got, want)
	}
}

func TestBoundingBoxUnion(t *testing.T) {
	a := BoundingBox{Type: BoxAABB, Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	b := BoundingBox{Type: BoxAABB, Min: Vec3{-1, 0.5, 0}, Max: Vec3{0.5, 2, 1}}

	u := a.Union(b)
	if u.Min != (Vec3{-1, 0, 0}) {
		t.Errorf("union min = %v", u.Min)
	}
	if u.Max != (Vec3{1, 2, 1}) {
		t.Errorf("union max = %v", u.Max)
	}

	// OBBs with different headings degrade to AABB.
	o1 := BoundingBox{Type: BoxOBB, HeadingRad: 0.2, Min: Vec3{-1, -1, 0}, Max: Vec3{1, 1, 1}}
	o2 := BoundingBox{Type: BoxOBB, HeadingRad: 0.5, Min: Vec3{-1, -1, 0}, Max: Vec3{1, 1, 1}}
	if got := o1.Union(o2); got.Type != BoxAABB {
		t.Errorf("mixed-heading union type = %v, want AABB", got.Type)
	}
}

func TestEstimateOBBFromClusterEmpty(t *testing.T) {
	if _, ok := EstimateOBBFromCluster(nil); ok {
		t.Error("nil cluster should not yield a box")
	}
	if _, ok := EstimateOBBFromCluster(&PointCluster{}); ok {
		t.Error("empty cluster should not yield a box")
	}
}

func TestEstimateOBBFromClusterAxisAligned(t *testing.T) {
	// A 4x2 rectangle aligned with the axes: heading should be ~0 (or
	// ~pi, equivalent) and extents 4 by 2.
	// Interior points are mirrored so they add no xy cross term.
	c := &PointCluster{Points: []Vec3{
		{-2, -1, 0}, {2, -1, 0}, {-2, 1, 0}, {2, 1, 0},
		{0, 0, 0}, {1, 0.5, 0}, {-1, 0.5, 0}, {1, -0.5, 0}, {-1, -0.5, 0},
	}}
	box, ok := EstimateOBBFromCluster(c)
	if !ok {
		t.Fatal("expected a box")
	}
	if box.Type != BoxOBB {
		t.Fatalf("box type = %v, want OBB", box.Type)
	}

	heading := math.Mod(math.Abs(box.HeadingRad), math.Pi)
	if heading > 1e-6 && math.Abs(heading-math.Pi) > 1e-6 {
		t.Errorf("heading = %f, want axis aligned", box.HeadingRad)
	}

	long := box.Max[0] - box.Min[0]
	short := box.Max[1] - box.Min[1]
	if math.Abs(long-4) > 1e-6 || math.Abs(short-2) > 1e-6 {
		t.Errorf("extents = %f x %f, want 4 x 2", long, short)
	}
}

func TestEstimateOBBFromClusterRotated(t *testing.T) {
	// The same rectangle rotated by 30 degrees: the recovered box must
	// still measure 4 by 2 in its own frame.
	theta := math.Pi / 6
	cos, sin := math.Cos(theta), math.Sin(theta)
	base := []Vec3{
		{-2, -1, 0}, {2, -1, 0}, {-2, 1, 0}, {2, 1, 0},
		{0, 0, 0}, {1, 0.5, 0}, {-1, 0.5, 0}, {1, -0.5, 0}, {-1, -0.5, 0},
	}
	rot := make([]Vec3, len(base))
	for i, p := range base {
		rot[i] = Vec3{p[0]*cos - p[1]*sin, p[0]*sin + p[1]*cos, p[2]}
	}

	box, ok := EstimateOBBFromCluster(&PointCluster{Points: rot})
	if !ok {
		t.Fatal("expected a box")
	}

	long := box.Max[0] - box.Min[0]
	short := box.Max[1] - box.Min[1]
	if math.Abs(long-4) > 1e-6 || math.Abs(short-2) > 1e-6 {
		t.Errorf("extents = %f x %f, want 4 x 2", long, short)
	}
}
