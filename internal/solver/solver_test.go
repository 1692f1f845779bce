package solver

import (
	"context"
	"math"
	"testing"

	"sketchpad/internal/constraint"
	"sketchpad/internal/sketch"
	"sketchpad/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// polyline adds points at the given coordinates and joins consecutive ones,
// closing the loop when closed is set.
func polyline(t *testing.T, s *sketch.Store, closed bool, coords ...float64) ([]sketch.PointID, []sketch.SegmentID) {
	t.Helper()
	var pts []sketch.PointID
	for i := 0; i+1 < len(coords); i += 2 {
		pts = append(pts, s.AddPoint(coords[i], coords[i+1]))
	}
	n := len(pts) - 1
	if closed {
		n = len(pts)
	}
	var segs []sketch.SegmentID
	for i := 0; i < n; i++ {
		id, err := s.AddSegment(pts[i], pts[(i+1)%len(pts)])
		require.NoError(t, err)
		segs = append(segs, id)
	}
	return pts, segs
}

func length(t *testing.T, s *sketch.Store, id sketch.SegmentID) float64 {
	t.Helper()
	l, err := s.Length(id)
	require.NoError(t, err)
	return l
}

func position(t *testing.T, s *sketch.Store, id sketch.PointID) geometry.Point2D {
	t.Helper()
	p, ok := s.Point(id)
	require.True(t, ok)
	return p.Point2D
}

func TestSolveEmpty(t *testing.T) {
	res, err := Solve(context.Background(), sketch.NewStore(), nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Zero(t, res.Iterations)
}

func TestSolveConverges(t *testing.T) {
	s := sketch.NewStore()
	_, l1 := polyline(t, s, false, 0, 0, 40, 12)
	_, l2 := polyline(t, s, false, 10, 30, 30, 70)

	cs := []constraint.Constraint{
		constraint.NewHorizontal(l1[0]),
		constraint.NewParallel(l1[0], l2[0]),
		constraint.NewEqualLength(l1[0], l2[0]),
	}
	res, err := Solve(context.Background(), s, cs, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Less(t, res.Residual, DefaultTolerance)
	assert.Less(t, math.Abs(length(t, s, l1[0])-length(t, s, l2[0])), DefaultTolerance)
}

func TestSolveConflictingConstraintsHitCap(t *testing.T) {
	s := sketch.NewStore()
	_, base := polyline(t, s, false, 0, 0, 10, 0)
	_, cur := polyline(t, s, false, 0, 20, 10, 30)

	// Parallel and perpendicular on the same pair settle into a fixed
	// point where both keep rotating by the same amount every pass.
	cs := []constraint.Constraint{
		constraint.NewParallel(base[0], cur[0]),
		constraint.NewPerpendicular(base[0], cur[0]),
	}
	opts := DefaultOptions()
	res, err := Solve(context.Background(), s, cs, opts)
	require.NoError(t, err)
	assert.Equal(t, IterationCapReached, res.Status)
	assert.Equal(t, opts.MaxIterations, res.Iterations)
	assert.GreaterOrEqual(t, res.Residual, opts.Tolerance)
}

func TestSolveCancelledLeavesStoreUntouched(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, false, 0, 0, 10, 10)
	rev := s.Revision()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Solve(ctx, s, []constraint.Constraint{constraint.NewHorizontal(segs[0])}, DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, rev, s.Revision())
	assert.Equal(t, geometry.NewPoint2D(10, 10), position(t, s, pts[1]))
}

func TestSolveUnknownSegment(t *testing.T) {
	s := sketch.NewStore()
	_, err := Solve(context.Background(), s, []constraint.Constraint{constraint.NewVertical(42)}, DefaultOptions())
	require.ErrorIs(t, err, sketch.ErrUnknownSegment)
}

func TestSolveRejectsInvalidConstraint(t *testing.T) {
	s := sketch.NewStore()
	_, segs := polyline(t, s, false, 0, 0, 10, 10)
	_, err := Solve(context.Background(), s, []constraint.Constraint{constraint.NewParallel(segs[0], segs[0])}, DefaultOptions())
	assert.Error(t, err)
}

func TestZeroValueOptionsTakeDefaults(t *testing.T) {
	s := sketch.NewStore()
	_, line := polyline(t, s, false, 0, 0, 10, 10)
	res, err := Solve(context.Background(), s, []constraint.Constraint{constraint.NewHorizontal(line[0])}, Options{})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Equal(t, 1, res.Iterations)

	_, segs := polyline(t, s, false, 100, 0, 105, 0, 120, 0)
	res, err = SolveEqualLength(context.Background(), s, segs, EqualLengthOptions{})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Positive(t, res.Iterations)
	for _, id := range segs {
		assert.InDelta(t, 10, length(t, s, id), 1e-9)
	}
}

func TestEqualLengthTriangle(t *testing.T) {
	s := sketch.NewStore()
	// Sides 10, 20 and 30: collinear, but still a closed loop.
	pts, segs := polyline(t, s, true, 0, 0, 10, 0, 30, 0)

	res, err := SolveEqualLength(context.Background(), s, segs, DefaultEqualLengthOptions())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)

	for _, id := range segs {
		assert.InDelta(t, 20, length(t, s, id), 1e-6)
	}
	var placed []geometry.Point2D
	for _, p := range pts {
		placed = append(placed, position(t, s, p))
	}
	centroid := geometry.Centroid(placed)
	assert.InDelta(t, 40.0/3, centroid.X, 1e-6)
	assert.InDelta(t, 0, centroid.Y, 1e-6)
}

func TestEqualLengthSquare(t *testing.T) {
	s := sketch.NewStore()
	_, segs := polyline(t, s, true, 0, 0, 20, 0, 20, 8, 0, 8)

	res, err := SolveEqualLength(context.Background(), s, segs, DefaultEqualLengthOptions())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	for _, id := range segs {
		assert.InDelta(t, 14, length(t, s, id), 1e-6)
	}
}

func TestEqualLengthOpenChain(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, false, 0, 0, 5, 0, 20, 0)

	res, err := SolveEqualLength(context.Background(), s, segs, DefaultEqualLengthOptions())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)

	assert.InDelta(t, -5, position(t, s, pts[0]).X, 1e-9)
	assert.Equal(t, geometry.NewPoint2D(5, 0), position(t, s, pts[1]))
	assert.InDelta(t, 15, position(t, s, pts[2]).X, 1e-9)
	for _, id := range segs {
		assert.InDelta(t, 10, length(t, s, id), 1e-9)
	}
}

func TestEqualLengthBranch(t *testing.T) {
	s := sketch.NewStore()
	hub := s.AddPoint(0, 0)
	var segs []sketch.SegmentID
	for _, xy := range [][2]float64{{5, 0}, {0, 10}, {-15, 0}} {
		id, err := s.AddSegment(hub, s.AddPoint(xy[0], xy[1]))
		require.NoError(t, err)
		segs = append(segs, id)
	}

	res, err := SolveEqualLength(context.Background(), s, segs, DefaultEqualLengthOptions())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Equal(t, geometry.NewPoint2D(0, 0), position(t, s, hub))
	for _, id := range segs {
		assert.InDelta(t, 10, length(t, s, id), 1e-9)
	}
}

func TestEqualLengthIgnoresZeroLengthSegments(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, false, 0, 0, 10, 0, 10, 0)

	res, err := SolveEqualLength(context.Background(), s, segs, DefaultEqualLengthOptions())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)

	// The target is 10, not the 5 a zero length would drag it to.
	assert.InDelta(t, 10, length(t, s, segs[0]), 1e-9)
	for _, p := range pts {
		pos := position(t, s, p)
		assert.False(t, math.IsNaN(pos.X) || math.IsNaN(pos.Y))
	}
}

func TestEqualLengthAllZero(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, false, 3, 3, 3, 3)

	res, err := SolveEqualLength(context.Background(), s, segs, DefaultEqualLengthOptions())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Equal(t, geometry.NewPoint2D(3, 3), position(t, s, pts[0]))
}

func TestEqualLengthTargetModes(t *testing.T) {
	build := func() (*sketch.Store, []sketch.SegmentID, sketch.SegmentID) {
		s := sketch.NewStore()
		_, tri := polyline(t, s, true, 0, 0, 10, 0, 30, 0)
		_, lone := polyline(t, s, false, 100, 100, 104, 100)
		return s, append(tri, lone...), lone[0]
	}

	s, segs, lone := build()
	_, err := SolveEqualLength(context.Background(), s, segs, DefaultEqualLengthOptions())
	require.NoError(t, err)
	assert.InDelta(t, 20, length(t, s, segs[0]), 1e-6)
	assert.InDelta(t, 4, length(t, s, lone), 1e-9)

	s, segs, lone = build()
	opts := DefaultEqualLengthOptions()
	opts.Target = TargetGlobal
	res, err := SolveEqualLength(context.Background(), s, segs, opts)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	for _, id := range segs {
		assert.InDelta(t, 16, length(t, s, id), 1e-6)
	}
}

func TestEqualLengthWithConstraints(t *testing.T) {
	s := sketch.NewStore()
	_, segs := polyline(t, s, false, 0, 2, 5, 0, 20, 0)

	opts := DefaultEqualLengthOptions()
	opts.Constraints = []constraint.Constraint{constraint.NewHorizontal(segs[0])}
	res, err := SolveEqualLength(context.Background(), s, segs, opts)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)

	seg, ok := s.Segment(segs[0])
	require.True(t, ok)
	assert.InDelta(t, position(t, s, seg.Start).Y, position(t, s, seg.End).Y, 1e-9)
	for _, id := range segs {
		assert.InDelta(t, 10, length(t, s, id), DefaultEqualLengthTolerance)
	}
}

func TestEqualLengthCancelled(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, false, 0, 0, 5, 0, 20, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SolveEqualLength(ctx, s, segs, DefaultEqualLengthOptions())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, geometry.NewPoint2D(0, 0), position(t, s, pts[0]))
}

func TestEqualLengthUnknownSegment(t *testing.T) {
	s := sketch.NewStore()
	_, segs := polyline(t, s, false, 0, 0, 5, 0)
	_, err := SolveEqualLength(context.Background(), s, append(segs, 77), DefaultEqualLengthOptions())
	require.ErrorIs(t, err, sketch.ErrUnknownSegment)
}

func TestParseTargetMode(t *testing.T) {
	m, err := ParseTargetMode("global")
	require.NoError(t, err)
	assert.Equal(t, TargetGlobal, m)

	m, err = ParseTargetMode("")
	require.NoError(t, err)
	assert.Equal(t, TargetPerComponent, m)

	_, err = ParseTargetMode("median")
	assert.Error(t, err)
}
