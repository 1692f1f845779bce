package topology

import (
	"testing"

	"sketchpad/internal/sketch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// polyline adds points at the given coordinates and joins consecutive ones.
// When closed is set the last point is joined back to the first.
func polyline(t *testing.T, s *sketch.Store, closed bool, coords ...float64) ([]sketch.PointID, []sketch.SegmentID) {
	t.Helper()
	var pts []sketch.PointID
	for i := 0; i+1 < len(coords); i += 2 {
		pts = append(pts, s.AddPoint(coords[i], coords[i+1]))
	}
	var segs []sketch.SegmentID
	n := len(pts) - 1
	if closed {
		n = len(pts)
	}
	for i := 0; i < n; i++ {
		id, err := s.AddSegment(pts[i], pts[(i+1)%len(pts)])
		require.NoError(t, err)
		segs = append(segs, id)
	}
	return pts, segs
}

func analyze(t *testing.T, s *sketch.Store, segs []sketch.SegmentID) *Graph {
	t.Helper()
	f, err := s.Snapshot(segs)
	require.NoError(t, err)
	g, err := Analyze(f, segs)
	require.NoError(t, err)
	return g
}

func TestTriangleIsClosed(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, true, 0, 0, 10, 0, 5, 8)

	g := analyze(t, s, segs)
	require.Len(t, g.Components, 1)
	c := g.Components[0]
	assert.True(t, c.Closed)
	assert.Equal(t, pts, c.Points)
	assert.Equal(t, segs, c.Segments)
	for _, p := range pts {
		assert.Equal(t, 2, g.Degree(p))
	}
}

func TestChainIsOpen(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, false, 0, 0, 5, 0, 20, 0)

	g := analyze(t, s, segs)
	require.Len(t, g.Components, 1)
	assert.False(t, g.Components[0].Closed)
	assert.Equal(t, 1, g.Degree(pts[0]))
	assert.Equal(t, 2, g.Degree(pts[1]))
	assert.Equal(t, 1, g.Degree(pts[2]))
}

func TestBranchingJunction(t *testing.T) {
	s := sketch.NewStore()
	hub := s.AddPoint(0, 0)
	var segs []sketch.SegmentID
	for _, xy := range [][2]float64{{10, 0}, {0, 10}, {-10, 0}} {
		leaf := s.AddPoint(xy[0], xy[1])
		id, err := s.AddSegment(hub, leaf)
		require.NoError(t, err)
		segs = append(segs, id)
	}

	g := analyze(t, s, segs)
	require.Len(t, g.Components, 1)
	assert.False(t, g.Components[0].Closed)
	assert.Equal(t, 3, g.Degree(hub))
	assert.Len(t, g.Components[0].Points, 4)
}

func TestSquareWithDiagonalIsOpen(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, true, 0, 0, 10, 0, 10, 10, 0, 10)
	diag, err := s.AddSegment(pts[0], pts[2])
	require.NoError(t, err)

	g := analyze(t, s, append(segs, diag))
	require.Len(t, g.Components, 1)
	assert.False(t, g.Components[0].Closed)
}

func TestDisjointSelections(t *testing.T) {
	s := sketch.NewStore()
	_, tri := polyline(t, s, true, 0, 0, 10, 0, 5, 8)
	_, line := polyline(t, s, false, 100, 100, 110, 100)

	g := analyze(t, s, append(append([]sketch.SegmentID{}, tri...), line...))
	require.Len(t, g.Components, 2)
	assert.True(t, g.Components[0].Closed)
	assert.False(t, g.Components[1].Closed)
	assert.Equal(t, line, g.Components[1].Segments)
}

func TestSelectionRestrictsDegree(t *testing.T) {
	s := sketch.NewStore()
	_, segs := polyline(t, s, true, 0, 0, 10, 0, 5, 8)

	// Two sides of a triangle are an open chain when the third is not selected.
	g := analyze(t, s, segs[:2])
	require.Len(t, g.Components, 1)
	assert.False(t, g.Components[0].Closed)
}

func TestDuplicateIDsIgnored(t *testing.T) {
	s := sketch.NewStore()
	pts, segs := polyline(t, s, false, 0, 0, 5, 0)

	g := analyze(t, s, []sketch.SegmentID{segs[0], segs[0]})
	assert.Equal(t, 1, g.Degree(pts[0]))
	assert.Equal(t, 1, g.Degree(pts[1]))
}

func TestUnknownSegment(t *testing.T) {
	s := sketch.NewStore()
	_, segs := polyline(t, s, false, 0, 0, 5, 0)
	f, err := s.Snapshot(segs)
	require.NoError(t, err)

	_, err = Analyze(f, []sketch.SegmentID{segs[0], 99})
	require.ErrorIs(t, err, sketch.ErrUnknownSegment)
}
