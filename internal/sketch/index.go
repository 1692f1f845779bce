package sketch

import (
	"math"

	"sketchpad/pkg/geometry"

	"github.com/dhconnelly/rtreego"
)

const (
	indexMinChildren = 25
	indexMaxChildren = 50
)

type indexedPoint struct {
	id  PointID
	pos geometry.Point2D
}

func (p indexedPoint) Bounds() rtreego.Rect {
	return rtreego.Point{p.pos.X, p.pos.Y}.ToRect(0)
}

// spatialIndexLocked returns an R-tree over all points, rebuilding it when
// the store changed since it was last built. Requires the write lock.
func (s *Store) spatialIndexLocked() *rtreego.Rtree {
	if s.index != nil && s.indexRev == s.revision {
		return s.index
	}
	objs := make([]rtreego.Spatial, 0, len(s.points))
	for _, p := range s.points {
		objs = append(objs, indexedPoint{id: p.ID, pos: p.Point2D})
	}
	s.index = rtreego.NewTree(2, indexMinChildren, indexMaxChildren, objs...)
	s.indexRev = s.revision
	return s.index
}

// PointNear returns the point closest to (x, y) within tol. Ties go to the
// older point.
func (s *Store) PointNear(x, y, tol float64) (PointID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointNearLocked(geometry.NewPoint2D(x, y), tol)
}

func (s *Store) pointNearLocked(at geometry.Point2D, tol float64) (PointID, bool) {
	if len(s.points) == 0 {
		return 0, false
	}
	hits := s.spatialIndexLocked().SearchIntersect(rtreego.Point{at.X, at.Y}.ToRect(tol))

	best, bestDist, found := PointID(0), math.Inf(1), false
	for _, h := range hits {
		p := h.(indexedPoint)
		d := p.pos.Distance(at)
		if d > tol {
			continue
		}
		if d < bestDist || (d == bestDist && p.id < best) {
			best, bestDist, found = p.id, d, true
		}
	}
	return best, found
}

// SnapPoint returns the point within tol of (x, y), creating one there if
// none exists. created reports whether the point is new.
func (s *Store) SnapPoint(x, y, tol float64) (id PointID, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.pointNearLocked(geometry.NewPoint2D(x, y), tol); ok {
		return id, false
	}
	return s.addPointLocked(x, y), true
}
