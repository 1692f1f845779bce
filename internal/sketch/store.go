// Package sketch holds the geometry a user draws: points with stable
// identities, segments joining pairs of points, and arcs.
package sketch

import (
	"sort"
	"sync"

	"sketchpad/pkg/geometry"

	"github.com/dhconnelly/rtreego"
	"github.com/jbeda/geom"
	"github.com/pkg/errors"
)

var (
	ErrDegenerateSegment = errors.New("segment endpoints must be distinct points")
	ErrUnknownPoint      = errors.New("unknown point")
	ErrUnknownSegment    = errors.New("unknown segment")
	ErrUnknownArc        = errors.New("unknown arc")
	ErrPointInUse        = errors.New("point is referenced by a segment")
	ErrStaleFrame        = errors.New("sketch changed since the frame was taken")
)

// PointID identifies a point for its whole lifetime.
type PointID int

// SegmentID identifies a segment.
type SegmentID int

// ArcID identifies an arc.
type ArcID int

// Point is a location with a stable identity. Two points are the same point
// iff their IDs match; coordinates change freely.
type Point struct {
	ID PointID `json:"id"`
	geometry.Point2D
}

// Segment joins two distinct points. Segments sharing a PointID share the
// point itself.
type Segment struct {
	ID    SegmentID `json:"id"`
	Start PointID   `json:"start"`
	End   PointID   `json:"end"`
}

// Store owns all points, segments and arcs of a sketch.
type Store struct {
	mu sync.RWMutex

	points   map[PointID]*Point
	segments map[SegmentID]Segment
	arcs     map[ArcID]Arc

	// Creation order, used for deterministic iteration and top-most-first
	// hit testing.
	segmentOrder []SegmentID
	arcOrder     []ArcID

	nextPoint   PointID
	nextSegment SegmentID
	nextArc     ArcID

	// revision increases on every mutation.
	revision uint64

	index    *rtreego.Rtree
	indexRev uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		points:   make(map[PointID]*Point),
		segments: make(map[SegmentID]Segment),
		arcs:     make(map[ArcID]Arc),
		indexRev: ^uint64(0),
	}
}

// Revision returns a counter that changes whenever the store is mutated.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// AddPoint creates a point at (x, y) and returns its fresh ID.
func (s *Store) AddPoint(x, y float64) PointID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPointLocked(x, y)
}

func (s *Store) addPointLocked(x, y float64) PointID {
	id := s.nextPoint
	s.nextPoint++
	s.points[id] = &Point{ID: id, Point2D: geometry.NewPoint2D(x, y)}
	s.revision++
	return id
}

// InsertPoint adds a point with a caller-chosen ID, as when restoring a saved
// sketch. Later AddPoint calls never reuse the ID.
func (s *Store) InsertPoint(id PointID, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.points[id]; exists {
		return errors.Errorf("point %d already exists", id)
	}
	s.points[id] = &Point{ID: id, Point2D: geometry.NewPoint2D(x, y)}
	if id >= s.nextPoint {
		s.nextPoint = id + 1
	}
	s.revision++
	return nil
}

// AddSegment joins two existing points. It fails with ErrDegenerateSegment
// when a == b.
func (s *Store) AddSegment(a, b PointID) (SegmentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEndpointsLocked(a, b); err != nil {
		return 0, err
	}
	id := s.nextSegment
	s.insertSegmentLocked(Segment{ID: id, Start: a, End: b})
	return id, nil
}

// InsertSegment adds a segment with a caller-chosen ID.
func (s *Store) InsertSegment(seg Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.segments[seg.ID]; exists {
		return errors.Errorf("segment %d already exists", seg.ID)
	}
	if err := s.checkEndpointsLocked(seg.Start, seg.End); err != nil {
		return errors.Wrapf(err, "segment %d", seg.ID)
	}
	s.insertSegmentLocked(seg)
	return nil
}

func (s *Store) checkEndpointsLocked(a, b PointID) error {
	if a == b {
		return ErrDegenerateSegment
	}
	for _, id := range []PointID{a, b} {
		if _, ok := s.points[id]; !ok {
			return errors.Wrapf(ErrUnknownPoint, "point %d", id)
		}
	}
	return nil
}

func (s *Store) insertSegmentLocked(seg Segment) {
	s.segments[seg.ID] = seg
	s.segmentOrder = append(s.segmentOrder, seg.ID)
	if seg.ID >= s.nextSegment {
		s.nextSegment = seg.ID + 1
	}
	s.revision++
}

// MoveTo places a point at (x, y).
func (s *Store) MoveTo(id PointID, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.points[id]
	if !ok {
		return errors.Wrapf(ErrUnknownPoint, "point %d", id)
	}
	p.X, p.Y = x, y
	s.revision++
	return nil
}

// MoveBy translates a point by (dx, dy).
func (s *Store) MoveBy(id PointID, dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.points[id]
	if !ok {
		return errors.Wrapf(ErrUnknownPoint, "point %d", id)
	}
	p.X += dx
	p.Y += dy
	s.revision++
	return nil
}

// Point returns a copy of the point with the given ID.
func (s *Store) Point(id PointID) (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[id]
	if !ok {
		return Point{}, false
	}
	return *p, true
}

// Points returns copies of all points in ID order.
func (s *Store) Points() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Point, 0, len(s.points))
	for _, p := range s.points {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Segment returns the segment with the given ID.
func (s *Store) Segment(id SegmentID) (Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[id]
	return seg, ok
}

// Segments returns all segments in creation order.
func (s *Store) Segments() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Segment, 0, len(s.segmentOrder))
	for _, id := range s.segmentOrder {
		result = append(result, s.segments[id])
	}
	return result
}

// Length returns the current length of a segment.
func (s *Store) Length(id SegmentID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[id]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownSegment, "segment %d", id)
	}
	return s.points[seg.Start].Distance(s.points[seg.End].Point2D), nil
}

// DeleteSegment removes a segment. Its endpoints stay until Sweep.
func (s *Store) DeleteSegment(id SegmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.segments[id]; !ok {
		return errors.Wrapf(ErrUnknownSegment, "segment %d", id)
	}
	s.deleteSegmentLocked(id)
	return nil
}

func (s *Store) deleteSegmentLocked(id SegmentID) {
	delete(s.segments, id)
	for i, sid := range s.segmentOrder {
		if sid == id {
			s.segmentOrder = append(s.segmentOrder[:i], s.segmentOrder[i+1:]...)
			break
		}
	}
	s.revision++
}

// DeletePoint removes a point that no segment references.
func (s *Store) DeletePoint(id PointID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[id]; !ok {
		return errors.Wrapf(ErrUnknownPoint, "point %d", id)
	}
	for _, seg := range s.segments {
		if seg.Start == id || seg.End == id {
			return errors.Wrapf(ErrPointInUse, "point %d used by segment %d", id, seg.ID)
		}
	}
	delete(s.points, id)
	s.revision++
	return nil
}

// Sweep removes every point no segment references and returns their IDs in
// ascending order.
func (s *Store) Sweep() []PointID {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := make(map[PointID]bool, len(s.points))
	for _, seg := range s.segments {
		used[seg.Start] = true
		used[seg.End] = true
	}

	var removed []PointID
	for id := range s.points {
		if !used[id] {
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, id := range removed {
		delete(s.points, id)
	}
	if len(removed) > 0 {
		s.revision++
	}
	return removed
}

// MergeClosePoints merges every pair of points closer than threshold into
// one point at their average position. Segments referencing a merged-away
// point are rewired; those that would collapse onto a single point are
// removed. Returns the number of points merged away.
func (s *Store) MergeClosePoints(threshold float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.pointIDsLocked()
	merged := 0
	for i := 0; i < len(ids); i++ {
		keep, ok := s.points[ids[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			other, ok := s.points[ids[j]]
			if !ok || keep.Distance(other.Point2D) >= threshold {
				continue
			}
			keep.Point2D = keep.Midpoint(other.Point2D)
			s.rewireLocked(other.ID, keep.ID)
			delete(s.points, other.ID)
			merged++
		}
	}
	if merged > 0 {
		s.revision++
	}
	return merged
}

func (s *Store) rewireLocked(from, to PointID) {
	for _, id := range append([]SegmentID(nil), s.segmentOrder...) {
		seg := s.segments[id]
		if seg.Start == from {
			seg.Start = to
		}
		if seg.End == from {
			seg.End = to
		}
		if seg.Start == seg.End {
			s.deleteSegmentLocked(id)
			continue
		}
		s.segments[id] = seg
	}
}

func (s *Store) pointIDsLocked() []PointID {
	ids := make([]PointID, 0, len(s.points))
	for id := range s.points {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Duplicate copies a group of segments translated by (dx, dy). Points shared
// within the group are shared within the copy as well. Returns the IDs of
// the new segments in input order.
func (s *Store) Duplicate(ids []SegmentID, dx, dy float64) ([]SegmentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.segments[id]; !ok {
			return nil, errors.Wrapf(ErrUnknownSegment, "segment %d", id)
		}
	}

	copies := make(map[PointID]PointID)
	clone := func(p PointID) PointID {
		if c, ok := copies[p]; ok {
			return c
		}
		orig := s.points[p]
		c := s.addPointLocked(orig.X+dx, orig.Y+dy)
		copies[p] = c
		return c
	}

	result := make([]SegmentID, 0, len(ids))
	for _, id := range ids {
		seg := s.segments[id]
		dup := Segment{ID: s.nextSegment, Start: clone(seg.Start), End: clone(seg.End)}
		s.insertSegmentLocked(dup)
		result = append(result, dup.ID)
	}
	return result, nil
}

// Bounds returns the bounding box of all points and arcs.
func (s *Store) Bounds() geom.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pts := make([]geometry.Point2D, 0, len(s.points)+2*len(s.arcs))
	for _, p := range s.points {
		pts = append(pts, p.Point2D)
	}
	for _, a := range s.arcs {
		pts = append(pts,
			a.Center.Sub(geometry.NewPoint2D(a.Radius, a.Radius)),
			a.Center.Add(geometry.NewPoint2D(a.Radius, a.Radius)))
	}
	return geometry.Bounds(pts)
}
