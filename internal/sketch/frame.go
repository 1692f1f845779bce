package sketch

import (
	"sort"

	"sketchpad/pkg/geometry"

	"github.com/pkg/errors"
)

// Frame is a private working copy of the points touched by a set of
// segments. A solver moves points inside a frame and then commits the whole
// frame back to its store in one step, so no other writer can observe or
// interleave with a half-finished solve.
type Frame struct {
	revision uint64
	points   map[PointID]geometry.Point2D
	segments map[SegmentID]Segment
}

// Snapshot copies the segments with the given IDs and their endpoints into a
// new frame. Unknown segment IDs fail fast.
func (s *Store) Snapshot(ids []SegmentID) (*Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := &Frame{
		revision: s.revision,
		points:   make(map[PointID]geometry.Point2D),
		segments: make(map[SegmentID]Segment, len(ids)),
	}
	for _, id := range ids {
		seg, ok := s.segments[id]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownSegment, "segment %d", id)
		}
		for _, pid := range []PointID{seg.Start, seg.End} {
			p, ok := s.points[pid]
			if !ok {
				return nil, errors.Wrapf(ErrUnknownPoint, "point %d of segment %d", pid, id)
			}
			f.points[pid] = p.Point2D
		}
		f.segments[id] = seg
	}
	return f, nil
}

// Commit writes every position in f back to the store. It fails with
// ErrStaleFrame, leaving the store untouched, if anything in the store
// changed after the snapshot was taken.
func (s *Store) Commit(f *Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.revision != s.revision {
		return errors.Wrapf(ErrStaleFrame, "frame revision %d, store revision %d", f.revision, s.revision)
	}
	for id, pos := range f.points {
		s.points[id].Point2D = pos
	}
	s.revision++
	f.revision = s.revision
	return nil
}

// Segment returns a segment held by the frame.
func (f *Frame) Segment(id SegmentID) (Segment, bool) {
	seg, ok := f.segments[id]
	return seg, ok
}

// Points returns the IDs of all points in the frame, ascending.
func (f *Frame) Points() []PointID {
	ids := make([]PointID, 0, len(f.points))
	for id := range f.points {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Position returns the current position of a point in the frame.
func (f *Frame) Position(id PointID) geometry.Point2D {
	return f.points[id]
}

// MoveTo places a point in the frame.
func (f *Frame) MoveTo(id PointID, p geometry.Point2D) {
	if _, ok := f.points[id]; ok {
		f.points[id] = p
	}
}

// MoveBy translates a point in the frame.
func (f *Frame) MoveBy(id PointID, d geometry.Point2D) {
	if p, ok := f.points[id]; ok {
		f.points[id] = p.Add(d)
	}
}

// Endpoints returns the current start and end positions of a segment.
func (f *Frame) Endpoints(seg Segment) (geometry.Point2D, geometry.Point2D) {
	return f.points[seg.Start], f.points[seg.End]
}

// Length returns the current length of a segment.
func (f *Frame) Length(seg Segment) float64 {
	a, b := f.Endpoints(seg)
	return a.Distance(b)
}

// Direction returns the unit vector from a segment's start to its end and
// its length. ok is false for a zero-length segment.
func (f *Frame) Direction(seg Segment) (u geometry.Point2D, length float64, ok bool) {
	a, b := f.Endpoints(seg)
	d := b.Sub(a)
	u, ok = d.Unit()
	return u, d.Len(), ok
}
