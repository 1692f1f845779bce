package sketch

import (
	"math"

	"sketchpad/pkg/geometry"

	"github.com/pkg/errors"
)

// Arc is a circular arc. Angles are in degrees, counter-clockwise from the
// positive x axis; a negative Sweep runs clockwise.
type Arc struct {
	ID         ArcID            `json:"id"`
	Center     geometry.Point2D `json:"center"`
	Radius     float64          `json:"radius"`
	StartAngle float64          `json:"start_angle"`
	Sweep      float64          `json:"sweep"`
}

// Contains reports whether p lies within tol of the arc's curve.
func (a Arc) Contains(p geometry.Point2D, tol float64) bool {
	if math.Abs(p.Distance(a.Center)-a.Radius) > tol {
		return false
	}
	if math.Abs(a.Sweep) >= 360 {
		return true
	}
	deg := p.Sub(a.Center).Angle() * 180 / math.Pi
	if a.Sweep >= 0 {
		return wrapDegrees(deg-a.StartAngle) <= a.Sweep
	}
	return wrapDegrees(a.StartAngle-deg) <= -a.Sweep
}

// wrapDegrees maps an angle to [0, 360).
func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// AddArc stores an arc and returns its ID.
func (s *Store) AddArc(center geometry.Point2D, radius, startAngle, sweep float64) ArcID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextArc
	s.insertArcLocked(Arc{ID: id, Center: center, Radius: radius, StartAngle: startAngle, Sweep: sweep})
	return id
}

// InsertArc adds an arc with a caller-chosen ID.
func (s *Store) InsertArc(a Arc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.arcs[a.ID]; exists {
		return errors.Errorf("arc %d already exists", a.ID)
	}
	s.insertArcLocked(a)
	return nil
}

func (s *Store) insertArcLocked(a Arc) {
	s.arcs[a.ID] = a
	s.arcOrder = append(s.arcOrder, a.ID)
	if a.ID >= s.nextArc {
		s.nextArc = a.ID + 1
	}
	s.revision++
}

// DeleteArc removes an arc.
func (s *Store) DeleteArc(id ArcID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.arcs[id]; !ok {
		return errors.Wrapf(ErrUnknownArc, "arc %d", id)
	}
	delete(s.arcs, id)
	for i, aid := range s.arcOrder {
		if aid == id {
			s.arcOrder = append(s.arcOrder[:i], s.arcOrder[i+1:]...)
			break
		}
	}
	s.revision++
	return nil
}

// Arcs returns all arcs in creation order.
func (s *Store) Arcs() []Arc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Arc, 0, len(s.arcOrder))
	for _, id := range s.arcOrder {
		result = append(result, s.arcs[id])
	}
	return result
}

// SegmentAt returns the most recently created segment passing within tol of
// (x, y). Zero-length segments are never hit.
func (s *Store) SegmentAt(x, y, tol float64) (SegmentID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at := geometry.NewPoint2D(x, y)
	for i := len(s.segmentOrder) - 1; i >= 0; i-- {
		seg := s.segments[s.segmentOrder[i]]
		a, b := s.points[seg.Start].Point2D, s.points[seg.End].Point2D
		if a == b {
			continue
		}
		if geometry.DistanceToSegment(at, a, b) <= tol {
			return seg.ID, true
		}
	}
	return 0, false
}

// ArcAt returns the most recently created arc passing within tol of (x, y).
func (s *Store) ArcAt(x, y, tol float64) (ArcID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at := geometry.NewPoint2D(x, y)
	for i := len(s.arcOrder) - 1; i >= 0; i-- {
		a := s.arcs[s.arcOrder[i]]
		if a.Contains(at, tol) {
			return a.ID, true
		}
	}
	return 0, false
}
