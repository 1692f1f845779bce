// Package app provides the editing session: the sketch, its registered
// constraints, the pending line selection, settings, and events.
package app

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"sketchpad/internal/config"
	"sketchpad/internal/constraint"
	"sketchpad/internal/project"
	"sketchpad/internal/sketch"
	"sketchpad/internal/solver"
	"sketchpad/pkg/geometry"

	"github.com/pkg/errors"
)

// ErrNotEnoughLines is returned when the pending selection cannot form a
// constraint of the requested kind.
var ErrNotEnoughLines = errors.New("not enough lines selected")

// State holds the sketch being edited and everything around it. Every
// mutation and every solve holds the state lock, so there is exactly one
// writer to the store at a time. Listeners run after the lock is released.
type State struct {
	mu sync.Mutex

	store       *sketch.Store
	constraints []constraint.Constraint
	selection   []sketch.SegmentID
	cfg         *config.Config

	name        string
	projectPath string
	modified    bool

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventSketchChanged EventType = iota
	EventSelectionChanged
	EventConstraintsChanged
	EventSolved
	EventDocumentLoaded
	EventDocumentSaved
	EventConfigChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates an empty session. A nil cfg means defaults.
func NewState(cfg *config.Config) *State {
	if cfg == nil {
		cfg = config.Default()
	}
	return &State{
		store:     sketch.NewStore(),
		cfg:       cfg,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Store returns the sketch. Mutate it through State so events fire and
// constraints stay consistent.
func (s *State) Store() *sketch.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Config returns the active settings.
func (s *State) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the active settings.
func (s *State) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.Emit(EventConfigChanged, cfg)
}

// Constraints returns a copy of the registered constraints.
func (s *State) Constraints() []constraint.Constraint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]constraint.Constraint(nil), s.constraints...)
}

// Path returns the file the session was last loaded from or saved to.
func (s *State) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectPath
}

// Modified reports whether the sketch changed since the last load or save.
func (s *State) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// AddPoint creates a free point.
func (s *State) AddPoint(x, y float64) sketch.PointID {
	s.mu.Lock()
	id := s.store.AddPoint(x, y)
	s.modified = true
	s.mu.Unlock()

	s.Emit(EventSketchChanged, nil)
	return id
}

// AddSegment joins two existing points.
func (s *State) AddSegment(a, b sketch.PointID) (sketch.SegmentID, error) {
	s.mu.Lock()
	id, err := s.store.AddSegment(a, b)
	if err == nil {
		s.modified = true
	}
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}
	s.Emit(EventSketchChanged, nil)
	return id, nil
}

// AddLine draws a segment between two locations. Each end reuses an
// existing point within the snap tolerance, so lines drawn end to end share
// their junction point.
func (s *State) AddLine(x1, y1, x2, y2 float64) (sketch.SegmentID, error) {
	s.mu.Lock()
	tol := s.cfg.Snap.PointTolerance
	a, newA := s.store.SnapPoint(x1, y1, tol)
	b, newB := s.store.SnapPoint(x2, y2, tol)
	id, err := s.store.AddSegment(a, b)
	if err != nil {
		if newA {
			_ = s.store.DeletePoint(a)
		}
		if newB && b != a {
			_ = s.store.DeletePoint(b)
		}
		s.mu.Unlock()
		return 0, errors.Wrap(err, "add line")
	}
	s.modified = true
	s.mu.Unlock()

	s.Emit(EventSketchChanged, nil)
	return id, nil
}

// AddArc stores an arc. Angles are in degrees.
func (s *State) AddArc(center geometry.Point2D, radius, startAngle, sweep float64) sketch.ArcID {
	s.mu.Lock()
	id := s.store.AddArc(center, radius, startAngle, sweep)
	s.modified = true
	s.mu.Unlock()

	s.Emit(EventSketchChanged, nil)
	return id
}

// DeleteSegment removes a segment, sweeps the points it orphaned, and drops
// constraints and selections that referenced it.
func (s *State) DeleteSegment(id sketch.SegmentID) error {
	s.mu.Lock()
	if err := s.store.DeleteSegment(id); err != nil {
		s.mu.Unlock()
		return err
	}
	s.store.Sweep()
	dropped := s.pruneLocked()
	s.modified = true
	s.mu.Unlock()

	s.Emit(EventSketchChanged, nil)
	if dropped {
		s.Emit(EventConstraintsChanged, nil)
	}
	return nil
}

// DeleteAt deletes the newest segment, or failing that the newest arc,
// within the hit tolerance of (x, y). It reports whether anything was
// removed.
func (s *State) DeleteAt(x, y float64) (bool, error) {
	s.mu.Lock()
	tol := s.cfg.Snap.HitTolerance
	seg, onSeg := s.store.SegmentAt(x, y, tol)
	arc, onArc := s.store.ArcAt(x, y, tol)
	s.mu.Unlock()

	switch {
	case onSeg:
		return true, s.DeleteSegment(seg)
	case onArc:
		s.mu.Lock()
		err := s.store.DeleteArc(arc)
		if err == nil {
			s.modified = true
		}
		s.mu.Unlock()
		if err != nil {
			return false, err
		}
		s.Emit(EventSketchChanged, nil)
		return true, nil
	}
	return false, nil
}

// MovePoint places a point. Every segment sharing the point follows.
func (s *State) MovePoint(id sketch.PointID, x, y float64) error {
	s.mu.Lock()
	err := s.store.MoveTo(id, x, y)
	if err == nil {
		s.modified = true
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.Emit(EventSketchChanged, nil)
	return nil
}

// MergeClosePoints fuses points closer than the configured merge threshold
// and returns how many points were removed.
func (s *State) MergeClosePoints() int {
	s.mu.Lock()
	n := s.store.MergeClosePoints(s.cfg.Snap.MergeThreshold)
	dropped := false
	if n > 0 {
		dropped = s.pruneLocked()
		s.modified = true
	}
	s.mu.Unlock()

	if n > 0 {
		s.Emit(EventSketchChanged, nil)
	}
	if dropped {
		s.Emit(EventConstraintsChanged, nil)
	}
	return n
}

// Duplicate copies segments translated by (dx, dy).
func (s *State) Duplicate(ids []sketch.SegmentID, dx, dy float64) ([]sketch.SegmentID, error) {
	s.mu.Lock()
	copies, err := s.store.Duplicate(ids, dx, dy)
	if err == nil {
		s.modified = true
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	s.Emit(EventSketchChanged, nil)
	return copies, nil
}

// SelectAt adds the newest segment under (x, y) to the pending selection.
func (s *State) SelectAt(x, y float64) (sketch.SegmentID, bool) {
	s.mu.Lock()
	id, ok := s.store.SegmentAt(x, y, s.cfg.Snap.HitTolerance)
	added := ok && s.selectLocked(id)
	sel := s.selectionLocked()
	s.mu.Unlock()

	if added {
		s.Emit(EventSelectionChanged, sel)
	}
	return id, ok
}

// SelectSegment adds a segment to the pending selection.
func (s *State) SelectSegment(id sketch.SegmentID) error {
	s.mu.Lock()
	if _, ok := s.store.Segment(id); !ok {
		s.mu.Unlock()
		return errors.Wrapf(sketch.ErrUnknownSegment, "segment %d", id)
	}
	added := s.selectLocked(id)
	sel := s.selectionLocked()
	s.mu.Unlock()

	if added {
		s.Emit(EventSelectionChanged, sel)
	}
	return nil
}

// Selection returns the pending lines in selection order.
func (s *State) Selection() []sketch.SegmentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

// ClearSelection empties the pending selection.
func (s *State) ClearSelection() {
	s.mu.Lock()
	had := len(s.selection) > 0
	s.selection = nil
	s.mu.Unlock()

	if had {
		s.Emit(EventSelectionChanged, []sketch.SegmentID(nil))
	}
}

// CommitConstraint turns the pending selection into constraints of the
// given kind, registers them, and re-solves every registered constraint.
// The selection is cleared even if the solve fails; the new constraints
// stay registered.
func (s *State) CommitConstraint(ctx context.Context, kind constraint.Kind) (solver.Result, error) {
	s.mu.Lock()
	lines := s.selectionLocked()
	cs := constraint.Pairwise(kind, lines)
	if len(cs) == 0 {
		s.mu.Unlock()
		return solver.Result{}, errors.Wrapf(ErrNotEnoughLines, "%s needs %d", kind, kind.Lines())
	}
	s.constraints = append(s.constraints, cs...)
	s.selection = nil
	log.Printf("App: registered %d %s constraints", len(cs), kind)
	s.mu.Unlock()

	s.Emit(EventConstraintsChanged, cs)
	s.Emit(EventSelectionChanged, []sketch.SegmentID(nil))
	return s.SolveConstraints(ctx)
}

// SolveConstraints relaxes the sketch toward every registered constraint.
func (s *State) SolveConstraints(ctx context.Context) (solver.Result, error) {
	s.mu.Lock()
	res, err := solver.Solve(ctx, s.store, s.constraints, s.cfg.DriverOptions())
	if err == nil && len(s.constraints) > 0 {
		s.modified = true
	}
	s.mu.Unlock()

	if err != nil {
		return solver.Result{}, err
	}
	s.Emit(EventSolved, res)
	s.Emit(EventSketchChanged, nil)
	return res, nil
}

// SolveEqualLength equalizes the pending lines, interleaved with passes
// over the registered constraints, then clears the selection.
func (s *State) SolveEqualLength(ctx context.Context) (solver.Result, error) {
	s.mu.Lock()
	lines := s.selectionLocked()
	s.selection = nil
	opts := s.cfg.EqualLengthOptions()
	opts.Constraints = s.constraints
	res, err := solver.SolveEqualLength(ctx, s.store, lines, opts)
	if err == nil && len(lines) > 0 {
		s.modified = true
	}
	s.mu.Unlock()

	if len(lines) > 0 {
		s.Emit(EventSelectionChanged, []sketch.SegmentID(nil))
	}
	if err != nil {
		return solver.Result{}, err
	}
	s.Emit(EventSolved, res)
	s.Emit(EventSketchChanged, nil)
	return res, nil
}

// Load replaces the session with a saved sketch.
func (s *State) Load(path string) error {
	f, err := project.Load(path)
	if err != nil {
		return err
	}
	store, cs, err := f.Build()
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	s.mu.Lock()
	s.store = store
	s.constraints = cs
	s.selection = nil
	s.name = f.Name
	s.projectPath = path
	s.modified = false
	s.mu.Unlock()

	s.Emit(EventDocumentLoaded, path)
	return nil
}

// Save writes the session to path. An unnamed sketch takes its name from
// the file name.
func (s *State) Save(path string) error {
	s.mu.Lock()
	if s.name == "" {
		s.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	f := project.FromStore(s.name, s.store, s.constraints)
	s.mu.Unlock()

	if err := f.Save(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.projectPath = path
	s.modified = false
	s.mu.Unlock()

	s.Emit(EventDocumentSaved, path)
	return nil
}

// selectLocked appends id unless already selected.
func (s *State) selectLocked(id sketch.SegmentID) bool {
	for _, sel := range s.selection {
		if sel == id {
			return false
		}
	}
	s.selection = append(s.selection, id)
	return true
}

func (s *State) selectionLocked() []sketch.SegmentID {
	return append([]sketch.SegmentID(nil), s.selection...)
}

// pruneLocked drops constraints and selected lines whose segments no longer
// exist. It reports whether any constraint was dropped.
func (s *State) pruneLocked() bool {
	exists := func(id sketch.SegmentID) bool {
		_, ok := s.store.Segment(id)
		return ok
	}

	kept := s.constraints[:0]
	for _, c := range s.constraints {
		alive := true
		for _, id := range c.Segments() {
			if !exists(id) {
				alive = false
				break
			}
		}
		if alive {
			kept = append(kept, c)
		}
	}
	dropped := len(kept) != len(s.constraints)
	s.constraints = kept

	sel := s.selection[:0]
	for _, id := range s.selection {
		if exists(id) {
			sel = append(sel, id)
		}
	}
	s.selection = sel

	if dropped {
		log.Printf("App: dropped constraints on deleted segments, %d remain", len(kept))
	}
	return dropped
}
