// Package constraint implements the geometric relationships a sketch can
// relax toward. Each constraint performs one bounded correction per Apply
// call and reports a non-negative error.
package constraint

import (
	"fmt"
	"math"
	"strings"

	"sketchpad/internal/sketch"
	"sketchpad/pkg/geometry"

	"github.com/pkg/errors"
)

// Kind selects the relationship a Constraint enforces.
type Kind int

const (
	EqualLength   Kind = iota // two lines of the same length
	Parallel                  // current rotated parallel to base
	Perpendicular             // current rotated perpendicular to base
	Horizontal                // base made horizontal
	Vertical                  // base made vertical
)

var kindNames = [...]string{
	EqualLength:   "equal_length",
	Parallel:      "parallel",
	Perpendicular: "perpendicular",
	Horizontal:    "horizontal",
	Vertical:      "vertical",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a kind name as produced by Kind.String. Dashes and
// case are ignored.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for k, name := range kindNames {
		if name == norm {
			return Kind(k), nil
		}
	}
	return 0, errors.Errorf("unknown constraint kind %q", s)
}

// Lines returns how many segments a constraint of this kind relates.
func (k Kind) Lines() int {
	switch k {
	case Horizontal, Vertical:
		return 1
	default:
		return 2
	}
}

// Constraint relates one segment (Base) or two segments (Base, Current).
type Constraint struct {
	Kind    Kind
	Base    sketch.SegmentID
	Current sketch.SegmentID

	// rotationError is the error reported by the angular kinds: the arc
	// length swept by the last rotation Apply performed.
	rotationError float64
}

// NewEqualLength drives two segments toward the same length.
func NewEqualLength(base, current sketch.SegmentID) Constraint {
	return Constraint{Kind: EqualLength, Base: base, Current: current}
}

// NewParallel rotates current until it is parallel to base.
func NewParallel(base, current sketch.SegmentID) Constraint {
	return Constraint{Kind: Parallel, Base: base, Current: current}
}

// NewPerpendicular rotates current until it is perpendicular to base.
func NewPerpendicular(base, current sketch.SegmentID) Constraint {
	return Constraint{Kind: Perpendicular, Base: base, Current: current}
}

// NewHorizontal levels a segment.
func NewHorizontal(line sketch.SegmentID) Constraint {
	return Constraint{Kind: Horizontal, Base: line}
}

// NewVertical plumbs a segment.
func NewVertical(line sketch.SegmentID) Constraint {
	return Constraint{Kind: Vertical, Base: line}
}

// New builds a constraint of the given kind. current is ignored for
// single-line kinds.
func New(kind Kind, base, current sketch.SegmentID) (Constraint, error) {
	c := Constraint{Kind: kind, Base: base}
	if kind.Lines() == 2 {
		c.Current = current
	}
	return c, c.Validate()
}

// Validate checks that the kind is known and that a two-line constraint
// relates two different segments.
func (c Constraint) Validate() error {
	if c.Kind < 0 || int(c.Kind) >= len(kindNames) {
		return errors.Errorf("unknown constraint kind %d", int(c.Kind))
	}
	if c.Kind.Lines() == 2 && c.Base == c.Current {
		return errors.Errorf("%s constraint needs two different segments, got %d twice", c.Kind, c.Base)
	}
	return nil
}

// Segments returns the segments the constraint reads and moves.
func (c Constraint) Segments() []sketch.SegmentID {
	if c.Kind.Lines() == 1 {
		return []sketch.SegmentID{c.Base}
	}
	return []sketch.SegmentID{c.Base, c.Current}
}

func (c Constraint) String() string {
	if c.Kind.Lines() == 1 {
		return fmt.Sprintf("%s(%d)", c.Kind, c.Base)
	}
	return fmt.Sprintf("%s(%d, %d)", c.Kind, c.Base, c.Current)
}

// Pairwise builds the constraints implied by selecting lines for a kind:
// one per line for single-line kinds, one per unordered pair otherwise.
// Repeated lines are skipped.
func Pairwise(kind Kind, lines []sketch.SegmentID) []Constraint {
	var unique []sketch.SegmentID
	seen := make(map[sketch.SegmentID]bool, len(lines))
	for _, l := range lines {
		if !seen[l] {
			seen[l] = true
			unique = append(unique, l)
		}
	}

	var result []Constraint
	if kind.Lines() == 1 {
		for _, l := range unique {
			result = append(result, Constraint{Kind: kind, Base: l})
		}
		return result
	}
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			result = append(result, Constraint{Kind: kind, Base: unique[i], Current: unique[j]})
		}
	}
	return result
}

// Apply performs one relaxation step on the points in f. Constraints with a
// zero-length operand do nothing.
func (c *Constraint) Apply(f *sketch.Frame) {
	switch c.Kind {
	case EqualLength:
		c.applyEqualLength(f)
	case Parallel:
		c.applyRotation(f, 0, math.Pi)
	case Perpendicular:
		c.applyRotation(f, math.Pi/2, -math.Pi/2)
	case Horizontal:
		c.applyAxis(f, false)
	case Vertical:
		c.applyAxis(f, true)
	}
}

// Error reports how far the constraint is from being satisfied. For the
// angular kinds it is the error recorded by the most recent Apply.
func (c *Constraint) Error(f *sketch.Frame) float64 {
	switch c.Kind {
	case EqualLength:
		base, current, ok := c.operands(f)
		if !ok {
			return 0
		}
		return math.Abs(f.Length(base) - f.Length(current))
	case Parallel, Perpendicular:
		return c.rotationError
	case Horizontal, Vertical:
		line, ok := f.Segment(c.Base)
		if !ok || f.Length(line) == 0 {
			return 0
		}
		a, b := f.Endpoints(line)
		if c.Kind == Vertical {
			return math.Abs(b.X - a.X)
		}
		return math.Abs(b.Y - a.Y)
	}
	return 0
}

// operands resolves both segments, reporting false when either is missing
// or has zero length.
func (c *Constraint) operands(f *sketch.Frame) (base, current sketch.Segment, ok bool) {
	base, ok1 := f.Segment(c.Base)
	current, ok2 := f.Segment(c.Current)
	if !ok1 || !ok2 || f.Length(base) == 0 || f.Length(current) == 0 {
		return base, current, false
	}
	return base, current, true
}

// applyEqualLength brings both lines to their mean length in one move: the
// shorter grows and the longer shrinks by half their difference. Each
// line's change is split evenly between its two endpoints along its own
// direction.
func (c *Constraint) applyEqualLength(f *sketch.Frame) {
	base, current, ok := c.operands(f)
	if !ok {
		return
	}
	ub, baseLen, _ := f.Direction(base)
	uc, currentLen, _ := f.Direction(current)
	delta := (currentLen - baseLen) / 2

	f.MoveBy(base.Start, ub.Scale(-delta/2))
	f.MoveBy(base.End, ub.Scale(delta/2))
	f.MoveBy(current.Start, uc.Scale(delta/2))
	f.MoveBy(current.End, uc.Scale(-delta/2))
}

// applyRotation turns current about its midpoint by half the smallest
// rotation that brings it to one of the two target offsets from base's
// angle. Ties go to the first offset.
func (c *Constraint) applyRotation(f *sketch.Frame, first, second float64) {
	base, current, ok := c.operands(f)
	if !ok {
		c.rotationError = 0
		return
	}
	ub, _, _ := f.Direction(base)
	uc, currentLen, _ := f.Direction(current)
	baseAngle, currentAngle := ub.Angle(), uc.Angle()

	d1 := geometry.NormalizeAngle(baseAngle + first - currentAngle)
	d2 := geometry.NormalizeAngle(baseAngle + second - currentAngle)
	diff := d1
	if math.Abs(d2) < math.Abs(d1) {
		diff = d2
	}
	diff /= 2

	a, b := f.Endpoints(current)
	rot := geometry.RotationAbout(a.Midpoint(b), diff)
	f.MoveTo(current.Start, rot.Apply(a))
	f.MoveTo(current.End, rot.Apply(b))

	c.rotationError = math.Abs(currentLen * diff)
}

// applyAxis moves both endpoints halfway toward their shared midpoint
// coordinate on one axis: y for horizontal, x for vertical.
func (c *Constraint) applyAxis(f *sketch.Frame, vertical bool) {
	line, ok := f.Segment(c.Base)
	if !ok || f.Length(line) == 0 {
		return
	}
	a, b := f.Endpoints(line)
	var half geometry.Point2D
	if vertical {
		half.X = (b.X - a.X) / 2
	} else {
		half.Y = (b.Y - a.Y) / 2
	}
	f.MoveBy(line.Start, half)
	f.MoveBy(line.End, half.Scale(-1))
}
