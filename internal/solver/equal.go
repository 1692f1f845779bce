package solver

import (
	"context"
	"log"
	"sort"

	"sketchpad/internal/constraint"
	"sketchpad/internal/sketch"
	"sketchpad/internal/topology"
	"sketchpad/pkg/geometry"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Defaults for the equal-length solver.
const (
	DefaultEqualLengthMaxIterations = 50
	DefaultEqualLengthTolerance     = 0.5
)

// TargetMode chooses how the shared length is computed when the selection
// spans several connected components.
type TargetMode int

const (
	// TargetPerComponent equalizes each component to the mean length of
	// its own segments.
	TargetPerComponent TargetMode = iota
	// TargetGlobal equalizes every segment to the mean over the whole
	// selection.
	TargetGlobal
)

func (m TargetMode) String() string {
	if m == TargetGlobal {
		return "global"
	}
	return "per_component"
}

// ParseTargetMode converts "per_component" or "global".
func ParseTargetMode(s string) (TargetMode, error) {
	switch s {
	case "", "per_component":
		return TargetPerComponent, nil
	case "global":
		return TargetGlobal, nil
	}
	return 0, errors.Errorf("unknown equal-length target mode %q", s)
}

// EqualLengthOptions tune SolveEqualLength.
type EqualLengthOptions struct {
	MaxIterations int
	Tolerance     float64
	Target        TargetMode

	// Constraints, when set, receive one relaxation pass after every
	// equal-length iteration, on the same working copy.
	Constraints []constraint.Constraint
}

// DefaultEqualLengthOptions returns the equal-length defaults.
func DefaultEqualLengthOptions() EqualLengthOptions {
	return EqualLengthOptions{
		MaxIterations: DefaultEqualLengthMaxIterations,
		Tolerance:     DefaultEqualLengthTolerance,
		Target:        TargetPerComponent,
	}
}

// withDefaults fills non-positive fields from DefaultEqualLengthOptions.
func (o EqualLengthOptions) withDefaults() EqualLengthOptions {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultEqualLengthMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultEqualLengthTolerance
	}
	return o
}

// SolveEqualLength moves the endpoints of the selected segments until every
// segment has roughly the same length. Closed polygons are re-placed as
// regular polygons around their centroid; open chains and branches are
// relaxed locally, with free ends pulled straight to the target distance
// from their junction. The iteration stops once no point moves by more
// than the tolerance. Non-positive option fields take their defaults.
func SolveEqualLength(ctx context.Context, store *sketch.Store, segs []sketch.SegmentID, opts EqualLengthOptions) (Result, error) {
	opts = opts.withDefaults()
	if len(segs) == 0 {
		return Result{Status: Converged}, nil
	}
	for _, c := range opts.Constraints {
		if err := c.Validate(); err != nil {
			return Result{}, err
		}
	}

	f, err := store.Snapshot(append(append([]sketch.SegmentID(nil), segs...), referencedSegments(opts.Constraints)...))
	if err != nil {
		return Result{}, errors.Wrap(err, "equal length")
	}
	g, err := topology.Analyze(f, segs)
	if err != nil {
		return Result{}, errors.Wrap(err, "equal length")
	}

	targets := targetLengths(f, g, opts.Target)

	res := Result{Status: IterationCapReached}
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res.Iterations = iter

		var moved float64
		for i, comp := range g.Components {
			target, ok := targets[i]
			if !ok {
				continue
			}
			var m float64
			if comp.Closed {
				m = placeRegular(f, comp, target)
			} else {
				m = relaxOpen(f, g, comp, target)
			}
			if m > moved {
				moved = m
			}
		}
		if len(opts.Constraints) > 0 {
			pass(f, opts.Constraints)
		}

		res.Residual = moved
		if moved < opts.Tolerance {
			res.Status = Converged
			break
		}
	}

	if err := store.Commit(f); err != nil {
		return Result{}, err
	}
	log.Printf("Equal length: %d segments in %d components %s after %d iterations",
		len(segs), len(g.Components), res.Status, res.Iterations)
	return res, nil
}

// targetLengths computes the length each component is driven to, keyed by
// component index. Zero-length segments do not contribute; a component
// with no measurable segment gets no target and is left alone.
func targetLengths(f *sketch.Frame, g *topology.Graph, mode TargetMode) map[int]float64 {
	lengthsOf := func(ids []sketch.SegmentID) []float64 {
		var lengths []float64
		for _, id := range ids {
			seg, _ := f.Segment(id)
			if l := f.Length(seg); l > 0 {
				lengths = append(lengths, l)
			}
		}
		return lengths
	}

	targets := make(map[int]float64, len(g.Components))
	if mode == TargetGlobal {
		var all []sketch.SegmentID
		for _, comp := range g.Components {
			all = append(all, comp.Segments...)
		}
		lengths := lengthsOf(all)
		if len(lengths) == 0 {
			return targets
		}
		mean := stat.Mean(lengths, nil)
		for i, comp := range g.Components {
			if len(lengthsOf(comp.Segments)) > 0 {
				targets[i] = mean
			}
		}
		return targets
	}

	for i, comp := range g.Components {
		if lengths := lengthsOf(comp.Segments); len(lengths) > 0 {
			targets[i] = stat.Mean(lengths, nil)
		}
	}
	return targets
}

// placeRegular puts the points of a closed component on the regular polygon
// with side target, centered on their centroid. The point with the lowest
// polar angle keeps its angle; the rest follow in angular order. Returns the
// largest displacement.
func placeRegular(f *sketch.Frame, comp topology.Component, target float64) float64 {
	n := len(comp.Points)
	pts := make([]geometry.Point2D, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, id := range comp.Points {
		pts[i] = f.Position(id)
		xs[i], ys[i] = pts[i].X, pts[i].Y
	}
	center := geometry.NewPoint2D(stat.Mean(xs, nil), stat.Mean(ys, nil))

	order := geometry.PolarOrder(pts, center)
	phase := pts[order[0]].Sub(center).Angle()
	placed := geometry.RegularPolygon(center, geometry.Circumradius(target, n), phase, n)

	var moved float64
	for k, idx := range order {
		if d := pts[idx].Distance(placed[k]); d > moved {
			moved = d
		}
		f.MoveTo(comp.Points[idx], placed[k])
	}
	return moved
}

type proposal struct {
	sum   geometry.Point2D
	count int
}

// relaxOpen collects a proposed position for the endpoints of every segment
// in an open component, then moves each point to the mean of its
// proposals. A free end hanging off a junction is proposed at exactly the
// target distance along the segment; any other segment proposes both
// endpoints moving symmetrically to absorb the length error. Returns the
// largest displacement.
func relaxOpen(f *sketch.Frame, g *topology.Graph, comp topology.Component, target float64) float64 {
	proposals := make(map[sketch.PointID]*proposal)
	propose := func(id sketch.PointID, at geometry.Point2D) {
		p, ok := proposals[id]
		if !ok {
			p = &proposal{}
			proposals[id] = p
		}
		p.sum = p.sum.Add(at)
		p.count++
	}

	for _, id := range comp.Segments {
		seg, _ := f.Segment(id)
		u, length, ok := f.Direction(seg)
		if !ok {
			continue
		}
		a, b := f.Endpoints(seg)
		degA, degB := g.Degree(seg.Start), g.Degree(seg.End)

		switch {
		case degA > 1 && degB == 1:
			propose(seg.End, a.Add(u.Scale(target)))
		case degB > 1 && degA == 1:
			propose(seg.Start, b.Sub(u.Scale(target)))
		default:
			half := (length - target) / 2
			propose(seg.Start, a.Add(u.Scale(half)))
			propose(seg.End, b.Sub(u.Scale(half)))
		}
	}

	ids := make([]sketch.PointID, 0, len(proposals))
	for id := range proposals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var moved float64
	for _, id := range ids {
		p := proposals[id]
		next := p.sum.Scale(1 / float64(p.count))
		if d := f.Position(id).Distance(next); d > moved {
			moved = d
		}
		f.MoveTo(id, next)
	}
	return moved
}
