// Package topology analyzes how a selection of segments is connected:
// which segments meet at each point, and which points form connected
// components, closed polygons or open chains.
package topology

import (
	"sort"

	"sketchpad/internal/sketch"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// SegmentSource resolves segment IDs. *sketch.Frame implements it.
type SegmentSource interface {
	Segment(id sketch.SegmentID) (sketch.Segment, bool)
}

// Component is a maximal set of points reachable from one another through
// the analyzed segments.
type Component struct {
	Points   []sketch.PointID
	Segments []sketch.SegmentID

	// Closed is set when the component is a simple polygon: at least three
	// points, each with exactly two incident segments.
	Closed bool
}

// Graph is the incidence structure of one selection. It is cheap to build
// and must be rebuilt whenever the selection or the sketch changes.
type Graph struct {
	// Incidence maps each participating point to the selected segments
	// touching it, in selection order.
	Incidence map[sketch.PointID][]sketch.SegmentID

	Components []Component
}

// Degree returns the number of selected segments incident to p.
func (g *Graph) Degree(p sketch.PointID) int {
	return len(g.Incidence[p])
}

// Analyze builds the incidence graph of the given segments and partitions it
// into connected components by breadth-first search. Components are seeded
// from the lowest unvisited point ID. Repeated segment IDs are ignored.
func Analyze(src SegmentSource, ids []sketch.SegmentID) (*Graph, error) {
	g := &Graph{Incidence: make(map[sketch.PointID][]sketch.SegmentID)}
	adjacency := simple.NewUndirectedGraph()

	seen := make(map[sketch.SegmentID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		seg, ok := src.Segment(id)
		if !ok {
			return nil, errors.Wrapf(sketch.ErrUnknownSegment, "segment %d", id)
		}
		if seg.Start == seg.End {
			return nil, errors.Wrapf(sketch.ErrDegenerateSegment, "segment %d", id)
		}
		g.Incidence[seg.Start] = append(g.Incidence[seg.Start], id)
		g.Incidence[seg.End] = append(g.Incidence[seg.End], id)
		adjacency.SetEdge(simple.Edge{F: simple.Node(seg.Start), T: simple.Node(seg.End)})
	}

	seeds := make([]sketch.PointID, 0, len(g.Incidence))
	for p := range g.Incidence {
		seeds = append(seeds, p)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })

	var bfs traverse.BreadthFirst
	for _, seed := range seeds {
		if bfs.Visited(simple.Node(seed)) {
			continue
		}
		var members []sketch.PointID
		bfs.Walk(adjacency, simple.Node(seed), func(n graph.Node, _ int) bool {
			members = append(members, sketch.PointID(n.ID()))
			return false
		})
		g.Components = append(g.Components, g.component(members))
	}
	return g, nil
}

func (g *Graph) component(members []sketch.PointID) Component {
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	closed := len(members) >= 3
	segSet := make(map[sketch.SegmentID]bool)
	for _, p := range members {
		if g.Degree(p) != 2 {
			closed = false
		}
		for _, s := range g.Incidence[p] {
			segSet[s] = true
		}
	}

	segs := make([]sketch.SegmentID, 0, len(segSet))
	for s := range segSet {
		segs = append(segs, s)
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i] < segs[j] })

	return Component{Points: members, Segments: segs, Closed: closed}
}
