// Package render draws sketches as SVG.
package render

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"sketchpad/internal/sketch"
	"sketchpad/pkg/geometry"

	svg "github.com/ajstarks/svgo/float"
)

// Options control SVG output.
type Options struct {
	Scale  float64 // output units per sketch unit
	Margin float64 // in sketch units

	ShowPoints bool
	Labels     bool // segment IDs at midpoints

	// Highlight lists segments drawn in the selection color.
	Highlight []sketch.SegmentID
}

// DefaultOptions returns the options used by the CLIs.
func DefaultOptions() Options {
	return Options{Scale: 1, Margin: 10, ShowPoints: true}
}

const (
	segmentStyle   = "stroke:black;stroke-width:1.5;fill:none;stroke-linecap:round"
	highlightStyle = "stroke:rgb(230,120,0);stroke-width:2.5;fill:none;stroke-linecap:round"
	arcStyle       = "stroke:rgb(40,90,200);stroke-width:1.5;fill:none"
	pointStyle     = "fill:rgb(200,30,30)"
	labelStyle     = "font-family:sans-serif;font-size:9px;fill:rgb(90,90,90)"
)

// WriteSVG renders every segment, arc and point of the store. The sketch is
// drawn y-up: larger y values appear higher on the page.
func WriteSVG(w io.Writer, store *sketch.Store, opts Options) error {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	bw := bufio.NewWriter(w)
	canvas := svg.New(bw)

	bounds := store.Bounds()
	minX, minY := bounds.Min.X-opts.Margin, bounds.Min.Y-opts.Margin
	width := (bounds.Max.X - bounds.Min.X + 2*opts.Margin) * opts.Scale
	height := (bounds.Max.Y - bounds.Min.Y + 2*opts.Margin) * opts.Scale

	tx := func(x float64) float64 { return (x - minX) * opts.Scale }
	ty := func(y float64) float64 { return height - (y-minY)*opts.Scale }

	canvas.Start(width, height)

	highlighted := make(map[sketch.SegmentID]bool, len(opts.Highlight))
	for _, id := range opts.Highlight {
		highlighted[id] = true
	}

	pos := make(map[sketch.PointID]geometry.Point2D)
	points := store.Points()
	for _, p := range points {
		pos[p.ID] = p.Point2D
	}

	for _, seg := range store.Segments() {
		a, b := pos[seg.Start], pos[seg.End]
		style := segmentStyle
		if highlighted[seg.ID] {
			style = highlightStyle
		}
		canvas.Line(tx(a.X), ty(a.Y), tx(b.X), ty(b.Y), style)
		if opts.Labels {
			m := a.Midpoint(b)
			canvas.Text(tx(m.X)+3, ty(m.Y)-3, fmt.Sprintf("%d", seg.ID), labelStyle)
		}
	}

	for _, a := range store.Arcs() {
		r := a.Radius * opts.Scale
		if math.Abs(a.Sweep) >= 360 {
			canvas.Circle(tx(a.Center.X), ty(a.Center.Y), r, arcStyle)
			continue
		}
		start := arcPoint(a, a.StartAngle)
		end := arcPoint(a, a.StartAngle+a.Sweep)
		// Flipping y turns counter-clockwise into SVG's negative sweep.
		canvas.Arc(tx(start.X), ty(start.Y), r, r, 0,
			math.Abs(a.Sweep) > 180, a.Sweep < 0,
			tx(end.X), ty(end.Y), arcStyle)
	}

	if opts.ShowPoints {
		for _, p := range points {
			canvas.Circle(tx(p.X), ty(p.Y), 2.5, pointStyle)
		}
	}

	canvas.End()
	return bw.Flush()
}

func arcPoint(a sketch.Arc, deg float64) geometry.Point2D {
	rad := deg * math.Pi / 180
	return a.Center.Add(geometry.NewPoint2D(a.Radius*math.Cos(rad), a.Radius*math.Sin(rad)))
}
