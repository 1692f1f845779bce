package geometry

import (
	"math"

	"github.com/jbeda/geom"
	"gonum.org/v1/gonum/floats"
)

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// PolarOrder returns the indices of points sorted by polar angle around
// center, lowest angle first. Points at equal angles keep their input order.
func PolarOrder(points []Point2D, center Point2D) []int {
	angles := make([]float64, len(points))
	order := make([]int, len(points))
	for i, p := range points {
		angles[i] = p.Sub(center).Angle()
		order[i] = i
	}
	floats.ArgsortStable(angles, order)
	return order
}

// Circumradius returns the radius of the circle through the vertices of a
// regular n-gon with the given side length.
func Circumradius(side float64, n int) float64 {
	return side / (2 * math.Sin(math.Pi/float64(n)))
}

// RegularPolygon generates n evenly-spaced points around a circle, the first
// one at angle phase.
func RegularPolygon(center Point2D, radius, phase float64, n int) []Point2D {
	points := make([]Point2D, n)
	for i := 0; i < n; i++ {
		angle := phase + float64(i)*2.0*math.Pi/float64(n)
		points[i] = Point2D{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return points
}

// ClosestPointOnSegment projects p onto the segment a-b, clamped to the
// segment's extent.
func ClosestPointOnSegment(p, a, b Point2D) Point2D {
	d := b.Sub(a)
	lengthSq := d.X*d.X + d.Y*d.Y
	if lengthSq == 0 {
		return a
	}
	t := ((p.X-a.X)*d.X + (p.Y-a.Y)*d.Y) / lengthSq
	t = math.Max(0, math.Min(1, t))
	return a.Add(d.Scale(t))
}

// DistanceToSegment returns the distance from p to the segment a-b.
func DistanceToSegment(p, a, b Point2D) float64 {
	return p.Distance(ClosestPointOnSegment(p, a, b))
}

// Coord converts to the geom package's coordinate type.
func (p Point2D) Coord() geom.Coord {
	return geom.Coord{X: p.X, Y: p.Y}
}

// Bounds computes the axis-aligned bounding box of a set of points.
// The zero Rect is returned for an empty set.
func Bounds(points []Point2D) geom.Rect {
	if len(points) == 0 {
		return geom.Rect{}
	}
	r := geom.Rect{Min: points[0].Coord(), Max: points[0].Coord()}
	for _, p := range points[1:] {
		r.ExpandToContainCoord(p.Coord())
	}
	return r
}
